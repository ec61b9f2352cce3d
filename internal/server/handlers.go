package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/ingest"
	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/normalize"
	"github.com/ppiankov/grantaxiom/internal/session"
	"github.com/ppiankov/grantaxiom/internal/validate"
	"github.com/ppiankov/grantaxiom/internal/workbench"
)

// sessionResponse is a session snapshot plus the derived report summary
type sessionResponse struct {
	Session session.State       `json:"session"`
	Summary *model.AuditSummary `json:"summary,omitempty"`
}

type auditResponse struct {
	Report  *model.AnalysisReport `json:"report"`
	Summary model.AuditSummary    `json:"summary"`
	Error   string                `json:"error,omitempty"`
}

type proposalRequest struct {
	Text string `json:"text"`
}

type referencesRequest struct {
	References []model.Reference `json:"references"`
	URLs       []string          `json:"urls"`
}

type chatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

type simulationRequest struct {
	Goal string `json:"goal"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.wb.Provider().Name(),
		"sessions": s.store.Len(),
		"uptime":   time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create()
	s.logger.Info("session created", zap.String("session", sess.ID()))
	writeJSON(w, http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Reset()
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleSetProposal(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var text string
	if isJSON(r) {
		var req proposalRequest
		if err := s.decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		text = req.Text
	} else {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody()))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
			return
		}
		text = string(data)
	}

	sess.SetProposal(text)
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleAddReferences(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var (
		refs []model.Reference
		err  error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "multipart/form-data":
		refs, err = s.referencesFromUpload(w, r)
	case isJSON(r):
		refs, err = s.referencesFromJSON(w, r)
	default:
		err = fmt.Errorf("unsupported content type %q", mediaType)
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ingest.ErrDisallowedByRobots) {
			status = http.StatusForbidden
		}
		writeError(w, status, err)
		return
	}

	added := sess.AddReferences(refs...)
	s.logger.Info("references added", zap.String("session", sess.ID()), zap.Int("count", len(added)))
	writeJSON(w, http.StatusCreated, map[string]any{"added": added})
}

func (s *Server) referencesFromUpload(w http.ResponseWriter, r *http.Request) ([]model.Reference, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody())
	if err := r.ParseMultipartForm(s.maxBody()); err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return nil, errors.New(`no files in form field "files"`)
	}

	refs := make([]model.Reference, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		ref, err := s.ingester.FromReader(fh.Filename, f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", fh.Filename, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *Server) referencesFromJSON(w http.ResponseWriter, r *http.Request) ([]model.Reference, error) {
	var req referencesRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		return nil, err
	}

	refs := make([]model.Reference, 0, len(req.References)+len(req.URLs))
	for i, ref := range req.References {
		if strings.TrimSpace(ref.Title) == "" {
			return nil, fmt.Errorf("reference %d: title is required", i+1)
		}
		if ref.ID == "" {
			ref.ID = "local-" + uuid.NewString()
		}
		refs = append(refs, ref)
	}

	for _, u := range req.URLs {
		ref, err := s.ingester.FromURL(r.Context(), u)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", u, err)
		}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil, errors.New("no references or urls given")
	}
	return refs, nil
}

func (s *Server) handleRemoveReference(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.RemoveReference(r.PathValue("refID")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	report, err := s.wb.AuditSession(r.Context(), sess)

	resp := auditResponse{Report: report, Summary: s.scorer.Summarize(report)}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = actionStatus(err)
	}
	writeJSON(w, status, resp)
}

// actionStatus maps audit and simulation error kinds to HTTP statuses
func actionStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrStaleRequest):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, workbench.ErrOracleFailure):
		return http.StatusBadGateway
	case errors.Is(err, normalize.ErrMalformedResponse), errors.Is(err, validate.ErrInvalidSchema):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req chatRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	reply := s.wb.ChatSession(r.Context(), sess, req.Message, req.Context)
	writeJSON(w, http.StatusOK, map[string]any{"reply": reply})
}

func (s *Server) handleGenerateSimulation(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req simulationRequest
	if r.ContentLength != 0 && isJSON(r) {
		if err := s.decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	code, err := s.wb.SimulateSession(r.Context(), sess, req.Goal)
	if err != nil {
		writeJSON(w, actionStatus(err), map[string]string{"code": code, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	code := sess.SimulationCode()
	if code == "" {
		writeError(w, http.StatusNotFound, errors.New("no simulation generated yet"))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", simulationCSP)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, code)
}

func (s *Server) sessionResponse(sess *session.Session) sessionResponse {
	state := sess.Snapshot()
	resp := sessionResponse{Session: state}
	if state.Report != nil {
		summary := s.scorer.Summarize(state.Report)
		resp.Summary = &summary
	}
	return resp
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func (s *Server) maxBody() int64 {
	if s.cfg.MaxUploadBytes <= 0 {
		return 10 << 20
	}
	return s.cfg.MaxUploadBytes
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}
