package workbench

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/session"
)

// AuditSession audits the session's proposal and stores the report. If a
// newer audit started meanwhile, the report is returned but not stored and
// the error is session.ErrStaleRequest. A cancelled ctx stores nothing.
func (w *Workbench) AuditSession(ctx context.Context, s *session.Session) (*model.AnalysisReport, error) {
	ticket := s.Begin(session.ActionAudit)
	proposal, refs, _ := s.Inputs()

	report, auditErr := w.RunAudit(ctx, proposal, refs)
	if ctx.Err() != nil {
		s.Cancel(ticket)
		return report, fmt.Errorf("audit abandoned: %w", ctx.Err())
	}

	if err := s.SetReport(ticket, report); err != nil {
		w.logStale(s, ticket, err)
		return report, err
	}
	return report, auditErr
}

// ChatSession appends message and the assistant's reply to the transcript
// and returns the reply. Replies are always appended.
func (w *Workbench) ChatSession(ctx context.Context, s *session.Session, message, chatContext string) model.ChatMessage {
	history := s.Messages()
	s.AppendMessage(model.ChatMessage{Role: model.RoleUser, Text: message})

	return s.AppendMessage(model.ChatMessage{
		Role: model.RoleModel,
		Text: w.SendChatMessage(ctx, history, message, chatContext),
	})
}

// SimulateSession generates a simulation from the session's proposal,
// references and latest report, and stores the markup. Stale results are
// returned but not stored.
func (w *Workbench) SimulateSession(ctx context.Context, s *session.Session, goal string) (string, error) {
	ticket := s.Begin(session.ActionSimulation)
	proposal, refs, report := s.Inputs()

	code := w.GenerateSimulation(ctx, proposal, refs, report, strings.TrimSpace(goal))
	if ctx.Err() != nil {
		s.Cancel(ticket)
		return code, fmt.Errorf("simulation abandoned: %w", ctx.Err())
	}

	if err := s.SetSimulationCode(ticket, code); err != nil {
		w.logStale(s, ticket, err)
		return code, err
	}
	return code, nil
}

func (w *Workbench) logStale(s *session.Session, t session.Ticket, err error) {
	if errors.Is(err, session.ErrStaleRequest) {
		w.logger.Info("discarding superseded result",
			zap.String("session", s.ID()),
			zap.String("action", string(t.Action)),
			zap.String("ticket", t.ID))
		return
	}
	w.logger.Warn("could not apply result", zap.String("session", s.ID()), zap.Error(err))
}
