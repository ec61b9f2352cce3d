// Package workbench implements the three oracle-backed operations (audit,
// assistant chat, impact simulation) with their call-site fallbacks.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/llm"
	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/normalize"
	"github.com/ppiankov/grantaxiom/internal/prompt"
	"github.com/ppiankov/grantaxiom/internal/validate"
)

// ErrOracleFailure wraps transport and service errors from the provider
var ErrOracleFailure = errors.New("oracle request failed")

// User-facing fallbacks
const (
	AuditFailureIssue    = "Error analyzing proposal. Please try again."
	InvalidResponseIssue = "The audit service returned an invalid response. Please try again."
	ChatApology          = "I'm having trouble connecting to the network right now."
)

// SimulationFailureHTML is shown in place of a simulation that could not be
// generated
const SimulationFailureHTML = `<html><body style="background:#0f172a;color:white;display:flex;align-items:center;justify-content:center;"><h3>Failed to generate simulation. Please try again.</h3></body></html>`

// Options are the per-operation oracle settings
type Options struct {
	AuditBudget      int
	SimulationBudget int
	ChatSearch       bool
	Limits           prompt.SimulationLimits
	Policy           validate.Policy
}

// DefaultOptions mirrors model.DefaultConfig
func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(model.DefaultConfig())
	return opts
}

// OptionsFromConfig extracts workbench options from the configuration
func OptionsFromConfig(cfg *model.Config) (Options, error) {
	policy, err := validate.ParsePolicy(cfg.Audit.RangePolicy)
	if err != nil {
		return Options{}, err
	}

	limits := prompt.DefaultSimulationLimits()
	if cfg.Simulation.ProposalChars > 0 {
		limits.ProposalChars = cfg.Simulation.ProposalChars
	}
	if cfg.Simulation.MaxReferences > 0 {
		limits.MaxReferences = cfg.Simulation.MaxReferences
	}
	if cfg.Simulation.SnippetChars > 0 {
		limits.SnippetChars = cfg.Simulation.SnippetChars
	}

	return Options{
		AuditBudget:      cfg.Audit.ReasoningBudget,
		SimulationBudget: cfg.Simulation.ReasoningBudget,
		ChatSearch:       cfg.Chat.EnableSearch,
		Limits:           limits,
		Policy:           policy,
	}, nil
}

// Workbench runs oracle calls for proposals
type Workbench struct {
	provider  llm.Provider
	validator *validate.Validator
	opts      Options
	logger    *zap.Logger
}

// New creates a workbench. logger may be nil.
func New(provider llm.Provider, opts Options, logger *zap.Logger) *Workbench {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workbench{
		provider:  provider,
		validator: validate.NewValidator(opts.Policy),
		opts:      opts,
		logger:    logger.Named("workbench"),
	}
}

// Provider returns the underlying oracle provider
func (w *Workbench) Provider() llm.Provider {
	return w.provider
}

// RunAudit audits proposal against refs. The returned report is never nil:
// on failure it is the zero-score fallback and the error tells why
// (ErrOracleFailure, normalize.ErrMalformedResponse or
// validate.ErrInvalidSchema).
func (w *Workbench) RunAudit(ctx context.Context, proposal string, refs []model.Reference) (*model.AnalysisReport, error) {
	start := time.Now()
	log := w.logger.With(zap.String("op", "audit"), zap.Int("references", len(refs)))

	resp, err := w.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: prompt.BuildAuditPrompt(proposal, refs),
		Options: llm.GenerateOptions{
			ResponseFormat:    llm.FormatJSON,
			ReasoningBudget:   w.opts.AuditBudget,
			SystemInstruction: prompt.AuditorSystemInstruction,
		},
	})
	if err != nil {
		log.Error("audit request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return model.FallbackReport(AuditFailureIssue), fmt.Errorf("%w: %w", ErrOracleFailure, err)
	}
	w.logWarnings(log, resp)

	payload, err := normalize.ParseAuditReport(resp.Text)
	if err == nil {
		var report *model.AnalysisReport
		report, err = w.validator.Validate(payload, refs)
		if err == nil {
			log.Info("audit complete",
				zap.Int("score", report.OverallScore),
				zap.Int("claims", len(report.Claims)),
				zap.Int("validator_notes", len(report.Warnings)),
				zap.Bool("cached", resp.Cached),
				zap.Duration("elapsed", time.Since(start)))
			return report, nil
		}
	}

	log.Error("audit response rejected",
		zap.Error(err),
		zap.String("range_policy", string(w.validator.Policy())),
		zap.Int("response_chars", len(resp.Text)),
		zap.Duration("elapsed", time.Since(start)))
	return model.FallbackReport(InvalidResponseIssue), err
}

// SendChatMessage asks the assistant about message given the transcript so
// far. It never fails: errors become ChatApology.
func (w *Workbench) SendChatMessage(ctx context.Context, history []model.ChatMessage, message, chatContext string) string {
	start := time.Now()
	log := w.logger.With(zap.String("op", "chat"), zap.Int("history", len(history)))

	resp, err := w.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: prompt.BuildChatPrompt(history, message, chatContext),
		Options: llm.GenerateOptions{
			ResponseFormat:    llm.FormatText,
			EnableSearchTool:  w.opts.ChatSearch,
			SystemInstruction: prompt.ChatSystemInstruction,
		},
	})
	if err != nil {
		log.Error("chat request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return ChatApology
	}
	w.logWarnings(log, resp)

	log.Debug("chat reply", zap.Int("chars", len(resp.Text)), zap.Duration("elapsed", time.Since(start)))
	return normalize.NormalizeChat(resp.Text)
}

// GenerateSimulation asks for a self-contained HTML document visualizing the
// proposal. It never fails: errors become SimulationFailureHTML.
func (w *Workbench) GenerateSimulation(ctx context.Context, proposal string, refs []model.Reference, report *model.AnalysisReport, goal string) string {
	start := time.Now()
	log := w.logger.With(zap.String("op", "simulation"), zap.Bool("audited", report != nil))

	resp, err := w.provider.Generate(ctx, llm.GenerateRequest{
		Prompt: prompt.BuildSimulationPrompt(proposal, refs, report, goal, w.opts.Limits),
		Options: llm.GenerateOptions{
			ResponseFormat:  llm.FormatText,
			ReasoningBudget: w.opts.SimulationBudget,
		},
	})
	if err != nil {
		log.Error("simulation request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return SimulationFailureHTML
	}
	w.logWarnings(log, resp)

	code := normalize.ExtractCode(resp.Text)
	if code == "" {
		log.Warn("simulation response empty", zap.Duration("elapsed", time.Since(start)))
		return SimulationFailureHTML
	}

	log.Info("simulation generated", zap.Int("chars", len(code)), zap.Duration("elapsed", time.Since(start)))
	return code
}

func (w *Workbench) logWarnings(log *zap.Logger, resp *llm.GenerateResponse) {
	for _, warning := range resp.Warnings {
		log.Warn("provider warning", zap.String("provider", w.provider.Name()), zap.String("warning", warning))
	}
}
