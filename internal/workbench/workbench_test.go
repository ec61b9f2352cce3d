package workbench

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantaxiom/internal/llm"
	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/normalize"
	"github.com/ppiankov/grantaxiom/internal/prompt"
	"github.com/ppiankov/grantaxiom/internal/session"
	"github.com/ppiankov/grantaxiom/internal/validate"
)

// stubProvider answers every call with respond and records the requests
type stubProvider struct {
	mu       sync.Mutex
	requests []llm.GenerateRequest
	respond  func(call int, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

func (s *stubProvider) Name() string                         { return "stub" }
func (s *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (s *stubProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	s.mu.Lock()
	call := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(call, req)
}

func (s *stubProvider) lastRequest() llm.GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func replying(text string) *stubProvider {
	return &stubProvider{respond: func(int, llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return &llm.GenerateResponse{Text: text}, nil
	}}
}

func failing(err error) *stubProvider {
	return &stubProvider{respond: func(int, llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return nil, err
	}}
}

const mockAudit = "```json\n" + `{"overallScore": 65, "claims": [{"id": "c1", "text": "photon coherence can be maintained over distances exceeding 50 meters", "status": "contradiction", "confidence": 0.92, "sourceId": "ref-1", "explanation": "ref-1 predicts decoherence beyond 10 meters", "suggestion": "Qualify the claim"}], "complianceIssues": ["Broader impacts section is thin"], "toneAnalysis": "Assertive"}` + "\n```"

func TestRunAudit_MockScenario(t *testing.T) {
	provider := replying(mockAudit)
	wb := New(provider, DefaultOptions(), nil)

	report, err := wb.RunAudit(context.Background(), model.SampleProposal, model.SampleReferences())
	require.NoError(t, err)

	assert.Equal(t, 65, report.OverallScore)
	require.Len(t, report.Claims, 1)
	assert.Equal(t, "ref-1", report.Claims[0].SourceID)
	assert.Equal(t, 0.92, report.Claims[0].Confidence)
	assert.Equal(t, model.StatusContradiction, report.Claims[0].Status)

	req := provider.lastRequest()
	assert.Equal(t, llm.FormatJSON, req.Options.ResponseFormat)
	assert.Equal(t, 2048, req.Options.ReasoningBudget)
	assert.False(t, req.Options.EnableSearchTool)
	assert.Equal(t, prompt.AuditorSystemInstruction, req.Options.SystemInstruction)
	assert.Equal(t, prompt.BuildAuditPrompt(model.SampleProposal, model.SampleReferences()), req.Prompt)
}

func TestRunAudit_OracleFailure(t *testing.T) {
	wb := New(failing(errors.New("connection refused")), DefaultOptions(), nil)

	report, err := wb.RunAudit(context.Background(), "proposal", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracleFailure)
	assert.Contains(t, err.Error(), "connection refused")

	require.NotNil(t, report)
	assert.Equal(t, 0, report.OverallScore)
	assert.Empty(t, report.Claims)
	assert.Equal(t, []string{AuditFailureIssue}, report.ComplianceIssues)
}

func TestRunAudit_MalformedResponse(t *testing.T) {
	wb := New(replying("I cannot produce JSON today."), DefaultOptions(), nil)

	report, err := wb.RunAudit(context.Background(), "proposal", nil)
	assert.ErrorIs(t, err, normalize.ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrOracleFailure)
	assert.Equal(t, []string{InvalidResponseIssue}, report.ComplianceIssues)
	assert.Equal(t, 0, report.OverallScore)
}

func TestRunAudit_InvalidSchema(t *testing.T) {
	wb := New(replying(`{"overallScore": 50, "claims": [{"text": "x", "status": "verified", "confidence": 1.7}]}`), DefaultOptions(), nil)

	report, err := wb.RunAudit(context.Background(), "proposal", nil)
	assert.ErrorIs(t, err, validate.ErrInvalidSchema)
	assert.Equal(t, []string{InvalidResponseIssue}, report.ComplianceIssues)
}

func TestRunAudit_ClampPolicy(t *testing.T) {
	opts := DefaultOptions()
	opts.Policy = validate.PolicyClamp
	wb := New(replying(`{"overallScore": 50, "claims": [{"text": "x", "status": "verified", "confidence": 1.7}]}`), opts, nil)

	report, err := wb.RunAudit(context.Background(), "proposal", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Claims[0].Confidence)
	assert.NotEmpty(t, report.Warnings)
}

func TestSendChatMessage(t *testing.T) {
	provider := replying("Consider citing Smith et al.")
	wb := New(provider, DefaultOptions(), nil)

	history := []model.ChatMessage{{Role: model.RoleModel, Text: model.Greeting}}
	reply := wb.SendChatMessage(context.Background(), history, "How do I improve the abstract?", "")
	assert.Equal(t, "Consider citing Smith et al.", reply)

	req := provider.lastRequest()
	assert.Equal(t, llm.FormatText, req.Options.ResponseFormat)
	assert.True(t, req.Options.EnableSearchTool)
	assert.Equal(t, prompt.ChatSystemInstruction, req.Options.SystemInstruction)
	assert.Contains(t, req.Prompt, "User: How do I improve the abstract?")
}

func TestSendChatMessage_Failures(t *testing.T) {
	wb := New(failing(errors.New("timeout")), DefaultOptions(), nil)
	assert.Equal(t, ChatApology, wb.SendChatMessage(context.Background(), nil, "hi", ""))

	wb = New(replying("   "), DefaultOptions(), nil)
	assert.Equal(t, normalize.EmptyChatReply, wb.SendChatMessage(context.Background(), nil, "hi", ""))
}

func TestGenerateSimulation(t *testing.T) {
	provider := replying("Sure!\n```html\n<!DOCTYPE html><html><canvas></canvas></html>\n```")
	wb := New(provider, DefaultOptions(), nil)

	report := &model.AnalysisReport{OverallScore: 65, Claims: []model.Claim{}, ComplianceIssues: []string{"Thin impacts"}}
	code := wb.GenerateSimulation(context.Background(), model.SampleProposal, model.SampleReferences(), report, "")
	assert.Equal(t, "<!DOCTYPE html><html><canvas></canvas></html>", code)

	req := provider.lastRequest()
	assert.Equal(t, 4096, req.Options.ReasoningBudget)
	assert.Equal(t, llm.FormatText, req.Options.ResponseFormat)
	assert.Contains(t, req.Prompt, "Audit Score: 65. Key Issue: Thin impacts")
	assert.Contains(t, req.Prompt, prompt.DefaultSimulationGoal)
}

func TestGenerateSimulation_Failures(t *testing.T) {
	wb := New(failing(errors.New("quota")), DefaultOptions(), nil)
	assert.Equal(t, SimulationFailureHTML, wb.GenerateSimulation(context.Background(), "p", nil, nil, ""))

	wb = New(replying("```html\n```"), DefaultOptions(), nil)
	assert.Equal(t, SimulationFailureHTML, wb.GenerateSimulation(context.Background(), "p", nil, nil, ""))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Audit.RangePolicy = "passthrough"
	cfg.Simulation.MaxReferences = 2

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, validate.PolicyPassthrough, opts.Policy)
	assert.Equal(t, 2, opts.Limits.MaxReferences)
	assert.Equal(t, 5000, opts.Limits.ProposalChars)

	cfg.Audit.RangePolicy = "bogus"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

func TestAuditSession_StaleResultDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	provider := &stubProvider{respond: func(call int, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		if call == 0 {
			close(started)
			<-release
			return &llm.GenerateResponse{Text: `{"overallScore": 10, "claims": []}`}, nil
		}
		return &llm.GenerateResponse{Text: `{"overallScore": 90, "claims": []}`}, nil
	}}
	wb := New(provider, DefaultOptions(), nil)
	s := session.New("s1", session.WithSample())

	type result struct {
		report *model.AnalysisReport
		err    error
	}
	slow := make(chan result, 1)
	go func() {
		r, err := wb.AuditSession(context.Background(), s)
		slow <- result{r, err}
	}()

	<-started
	fast, err := wb.AuditSession(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 90, fast.OverallScore)

	close(release)
	old := <-slow
	assert.ErrorIs(t, old.err, session.ErrStaleRequest)
	assert.Equal(t, 10, old.report.OverallScore)

	state := s.Snapshot()
	require.NotNil(t, state.Report)
	assert.Equal(t, 90, state.Report.OverallScore)
	assert.False(t, state.Analyzing)
}

func TestAuditSession_FailureStoresFallback(t *testing.T) {
	wb := New(failing(errors.New("down")), DefaultOptions(), nil)
	s := session.New("s1")

	report, err := wb.AuditSession(context.Background(), s)
	assert.ErrorIs(t, err, ErrOracleFailure)
	assert.True(t, report.IsFallback())
	assert.True(t, s.Snapshot().Report.IsFallback())
}

func TestChatSession(t *testing.T) {
	provider := replying("Happy to help.")
	wb := New(provider, DefaultOptions(), nil)
	s := session.New("s1")

	reply := wb.ChatSession(context.Background(), s, "Hello", "")
	assert.Equal(t, model.RoleModel, reply.Role)
	assert.Equal(t, "Happy to help.", reply.Text)
	assert.False(t, reply.Timestamp.IsZero())

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "Hello", msgs[1].Text)

	// History sent to the oracle excludes the new message
	req := provider.lastRequest()
	assert.Contains(t, req.Prompt, "User: Hello")
	assert.NotContains(t, req.Prompt, "user: Hello")
}

func TestChatSession_FailureStillAppends(t *testing.T) {
	wb := New(failing(errors.New("offline")), DefaultOptions(), nil)
	s := session.New("s1")

	reply := wb.ChatSession(context.Background(), s, "Hi", "")
	assert.Equal(t, ChatApology, reply.Text)
	assert.Len(t, s.Messages(), 3)
}

func TestSimulateSession(t *testing.T) {
	wb := New(replying("<!DOCTYPE html><html></html>"), DefaultOptions(), nil)
	s := session.New("s1", session.WithSample())

	code, err := wb.SimulateSession(context.Background(), s, "  show fringes  ")
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", code)
	assert.Equal(t, code, s.SimulationCode())
}

func TestAuditSession_CancelledKeepsPreviousReport(t *testing.T) {
	wb := New(replying(`{"overallScore": 55, "claims": []}`), DefaultOptions(), nil)
	s := session.New("s1", session.WithSample())

	_, err := wb.AuditSession(context.Background(), s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = wb.AuditSession(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)

	state := s.Snapshot()
	require.NotNil(t, state.Report)
	assert.Equal(t, 55, state.Report.OverallScore)
	assert.False(t, state.Analyzing)
}
