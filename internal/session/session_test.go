package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/grantaxiom/internal/model"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(opts ...Option) *Session {
	return New("s1", append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestNew_StartsWithGreeting(t *testing.T) {
	s := newTestSession()
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleModel, msgs[0].Role)
	assert.Equal(t, model.Greeting, msgs[0].Text)

	state := s.Snapshot()
	assert.Equal(t, "s1", state.ID)
	assert.Empty(t, state.Proposal)
	assert.Empty(t, state.References)
	assert.Nil(t, state.Report)
}

func TestWithSample(t *testing.T) {
	s := newTestSession(WithSample())
	proposal, refs, report := s.Inputs()
	assert.Equal(t, model.SampleProposal, proposal)
	assert.Len(t, refs, 2)
	assert.Nil(t, report)
}

func TestReferences(t *testing.T) {
	s := newTestSession()
	added := s.AddReferences(model.SampleReferences()...)
	assert.Len(t, added, 2)

	added = s.AddReferences(model.Reference{ID: "ref-1", Title: "dup"}, model.Reference{ID: "ref-3", Title: "new"})
	require.Len(t, added, 1)
	assert.Equal(t, "ref-3", added[0].ID)

	require.NoError(t, s.RemoveReference("ref-2"))
	assert.ErrorIs(t, s.RemoveReference("ref-2"), ErrReferenceNotFound)

	_, refs, _ := s.Inputs()
	ids := []string{}
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"ref-1", "ref-3"}, ids)
}

func TestRemoveReference_DoesNotAliasSnapshots(t *testing.T) {
	s := newTestSession(WithSample())
	before := s.Snapshot()
	require.NoError(t, s.RemoveReference("ref-1"))
	assert.Equal(t, "ref-1", before.References[0].ID)
}

func TestTickets_StaleResultRejected(t *testing.T) {
	s := newTestSession()

	first := s.Begin(ActionAudit)
	second := s.Begin(ActionAudit)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, s.Snapshot().Analyzing)

	newer := &model.AnalysisReport{OverallScore: 80, Claims: []model.Claim{}}
	older := &model.AnalysisReport{OverallScore: 10, Claims: []model.Claim{}}

	require.NoError(t, s.SetReport(second, newer))
	assert.ErrorIs(t, s.SetReport(first, older), ErrStaleRequest)

	state := s.Snapshot()
	assert.False(t, state.Analyzing)
	require.NotNil(t, state.Report)
	assert.Equal(t, 80, state.Report.OverallScore)

	// A ticket can only be applied once
	assert.ErrorIs(t, s.SetReport(second, older), ErrStaleRequest)
}

func TestTickets_ActionsAreIndependent(t *testing.T) {
	s := newTestSession()
	audit := s.Begin(ActionAudit)
	sim := s.Begin(ActionSimulation)

	require.NoError(t, s.SetSimulationCode(sim, "<!DOCTYPE html>"))
	require.NoError(t, s.SetReport(audit, model.FallbackReport("x")))
	assert.Equal(t, "<!DOCTYPE html>", s.SimulationCode())

	wrong := s.Begin(ActionAudit)
	assert.Error(t, s.SetSimulationCode(wrong, "x"))
}

func TestCancel(t *testing.T) {
	s := newTestSession()
	tk := s.Begin(ActionSimulation)
	s.Cancel(tk)
	assert.False(t, s.Snapshot().Simulating)
	assert.ErrorIs(t, s.SetSimulationCode(tk, "late"), ErrStaleRequest)
}

func TestReset_InvalidatesTickets(t *testing.T) {
	s := newTestSession(WithSample())
	tk := s.Begin(ActionAudit)
	s.AppendMessage(model.ChatMessage{Role: model.RoleUser, Text: "hi"})

	s.Reset()

	assert.ErrorIs(t, s.SetReport(tk, model.FallbackReport("x")), ErrStaleRequest)
	state := s.Snapshot()
	assert.Empty(t, state.Proposal)
	assert.Empty(t, state.References)
	assert.Len(t, state.Messages, 1)
	assert.Equal(t, "s1", state.ID)
}

func TestAppendMessage(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(model.ChatMessage{Role: model.RoleUser, Text: "hi"})
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, fixedNow, msgs[1].Timestamp)
}

func TestSnapshot_ReportIsCopied(t *testing.T) {
	s := newTestSession()
	tk := s.Begin(ActionAudit)
	require.NoError(t, s.SetReport(tk, model.FallbackReport("Error analyzing proposal. Please try again.")))

	snap := s.Snapshot()
	snap.Report.ComplianceIssues[0] = "mutated"
	assert.NotNil(t, snap.Report.Claims)

	_, _, report := s.Inputs()
	assert.Equal(t, "Error analyzing proposal. Please try again.", report.ComplianceIssues[0])
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := newTestSession()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk := s.Begin(ActionAudit)
			s.AppendMessage(model.ChatMessage{Role: model.RoleUser, Text: "q"})
			_ = s.SetReport(tk, model.FallbackReport("x"))
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.Len(t, s.Messages(), 21)
}

func TestStore(t *testing.T) {
	st := NewStore(model.SessionConfig{TTL: time.Hour, SeedSample: true})

	s := st.Create()
	got, err := st.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, model.SampleProposal, got.Snapshot().Proposal)
	assert.Equal(t, 1, st.Len())

	require.NoError(t, st.Delete(s.ID()))
	_, err = st.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, st.Delete(s.ID()), ErrSessionNotFound)
}

func TestStore_Expiry(t *testing.T) {
	st := NewStore(model.SessionConfig{TTL: 20 * time.Millisecond})
	s := st.Create()
	time.Sleep(40 * time.Millisecond)
	_, err := st.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
