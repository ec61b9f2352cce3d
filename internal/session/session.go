// Package session holds the mutable workbench state: proposal text,
// reference library, latest report, chat transcript and simulation markup.
// All mutation goes through the transition methods on Session.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/grantaxiom/internal/model"
)

var (
	// ErrStaleRequest is returned when a result arrives for a superseded ticket
	ErrStaleRequest = errors.New("stale request")

	// ErrReferenceNotFound is returned when removing an unknown reference
	ErrReferenceNotFound = errors.New("reference not found")
)

// Action identifies a long-running oracle call whose result replaces state
type Action string

const (
	ActionAudit      Action = "audit"
	ActionSimulation Action = "simulation"
)

// Ticket identifies one run of an action. Only the most recently issued
// ticket for an action may apply its result.
type Ticket struct {
	Action   Action    `json:"action"`
	ID       string    `json:"id"`
	IssuedAt time.Time `json:"issuedAt"`
}

// State is a point-in-time copy of a session
type State struct {
	ID             string                `json:"id"`
	Proposal       string                `json:"proposal"`
	References     []model.Reference     `json:"references"`
	Report         *model.AnalysisReport `json:"report,omitempty"`
	Messages       []model.ChatMessage   `json:"messages"`
	SimulationCode string                `json:"simulationCode,omitempty"`
	Analyzing      bool                  `json:"analyzing"`
	Simulating     bool                  `json:"simulating"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Session is the state of one workbench. It is safe for concurrent use.
type Session struct {
	mu             sync.RWMutex
	id             string
	proposal       string
	refs           []model.Reference
	report         *model.AnalysisReport
	messages       []model.ChatMessage
	simulationCode string
	pending        map[Action]string
	updatedAt      time.Time
	now            func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides the session clock
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSample seeds the session with the demo proposal and references
func WithSample() Option {
	return func(s *Session) {
		s.proposal = model.SampleProposal
		s.refs = model.SampleReferences()
	}
}

// New creates a session whose transcript starts with the greeting
func New(id string, opts ...Option) *Session {
	s := &Session{
		id:      id,
		refs:    []model.Reference{},
		pending: make(map[Action]string),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.messages = []model.ChatMessage{s.greeting()}
	s.updatedAt = s.now()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

func (s *Session) greeting() model.ChatMessage {
	return model.ChatMessage{Role: model.RoleModel, Text: model.Greeting, Timestamp: s.now()}
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}

// SetProposal replaces the proposal text
func (s *Session) SetProposal(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposal = text
	s.touch()
}

// AddReferences appends references, skipping IDs already present.
// It returns the references actually added.
func (s *Session) AddReferences(refs ...model.Reference) []model.Reference {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := model.ReferenceIDs(s.refs)
	added := make([]model.Reference, 0, len(refs))
	for _, r := range refs {
		if r.ID == "" || known[r.ID] {
			continue
		}
		known[r.ID] = true
		s.refs = append(s.refs, r)
		added = append(added, r)
	}
	if len(added) > 0 {
		s.touch()
	}
	return added
}

// RemoveReference removes the reference with the given ID
func (s *Session) RemoveReference(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.refs {
		if r.ID == id {
			s.refs = append(s.refs[:i:i], s.refs[i+1:]...)
			s.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrReferenceNotFound, id)
}

// Begin issues a ticket for action, superseding any ticket in flight
func (s *Session) Begin(action Action) Ticket {
	t := Ticket{Action: action, ID: uuid.NewString(), IssuedAt: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[action] = t.ID
	return t
}

// settle clears the pending ticket if t is still current
func (s *Session) settle(t Ticket, action Action) error {
	if t.Action != action {
		return fmt.Errorf("ticket for %s used to apply %s", t.Action, action)
	}
	if current, ok := s.pending[action]; !ok || current != t.ID {
		return fmt.Errorf("%w: %s %s", ErrStaleRequest, action, t.ID)
	}
	delete(s.pending, action)
	return nil
}

// SetReport replaces the report if t is the current audit ticket
func (s *Session) SetReport(t Ticket, report *model.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settle(t, ActionAudit); err != nil {
		return err
	}
	s.report = report
	s.touch()
	return nil
}

// SetSimulationCode replaces the simulation markup if t is the current
// simulation ticket
func (s *Session) SetSimulationCode(t Ticket, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settle(t, ActionSimulation); err != nil {
		return err
	}
	s.simulationCode = code
	s.touch()
	return nil
}

// Cancel abandons t without applying a result. Cancelling a superseded
// ticket is a no-op.
func (s *Session) Cancel(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[t.Action] == t.ID {
		delete(s.pending, t.Action)
	}
}

// AppendMessage adds a message to the transcript and returns it as stored.
// A zero timestamp is set to the current time.
func (s *Session) AppendMessage(msg model.ChatMessage) model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	s.messages = append(s.messages, msg)
	s.touch()
	return msg
}

// Inputs returns copies of what the oracle calls need
func (s *Session) Inputs() (proposal string, refs []model.Reference, report *model.AnalysisReport) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proposal, cloneRefs(s.refs), cloneReport(s.report)
}

// Messages returns a copy of the transcript
func (s *Session) Messages() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ChatMessage(nil), s.messages...)
}

// SimulationCode returns the current simulation markup
func (s *Session) SimulationCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulationCode
}

// Snapshot returns a copy of the whole state
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, analyzing := s.pending[ActionAudit]
	_, simulating := s.pending[ActionSimulation]

	return State{
		ID:             s.id,
		Proposal:       s.proposal,
		References:     cloneRefs(s.refs),
		Report:         cloneReport(s.report),
		Messages:       append([]model.ChatMessage(nil), s.messages...),
		SimulationCode: s.simulationCode,
		Analyzing:      analyzing,
		Simulating:     simulating,
		UpdatedAt:      s.updatedAt,
	}
}

// Reset clears all state and invalidates tickets in flight. The transcript
// restarts with the greeting.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proposal = ""
	s.refs = []model.Reference{}
	s.report = nil
	s.simulationCode = ""
	s.pending = make(map[Action]string)
	s.messages = []model.ChatMessage{s.greeting()}
	s.touch()
}

func cloneRefs(refs []model.Reference) []model.Reference {
	return append([]model.Reference{}, refs...)
}

func cloneReport(r *model.AnalysisReport) *model.AnalysisReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Claims = append(make([]model.Claim, 0, len(r.Claims)), r.Claims...)
	c.ComplianceIssues = append(make([]string, 0, len(r.ComplianceIssues)), r.ComplianceIssues...)
	c.Warnings = append([]string(nil), r.Warnings...)
	return &c
}
