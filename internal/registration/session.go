// Package registration ties the workflow together: one Session owns the
// active draft, the customer binding, and the commit state for a single
// interpretation cycle.
package registration

import (
	"context"
	"sync"
	"time"

	"github.com/petsitter-tools/visitdesk/internal/commit"
	"github.com/petsitter-tools/visitdesk/internal/customer"
	"github.com/petsitter-tools/visitdesk/internal/draft"
	"github.com/petsitter-tools/visitdesk/internal/interpret"
)

// Interpreter produces a draft from free text. Satisfied by
// *interpret.Client.
type Interpreter interface {
	Interpret(ctx context.Context, emailText string, now time.Time, tz string, cons interpret.Constraints) (*draft.Draft, error)
}

// Committer manages idempotent submission. Satisfied by *commit.Controller.
type Committer interface {
	Prepare(d *draft.Draft) (*commit.Pending, error)
	Submit(ctx context.Context, p *commit.Pending) (*commit.Result, error)
	Reset()
}

// ErrEditLocked is returned for draft mutations attempted before a customer
// is bound. Editing stays locked until resolution completes so edits cannot
// be silently orphaned.
var ErrEditLocked = &commit.ValidationError{Reason: "editing is locked until the customer is resolved"}

// ErrBusy is returned when a commit is invoked while another one is still
// in flight.
var ErrBusy = &commit.ValidationError{Reason: "a commit is already in progress"}

// Session is the state of one registration cycle. Methods are safe for
// concurrent use, though in practice calls arrive sequentially from the UI.
type Session struct {
	interp    Interpreter
	committer Committer

	mu       sync.Mutex
	draft    *draft.Draft
	customer *customer.Candidate
	busy     bool
}

// NewSession creates an empty session.
func NewSession(interp Interpreter, committer Committer) *Session {
	return &Session{interp: interp, committer: committer}
}

// Start runs interpretation and makes the produced draft the active one.
// Any previous draft and commit record are discarded first.
func (s *Session) Start(ctx context.Context, emailText string, now time.Time, tz string, cons interpret.Constraints) (*draft.Draft, error) {
	d, err := s.interp.Interpret(ctx, emailText, now, tz, cons)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
	s.customer = nil
	s.committer.Reset()
	return d, nil
}

// Draft returns the active draft, or nil before the first interpretation.
func (s *Session) Draft() *draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Customer returns the bound customer, or nil.
func (s *Session) Customer() *customer.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// Bind makes cand the draft's customer and writes its id onto every visit.
func (s *Session) Bind(cand customer.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return
	}
	c := cand
	s.customer = &c
	s.draft.BindCustomer(cand.CustomerID)
}

// ApplySearchResult feeds a completed customer search into the session,
// auto-binding when exactly one candidate came back and nothing is bound
// yet. It reports whether a binding happened.
func (s *Session) ApplySearchResult(res customer.Result) bool {
	s.mu.Lock()
	bound := s.customer != nil
	s.mu.Unlock()

	if res.Err != nil {
		return false
	}
	cand, ok := customer.AutoBind(res.Candidates, bound)
	if !ok {
		return false
	}
	s.Bind(cand)
	return true
}

// Duplicate copies the visit at index. Locked until a customer is bound.
func (s *Session) Duplicate(index int) error {
	return s.edit(func(d *draft.Draft) error { return d.Duplicate(index) })
}

// Delete removes the visit at index. Locked until a customer is bound.
func (s *Session) Delete(index int) error {
	return s.edit(func(d *draft.Draft) error { return d.Delete(index) })
}

// EditField mutates one field of the visit at index. Locked until a
// customer is bound.
func (s *Session) EditField(index int, field draft.Field, value string) error {
	return s.edit(func(d *draft.Draft) error { return d.EditField(index, field, value) })
}

func (s *Session) edit(mutate func(*draft.Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || !s.draft.CustomerBound() {
		return ErrEditLocked
	}
	return mutate(s.draft)
}

// Commit prepares the active draft, asks confirm for interactive approval,
// and submits. confirm receiving false aborts with no network call and no
// state change. Double invocation is rejected with ErrBusy.
func (s *Session) Commit(ctx context.Context, confirm func(*commit.Pending) bool) (*commit.Result, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	d := s.draft
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if d == nil {
		return nil, &commit.ValidationError{Reason: "nothing to commit: no active draft"}
	}

	p, err := s.committer.Prepare(d)
	if err != nil {
		return nil, err
	}
	if confirm != nil && !confirm(p) {
		return nil, &commit.ValidationError{Reason: "commit cancelled"}
	}
	return s.committer.Submit(ctx, p)
}
