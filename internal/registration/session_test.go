package registration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petsitter-tools/visitdesk/internal/commit"
	"github.com/petsitter-tools/visitdesk/internal/customer"
	"github.com/petsitter-tools/visitdesk/internal/draft"
	"github.com/petsitter-tools/visitdesk/internal/interpret"
)

type fakeInterpreter struct {
	draft *draft.Draft
	err   error
}

func (f *fakeInterpreter) Interpret(ctx context.Context, emailText string, now time.Time, tz string, cons interpret.Constraints) (*draft.Draft, error) {
	return f.draft, f.err
}

type fakeCommitter struct {
	mu        sync.Mutex
	resets    int
	submits   int
	prepErr   error
	submitErr error
	result    *commit.Result
	release   chan struct{} // when set, Submit blocks until closed
}

func (f *fakeCommitter) Prepare(d *draft.Draft) (*commit.Pending, error) {
	if f.prepErr != nil {
		return nil, f.prepErr
	}
	hash, err := commit.Fingerprint(d.Visits)
	if err != nil {
		return nil, err
	}
	return &commit.Pending{RequestID: "req-1", ContentHash: hash, Visits: d.Visits}, nil
}

func (f *fakeCommitter) Submit(ctx context.Context, p *commit.Pending) (*commit.Result, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.submits++
	f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &commit.Result{Success: true, RequestID: p.RequestID, ContentHash: p.ContentHash}, nil
}

func (f *fakeCommitter) Reset() {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

func interpretedDraft() *draft.Draft {
	return draft.New([]draft.VisitCandidate{
		{RowNum: 1, Date: "2026-01-05", StartTime: "09:00", CustomerName: "佐藤花子"},
		{RowNum: 2, Date: "2026-01-06", StartTime: "10:00", CustomerName: "佐藤花子"},
	}, nil)
}

func startedSession(t *testing.T) (*Session, *fakeCommitter) {
	t.Helper()
	fc := &fakeCommitter{}
	s := NewSession(&fakeInterpreter{draft: interpretedDraft()}, fc)
	_, err := s.Start(context.Background(), "email", time.Now(), "Asia/Tokyo", interpret.Constraints{})
	require.NoError(t, err)
	return s, fc
}

func TestStart_DiscardsPreviousCycle(t *testing.T) {
	s, fc := startedSession(t)
	s.Bind(customer.Candidate{CustomerID: "c-1"})

	_, err := s.Start(context.Background(), "another email", time.Now(), "Asia/Tokyo", interpret.Constraints{})
	require.NoError(t, err)

	assert.Nil(t, s.Customer())
	assert.Equal(t, 2, fc.resets)
}

func TestEdits_LockedUntilCustomerBound(t *testing.T) {
	s, _ := startedSession(t)

	assert.ErrorIs(t, s.Duplicate(0), ErrEditLocked)
	assert.ErrorIs(t, s.Delete(0), ErrEditLocked)
	assert.ErrorIs(t, s.EditField(0, draft.FieldMemo, "x"), ErrEditLocked)

	s.Bind(customer.Candidate{CustomerID: "c-1"})

	assert.NoError(t, s.EditField(0, draft.FieldMemo, "x"))
	assert.NoError(t, s.Duplicate(0))
	assert.NoError(t, s.Delete(1))
}

func TestBind_WritesCustomerOntoEveryVisit(t *testing.T) {
	s, _ := startedSession(t)

	s.Bind(customer.Candidate{CustomerID: "c-7", Name: "佐藤花子"})

	require.NotNil(t, s.Customer())
	assert.Equal(t, "佐藤花子", s.Customer().Name)
	for _, v := range s.Draft().Visits {
		assert.Equal(t, "c-7", v.CustomerID)
	}
}

func TestApplySearchResult_AutoBindsSingleCandidate(t *testing.T) {
	s, _ := startedSession(t)

	bound := s.ApplySearchResult(customer.Result{
		Name:       "佐藤花子",
		Candidates: []customer.Candidate{{CustomerID: "c-1", Name: "佐藤花子"}},
	})

	assert.True(t, bound)
	require.NotNil(t, s.Customer())
	assert.Equal(t, "c-1", s.Customer().CustomerID)
}

func TestApplySearchResult_NeverRebinds(t *testing.T) {
	s, _ := startedSession(t)
	s.Bind(customer.Candidate{CustomerID: "c-1"})

	bound := s.ApplySearchResult(customer.Result{
		Candidates: []customer.Candidate{{CustomerID: "c-2"}},
	})

	assert.False(t, bound)
	assert.Equal(t, "c-1", s.Customer().CustomerID)
}

func TestApplySearchResult_MultipleCandidatesNeedUserChoice(t *testing.T) {
	s, _ := startedSession(t)

	bound := s.ApplySearchResult(customer.Result{
		Candidates: []customer.Candidate{{CustomerID: "c-1"}, {CustomerID: "c-2"}},
	})

	assert.False(t, bound)
	assert.Nil(t, s.Customer())
}

func TestApplySearchResult_ErrorDoesNotLockEditing(t *testing.T) {
	s, _ := startedSession(t)
	s.Bind(customer.Candidate{CustomerID: "c-1"})

	bound := s.ApplySearchResult(customer.Result{Err: &customer.LookupError{}})

	assert.False(t, bound)
	assert.NoError(t, s.EditField(0, draft.FieldMemo, "still editable"))
}

func TestCommit_ConfirmDeclinedAbortsBeforeSubmit(t *testing.T) {
	s, fc := startedSession(t)
	s.Bind(customer.Candidate{CustomerID: "c-1"})

	_, err := s.Commit(context.Background(), func(p *commit.Pending) bool { return false })

	var ve *commit.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "commit cancelled", ve.Reason)
	assert.Zero(t, fc.submits)
}

func TestCommit_BusyFlagRejectsDoubleInvocation(t *testing.T) {
	s, fc := startedSession(t)
	s.Bind(customer.Candidate{CustomerID: "c-1"})
	fc.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Commit(context.Background(), nil)
		done <- err
	}()

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.busy
	}, time.Second, time.Millisecond)

	_, err := s.Commit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(fc.release)
	require.NoError(t, <-done)
}

func TestCommit_NoActiveDraft(t *testing.T) {
	s := NewSession(&fakeInterpreter{}, &fakeCommitter{})
	_, err := s.Commit(context.Background(), nil)
	var ve *commit.ValidationError
	require.ErrorAs(t, err, &ve)
}
