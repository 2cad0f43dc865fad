package customer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is how long the resolver waits after the last name change
// before issuing a search.
const DefaultDebounce = 400 * time.Millisecond

// SearchFunc is the search dependency of the Resolver.
type SearchFunc func(ctx context.Context, name, hint string) ([]Candidate, error)

// Result is delivered to the resolver's callback for the newest completed
// search. Err is a *LookupError when the search failed.
type Result struct {
	Name       string
	Candidates []Candidate
	Err        error
}

// Resolver debounces customer searches triggered by name edits. Every issued
// search carries a sequence number; a response whose sequence is not the
// latest issued is discarded, so a slow early search can never overwrite the
// results of a newer one.
type Resolver struct {
	search   SearchFunc
	debounce time.Duration
	onResult func(Result)

	mu      sync.Mutex
	timer   *time.Timer
	lastSeq uint64

	// deliverMu serializes onResult calls so callers observe the same
	// one-at-a-time ordering a UI event loop would give them.
	deliverMu sync.Mutex
}

// NewResolver creates a resolver. A non-positive debounce falls back to
// DefaultDebounce. onResult is invoked from a background goroutine, one call
// at a time.
func NewResolver(search SearchFunc, debounce time.Duration, onResult func(Result)) *Resolver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Resolver{search: search, debounce: debounce, onResult: onResult}
}

// NameChanged reschedules the pending search for the given name and hint.
// Each call cancels any not-yet-fired timer.
func (r *Resolver) NameChanged(ctx context.Context, name, hint string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		r.issue(ctx, name, hint)
	})
}

// Stop cancels any pending search. In-flight requests are not interrupted;
// their responses are discarded by the sequence guard on arrival.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeq++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) issue(ctx context.Context, name, hint string) {
	r.mu.Lock()
	r.lastSeq++
	seq := r.lastSeq
	r.mu.Unlock()

	cands, err := r.search(ctx, name, hint)

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.mu.Lock()
	stale := seq != r.lastSeq
	r.mu.Unlock()
	if stale {
		slog.Debug("discarding stale customer search", "name", name, "seq", seq)
		return
	}

	r.onResult(Result{Name: name, Candidates: cands, Err: err})
}
