// Package commit implements the idempotent bulk-create step of the
// registration workflow: precondition checks, content fingerprinting,
// request-token management across retries, and per-row result tracking.
package commit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/petsitter-tools/visitdesk/internal/draft"
	"github.com/petsitter-tools/visitdesk/internal/gateway"
)

// ValidationError is a local precondition failure. It never reaches the
// network and is always resolved by further user input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// RowStatus is the backend's verdict for one submitted visit.
type RowStatus string

const (
	RowOK      RowStatus = "ok"
	RowFailed  RowStatus = "failed"
	RowSkipped RowStatus = "skipped"
)

// RowResult is the per-visit outcome of a commit.
type RowResult struct {
	Row    int       `json:"row"`
	Status RowStatus `json:"status"`
	Reason string    `json:"reason,omitempty"`
}

// Result is the outcome of one submitted commit. Success reflects the
// backend's explicit flag, never the HTTP status. PerItem lists every row,
// successes and failures alike.
type Result struct {
	RequestID   string
	ContentHash string
	Success     bool
	PerItem     []RowResult
}

// Pending is a prepared, not-yet-submitted commit. The caller is expected to
// obtain interactive confirmation between Prepare and Submit.
type Pending struct {
	RequestID   string
	ContentHash string
	Visits      []draft.VisitCandidate
}

// Controller owns the idempotency state of one registration cycle: the
// digest of the last attempted payload, its request token, and the digest of
// the last payload the backend accepted.
type Controller struct {
	gw     *gateway.Client
	source string

	mu            sync.Mutex
	lastAttempted string
	lastCommitted string
	token         string
}

// NewController creates a commit controller. source labels where the visits
// came from in the backend's audit trail (e.g. "email_interpret").
func NewController(gw *gateway.Client, source string) *Controller {
	return &Controller{gw: gw, source: source}
}

// Prepare checks every commit precondition and returns the payload to
// submit. Rejections are *ValidationError values:
//
//   - empty visit list
//   - any visit without a bound customer ("customer not finalized")
//   - an active hard error
//   - a payload identical to the last successfully committed one
//
// The request token is minted fresh when the payload differs from the last
// attempted one, and reused otherwise so the backend can deduplicate retries
// of a failed attempt.
func (c *Controller) Prepare(d *draft.Draft) (*Pending, error) {
	if len(d.Visits) == 0 {
		return nil, &ValidationError{Reason: "nothing to commit: the draft has no visits"}
	}
	if !d.CustomerBound() {
		return nil, &ValidationError{Reason: "customer not finalized"}
	}
	if d.HasHardErrors() {
		return nil, &ValidationError{Reason: fmt.Sprintf("draft has a hard error (%s)", d.HardErrors[0].Code)}
	}

	digest, err := Fingerprint(d.Visits)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if digest == c.lastCommitted && c.lastCommitted != "" {
		return nil, &ValidationError{Reason: "duplicate submission: these visits were already committed"}
	}
	if digest != c.lastAttempted {
		c.token = uuid.NewString()
		c.lastAttempted = digest
	}

	visits := make([]draft.VisitCandidate, len(d.Visits))
	copy(visits, d.Visits)

	return &Pending{RequestID: c.token, ContentHash: digest, Visits: visits}, nil
}

// commitResponse is the object-shaped payload of a commitVisits call. The
// backend processes rows independently; committed reports the overall
// verdict and results carries every row's outcome.
type commitResponse struct {
	Committed bool        `json:"committed"`
	Results   []RowResult `json:"results"`
}

// Submit sends the prepared payload. Transport, protocol, and logical errors
// are returned unchanged and leave the idempotency state untouched, so a
// retry reuses the same request token. A decoded response always yields a
// Result, including when the backend declined every row.
func (c *Controller) Submit(ctx context.Context, p *Pending) (*Result, error) {
	env, err := c.gw.Call(ctx, "commitVisits", map[string]any{
		"request_id":   p.RequestID,
		"content_hash": p.ContentHash,
		"visits":       p.Visits,
		"source":       c.source,
	})
	if err != nil {
		return nil, err
	}

	var resp commitResponse
	if err := gateway.DecodeData(env, &resp); err != nil {
		return nil, err
	}

	res := &Result{
		RequestID:   p.RequestID,
		ContentHash: p.ContentHash,
		Success:     resp.Committed,
		PerItem:     resp.Results,
	}

	if res.Success {
		c.mu.Lock()
		c.lastCommitted = p.ContentHash
		c.mu.Unlock()
	}

	slog.Info("commit submitted",
		"request_id", p.RequestID,
		"rows", len(p.Visits),
		"committed", res.Success)

	return res, nil
}

// Reset clears all idempotency state. Called when a new interpretation cycle
// starts and the previous commit record is discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAttempted = ""
	c.lastCommitted = ""
	c.token = ""
}
