// Package customer resolves the free-text customer name extracted from an
// email into a concrete customer record: backend search, hint-based ranking,
// and a debounced resolver that discards stale responses.
package customer

import (
	"context"
	"fmt"

	"github.com/petsitter-tools/visitdesk/internal/gateway"
)

// Candidate is a customer record returned by the backend search. Read-only;
// never mutated locally.
type Candidate struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Kana       string `json:"kana"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Memo       string `json:"memo"`
}

// LookupError marks a customer search failure as recoverable: the caller may
// retry by re-editing the name or re-running interpretation, and draft
// editing is never blocked by it.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("customer lookup failed: %v", e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Searcher performs customer searches through the gateway.
type Searcher struct {
	gw *gateway.Client
}

// NewSearcher creates a Searcher backed by the given gateway client.
func NewSearcher(gw *gateway.Client) *Searcher {
	return &Searcher{gw: gw}
}

// Search returns candidates matching name, ranked by the disambiguation
// hint. Zero candidates is a valid result, not an error.
func (s *Searcher) Search(ctx context.Context, name, hint string) ([]Candidate, error) {
	env, err := s.gw.Call(ctx, "searchCustomers", map[string]any{"name": name})
	if err != nil {
		return nil, &LookupError{Err: err}
	}

	var cands []Candidate
	switch {
	case env.Rows != nil:
		cands, err = gateway.DecodeRows[Candidate](env)
	default:
		var payload struct {
			Customers []Candidate `json:"customers"`
		}
		err = gateway.DecodeData(env, &payload)
		cands = payload.Customers
	}
	if err != nil {
		return nil, &LookupError{Err: err}
	}

	Rank(cands, hint)
	return cands, nil
}
