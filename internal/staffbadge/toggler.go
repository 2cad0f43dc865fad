// Package staffbadge manages staff qualification badges through the
// gateway. Toggles are optimistic: the local state flips immediately and is
// reverted if the backend rejects the change.
package staffbadge

import (
	"context"
	"sync"

	"github.com/petsitter-tools/visitdesk/internal/gateway"
	"github.com/petsitter-tools/visitdesk/internal/optimistic"
)

// Badge is one staff qualification flag.
type Badge struct {
	StaffID string `json:"staff_id"`
	Key     string `json:"key"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// Toggler holds the local badge state for the staff administration view.
type Toggler struct {
	gw *gateway.Client

	mu    sync.Mutex
	state map[badgeKey]bool
}

type badgeKey struct {
	staffID string
	key     string
}

// NewToggler creates an empty toggler.
func NewToggler(gw *gateway.Client) *Toggler {
	return &Toggler{gw: gw, state: make(map[badgeKey]bool)}
}

// Load fetches the current badge assignments for a staff member and seeds
// the local state.
func (t *Toggler) Load(ctx context.Context, staffID string) ([]Badge, error) {
	env, err := t.gw.Call(ctx, "listStaffBadges", map[string]any{"staff_id": staffID})
	if err != nil {
		return nil, err
	}
	badges, err := gateway.DecodeRows[Badge](env)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	for _, b := range badges {
		t.state[badgeKey{b.StaffID, b.Key}] = b.Enabled
	}
	t.mu.Unlock()
	return badges, nil
}

// Enabled reports the local state of one badge.
func (t *Toggler) Enabled(staffID, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state[badgeKey{staffID, key}]
}

// Toggle flips a badge optimistically and reports the resulting state. If
// the backend rejects the change the local state is rolled back and the
// error returned.
func (t *Toggler) Toggle(ctx context.Context, staffID, key string) (bool, error) {
	k := badgeKey{staffID, key}

	err := optimistic.Run(ctx, optimistic.Command[bool]{
		Apply: func() bool {
			t.mu.Lock()
			defer t.mu.Unlock()
			prev := t.state[k]
			t.state[k] = !prev
			return prev
		},
		Commit: func(ctx context.Context) error {
			t.mu.Lock()
			enabled := t.state[k]
			t.mu.Unlock()
			_, err := t.gw.Call(ctx, "setStaffBadge", map[string]any{
				"staff_id": staffID,
				"badge":    key,
				"enabled":  enabled,
			})
			return err
		},
		Rollback: func(prev bool) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.state[k] = prev
		},
	})

	return t.Enabled(staffID, key), err
}
