// Package optimistic provides the apply/commit/rollback pattern used for
// remote toggles: flip the local state immediately, issue the remote
// mutation, and replay the previous snapshot if it fails.
package optimistic

import "context"

// Command describes one optimistic state transition. Apply performs the
// tentative local change and returns the snapshot Rollback needs to undo it.
type Command[S any] struct {
	Apply    func() S
	Commit   func(ctx context.Context) error
	Rollback func(prev S)
}

// Run executes the command. On commit failure the rollback runs and the
// commit error is returned.
func Run[S any](ctx context.Context, cmd Command[S]) error {
	prev := cmd.Apply()
	if err := cmd.Commit(ctx); err != nil {
		cmd.Rollback(prev)
		return err
	}
	return nil
}
