package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess      = 0 // Command completed
	ExitCommitFailed = 1 // The backend declined the commit (fully or per-row)
	ExitError        = 2 // Configuration or runtime error
)

// CommitFailedError indicates the workflow ran to completion but the backend
// did not accept every submitted visit.
type CommitFailedError struct {
	Message string
}

func (e *CommitFailedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var commitErr *CommitFailedError
		if errors.As(err, &commitErr) {
			os.Exit(ExitCommitFailed)
		}

		os.Exit(ExitError)
	}
}
