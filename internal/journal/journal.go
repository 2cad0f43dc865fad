// Package journal keeps a local audit trail of commit attempts: one JSON
// document per attempt, named by customer and timestamp. Purely advisory;
// the backend remains the source of truth.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/petsitter-tools/visitdesk/internal/commit"
	"github.com/petsitter-tools/visitdesk/internal/draft"
)

// unsafeChars matches characters that are unsafe in filenames.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\p{Hiragana}\p{Katakana}\p{Han}-]`)

func sanitizeName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Entry records one commit attempt.
type Entry struct {
	CustomerID   string                 `json:"customer_id"`
	CustomerName string                 `json:"customer_name"`
	RequestID    string                 `json:"request_id"`
	ContentHash  string                 `json:"content_hash"`
	Source       string                 `json:"source"`
	Committed    bool                   `json:"committed"`
	Error        string                 `json:"error,omitempty"`
	Visits       []draft.VisitCandidate `json:"visits"`
	Rows         []commit.RowResult     `json:"rows,omitempty"`
	AttemptedAt  time.Time              `json:"attempted_at"`
}

// Filename returns the journal filename for an entry.
func Filename(customerName string, ts time.Time) string {
	return fmt.Sprintf("%s-%s.json", sanitizeName(customerName), ts.Format("20060102-150405"))
}

// Write serializes an Entry and writes it to dir.
func Write(dir string, e *Entry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}

	name := Filename(e.CustomerName, e.AttemptedAt)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal journal entry: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write journal entry: %w", err)
	}

	return path, nil
}
