package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/petsitter-tools/visitdesk/internal/draft"
)

// canonicalPayload is the exact document that gets fingerprinted and
// submitted. Field order is fixed by the struct definitions, which keeps the
// serialized form stable for identical drafts.
type canonicalPayload struct {
	Visits []draft.VisitCandidate `json:"visits"`
}

// Fingerprint returns the hex-encoded SHA-256 digest of the canonical visits
// payload. Two drafts with identical visit content always produce the same
// digest.
func Fingerprint(visits []draft.VisitCandidate) (string, error) {
	data, err := json.Marshal(canonicalPayload{Visits: visits})
	if err != nil {
		return "", fmt.Errorf("canonicalizing visits: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
