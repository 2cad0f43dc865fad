// Package interpret implements the client for the natural-language
// interpretation service that turns a customer email into a structured
// visit draft.
package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/petsitter-tools/visitdesk/internal/draft"
)

const defaultTimeout = 90 * time.Second

// InterpretationError is any failure to obtain a usable draft from the
// interpreter: transport problems, non-2xx statuses, explicit failure flags,
// and payloads that do not match the draft schema.
type InterpretationError struct {
	Detail string
	Err    error
}

func (e *InterpretationError) Error() string {
	return fmt.Sprintf("interpretation failed: %s", e.Detail)
}

func (e *InterpretationError) Unwrap() error { return e.Err }

// Constraints bound what the interpreter may schedule. For a non-admin
// caller StaffID and StaffName carry the caller's own identity; an admin may
// leave both blank to defer staff assignment to the backend's primary
// assigned staff rule.
type Constraints struct {
	LatestEndTime         string `json:"latest_end_time"`
	SlideLimitUnspecified int    `json:"slide_limit_unspecified"`
	SlotMinutes           int    `json:"slot_minutes"`
	StaffID               string `json:"staff_id,omitempty"`
	StaffName             string `json:"staff_name,omitempty"`
}

// Client talks to the interpreter endpoint. Safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	hc       *http.Client
}

// Options configures a Client.
type Options struct {
	Endpoint   string
	Token      string
	HTTPClient *http.Client
}

// New creates an interpreter client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{endpoint: opts.Endpoint, token: opts.Token, hc: hc}
}

type interpretRequest struct {
	Op          string      `json:"op"`
	EmailText   string      `json:"email_text"`
	NowISO      string      `json:"now_iso"`
	TZ          string      `json:"tz"`
	Constraints Constraints `json:"constraints"`
}

type interpretResponse struct {
	OK    bool            `json:"ok"`
	Draft json.RawMessage `json:"draft"`
	Error string          `json:"error"`
}

type draftPayload struct {
	Visits   []draft.VisitCandidate `json:"visits"`
	Warnings []draft.Warning        `json:"warnings"`
}

// Interpret sends the email text to the interpreter and returns the decoded
// draft. The request is a pure request/response exchange; no shared state is
// touched.
func (c *Client) Interpret(ctx context.Context, emailText string, now time.Time, tz string, cons Constraints) (*draft.Draft, error) {
	body, err := json.Marshal(interpretRequest{
		Op:          "interpret",
		EmailText:   emailText,
		NowISO:      now.Format(time.RFC3339),
		TZ:          tz,
		Constraints: cons,
	})
	if err != nil {
		return nil, &InterpretationError{Detail: fmt.Sprintf("encoding request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &InterpretationError{Detail: fmt.Sprintf("building request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	slog.Debug("interpret request", "bytes", len(emailText), "tz", tz)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, &InterpretationError{Detail: err.Error(), Err: err}
	}
	defer res.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &InterpretationError{Detail: err.Error(), Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail := bodyDetail(raw)
		if detail == "" {
			detail = fmt.Sprintf("HTTP status %d", res.StatusCode)
		}
		return nil, &InterpretationError{Detail: detail}
	}

	var ir interpretResponse
	if err := json.Unmarshal(raw, &ir); err != nil {
		return nil, &InterpretationError{Detail: "response body is not JSON", Err: err}
	}
	if !ir.OK || len(ir.Draft) == 0 {
		detail := ir.Error
		if detail == "" {
			detail = "interpreter returned no draft"
		}
		return nil, &InterpretationError{Detail: detail}
	}

	if errs := validateDraftPayload(ir.Draft); len(errs) > 0 {
		return nil, &InterpretationError{Detail: "draft payload rejected by schema: " + strings.Join(errs, "; ")}
	}

	var payload draftPayload
	if err := json.Unmarshal(ir.Draft, &payload); err != nil {
		return nil, &InterpretationError{Detail: fmt.Sprintf("decoding draft: %v", err), Err: err}
	}
	normalize(payload.Visits)

	return draft.New(payload.Visits, payload.Warnings), nil
}

// normalize fills in the fields the interpreter is allowed to omit: row
// numbers become 1-based ordinals and the time hint defaults to unspecified.
func normalize(visits []draft.VisitCandidate) {
	for i := range visits {
		if visits[i].RowNum == 0 {
			visits[i].RowNum = i + 1
		}
		if visits[i].TimeHint == "" {
			visits[i].TimeHint = draft.TimeUnspecified
		}
	}
}

// bodyDetail extracts a human-readable message from an error body, if any.
func bodyDetail(raw []byte) string {
	var probe struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.Error != "" {
		return probe.Error
	}
	return probe.Message
}
