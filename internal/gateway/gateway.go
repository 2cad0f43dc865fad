// Package gateway implements the JSON-over-HTTP client for the portal
// backend. Every remote operation goes through the single configured
// endpoint; responses are decoded once, at this boundary, into a canonical
// envelope so callers never probe loosely shaped payloads themselves.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
)

const defaultTimeout = 30 * time.Second

// Client talks to the backend endpoint. It is safe for concurrent use.
type Client struct {
	endpoint string
	token    string
	hc       *http.Client
}

// Options configures a Client.
type Options struct {
	// Endpoint is the backend URL all operations are POSTed to.
	Endpoint string
	// Token is the bearer identity token included in every request body.
	Token string
	// HTTPClient overrides the default HTTP client (used in tests).
	HTTPClient *http.Client
}

// New creates a gateway client for the given endpoint and identity token.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		hc:       hc,
	}
}

// Envelope is the canonical decoded shape of a backend response. The backend
// sometimes returns a bare JSON array and sometimes an object with named
// fields; both are normalized here.
type Envelope struct {
	// Rows is set when the backend returned a bare array.
	Rows []map[string]any
	// Data holds the named fields of an object response, minus the
	// ok/error discriminator keys.
	Data map[string]any
}

// request is the wire shape of every gateway call. The request identifier is
// freshly generated per call; operation-level idempotency tokens travel
// inside Params.
type request struct {
	Op        string         `json:"op"`
	RequestID string         `json:"request_id"`
	Token     string         `json:"token"`
	Params    map[string]any `json:"params,omitempty"`
}

// Call executes the named backend operation. Params may be nil. The returned
// error is always one of *TransportError, *ProtocolError, or *LogicalError.
func (c *Client) Call(ctx context.Context, op string, params map[string]any) (*Envelope, error) {
	body, err := json.Marshal(request{
		Op:        op,
		RequestID: uuid.NewString(),
		Token:     c.token,
		Params:    params,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("gateway call", "op", op)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &ProtocolError{Op: op, Status: res.StatusCode, Detail: errorDetail(raw)}
	}

	env, err := decodeEnvelope(op, res.StatusCode, raw)
	if err != nil {
		return nil, err
	}
	return env, nil
}

// decodeEnvelope normalizes the two response shapes the backend produces. A
// 2xx object response with ok:false or success:false is a LogicalError even
// though the HTTP layer reported success.
func decodeEnvelope(op string, status int, raw []byte) (*Envelope, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ProtocolError{Op: op, Status: status, Detail: "response body is not JSON"}
	}

	switch v := doc.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &ProtocolError{Op: op, Status: status, Detail: "array response contains a non-object element"}
			}
			rows = append(rows, m)
		}
		return &Envelope{Rows: rows}, nil
	case map[string]any:
		if failed, msg, code := failureFlag(v); failed {
			return nil, &LogicalError{Op: op, Message: msg, Code: code}
		}
		data := make(map[string]any, len(v))
		for k, val := range v {
			switch k {
			case "ok", "success", "error", "error_code":
				continue
			}
			data[k] = val
		}
		return &Envelope{Data: data}, nil
	default:
		return nil, &ProtocolError{Op: op, Status: status, Detail: "response is neither an object nor an array"}
	}
}

// failureFlag reports whether the object response carries an explicit
// failure discriminator.
func failureFlag(obj map[string]any) (failed bool, msg, code string) {
	for _, key := range []string{"ok", "success"} {
		if v, present := obj[key]; present {
			if b, isBool := v.(bool); isBool && !b {
				failed = true
			}
		}
	}
	if !failed {
		return false, "", ""
	}
	if s, ok := obj["error"].(string); ok {
		msg = s
	}
	if msg == "" {
		msg = "unspecified backend error"
	}
	if s, ok := obj["error_code"].(string); ok {
		code = s
	}
	return true, msg, code
}

// errorDetail pulls a human-readable message out of an error body, if the
// backend supplied one.
func errorDetail(raw []byte) string {
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

// DecodeRows maps array-shaped envelope rows onto a slice of typed records.
func DecodeRows[T any](env *Envelope) ([]T, error) {
	out := make([]T, 0, len(env.Rows))
	for i, row := range env.Rows {
		var rec T
		if err := decodeLoose(row, &rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeData maps the named fields of an object-shaped envelope onto target.
func DecodeData[T any](env *Envelope, target *T) error {
	return decodeLoose(env.Data, target)
}

// decodeLoose tolerates the backend's loose typing (numbers as strings,
// missing keys) while still mapping onto one canonical struct shape.
func decodeLoose(input any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
