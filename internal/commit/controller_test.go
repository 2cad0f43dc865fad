package commit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petsitter-tools/visitdesk/internal/draft"
	"github.com/petsitter-tools/visitdesk/internal/gateway"
)

func boundDraft() *draft.Draft {
	d := draft.New([]draft.VisitCandidate{
		{RowNum: 1, Date: "2026-01-05", StartTime: "09:00", Course: "30min", VisitType: draft.VisitSitting},
		{RowNum: 2, Date: "2026-01-06", StartTime: "09:00", Course: "30min", VisitType: draft.VisitSitting},
	}, nil)
	d.BindCustomer("c-1")
	return d
}

// commitServer counts calls and answers every commit with the given body.
func commitServer(t *testing.T, body string) (*Controller, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	gw := gateway.New(gateway.Options{Endpoint: srv.URL, Token: "t"})
	return NewController(gw, "email_interpret"), &calls
}

const allOKBody = `{"ok":true,"committed":true,"results":[{"row":1,"status":"ok"},{"row":2,"status":"ok"}]}`

func TestPrepare_RejectsUnresolvedCustomerWithoutNetwork(t *testing.T) {
	c, calls := commitServer(t, allOKBody)
	d := draft.New([]draft.VisitCandidate{
		{RowNum: 1, Date: "2026-01-05", StartTime: "09:00"},
	}, nil)

	_, err := c.Prepare(d)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "customer not finalized", ve.Reason)
	assert.Zero(t, calls.Load())
}

func TestPrepare_RejectsEmptyDraft(t *testing.T) {
	c, _ := commitServer(t, allOKBody)
	_, err := c.Prepare(draft.New(nil, nil))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestPrepare_RejectsHardError(t *testing.T) {
	c, calls := commitServer(t, allOKBody)
	d := draft.New([]draft.VisitCandidate{
		{RowNum: 1, Date: "2026-01-01", StartTime: "09:00"},
		{RowNum: 2, Date: "2026-01-01", StartTime: "09:00"},
	}, nil)
	d.BindCustomer("c-1")

	_, err := c.Prepare(d)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, draft.CodeDuplicateStartTime)
	assert.Zero(t, calls.Load())
}

func TestCommit_SecondIdenticalSubmissionRejectedLocally(t *testing.T) {
	c, calls := commitServer(t, allOKBody)
	d := boundDraft()

	p, err := c.Prepare(d)
	require.NoError(t, err)
	res, err := c.Submit(context.Background(), p)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, int32(1), calls.Load())

	_, err = c.Prepare(d)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "duplicate submission")
	assert.Equal(t, int32(1), calls.Load(), "no second network call")
}

func TestCommit_RetryAfterFailureReusesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := NewController(gateway.New(gateway.Options{Endpoint: srv.URL, Token: "t"}), "email_interpret")
	d := boundDraft()

	p1, err := c.Prepare(d)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), p1)
	var pe *gateway.ProtocolError
	require.ErrorAs(t, err, &pe)

	p2, err := c.Prepare(d)
	require.NoError(t, err)
	assert.Equal(t, p1.RequestID, p2.RequestID, "unchanged payload retries with the same token")
	assert.Equal(t, p1.ContentHash, p2.ContentHash)
}

func TestCommit_EditAfterFailureMintsNewToken(t *testing.T) {
	c, _ := commitServer(t, allOKBody)
	d := boundDraft()

	p1, err := c.Prepare(d)
	require.NoError(t, err)

	require.NoError(t, d.EditField(0, draft.FieldMemo, "鍵の場所が変わりました"))

	p2, err := c.Prepare(d)
	require.NoError(t, err)
	assert.NotEqual(t, p1.ContentHash, p2.ContentHash)
	assert.NotEqual(t, p1.RequestID, p2.RequestID)
}

func TestSubmit_SendsIdempotencyFieldsAndSource(t *testing.T) {
	var params map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		params = req.Params
		w.Write([]byte(allOKBody)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	c := NewController(gateway.New(gateway.Options{Endpoint: srv.URL, Token: "t"}), "email_interpret")

	p, err := c.Prepare(boundDraft())
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, p.RequestID, params["request_id"])
	assert.Equal(t, p.ContentHash, params["content_hash"])
	assert.Equal(t, "email_interpret", params["source"])
	assert.Len(t, params["visits"], 2)
}

func TestSubmit_MixedRowResults(t *testing.T) {
	body := `{"ok":true,"committed":false,"results":[
		{"row":1,"status":"ok"},
		{"row":2,"status":"failed","reason":"date outside allowed range"}
	]}`
	c, _ := commitServer(t, body)
	d := boundDraft()

	p, err := c.Prepare(d)
	require.NoError(t, err)
	res, err := c.Submit(context.Background(), p)
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.Len(t, res.PerItem, 2)
	assert.Equal(t, RowOK, res.PerItem[0].Status)
	assert.Equal(t, RowFailed, res.PerItem[1].Status)
	assert.Equal(t, "date outside allowed range", res.PerItem[1].Reason)

	// Overall failure must not record the digest as committed.
	p2, err := c.Prepare(d)
	require.NoError(t, err)
	assert.Equal(t, p.RequestID, p2.RequestID)
}

func TestSubmit_LogicalRejectionLeavesStateUntouched(t *testing.T) {
	c, _ := commitServer(t, `{"ok":false,"error":"identity token expired"}`)
	d := boundDraft()

	p, err := c.Prepare(d)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), p)
	var le *gateway.LogicalError
	require.ErrorAs(t, err, &le)

	p2, err := c.Prepare(d)
	require.NoError(t, err)
	assert.Equal(t, p.RequestID, p2.RequestID)
}

func TestReset_AllowsResubmittingSamePayload(t *testing.T) {
	c, calls := commitServer(t, allOKBody)
	d := boundDraft()

	p, err := c.Prepare(d)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), p)
	require.NoError(t, err)

	c.Reset()

	p2, err := c.Prepare(d)
	require.NoError(t, err)
	assert.NotEqual(t, p.RequestID, p2.RequestID)
	_, err = c.Submit(context.Background(), p2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFingerprint_StableAndContentSensitive(t *testing.T) {
	visits := boundDraft().Visits

	h1, err := Fingerprint(visits)
	require.NoError(t, err)
	h2, err := Fingerprint(visits)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	edited := make([]draft.VisitCandidate, len(visits))
	copy(edited, visits)
	edited[0].Memo = "changed"
	h3, err := Fingerprint(edited)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
