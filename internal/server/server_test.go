package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema_reconciler/internal/reconcile"
	"schema_reconciler/internal/revision"
)

type fakeService struct {
	status     reconcile.Status
	diff       reconcile.DiffReport
	summary    reconcile.Summary
	err        error
	reconciled int
}

func (f *fakeService) Status(context.Context) (reconcile.Status, error) {
	return f.status, f.err
}

func (f *fakeService) Diff(context.Context) (reconcile.DiffReport, error) {
	return f.diff, f.err
}

func (f *fakeService) Reconcile(context.Context) (reconcile.Summary, error) {
	f.reconciled++
	return f.summary, f.err
}

func testServer(svc Service) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httptest.NewServer(New(svc, logger).Handler())
}

func TestHealthz(t *testing.T) {
	ts := testServer(&fakeService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpoint(t *testing.T) {
	head := int64(3)
	svc := &fakeService{status: reconcile.Status{
		Provider:      "postgres",
		RevisionTable: true,
		Head:          &head,
		Applied:       []int64{1, 2},
		Pending:       []int64{3},
	}}
	ts := testServer(svc)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got reconcile.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, svc.status, got)
}

func TestDiffEndpoint(t *testing.T) {
	svc := &fakeService{diff: reconcile.DiffReport{
		Drift:      true,
		Summary:    "Table users: columns missing from database: email",
		Statements: []string{`ALTER TABLE "users" ADD COLUMN "email" text;`},
	}}
	ts := testServer(svc)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/diff")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got reconcile.DiffReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.Drift)
	assert.Len(t, got.Statements, 1)
}

func TestReconcileEndpoint(t *testing.T) {
	svc := &fakeService{summary: reconcile.Summary{
		Upgraded: []revision.Revision{{Version: 2, Name: "add_email"}},
	}}
	ts := testServer(svc)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/reconcile", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, svc.reconciled)

	var got reconcile.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Upgraded, 1)
	assert.Equal(t, int64(2), got.Upgraded[0].Version)
}

func TestReconcileRequiresPost(t *testing.T) {
	ts := testServer(&fakeService{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/reconcile")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServiceErrorsReturn500(t *testing.T) {
	svc := &fakeService{err: errors.New("connection refused")}
	ts := testServer(svc)
	defer ts.Close()

	for _, ep := range []string{"/api/status", "/api/diff"} {
		resp, err := http.Get(ts.URL + ep)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, ep)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.NotEmpty(t, body.Error.Code, ep)
		assert.Equal(t, "connection refused", body.Error.Message, ep)
	}
}
