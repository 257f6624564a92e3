package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/internal/pipeline"
	"gigsync/internal/sheets"
)

type MockRunner struct {
	TryRunFunc func(ctx context.Context) (*pipeline.Report, error)
	SyncFunc   func(ctx context.Context) (*pipeline.Report, error)
}

func (m *MockRunner) TryRun(ctx context.Context) (*pipeline.Report, error) {
	return m.TryRunFunc(ctx)
}

func (m *MockRunner) Sync(ctx context.Context) (*pipeline.Report, error) {
	return m.SyncFunc(ctx)
}

type staticRecords []models.Record

func (s staticRecords) Load() []models.Record {
	return s
}

func serve(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	return rec
}

func TestHealth(t *testing.T) {
	srv := New(&MockRunner{}, staticRecords(nil), nil, logger.NewLogger("error"))

	rec := serve(t, srv, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRun(t *testing.T) {
	tests := []struct {
		err      error
		report   *pipeline.Report
		name     string
		contains string
		status   int
	}{
		{
			name:     "success",
			report:   &pipeline.Report{New: 2, Processed: 2, Sheet: &sheets.Result{Added: 2}},
			status:   http.StatusOK,
			contains: `"processed":2`,
		},
		{
			name:     "already running",
			err:      pipeline.ErrRunInProgress,
			status:   http.StatusConflict,
			contains: "already in progress",
		},
		{
			name:     "failure",
			report:   &pipeline.Report{Processed: 1},
			err:      errors.New("reconciliation failed"),
			status:   http.StatusInternalServerError,
			contains: "reconciliation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &MockRunner{TryRunFunc: func(_ context.Context) (*pipeline.Report, error) {
				return tt.report, tt.err
			}}

			rec := serve(t, New(runner, staticRecords(nil), nil, logger.NewLogger("error")), http.MethodPost, "/run")
			require.Equal(t, tt.status, rec.Code)
			require.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestRun_SurvivesCallerDisconnect(t *testing.T) {
	var runErr error

	runner := &MockRunner{TryRunFunc: func(ctx context.Context) (*pipeline.Report, error) {
		runErr = ctx.Err()

		return &pipeline.Report{}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil).WithContext(ctx)
	New(runner, staticRecords(nil), nil, logger.NewLogger("error")).Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, runErr)
}

func TestRun_MethodNotRouted(t *testing.T) {
	srv := New(&MockRunner{}, staticRecords(nil), nil, logger.NewLogger("error"))

	rec := serve(t, srv, http.MethodGet, "/run")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSync_Disabled(t *testing.T) {
	runner := &MockRunner{SyncFunc: func(_ context.Context) (*pipeline.Report, error) {
		return nil, pipeline.ErrSheetsDisabled
	}}

	rec := serve(t, New(runner, staticRecords(nil), nil, logger.NewLogger("error")), http.MethodPost, "/sync")
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestRecords(t *testing.T) {
	records := staticRecords{{Title: "Band", URL: "https://venue.example/band", Location: "Vorst Nationaal, Brussel", Dates: []string{"24 juni 2025"}}}

	rec := serve(t, New(&MockRunner{}, records, nil, logger.NewLogger("error")), http.MethodGet, "/records")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Records []models.Record `json:"records"`
		Count   int             `json:"count"`
	}

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, []models.Record(records), body.Records)

	rec = serve(t, New(&MockRunner{}, staticRecords(nil), nil, logger.NewLogger("error")), http.MethodGet, "/records")
	require.Contains(t, rec.Body.String(), `"records":[]`)
}

func TestMetrics(t *testing.T) {
	metrics := pipeline.NewMetrics()

	rec := serve(t, New(&MockRunner{}, staticRecords(nil), metrics.Handler(), logger.NewLogger("error")), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "gigsync_ledger_records"))
}
