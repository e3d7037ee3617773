package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/movers/internal/api/handlers"
	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/internal/store"
	"github.com/wonny/movers/pkg/logger"
)

type stubReader struct {
	snapshot *movers.MarketSnapshot
	err      error
}

func (s stubReader) LoadLast(context.Context) (*movers.MarketSnapshot, error) {
	return s.snapshot, s.err
}

type stubRunner struct {
	result *movers.RunResult
	err    error
}

func (s stubRunner) Run(context.Context) (*movers.RunResult, error) {
	return s.result, s.err
}

type stubHistory struct {
	entries []store.HistoryEntry
	limit   *int
}

func (s stubHistory) History(_ context.Context, limit int) ([]store.HistoryEntry, error) {
	*s.limit = limit
	return s.entries, nil
}

func sample() *movers.MarketSnapshot {
	return &movers.MarketSnapshot{
		UpdateTime: "2024-01-15 14:35:00",
		IsClosed:   true,
		Gainers:    []movers.MoverRecord{{Code: "2330", Name: "台積電", Open: "580.00", Close: "590.00", ChangePercent: "1.72"}},
		Losers:     []movers.MoverRecord{},
	}
}

func serve(t *testing.T, h *handlers.SnapshotHandler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter(h, logger.Nop()).ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, handlers.NewSnapshotHandler(stubReader{}, stubRunner{}, nil, logger.Nop()), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGetSnapshot(t *testing.T) {
	tests := []struct {
		name       string
		reader     stubReader
		wantStatus int
	}{
		{"stored", stubReader{snapshot: sample()}, http.StatusOK},
		{"nothing stored", stubReader{}, http.StatusNotFound},
		{"store error", stubReader{err: errors.New("corrupt")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewSnapshotHandler(tt.reader, stubRunner{}, nil, logger.Nop())
			rec := serve(t, h, http.MethodGet, "/api/snapshot")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestGetSnapshot_Body(t *testing.T) {
	h := handlers.NewSnapshotHandler(stubReader{snapshot: sample()}, stubRunner{}, nil, logger.Nop())
	rec := serve(t, h, http.MethodGet, "/api/snapshot")

	var got movers.MarketSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, *sample(), got)
	assert.Contains(t, rec.Body.String(), "台積電")
}

func TestRefresh(t *testing.T) {
	runner := stubRunner{result: &movers.RunResult{
		RunID:    "run-1",
		State:    movers.StateFailed,
		Err:      &movers.FetchError{Source: "twse", Err: errors.New("timeout")},
		Snapshot: sample(),
	}}
	h := handlers.NewSnapshotHandler(stubReader{}, runner, nil, logger.Nop())

	rec := serve(t, h, http.MethodPost, "/api/snapshot/refresh")
	require.Equal(t, http.StatusOK, rec.Code)

	var got handlers.RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "failed", got.State)
	assert.True(t, strings.Contains(got.Error, "timeout"))

}

func TestMethodMismatch(t *testing.T) {
	h := handlers.NewSnapshotHandler(stubReader{snapshot: sample()}, stubRunner{}, nil, logger.Nop())

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/api/snapshot/refresh", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/snapshot", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/health", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(t, h, tt.method, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusMethodNotAllowed {
				assert.Contains(t, rec.Body.String(), "Method not allowed")
			}
		})
	}
}

type ctxRunner struct {
	seen chan context.Context
}

func (c ctxRunner) Run(ctx context.Context) (*movers.RunResult, error) {
	c.seen <- ctx
	return &movers.RunResult{RunID: "run-2", State: movers.StateLive, Snapshot: sample()}, nil
}

func TestRefresh_DetachedFromClient(t *testing.T) {
	runner := ctxRunner{seen: make(chan context.Context, 1)}
	h := handlers.NewSnapshotHandler(stubReader{}, runner, nil, logger.Nop()).
		WithRefreshTimeout(time.Minute)

	clientCtx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/snapshot/refresh", nil).WithContext(clientCtx)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	runCtx := <-runner.seen
	assert.NoError(t, runCtx.Err(), "client cancellation must not reach the run")
	deadline, ok := runCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestRefresh_SaveFailure(t *testing.T) {
	h := handlers.NewSnapshotHandler(stubReader{}, stubRunner{err: errors.New("disk full")}, nil, logger.Nop())
	rec := serve(t, h, http.MethodPost, "/api/snapshot/refresh")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHistory(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		h := handlers.NewSnapshotHandler(stubReader{}, stubRunner{}, nil, logger.Nop())
		rec := serve(t, h, http.MethodGet, "/api/snapshot/history")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("limit", func(t *testing.T) {
		var limit int
		hist := stubHistory{
			entries: []store.HistoryEntry{{RunID: "r1", Kind: store.KindLive, CreatedAt: time.Now()}},
			limit:   &limit,
		}
		h := handlers.NewSnapshotHandler(stubReader{}, stubRunner{}, hist, logger.Nop())

		rec := serve(t, h, http.MethodGet, "/api/snapshot/history?limit=5")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, limit)
		assert.Contains(t, rec.Body.String(), `"count":1`)

		rec = serve(t, h, http.MethodGet, "/api/snapshot/history?limit=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	srv := New("0", logger.Nop(), http.NewServeMux())
	assert.Equal(t, ":0", srv.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
