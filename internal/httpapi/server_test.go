package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytscript/internal/config"
	"ytscript/internal/history"
	"ytscript/internal/jobs"
	"ytscript/internal/pipeline"
	"ytscript/internal/runner"
	"ytscript/internal/service"
)

type fakePipeline struct {
	result pipeline.Result
	err    error
}

func (f *fakePipeline) Run(_ context.Context, _ pipeline.Request) (pipeline.Result, error) {
	return f.result, f.err
}

type fakeRunner struct {
	version string
	err     error
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	if f.err != nil {
		return runner.Result{Command: cmd.Name, ExitCode: -1}, f.err
	}
	return runner.Result{Command: cmd.Name, Stdout: f.version + "\n"}, nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *service.RunService, *history.SQLiteStore) {
	t.Helper()

	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		Tools: config.ToolsConfig{
			YtdlpPath:        "yt-dlp",
			WhisperPath:      "whisper.cpp",
			WhisperModelPath: filepath.Join(t.TempDir(), "ggml-base.en.bin"),
		},
		History: config.HistoryConfig{
			DBPath:        filepath.Join(t.TempDir(), "unused.db"),
			PruneCronExpr: "0 3 * * *",
		},
	}
	svc, err := service.New(cfg,
		service.WithPipeline(&fakePipeline{result: pipeline.Result{Status: pipeline.StatusSuccess}}),
		service.WithHistoryStore(store),
		service.WithRunner(&fakeRunner{version: "2025.08.11"}),
	)
	require.NoError(t, err)
	return NewServer(svc, opts...), svc, store
}

func TestServer_SubmitRun(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := []byte(`{"url":"https://youtu.be/dQw4w9WgXcQ","output_dir":"/out","summarize":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var ret struct {
		Created bool         `json:"created"`
		Run     *jobs.RunJob `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ret))
	require.True(t, ret.Created)
	require.NotNil(t, ret.Run)
	assert.Equal(t, jobs.StatusPending, ret.Run.Status)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", ret.Run.Payload.URL)
	assert.True(t, ret.Run.Payload.Summarize)
}

func TestServer_SubmitRun_Duplicate(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"url":"https://youtu.be/dQw4w9WgXcQ","output_dir":"/out"}`
	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, second.Code)

	var ret struct {
		Created bool `json:"created"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &ret))
	assert.False(t, ret.Created)
}

func TestServer_SubmitRun_Validation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{name: "missing url", body: `{"output_dir":"/out"}`},
		{name: "invalid url", body: `{"url":"https://example.com/watch?v=abc"}`},
		{name: "malformed json", body: `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_GetRunByID(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	job, created := svc.Submit(jobs.RunPayload{URL: "https://youtu.be/dQw4w9WgXcQ", OutputDir: "/out"})
	require.True(t, created)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+job.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got jobs.RunJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/run-999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListRuns(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	_, created := svc.Submit(jobs.RunPayload{URL: "https://youtu.be/dQw4w9WgXcQ", OutputDir: "/out"})
	require.True(t, created)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []*jobs.RunJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
}

func TestServer_History(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	entry, err := store.Append(ctx, history.Entry{
		URL: "https://youtu.be/dQw4w9WgXcQ", VideoID: "dQw4w9WgXcQ",
		Status: "success", OutputDir: "/out",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/"+entry.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/history/"+entry.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/history/"+entry.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HistoryClearAndLimit(t *testing.T) {
	srv, _, store := newTestServer(t)
	ctx := context.Background()

	for _, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb"} {
		_, err := store.Append(ctx, history.Entry{URL: "u", VideoID: id, Status: "success", OutputDir: "/out"})
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestServer_Status(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var ret struct {
		Tools []service.ToolStatus `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ret))
	require.NotEmpty(t, ret.Tools)
	assert.Equal(t, "yt-dlp", ret.Tools[0].Name)
	assert.True(t, ret.Tools[0].Available)
}

func TestServer_RunStream_SendsSnapshot(t *testing.T) {
	srv, svc, _ := newTestServer(t)

	_, created := svc.Submit(jobs.RunPayload{URL: "https://youtu.be/dQw4w9WgXcQ", OutputDir: "/out"})
	require.True(t, created)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/runs/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "data: "))
	assert.Contains(t, body, "dQw4w9WgXcQ")
}

func TestServer_StaticSPAFallback(t *testing.T) {
	uiDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uiDir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(uiDir, "app.css"), []byte("body{}"), 0o644))

	srv, _, _ := newTestServer(t, WithUI(uiDir, true))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "body{}")

	// Client-side route falls back to the index page.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app")
}

func TestServer_StaticDisabled(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
