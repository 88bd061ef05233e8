package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_AppendAndGet(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	entry := Entry{
		URL:              "https://youtu.be/dQw4w9WgXcQ",
		VideoID:          "dQw4w9WgXcQ",
		Status:           "success",
		DetectedLanguage: "en",
		OutputDir:        "/out",
		TranscriptPath:   "/out/dQw4w9WgXcQ.txt",
		SubtitlePath:     "/out/dQw4w9WgXcQ.srt",
	}
	saved, err := store.Append(ctx, entry)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.URL, got.URL)
	assert.Equal(t, saved.VideoID, got.VideoID)
	assert.Equal(t, saved.Status, got.Status)
	assert.Equal(t, saved.TranscriptPath, got.TranscriptPath)
	assert.Equal(t, saved.DetectedLanguage, got.DetectedLanguage)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		_, err := store.Append(ctx, Entry{
			URL:       "https://youtu.be/" + id,
			VideoID:   id,
			Status:    "success",
			OutputDir: "/out",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ccccccccccc", all[0].VideoID)
	assert.Equal(t, "aaaaaaaaaaa", all[2].VideoID)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "ccccccccccc", limited[0].VideoID)
}

func TestSQLiteStore_DeleteAndClear(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Append(ctx, Entry{URL: "u1", VideoID: "v1", Status: "success", OutputDir: "/out"})
	require.NoError(t, err)
	_, err = store.Append(ctx, Entry{URL: "u2", VideoID: "v2", Status: "failure", OutputDir: "/out"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, first.ID))
	assert.ErrorIs(t, store.Delete(ctx, first.ID), ErrNotFound)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, store.Clear(ctx))
	all, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteStore_DeleteOlderThan(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	_, err := store.Append(ctx, Entry{URL: "old", VideoID: "old", Status: "success", OutputDir: "/out", CreatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = store.Append(ctx, Entry{URL: "new", VideoID: "new", Status: "success", OutputDir: "/out", CreatedAt: now})
	require.NoError(t, err)

	removed, err := store.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].VideoID)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), Entry{URL: "u", VideoID: "v", Status: "success", OutputDir: "/out"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	all, err := reopened.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
