package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		name string
		path string
		ext  string
		want string
	}{
		{name: "simple", path: "audio.m4a", ext: ".txt", want: "audio.txt"},
		{name: "ext without dot", path: "audio.m4a", ext: "srt", want: "audio.srt"},
		{name: "with dir", path: "/out/abc123.wav", ext: ".txt", want: "/out/abc123.txt"},
		{name: "no ext", path: "/out/abc123", ext: ".txt", want: "/out/abc123.txt"},
		{name: "hidden file", path: ".env", ext: ".bak", want: ".env.bak"},
		{name: "empty path", path: "", ext: ".txt", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceExt(tt.path, tt.ext))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "abc123", Stem("/out/abc123.m4a"))
	assert.Equal(t, "abc123", Stem("abc123"))
}

func TestMostRecent(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "older.m4a")
	newer := filepath.Join(dir, "newer.m4a")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0644))
	require.NoError(t, os.WriteFile(newer, []byte("b"), 0644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	got, ok := MostRecent([]string{older, newer, filepath.Join(dir, "missing")})
	require.True(t, ok)
	assert.Equal(t, newer, got)

	_, ok = MostRecent(nil)
	assert.False(t, ok)
}
