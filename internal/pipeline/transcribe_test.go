package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytscript/internal/runner"
)

func writeModel(t *testing.T, dir string) string {
	t.Helper()
	modelPath := filepath.Join(dir, "ggml-base.en.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("model"), 0644))
	return modelPath
}

func TestWhisperTranscriber_Success(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir)
	audioPath := filepath.Join(dir, "abc123.m4a")

	fake := &fakeRunner{handler: func(cmd runner.Command) (runner.Result, error) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.txt"), []byte("hello world, this is a transcript\n"), 0644))
		return runner.Result{Command: cmd.Name}, nil
	}}

	tr := NewWhisperTranscriber("whisper.cpp", fake)
	out, err := tr.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: audioPath,
		ModelPath: modelPath,
		OutputDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc123.txt"), out.TranscriptPath)
	assert.Equal(t, "hello world, this is a transcript", out.Transcript)
	assert.Empty(t, out.SubtitlePath)

	require.Len(t, fake.calls, 1)
	args := fake.calls[0].Args
	assert.Contains(t, args, "-m")
	assert.Contains(t, args, modelPath)
	assert.Contains(t, args, "-f")
	assert.Contains(t, args, audioPath)
	assert.Contains(t, args, "-otxt")
	assert.NotContains(t, args, "-osrt")
	assert.NotContains(t, args, "-l")
}

func TestWhisperTranscriber_SubtitlesAndLanguage(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir)
	audioPath := filepath.Join(dir, "abc123.m4a")

	fake := &fakeRunner{handler: func(cmd runner.Command) (runner.Result, error) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.txt"), []byte("bonjour"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.srt"), []byte("1\n00:00:00,000 --> 00:00:01,000\nbonjour\n"), 0644))
		return runner.Result{}, nil
	}}

	tr := NewWhisperTranscriber("whisper.cpp", fake)
	out, err := tr.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: audioPath,
		ModelPath: modelPath,
		Language:  "fr",
		Subtitles: true,
		OutputDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc123.srt"), out.SubtitlePath)
	assert.Equal(t, "fr", out.DetectedLanguage)

	args := fake.calls[0].Args
	assert.Contains(t, args, "-osrt")
	assert.Contains(t, args, "-l")
	assert.Contains(t, args, "fr")
}

func TestWhisperTranscriber_AutoLanguageNotForwarded(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir)

	fake := &fakeRunner{handler: func(cmd runner.Command) (runner.Result, error) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.txt"), []byte("this is definitely english text to detect"), 0644))
		return runner.Result{}, nil
	}}

	tr := NewWhisperTranscriber("whisper.cpp", fake)
	out, err := tr.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: filepath.Join(dir, "abc123.m4a"),
		ModelPath: modelPath,
		Language:  "auto",
		OutputDir: dir,
	})
	require.NoError(t, err)
	assert.NotContains(t, fake.calls[0].Args, "-l")
	// Detection runs over the transcript when no explicit hint is given.
	assert.Equal(t, "en", out.DetectedLanguage)
}

func TestWhisperTranscriber_ModelMissing(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeRunner{}

	tr := NewWhisperTranscriber("whisper.cpp", fake)
	_, err := tr.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: filepath.Join(dir, "abc123.m4a"),
		ModelPath: filepath.Join(dir, "missing.bin"),
		OutputDir: dir,
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindModelNotFound))
	// Checked before the tool is ever launched.
	assert.Empty(t, fake.calls)
}

func TestWhisperTranscriber_ToolFailure(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir)

	fake := &fakeRunner{handler: func(cmd runner.Command) (runner.Result, error) {
		res := runner.Result{Command: cmd.Name, ExitCode: 2, Stderr: "failed to decode audio"}
		return res, &runner.NonZeroExit{Command: cmd.Name, ExitCode: 2, Stderr: res.Stderr}
	}}

	tr := NewWhisperTranscriber("whisper.cpp", fake)
	_, err := tr.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: filepath.Join(dir, "abc123.m4a"),
		ModelPath: modelPath,
		OutputDir: dir,
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTranscriptionFailed))
}

func TestWhisperTranscriber_ZeroExitNoOutput(t *testing.T) {
	dir := t.TempDir()
	modelPath := writeModel(t, dir)

	// Tool exits 0 but writes nothing.
	fake := &fakeRunner{}

	tr := NewWhisperTranscriber("whisper.cpp", fake)
	_, err := tr.Transcribe(context.Background(), TranscribeRequest{
		AudioPath: filepath.Join(dir, "abc123.m4a"),
		ModelPath: modelPath,
		OutputDir: dir,
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTranscriptionFailed))

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Contains(t, stageErr.Message, "missing")
}
