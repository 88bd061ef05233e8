package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abadojack/whatlanggo"

	"ytscript/internal/runner"
	"ytscript/pkg/file"
)

// TranscribeRequest carries everything the speech-recognition stage needs.
type TranscribeRequest struct {
	AudioPath string
	ModelPath string
	Language  string
	Subtitles bool
	OutputDir string
}

// TranscribeOutput is the transcript and optional subtitle file produced by
// the external recognizer.
type TranscribeOutput struct {
	TranscriptPath   string
	SubtitlePath     string
	Transcript       string
	DetectedLanguage string
	Run              runner.Result
}

// Transcriber turns a local audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeOutput, error)
}

// whisperTranscriber shells out to a whisper.cpp-style binary. Output files
// are named by the tool's convention: audio file stem plus a fixed extension.
type whisperTranscriber struct {
	path   string
	runner runner.Runner
}

func NewWhisperTranscriber(path string, r runner.Runner) Transcriber {
	if path == "" {
		path = "whisper.cpp"
	}
	return &whisperTranscriber{path: path, runner: r}
}

func (t *whisperTranscriber) Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeOutput, error) {
	// Checked eagerly: whisper.cpp's own missing-model error is buried in
	// stderr and easy to misread as an audio problem.
	if _, err := os.Stat(req.ModelPath); err != nil {
		return TranscribeOutput{}, newStageError(
			StageTranscribe, KindModelNotFound,
			fmt.Sprintf("whisper model not found at %s", req.ModelPath),
			runner.Result{}, err,
		)
	}

	outputBase := filepath.Join(req.OutputDir, file.Stem(req.AudioPath))
	args := buildWhisperArgs(req.ModelPath, req.AudioPath, outputBase, req.Language, req.Subtitles)

	result, err := t.runner.Run(ctx, runner.Command{Name: t.path, Args: args})
	if err != nil {
		return TranscribeOutput{Run: result}, newStageError(
			StageTranscribe, KindTranscriptionFailed,
			"speech recognition failed",
			result, err,
		)
	}

	// External tools can exit 0 without producing output on unexpected
	// audio formats.
	transcriptPath := outputBase + ".txt"
	if !file.Exists(transcriptPath) {
		return TranscribeOutput{Run: result}, &StageError{
			Stage:   StageTranscribe,
			Kind:    KindTranscriptionFailed,
			Message: fmt.Sprintf("recognizer exited 0 but %s is missing", transcriptPath),
			Result:  result,
		}
	}

	content, err := os.ReadFile(transcriptPath)
	if err != nil {
		return TranscribeOutput{Run: result}, newStageError(
			StageTranscribe, KindTranscriptionFailed,
			fmt.Sprintf("failed to read transcript %s", transcriptPath),
			result, err,
		)
	}
	transcript := strings.TrimSpace(string(content))

	out := TranscribeOutput{
		TranscriptPath:   transcriptPath,
		Transcript:       transcript,
		DetectedLanguage: detectLanguage(transcript, req.Language),
		Run:              result,
	}

	if req.Subtitles {
		subtitlePath := outputBase + ".srt"
		if file.Exists(subtitlePath) {
			out.SubtitlePath = subtitlePath
		}
	}

	return out, nil
}

// detectLanguage returns the hint when one was given, otherwise a best-effort
// detection from the transcript text.
func detectLanguage(transcript, hint string) string {
	if lang := normalizeLanguage(hint); lang != "" {
		return lang
	}
	if transcript == "" {
		return ""
	}
	return whatlanggo.DetectLang(transcript).Iso6391()
}

// normalizeLanguage maps "auto" and empty hints to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

func buildWhisperArgs(modelPath, audioPath, outputBase, language string, subtitles bool) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-otxt",
		"-of", outputBase,
	}
	if subtitles {
		args = append(args, "-osrt")
	}
	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}
	return args
}
