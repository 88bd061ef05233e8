package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"ytscript/internal/runner"
	"ytscript/pkg/file"
)

// errNoOutput marks the case where the downloader reported success but left
// nothing behind that matches the output template.
var errNoOutput = errors.New("no downloader output")

// DownloadOutput is what the download stage hands to the transcribe stage.
type DownloadOutput struct {
	AudioPath string
	Note      string
	Run       runner.Result
}

// Downloader fetches the audio track of a video into the output directory.
type Downloader interface {
	Download(ctx context.Context, url, videoID, outputDir string) (DownloadOutput, error)
}

// ytdlpDownloader invokes yt-dlp with a deterministic output template so the
// audio file name is derived from the video ID.
type ytdlpDownloader struct {
	path        string
	audioFormat string
	runner      runner.Runner
}

func NewYtdlpDownloader(path, audioFormat string, r runner.Runner) Downloader {
	if path == "" {
		path = "yt-dlp"
	}
	if audioFormat == "" {
		audioFormat = "m4a"
	}
	return &ytdlpDownloader{
		path:        path,
		audioFormat: audioFormat,
		runner:      r,
	}
}

func (d *ytdlpDownloader) Download(ctx context.Context, url, videoID, outputDir string) (DownloadOutput, error) {
	args := []string{
		"--extract-audio",
		"--audio-format", d.audioFormat,
		"--audio-quality", "0",
		"--no-playlist",
		"--no-progress",
		"--output", filepath.Join(outputDir, "%(id)s.%(ext)s"),
		url,
	}

	result, err := d.runner.Run(ctx, runner.Command{Name: d.path, Args: args})
	if err != nil {
		return DownloadOutput{Run: result}, newStageError(
			StageDownload, KindDownloadFailed,
			fmt.Sprintf("yt-dlp failed for %s", url),
			result, err,
		)
	}

	audioPath, note, err := resolveAudioFile(outputDir, videoID)
	if err != nil {
		kind := KindAmbiguousOutput
		if errors.Is(err, errNoOutput) {
			kind = KindDownloadFailed
		}
		return DownloadOutput{Run: result}, &StageError{
			Stage:   StageDownload,
			Kind:    kind,
			Message: err.Error(),
			Result:  result,
		}
	}

	return DownloadOutput{AudioPath: audioPath, Note: note, Run: result}, nil
}

// transcriptExts are produced by later stages and never count as downloader output.
var transcriptExts = map[string]bool{
	".txt":  true,
	".srt":  true,
	".vtt":  true,
	".json": true,
	".part": true,
}

// resolveAudioFile locates the file yt-dlp produced for videoID. The output
// template makes the name predictable up to the extension; when several
// candidates exist (leftovers from earlier runs with another format) the
// most-recently-modified one wins and the choice is surfaced as a diagnostic.
func resolveAudioFile(outputDir, videoID string) (string, string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, videoID+".*"))
	if err != nil {
		return "", "", fmt.Errorf("glob downloader output: %w", err)
	}

	candidates := make([]string, 0, len(matches))
	for _, match := range matches {
		if transcriptExts[strings.ToLower(filepath.Ext(match))] {
			continue
		}
		candidates = append(candidates, match)
	}

	switch len(candidates) {
	case 0:
		return "", "", fmt.Errorf("%w: no audio file produced for %s in %s", errNoOutput, videoID, outputDir)
	case 1:
		return candidates[0], "", nil
	}

	best, ok := file.MostRecent(candidates)
	if !ok {
		return "", "", fmt.Errorf("%d candidate files for %s, none readable", len(candidates), videoID)
	}
	note := fmt.Sprintf("%d files matched %s.*, picked most recent: %s",
		len(candidates), videoID, filepath.Base(best))
	return best, note, nil
}
