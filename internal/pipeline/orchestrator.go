package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ytscript/internal/config"
	"ytscript/internal/runner"
	"ytscript/pkg/file"
	"ytscript/pkg/log"
)

// Recorder persists a finished run. The orchestrator records every
// non-failed run; persistence errors never fail the run itself.
type Recorder interface {
	RecordRun(ctx context.Context, req Request, res Result) error
}

// Orchestrator sequences download, transcription, and optional summarization
// against one output directory. It assumes exclusive use of that directory
// for the duration of a run.
type Orchestrator struct {
	downloader  Downloader
	transcriber Transcriber
	summarizer  Summarizer
	modelPath   string
	language    string
	recorder    Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a history recorder.
func WithRecorder(rec Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = rec
	}
}

// WithDownloader overrides the default yt-dlp downloader.
func WithDownloader(d Downloader) Option {
	return func(o *Orchestrator) {
		o.downloader = d
	}
}

// WithTranscriber overrides the default whisper.cpp transcriber.
func WithTranscriber(t Transcriber) Option {
	return func(o *Orchestrator) {
		o.transcriber = t
	}
}

// WithSummarizer overrides the default llama.cpp summarizer.
func WithSummarizer(s Summarizer) Option {
	return func(o *Orchestrator) {
		o.summarizer = s
	}
}

// NewOrchestrator builds the production pipeline from configuration.
// Tool paths come from explicit config, not process-wide state.
func NewOrchestrator(cfg *config.Config, r runner.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		downloader:  NewYtdlpDownloader(cfg.Tools.YtdlpPath, cfg.Output.AudioFormat, r),
		transcriber: NewWhisperTranscriber(cfg.Tools.WhisperPath, r),
		summarizer:  NewLlamaSummarizer(cfg.Tools.LlamaPath, cfg.Tools.LlamaModelPath, cfg.Summary, r),
		modelPath:   cfg.Tools.WhisperModelPath,
		language:    cfg.Output.Language,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one end-to-end pipeline run. The returned error is non-nil
// only when the result status is Failure; a summarize-only failure yields
// PartialFailure and a nil error.
//
// Cancellation is cooperative and coarse: ctx is checked before each stage,
// a stage already delegated to an external process runs to completion.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	result := Result{Status: StatusFailure, Stages: make([]StageOutcome, 0, 3)}
	emitState(req.OnStage, StatePending)

	videoID, err := ParseVideoID(req.URL)
	if err != nil {
		emitState(req.OnStage, StateFailed)
		return result, &StageError{
			Stage:   StageDownload,
			Kind:    KindInvalidURL,
			Message: err.Error(),
		}
	}
	result.VideoID = videoID

	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		emitState(req.OnStage, StateFailed)
		return result, &StageError{
			Stage:   StageDownload,
			Kind:    KindDownloadFailed,
			Message: fmt.Sprintf("cannot create output directory %s", outputDir),
			Err:     err,
		}
	}

	// Download
	if err := ctx.Err(); err != nil {
		emitState(req.OnStage, StateFailed)
		return result, fmt.Errorf("run cancelled before download: %w", err)
	}
	emitState(req.OnStage, StateDownloading)

	download, err := o.downloader.Download(ctx, req.URL, videoID, outputDir)
	if err != nil {
		result.Stages = append(result.Stages, stageOutcomeFromError(StageDownload, err))
		emitState(req.OnStage, StateFailed)
		return result, err
	}
	result.Stages = append(result.Stages, outcomeFromRunner(StageDownload, true, download.Run, download.Note))

	// Transcribe
	if err := ctx.Err(); err != nil {
		emitState(req.OnStage, StateFailed)
		return result, fmt.Errorf("run cancelled before transcription: %w", err)
	}
	emitState(req.OnStage, StateTranscribing)

	language := req.Language
	if language == "" {
		language = o.language
	}
	transcription, err := o.transcriber.Transcribe(ctx, TranscribeRequest{
		AudioPath: download.AudioPath,
		ModelPath: o.modelPath,
		Language:  language,
		Subtitles: req.Subtitles,
		OutputDir: outputDir,
	})
	if err != nil {
		result.Stages = append(result.Stages, stageOutcomeFromError(StageTranscribe, err))
		emitState(req.OnStage, StateFailed)
		return result, err
	}
	result.Stages = append(result.Stages, outcomeFromRunner(StageTranscribe, true, transcription.Run, ""))
	result.TranscriptPath = transcription.TranscriptPath
	result.SubtitlePath = transcription.SubtitlePath
	result.DetectedLanguage = transcription.DetectedLanguage

	// Transcript exists now; from here the run can no longer fail outright.
	result.Status = StatusSuccess

	// Keep-audio policy. Deletion failure is a diagnostic, not a run failure.
	if req.KeepAudio {
		result.AudioPath = download.AudioPath
	} else if err := os.Remove(download.AudioPath); err != nil {
		log.Warn("Failed to remove intermediate audio %s: %v", download.AudioPath, err)
	}

	if req.Summarize {
		o.summarize(ctx, req, transcription, &result)
	}

	o.record(ctx, req, result)
	emitState(req.OnStage, StateDone)
	return result, nil
}

// summarize runs the optional summarize stage. Any failure here degrades the
// result to PartialFailure without discarding the transcript.
func (o *Orchestrator) summarize(ctx context.Context, req Request, transcription TranscribeOutput, result *Result) {
	if err := ctx.Err(); err != nil {
		result.Status = StatusPartialFailure
		result.Stages = append(result.Stages, StageOutcome{
			Stage:      StageSummarize,
			OK:         false,
			Diagnostic: fmt.Sprintf("skipped: %v", err),
		})
		return
	}
	emitState(req.OnStage, StateSummarizing)

	summary, err := o.summarizer.Summarize(ctx, transcription.Transcript)
	if err != nil {
		log.Warn("Summarization failed, transcript kept: %v", err)
		result.Status = StatusPartialFailure
		result.Stages = append(result.Stages, stageOutcomeFromError(StageSummarize, err))
		return
	}

	summaryPath := file.ReplaceExt(transcription.TranscriptPath, "") + "_summary.txt"
	if err := os.WriteFile(summaryPath, []byte(summary.Summary+"\n"), 0o644); err != nil {
		log.Warn("Failed to write summary file %s: %v", summaryPath, err)
		result.Status = StatusPartialFailure
		result.Stages = append(result.Stages, StageOutcome{
			Stage:      StageSummarize,
			OK:         false,
			ExitCode:   summary.Run.ExitCode,
			Duration:   summary.Run.Duration,
			Diagnostic: fmt.Sprintf("cannot write summary file: %v", err),
		})
		return
	}

	result.Summary = summary.Summary
	result.SummaryPath = summaryPath
	result.Stages = append(result.Stages, outcomeFromRunner(StageSummarize, true, summary.Run, summary.Note))
}

func (o *Orchestrator) record(ctx context.Context, req Request, result Result) {
	if o.recorder == nil {
		return
	}
	// The run context may already be cancelled when a cancelled summarize
	// degraded the run to PartialFailure; recording must still happen.
	ctx = context.WithoutCancel(ctx)
	if err := o.recorder.RecordRun(ctx, req, result); err != nil {
		log.Warn("Failed to record run in history: %v", err)
	}
}

// stageOutcomeFromError turns a failed stage into an outcome entry, pulling
// command context out of the StageError when present.
func stageOutcomeFromError(stage string, err error) StageOutcome {
	if stageErr, ok := err.(*StageError); ok {
		return outcomeFromRunner(stage, false, stageErr.Result, stageErr.Message)
	}
	return StageOutcome{
		Stage:      stage,
		OK:         false,
		ExitCode:   -1,
		Diagnostic: err.Error(),
	}
}

func emitState(cb func(State), state State) {
	if cb != nil {
		cb(state)
	}
}
