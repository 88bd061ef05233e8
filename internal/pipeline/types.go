package pipeline

import (
	"time"

	"ytscript/internal/runner"
)

// Status is the terminal outcome of one end-to-end run.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusFailure        Status = "failure"
)

// State tracks where a run currently is. Failed is reachable only from
// Downloading and Transcribing; a summarize failure degrades the result
// instead of failing the run.
type State string

const (
	StatePending      State = "pending"
	StateDownloading  State = "downloading"
	StateTranscribing State = "transcribing"
	StateSummarizing  State = "summarizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Stage names used in outcomes and errors.
const (
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
)

// Request describes one end-to-end run. Immutable once the run starts.
type Request struct {
	URL       string `json:"url"`
	OutputDir string `json:"output_dir"`
	Language  string `json:"language,omitempty"`
	KeepAudio bool   `json:"keep_audio"`
	Subtitles bool   `json:"subtitles"`
	Summarize bool   `json:"summarize"`

	// OnStage, when set, receives state transitions as they happen.
	// Used by the GUI server to stream per-stage status.
	OnStage func(State) `json:"-"`
}

// StageOutcome records one attempted stage, successful or not.
type StageOutcome struct {
	Stage      string        `json:"stage"`
	OK         bool          `json:"ok"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration"`
	Diagnostic string        `json:"diagnostic,omitempty"`
}

// Result is the value object handed back to CLI and GUI callers.
// Owned by the caller after return.
type Result struct {
	Status           Status         `json:"status"`
	VideoID          string         `json:"video_id"`
	TranscriptPath   string         `json:"transcript_path,omitempty"`
	SubtitlePath     string         `json:"subtitle_path,omitempty"`
	SummaryPath      string         `json:"summary_path,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	AudioPath        string         `json:"audio_path,omitempty"`
	DetectedLanguage string         `json:"detected_language,omitempty"`
	Stages           []StageOutcome `json:"stages"`
}

// outcomeFromRunner builds a StageOutcome from a captured process result.
func outcomeFromRunner(stage string, ok bool, res runner.Result, note string) StageOutcome {
	diagnostic := note
	if stderr := res.Stderr; !ok && stderr != "" {
		if diagnostic != "" {
			diagnostic += "; "
		}
		diagnostic += truncateDiagnostic(stderr)
	}
	return StageOutcome{
		Stage:      stage,
		OK:         ok,
		ExitCode:   res.ExitCode,
		Duration:   res.Duration,
		Diagnostic: diagnostic,
	}
}

const maxDiagnosticLen = 2000

// truncateDiagnostic keeps the tail of captured stderr, where external tools
// put their actual error message.
func truncateDiagnostic(s string) string {
	if len(s) <= maxDiagnosticLen {
		return s
	}
	return "..." + s[len(s)-maxDiagnosticLen:]
}
