package jobs

import (
	"strings"
	"time"

	"ytscript/internal/pipeline"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusPartial Status = "partial_failure"
	StatusFailed  Status = "failed"
)

// RunPayload carries everything needed to execute one pipeline run.
type RunPayload struct {
	URL       string `json:"url"`
	OutputDir string `json:"output_dir"`
	Language  string `json:"language,omitempty"`
	KeepAudio bool   `json:"keep_audio"`
	Subtitles bool   `json:"subtitles"`
	Summarize bool   `json:"summarize"`
}

// DedupeKey identifies submissions that would write the same artifacts.
func (p RunPayload) DedupeKey() string {
	return strings.TrimSpace(p.URL) + "|" + strings.TrimSpace(p.OutputDir)
}

type RunJob struct {
	ID        string           `json:"id"`
	DedupeKey string           `json:"-"`
	Payload   RunPayload       `json:"payload"`
	Status    Status           `json:"status"`
	State     pipeline.State   `json:"state"`
	Result    *pipeline.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
