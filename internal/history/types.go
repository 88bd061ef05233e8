package history

import "time"

// Entry is one recorded pipeline run. Paths may be empty when the
// corresponding artifact was not produced or not kept.
type Entry struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	VideoID          string    `json:"video_id"`
	Status           string    `json:"status"`
	DetectedLanguage string    `json:"detected_language,omitempty"`
	OutputDir        string    `json:"output_dir"`
	TranscriptPath   string    `json:"transcript_path,omitempty"`
	SubtitlePath     string    `json:"subtitle_path,omitempty"`
	SummaryPath      string    `json:"summary_path,omitempty"`
	AudioPath        string    `json:"audio_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
