package pipeline

import (
	"errors"
	"fmt"

	"ytscript/internal/runner"
)

// Kind classifies stage failures for callers that need more than a message.
type Kind string

const (
	KindInvalidURL          Kind = "InvalidURL"
	KindDownloadFailed      Kind = "DownloadFailed"
	KindAmbiguousOutput     Kind = "AmbiguousOutput"
	KindModelNotFound       Kind = "ModelNotFound"
	KindTranscriptionFailed Kind = "TranscriptionFailed"
	KindSummarizationFailed Kind = "SummarizationFailed"
)

// StageError is a stage-aware error with optional command context.
type StageError struct {
	Stage   string
	Kind    Kind
	Message string
	Result  runner.Result
	Err     error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Result.Command == "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s (cmd=%s exit=%d)",
		e.Stage, e.Kind, e.Message, e.Result.Command, e.Result.ExitCode)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err is a StageError of the given kind.
func IsKind(err error, kind Kind) bool {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind == kind
	}
	return false
}

func newStageError(stage string, kind Kind, message string, res runner.Result, err error) *StageError {
	return &StageError{
		Stage:   stage,
		Kind:    kind,
		Message: message,
		Result:  res,
		Err:     err,
	}
}
