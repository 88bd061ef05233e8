package pipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ytscript/internal/config"
	"ytscript/internal/runner"
)

const summaryPromptTemplate = `<|system|>
You are an AI assistant that summarizes transcripts accurately and concisely.
</s>
<|user|>
Please summarize the following transcript in about 250 words:

%s
</s>
<|assistant|>
`

const assistantMarker = "<|assistant|>"

// SummaryOutput carries the generated summary plus truncation diagnostics.
type SummaryOutput struct {
	Summary   string
	Truncated bool
	Note      string
	Run       runner.Result
}

// Summarizer condenses a transcript. Implementations are capability variants
// (local llama.cpp-style binary today); the orchestrator never depends on a
// concrete backend.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (SummaryOutput, error)
}

// llamaSummarizer feeds the transcript as a prompt file to a llama.cpp-style
// binary and reads the completion from stdout.
type llamaSummarizer struct {
	path      string
	modelPath string
	cfg       config.SummaryConfig
	runner    runner.Runner
}

func NewLlamaSummarizer(path, modelPath string, cfg config.SummaryConfig, r runner.Runner) Summarizer {
	if path == "" {
		path = "llama-cli"
	}
	return &llamaSummarizer{
		path:      path,
		modelPath: modelPath,
		cfg:       cfg,
		runner:    r,
	}
}

func (s *llamaSummarizer) Summarize(ctx context.Context, transcript string) (SummaryOutput, error) {
	if strings.TrimSpace(s.modelPath) == "" {
		return SummaryOutput{}, &StageError{
			Stage:   StageSummarize,
			Kind:    KindSummarizationFailed,
			Message: "no LLM model configured for summarization",
		}
	}
	if _, err := os.Stat(s.modelPath); err != nil {
		return SummaryOutput{}, newStageError(
			StageSummarize, KindSummarizationFailed,
			fmt.Sprintf("LLM model not found at %s", s.modelPath),
			runner.Result{}, err,
		)
	}

	prompt, truncated, note := buildPrompt(transcript, s.cfg.MaxPromptChars)

	promptFile, err := os.CreateTemp("", "ytscript-prompt-*.txt")
	if err != nil {
		return SummaryOutput{}, newStageError(
			StageSummarize, KindSummarizationFailed,
			"failed to create prompt file",
			runner.Result{}, err,
		)
	}
	promptPath := promptFile.Name()
	defer os.Remove(promptPath)

	if _, err := promptFile.WriteString(prompt); err != nil {
		promptFile.Close()
		return SummaryOutput{}, newStageError(
			StageSummarize, KindSummarizationFailed,
			"failed to write prompt file",
			runner.Result{}, err,
		)
	}
	if err := promptFile.Close(); err != nil {
		return SummaryOutput{}, newStageError(
			StageSummarize, KindSummarizationFailed,
			"failed to write prompt file",
			runner.Result{}, err,
		)
	}

	args := []string{
		"-m", s.modelPath,
		"-f", promptPath,
		"--temp", strconv.FormatFloat(s.cfg.Temperature, 'f', -1, 64),
		"--top-p", strconv.FormatFloat(s.cfg.TopP, 'f', -1, 64),
		"-n", strconv.Itoa(s.cfg.MaxTokens),
	}

	result, err := s.runner.Run(ctx, runner.Command{Name: s.path, Args: args})
	if err != nil {
		return SummaryOutput{Run: result}, newStageError(
			StageSummarize, KindSummarizationFailed,
			"summarization failed",
			result, err,
		)
	}

	summary := extractCompletion(result.Stdout)
	if summary == "" {
		return SummaryOutput{Run: result}, &StageError{
			Stage:   StageSummarize,
			Kind:    KindSummarizationFailed,
			Message: "model produced empty output",
			Result:  result,
		}
	}

	return SummaryOutput{
		Summary:   summary,
		Truncated: truncated,
		Note:      note,
		Run:       result,
	}, nil
}

// buildPrompt fits the transcript into the configured prompt budget. The
// truncation keeps the transcript start and is reported to the caller as a
// diagnostic note, never applied silently.
func buildPrompt(transcript string, maxChars int) (string, bool, string) {
	truncated := false
	note := ""
	if maxChars > 0 {
		runes := []rune(transcript)
		if len(runes) > maxChars {
			transcript = string(runes[:maxChars]) + "...[truncated]"
			truncated = true
			note = fmt.Sprintf("transcript truncated from %d to %d chars to fit the model prompt budget",
				len(runes), maxChars)
		}
	}
	return fmt.Sprintf(summaryPromptTemplate, transcript), truncated, note
}

// extractCompletion strips the echoed prompt, keeping the text after the
// assistant marker when the binary echoes the template back.
func extractCompletion(stdout string) string {
	output := strings.TrimSpace(stdout)
	if idx := strings.LastIndex(output, assistantMarker); idx >= 0 {
		output = strings.TrimSpace(output[idx+len(assistantMarker):])
	}
	return strings.TrimSpace(strings.TrimSuffix(output, "</s>"))
}
