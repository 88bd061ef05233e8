package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ytscript/internal/config"
	"ytscript/internal/jobs"
	"ytscript/internal/pipeline"
	"ytscript/internal/service"
	"ytscript/pkg/log"
)

func newTranscribeCmd(verbose *bool) *cobra.Command {
	var (
		outputDir   string
		modelPath   string
		whisperPath string
		ytdlpPath   string
		llamaPath   string
		llamaModel  string
		language    string
		subtitles   bool
		keepAudio   bool
		summarize   bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe URL",
		Short: "Download a video's audio and transcribe it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*verbose, func(c *config.Config) {
				if cmd.Flags().Changed("output-dir") {
					c.Output.Dir = outputDir
				}
				if cmd.Flags().Changed("model-path") {
					c.Tools.WhisperModelPath = modelPath
				}
				if cmd.Flags().Changed("whisper-path") {
					c.Tools.WhisperPath = whisperPath
				}
				if cmd.Flags().Changed("ytdlp-path") {
					c.Tools.YtdlpPath = ytdlpPath
				}
				if cmd.Flags().Changed("llm-path") {
					c.Tools.LlamaPath = llamaPath
				}
				if cmd.Flags().Changed("llm-model") {
					c.Tools.LlamaModelPath = llamaModel
				}
				if cmd.Flags().Changed("language") {
					c.Output.Language = language
				}
			})
			if err != nil {
				return err
			}

			svc, err := service.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			for _, tool := range svc.Preflight(cmd.Context()) {
				if tool.Available {
					continue
				}
				if tool.Optional {
					log.Warn("Optional tool %s unavailable: %s", tool.Name, tool.Error)
					continue
				}
				log.Warn("Tool %s unavailable: %s", tool.Name, tool.Error)
			}

			result, err := svc.Run(cmd.Context(), jobs.RunPayload{
				URL:       args[0],
				OutputDir: cfg.Output.Dir,
				Language:  cfg.Output.Language,
				KeepAudio: keepAudio,
				Subtitles: subtitles,
				Summarize: summarize,
			}, printStage)
			if err != nil {
				printStageDiagnostics(result)
				return err
			}

			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for transcript and subtitle files")
	cmd.Flags().StringVar(&modelPath, "model-path", "", "whisper model file")
	cmd.Flags().StringVar(&whisperPath, "whisper-path", "", "whisper.cpp executable")
	cmd.Flags().StringVar(&ytdlpPath, "ytdlp-path", "", "yt-dlp executable")
	cmd.Flags().StringVar(&llamaPath, "llm-path", "", "llama.cpp executable for summaries")
	cmd.Flags().StringVar(&llamaModel, "llm-model", "", "local LLM model file for summaries")
	cmd.Flags().StringVarP(&language, "language", "l", "", "transcription language hint (e.g. en, fr)")
	cmd.Flags().BoolVar(&subtitles, "srt", false, "also produce an SRT subtitle file")
	cmd.Flags().BoolVar(&keepAudio, "keep-audio", false, "keep the downloaded audio file")
	cmd.Flags().BoolVarP(&summarize, "summarize", "s", false, "summarize the transcript with a local LLM")

	return cmd
}

func printStage(state pipeline.State) {
	switch state {
	case pipeline.StateDownloading:
		fmt.Println("Downloading audio...")
	case pipeline.StateTranscribing:
		fmt.Println("Transcribing...")
	case pipeline.StateSummarizing:
		fmt.Println("Summarizing...")
	}
}

func printResult(result pipeline.Result) {
	fmt.Printf("Transcript: %s\n", result.TranscriptPath)
	if result.SubtitlePath != "" {
		fmt.Printf("Subtitles:  %s\n", result.SubtitlePath)
	}
	if result.SummaryPath != "" {
		fmt.Printf("Summary:    %s\n", result.SummaryPath)
	}
	if result.AudioPath != "" {
		fmt.Printf("Audio:      %s\n", result.AudioPath)
	}
	if result.DetectedLanguage != "" {
		fmt.Printf("Language:   %s\n", result.DetectedLanguage)
	}
	if preview := transcriptPreview(result.TranscriptPath, 5); preview != "" {
		fmt.Printf("\n%s\n", preview)
	}
	if result.Status == pipeline.StatusPartialFailure {
		fmt.Println("Note: summarization failed, transcript was kept.")
		printStageDiagnostics(result)
	}
	if result.Summary != "" {
		fmt.Printf("\n%s\n", result.Summary)
	}
}

// transcriptPreview returns up to maxLines non-empty lines from the transcript.
func transcriptPreview(path string, maxLines int) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("Failed to read transcript for preview: %v", err)
		return ""
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxLines {
			lines = append(lines, "...")
			break
		}
	}
	return strings.Join(lines, "\n")
}

func printStageDiagnostics(result pipeline.Result) {
	for _, stage := range result.Stages {
		if stage.OK || stage.Diagnostic == "" {
			continue
		}
		fmt.Printf("  %s: %s\n", stage.Stage, stage.Diagnostic)
	}
}
