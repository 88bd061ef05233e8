package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ytscript/internal/config"
	"ytscript/pkg/log"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "ytscript",
		Short: "Transcribe and summarize YouTube videos with local tools",
		Long: `ytscript downloads the audio track of a YouTube video with yt-dlp,
transcribes it with whisper.cpp, and can summarize the transcript with a
local llama.cpp model. Everything runs on your machine.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newTranscribeCmd(&verbose),
		newModelsCmd(),
		newHistoryCmd(&verbose),
		newServeCmd(&verbose),
	)
	return root
}

// loadConfig loads env, optional .env file, and the YAML overlay, then applies
// command-line overrides on top.
func loadConfig(verbose bool, opts ...config.Option) (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, err
	}

	level := log.ParseLevel(cfg.LogLevel)
	if verbose {
		level = log.LevelDebug
	}
	log.InitLogger(level)
	return cfg, nil
}
