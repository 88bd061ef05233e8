package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytscript/internal/config"
	"ytscript/internal/httpapi"
	"ytscript/internal/service"
	"ytscript/pkg/log"
)

func newServeCmd(verbose *bool) *cobra.Command {
	var (
		addr  string
		uiDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and GUI server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*verbose, func(c *config.Config) {
				if cmd.Flags().Changed("addr") {
					c.Server.Addr = addr
				}
				if cmd.Flags().Changed("ui-dir") {
					c.Server.UIDir = uiDir
				}
			})
			if err != nil {
				return err
			}

			if cfg.Server.LogFile != "" {
				level := log.ParseLevel(cfg.LogLevel)
				if *verbose {
					level = log.LevelDebug
				}
				fileLogger, err := log.NewFileLogger(cfg.Server.LogFile, level)
				if err != nil {
					return err
				}
				defer func() { _ = fileLogger.Close() }()
				log.UseLogger(fileLogger.Logger)
			}

			svc, err := service.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := svc.Start(); err != nil {
				return err
			}
			defer svc.Stop()

			for _, tool := range svc.Preflight(cmd.Context()) {
				if tool.Available {
					log.Info("Tool %s ready at %s %s", tool.Name, tool.Path, tool.Version)
					continue
				}
				if tool.Optional {
					log.Warn("Optional tool %s unavailable: %s", tool.Name, tool.Error)
					continue
				}
				log.Warn("Tool %s unavailable, runs will fail: %s", tool.Name, tool.Error)
			}

			server := httpapi.NewServer(svc,
				httpapi.WithDefaultOutputDir(cfg.Output.Dir),
				httpapi.WithUI(cfg.Server.UIDir, cfg.Server.UIDir != ""),
			)

			errCh := make(chan error, 1)
			go func() {
				log.Info("Listening on %s", cfg.Server.Addr)
				errCh <- server.ListenAndServe(cfg.Server.Addr)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info("Received %s, shutting down", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port)")
	cmd.Flags().StringVar(&uiDir, "ui-dir", "", "static GUI assets directory")
	return cmd
}
