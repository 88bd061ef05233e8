package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"ytscript/pkg/file"
)

var modelExts = []string{".bin", ".gguf", ".ggml"}

func newModelsCmd() *cobra.Command {
	var dirs []string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List whisper and LLM model files found on disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}

			searchDirs := dirs
			if len(searchDirs) == 0 {
				searchDirs = defaultModelDirs(cfg.Tools.WhisperModelPath, cfg.Tools.LlamaModelPath)
			}

			found := scanModelDirs(searchDirs)
			if len(found) == 0 {
				fmt.Println("No model files found.")
				fmt.Printf("Searched: %s\n", strings.Join(searchDirs, ", "))
				return nil
			}

			for _, path := range found {
				marker := " "
				if path == cfg.Tools.WhisperModelPath || path == cfg.Tools.LlamaModelPath {
					marker = "*"
				}
				size := ""
				if info, err := os.Stat(path); err == nil {
					size = humanSize(info.Size())
				}
				fmt.Printf("%s %-60s %s\n", marker, path, size)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&dirs, "dir", "d", nil, "directories to search (repeatable)")
	return cmd
}

func defaultModelDirs(configured ...string) []string {
	dirs := []string{"./models"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "ytscript", "models"))
	}
	for _, path := range configured {
		if path == "" {
			continue
		}
		dir := filepath.Dir(path)
		if !contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func scanModelDirs(dirs []string) []string {
	found := make([]string, 0)
	seen := make(map[string]struct{})
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !isModelFile(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if !file.Exists(path) {
				continue
			}
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			found = append(found, path)
		}
	}
	sort.Strings(found)
	return found
}

func isModelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range modelExts {
		if ext == known {
			return true
		}
	}
	return false
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
