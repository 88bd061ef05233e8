package service

import (
	"context"
	"os"

	"ytscript/internal/runner"
	"ytscript/pkg/file"
)

// ToolStatus reports availability of one external dependency.
type ToolStatus struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
	Optional  bool   `json:"optional"`
}

// Preflight probes the configured external tools and model files. A failed
// probe never aborts startup; callers decide how to surface it.
func (s *RunService) Preflight(ctx context.Context) []ToolStatus {
	statuses := []ToolStatus{
		s.probeTool(ctx, "yt-dlp", s.cfg.Tools.YtdlpPath, false),
		s.probeTool(ctx, "whisper.cpp", s.cfg.Tools.WhisperPath, false),
		s.probeModel("whisper model", s.cfg.Tools.WhisperModelPath, false),
	}
	if s.cfg.Tools.LlamaPath != "" && s.cfg.Tools.LlamaModelPath != "" {
		statuses = append(statuses,
			s.probeTool(ctx, "llama.cpp", s.cfg.Tools.LlamaPath, true),
			s.probeModel("llama model", s.cfg.Tools.LlamaModelPath, true),
		)
	}
	return statuses
}

func (s *RunService) probeTool(ctx context.Context, name, path string, optional bool) ToolStatus {
	status := ToolStatus{Name: name, Path: path, Optional: optional}
	version, err := runner.Version(ctx, s.runner, path)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Available = true
	status.Version = version
	return status
}

func (s *RunService) probeModel(name, path string, optional bool) ToolStatus {
	status := ToolStatus{Name: name, Path: path, Optional: optional}
	if path == "" {
		status.Error = "model path not configured"
		return status
	}
	if !file.Exists(path) {
		status.Error = "model file not found"
		return status
	}
	if info, err := os.Stat(path); err == nil && info.Size() == 0 {
		status.Error = "model file is empty"
		return status
	}
	status.Available = true
	return status
}
