package pipeline

import (
	"context"
	"sync"

	"ytscript/internal/runner"
)

// fakeRunner records invocations and answers them through a scriptable handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runner.Command
	handler func(cmd runner.Command) (runner.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.handler == nil {
		return runner.Result{Command: cmd.Name, Args: cmd.Args}, nil
	}
	return f.handler(cmd)
}

func (f *fakeRunner) commandNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		names = append(names, call.Name)
	}
	return names
}

// stage fakes for orchestrator tests

type stubDownloader struct {
	calls  int
	out    DownloadOutput
	err    error
	onCall func()
}

func (s *stubDownloader) Download(_ context.Context, _, _, _ string) (DownloadOutput, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	return s.out, s.err
}

type stubTranscriber struct {
	calls  int
	out    TranscribeOutput
	err    error
	onCall func()
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ TranscribeRequest) (TranscribeOutput, error) {
	s.calls++
	if s.onCall != nil {
		s.onCall()
	}
	return s.out, s.err
}

type stubSummarizer struct {
	calls int
	out   SummaryOutput
	err   error
}

func (s *stubSummarizer) Summarize(_ context.Context, _ string) (SummaryOutput, error) {
	s.calls++
	return s.out, s.err
}
