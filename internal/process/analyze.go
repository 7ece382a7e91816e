package process

import (
	"context"
	"fmt"
	"os/exec"
)

// DefaultAnalyzePath is looked up in PATH.
const DefaultAnalyzePath = "systemd-analyze"

// AnalyzeRunner runs `systemd-analyze verify <unit>`.
type AnalyzeRunner struct {
	Path string
}

// NewAnalyzeRunner returns a runner using path, or systemd-analyze from
// PATH when path is empty.
func NewAnalyzeRunner(path string) *AnalyzeRunner {
	if path == "" {
		path = DefaultAnalyzePath
	}
	return &AnalyzeRunner{Path: path}
}

func (r *AnalyzeRunner) BuildCommand(ctx context.Context, unit string) (*exec.Cmd, error) {
	if unit == "" {
		return nil, fmt.Errorf("empty unit name")
	}
	return exec.CommandContext(ctx, r.Path, "verify", unit), nil
}

func (r *AnalyzeRunner) Name() string { return "systemd-analyze" }

// FindAnalyze resolves path the way exec would.
func FindAnalyze(path string) (string, error) {
	if path == "" {
		path = DefaultAnalyzePath
	}
	return exec.LookPath(path)
}
