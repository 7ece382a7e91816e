// Package process runs external tools and captures their outcome.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/randomizedcoder/go-monitord/internal/logging"
)

// Runner creates executable commands for a unit.
// This interface keeps callers independent of the tool being run.
type Runner interface {
	// BuildCommand returns a ready-to-start command for the given unit.
	// The command should NOT be started yet.
	BuildCommand(ctx context.Context, unit string) (*exec.Cmd, error)

	// Name returns a human-readable name for this process type.
	Name() string
}

// Result captures the outcome of a process execution.
type Result struct {
	Unit      string
	ExitCode  int
	StartTime int64 // Unix timestamp
	EndTime   int64 // Unix timestamp
	Stderr    []string
	// StderrLines counts every non-blank stderr line, including those
	// evicted from Stderr.
	StderrLines int
	// Problems counts the logging.ErrorPatterns found in Stderr.
	Problems map[string]int
	Error    error // set when the process could not be run at all
}

// Run builds, starts and waits for the command for unit. Stderr is
// streamed through a logging.LineHandler and its most recent lines are
// returned in the Result. A non-zero exit is not an Error.
func Run(ctx context.Context, r Runner, unit string, logger *slog.Logger, verbose bool) (res Result) {
	res = Result{Unit: unit, StartTime: time.Now().Unix()}
	defer func() { res.EndTime = time.Now().Unix() }()

	cmd, err := r.BuildCommand(ctx, unit)
	if err != nil {
		res.Error = fmt.Errorf("build %s command: %w", r.Name(), err)
		return res
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		res.Error = fmt.Errorf("%s stderr: %w", r.Name(), err)
		return res
	}
	if err := cmd.Start(); err != nil {
		res.Error = fmt.Errorf("start %s: %w", r.Name(), err)
		return res
	}

	handler := logging.NewLineHandler(unit, logger, verbose)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.HandleReader(stderr)
	}()
	// The pipe must be drained before Wait closes it.
	wg.Wait()

	err = cmd.Wait()
	res.Stderr = handler.RecentLines(logging.MaxBufferedLines)
	res.StderrLines = handler.Lines()
	res.Problems = handler.CountErrors()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.Error = fmt.Errorf("wait %s: %w", r.Name(), err)
	}
	return res
}
