package logging

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the maximum number of lines kept per handler.
	MaxBufferedLines = 100
)

// LineHandler consumes the stderr of an external tool such as
// systemd-analyze. It keeps the most recent lines in a circular buffer and
// logs each one at a level derived from its content.
type LineHandler struct {
	source  string
	logger  *slog.Logger
	verbose bool

	buffer []string
	bufIdx int
	total  int
	mu     sync.Mutex
}

// NewLineHandler creates a handler whose log records carry source (for
// example the unit being verified).
func NewLineHandler(source string, logger *slog.Logger, verbose bool) *LineHandler {
	return &LineHandler{
		source:  source,
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// HandleReader reads lines from r until EOF.
func (h *LineHandler) HandleReader(r io.Reader) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, MaxLineLength)
	scanner.Buffer(buf, MaxLineLength)

	for scanner.Scan() {
		h.HandleLine(scanner.Text())
	}
}

// HandleLine buffers and logs a single line. Blank lines are ignored.
func (h *LineHandler) HandleLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.total++
	h.mu.Unlock()

	h.logLine(line)
}

func (h *LineHandler) logLine(line string) {
	level := classifyLine(line)

	// In non-verbose mode, only log warnings and errors
	if !h.verbose && level == slog.LevelDebug {
		return
	}

	h.logger.Log(context.Background(), level, "external_stderr",
		"source", h.source,
		"line", line,
	)
}

// classifyLine maps systemd-analyze output to a log level. Problems with a
// unit file are reported at warn: they are findings about the host, not
// failures of monitord.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	for _, p := range ErrorPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return slog.LevelWarn
		}
	}
	if strings.Contains(lower, "ignoring") ||
		strings.Contains(lower, "deprecated") {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// Lines returns how many non-blank lines were handled.
func (h *LineHandler) Lines() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (h *LineHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}
	return lines
}

// ErrorPatterns are systemd-analyze messages that mark a unit as broken.
var ErrorPatterns = []string{
	"not executable",
	"No such file or directory",
	"Unknown section",
	"Unknown key",
	"Failed to",
	"bad-setting",
	"is not valid",
}

// CountErrors counts occurrences of ErrorPatterns in the buffer.
func (h *LineHandler) CountErrors() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[string]int)
	for _, line := range h.buffer {
		if line == "" {
			continue
		}
		for _, pattern := range ErrorPatterns {
			if strings.Contains(line, pattern) {
				counts[pattern]++
			}
		}
	}
	return counts
}
