// Package varlink is a minimal client for systemd's varlink metrics
// interface. It implements only what collection needs: one connection, one
// streaming List call, and decoding of the returned metric records.
package varlink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/randomizedcoder/go-monitord/internal/wire"
)

const (
	// DefaultSocketPath is where systemd publishes manager metrics.
	DefaultSocketPath = "/run/systemd/report/io.systemd.Manager"

	// ListMethod enumerates every metric the service exposes.
	ListMethod = "io.systemd.Metrics.List"

	// maxUnixSocketPathLen is the safe maximum path length for Unix sockets.
	// sockaddr_un.sun_path is typically 108 bytes; we use 104 for safety.
	maxUnixSocketPathLen = 104

	// maxReplySize bounds a single NUL-terminated reply.
	maxReplySize = 1 << 20
)

// ErrReplyTooLarge is returned when a reply exceeds maxReplySize.
var ErrReplyTooLarge = errors.New("varlink reply too large")

// Metric is one record of a metrics List reply.
type Metric struct {
	Name   string                `json:"name"`
	Object string                `json:"object,omitempty"`
	Value  wire.Value            `json:"value"`
	Fields map[string]wire.Value `json:"fields,omitempty"`
}

// Kind returns the last dotted segment of the metric name, e.g.
// "UnitActiveState" for "io.systemd.Manager.UnitActiveState".
func (m Metric) Kind() string {
	if i := strings.LastIndexByte(m.Name, '.'); i >= 0 {
		return m.Name[i+1:]
	}
	return m.Name
}

// Field returns a string-valued field of the record.
func (m Metric) Field(name string) (string, bool) {
	v, ok := m.Fields[name]
	if !ok {
		return "", false
	}
	return v.Str()
}

// Error is a varlink error reply.
type Error struct {
	Name       string
	Parameters json.RawMessage
}

func (e *Error) Error() string {
	if len(e.Parameters) == 0 || string(e.Parameters) == "{}" {
		return "varlink error: " + e.Name
	}
	return fmt.Sprintf("varlink error: %s %s", e.Name, e.Parameters)
}

type request struct {
	Method     string `json:"method"`
	Parameters any    `json:"parameters,omitempty"`
	More       bool   `json:"more,omitempty"`
}

type reply struct {
	Parameters json.RawMessage `json:"parameters"`
	Continues  bool            `json:"continues"`
	Error      string          `json:"error"`
}

// Client talks to one varlink service socket.
type Client struct {
	socketPath string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient returns a client for socketPath. timeout bounds the whole List
// call, including connection setup; zero means no deadline beyond ctx.
func NewClient(socketPath string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{socketPath: socketPath, timeout: timeout, logger: logger}
}

// validateSocketPath checks that path is within Unix socket length limits.
func validateSocketPath(path string) error {
	if len(path) > maxUnixSocketPathLen {
		return fmt.Errorf("socket path too long (%d > %d bytes): %s",
			len(path), maxUnixSocketPathLen, path)
	}
	return nil
}

// ListMetrics connects, issues one List call with more=true, and yields
// each record. Each range over the sequence issues a fresh call with its
// own timeout. Any transport or decode failure is yielded once
// as an error and ends the sequence.
func (c *Client) ListMetrics(ctx context.Context) iter.Seq2[Metric, error] {
	return func(yield func(Metric, error) bool) {
		if err := validateSocketPath(c.socketPath); err != nil {
			yield(Metric{}, err)
			return
		}
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		var d net.Dialer
		conn, err := d.DialContext(callCtx, "unix", c.socketPath)
		if err != nil {
			yield(Metric{}, fmt.Errorf("connect %s: %w", c.socketPath, err))
			return
		}
		defer conn.Close()
		if deadline, ok := callCtx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}

		if err := writeRequest(conn, request{Method: ListMethod, More: true}); err != nil {
			yield(Metric{}, err)
			return
		}

		r := bufio.NewReader(conn)
		for n := 0; ; n++ {
			rep, err := readReply(r)
			if err != nil {
				yield(Metric{}, fmt.Errorf("read reply %d: %w", n, err))
				return
			}
			if rep.Error != "" {
				yield(Metric{}, &Error{Name: rep.Error, Parameters: rep.Parameters})
				return
			}

			var m Metric
			if err := json.Unmarshal(rep.Parameters, &m); err != nil {
				c.logger.Debug("varlink_record_decode_failed", "index", n, "error", err)
				yield(Metric{}, fmt.Errorf("decode record %d: %w", n, err))
				return
			}
			if !yield(m, nil) {
				return
			}
			if !rep.Continues {
				return
			}
		}
	}
}

func writeRequest(conn net.Conn, req request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	payload = append(payload, 0)
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// readReply reads one NUL-terminated message.
func readReply(r *bufio.Reader) (reply, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice(0)
		buf = append(buf, chunk...)
		if len(buf) > maxReplySize {
			return reply{}, ErrReplyTooLarge
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return reply{}, err
	}

	var rep reply
	if err := json.Unmarshal(buf[:len(buf)-1], &rep); err != nil {
		return reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return rep, nil
}
