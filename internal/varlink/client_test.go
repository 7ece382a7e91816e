package varlink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// serveOnce accepts connections until the test ends, checks each request,
// and answers every call with the same replies.
func serveOnce(t *testing.T, replies []string) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "vl")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "m.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			answer(conn, replies)
		}
	}()

	return path
}

func answer(conn net.Conn, replies []string) {
	defer conn.Close()

	req, err := bufio.NewReader(conn).ReadBytes(0)
	if err != nil {
		return
	}
	var got request
	if err := json.Unmarshal(req[:len(req)-1], &got); err != nil || got.Method != ListMethod || !got.More {
		conn.Write([]byte(`{"error":"org.varlink.service.MethodNotFound"}` + "\x00"))
		return
	}
	for _, r := range replies {
		conn.Write([]byte(r + "\x00"))
	}
}

func collect(t *testing.T, c *Client) ([]Metric, error) {
	t.Helper()
	var out []Metric
	for m, err := range c.ListMetrics(context.Background()) {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

func TestListMetrics_Stream(t *testing.T) {
	path := serveOnce(t, []string{
		`{"parameters":{"name":"io.systemd.Manager.UnitActiveState","object":"a.service","value":"active"},"continues":true}`,
		`{"parameters":{"name":"io.systemd.Manager.UnitsByTypeTotal","value":12,"fields":{"type":"service"}},"continues":true}`,
		`{"parameters":{"name":"io.systemd.Manager.NRestarts","object":"a.service","value":3}}`,
	})

	c := NewClient(path, 2*time.Second, nil)
	got, err := collect(t, c)
	if err != nil {
		t.Fatalf("ListMetrics error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}

	if got[0].Kind() != "UnitActiveState" || got[0].Object != "a.service" {
		t.Errorf("record 0 = %+v", got[0])
	}
	if s, _ := got[0].Value.Str(); s != "active" {
		t.Errorf("record 0 value = %q, want active", s)
	}
	if typ, ok := got[1].Field("type"); !ok || typ != "service" {
		t.Errorf("record 1 type field = (%q, %v), want service", typ, ok)
	}
	if n, _ := got[2].Value.Uint32(); n != 3 {
		t.Errorf("record 2 value = %d, want 3", n)
	}
}

func TestListMetrics_IterateTwice(t *testing.T) {
	path := serveOnce(t, []string{
		`{"parameters":{"name":"io.systemd.Manager.UnitActiveState","object":"a.service","value":"active"}}`,
	})

	seq := NewClient(path, 2*time.Second, nil).ListMetrics(context.Background())
	for pass := 1; pass <= 2; pass++ {
		records := 0
		for _, err := range seq {
			if err != nil {
				t.Fatalf("pass %d: %v", pass, err)
			}
			records++
		}
		if records != 1 {
			t.Errorf("pass %d: records = %d, want 1", pass, records)
		}
	}
}

func TestListMetrics_ErrorReply(t *testing.T) {
	path := serveOnce(t, []string{
		`{"parameters":{"name":"io.systemd.Manager.UnitActiveState","object":"a.service","value":"active"},"continues":true}`,
		`{"error":"io.systemd.Metrics.NoSuchMetric","parameters":{}}`,
	})

	got, err := collect(t, NewClient(path, 2*time.Second, nil))
	var vErr *Error
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if vErr.Name != "io.systemd.Metrics.NoSuchMetric" {
		t.Errorf("error name = %q", vErr.Name)
	}
	if len(got) != 1 {
		t.Errorf("records before error = %d, want 1", len(got))
	}
}

func TestListMetrics_TruncatedStream(t *testing.T) {
	// Server closes after a record that promised more.
	path := serveOnce(t, []string{
		`{"parameters":{"name":"io.systemd.Manager.UnitLoadState","object":"a.service","value":"loaded"},"continues":true}`,
	})

	_, err := collect(t, NewClient(path, 2*time.Second, nil))
	if err == nil {
		t.Fatal("expected an error for a truncated stream")
	}
}

func TestListMetrics_ConnectFailure(t *testing.T) {
	_, err := collect(t, NewClient(filepath.Join(t.TempDir(), "missing.sock"), time.Second, nil))
	if err == nil || !strings.Contains(err.Error(), "connect") {
		t.Errorf("error = %v, want connect failure", err)
	}
}

func TestListMetrics_PathTooLong(t *testing.T) {
	_, err := collect(t, NewClient("/"+strings.Repeat("x", 200), time.Second, nil))
	if err == nil || !strings.Contains(err.Error(), "too long") {
		t.Errorf("error = %v, want path length error", err)
	}
}

func TestListMetrics_EarlyBreak(t *testing.T) {
	path := serveOnce(t, []string{
		`{"parameters":{"name":"a.One","value":1},"continues":true}`,
		`{"parameters":{"name":"a.Two","value":2},"continues":true}`,
		`{"parameters":{"name":"a.Three","value":3}}`,
	})

	count := 0
	for _, err := range NewClient(path, 2*time.Second, nil).ListMetrics(context.Background()) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 1 {
			break
		}
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestMetric_Kind(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"io.systemd.Manager.UnitActiveState", "UnitActiveState"},
		{"NRestarts", "NRestarts"},
		{"", ""},
		{"trailing.", ""},
	}
	for _, tt := range tests {
		if got := (Metric{Name: tt.name}).Kind(); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{Name: "org.varlink.service.InvalidParameter", Parameters: json.RawMessage(`{"parameter":"more"}`)}
	if !strings.Contains(e.Error(), "InvalidParameter") || !strings.Contains(e.Error(), "more") {
		t.Errorf("Error() = %q", e.Error())
	}
}
