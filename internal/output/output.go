// Package output renders a snapshot in the configured output format.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/randomizedcoder/go-monitord/internal/collector"
	"github.com/randomizedcoder/go-monitord/internal/config"
	"github.com/randomizedcoder/go-monitord/internal/metrics"
	"github.com/randomizedcoder/go-monitord/internal/stats"
)

// Writer renders one snapshot to w.
type Writer func(w io.Writer, snap *collector.MonitordStats) error

// Options selects and parameterises a Writer.
type Options struct {
	Format string

	// KeyPrefix prefixes every json-flat key.
	KeyPrefix string

	// Aggregate supplies cycle statistics for the prometheus format. Optional.
	Aggregate func() *stats.AggregatedStats

	// HostName titles the table format. Empty means the local host name.
	HostName string
}

// New returns the Writer for opts.Format.
func New(opts Options) (Writer, error) {
	switch opts.Format {
	case config.FormatJSON:
		return writeJSON, nil
	case config.FormatJSONPretty:
		return writeJSONPretty, nil
	case config.FormatJSONFlat:
		return func(w io.Writer, snap *collector.MonitordStats) error {
			return writeJSONFlat(w, snap, opts.KeyPrefix)
		}, nil
	case config.FormatYAML:
		return writeYAML, nil
	case config.FormatTable:
		name := opts.HostName
		if name == "" {
			name = HostName()
		}
		return func(w io.Writer, snap *collector.MonitordStats) error {
			return writeTable(w, snap, name)
		}, nil
	case config.FormatPrometheus:
		return prometheusWriter(metrics.NewExporter(), opts.Aggregate), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
}

func writeJSON(w io.Writer, snap *collector.MonitordStats) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func writeJSONPretty(w io.Writer, snap *collector.MonitordStats) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func writeYAML(w io.Writer, snap *collector.MonitordStats) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func prometheusWriter(e *metrics.Exporter, aggregate func() *stats.AggregatedStats) Writer {
	return func(w io.Writer, snap *collector.MonitordStats) error {
		e.Update(snap)
		if aggregate != nil {
			e.RecordAggregate(aggregate())
		}
		return e.WriteText(w)
	}
}
