package units

import (
	"iter"
	"log/slog"

	"github.com/randomizedcoder/go-monitord/internal/varlink"
	"github.com/randomizedcoder/go-monitord/internal/wire"
)

// Metric kinds understood by Processor. Anything else is ignored so new
// upstream metrics do not break collection.
const (
	KindUnitActiveState   = "UnitActiveState"
	KindUnitLoadState     = "UnitLoadState"
	KindNRestarts         = "NRestarts"
	KindUnitsByTypeTotal  = "UnitsByTypeTotal"
	KindUnitsByStateTotal = "UnitsByStateTotal"
)

// Processor folds varlink metric records into Stats.
type Processor struct {
	filter Filter
	logger *slog.Logger
}

// NewProcessor returns a Processor applying filter to per-unit records.
func NewProcessor(filter Filter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{filter: filter, logger: logger}
}

// Fold consumes records until the sequence ends. A malformed record is
// skipped and logged; a stream error discards everything accumulated so
// far and is returned as is.
func (p *Processor) Fold(records iter.Seq2[varlink.Metric, error]) (*Stats, error) {
	stats := NewStats()
	count := 0
	for m, err := range records {
		if err != nil {
			p.logger.Debug("metric_stream_failed", "records", count, "error", err)
			return nil, err
		}
		p.Apply(stats, m)
		count++
	}
	p.logger.Debug("metric_stream_folded",
		"records", count,
		"unit_states", len(stats.UnitStates),
		"service_stats", len(stats.ServiceStats),
	)
	return stats, nil
}

// Apply folds a single record into stats.
func (p *Processor) Apply(stats *Stats, m varlink.Metric) {
	switch m.Kind() {
	case KindUnitActiveState:
		if p.skipUnit(m.Object) {
			return
		}
		name, ok := p.stringValue(m)
		if !ok {
			return
		}
		state, err := ParseActiveState(name)
		if err != nil {
			p.logger.Warn("metric_unrecognized_value", "metric", m.Name, "object", m.Object, "value", name)
			return
		}
		stats.setActiveState(m.Object, state)

	case KindUnitLoadState:
		if p.skipUnit(m.Object) {
			return
		}
		name, ok := p.stringValue(m)
		if !ok {
			return
		}
		state, err := ParseLoadState(name)
		if err != nil {
			p.logger.Warn("metric_unrecognized_value", "metric", m.Name, "object", m.Object, "value", name)
			return
		}
		stats.setLoadState(m.Object, state)

	case KindNRestarts:
		if p.skipUnit(m.Object) {
			return
		}
		if !isInteger(m.Value) {
			p.logger.Warn("metric_non_integer_value", "metric", m.Name, "value", m.Value.String())
			return
		}
		n, ok := m.Value.Uint32()
		if !ok {
			p.logger.Warn("metric_value_out_of_range", "metric", m.Name, "value", m.Value.String())
			return
		}
		stats.setRestarts(m.Object, n)

	case KindUnitsByTypeTotal:
		p.applyTotal(m, "type", stats.typeCounter)

	case KindUnitsByStateTotal:
		p.applyTotal(m, "state", stats.stateCounter)

	default:
		p.logger.Debug("metric_unhandled", "metric", m.Name)
	}
}

// applyTotal writes an aggregate counter selected by a string field.
// A missing field or an unknown field value is ignored.
func (p *Processor) applyTotal(m varlink.Metric, field string, counter func(string) *uint64) {
	key, ok := m.Field(field)
	if !ok {
		return
	}
	if !isInteger(m.Value) {
		p.logger.Warn("metric_non_integer_value", "metric", m.Name, "value", m.Value.String())
		return
	}
	n, ok := m.Value.Uint64()
	if !ok {
		p.logger.Warn("metric_negative_value", "metric", m.Name, "value", m.Value.String())
		return
	}
	c := counter(key)
	if c == nil {
		p.logger.Debug("metric_unhandled_field_value", "metric", m.Name, "field", field, "value", key)
		return
	}
	*c = n
}

func (p *Processor) skipUnit(name string) bool {
	if p.filter.Excludes(name) {
		p.logger.Debug("unit_filtered", "unit", name)
		return true
	}
	return false
}

func (p *Processor) stringValue(m varlink.Metric) (string, bool) {
	s, ok := m.Value.Str()
	if !ok {
		p.logger.Warn("metric_non_string_value", "metric", m.Name, "object", m.Object, "value", m.Value.String())
	}
	return s, ok
}

func isInteger(v wire.Value) bool {
	return v.Kind() == wire.KindInt || v.Kind() == wire.KindUint
}
