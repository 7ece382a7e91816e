package units

import (
	"log/slog"
	"maps"
	"slices"
)

// Filter decides which unit names get per-unit tracking.
// Block-list membership always excludes; a non-empty allow-list restricts
// to its members; an empty allow-list admits every name not blocked.
// The zero Filter admits everything.
type Filter struct {
	allow map[string]struct{}
	block map[string]struct{}
}

// NewFilter builds a Filter from exact unit names.
func NewFilter(allow, block []string) Filter {
	return Filter{allow: toSet(allow), block: toSet(block)}
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Excludes reports whether name is filtered out.
func (f Filter) Excludes(name string) bool {
	if _, blocked := f.block[name]; blocked {
		return true
	}
	if len(f.allow) == 0 {
		return false
	}
	_, allowed := f.allow[name]
	return !allowed
}

// Admits is the negation of Excludes.
func (f Filter) Admits(name string) bool {
	return !f.Excludes(name)
}

// HasAllowList reports whether an allow-list restricts tracking.
func (f Filter) HasAllowList() bool { return len(f.allow) > 0 }

// HasBlockList reports whether a block-list is configured.
func (f Filter) HasBlockList() bool { return len(f.block) > 0 }

// LogValue reports the configured lists, or "all" when nothing is
// filtered.
func (f Filter) LogValue() slog.Value {
	var attrs []slog.Attr
	if f.HasAllowList() {
		attrs = append(attrs, slog.Any("allow", slices.Sorted(maps.Keys(f.allow))))
	}
	if f.HasBlockList() {
		attrs = append(attrs, slog.Any("block", slices.Sorted(maps.Keys(f.block))))
	}
	if len(attrs) == 0 {
		return slog.StringValue("all")
	}
	return slog.GroupValue(attrs...)
}
