// Package selectors implements the tiered selector registry used by the
// extraction layer. Each field carries primary, secondary, and fallback
// selector rules; resolution walks the tiers in order and records a running
// success rate per field so drift can be measured.
package selectors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Queryable is the document capability tiered resolution needs. Any HTML
// library can back it; the engine ships a goquery implementation.
type Queryable interface {
	// Text returns the trimmed text of the first node matching query, or "".
	Text(query string) string
	// Attr returns an attribute of the first node matching query.
	Attr(query, attr string) (string, bool)
}

// Tier identifies which selector tier produced a match.
type Tier int

// Selector tiers, tried in order.
const (
	TierPrimary Tier = iota
	TierSecondary
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Rule is one selector attempt: a CSS query plus an optional attribute name.
// An empty Attr means "take the node text".
type Rule struct {
	Query string `yaml:"query"`
	Attr  string `yaml:"attr,omitempty"`
}

func (r Rule) extract(doc Queryable) string {
	if r.Attr != "" {
		value, _ := doc.Attr(r.Query, r.Attr)
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(doc.Text(r.Query))
}

// FieldConfig is the extraction rule set for one field.
type FieldConfig struct {
	Name           string
	Primary        []Rule
	Secondary      []Rule
	Fallback       []Rule
	MinSuccessRate float64
	// Validate accepts the transformed value; nil means any non-empty value.
	Validate func(string) bool
	// Transform rewrites the raw match before validation; nil is identity.
	Transform func(string) string
}

func (f *FieldConfig) tiers() [3][]Rule {
	return [3][]Rule{f.Primary, f.Secondary, f.Fallback}
}

func (f *FieldConfig) apply(raw string) (string, bool) {
	value := raw
	if f.Transform != nil {
		value = strings.TrimSpace(f.Transform(value))
	}
	if value == "" {
		return "", false
	}
	if f.Validate != nil && !f.Validate(value) {
		return "", false
	}
	return value, true
}

// FieldStat counts selector attempts for one field.
type FieldStat struct {
	Success int `json:"success"`
	Total   int `json:"total"`
}

// SuccessRate returns success/total, or 0 when nothing was attempted.
func (s FieldStat) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total)
}

// Registry holds field configs and their running success counters. It is an
// explicitly constructed, injected service; no package-level state.
type Registry struct {
	mu     sync.Mutex
	fields map[string]*FieldConfig
	order  []string
	stats  map[string]*FieldStat
}

// NewRegistry builds a registry from field configs. Field names must be
// unique; later duplicates replace earlier ones.
func NewRegistry(fields ...FieldConfig) *Registry {
	r := &Registry{
		fields: make(map[string]*FieldConfig, len(fields)),
		stats:  make(map[string]*FieldStat, len(fields)),
	}
	for i := range fields {
		f := fields[i]
		if _, exists := r.fields[f.Name]; !exists {
			r.order = append(r.order, f.Name)
		}
		r.fields[f.Name] = &f
		r.stats[f.Name] = &FieldStat{}
	}
	return r
}

// Fields returns the configured field names in registration order.
func (r *Registry) Fields() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Field returns a copy of one field config.
func (r *Registry) Field(name string) (FieldConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fields[name]
	if !ok {
		return FieldConfig{}, false
	}
	return *f, true
}

// Resolve runs tiered resolution for a field against doc. Every rule attempt,
// hit or miss, is counted in the field's stat; the first non-empty match that
// passes validation wins.
func (r *Registry) Resolve(doc Queryable, field string) (string, bool) {
	value, _, ok := r.ResolveTier(doc, field)
	return value, ok
}

// ResolveTier is Resolve plus the tier that produced the match.
func (r *Registry) ResolveTier(doc Queryable, field string) (string, Tier, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fields[field]
	if !ok {
		return "", TierPrimary, false
	}
	stat := r.stats[field]

	for tier, rules := range f.tiers() {
		for _, rule := range rules {
			stat.Total++
			value, ok := f.apply(rule.extract(doc))
			if !ok {
				continue
			}
			stat.Success++
			return value, Tier(tier), true
		}
	}
	return "", TierPrimary, false
}

// MatchingRules returns every rule of a field that currently yields a valid
// value against doc, without touching the counters. The drift monitor uses it
// to decide which selectors still work.
func (r *Registry) MatchingRules(doc Queryable, field string) []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fields[field]
	if !ok {
		return nil
	}
	var working []Rule
	for _, rules := range f.tiers() {
		for _, rule := range rules {
			if _, ok := f.apply(rule.extract(doc)); ok {
				working = append(working, rule)
			}
		}
	}
	return working
}

// Narrow replaces a field's rule set with only the given rules, promoted to
// the primary tier. It is the temporary degraded mode used by auto-repair.
func (r *Registry) Narrow(field string, rules []Rule) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fields[field]
	if !ok || len(rules) == 0 {
		return false
	}
	f.Primary = append([]Rule(nil), rules...)
	f.Secondary = nil
	f.Fallback = nil
	return true
}

// Stats returns a snapshot of all field counters.
func (r *Registry) Stats() map[string]FieldStat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]FieldStat, len(r.stats))
	for name, stat := range r.stats {
		out[name] = *stat
	}
	return out
}

// ResetStats zeroes all field counters.
func (r *Registry) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.stats {
		r.stats[name] = &FieldStat{}
	}
}

// Clone returns a registry with the same field configs and fresh counters,
// for ad-hoc sampling runs that must not pollute the ongoing stats.
func (r *Registry) Clone() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := &Registry{
		fields: make(map[string]*FieldConfig, len(r.fields)),
		stats:  make(map[string]*FieldStat, len(r.fields)),
		order:  append([]string(nil), r.order...),
	}
	for name, f := range r.fields {
		copied := *f
		copied.Primary = append([]Rule(nil), f.Primary...)
		copied.Secondary = append([]Rule(nil), f.Secondary...)
		copied.Fallback = append([]Rule(nil), f.Fallback...)
		clone.fields[name] = &copied
		clone.stats[name] = &FieldStat{}
	}
	return clone
}

// DegradedFields returns the fields whose running success rate fell below
// their configured minimum, sorted by name.
func (r *Registry) DegradedFields() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var degraded []string
	for name, f := range r.fields {
		stat := r.stats[name]
		if stat.Total == 0 {
			continue
		}
		if stat.SuccessRate() < f.MinSuccessRate {
			degraded = append(degraded, name)
		}
	}
	sort.Strings(degraded)
	return degraded
}

// Describe returns a short human-readable summary of a field's rule counts.
func (r *Registry) Describe(field string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fields[field]
	if !ok {
		return field + ": unknown field"
	}
	return fmt.Sprintf("%s: %d primary, %d secondary, %d fallback",
		field, len(f.Primary), len(f.Secondary), len(f.Fallback))
}
