package model

import (
	"sort"
)

// Arc is an ordered origin/destination pair.
type Arc struct {
	From, To string
}

// Key returns the arc's canonical index key.
func (a Arc) Key() Key {
	return K(a.From, a.To)
}

// Registry holds the typed sets and indexed parameters that parameterize
// one model instance. It is built once from the validated input tables
// and is immutable after assembly.
type Registry struct {
	sets   map[string][]string
	params map[string]map[Key]float64

	periodIndex map[string]int
}

// NewRegistry copies the input dictionaries into a registry. Set order
// is preserved as supplied; time periods are assumed already ordered.
func NewRegistry(sets map[string][]string, params map[string]map[Key]float64) *Registry {
	r := &Registry{
		sets:        make(map[string][]string, len(sets)),
		params:      make(map[string]map[Key]float64, len(params)),
		periodIndex: make(map[string]int),
	}
	for name, elems := range sets {
		r.sets[name] = append([]string(nil), elems...)
	}
	for name, table := range params {
		dst := make(map[Key]float64, len(table))
		for k, v := range table {
			dst[k] = v
		}
		r.params[name] = dst
	}
	for i, t := range r.sets[SetTimePeriods] {
		r.periodIndex[t] = i
	}
	return r
}

// Set returns the elements of a named set (nil when absent).
func (r *Registry) Set(name string) []string {
	return r.sets[name]
}

// HasSet reports whether the named set is present and non-empty.
func (r *Registry) HasSet(name string) bool {
	return len(r.sets[name]) > 0
}

// SetNames returns all set names, sorted.
func (r *Registry) SetNames() []string {
	names := make([]string, 0, len(r.sets))
	for n := range r.sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Arcs parses a pair-valued set into arcs.
func (r *Registry) Arcs(name string) []Arc {
	elems := r.sets[name]
	arcs := make([]Arc, 0, len(elems))
	for _, e := range elems {
		parts := Key(e).Parts()
		if len(parts) != 2 {
			continue
		}
		arcs = append(arcs, Arc{From: parts[0], To: parts[1]})
	}
	return arcs
}

// Param returns a parameter table (nil when absent).
func (r *Registry) Param(name string) map[Key]float64 {
	return r.params[name]
}

// HasParam reports whether the named parameter table is present.
func (r *Registry) HasParam(name string) bool {
	return len(r.params[name]) > 0
}

// Value looks up one parameter entry.
func (r *Registry) Value(name string, idx ...string) (float64, bool) {
	table, ok := r.params[name]
	if !ok {
		return 0, false
	}
	v, ok := table[K(idx...)]
	return v, ok
}

// ValueOr looks up one parameter entry, substituting def when the table
// or entry is absent.
func (r *Registry) ValueOr(name string, def float64, idx ...string) float64 {
	if v, ok := r.Value(name, idx...); ok {
		return v
	}
	return def
}

// Scalar looks up an unindexed parameter.
func (r *Registry) Scalar(name string) (float64, bool) {
	return r.Value(name)
}

// ScalarOr looks up an unindexed parameter with a default.
func (r *Registry) ScalarOr(name string, def float64) float64 {
	return r.ValueOr(name, def)
}

// Periods returns the ordered time periods.
func (r *Registry) Periods() []string {
	return r.sets[SetTimePeriods]
}

// PeriodIndex returns a period's position in the horizon, or -1.
func (r *Registry) PeriodIndex(t string) int {
	if i, ok := r.periodIndex[t]; ok {
		return i
	}
	return -1
}

// PrevPeriod returns the predecessor of t, or "" for the first period.
func (r *Registry) PrevPeriod(t string) string {
	i := r.PeriodIndex(t)
	if i <= 0 {
		return ""
	}
	return r.sets[SetTimePeriods][i-1]
}

// FirstPeriod returns the first period of the horizon.
func (r *Registry) FirstPeriod() string {
	ps := r.Periods()
	if len(ps) == 0 {
		return ""
	}
	return ps[0]
}

// LastPeriod returns the final period of the horizon.
func (r *Registry) LastPeriod() string {
	ps := r.Periods()
	if len(ps) == 0 {
		return ""
	}
	return ps[len(ps)-1]
}

// ArcsInto returns all arcs of the named pair set whose destination is loc.
func (r *Registry) ArcsInto(name, loc string) []Arc {
	var out []Arc
	for _, a := range r.Arcs(name) {
		if a.To == loc {
			out = append(out, a)
		}
	}
	return out
}

// ArcsOutOf returns all arcs of the named pair set whose origin is loc.
func (r *Registry) ArcsOutOf(name, loc string) []Arc {
	var out []Arc
	for _, a := range r.Arcs(name) {
		if a.From == loc {
			out = append(out, a)
		}
	}
	return out
}

// Locations returns every location identifier across all role sets,
// deduplicated, in role-set order.
func (r *Registry) Locations() []string {
	roleSets := []string{
		SetProductionPads, SetCompletionsPads, SetExternalSources,
		SetDisposalSites, SetStorageSites, SetTreatmentSites,
		SetReuseOptions, SetNetworkNodes,
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range roleSets {
		for _, l := range r.sets[s] {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}

// InSet reports whether loc is a member of the named set.
func (r *Registry) InSet(name, loc string) bool {
	for _, e := range r.sets[name] {
		if e == loc {
			return true
		}
	}
	return false
}
