package correlation

import (
	"sort"

	"github.com/explainify/explainify/internal/findings"
)

// Location is the correlation key of a finding.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
}

// LocationIndex maps a location to the findings one tool reported there, in report order.
type LocationIndex map[Location][]findings.Finding

// BuildIndex indexes one tool's findings by (file, start line). Findings without a
// file or a positive start line are skipped. Projects are visited in sorted order.
func BuildIndex(c findings.Collection) LocationIndex {
	idx := LocationIndex{}

	projects := make([]string, 0, len(c))
	for p := range c {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	for _, p := range projects {
		for _, f := range c[p] {
			if !f.Resolvable() {
				continue
			}
			key := Location{File: f.File, StartLine: f.StartLine}
			idx[key] = append(idx[key], f)
		}
	}
	return idx
}

// Has reports whether the index holds the location.
func (idx LocationIndex) Has(loc Location) bool {
	_, ok := idx[loc]
	return ok
}

// Keys returns the locations ordered by file, then start line.
func (idx LocationIndex) Keys() []Location {
	keys := make([]Location, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sortLocations(keys)
	return keys
}

// Intersect returns the locations present in every index, ordered. With no
// index the result is empty.
func Intersect(indices ...LocationIndex) []Location {
	if len(indices) == 0 {
		return nil
	}

	var out []Location
	for _, key := range indices[0].Keys() {
		inAll := true
		for _, other := range indices[1:] {
			if !other.Has(key) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, key)
		}
	}
	return out
}

// Difference returns the findings of a at locations missing from b, ordered by location.
func Difference(a, b LocationIndex) []findings.Finding {
	var out []findings.Finding
	for _, key := range a.Keys() {
		if !b.Has(key) {
			out = append(out, a[key]...)
		}
	}
	return out
}

func sortLocations(locs []Location) {
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].File != locs[j].File {
			return locs[i].File < locs[j].File
		}
		return locs[i].StartLine < locs[j].StartLine
	})
}
