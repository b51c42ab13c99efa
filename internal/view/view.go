// Package view computes the read-only projections the console pages show:
// filtered and sorted lists, assigned/available splits, log pages and the
// dashboard. Every function is pure and recomputed on each call.
package view

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortMode selects the list ordering.
type SortMode string

const (
	// SortAlpha orders by display name.
	SortAlpha SortMode = "alpha"
	// SortByGroup orders by the first group name; entries without a group
	// go last.
	SortByGroup SortMode = "by-group"
)

// ParseSortMode maps a query value to a SortMode, defaulting to SortAlpha.
func ParseSortMode(s string) SortMode {
	if SortMode(s) == SortByGroup {
		return SortByGroup
	}
	return SortAlpha
}

// Filter keeps the items where any field contains query, ignoring case. An
// empty query keeps everything. The result is a new slice.
func Filter[T any](items []T, query string, fields ...func(T) string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if q == "" || matches(it, q, fields) {
			out = append(out, it)
		}
	}
	return out
}

func matches[T any](it T, q string, fields []func(T) string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f(it)), q) {
			return true
		}
	}
	return false
}

// Sort returns a stably sorted copy of items. name and group extract the
// sort keys; group returns "" for entries without a group. Keys are
// collated, so "amy" sorts before "Bob".
func Sort[T any](items []T, mode SortMode, name, group func(T) string) []T {
	out := make([]T, len(items))
	copy(out, items)

	// A Collator keeps scratch buffers; one per call.
	c := collate.New(language.Und)
	less := func(a, b T) bool { return c.CompareString(name(a), name(b)) < 0 }
	if mode == SortByGroup {
		less = func(a, b T) bool {
			ga, gb := group(a), group(b)
			if ga == "" || gb == "" {
				return ga != "" && gb == ""
			}
			return c.CompareString(ga, gb) < 0
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Partitioned is a registry split by membership.
type Partitioned[T any] struct {
	Assigned  []T `json:"assigned"`
	Available []T `json:"available"`
	// Orphans are assigned keys the registry does not know.
	Orphans []string `json:"orphans,omitempty"`
}

// Partition splits global into the members named by assigned and the rest.
// Both halves keep the order of global, so Assigned ∪ Available = global
// and they never overlap.
func Partition[T any](global []T, assigned []string, key func(T) string) Partitioned[T] {
	want := make(map[string]bool, len(assigned))
	for _, k := range assigned {
		want[k] = true
	}

	p := Partitioned[T]{Assigned: []T{}, Available: []T{}}
	known := make(map[string]bool, len(global))
	for _, it := range global {
		k := key(it)
		known[k] = true
		if want[k] {
			p.Assigned = append(p.Assigned, it)
		} else {
			p.Available = append(p.Available, it)
		}
	}
	for _, k := range assigned {
		if !known[k] {
			p.Orphans = append(p.Orphans, k)
		}
	}
	return p
}
