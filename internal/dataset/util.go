package dataset

import (
	"fmt"
	"sort"
)

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// UniqueColumns returns names with repeats renamed to name_2, name_3...
// skipping suffixes that are already taken.
func UniqueColumns(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	next := map[string]int{}
	for i, n := range names {
		candidate := n
		for taken[candidate] {
			next[n]++
			candidate = fmt.Sprintf("%s_%d", n, next[n]+1)
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}
