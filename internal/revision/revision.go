// Package revision manages the ordered migration history: numbered SQL
// scripts in a directory, and a bookkeeping table recording which of them a
// database has applied (or been stamped with).
package revision

import "sort"

// Revision identifies one migration step in the ordered history.
type Revision struct {
	Version  int64
	Name     string
	Filename string
}

// Set is the normalized "which revisions" answer used at every collaborator
// boundary. Queries that may yield one value, many, or none all return a Set.
type Set map[int64]struct{}

// NewSet builds a Set from versions.
func NewSet(versions ...int64) Set {
	s := make(Set, len(versions))
	for _, v := range versions {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether version v is in the set.
func (s Set) Contains(v int64) bool {
	_, ok := s[v]
	return ok
}

// Empty reports whether the set has no revisions.
func (s Set) Empty() bool { return len(s) == 0 }

// Max returns the highest version in the set, and false when empty.
func (s Set) Max() (int64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	var max int64
	first := true
	for v := range s {
		if first || v > max {
			max = v
			first = false
		}
	}
	return max, true
}

// Sorted returns the versions in ascending order.
func (s Set) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
