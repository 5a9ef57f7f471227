// Package common holds small helpers shared by the pipeline packages.
package common

// UnknownStr is the String form of out-of-range enum values.
const UnknownStr = "unknown"

// IsEmpty reports whether s has no elements.
func IsEmpty[S ~[]E, E any](s S) bool {
	return len(s) == 0
}

// IsMultiple reports whether s has more than one element.
func IsMultiple[S ~[]E, E any](s S) bool {
	return len(s) > 1
}

// First returns the first element of s, or false when s is empty.
func First[S ~[]E, E any](s S) (E, bool) {
	var zero E
	if IsEmpty(s) {
		return zero, false
	}

	return s[0], true
}

// Dedup returns names without repeats, keeping the first occurrence.
func Dedup(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))

	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}

		seen[n] = struct{}{}
		out = append(out, n)
	}

	return out
}

// SameSet reports whether a and b hold the same names, ignoring order and
// repeats.
func SameSet(a, b []string) bool {
	a, b = Dedup(a), Dedup(b)
	if len(a) != len(b) {
		return false
	}

	in := make(map[string]struct{}, len(a))
	for _, n := range a {
		in[n] = struct{}{}
	}

	for _, n := range b {
		if _, ok := in[n]; !ok {
			return false
		}
	}

	return true
}
