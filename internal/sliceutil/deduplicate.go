// Package sliceutil provides generic slice helpers shared by the resolver.
package sliceutil

import "strings"

// Deduplicate keeps the first item for each key and preserves order.
//
//	rows := []resolver.Course{{Code: "CPENG511"}, {Code: "EEENG301"}, {Code: "CPENG511"}}
//	sliceutil.Deduplicate(rows, func(c resolver.Course) string { return c.Code })
//	// [{Code: "CPENG511"} {Code: "EEENG301"}]
func Deduplicate[T any, K comparable](items []T, key func(T) K) []T {
	if len(items) == 0 {
		return items
	}

	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// TrimNonEmpty trims surrounding whitespace from every item and drops the
// ones left empty.
func TrimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
