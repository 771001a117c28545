// Package strings provides string slice utilities for request
// normalization.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims whitespace, lowercases, and removes
// duplicates and empty strings from a slice, preserving first-seen
// order. Bulk verification requests use it so the same identity written
// with different casing collapses to one entry.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
