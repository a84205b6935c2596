// Package strings provides string list helpers used when reading configuration.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value, trims each element, drops empty
// ones, and removes duplicates case-insensitively. Order is preserved and
// elements are lowercased, which is the canonical form for addresses.
//
//	SplitList(" 0xAB , 0xab,,0xcd ")
//	// Returns: []string{"0xab", "0xcd"}
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return DedupeAndTrimLower(strings.Split(value, ","))
}

// DedupeAndTrimLower trims and lowercases each element, dropping empties and
// duplicates while keeping first-seen order.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}

	return result
}
