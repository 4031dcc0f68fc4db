// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package merge

// dedupe keeps the first occurrence of each item by key, in iteration
// order, discarding later items whose key collides. A key function error
// aborts the whole dedupe - this only happens for an ambiguous SPDX package
// with more than one purl.
func dedupe[T any](items []T, keyFn func(T) (string, error)) ([]T, error) {
	seen := make(map[string]bool, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key, err := keyFn(item)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out, nil
}
