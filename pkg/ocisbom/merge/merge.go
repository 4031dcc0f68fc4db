// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package merge combines two SBOM documents of the same format into one,
// either by treating both inputs as equally authoritative ("apparent
// sameness") or by letting one input win over matching entries in the other
// ("prefer cachi2"). Both strategies, and the CycloneDX/SPDX document
// surgery around them, mirror the reference merge scripts this package is
// ported from.
package merge

import (
	"fmt"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/sbom"
)

// Format identifies which SBOM document shape a document uses.
type Format string

const (
	CycloneDX Format = "cyclonedx"
	SPDX      Format = "spdx"
)

// ComponentsFunc merges two ordered sets of components/packages into the
// combined document's component list (still wrapped, so the caller can
// still call Unwrap to serialize).
type ComponentsFunc func(a, b []sbom.Item) ([]sbom.Item, error)

func itemsOf[T sbom.Item](items []T) []sbom.Item {
	out := make([]sbom.Item, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func unwrapAll(items []sbom.Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it.Unwrap()
	}
	return out
}

// ApparentSameness merges two component lists by deduplicating on purl (or
// a name@version fallback), keeping the first occurrence. Neither input is
// treated as more authoritative than the other.
func ApparentSameness(a, b []sbom.Item) ([]sbom.Item, error) {
	all := make([]sbom.Item, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return dedupe(all, apparentSamenessKey)
}

// PreferCachi2 merges a Syft-reported component list with a Cachi2-reported
// one, dropping any Syft component the Cachi2 side already accounts for and
// otherwise keeping both sides' entries. cachi2 always wins: its entries are
// never filtered.
func PreferCachi2(syft, cachi2 []sbom.Item) ([]sbom.Item, error) {
	isDuplicate, err := newSyftComponentFilter(cachi2)
	if err != nil {
		return nil, err
	}

	merged := make([]sbom.Item, 0, len(syft)+len(cachi2))
	for _, c := range syft {
		dup, err := isDuplicate(c)
		if err != nil {
			return nil, err
		}
		if !dup {
			merged = append(merged, c)
		}
	}
	merged = append(merged, cachi2...)
	return merged, nil
}

// DetectFormat inspects the top-level document keys to identify an SBOM's
// format.
func DetectFormat(doc map[string]any) (Format, error) {
	if bf, _ := doc["bomFormat"].(string); bf == "CycloneDX" {
		return CycloneDX, nil
	}
	if v, ok := doc["spdxVersion"]; ok && v != nil && v != "" {
		return SPDX, nil
	}
	return "", fmt.Errorf("merge: unrecognized SBOM format")
}

// SBOMs merges two raw SBOM documents of the same format using
// componentsFn, returning a new document shaped like a. Mismatched formats
// is an error.
func SBOMs(a, b map[string]any, componentsFn ComponentsFunc) (map[string]any, error) {
	fmtA, err := DetectFormat(a)
	if err != nil {
		return nil, err
	}
	fmtB, err := DetectFormat(b)
	if err != nil {
		return nil, err
	}
	if fmtA != fmtB {
		return nil, fmt.Errorf("merge: mismatched SBOM formats: %s x %s", fmtA, fmtB)
	}

	if fmtA == CycloneDX {
		return mergeCycloneDX(a, b, componentsFn)
	}
	return mergeSPDX(a, b, componentsFn)
}
