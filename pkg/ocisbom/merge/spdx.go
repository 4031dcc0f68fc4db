// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package merge

import (
	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/sbom"
)

func mergeSPDX(a, b map[string]any, componentsFn ComponentsFunc) (map[string]any, error) {
	packagesA := itemsOf(sbom.WrapAsSPDX(asMapSlice(a["packages"])))
	packagesB := itemsOf(sbom.WrapAsSPDX(asMapSlice(b["packages"])))

	merged, err := componentsFn(packagesA, packagesB)
	if err != nil {
		return nil, err
	}
	mergedUnwrapped := unwrapAll(merged)

	mergedIDs := make(map[string]bool, len(mergedUnwrapped))
	for _, p := range mergedUnwrapped {
		if id, ok := p["SPDXID"].(string); ok {
			mergedIDs[id] = true
		}
	}

	idA, _ := a["SPDXID"].(string)
	idB, _ := b["SPDXID"].(string)

	replaceSPDXID := func(id string) (string, bool) {
		if id == idB {
			// The merged document can only have one document SPDXID; keep a's.
			return idA, true
		}
		if id == idA || mergedIDs[id] {
			return id, true
		}
		return "", false
	}

	mergedRelationships := mergeSPDXRelationships(
		asMapSlice(a["relationships"]),
		asMapSlice(b["relationships"]),
		replaceSPDXID,
	)

	mergedCreationInfo := mergeSPDXCreationInfo(
		asMap(a["creationInfo"]),
		asMap(b["creationInfo"]),
	)

	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v
	}

	packagesAny := make([]any, len(mergedUnwrapped))
	for i, p := range mergedUnwrapped {
		packagesAny[i] = p
	}
	out["packages"] = packagesAny
	out["relationships"] = mergedRelationships
	out["creationInfo"] = mergedCreationInfo
	// This package has no handling for .files; it's dropped outright rather
	// than carried through stale.
	delete(out, "files")

	return out, nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

type relationshipKey struct {
	element        string
	relType        string
	relatedElement string
}

// mergeSPDXRelationships concatenates two relationship lists, rewriting or
// dropping each endpoint SPDXID per replaceSPDXID, then deduplicates on
// (spdxElementId, relationshipType, relatedSpdxElement).
func mergeSPDXRelationships(a, b []map[string]any, replaceSPDXID func(string) (string, bool)) []any {
	seen := map[relationshipKey]bool{}
	out := make([]any, 0, len(a)+len(b))

	for _, rels := range [][]map[string]any{a, b} {
		for _, rel := range rels {
			elementRaw, _ := rel["spdxElementId"].(string)
			relatedRaw, _ := rel["relatedSpdxElement"].(string)
			relType, _ := rel["relationshipType"].(string)

			element, ok1 := replaceSPDXID(elementRaw)
			related, ok2 := replaceSPDXID(relatedRaw)
			if !ok1 || !ok2 {
				continue
			}

			key := relationshipKey{element: element, relType: relType, relatedElement: related}
			if seen[key] {
				continue
			}
			seen[key] = true

			updated := make(map[string]any, len(rel))
			for k, v := range rel {
				updated[k] = v
			}
			updated["spdxElementId"] = element
			updated["relatedSpdxElement"] = related
			out = append(out, updated)
		}
	}
	return out
}

// mergeSPDXCreationInfo merges two creationInfo blocks, keeping a's shape
// and deduplicating its creators list against b's.
func mergeSPDXCreationInfo(a, b map[string]any) map[string]any {
	if a == nil {
		a = map[string]any{}
	}
	creatorsA := asStringSlice(a["creators"])
	creatorsB := asStringSlice(b["creators"])

	seen := map[string]bool{}
	merged := make([]any, 0, len(creatorsA)+len(creatorsB))
	for _, creators := range [][]string{creatorsA, creatorsB} {
		for _, c := range creators {
			if seen[c] {
				continue
			}
			seen[c] = true
			merged = append(merged, c)
		}
	}

	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v
	}
	out["creators"] = merged
	return out
}

func asStringSlice(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
