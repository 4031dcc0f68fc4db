// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package annotate

import "strings"

func findPackageBySPDXID(doc map[string]any, spdxID string) map[string]any {
	for _, p := range asMapSlice(doc["packages"]) {
		if id, _ := p["SPDXID"].(string); id == spdxID {
			return p
		}
	}
	return nil
}

func deletePackageBySPDXID(doc map[string]any, spdxID string) {
	packages := asAnySlice(doc["packages"])
	out := make([]any, 0, len(packages))
	removed := false
	for _, p := range packages {
		pm, ok := p.(map[string]any)
		if ok && !removed {
			if id, _ := pm["SPDXID"].(string); id == spdxID {
				removed = true
				continue
			}
		}
		out = append(out, p)
	}
	doc["packages"] = out
}

func deleteRelationshipByRelatedSPDXID(doc map[string]any, spdxID string) {
	relationships := asAnySlice(doc["relationships"])
	out := make([]any, 0, len(relationships))
	removed := false
	for _, r := range relationships {
		rm, ok := r.(map[string]any)
		if ok && !removed {
			if related, _ := rm["relatedSpdxElement"].(string); related == spdxID {
				removed = true
				continue
			}
		}
		out = append(out, r)
	}
	doc["relationships"] = out
}

// redirectVirtualRootToNewRoot rewrites every relationship endpoint that
// still points at virtualRoot to point at newRoot instead.
func redirectVirtualRootToNewRoot(doc map[string]any, virtualRoot, newRoot string) {
	for _, r := range asMapSlice(doc["relationships"]) {
		if id, _ := r["spdxElementId"].(string); id == virtualRoot {
			r["spdxElementId"] = newRoot
		}
		if id, _ := r["relatedSpdxElement"].(string); id == virtualRoot {
			r["relatedSpdxElement"] = newRoot
		}
	}
}

func describesTheDocument(relationship map[string]any, docSPDXID string) bool {
	element, _ := relationship["spdxElementId"].(string)
	relType, _ := relationship["relationshipType"].(string)
	return element == docSPDXID && relType == "DESCRIBES"
}

// isVirtualRoot reports whether a package is a synthesized placeholder root
// rather than a real top-level component, e.g.
// {"SPDXID": "SPDXRef-DocumentRoot-Unknown", "name": "", "versionInfo": ""}.
func isVirtualRoot(pkg map[string]any) bool {
	if pkg == nil {
		return false
	}
	name, _ := pkg["name"].(string)
	return name == "" || strings.HasPrefix(name, ".")
}

// redirectCurrentRootsToNewRoot makes newRoot the document's sole described
// package. Every existing DESCRIBES relationship is inspected: if it points
// at a virtual root, that placeholder package and its relationship are
// deleted and anything that referenced the placeholder is redirected onto
// newRoot; if it points at a real package, the edge becomes a CONTAINS
// relationship from newRoot instead of from the document.
func redirectCurrentRootsToNewRoot(doc map[string]any, newRoot string) {
	docSPDXID, _ := doc["SPDXID"].(string)

	for _, r := range asMapSlice(doc["relationships"]) {
		if !describesTheDocument(r, docSPDXID) {
			continue
		}
		relatedID, _ := r["relatedSpdxElement"].(string)
		currentRoot := findPackageBySPDXID(doc, relatedID)

		if isVirtualRoot(currentRoot) {
			deletePackageBySPDXID(doc, relatedID)
			deleteRelationshipByRelatedSPDXID(doc, relatedID)
			redirectVirtualRootToNewRoot(doc, relatedID, newRoot)
		} else {
			r["spdxElementId"] = newRoot
			r["relationshipType"] = "CONTAINS"
		}
	}
}
