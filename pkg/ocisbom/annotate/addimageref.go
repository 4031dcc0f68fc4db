// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package annotate

import (
	"fmt"

	"github.com/konflux-ci/source-sbom-tools/pkg/util/maps"
)

// AddImageReference stamps an image's identity into doc, in place, and
// returns it. CycloneDX documents get a new root "container" component and
// metadata.component entry; SPDX documents get a new root package with the
// document's DESCRIBES relationship redirected onto it. Documents are
// represented the way encoding/json decodes them - map[string]any with JSON
// arrays as []any - so this stays a drop-in for whatever a CLI's
// json.Unmarshal into map[string]any produces.
func AddImageReference(doc map[string]any, image ImageRef) map[string]any {
	if bf, _ := doc["bomFormat"].(string); bf == "CycloneDX" {
		updateComponentInCycloneDX(doc, image)
	} else if maps.HasKey(doc, "spdxVersion") {
		updatePackageInSPDX(doc, image)
	}
	updateDocumentName(doc, image)
	return doc
}

func updateComponentInCycloneDX(doc map[string]any, image ImageRef) {
	component := map[string]any{
		"type":    "container",
		"name":    image.Name,
		"purl":    image.Purl().String(),
		"version": image.Tag,
		"hashes": []any{
			map[string]any{"alg": image.DigestAlgoCycloneDX(), "content": image.DigestHexVal()},
		},
	}

	components := asAnySlice(doc["components"])
	doc["components"] = prepend(components, component)

	metadata, _ := doc["metadata"].(map[string]any)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["component"] = component
	doc["metadata"] = metadata
}

func updatePackageInSPDX(doc map[string]any, image ImageRef) {
	const spdxID = "SPDXRef-image"

	pkg := map[string]any{
		"SPDXID":           spdxID,
		"name":             image.Name,
		"versionInfo":      image.Tag,
		"downloadLocation": "NOASSERTION",
		"licenseConcluded": "NOASSERTION",
		"supplier":         "NOASSERTION",
		"externalRefs": []any{
			map[string]any{
				"referenceLocator":  image.Purl().String(),
				"referenceType":     "purl",
				"referenceCategory": "PACKAGE-MANAGER",
			},
		},
		"checksums": []any{
			map[string]any{"algorithm": image.DigestAlgoSPDX(), "checksumValue": image.DigestHexVal()},
		},
	}

	doc["packages"] = prepend(asAnySlice(doc["packages"]), pkg)

	redirectCurrentRootsToNewRoot(doc, spdxID)

	docSPDXID, _ := doc["SPDXID"].(string)
	relationship := map[string]any{
		"spdxElementId":      docSPDXID,
		"relationshipType":   "DESCRIBES",
		"relatedSpdxElement": spdxID,
	}
	doc["relationships"] = prepend(asAnySlice(doc["relationships"]), relationship)
}

// updateDocumentName rewrites an SPDX document's name to "repository@digest".
// CycloneDX documents have no equivalent top-level name field.
func updateDocumentName(doc map[string]any, image ImageRef) {
	if maps.HasKey(doc, "spdxVersion") {
		doc["name"] = fmt.Sprintf("%s@%s", image.Repository, image.Digest)
	}
}

func prepend(items []any, item any) []any {
	out := make([]any, 0, len(items)+1)
	out = append(out, item)
	out = append(out, items...)
	return out
}

func asAnySlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asMapSlice(v any) []map[string]any {
	raw, _ := v.([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
