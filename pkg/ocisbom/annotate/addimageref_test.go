// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package annotate

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestImageFromURLAndDigest(t *testing.T) {
	img := ImageFromURLAndDigest("quay.io/ns/app:v1", "sha256:deadbeef")
	assert.Equal(t, img.Repository, "quay.io/ns/app")
	assert.Equal(t, img.Name, "app")
	assert.Equal(t, img.Tag, "v1")
	assert.Equal(t, img.DigestAlgoCycloneDX(), "SHA-256")
	assert.Equal(t, img.DigestAlgoSPDX(), "SHA256")
	assert.Equal(t, img.DigestHexVal(), "deadbeef")
}

func TestAddImageReferenceCycloneDX(t *testing.T) {
	doc := map[string]any{
		"bomFormat":  "CycloneDX",
		"components": []any{map[string]any{"name": "existing"}},
		"metadata":   map[string]any{},
	}
	img := ImageFromURLAndDigest("quay.io/ns/app:v1", "sha256:deadbeef")

	out := AddImageReference(doc, img)

	components := out["components"].([]any)
	assert.Equal(t, len(components), 2)
	first := components[0].(map[string]any)
	assert.Equal(t, first["type"], "container")
	assert.Equal(t, first["name"], "app")

	metadata := out["metadata"].(map[string]any)
	assert.DeepEqual(t, metadata["component"], first)
}

func TestAddImageReferenceSPDXVirtualRoot(t *testing.T) {
	doc := map[string]any{
		"spdxVersion": "SPDX-2.3",
		"SPDXID":      "SPDXRef-DOCUMENT",
		"packages": []any{
			map[string]any{"SPDXID": "SPDXRef-DocumentRoot-Unknown", "name": "", "versionInfo": ""},
			map[string]any{"SPDXID": "SPDXRef-other", "name": "other"},
		},
		"relationships": []any{
			map[string]any{"spdxElementId": "SPDXRef-DOCUMENT", "relationshipType": "DESCRIBES", "relatedSpdxElement": "SPDXRef-DocumentRoot-Unknown"},
			map[string]any{"spdxElementId": "SPDXRef-DocumentRoot-Unknown", "relationshipType": "CONTAINS", "relatedSpdxElement": "SPDXRef-other"},
		},
	}
	img := ImageFromURLAndDigest("quay.io/ns/app:v1", "sha256:deadbeef")

	out := AddImageReference(doc, img)

	packages := out["packages"].([]any)
	assert.Equal(t, len(packages), 2, "the virtual root package must be removed once SPDXRef-image replaces it")

	var describesCount int
	for _, r := range out["relationships"].([]any) {
		rel := r.(map[string]any)
		if rel["spdxElementId"] == "SPDXRef-DOCUMENT" && rel["relationshipType"] == "DESCRIBES" {
			describesCount++
			assert.Equal(t, rel["relatedSpdxElement"], "SPDXRef-image")
		}
	}
	assert.Equal(t, describesCount, 1)

	assert.Equal(t, out["name"], "quay.io/ns/app@sha256:deadbeef")
}

func TestAddImageReferenceSPDXRealRoot(t *testing.T) {
	doc := map[string]any{
		"spdxVersion": "SPDX-2.3",
		"SPDXID":      "SPDXRef-DOCUMENT",
		"packages": []any{
			map[string]any{"SPDXID": "SPDXRef-real-root", "name": "real-root"},
		},
		"relationships": []any{
			map[string]any{"spdxElementId": "SPDXRef-DOCUMENT", "relationshipType": "DESCRIBES", "relatedSpdxElement": "SPDXRef-real-root"},
		},
	}
	img := ImageFromURLAndDigest("quay.io/ns/app:v1", "sha256:deadbeef")

	out := AddImageReference(doc, img)

	packages := out["packages"].([]any)
	assert.Equal(t, len(packages), 2, "a real root package is kept, not deleted")

	rels := out["relationships"].([]any)
	var containsFound, describesFound bool
	for _, r := range rels {
		rel := r.(map[string]any)
		if rel["relationshipType"] == "CONTAINS" && rel["spdxElementId"] == "SPDXRef-image" && rel["relatedSpdxElement"] == "SPDXRef-real-root" {
			containsFound = true
		}
		if rel["relationshipType"] == "DESCRIBES" && rel["relatedSpdxElement"] == "SPDXRef-image" {
			describesFound = true
		}
	}
	assert.Assert(t, containsFound)
	assert.Assert(t, describesFound)
}
