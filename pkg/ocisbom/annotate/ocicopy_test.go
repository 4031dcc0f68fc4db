// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package annotate

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
)

func TestOCICopySBOMCycloneDX(t *testing.T) {
	artifacts := []CopiedArtifact{
		{Source: "https://example.com/a.tar.gz", Filename: "a.tar.gz", Type: "tarball", SHA256: "deadbeef"},
	}
	doc, err := OCICopySBOM(artifacts, "cyclonedx")
	assert.NilError(t, err)
	assert.Equal(t, doc["bomFormat"], "CycloneDX")
	assert.Equal(t, doc["specVersion"], "1.5")

	components := doc["components"].([]any)
	assert.Equal(t, len(components), 1)
	component := components[0].(map[string]any)
	assert.Equal(t, component["type"], "file")
	assert.Equal(t, component["name"], "a.tar.gz")
}

func TestOCICopySBOMSPDXUnsupported(t *testing.T) {
	_, err := OCICopySBOM(nil, "spdx")
	assert.Assert(t, errors.Is(err, ErrUnsupportedSBOMType))
}
