// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"os"
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseFlavourArgUsesExplicitPrefix(t *testing.T) {
	flavour, path := parseFlavourArg("Cachi2:/tmp/a.json", "syft")
	assert.Equal(t, flavour, "cachi2")
	assert.Equal(t, path, "/tmp/a.json")
}

func TestParseFlavourArgFallsBackToDefault(t *testing.T) {
	flavour, path := parseFlavourArg("/tmp/a.json", "syft")
	assert.Equal(t, flavour, "syft")
	assert.Equal(t, path, "/tmp/a.json")
}

func TestLoadDocRoundTripsJSON(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/doc.json"
	assert.NilError(t, os.WriteFile(path, []byte(`{"bomFormat":"CycloneDX","components":[]}`), 0o644))

	doc, err := loadDoc(path)
	assert.NilError(t, err)
	assert.Equal(t, doc["bomFormat"], "CycloneDX")
}

func TestLoadDocRejectsMissingFile(t *testing.T) {
	_, err := loadDoc("/nonexistent/doc.json")
	assert.ErrorContains(t, err, "read")
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + "/" + name
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunMergesTwoSyftSBOMsByApparentSameness(t *testing.T) {
	a := writeDoc(t, "a.json", `{"bomFormat":"CycloneDX","components":[{"name":"foo","version":"1","purl":"pkg:generic/foo@1"}]}`)
	b := writeDoc(t, "b.json", `{"bomFormat":"CycloneDX","components":[{"name":"bar","version":"1","purl":"pkg:generic/bar@1"}]}`)

	err := run(nil, []string{"syft:" + a, "syft:" + b})
	assert.NilError(t, err)
}

func TestRunRejectsTwoCachi2SBOMs(t *testing.T) {
	a := writeDoc(t, "a.json", `{"bomFormat":"CycloneDX","components":[]}`)
	b := writeDoc(t, "b.json", `{"bomFormat":"CycloneDX","components":[]}`)

	err := run(nil, []string{"cachi2:" + a, "cachi2:" + b})
	assert.ErrorContains(t, err, "unsupported combination")
}
