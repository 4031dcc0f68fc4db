// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourcegather

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func writeGzipArchive(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	assert.NilError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	content := []byte("hello")
	assert.NilError(t, tw.WriteHeader(&tar.Header{Name: "file.txt", Size: int64(len(content)), Mode: 0o644}))
	_, err = tw.Write(content)
	assert.NilError(t, err)
}

func TestGatherPrefetchedNoOutputDir(t *testing.T) {
	result, err := GatherPrefetched(t.TempDir(), t.TempDir(), t.TempDir())
	assert.NilError(t, err)
	assert.Assert(t, !result.Gathered)
}

func TestGatherPrefetchedCopiesArchive(t *testing.T) {
	cachi2Dir := t.TempDir()
	outputDir := filepath.Join(cachi2Dir, "output", "deps", "foo")
	assert.NilError(t, os.MkdirAll(outputDir, 0o755))
	writeGzipArchive(t, filepath.Join(outputDir, "foo-1.0.tar.gz"))

	workDir := t.TempDir()
	rpmDir := t.TempDir()
	result, err := GatherPrefetched(workDir, cachi2Dir, rpmDir)
	assert.NilError(t, err)
	assert.Assert(t, result.Gathered)
	assert.Equal(t, len(result.ExtraSrcDirs), 1)

	copied := filepath.Join(result.ExtraSrcDirs[0], "deps", "foo", "foo-1.0.tar.gz")
	_, err = os.Stat(copied)
	assert.NilError(t, err)
}

func TestGatherPrefetchedCopiesCachi2Env(t *testing.T) {
	cachi2Dir := t.TempDir()
	assert.NilError(t, os.MkdirAll(filepath.Join(cachi2Dir, "output"), 0o755))
	assert.NilError(t, os.WriteFile(filepath.Join(cachi2Dir, "cachi2.env"), []byte("FOO=bar\n"), 0o644))

	workDir := t.TempDir()
	result, err := GatherPrefetched(workDir, cachi2Dir, t.TempDir())
	assert.NilError(t, err)
	assert.Assert(t, !result.Gathered, "cachi2.env alone must not count as gathered")
	assert.Equal(t, len(result.ExtraSrcDirs), 1)
}

func TestHashedArtifactNameIsStableForSameContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.src.rpm")
	b := filepath.Join(dir, "b.src.rpm")
	assert.NilError(t, os.WriteFile(a, []byte("same content"), 0o644))
	assert.NilError(t, os.WriteFile(b, []byte("same content"), 0o644))

	nameA, err := hashedArtifactName(a)
	assert.NilError(t, err)
	nameB, err := hashedArtifactName(b)
	assert.NilError(t, err)

	assert.Equal(t, nameA[:64], nameB[:64], "identical content must hash identically")
	assert.Assert(t, nameA != "")
}
