// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package bsilayer

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func writeTar(t *testing.T, path string, entries []tarEntry) {
	t.Helper()
	f, err := os.Create(path)
	assert.NilError(t, err)
	defer f.Close()

	tw := tar.NewWriter(f)
	defer tw.Close()

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Size:     int64(len(e.content)),
			Mode:     0o644,
		}
		assert.NilError(t, tw.WriteHeader(hdr))
		if len(e.content) > 0 {
			_, err := tw.Write(e.content)
			assert.NilError(t, err)
		}
	}
}

type tarEntry struct {
	name     string
	typeflag byte
	linkname string
	content  []byte
}

func TestInspectRPMLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layer.tar")

	writeTar(t, path, []tarEntry{
		{name: "blobs/sha256/abc123", typeflag: tar.TypeReg, content: []byte("srpm content")},
		{name: "rpm_dir/foo-1.0-1.src.rpm", typeflag: tar.TypeSymlink, linkname: "../blobs/sha256/abc123"},
	})

	id, err := Inspect(path)
	assert.NilError(t, err)
	assert.Equal(t, id.BlobMemberPath, "blobs/sha256/abc123")
	assert.Equal(t, id.ArtefactName, "foo-1.0-1.src.rpm")
}

func TestInspectExtraSrcLayer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layer.tar")

	nested := func() []byte {
		buf := tarBytes(t, []tarEntry{
			{name: "extra-source-1.2.3.tar.gz", typeflag: tar.TypeReg, content: []byte("extra source content")},
		})
		return buf
	}()

	writeTar(t, path, []tarEntry{
		{name: "blobs/sha256/def456", typeflag: tar.TypeReg, content: nested},
		{name: "extra_src_dir/extra-src-def456.tar", typeflag: tar.TypeSymlink, linkname: "../blobs/sha256/def456"},
	})

	id, err := Inspect(path)
	assert.NilError(t, err)
	assert.Equal(t, id.BlobMemberPath, "blobs/sha256/def456")
	assert.Equal(t, id.ArtefactName, "extra-source-1.2.3.tar.gz")
}

func tarBytes(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested.tar")
	writeTar(t, path, entries)
	data, err := os.ReadFile(path)
	assert.NilError(t, err)
	return data
}

func TestInspectMissingBlobMember(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layer.tar")

	writeTar(t, path, []tarEntry{
		{name: "rpm_dir/foo-1.0-1.src.rpm", typeflag: tar.TypeSymlink, linkname: "../blobs/sha256/missing"},
	})

	_, err := Inspect(path)
	assert.ErrorContains(t, err, "no blob member")
}

func TestInspectNoRecognizedSymlink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layer.tar")

	writeTar(t, path, []tarEntry{
		{name: "blobs/sha256/abc123", typeflag: tar.TypeReg, content: []byte("content")},
	})

	_, err := Inspect(path)
	assert.ErrorContains(t, err, "no rpm_dir or extra_src_dir symlink member found")
}

func TestInspectSymlinkTargetMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layer.tar")

	writeTar(t, path, []tarEntry{
		{name: "blobs/sha256/abc123", typeflag: tar.TypeReg, content: []byte("content")},
		{name: "rpm_dir/foo-1.0-1.src.rpm", typeflag: tar.TypeSymlink, linkname: "../blobs/sha256/other"},
	})

	_, err := Inspect(path)
	assert.ErrorContains(t, err, "does not resolve to blob member")
}

func TestIdentityIsComparable(t *testing.T) {
	a := Identity{BlobMemberPath: "blobs/sha256/abc", ArtefactName: "foo.src.rpm"}
	b := Identity{BlobMemberPath: "blobs/sha256/abc", ArtefactName: "foo.src.rpm"}
	assert.Equal(t, a, b)
}
