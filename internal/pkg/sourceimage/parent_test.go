// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourceimage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/registry"
)

func fakeSkopeo(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "skopeo")
	assert.NilError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestCandidateSourceImageRefByVersionRelease(t *testing.T) {
	bin := fakeSkopeo(t, `
case "$*" in
  *"--config"*)
    echo '{"Labels":{"version":"1.0","release":"2"}}'
    ;;
  *"inspect --raw docker://example.com/repo:1.0-2-source"*)
    echo '{}'
    ;;
  *)
    echo 'not found' >&2
    exit 1
    ;;
esac
`)
	op := &registry.Operator{Binary: bin}

	candidate, err := candidateSourceImageRef(context.Background(), op, "example.com/repo@sha256:deadbeef")
	assert.NilError(t, err)
	assert.Equal(t, candidate, "example.com/repo:1.0-2-source")
}

func TestCandidateSourceImageRefByManifestDigestFallback(t *testing.T) {
	bin := fakeSkopeo(t, `
case "$*" in
  *"--config"*)
    echo '{"Labels":{}}'
    ;;
  *"--format"*)
    echo 'sha256:cafebabe'
    ;;
  *"inspect --raw docker://example.com/repo:sha256-cafebabe.src"*)
    echo '{}'
    ;;
  *)
    echo 'not found' >&2
    exit 1
    ;;
esac
`)
	op := &registry.Operator{Binary: bin}

	candidate, err := candidateSourceImageRef(context.Background(), op, "example.com/repo:latest")
	assert.NilError(t, err)
	assert.Equal(t, candidate, "example.com/repo:sha256-cafebabe.src")
}

func TestCandidateSourceImageRefNoHit(t *testing.T) {
	bin := fakeSkopeo(t, `echo 'not found' >&2; exit 1`)
	op := &registry.Operator{Binary: bin}

	candidate, err := candidateSourceImageRef(context.Background(), op, "example.com/repo:latest")
	assert.NilError(t, err)
	assert.Equal(t, candidate, "")
}

func TestResolveParentSourceImageNilRegistrySkips(t *testing.T) {
	layout, _, err := resolveParentSourceImage(context.Background(), nil, "docker://example.com/repo:latest", t.TempDir())
	assert.NilError(t, err)
	assert.Assert(t, layout == nil)
}
