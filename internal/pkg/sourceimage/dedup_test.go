// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourceimage

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	digest "github.com/opencontainers/go-digest"
	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"gotest.tools/v3/assert"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/bsilayer"
	"github.com/konflux-ci/source-sbom-tools/internal/pkg/ocilayout"
)

func writeBSILayerTar(t *testing.T, path, blobContent, rpmName string) {
	t.Helper()
	f, err := os.Create(path)
	assert.NilError(t, err)
	defer f.Close()

	tw := tar.NewWriter(f)
	defer tw.Close()

	assert.NilError(t, tw.WriteHeader(&tar.Header{
		Name: "blobs/sha256/abc", Typeflag: tar.TypeReg, Size: int64(len(blobContent)), Mode: 0o644,
	}))
	_, err = tw.Write([]byte(blobContent))
	assert.NilError(t, err)

	assert.NilError(t, tw.WriteHeader(&tar.Header{
		Name: "rpm_dir/" + rpmName, Typeflag: tar.TypeSymlink, Linkname: "../blobs/sha256/abc",
	}))
}

func layoutWithOneLayer(t *testing.T, content string) (*ocilayout.Layout, imgspecv1.Manifest) {
	t.Helper()
	layout, err := ocilayout.Create(t.TempDir())
	assert.NilError(t, err)

	layerDesc, err := layout.SaveBlob([]byte(content), imgspecv1.MediaTypeImageLayerGzip)
	assert.NilError(t, err)

	cfg := imgspecv1.Image{
		RootFS:  imgspecv1.RootFS{Type: "layers", DiffIDs: []digest.Digest{digest.FromBytes([]byte(content))}},
		History: []imgspecv1.History{{CreatedBy: "bsi"}},
	}
	cfgDesc, err := layout.SaveConfig(cfg)
	assert.NilError(t, err)

	manifest := imgspecv1.Manifest{Config: cfgDesc, Layers: []imgspecv1.Descriptor{layerDesc}}
	return layout, manifest
}

func TestDedupFirstMatchRemovesMatchingLayer(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, "layer.tar")
	writeBSILayerTar(t, tarPath, "rpm content", "foo-1.0-1.src.rpm")
	tarBytes, err := os.ReadFile(tarPath)
	assert.NilError(t, err)

	layout, manifest := layoutWithOneLayer(t, string(tarBytes))
	cfg, err := layout.LoadConfig(manifest.Config)
	assert.NilError(t, err)
	removedDigest := manifest.Layers[0].Digest

	id, err := bsilayer.Inspect(tarPath)
	assert.NilError(t, err)
	identities := map[bsilayer.Identity]bool{id: true}

	newManifest, newConfig, err := dedupFirstMatch(layout, manifest, cfg, identities)
	assert.NilError(t, err)
	assert.Equal(t, len(newManifest.Layers), 0)
	assert.Equal(t, len(newConfig.RootFS.DiffIDs), 0)
	assert.Equal(t, len(newConfig.History), 0)

	_, err = layout.ReadBlob(imgspecv1.Descriptor{Digest: removedDigest})
	assert.ErrorContains(t, err, "read blob", "removed layer's blob file must be deleted from the layout")
}

func TestDedupFirstMatchNoMatchLeavesLayersUntouched(t *testing.T) {
	layout, manifest := layoutWithOneLayer(t, "unrelated layer content")
	cfg, err := layout.LoadConfig(manifest.Config)
	assert.NilError(t, err)

	newManifest, newConfig, err := dedupFirstMatch(layout, manifest, cfg, map[bsilayer.Identity]bool{})
	assert.NilError(t, err)
	assert.Equal(t, len(newManifest.Layers), 1)
	assert.Equal(t, len(newConfig.RootFS.DiffIDs), 1)
}

func TestMergeParentSourcesPrependsInOriginalOrder(t *testing.T) {
	local, localManifest := layoutWithOneLayer(t, "local layer")
	localCfg, err := local.LoadConfig(localManifest.Config)
	assert.NilError(t, err)

	parent, err := ocilayout.Create(t.TempDir())
	assert.NilError(t, err)

	layerA, err := parent.SaveBlob([]byte("parent-a"), imgspecv1.MediaTypeImageLayerGzip)
	assert.NilError(t, err)
	layerB, err := parent.SaveBlob([]byte("parent-b"), imgspecv1.MediaTypeImageLayerGzip)
	assert.NilError(t, err)

	parentCfg := imgspecv1.Image{
		RootFS: imgspecv1.RootFS{Type: "layers", DiffIDs: []digest.Digest{
			digest.FromBytes([]byte("parent-a")), digest.FromBytes([]byte("parent-b")),
		}},
		History: []imgspecv1.History{{CreatedBy: "parent-a"}, {CreatedBy: "parent-b"}},
	}
	parentCfgDesc, err := parent.SaveConfig(parentCfg)
	assert.NilError(t, err)
	parentManifest := imgspecv1.Manifest{Config: parentCfgDesc, Layers: []imgspecv1.Descriptor{layerA, layerB}}

	mergedManifest, mergedConfig, err := mergeParentSources(local, parent, localManifest, localCfg, parentManifest)
	assert.NilError(t, err)

	assert.Equal(t, len(mergedManifest.Layers), 3)
	assert.Equal(t, mergedManifest.Layers[0].Digest, layerA.Digest)
	assert.Equal(t, mergedManifest.Layers[1].Digest, layerB.Digest)
	assert.Equal(t, mergedManifest.Layers[2].Digest, localManifest.Layers[0].Digest)

	assert.Equal(t, mergedConfig.History[0].CreatedBy, "parent-a")
	assert.Equal(t, mergedConfig.History[1].CreatedBy, "parent-b")
	assert.Equal(t, mergedConfig.History[2].CreatedBy, "bsi")

	_, err = local.ReadBlob(layerA)
	assert.NilError(t, err, "parent blob must be copied into the local layout")
}
