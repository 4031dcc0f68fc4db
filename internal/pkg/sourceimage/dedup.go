// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourceimage

import (
	"fmt"
	"os"
	"path/filepath"

	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/bsilayer"
	"github.com/konflux-ci/source-sbom-tools/internal/pkg/ocilayout"
)

// parentLayerIdentities inspects every layer of a parent source image's
// manifest and returns the set of BSI identities it carries.
func parentLayerIdentities(layout *ocilayout.Layout, manifest imgspecv1.Manifest) (map[bsilayer.Identity]bool, error) {
	identities := make(map[bsilayer.Identity]bool, len(manifest.Layers))

	tmpDir, err := os.MkdirTemp("", "parent-layer-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	for i, layer := range manifest.Layers {
		content, err := layout.ReadBlob(layer)
		if err != nil {
			return nil, fmt.Errorf("read parent layer %d: %w", i, err)
		}
		path := filepath.Join(tmpDir, fmt.Sprintf("layer-%d.tar", i))
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return nil, fmt.Errorf("stage parent layer %d: %w", i, err)
		}
		id, err := bsilayer.Inspect(path)
		if err != nil {
			return nil, fmt.Errorf("inspect parent layer %d: %w", i, err)
		}
		identities[id] = true
	}
	return identities, nil
}

// dedupFirstMatch removes the first local layer (and its matching diff_id
// and history entry) whose BSI identity is already present in the parent
// source's layer set. At most one layer is removed per pass - see Design
// Note 9.3: the contract is one collapse per identical artefact, not an
// exhaustive sweep.
func dedupFirstMatch(layout *ocilayout.Layout, manifest imgspecv1.Manifest, config imgspecv1.Image, parentIdentities map[bsilayer.Identity]bool) (imgspecv1.Manifest, imgspecv1.Image, error) {
	if len(parentIdentities) == 0 {
		return manifest, config, nil
	}
	tmpDir, err := os.MkdirTemp("", "local-layer-")
	if err != nil {
		return manifest, config, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	removeIdx := -1
	for i, layer := range manifest.Layers {
		content, err := layout.ReadBlob(layer)
		if err != nil {
			return manifest, config, fmt.Errorf("read local layer %d: %w", i, err)
		}
		path := filepath.Join(tmpDir, fmt.Sprintf("layer-%d.tar", i))
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return manifest, config, fmt.Errorf("stage local layer %d: %w", i, err)
		}
		id, err := bsilayer.Inspect(path)
		if err != nil {
			return manifest, config, fmt.Errorf("inspect local layer %d: %w", i, err)
		}
		if parentIdentities[id] {
			removeIdx = i
			break
		}
	}

	if removeIdx == -1 {
		return manifest, config, nil
	}

	if err := layout.DeleteBlob(manifest.Layers[removeIdx].Digest); err != nil {
		return manifest, config, fmt.Errorf("delete duplicate layer blob %d: %w", removeIdx, err)
	}

	manifest.Layers = removeAt(manifest.Layers, removeIdx)
	config.RootFS.DiffIDs = removeAt(config.RootFS.DiffIDs, removeIdx)
	config.History = removeAt(config.History, removeIdx)
	return manifest, config, nil
}

func removeAt[T any](s []T, idx int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:idx]...)
	out = append(out, s[idx+1:]...)
	return out
}
