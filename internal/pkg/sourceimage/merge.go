// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourceimage

import (
	"fmt"

	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/ocilayout"
)

// mergeParentSources prepends a parent source image's layers, diff_ids and
// history onto a local build, preserving the parent's original order at the
// front. Parent blobs are copied into the local layout's blob store.
func mergeParentSources(local, parent *ocilayout.Layout, manifest imgspecv1.Manifest, config imgspecv1.Image, parentManifest imgspecv1.Manifest) (imgspecv1.Manifest, imgspecv1.Image, error) {
	parentConfig, err := parent.LoadConfig(parentManifest.Config)
	if err != nil {
		return manifest, config, fmt.Errorf("load parent config: %w", err)
	}
	if err := ocilayout.ValidateAlignment(parentManifest, parentConfig); err != nil {
		return manifest, config, fmt.Errorf("parent source image: %w", err)
	}

	for i := len(parentManifest.Layers) - 1; i >= 0; i-- {
		layerDesc := parentManifest.Layers[i]
		content, err := parent.ReadBlob(layerDesc)
		if err != nil {
			return manifest, config, fmt.Errorf("read parent layer %d: %w", i, err)
		}
		if _, err := local.SaveBlob(content, layerDesc.MediaType); err != nil {
			return manifest, config, fmt.Errorf("copy parent layer %d: %w", i, err)
		}

		manifest.Layers = prepend(manifest.Layers, layerDesc)
		config.RootFS.DiffIDs = prepend(config.RootFS.DiffIDs, parentConfig.RootFS.DiffIDs[i])
		config.History = prepend(config.History, parentConfig.History[i])
	}

	return manifest, config, nil
}

func prepend[T any](s []T, v T) []T {
	return append([]T{v}, s...)
}
