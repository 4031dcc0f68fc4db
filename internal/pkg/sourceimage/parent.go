// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourceimage

import (
	"context"
	"fmt"
	"os"
	"strings"

	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/ocilayout"
	"github.com/konflux-ci/source-sbom-tools/internal/pkg/registry"
	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/imgref"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

// resolveParentSourceImage tries to find and pull the already-built source
// image for a base image pullspec, returning (nil, Manifest{}, nil) when
// none is found - not found is a normal, non-fatal outcome.
func resolveParentSourceImage(ctx context.Context, reg *registry.Operator, pullspec, destDir string) (*ocilayout.Layout, imgspecv1.Manifest, error) {
	if reg == nil {
		return nil, imgspecv1.Manifest{}, nil
	}

	candidate, err := candidateSourceImageRef(ctx, reg, pullspec)
	if err != nil {
		return nil, imgspecv1.Manifest{}, err
	}
	if candidate == "" {
		sylog.Infof("no source image found for %s, skipping parent sources", pullspec)
		return nil, imgspecv1.Manifest{}, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, imgspecv1.Manifest{}, fatalf("create parent layout dir: %w", err)
	}
	if err := reg.Copy(ctx, "docker://"+candidate, "oci:"+destDir, registry.CopyOptions{RemoveSignatures: true}); err != nil {
		return nil, imgspecv1.Manifest{}, &BuildError{Err: fmt.Errorf("copy parent source image %s: %w", candidate, err)}
	}

	layout := ocilayout.Open(destDir)
	manifest, err := loadLocalManifest(layout)
	if err != nil {
		return nil, imgspecv1.Manifest{}, fatalf("load parent source image manifest: %w", err)
	}
	return layout, manifest, nil
}

// candidateSourceImageRef implements the two-step resolution spec.md §4.6
// describes: first by version/release label, then by manifest digest.
func candidateSourceImageRef(ctx context.Context, reg *registry.Operator, pullspec string) (string, error) {
	ref := imgref.Parse(pullspec)

	if cfg, err := reg.InspectConfig(ctx, pullspec); err == nil {
		if candidate, ok := versionReleaseCandidate(ref, cfg); ok {
			exists, err := reg.Exists(ctx, "docker://"+candidate)
			if err != nil {
				return "", &BuildError{Retryable: true, Err: err}
			}
			if exists {
				return candidate, nil
			}
		}
	}

	digest, err := reg.InspectManifestDigest(ctx, pullspec)
	if err != nil {
		return "", nil
	}
	algo, hex, found := strings.Cut(digest, ":")
	if !found {
		return "", nil
	}
	candidate := fmt.Sprintf("%s:%s-%s.src", ref.Repository, algo, hex)
	exists, err := reg.Exists(ctx, "docker://"+candidate)
	if err != nil {
		return "", &BuildError{Retryable: true, Err: err}
	}
	if !exists {
		return "", nil
	}
	return candidate, nil
}

func versionReleaseCandidate(ref imgref.Reference, cfg map[string]any) (string, bool) {
	labels, _ := cfg["Labels"].(map[string]any)
	if labels == nil {
		return "", false
	}
	version, _ := labels["version"].(string)
	release, _ := labels["release"].(string)
	if version == "" || release == "" {
		return "", false
	}
	return fmt.Sprintf("%s:%s-%s-source", ref.Repository, version, release), true
}

func loadLocalManifest(layout *ocilayout.Layout) (imgspecv1.Manifest, error) {
	idx, err := layout.LoadIndex()
	if err != nil {
		return imgspecv1.Manifest{}, err
	}
	if len(idx.Manifests) == 0 {
		return imgspecv1.Manifest{}, fmt.Errorf("index.json contains no manifests")
	}
	return layout.LoadManifest(idx.Manifests[len(idx.Manifests)-1])
}
