// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sourceimage orchestrates a source-image build: gather the
// application's own source, optionally resolve and pull a parent image's
// already-built source image, invoke an external BSI layer builder, dedupe
// and merge the parent's source layers into the local build, and push the
// result under two reference forms.
package sourceimage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/ocilayout"
	"github.com/konflux-ci/source-sbom-tools/internal/pkg/registry"
	"github.com/konflux-ci/source-sbom-tools/internal/pkg/sourcegather"
	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/imgref"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
	"github.com/konflux-ci/source-sbom-tools/pkg/util/slice"
)

// Result is the JSON build-result this package's top-level entry point
// always produces, success or failure.
type Result struct {
	Status                  string `json:"status"`
	Message                 string `json:"message,omitempty"`
	DependenciesIncluded    bool   `json:"dependencies_included"`
	BaseImageSourceIncluded bool   `json:"base_image_source_included"`
	ImageURL                string `json:"image_url,omitempty"`
	ImageDigest             string `json:"image_digest,omitempty"`
}

// BuildError distinguishes a retryable transport failure from a fatal one,
// so the top-level Build entry point can log the right thing while still
// collapsing every failure into Result{Status: "failure"}.
type BuildError struct {
	Retryable bool
	Err       error
}

func (e *BuildError) Error() string { return e.Err.Error() }
func (e *BuildError) Unwrap() error { return e.Err }

func fatalf(format string, args ...any) *BuildError {
	return &BuildError{Err: fmt.Errorf(format, args...)}
}

// Options configures a single Build invocation. It mirrors the
// source-image-assembler CLI's flags directly.
type Options struct {
	SourceDir          string
	OutputBinaryImage  string
	RegistryAllowlist  []string
	BaseImages         []string
	Cachi2ArtifactsDir string
	Workspace          string
	BSIBinary          string

	Registry *registry.Operator
}

// Build runs the full pipeline and always returns a non-nil Result; any
// unexpected error is converted to Result{Status: "failure"} rather than
// propagated, matching the top-level catch-all the original implementation
// uses.
func Build(ctx context.Context, opts Options) Result {
	result, err := build(ctx, opts)
	if err != nil {
		sylog.Errorf("source image build failed: %v", err)
		return Result{Status: "failure", Message: err.Error()}
	}
	result.Status = "success"
	return result
}

func build(ctx context.Context, opts Options) (Result, error) {
	workDir := opts.Workspace
	if workDir == "" {
		var err error
		workDir, err = os.MkdirTemp("", "source-image-build-")
		if err != nil {
			return Result{}, fatalf("create workspace: %w", err)
		}
	} else if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, fatalf("create workspace %s: %w", workDir, err)
	}

	buildDir := filepath.Join(workDir, "build")
	outputDir := filepath.Join(workDir, "output")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return Result{}, fatalf("create build dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fatalf("create output dir: %w", err)
	}

	dirs := sib{rpmDir: filepath.Join(buildDir, "rpm_dir")}

	archivePath := filepath.Join(buildDir, "app-source.tar.gz")
	repoName, commitSHA, err := sourcegather.AppSourceArchive(opts.SourceDir, archivePath)
	if err != nil {
		return Result{}, fatalf("gather app source: %w", err)
	}
	appSourceDir := filepath.Join(buildDir, "app_source")
	if err := os.MkdirAll(appSourceDir, 0o755); err != nil {
		return Result{}, fatalf("create app source dir: %w", err)
	}
	if err := os.Rename(archivePath, filepath.Join(appSourceDir, fmt.Sprintf("%s-%s.tar.gz", repoName, commitSHA))); err != nil {
		return Result{}, fatalf("stage app source archive: %w", err)
	}
	dirs.extraSrcDirs = append(dirs.extraSrcDirs, appSourceDir)

	var parentLayout *ocilayout.Layout
	var parentManifest imgspecv1.Manifest
	baseImageSourceIncluded := false

	if len(opts.BaseImages) > 0 {
		pullspec := opts.BaseImages[len(opts.BaseImages)-1]
		reg := imgref.Parse(pullspec).Registry
		if reg != "" && slice.ContainsString(opts.RegistryAllowlist, reg) {
			layout, manifest, err := resolveParentSourceImage(ctx, opts.Registry, pullspec, filepath.Join(workDir, "parent"))
			if err != nil {
				return Result{}, err
			}
			if layout != nil {
				parentLayout = layout
				parentManifest = manifest
				baseImageSourceIncluded = true
			}
		} else {
			sylog.Infof("base image %s registry not in allow-list, skipping", pullspec)
		}
	}

	dependenciesIncluded := false
	if opts.Cachi2ArtifactsDir != "" {
		if err := os.MkdirAll(dirs.rpmDir, 0o755); err != nil {
			return Result{}, fatalf("create rpm dir: %w", err)
		}
		prefetched, err := sourcegather.GatherPrefetched(buildDir, opts.Cachi2ArtifactsDir, dirs.rpmDir)
		if err != nil {
			return Result{}, fatalf("gather prefetched sources: %w", err)
		}
		dirs.extraSrcDirs = append(dirs.extraSrcDirs, prefetched.ExtraSrcDirs...)
		dependenciesIncluded = prefetched.Gathered
	}

	if err := runBSI(ctx, opts.BSIBinary, buildDir, outputDir, dirs); err != nil {
		return Result{}, fatalf("invoke layer builder: %w", err)
	}

	localLayout := ocilayout.Open(outputDir)
	localManifest, err := loadLocalManifest(localLayout)
	if err != nil {
		return Result{}, fatalf("load local build manifest: %w", err)
	}
	localConfigDesc := localManifest.Config
	localConfig, err := localLayout.LoadConfig(localConfigDesc)
	if err != nil {
		return Result{}, fatalf("load local build config: %w", err)
	}

	if parentLayout != nil && dependenciesIncluded {
		identities, err := parentLayerIdentities(parentLayout, parentManifest)
		if err != nil {
			return Result{}, fatalf("inspect parent layers: %w", err)
		}
		localManifest, localConfig, err = dedupFirstMatch(localLayout, localManifest, localConfig, identities)
		if err != nil {
			return Result{}, fatalf("dedup local layers: %w", err)
		}
	}

	if parentLayout != nil {
		localManifest, localConfig, err = mergeParentSources(localLayout, parentLayout, localManifest, localConfig, parentManifest)
		if err != nil {
			return Result{}, fatalf("merge parent sources: %w", err)
		}
	}

	if err := ocilayout.ValidateAlignment(localManifest, localConfig); err != nil {
		return Result{}, fatalf("validate merged layout: %w", err)
	}

	configContent, err := json.Marshal(localConfig)
	if err != nil {
		return Result{}, fatalf("marshal merged config: %w", err)
	}
	newConfigDesc, err := localLayout.ReplaceBlob(&localConfigDesc.Digest, configContent, imgspecv1.MediaTypeImageConfig)
	if err != nil {
		return Result{}, fatalf("save merged config: %w", err)
	}
	localManifest.Config = newConfigDesc

	manifestDesc, err := localLayout.SaveManifest(localManifest)
	if err != nil {
		return Result{}, fatalf("save merged manifest: %w", err)
	}
	if err := localLayout.AppendManifest(manifestDesc); err != nil {
		return Result{}, fatalf("update index: %w", err)
	}

	imageURL, imageDigest, err := pushResult(ctx, opts, outputDir, manifestDesc)
	if err != nil {
		return Result{}, err
	}

	return Result{
		DependenciesIncluded:    dependenciesIncluded,
		BaseImageSourceIncluded: baseImageSourceIncluded,
		ImageURL:                imageURL,
		ImageDigest:             imageDigest,
	}, nil
}

type sib struct {
	rpmDir       string
	extraSrcDirs []string
}
