// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/registry"
	"github.com/konflux-ci/source-sbom-tools/internal/pkg/sourceimage"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

var (
	sourceDir          string
	outputBinaryImage  string
	registryAllowlist  string
	baseImages         string
	cachi2ArtifactsDir string
	workspace          string
	bsiBinary          string
	writeResultTo      string
)

func main() {
	cmd := &cobra.Command{
		Use:   "source-image-assembler",
		Short: "Assemble and push a source image alongside a build",
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringVar(&sourceDir, "source-dir", "", "application source directory (required)")
	flags.StringVar(&outputBinaryImage, "output-binary-image", "", "pullspec of the binary image being built (required)")
	flags.StringVar(&registryAllowlist, "registry-allowlist", "", "newline-separated host[:port] list (required)")
	flags.StringVar(&baseImages, "base-images", "", "newline-separated base image pullspecs, last one wins")
	flags.StringVar(&cachi2ArtifactsDir, "cachi2-artifacts-dir", "", "cachi2 prefetch output directory")
	flags.StringVar(&workspace, "workspace", "", "build workspace directory")
	flags.StringVar(&bsiBinary, "bsi", "", "external BSI layer builder binary (default \"bsi\")")
	flags.StringVar(&writeResultTo, "write-result-to", "", "also write the JSON build result to this file")

	cobra.CheckErr(cmd.MarkFlagRequired("source-dir"))
	cobra.CheckErr(cmd.MarkFlagRequired("output-binary-image"))
	cobra.CheckErr(cmd.MarkFlagRequired("registry-allowlist"))

	if err := cmd.Execute(); err != nil {
		sylog.Fatalf("source-image-assembler: %v", err)
	}
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func run(cmd *cobra.Command, args []string) error {
	opts := sourceimage.Options{
		SourceDir:          sourceDir,
		OutputBinaryImage:  outputBinaryImage,
		RegistryAllowlist:  splitNonEmptyLines(registryAllowlist),
		BaseImages:         splitNonEmptyLines(baseImages),
		Cachi2ArtifactsDir: cachi2ArtifactsDir,
		Workspace:          workspace,
		BSIBinary:          bsiBinary,
		Registry:           &registry.Operator{},
	}

	result := sourceimage.Build(context.Background(), opts)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build result: %w", err)
	}
	fmt.Println(string(out))

	if writeResultTo != "" {
		if err := os.WriteFile(writeResultTo, out, 0o644); err != nil {
			return fmt.Errorf("write build result to %s: %w", writeResultTo, err)
		}
	}

	if result.Status != "success" {
		return fmt.Errorf("source image build failed: %s", result.Message)
	}
	return nil
}
