// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/annotate"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

var (
	imageURL    string
	imageDigest string
	inputPath   string
	outputPath  string
)

func main() {
	cmd := &cobra.Command{
		Use:   "add-image-reference",
		Short: "Stamp an image's identity into an SBOM document",
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringVar(&imageURL, "image-url", "", "image reference as repository/name:tag (required)")
	flags.StringVar(&imageDigest, "image-digest", "", "resolved manifest digest, algo:hex (required)")
	flags.StringVarP(&inputPath, "input", "i", "", "input SBOM file (required)")
	flags.StringVarP(&outputPath, "output", "o", "", "output file (defaults to overwriting the input)")

	cobra.CheckErr(cmd.MarkFlagRequired("image-url"))
	cobra.CheckErr(cmd.MarkFlagRequired("image-digest"))
	cobra.CheckErr(cmd.MarkFlagRequired("input"))

	if err := cmd.Execute(); err != nil {
		sylog.Fatalf("add-image-reference: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", inputPath, err)
	}

	image := annotate.ImageFromURLAndDigest(imageURL, imageDigest)
	doc = annotate.AddImageReference(doc, image)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal annotated SBOM: %w", err)
	}

	dest := outputPath
	if dest == "" {
		dest = inputPath
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
