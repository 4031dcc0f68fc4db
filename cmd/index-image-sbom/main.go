// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/annotate"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

var (
	imageIndexURL    string
	imageIndexDigest string
	inspectInputFile string
	outputPath       string
)

func main() {
	cmd := &cobra.Command{
		Use:   "index-image-sbom",
		Short: "Build an SPDX SBOM describing an image index and its platform manifests",
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringVar(&imageIndexURL, "image-index-url", "", "image index reference as repository/name:tag (required)")
	flags.StringVar(&imageIndexDigest, "image-index-digest", "", "image index digest, algo:hex (required)")
	flags.StringVar(&inspectInputFile, "inspect-input-file", "", "`buildah manifest inspect`-shaped JSON file (required)")
	flags.StringVar(&outputPath, "output-path", "", "output file (defaults to stdout)")

	cobra.CheckErr(cmd.MarkFlagRequired("image-index-url"))
	cobra.CheckErr(cmd.MarkFlagRequired("image-index-digest"))
	cobra.CheckErr(cmd.MarkFlagRequired("inspect-input-file"))

	if err := cmd.Execute(); err != nil {
		sylog.Fatalf("index-image-sbom: %v", err)
	}
}

// rawIndexInspect mirrors the on-disk shape of `buildah manifest inspect`
// output, which nests each child manifest's architecture under
// .platform.architecture rather than the flat annotate.IndexMember shape.
type rawIndexInspect struct {
	MediaType string `json:"mediaType"`
	Manifests []struct {
		MediaType string `json:"mediaType"`
		Digest    string `json:"digest"`
		Platform  struct {
			Architecture string `json:"architecture"`
		} `json:"platform"`
	} `json:"manifests"`
}

func loadInspect(path string) (annotate.IndexInspect, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return annotate.IndexInspect{}, fmt.Errorf("read %s: %w", path, err)
	}
	var raw rawIndexInspect
	if err := json.Unmarshal(data, &raw); err != nil {
		return annotate.IndexInspect{}, fmt.Errorf("parse %s: %w", path, err)
	}

	inspect := annotate.IndexInspect{MediaType: raw.MediaType}
	for _, m := range raw.Manifests {
		inspect.Manifests = append(inspect.Manifests, annotate.IndexMember{
			MediaType: m.MediaType,
			Digest:    m.Digest,
			Arch:      m.Platform.Architecture,
		})
	}
	return inspect, nil
}

func run(cmd *cobra.Command, args []string) error {
	inspect, err := loadInspect(inspectInputFile)
	if err != nil {
		return err
	}

	doc, err := annotate.IndexImageSBOM(imageIndexURL, imageIndexDigest, inspect, time.Now())
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index image SBOM: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	return nil
}
