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
	yaml "go.yaml.in/yaml/v3"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/annotate"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

var (
	outputPath string
	sbomType   string
)

func main() {
	cmd := &cobra.Command{
		Use:   "sbom-for-oci-copy ARTIFACTS_YAML",
		Short: "Build an SBOM over a list of artefacts copied during an OCI-to-OCI copy",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "", "output file (defaults to stdout)")
	flags.StringVar(&sbomType, "sbom-type", "cyclonedx", "SBOM type: cyclonedx or spdx")

	if err := cmd.Execute(); err != nil {
		sylog.Fatalf("sbom-for-oci-copy: %v", err)
	}
}

type artifactsFile struct {
	Artifacts []struct {
		Source    string `yaml:"source"`
		Filename  string `yaml:"filename"`
		Type      string `yaml:"type"`
		SHA256Sum string `yaml:"sha256sum"`
	} `yaml:"artifacts"`
}

func run(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var parsed artifactsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	artifacts := make([]annotate.CopiedArtifact, len(parsed.Artifacts))
	for i, a := range parsed.Artifacts {
		artifacts[i] = annotate.CopiedArtifact{
			Source:   a.Source,
			Filename: a.Filename,
			Type:     a.Type,
			SHA256:   a.SHA256Sum,
		}
	}

	doc, err := annotate.OCICopySBOM(artifacts, sbomType)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal SBOM: %w", err)
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
