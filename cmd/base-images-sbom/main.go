// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/annotate"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

var (
	sbomPath        string
	dockerfilePath  string
	digestsFilePath string
)

func main() {
	cmd := &cobra.Command{
		Use:   "base-images-sbom",
		Short: "Annotate an SBOM's formulation with resolved base/builder images",
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringVar(&sbomPath, "sbom", "", "SBOM file to annotate in place (required)")
	flags.StringVar(&dockerfilePath, "parsed-dockerfile", "", "parsed build-file JSON (required)")
	flags.StringVar(&digestsFilePath, "base-images-digests", "", "whitespace-separated original/resolved ref pairs (required)")

	cobra.CheckErr(cmd.MarkFlagRequired("sbom"))
	cobra.CheckErr(cmd.MarkFlagRequired("parsed-dockerfile"))
	cobra.CheckErr(cmd.MarkFlagRequired("base-images-digests"))

	if err := cmd.Execute(); err != nil {
		sylog.Fatalf("base-images-sbom: %v", err)
	}
}

func loadBuildFile(path string) (annotate.BuildFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return annotate.BuildFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	var build annotate.BuildFile
	if err := json.Unmarshal(data, &build); err != nil {
		return annotate.BuildFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return build, nil
}

// loadDigests parses whitespace-separated "<original-ref> <resolved-ref>"
// lines into a lookup map.
func loadDigests(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	digests := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("base-images-digests: malformed line %q in %s", line, path)
		}
		digests[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return digests, nil
}

func run(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(sbomPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", sbomPath, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", sbomPath, err)
	}

	build, err := loadBuildFile(dockerfilePath)
	if err != nil {
		return err
	}
	digests, err := loadDigests(digestsFilePath)
	if err != nil {
		return err
	}

	doc = annotate.AddBaseImageFormulation(doc, build, digests)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal annotated SBOM: %w", err)
	}
	if err := os.WriteFile(sbomPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", sbomPath, err)
	}
	return nil
}
