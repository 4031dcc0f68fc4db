// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/merge"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

func main() {
	cmd := &cobra.Command{
		Use:   "sbom-merge sbom_a more_sboms...",
		Short: "Merge two or more flavour-prefixed SBOM documents",
		Args:  cobra.MinimumNArgs(2),
		RunE:  run,
	}

	if err := cmd.Execute(); err != nil {
		sylog.Fatalf("sbom-merge: %v", err)
	}
}

// parseFlavourArg splits an arg of the form "flavour:path" into its flavour
// and path, defaulting to defaultFlavour when no "flavour:" prefix is given.
// Mirrors the upstream reference's backwards-compatible parse_sbom_arg.
func parseFlavourArg(arg, defaultFlavour string) (flavour, path string) {
	before, after, found := strings.Cut(arg, ":")
	if !found {
		return defaultFlavour, before
	}
	return strings.ToLower(before), after
}

func loadDoc(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func run(cmd *cobra.Command, args []string) error {
	flavourA, pathA := parseFlavourArg(args[0], "cachi2")

	var syftPaths []string
	var cachi2Paths []string
	if flavourA == "cachi2" {
		cachi2Paths = append(cachi2Paths, pathA)
	} else {
		syftPaths = append(syftPaths, pathA)
	}

	for _, arg := range args[1:] {
		flavour, path := parseFlavourArg(arg, "syft")
		switch flavour {
		case "cachi2":
			cachi2Paths = append(cachi2Paths, path)
		default:
			syftPaths = append(syftPaths, path)
		}
	}

	var merged map[string]any
	switch {
	case len(cachi2Paths) == 1:
		cachi2Doc, err := loadDoc(cachi2Paths[0])
		if err != nil {
			return err
		}
		syftDocs, err := loadDocs(syftPaths)
		if err != nil {
			return err
		}
		merged, err = merge.SyftAndCachi2(syftDocs, cachi2Doc)
		if err != nil {
			return err
		}
	case len(cachi2Paths) == 0:
		syftDocs, err := loadDocs(syftPaths)
		if err != nil {
			return err
		}
		merged, err = merge.ReduceApparentSameness(syftDocs)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("sbom-merge: unsupported combination of SBOM flavours: got %d cachi2 SBOMs, supports merging 0 or 1 cachi2 SBOM with >=1 syft SBOMs", len(cachi2Paths))
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal merged SBOM: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func loadDocs(paths []string) ([]map[string]any, error) {
	docs := make([]map[string]any, len(paths))
	for i, p := range paths {
		doc, err := loadDoc(p)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return docs, nil
}
