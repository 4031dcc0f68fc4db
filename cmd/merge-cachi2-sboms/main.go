// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// merge-cachi2-sboms is a thin positional-args legacy entrypoint for the
// single-cachi2/single-syft merge case, kept alongside the flavour-prefixed
// sbom-merge for callers still invoking it by its original two-positional
// contract.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/merge"
	"github.com/konflux-ci/source-sbom-tools/pkg/sylog"
)

func main() {
	cmd := &cobra.Command{
		Use:   "merge-cachi2-sboms cachi2_sbom_path syft_sbom_path",
		Short: "Merge a single Cachi2 SBOM into a single Syft SBOM, cachi2 wins",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}

	if err := cmd.Execute(); err != nil {
		sylog.Fatalf("merge-cachi2-sboms: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cachi2Path, syftPath := args[0], args[1]

	cachi2Data, err := os.ReadFile(cachi2Path)
	if err != nil {
		return fmt.Errorf("read %s: %w", cachi2Path, err)
	}
	var cachi2Doc map[string]any
	if err := json.Unmarshal(cachi2Data, &cachi2Doc); err != nil {
		return fmt.Errorf("parse %s: %w", cachi2Path, err)
	}

	syftData, err := os.ReadFile(syftPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", syftPath, err)
	}
	var syftDoc map[string]any
	if err := json.Unmarshal(syftData, &syftDoc); err != nil {
		return fmt.Errorf("parse %s: %w", syftPath, err)
	}

	merged, err := merge.SyftAndCachi2([]map[string]any{syftDoc}, cachi2Doc)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal merged SBOM: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
