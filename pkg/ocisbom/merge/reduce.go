// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package merge

import "fmt"

// ReduceApparentSameness folds an arbitrary number of same-format SBOM
// documents into one, using ApparentSameness pairwise left to right. At
// least one document is required.
func ReduceApparentSameness(docs []map[string]any) (map[string]any, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("merge: no SBOM documents to merge")
	}
	acc := docs[0]
	for _, next := range docs[1:] {
		merged, err := SBOMs(acc, next, ApparentSameness)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}

// SyftAndCachi2 merges one or more Syft-reported SBOMs with a single
// authoritative Cachi2-reported SBOM: the Syft documents are first reduced
// into one via ReduceApparentSameness, then merged against the Cachi2
// document with PreferCachi2.
func SyftAndCachi2(syftDocs []map[string]any, cachi2Doc map[string]any) (map[string]any, error) {
	syftMerged, err := ReduceApparentSameness(syftDocs)
	if err != nil {
		return nil, err
	}
	return SBOMs(syftMerged, cachi2Doc, PreferCachi2)
}
