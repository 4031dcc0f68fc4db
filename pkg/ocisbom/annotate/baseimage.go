// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package annotate

import (
	"strconv"
	"strings"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/imgref"
	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/purl"
)

// StageRef is a build stage's "FROM <earlier-stage>" reference.
type StageRef struct {
	Named string `json:"Named,omitempty"`
	Index int    `json:"Index"`
}

// StageFrom is a build stage's base: exactly one of Image, Scratch or Stage
// is set.
type StageFrom struct {
	Image   string    `json:"Image,omitempty"`
	Scratch bool      `json:"Scratch,omitempty"`
	Stage   *StageRef `json:"Stage,omitempty"`
}

// Stage is one entry of a parsed multi-stage build file.
type Stage struct {
	From StageFrom `json:"From"`
}

// BuildFile is the parsed stage list a base-images annotation run is given.
type BuildFile struct {
	Stages []Stage `json:"Stages"`
}

// isPseudoBaseRef reports whether an image reference string names a
// non-pullable pseudo-base rather than a real image.
func isPseudoBaseRef(ref string) bool {
	return ref == "" || ref == "scratch" || strings.HasPrefix(ref, "oci-archive:")
}

// resolveStageRef walks a stage's From.Stage chain back to the nearest
// ancestor with a concrete From.Image, returning that image ref. It
// reports pseudo=true if the chain bottoms out at "scratch" or an
// "oci-archive:" pseudo-base, or if it cannot be resolved (a malformed or
// cyclic stage reference).
func resolveStageRef(stages []Stage, start int) (ref string, pseudo bool) {
	visited := make(map[int]bool, len(stages))
	idx := start
	for {
		if idx < 0 || idx >= len(stages) || visited[idx] {
			return "", true
		}
		visited[idx] = true

		from := stages[idx].From
		if from.Stage != nil {
			idx = from.Stage.Index
			continue
		}
		if from.Scratch {
			return "", true
		}
		if isPseudoBaseRef(from.Image) {
			return "", true
		}
		return from.Image, false
	}
}

func baseImageProperty(stageIndex int, isBaseImage bool) map[string]any {
	if isBaseImage {
		return map[string]any{"name": "konflux:container:is_base_image", "value": "true"}
	}
	return map[string]any{"name": "konflux:container:is_builder_image:for_stage", "value": strconv.Itoa(stageIndex)}
}

// AddBaseImageFormulation appends a CycloneDX .formulation entry describing
// every resolved base/builder image used across build.Stages, given a map
// from the original ref each stage named to the digest-pinned ref it
// resolved to. A stage whose ref has no entry in digests is skipped, as is
// any stage whose base resolves to a pseudo-base ("scratch" or
// "oci-archive:*"). Stages sharing the same resolved image (by purl) are
// folded into one component with multiple properties rather than
// duplicated.
func AddBaseImageFormulation(doc map[string]any, build BuildFile, digests map[string]string) map[string]any {
	stages := build.Stages
	pseudo := make([]bool, len(stages))
	refs := make([]string, len(stages))
	for i := range stages {
		ref, isPseudo := resolveStageRef(stages, i)
		refs[i] = ref
		pseudo[i] = isPseudo
	}

	baseStageIdx := -1
	if last := len(stages) - 1; last >= 0 {
		switch {
		case !pseudo[last]:
			baseStageIdx = last
		case last-1 >= 0 && !pseudo[last-1]:
			baseStageIdx = last - 1
		}
	}

	var components []map[string]any
	indexByPurl := map[string]int{}

	for i := range stages {
		if pseudo[i] {
			continue
		}
		resolved, ok := digests[refs[i]]
		if !ok {
			continue
		}

		r := imgref.Parse(resolved)
		componentPurl := purl.New("oci", "", r.Name, r.Digest, map[string]string{"repository_url": r.Repository}, "").String()
		prop := baseImageProperty(i, i == baseStageIdx)

		if existing, ok := indexByPurl[componentPurl]; ok {
			props, _ := components[existing]["properties"].([]any)
			components[existing]["properties"] = append(props, prop)
			continue
		}

		indexByPurl[componentPurl] = len(components)
		components = append(components, map[string]any{
			"type":       "container",
			"name":       r.Repository,
			"purl":       componentPurl,
			"properties": []any{prop},
		})
	}

	if len(components) == 0 {
		return doc
	}

	componentsAny := make([]any, len(components))
	for i, c := range components {
		componentsAny[i] = c
	}
	entry := map[string]any{"components": componentsAny}

	formulation := asAnySlice(doc["formulation"])
	doc["formulation"] = append(formulation, entry)
	return doc
}
