// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package merge

import (
	"fmt"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/sbom"
)

func asMapSlice(v any) []map[string]any {
	raw, _ := v.([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func mergeCycloneDX(a, b map[string]any, componentsFn ComponentsFunc) (map[string]any, error) {
	componentsA := itemsOf(sbom.WrapAsCDX(asMapSlice(a["components"])))
	componentsB := itemsOf(sbom.WrapAsCDX(asMapSlice(b["components"])))

	merged, err := componentsFn(componentsA, componentsB)
	if err != nil {
		return nil, err
	}

	mergedAny := make([]any, len(merged))
	for i, c := range unwrapAll(merged) {
		mergedAny[i] = c
	}
	a["components"] = mergedAny

	if err := mergeToolsMetadata(a, b); err != nil {
		return nil, err
	}

	return a, nil
}

// toolsMetadataSharedKeys lists the fields a CycloneDX 1.4 .metadata.tools
// entry and a 1.5 tool-as-component share.
var toolsMetadataSharedKeys = []string{"name", "version", "hashes", "externalReferences"}

func toolToComponent(tool map[string]any) map[string]any {
	component := map[string]any{}
	for _, k := range toolsMetadataSharedKeys {
		if v, ok := tool[k]; ok {
			component[k] = v
		}
	}
	if vendor, ok := tool["vendor"]; ok && vendor != nil && vendor != "" {
		component["author"] = vendor
	}
	component["type"] = "application"
	return component
}

func componentToTool(component map[string]any) map[string]any {
	tool := map[string]any{}
	for _, k := range toolsMetadataSharedKeys {
		if v, ok := component[k]; ok {
			tool[k] = v
		}
	}
	if author, ok := component["author"]; ok && author != nil && author != "" {
		tool["vendor"] = author
	}
	return tool
}

// mergeToolsMetadata merges b's .metadata.tools into a's in place, handling
// both the 1.4 style (a bare list of tools) and the 1.5 style
// (metadata.tools.components). If the two documents disagree on style, the
// result conforms to a's.
func mergeToolsMetadata(a, b map[string]any) error {
	metaA, _ := a["metadata"].(map[string]any)
	metaB, _ := b["metadata"].(map[string]any)
	if metaA == nil || metaB == nil {
		return nil
	}

	toolsA := metaA["tools"]
	toolsB := metaB["tools"]

	switch toolsADict := toolsA.(type) {
	case map[string]any:
		componentsA := sbom.WrapAsCDX(asMapSlice(toolsADict["components"]))

		var componentsB []sbom.CDXComponent
		if toolsBDict, ok := toolsB.(map[string]any); ok {
			componentsB = sbom.WrapAsCDX(asMapSlice(toolsBDict["components"]))
		} else {
			for _, t := range asMapSlice(toolsB) {
				componentsB = append(componentsB, sbom.CDXComponent{Data: toolToComponent(t)})
			}
		}

		mergedComponents, err := ApparentSameness(itemsOf(componentsA), itemsOf(componentsB))
		if err != nil {
			return err
		}
		mergedAny := make([]any, 0, len(mergedComponents))
		for _, c := range unwrapAll(mergedComponents) {
			mergedAny = append(mergedAny, c)
		}
		toolsADict["components"] = mergedAny
		return nil

	case []any:
		toolsBList := asMapSlice(toolsB)
		if toolsBDict, ok := toolsB.(map[string]any); ok {
			toolsBList = nil
			for _, c := range asMapSlice(toolsBDict["components"]) {
				toolsBList = append(toolsBList, componentToTool(c))
			}
		}

		seen := map[string]bool{}
		merged := make([]any, 0, len(toolsADict)+len(toolsBList))
		addUnique := func(t map[string]any) {
			name, _ := t["name"].(string)
			version, _ := t["version"].(string)
			key := name + "@" + version
			if seen[key] {
				return
			}
			seen[key] = true
			merged = append(merged, t)
		}
		for _, t := range asMapSlice(toolsA) {
			addUnique(t)
		}
		for _, t := range toolsBList {
			addUnique(t)
		}
		metaA["tools"] = merged
		return nil

	default:
		return fmt.Errorf("merge: metadata.tools is in an unexpected format: %T", toolsA)
	}
}
