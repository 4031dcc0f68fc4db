// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package merge

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/sbom"
)

// apparentSamenessKey is the merge key used when no scanner is considered
// more authoritative than another: the purl string itself, or a
// name@version fallback for purl-less components.
func apparentSamenessKey(item sbom.Item) (string, error) {
	p, err := item.Purl()
	if errors.Is(err, sbom.ErrNoPurl) {
		return sbom.FallbackKey(item), nil
	}
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// uniqueKeyCachi2 builds a merge key from a Cachi2-reported component by
// stripping its purl's qualifiers and subpath, since Cachi2 and Syft encode
// the same dependency with different qualifier sets.
func uniqueKeyCachi2(item sbom.Item) (string, error) {
	p, err := item.Purl()
	if errors.Is(err, sbom.ErrNoPurl) {
		return sbom.FallbackKey(item), nil
	}
	if err != nil {
		return "", err
	}
	stripped := p.WithQualifiers(nil).WithSubpath("")
	return stripped.String(), nil
}

// uniqueKeySyft builds a merge key from a Syft-reported component: a
// lowercased name for PyPI, and a URL-encoded version with the module
// version folded out of the subpath for Golang. Syft never sets qualifiers
// for npm, pip or golang purls, so unlike uniqueKeyCachi2 there is nothing
// to strip there.
func uniqueKeySyft(item sbom.Item) (string, error) {
	p, err := item.Purl()
	if errors.Is(err, sbom.ErrNoPurl) {
		return sbom.FallbackKey(item), nil
	}
	if err != nil {
		return "", err
	}

	name, version, subpath := p.Name, p.Version, p.Subpath

	if p.Type == "pypi" {
		name = strings.ToLower(name)
	}

	if p.Type == "golang" {
		if version != "" {
			version = url.QueryEscape(version)
		}
		if subpath != "" && sbom.SubpathIsVersion(subpath) {
			name = name + "/" + subpath
			subpath = ""
		}
	}

	return p.WithName(name).WithVersion(version).WithSubpath(subpath).String(), nil
}

// syftComponentFilter decides, for a given Syft-reported component, whether
// the merged SBOM should drop it in favour of a Cachi2-reported duplicate.
type syftComponentFilter func(sbom.Item) (bool, error)

// newSyftComponentFilter builds a filter from the Cachi2 side of a merge. A
// Syft component is considered a duplicate if it shares a Cachi2 component's
// unique key, is a local Golang replacement directive, or is a
// non-registry PyPI/npm dependency also reported by Cachi2 (which reports
// those in an unrelated shape, so the match is by name/path rather than
// key).
func newSyftComponentFilter(cachi2Components []sbom.Item) (syftComponentFilter, error) {
	var nonRegistryNames []string
	localPaths := map[string]bool{}
	indexed := map[string]sbom.Item{}

	for _, c := range cachi2Components {
		if sbom.IsCachi2NonRegistryDependency(c) {
			nonRegistryNames = append(nonRegistryNames, c.Name())
		}
		if p, err := c.Purl(); err == nil && p.Subpath != "" {
			localPaths[path.Clean(p.Subpath)] = true
		}
		key, err := uniqueKeyCachi2(c)
		if err != nil {
			return nil, err
		}
		indexed[key] = c
	}

	isDuplicateNonRegistry := func(c sbom.Item) bool {
		for _, n := range nonRegistryNames {
			if n == c.Name() {
				return true
			}
		}
		return false
	}

	isDuplicateNpmLocalPath := func(c sbom.Item) bool {
		p, err := c.Purl()
		if err != nil || p.Type != "npm" {
			return false
		}
		full := path.Join(p.Namespace, p.Name)
		return localPaths[path.Clean(full)]
	}

	return func(c sbom.Item) (bool, error) {
		if sbom.IsSyftLocalGolangComponent(c) {
			return true, nil
		}
		if isDuplicateNonRegistry(c) {
			return true, nil
		}
		if isDuplicateNpmLocalPath(c) {
			return true, nil
		}
		key, err := uniqueKeySyft(c)
		if err != nil {
			return false, err
		}
		_, ok := indexed[key]
		return ok, nil
	}, nil
}
