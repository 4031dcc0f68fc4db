// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sbom models the two component shapes merge and annotate operate
// on - CycloneDX components and SPDX packages - as a single Item interface
// over a raw map[string]any. A raw map is used rather than a typed CycloneDX
// or SPDX struct so that fields neither this module nor its callers know
// about round-trip through merge/annotate untouched, the same approach
// buildah's internal sbom merger takes.
package sbom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/purl"
)

// ErrNoPurl is returned by Item.Purl when the item carries no parseable
// purl. Callers that need a merge key fall back to FallbackKey rather than
// treating this as fatal.
var ErrNoPurl = errors.New("sbom: item has no purl")

// Item is the common surface CDXComponent and SPDXPackage both satisfy.
type Item interface {
	ID() string
	Name() string
	Version() string
	// Purl returns the item's single purl. It returns ErrNoPurl if the item
	// has none, and a non-ErrNoPurl error if the item is ambiguous (an SPDX
	// package with more than one purl external reference).
	Purl() (purl.Purl, error)
	Unwrap() map[string]any
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// FallbackKey returns a merge key for a component with no usable purl. A
// name starting with "." or "/" usually denotes a local directory, which is
// not a useful dedup key, so the item's own ID is used instead.
func FallbackKey(item Item) string {
	name := item.Name()
	if name != "" && !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "/") {
		return name + "@" + item.Version()
	}
	return item.ID()
}

// CDXComponent wraps a single entry of a CycloneDX document's .components
// array.
type CDXComponent struct {
	Data map[string]any
}

func (c CDXComponent) ID() string      { return str(c.Data["bom-ref"]) }
func (c CDXComponent) Name() string    { return str(c.Data["name"]) }
func (c CDXComponent) Version() string { return str(c.Data["version"]) }

func (c CDXComponent) Purl() (purl.Purl, error) {
	s := str(c.Data["purl"])
	if s == "" {
		return purl.Purl{}, ErrNoPurl
	}
	p, err := purl.FromString(s)
	if err != nil {
		return purl.Purl{}, ErrNoPurl
	}
	return p, nil
}

func (c CDXComponent) Unwrap() map[string]any { return c.Data }

// WrapAsCDX adapts a raw CycloneDX .components array into Items.
func WrapAsCDX(items []map[string]any) []CDXComponent {
	out := make([]CDXComponent, len(items))
	for i, d := range items {
		out[i] = CDXComponent{Data: d}
	}
	return out
}

// SPDXPackage wraps a single entry of an SPDX document's .packages array.
type SPDXPackage struct {
	Data map[string]any
}

func (p SPDXPackage) ID() string      { return str(p.Data["SPDXID"]) }
func (p SPDXPackage) Name() string    { return str(p.Data["name"]) }
func (p SPDXPackage) Version() string { return str(p.Data["versionInfo"]) }

// AllPurls returns every externalRefs entry with referenceType "purl" that
// parses successfully. Entries that fail to parse are dropped silently, as
// in the upstream reference implementation.
func (p SPDXPackage) AllPurls() []purl.Purl {
	refs, _ := p.Data["externalRefs"].([]any)
	var out []purl.Purl
	for _, r := range refs {
		rm, ok := r.(map[string]any)
		if !ok || str(rm["referenceType"]) != "purl" {
			continue
		}
		loc := str(rm["referenceLocator"])
		if loc == "" {
			continue
		}
		pu, err := purl.FromString(loc)
		if err != nil {
			continue
		}
		out = append(out, pu)
	}
	return out
}

func (p SPDXPackage) Purl() (purl.Purl, error) {
	purls := p.AllPurls()
	switch len(purls) {
	case 0:
		return purl.Purl{}, ErrNoPurl
	case 1:
		return purls[0], nil
	default:
		strs := make([]string, len(purls))
		for i, pu := range purls {
			strs[i] = pu.String()
		}
		return purl.Purl{}, fmt.Errorf("multiple purls for SPDX package %s: %s", p.ID(), strings.Join(strs, ", "))
	}
}

func (p SPDXPackage) Unwrap() map[string]any { return p.Data }

// WrapAsSPDX adapts a raw SPDX .packages array into Items.
func WrapAsSPDX(items []map[string]any) []SPDXPackage {
	out := make([]SPDXPackage, len(items))
	for i, d := range items {
		out[i] = SPDXPackage{Data: d}
	}
	return out
}

// SubpathIsVersion reports whether a purl subpath is actually an
// encoded module version rather than a real subpath, e.g. Syft emitting
// "pkg:golang/.../retrodep@v2.1.1#v2" where "v2" is the module major
// version, not a file path within the module.
func SubpathIsVersion(subpath string) bool {
	rest, ok := strings.CutPrefix(subpath, "v")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsSyftLocalGolangComponent reports whether a Syft-reported Go component is
// a local replacement directive, which Cachi2 reports in an entirely
// different shape, so the Syft duplicate must be dropped when merging.
func IsSyftLocalGolangComponent(item Item) bool {
	p, err := item.Purl()
	if err != nil || p.Type != "golang" {
		return false
	}
	if p.Subpath != "" && !SubpathIsVersion(p.Subpath) {
		return true
	}
	return strings.HasPrefix(item.Name(), ".") || item.Version() == "(devel)"
}

// IsCachi2NonRegistryDependency reports whether a Cachi2 component was
// fetched from a VCS or direct file location rather than a package index.
// Cachi2 reports these differently from Syft, so the Syft duplicate must be
// identified and dropped by name (Cachi2 does not record the duplicate's
// version for non-PyPI Pip dependencies).
func IsCachi2NonRegistryDependency(item Item) bool {
	p, err := item.Purl()
	if err != nil {
		return false
	}
	if p.Type != "pypi" && p.Type != "npm" {
		return false
	}
	_, hasVCS := p.Qualifiers["vcs_url"]
	_, hasDownload := p.Qualifiers["download_url"]
	return hasVCS || hasDownload
}
