// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package purl provides a small, mergeable wrapper around package-URLs
// (https://github.com/package-url/purl-spec), built on top of
// packageurl-go. It exposes qualifiers as a plain map (rather than the
// upstream's ordered slice) because every consumer in this module needs
// map semantics (membership tests, qualifier stripping) and deterministic
// serialization is handled entirely at String() time.
package purl

import (
	packageurl "github.com/package-url/packageurl-go"
)

// Purl is a parsed package-URL. The zero value is not a valid purl.
type Purl struct {
	Type       string
	Namespace  string
	Name       string
	Version    string
	Qualifiers map[string]string
	Subpath    string
}

// FromString parses s as a package-URL. A parse failure is returned as an
// error; callers that must never abort a workflow on an unparsable purl
// (per the parser error-handling policy) should treat a non-nil error as
// "no purl" rather than propagating it.
func FromString(s string) (Purl, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return Purl{}, err
	}
	return fromPackageURL(p), nil
}

func fromPackageURL(p packageurl.PackageURL) Purl {
	return Purl{
		Type:       p.Type,
		Namespace:  p.Namespace,
		Name:       p.Name,
		Version:    p.Version,
		Qualifiers: p.Qualifiers.Map(),
		Subpath:    p.Subpath,
	}
}

func (p Purl) toPackageURL() packageurl.PackageURL {
	var quals packageurl.Qualifiers
	if len(p.Qualifiers) > 0 {
		quals = packageurl.QualifiersFromMap(p.Qualifiers)
	}
	return *packageurl.NewPackageURL(p.Type, p.Namespace, p.Name, p.Version, quals, p.Subpath)
}

// New builds a Purl directly from its fields, for callers constructing a
// fresh purl (e.g. C9 annotators building an "oci" purl for the image being
// described) rather than parsing one.
func New(purlType, namespace, name, version string, qualifiers map[string]string, subpath string) Purl {
	return Purl{
		Type:       purlType,
		Namespace:  namespace,
		Name:       name,
		Version:    version,
		Qualifiers: qualifiers,
		Subpath:    subpath,
	}
}

// String serializes the purl deterministically: qualifier keys are sorted
// and reserved characters are percent-encoded, matching the package-url
// specification's canonical form.
func (p Purl) String() string {
	return p.toPackageURL().ToString()
}

// WithQualifiers returns a copy of p with its qualifiers replaced. Passing
// nil clears them, mirroring the Python reference's
// `purl._replace(qualifiers=None)`.
func (p Purl) WithQualifiers(qualifiers map[string]string) Purl {
	p.Qualifiers = qualifiers
	return p
}

// WithSubpath returns a copy of p with its subpath replaced.
func (p Purl) WithSubpath(subpath string) Purl {
	p.Subpath = subpath
	return p
}

// WithName returns a copy of p with its name replaced.
func (p Purl) WithName(name string) Purl {
	p.Name = name
	return p
}

// WithVersion returns a copy of p with its version replaced.
func (p Purl) WithVersion(version string) Purl {
	p.Version = version
	return p
}

// Equal reports whether p and other are value-equal across every field.
// Qualifier comparison is order-insensitive, as required by the spec.
func (p Purl) Equal(other Purl) bool {
	if p.Type != other.Type || p.Namespace != other.Namespace || p.Name != other.Name ||
		p.Version != other.Version || p.Subpath != other.Subpath {
		return false
	}
	if len(p.Qualifiers) != len(other.Qualifiers) {
		return false
	}
	for k, v := range p.Qualifiers {
		if ov, ok := other.Qualifiers[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
