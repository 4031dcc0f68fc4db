// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package imgref parses container image references without any network
// access or canonicalization. go-containerregistry's name package (and
// similar libraries in the ecosystem) canonicalize bare references against
// an implicit docker.io/library prefix; this package deliberately does not,
// since the registry allow-list gate must operate on exactly the string the
// caller supplied. See Design Note 9.6.
package imgref

import "strings"

// Reference is a parsed image reference: [registry[:port]/]repository[:tag][@digest].
type Reference struct {
	// Registry is the leading host[:port] path segment, if the first
	// segment of Repository looks like a registry host (contains '.' or
	// ':', or is exactly "localhost"). Empty if no such segment is present
	// - this is never inferred, per the non-canonicalizing parser policy.
	Registry string
	// Repository is the full path before any tag/digest, including the
	// registry segment if present (e.g. "quay.io/ns/app").
	Repository string
	// Name is the last '/'-delimited segment of Repository.
	Name string
	// Tag is the tag, if any, without the leading ':'.
	Tag string
	// Digest is "algo:hex", if any, without the leading '@'.
	Digest string
}

// Parse splits s into its constituent parts. It never fails: an
// unparsable-looking string is returned verbatim as Repository/Name with
// empty Tag/Digest, since this parser has no notion of "invalid" beyond
// what plain string splitting produces.
func Parse(s string) Reference {
	rest := s
	var ref Reference

	if at := strings.Index(rest, "@"); at >= 0 {
		ref.Digest = rest[at+1:]
		rest = rest[:at]
	}

	// Split on the rightmost ':', but only if it occurs after the last '/'
	// - otherwise it's part of a bare "host:port" repository with no tag.
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		slash := strings.LastIndex(rest, "/")
		if colon > slash {
			ref.Tag = rest[colon+1:]
			rest = rest[:colon]
		}
	}

	ref.Repository = rest

	if slash := strings.LastIndex(rest, "/"); slash >= 0 {
		ref.Name = rest[slash+1:]
		first := rest[:slash]
		if firstSlash := strings.Index(first, "/"); firstSlash >= 0 {
			first = first[:firstSlash]
		}
		if looksLikeRegistry(first) {
			ref.Registry = first
		}
	} else {
		ref.Name = rest
	}

	return ref
}

func looksLikeRegistry(segment string) bool {
	return segment == "localhost" || strings.ContainsAny(segment, ".:")
}

// String reassembles the reference into a pullspec string. Digest takes
// precedence in round-tripping only in the sense that both may be present
// simultaneously (e.g. "repo:tag@digest"), matching how a build pipeline
// resolves a tag to a digest without discarding the tag.
func (r Reference) String() string {
	s := r.Repository
	if r.Tag != "" {
		s += ":" + r.Tag
	}
	if r.Digest != "" {
		s += "@" + r.Digest
	}
	return s
}

// WithoutTagOrDigest returns the bare repository, used when the caller
// needs to re-append its own tag or digest (e.g. the source-image
// assembler building "<repository>:<algo>-<hex>.src").
func (r Reference) WithoutTagOrDigest() string {
	return r.Repository
}

// DigestAlgoHex splits Digest ("algo:hex") into its two parts. Returns
// empty strings if Digest is unset or malformed.
func (r Reference) DigestAlgoHex() (algo, hex string) {
	parts := strings.SplitN(r.Digest, ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
