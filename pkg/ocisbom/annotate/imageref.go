// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package annotate stamps an image's identity (add-image-reference) or its
// base-image formulation (add-base-image-formulation) onto an existing SBOM
// document, and builds the two synthesized document shapes this module
// produces from scratch (index-image-sbom, sbom-for-oci-copy).
package annotate

import (
	"strings"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/purl"
)

// ImageRef is the minimal image identity add-image-reference needs: where
// it came from (repository, tag) and what it resolved to (digest).
type ImageRef struct {
	Repository string
	Name       string
	Digest     string // "algo:hex"
	Tag        string
}

// ImageFromURLAndDigest builds an ImageRef from a "repository/name:tag"
// pullspec and a resolved manifest digest. The tag is split off at the
// rightmost ':', matching the upstream pipeline's simpler rsplit policy
// here rather than imgref's non-canonicalizing parser - this CLI's contract
// always supplies a tagged reference, never a bare "host:port" repository.
func ImageFromURLAndDigest(imageURLAndTag, imageDigest string) ImageRef {
	repository, tag := rsplitOnce(imageURLAndTag, ":")
	_, name := rsplitOnce(repository, "/")
	return ImageRef{Repository: repository, Name: name, Digest: imageDigest, Tag: tag}
}

func rsplitOnce(s, sep string) (before, after string) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(sep):]
}

var cdxDigestAlgoNames = map[string]string{
	"sha256": "SHA-256",
	"sha512": "SHA-512",
}

// DigestAlgoCycloneDX returns the digest algorithm name in the form
// CycloneDX's hashes[].alg expects.
func (i ImageRef) DigestAlgoCycloneDX() string {
	algo, _, _ := strings.Cut(i.Digest, ":")
	if name, ok := cdxDigestAlgoNames[algo]; ok {
		return name
	}
	return strings.ToUpper(algo)
}

// DigestAlgoSPDX returns the digest algorithm name in the form SPDX's
// checksums[].algorithm expects.
func (i ImageRef) DigestAlgoSPDX() string {
	algo, _, _ := strings.Cut(i.Digest, ":")
	return strings.ToUpper(algo)
}

// DigestHexVal returns the hex digest value, without its algorithm prefix.
func (i ImageRef) DigestHexVal() string {
	_, hex, _ := strings.Cut(i.Digest, ":")
	return hex
}

// Purl returns the "oci" purl identifying this image.
func (i ImageRef) Purl() purl.Purl {
	return purl.New("oci", "", i.Name, i.Digest, map[string]string{"repository_url": i.Repository}, "")
}
