// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package annotate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/purl"
)

// IndexMember is one child manifest entry of an OCI image index, as found
// under a "buildah manifest inspect"-shaped document's .manifests array.
type IndexMember struct {
	MediaType string
	Digest    string
	Arch      string
}

// IndexInspect is the subset of "buildah manifest inspect" output needed to
// build an image-index SBOM.
type IndexInspect struct {
	MediaType string
	Manifests []IndexMember
}

// indexImage is an image identity annotated with an optional architecture,
// the architecture being set only for a child manifest of an index.
type indexImage struct {
	repository string
	name       string
	digest     string
	tag        string
	arch       string
}

func indexImageFromURLAndDigest(imageURLAndTag, imageDigest, arch string) indexImage {
	repository, tag := rsplitOnce(imageURLAndTag, ":")
	_, name := rsplitOnce(repository, "/")
	return indexImage{repository: repository, name: name, digest: imageDigest, tag: tag, arch: arch}
}

func (i indexImage) digestAlgo() string {
	algo, _, _ := strings.Cut(i.digest, ":")
	return strings.ToUpper(algo)
}

func (i indexImage) digestHexVal() string {
	_, val, _ := strings.Cut(i.digest, ":")
	return val
}

// purls returns the image's purl(s): the plain digest-pinned purl, plus -
// only when both an index digest and an architecture are known - an
// arch-qualified variant pinned to the index digest, listed first.
func (i indexImage) purls(indexDigest string) []string {
	var out []string
	if indexDigest != "" && i.arch != "" {
		out = append(out, purl.New("oci", "", i.name, indexDigest, map[string]string{
			"arch":           i.arch,
			"repository_url": i.repository,
		}, "").String())
	}
	out = append(out, purl.New("oci", "", i.name, i.digest, map[string]string{
		"repository_url": i.repository,
	}, "").String())
	return out
}

func (i indexImage) proposeSPDXID() string {
	sum := sha256.Sum256([]byte(i.purls("")[0]))
	return fmt.Sprintf("SPDXRef-image-%s-%s", i.name, hex.EncodeToString(sum[:]))
}

func createIndexPackage(image indexImage, spdxID, imageIndexDigest string) map[string]any {
	if spdxID == "" {
		spdxID = image.proposeSPDXID()
	}
	name := image.name
	if image.arch != "" {
		name = fmt.Sprintf("%s_%s", image.name, image.arch)
	}

	purls := image.purls(imageIndexDigest)
	externalRefs := make([]any, len(purls))
	for i, p := range purls {
		externalRefs[i] = map[string]any{
			"referenceCategory": "PACKAGE-MANAGER",
			"referenceType":     "purl",
			"referenceLocator":  p,
		}
	}

	return map[string]any{
		"SPDXID":           spdxID,
		"name":             name,
		"versionInfo":      image.tag,
		"supplier":         "NOASSERTION",
		"downloadLocation": "NOASSERTION",
		"licenseDeclared":  "NOASSERTION",
		"externalRefs":     externalRefs,
		"checksums": []any{
			map[string]any{"algorithm": image.digestAlgo(), "checksumValue": image.digestHexVal()},
		},
	}
}

func variantOfRelationship(spdxID, relatedSPDXID string) map[string]any {
	return map[string]any{
		"spdxElementId":      spdxID,
		"relationshipType":   "VARIANT_OF",
		"relatedSpdxElement": relatedSPDXID,
	}
}

// IndexImageSBOM builds an SPDX document describing an image index and each
// of its per-architecture manifests, with a VARIANT_OF relationship from
// each child manifest to the index. now is injected so the creation timestamp
// is controllable under test; documentNamespace always carries a freshly
// generated random UUID.
func IndexImageSBOM(imageIndexURL, imageIndexDigest string, inspect IndexInspect, now time.Time) (map[string]any, error) {
	if inspect.MediaType != "application/vnd.oci.image.index.v1+json" {
		return nil, fmt.Errorf("annotate: invalid inspect input, requires an image index manifest, got mediaType %q", inspect.MediaType)
	}

	indexImg := indexImageFromURLAndDigest(imageIndexURL, imageIndexDigest, "")
	sbomName := fmt.Sprintf("%s@%s", indexImg.repository, indexImg.digest)

	const indexSPDXID = "SPDXRef-image-index"
	packages := []any{createIndexPackage(indexImg, indexSPDXID, "")}
	relationships := []any{map[string]any{
		"spdxElementId":      "SPDXRef-DOCUMENT",
		"relationshipType":   "DESCRIBES",
		"relatedSpdxElement": indexSPDXID,
	}}

	for _, m := range inspect.Manifests {
		if m.MediaType != "application/vnd.oci.image.manifest.v1+json" {
			continue
		}
		archImg := indexImage{
			arch:       m.Arch,
			name:       indexImg.name,
			digest:     m.Digest,
			tag:        indexImg.tag,
			repository: indexImg.repository,
		}
		packages = append(packages, createIndexPackage(archImg, "", indexImg.digest))
		relationships = append(relationships, variantOfRelationship(archImg.proposeSPDXID(), indexSPDXID))
	}

	return map[string]any{
		"spdxVersion":       "SPDX-2.3",
		"dataLicense":       "CC0-1.0",
		"documentNamespace": fmt.Sprintf("https://konflux-ci.dev/spdxdocs/%s-%s-%s", indexImg.name, indexImg.tag, uuid.New().String()),
		"SPDXID":            "SPDXRef-DOCUMENT",
		"creationInfo": map[string]any{
			"created":            now.UTC().Format(time.RFC3339),
			"creators":           []any{"Tool: Konflux"},
			"licenseListVersion": "3.25",
		},
		"name":          sbomName,
		"packages":      packages,
		"relationships": relationships,
	}, nil
}
