// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package annotate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CycloneDX/cyclonedx-go"

	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/purl"
)

// CopiedArtifact is one entry of the YAML manifest a "skopeo copy"-shaped
// pipeline step hands off: a single file fetched from source and staged for
// inclusion in the destination.
type CopiedArtifact struct {
	Source   string
	Filename string
	Type     string
	SHA256   string
}

// ErrUnsupportedSBOMType is returned by OCICopySBOM for any type other than
// "cyclonedx". An SPDX rendering of this document shape was never
// implemented upstream.
var ErrUnsupportedSBOMType = errors.New("annotate: spdx sbom-for-oci-copy output is not implemented")

func (a CopiedArtifact) toPurl() purl.Purl {
	return purl.New("generic", "", a.Filename, "", map[string]string{
		"download_url": a.Source,
		"checksum":     "sha256:" + a.SHA256,
	}, "")
}

func (a CopiedArtifact) toCycloneDXComponent() cyclonedx.Component {
	return cyclonedx.Component{
		Type:        cyclonedx.ComponentTypeFile,
		Name:        a.Filename,
		PackageURL:  a.toPurl().String(),
		Hashes:      &[]cyclonedx.Hash{{Algorithm: cyclonedx.HashAlgoSHA256, Value: a.SHA256}},
		ExternalReferences: &[]cyclonedx.ExternalReference{
			{Type: cyclonedx.ERTypeDistribution, URL: a.Source},
		},
	}
}

// OCICopySBOM renders the artifacts copied during an OCI-to-OCI copy step as
// a CycloneDX 1.5 document, built with the typed cyclonedx-go model and
// round-tripped through its JSON encoder so the result matches what every
// other CycloneDX-consuming part of this module expects: a plain
// map[string]any, the same shape encoding/json.Unmarshal produces for any
// fixture SBOM read from disk. sbomType must be "cyclonedx"; "spdx" is a
// documented non-goal upstream, not just an unimplemented stub, so it
// returns ErrUnsupportedSBOMType rather than a best-effort rendering.
func OCICopySBOM(artifacts []CopiedArtifact, sbomType string) (map[string]any, error) {
	if sbomType != "cyclonedx" {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedSBOMType, sbomType)
	}

	components := make([]cyclonedx.Component, len(artifacts))
	for i, a := range artifacts {
		components[i] = a.toCycloneDXComponent()
	}

	bom := cyclonedx.NewBOM()
	bom.SpecVersion = cyclonedx.SpecVersion1_5
	bom.Components = &components

	var buf bytes.Buffer
	if err := cyclonedx.NewBOMEncoder(&buf, cyclonedx.BOMFileFormatJSON).Encode(bom); err != nil {
		return nil, fmt.Errorf("annotate: encode oci-copy sbom: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("annotate: decode oci-copy sbom: %w", err)
	}
	return doc, nil
}
