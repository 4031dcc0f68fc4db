// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourceimage

import (
	"context"
	"fmt"
	"os"
	"strings"

	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/konflux-ci/source-sbom-tools/internal/pkg/registry"
	"github.com/konflux-ci/source-sbom-tools/pkg/ocisbom/imgref"
)

// pushResult computes the two output references - "<binary>.src" and
// "<repository>:<algo>-<hex>.src" - and pushes the local layout to both,
// returning the digest-qualified reference and the digest captured from the push.
func pushResult(ctx context.Context, opts Options, localDir string, manifestDesc imgspecv1.Descriptor) (imageURL, imageDigest string, err error) {
	ref := imgref.Parse(opts.OutputBinaryImage)

	legacyRef := opts.OutputBinaryImage + ".src"

	algo := manifestDesc.Digest.Algorithm().String()
	hex := manifestDesc.Digest.Encoded()
	digestRef := fmt.Sprintf("%s:%s-%s.src", ref.Repository, algo, hex)

	digestFile, err := os.CreateTemp("", "source-image-digest-")
	if err != nil {
		return "", "", fatalf("create digest file: %w", err)
	}
	digestFilePath := digestFile.Name()
	digestFile.Close()
	defer os.Remove(digestFilePath)

	for _, dest := range []string{legacyRef, digestRef} {
		if opts.Registry == nil {
			continue
		}
		if err := opts.Registry.Copy(ctx, "oci:"+localDir, "docker://"+dest, registry.CopyOptions{DigestFile: digestFilePath}); err != nil {
			return "", "", &BuildError{Err: fmt.Errorf("push %s: %w", dest, err)}
		}
	}

	pushedDigest, err := os.ReadFile(digestFilePath)
	if err != nil {
		return "", "", fatalf("read pushed digest: %w", err)
	}

	return digestRef, strings.TrimSpace(string(pushedDigest)), nil
}
