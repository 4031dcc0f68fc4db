// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package bsilayer classifies the tar members of a layer produced by the
// external BSI (build-source-image) layer builder and derives the
// deduplication identity of the artefact it carries. Every such layer
// contains exactly two significant members: a regular file holding the
// artefact's content, addressed by its own digest, and a symlink naming it
// either an RPM or an extra source tarball.
package bsilayer

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"regexp"
	"strings"
)

// Identity is a BSI layer's deduplication key. It is deliberately not the
// layer's own digest: re-tarring the same logical artefact (different
// mtimes, ordering, compression) must still compare equal.
type Identity struct {
	BlobMemberPath string
	ArtefactName   string
}

var (
	blobMemberRe     = regexp.MustCompile(`^blobs/sha256/[0-9a-f]+$`)
	rpmMemberRe      = regexp.MustCompile(`^rpm_dir/(.+\.src\.rpm)$`)
	extraSrcMemberRe = regexp.MustCompile(`^extra_src_dir/(extra-src-[0-9a-f]+\.tar)$`)
)

func normalize(name string) string {
	return strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
}

// resolveLink resolves a symlink member's target relative to the directory
// the symlink itself sits in, as the filesystem would once the layer is
// unpacked.
func resolveLink(memberName, target string) string {
	if strings.HasPrefix(target, "/") {
		return normalize(target)
	}
	return normalize(pathpkg.Join(pathpkg.Dir(memberName), target))
}

// Inspect classifies the members of the layer tarball at path and returns
// its dedup Identity.
func Inspect(path string) (Identity, error) {
	blobMemberPath, symlinkKind, symlinkArtefact, linkTarget, err := scanMembers(path)
	if err != nil {
		return Identity{}, err
	}
	if blobMemberPath == "" {
		return Identity{}, fmt.Errorf("bsilayer: %s: no blob member under blobs/sha256/", path)
	}
	if normalize(linkTarget) != blobMemberPath {
		return Identity{}, fmt.Errorf("bsilayer: %s: symlink target %q does not resolve to blob member %q", path, linkTarget, blobMemberPath)
	}

	switch symlinkKind {
	case kindRPM:
		return Identity{BlobMemberPath: blobMemberPath, ArtefactName: symlinkArtefact}, nil
	case kindExtraSrc:
		artefact, err := firstRegularMemberOfNestedTar(path, blobMemberPath)
		if err != nil {
			return Identity{}, err
		}
		return Identity{BlobMemberPath: blobMemberPath, ArtefactName: artefact}, nil
	default:
		return Identity{}, fmt.Errorf("bsilayer: %s: no rpm_dir or extra_src_dir symlink member found", path)
	}
}

type symlinkKind int

const (
	kindNone symlinkKind = iota
	kindRPM
	kindExtraSrc
)

func scanMembers(path string) (blobMemberPath string, kind symlinkKind, artefact, linkTarget string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", kindNone, "", "", fmt.Errorf("bsilayer: open %s: %w", path, err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, rerr := tr.Next()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", kindNone, "", "", fmt.Errorf("bsilayer: read %s: %w", path, rerr)
		}

		name := normalize(hdr.Name)
		switch {
		case hdr.Typeflag == tar.TypeReg && blobMemberRe.MatchString(name):
			blobMemberPath = name
		case hdr.Typeflag == tar.TypeSymlink && rpmMemberRe.MatchString(name):
			kind = kindRPM
			artefact = rpmMemberRe.FindStringSubmatch(name)[1]
			linkTarget = resolveLink(name, hdr.Linkname)
		case hdr.Typeflag == tar.TypeSymlink && extraSrcMemberRe.MatchString(name):
			kind = kindExtraSrc
			linkTarget = resolveLink(name, hdr.Linkname)
		}
	}
	return blobMemberPath, kind, artefact, linkTarget, nil
}

// firstRegularMemberOfNestedTar re-reads path, opens the blob member's
// content as a tar in turn, and returns the name of its first regular
// member - the extra source's artefact name.
func firstRegularMemberOfNestedTar(path, blobMemberPath string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("bsilayer: open %s: %w", path, err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("bsilayer: read %s: %w", path, err)
		}
		if normalize(hdr.Name) != blobMemberPath {
			continue
		}

		nested := tar.NewReader(tr)
		for {
			nhdr, nerr := nested.Next()
			if nerr == io.EOF {
				break
			}
			if nerr != nil {
				return "", fmt.Errorf("bsilayer: read nested tar in %s blob %s: %w", path, blobMemberPath, nerr)
			}
			if nhdr.Typeflag == tar.TypeReg {
				return nhdr.Name, nil
			}
		}
		return "", fmt.Errorf("bsilayer: %s: extra-src blob %s contains no regular file member", path, blobMemberPath)
	}
	return "", fmt.Errorf("bsilayer: %s: blob member %s not found while reading its content", path, blobMemberPath)
}
