// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package ocilayout implements the on-disk OCI image layout this module
// reads from and writes to: an "oci-layout" marker, an index.json, and
// content-addressed blobs under blobs/<algo>/<hex>. Saving an object is
// always two-phase - serialize, hash, write only if the digest changed -
// and never deletes a blob on its own; the caller, which alone knows
// whether the old descriptor is still referenced elsewhere, decides that.
package ocilayout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	digest "github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	imgspecv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// Layout is an OCI image layout rooted at Path.
type Layout struct {
	Path string
}

// Create bootstraps a new, empty image layout at path: the blobs directory,
// the oci-layout marker file, and an empty index.json.
func Create(path string) (*Layout, error) {
	if err := os.MkdirAll(filepath.Join(path, "blobs", "sha256"), 0o755); err != nil {
		return nil, fmt.Errorf("ocilayout: create blobs directory: %w", err)
	}

	l := &Layout{Path: path}

	marker := imgspecv1.ImageLayout{Version: imgspecv1.ImageLayoutVersion}
	if err := writeJSONFile(filepath.Join(path, "oci-layout"), marker); err != nil {
		return nil, fmt.Errorf("ocilayout: write oci-layout marker: %w", err)
	}

	idx := imgspecv1.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: imgspecv1.MediaTypeImageIndex,
		Manifests: []imgspecv1.Descriptor{},
	}
	if err := l.SaveIndex(idx); err != nil {
		return nil, err
	}
	return l, nil
}

// Open opens an existing image layout at path without validating its
// contents; validation happens lazily as each object is loaded.
func Open(path string) *Layout {
	return &Layout{Path: path}
}

func (l *Layout) blobPath(d digest.Digest) string {
	return filepath.Join(l.Path, "blobs", d.Algorithm().String(), d.Encoded())
}

func writeJSONFile(path string, v any) error {
	content, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

// SaveBlob writes content under its content digest if no blob with that
// digest already exists, and returns its descriptor. It never overwrites an
// existing blob (the content is immutable once a digest is assigned) and
// never deletes anything; a changed digest means new content, not an
// in-place update.
func (l *Layout) SaveBlob(content []byte, mediaType string) (imgspecv1.Descriptor, error) {
	d := digest.FromBytes(content)
	path := l.blobPath(d)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return imgspecv1.Descriptor{}, fmt.Errorf("ocilayout: create blob directory: %w", err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return imgspecv1.Descriptor{}, fmt.Errorf("ocilayout: write blob: %w", err)
		}
	} else if err != nil {
		return imgspecv1.Descriptor{}, fmt.Errorf("ocilayout: stat blob: %w", err)
	}

	return imgspecv1.Descriptor{
		MediaType: mediaType,
		Digest:    d,
		Size:      int64(len(content)),
	}, nil
}

// ReadBlob reads and digest-verifies the blob descriptor refers to.
func (l *Layout) ReadBlob(d imgspecv1.Descriptor) ([]byte, error) {
	data, err := os.ReadFile(l.blobPath(d.Digest))
	if err != nil {
		return nil, fmt.Errorf("ocilayout: read blob %s: %w", d.Digest, err)
	}
	if got := digest.FromBytes(data); got != d.Digest {
		return nil, fmt.Errorf("ocilayout: blob %s failed verification, got digest %s", d.Digest, got)
	}
	return data, nil
}

// DeleteBlob removes a blob file. Deleting an already-absent blob is not an
// error, since the caller's bookkeeping about what's still referenced is
// authoritative, not the filesystem's.
func (l *Layout) DeleteBlob(d digest.Digest) error {
	err := os.Remove(l.blobPath(d))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ReplaceBlob saves new content and, if it differs from oldDigest, deletes
// the old blob. This is the two-phase save path: the new blob always lands
// on disk first, and only a real digest change triggers a deletion.
func (l *Layout) ReplaceBlob(oldDigest *digest.Digest, content []byte, mediaType string) (imgspecv1.Descriptor, error) {
	newDesc, err := l.SaveBlob(content, mediaType)
	if err != nil {
		return imgspecv1.Descriptor{}, err
	}
	if oldDigest != nil && *oldDigest != newDesc.Digest {
		if err := l.DeleteBlob(*oldDigest); err != nil {
			return imgspecv1.Descriptor{}, fmt.Errorf("ocilayout: delete superseded blob %s: %w", *oldDigest, err)
		}
	}
	return newDesc, nil
}

// SaveIndex writes index.json, the layout's sole non-content-addressed file.
func (l *Layout) SaveIndex(idx imgspecv1.Index) error {
	return writeJSONFile(filepath.Join(l.Path, "index.json"), idx)
}

// LoadIndex reads index.json.
func (l *Layout) LoadIndex() (imgspecv1.Index, error) {
	var idx imgspecv1.Index
	data, err := os.ReadFile(filepath.Join(l.Path, "index.json"))
	if err != nil {
		return idx, fmt.Errorf("ocilayout: read index.json: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("ocilayout: parse index.json: %w", err)
	}
	return idx, nil
}

// AppendManifest adds desc to index.json's manifest list, preserving
// existing order (new entries are appended, never reordered).
func (l *Layout) AppendManifest(desc imgspecv1.Descriptor) error {
	idx, err := l.LoadIndex()
	if err != nil {
		return err
	}
	idx.Manifests = append(idx.Manifests, desc)
	return l.SaveIndex(idx)
}

// SaveManifest serializes and saves an image manifest as a blob.
func (l *Layout) SaveManifest(m imgspecv1.Manifest) (imgspecv1.Descriptor, error) {
	if m.SchemaVersion == 0 {
		m.SchemaVersion = 2
	}
	if m.MediaType == "" {
		m.MediaType = imgspecv1.MediaTypeImageManifest
	}
	content, err := json.Marshal(m)
	if err != nil {
		return imgspecv1.Descriptor{}, fmt.Errorf("ocilayout: marshal manifest: %w", err)
	}
	return l.SaveBlob(content, imgspecv1.MediaTypeImageManifest)
}

// LoadManifest reads and parses a manifest blob.
func (l *Layout) LoadManifest(d imgspecv1.Descriptor) (imgspecv1.Manifest, error) {
	var m imgspecv1.Manifest
	data, err := l.ReadBlob(d)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("ocilayout: parse manifest: %w", err)
	}
	return m, nil
}

// SaveConfig serializes and saves an image config as a blob.
func (l *Layout) SaveConfig(c imgspecv1.Image) (imgspecv1.Descriptor, error) {
	content, err := json.Marshal(c)
	if err != nil {
		return imgspecv1.Descriptor{}, fmt.Errorf("ocilayout: marshal config: %w", err)
	}
	return l.SaveBlob(content, imgspecv1.MediaTypeImageConfig)
}

// LoadConfig reads and parses a config blob.
func (l *Layout) LoadConfig(d imgspecv1.Descriptor) (imgspecv1.Image, error) {
	var c imgspecv1.Image
	data, err := l.ReadBlob(d)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("ocilayout: parse config: %w", err)
	}
	return c, nil
}

// ValidateAlignment checks that a manifest's layer list, a config's
// diff_ids, and its history entries all have equal length and, by
// construction, stay pairwise aligned.
func ValidateAlignment(m imgspecv1.Manifest, c imgspecv1.Image) error {
	if len(m.Layers) != len(c.RootFS.DiffIDs) || len(m.Layers) != len(c.History) {
		return fmt.Errorf(
			"ocilayout: misaligned layer/diff_id/history counts: %d layers, %d diff_ids, %d history entries",
			len(m.Layers), len(c.RootFS.DiffIDs), len(c.History),
		)
	}
	return nil
}
