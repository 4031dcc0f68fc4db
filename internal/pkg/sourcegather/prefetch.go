// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sourcegather

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	digest "github.com/opencontainers/go-digest"
)

var archiveContentTypes = map[string]bool{
	"application/gzip":     true,
	"application/x-bzip2":  true,
	"application/x-xz":     true,
	"application/x-compress": true,
	"application/zip":      true,
	"application/x-tar":    true,
}

// Prefetched describes where gathered prefetch sources ended up.
type Prefetched struct {
	RPMDir        string
	ExtraSrcDirs  []string
	Gathered      bool
}

// GatherPrefetched walks cachi2Dir/output deterministically, copying archive
// files into per-source staging directories and SRPMs into rpmDir,
// resolving name collisions by content hash. cachi2.env, if present, is
// copied into its own extra-source directory but does not by itself count
// toward Gathered.
func GatherPrefetched(workDir, cachi2Dir, rpmDir string) (Prefetched, error) {
	result := Prefetched{RPMDir: rpmDir}

	outputDir := filepath.Join(cachi2Dir, "output")
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		return result, nil
	}

	stagingDir := filepath.Join(workDir, "prefetched_sources")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return result, fmt.Errorf("sourcegather: create %s: %w", stagingDir, err)
	}

	files, err := walkSorted(outputDir)
	if err != nil {
		return result, err
	}

	sourceCount := 0
	srpmCount := 0

	for _, path := range files {
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return result, fmt.Errorf("sourcegather: relativize %s: %w", path, err)
		}

		if strings.HasSuffix(path, ".src.rpm") {
			isRPM, err := matchesContentType(path, "application/x-rpm")
			if err != nil {
				return result, err
			}
			if !isRPM {
				continue
			}
			copied, err := copySRPM(path, rpmDir, filepath.Base(path))
			if err != nil {
				return result, err
			}
			if copied {
				srpmCount++
			}
			continue
		}

		isArchive, err := matchesArchiveType(path)
		if err != nil {
			return result, err
		}
		if !isArchive {
			continue
		}

		srcDir := filepath.Join(stagingDir, fmt.Sprintf("src-%d", sourceCount))
		destDir := filepath.Join(srcDir, filepath.Dir(rel))
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return result, fmt.Errorf("sourcegather: create %s: %w", destDir, err)
		}
		if err := copyFile(path, filepath.Join(destDir, filepath.Base(path))); err != nil {
			return result, err
		}
		result.ExtraSrcDirs = append(result.ExtraSrcDirs, srcDir)
		sourceCount++
	}

	result.Gathered = sourceCount+srpmCount > 0

	envPath := filepath.Join(cachi2Dir, "cachi2.env")
	if _, err := os.Stat(envPath); err == nil {
		envDir := filepath.Join(workDir, "cachi2_env")
		if err := os.MkdirAll(envDir, 0o755); err != nil {
			return result, fmt.Errorf("sourcegather: create %s: %w", envDir, err)
		}
		if err := copyFile(envPath, filepath.Join(envDir, "cachi2.env")); err != nil {
			return result, err
		}
		result.ExtraSrcDirs = append(result.ExtraSrcDirs, envDir)
	}

	return result, nil
}

func walkSorted(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sourcegather: walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func matchesArchiveType(path string) (bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("sourcegather: detect type of %s: %w", path, err)
	}
	for s := mt; s != nil; s = s.Parent() {
		if archiveContentTypes[s.String()] {
			return true, nil
		}
	}
	return false, nil
}

func matchesContentType(path, want string) (bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("sourcegather: detect type of %s: %w", path, err)
	}
	for s := mt; s != nil; s = s.Parent() {
		if s.String() == want {
			return true, nil
		}
	}
	return false, nil
}

// copySRPM copies src into rpmDir under filename, resolving a name
// collision by content hash: identical content is skipped, differing
// content is copied under a "sha256(file)-filename" name instead.
func copySRPM(src, rpmDir, filename string) (bool, error) {
	dest := filepath.Join(rpmDir, filename)
	if _, err := os.Stat(dest); err == nil {
		srcHash, err := hashedArtifactName(src)
		if err != nil {
			return false, err
		}
		destHash, err := hashedArtifactName(dest)
		if err != nil {
			return false, err
		}
		if srcHash == destHash {
			return false, nil
		}
		dest = filepath.Join(rpmDir, srcHash)
	}
	if err := copyFile(src, dest); err != nil {
		return false, err
	}
	return true, nil
}

func hashedArtifactName(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("sourcegather: open %s: %w", path, err)
	}
	defer f.Close()

	d, err := digest.SHA256.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("sourcegather: hash %s: %w", path, err)
	}
	return fmt.Sprintf("%s-%s", d.Encoded(), filepath.Base(path)), nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("sourcegather: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("sourcegather: create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("sourcegather: copy %s to %s: %w", src, dest, err)
	}
	return nil
}
