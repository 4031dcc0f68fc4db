// Copyright (c) 2025, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sourcegather collects the two kinds of sources a source-image
// build needs: a tar.gz of the application's own version-controlled files,
// and the prefetched dependency archives a hermetic build leaves behind.
package sourcegather

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// AppSourceArchive writes a deterministic tar.gz of repoDir's
// version-controlled files (including submodules) to destPath. Every entry
// is rooted at "<repo-name>-<commit-sha>/" and stamped with HEAD's commit
// time, so repeated builds of unchanged content are byte-for-byte stable.
// Every entry's content is read from its commit's git blob, not from
// repoDir's filesystem, so uncommitted working-tree edits, deletions, and
// untracked files never reach the archive.
func AppSourceArchive(repoDir, destPath string) (repoName, commitSHA string, err error) {
	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		return "", "", fmt.Errorf("sourcegather: open repo %s: %w", repoDir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", "", fmt.Errorf("sourcegather: resolve HEAD of %s: %w", repoDir, err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", "", fmt.Errorf("sourcegather: load HEAD commit of %s: %w", repoDir, err)
	}

	repoName = filepath.Base(repoDir)
	commitSHA = commit.Hash.String()
	prefix := fmt.Sprintf("%s-%s", repoName, commitSHA)
	mtime := commit.Committer.When

	entries, err := trackedEntries(repo, commit, "")
	if err != nil {
		return "", "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	if err := writeArchive(destPath, prefix, entries, mtime); err != nil {
		return "", "", err
	}
	return repoName, commitSHA, nil
}

// trackedEntry pairs a path - rooted at the top-level repo, with a
// submodule's mount path prepended for anything inside one - with the git
// blob backing it.
type trackedEntry struct {
	path string
	file *object.File
}

// trackedEntries lists every version-controlled file at commit, descending
// into submodules recursively. prefix is prepended to every path found;
// it is empty for the top-level repo and becomes the submodule's mount
// path for the recursive calls submoduleEntries makes.
func trackedEntries(repo *git.Repository, commit *object.Commit, prefix string) ([]trackedEntry, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("sourcegather: load tree: %w", err)
	}

	submodules, err := submodulesByPath(repo)
	if err != nil {
		return nil, err
	}

	var entries []trackedEntry
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sourcegather: walk tree: %w", err)
		}

		entryPath := path.Join(prefix, name)

		// NewTreeWalker's recursive flag only descends into same-repository
		// tree entries; a gitlink is neither a tree nor a blob, so it surfaces
		// here as a leaf entry that has to be resolved into its own
		// repository explicitly.
		if entry.Mode == filemode.Submodule {
			sub, ok := submodules[name]
			if !ok {
				return nil, fmt.Errorf("sourcegather: submodule at %q has no .gitmodules entry", entryPath)
			}
			subEntries, err := submoduleEntries(sub, entry.Hash, entryPath)
			if err != nil {
				return nil, err
			}
			entries = append(entries, subEntries...)
			continue
		}

		if !entry.Mode.IsFile() && entry.Mode != filemode.Symlink {
			continue
		}

		file, err := tree.TreeEntryFile(&entry)
		if err != nil {
			return nil, fmt.Errorf("sourcegather: load blob for %s: %w", entryPath, err)
		}
		entries = append(entries, trackedEntry{path: entryPath, file: file})
	}
	return entries, nil
}

// submodulesByPath indexes repo's declared submodules (per .gitmodules) by
// their worktree-relative path, the same path a gitlink tree entry is named
// with.
func submodulesByPath(repo *git.Repository) (map[string]*git.Submodule, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("sourcegather: load worktree: %w", err)
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, fmt.Errorf("sourcegather: load submodules: %w", err)
	}

	byPath := make(map[string]*git.Submodule, len(subs))
	for _, s := range subs {
		byPath[s.Config().Path] = s
	}
	return byPath, nil
}

// submoduleEntries resolves a gitlink entry to the submodule's own, already
// checked-out repository, walks the exact commit the parent tree pins it
// to, and returns its tracked files with paths rooted at mountPath.
func submoduleEntries(sub *git.Submodule, pinned plumbing.Hash, mountPath string) ([]trackedEntry, error) {
	subRepo, err := sub.Repository()
	if err != nil {
		return nil, fmt.Errorf("sourcegather: open submodule %s: %w", mountPath, err)
	}
	subCommit, err := subRepo.CommitObject(pinned)
	if err != nil {
		return nil, fmt.Errorf("sourcegather: load pinned commit for submodule %s: %w", mountPath, err)
	}
	return trackedEntries(subRepo, subCommit, mountPath)
}

func writeArchive(destPath, prefix string, entries []trackedEntry, modTime time.Time) error {
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("sourcegather: create %s: %w", destPath, err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for _, e := range entries {
		hdr := &tar.Header{
			Name:       filepath.ToSlash(path.Join(prefix, e.path)),
			ModTime:    modTime,
			AccessTime: modTime,
			ChangeTime: modTime,
		}

		if e.file.Mode == filemode.Symlink {
			target, err := e.file.Contents()
			if err != nil {
				return fmt.Errorf("sourcegather: read symlink target for %s: %w", e.path, err)
			}
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = target
			hdr.Mode = 0o777
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("sourcegather: write header for %s: %w", e.path, err)
			}
			continue
		}

		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.file.Size
		hdr.Mode = 0o644
		if e.file.Mode == filemode.Executable {
			hdr.Mode = 0o755
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("sourcegather: write header for %s: %w", e.path, err)
		}

		r, err := e.file.Reader()
		if err != nil {
			return fmt.Errorf("sourcegather: open blob for %s: %w", e.path, err)
		}
		_, copyErr := io.Copy(tw, r)
		r.Close()
		if copyErr != nil {
			return fmt.Errorf("sourcegather: write content for %s: %w", e.path, copyErr)
		}
	}
	return nil
}
