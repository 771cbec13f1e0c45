// Package atomicfs provides the path and file primitives the rest of the
// build-orchestration core relies on (spec component C9): atomic
// write-temp-then-rename, BFS directory collection by extension, and
// relative-path stripping.
package atomicfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// AtomicWrite creates target's parent directories if missing, opens a
// unique temp file alongside target, invokes write with its stream, and on
// a clean return renames the temp file onto target (replacing any existing
// file). On any failure the temp file is removed and the precise error is
// returned; target is left untouched.
func AtomicWrite(target string, write func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return xerrors.Errorf("mkdirall %s: %w", filepath.Dir(target), err)
	}

	f, err := renameio.TempFile("", target)
	if err != nil {
		return xerrors.Errorf("create temp file for %s: %w", target, err)
	}
	defer f.Cleanup()

	if err := write(f); err != nil {
		return xerrors.Errorf("write %s: %w", target, err)
	}

	if err := f.CloseAtomicallyReplace(); err != nil {
		return xerrors.Errorf("rename onto %s: %w", target, err)
	}
	return nil
}

// CollectFiles walks root and returns every regular file whose extension
// (without the leading dot) equals ext, following symlinks. Subdirectories
// are recursed into.
func CollectFiles(root, ext string) ([]string, error) {
	pattern := "**/*." + ext
	var out []string

	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, xerrors.Errorf("collect %s under %s: %w", pattern, root, err)
	}
	for _, m := range matches {
		full := filepath.Join(root, filepath.FromSlash(m))
		info, err := os.Stat(full) // os.Stat follows symlinks
		if err != nil {
			return nil, xerrors.Errorf("stat %s: %w", full, err)
		}
		if info.Mode().IsRegular() {
			out = append(out, full)
		}
	}
	return out, nil
}

// MakeRelative strips a leading occurrence of parent (made absolute first)
// and any leading path separator from path.
func MakeRelative(path, parent string) (string, error) {
	absParent, err := filepath.Abs(parent)
	if err != nil {
		return "", xerrors.Errorf("abs %s: %w", parent, err)
	}
	rel, err := filepath.Rel(absParent, path)
	if err != nil {
		return "", xerrors.Errorf("rel %s from %s: %w", path, absParent, err)
	}
	return rel, nil
}
