package driver

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/levitation-build/levc/internal/atomicfs"
)

// runLink waits for every object task (already joined in runBuild) and
// invokes the linker with the full object list (spec §4.7 phase 5).
func (d *Driver) runLink(ctx context.Context, objects []string) error {
	d.log.Info("link", "output", d.cfg.LinkOutput, "objects", len(objects))
	if d.cfg.DryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(d.cfg.LinkOutput), 0o755); err != nil {
		return xerrors.Errorf("mkdirall: %w", err)
	}
	return d.linker.Link(ctx, LinkRequest{
		Objects:   objects,
		Output:    d.cfg.LinkOutput,
		ExtraArgs: d.cfg.ExtraArgs.Link,
	})
}

// placeObjects implements -c: instead of linking, copy every object file
// into LinkOutput (used as a directory) via the same atomic write
// protocol the rest of the core uses for derived artifacts.
func (d *Driver) placeObjects(objects []string) error {
	if d.cfg.DryRun {
		return nil
	}
	for _, obj := range objects {
		dest := filepath.Join(d.cfg.LinkOutput, filepath.Base(obj))
		if err := copyFile(dest, obj); err != nil {
			return xerrors.Errorf("placing %s: %w", obj, err)
		}
	}
	return nil
}

func copyFile(dest, src string) error {
	return atomicfs.AtomicWrite(dest, func(w io.Writer) error {
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}
