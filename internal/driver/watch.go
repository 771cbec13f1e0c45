package driver

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/xerrors"
)

// Watch re-runs the full pipeline every time a .cppl file under Root
// changes, until ctx is canceled. This is the supplemental -watch dev
// loop (SPEC_FULL §3): the watcher only decides *when* to re-enter the
// pipeline. Each re-run parses and rebuilds every unit; no unit is
// skipped as up to date, since the driver records and compares no
// per-unit content hashes.
func (d *Driver) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, d.cfg.Root); err != nil {
		return xerrors.Errorf("watching %s: %w", d.cfg.Root, err)
	}

	d.log.Info("watching for changes", "root", d.cfg.Root)

	if err := d.Run(ctx); err != nil {
		d.log.Error("build failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != "."+SourceExtension {
				continue
			}
			d.log.Info("change detected, rebuilding", "file", ev.Name)
			if err := d.Run(ctx); err != nil {
				d.log.Error("build failed", "err", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.Error("watcher error", "err", err)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
