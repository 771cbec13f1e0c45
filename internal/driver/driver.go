// Package driver implements the five-phase build-orchestration pipeline
// (spec component C7): preamble, parse, solve, declaration+object
// generation, and link, plus optional header synthesis. It is the one
// component that sees every other component — C1 through C9 are wired
// together here exactly the way spec §2's data-flow table describes.
package driver

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/xerrors"

	"github.com/levitation-build/levc/internal/atomicfs"
	"github.com/levitation-build/levc/internal/config"
	"github.com/levitation-build/levc/internal/progress"
	"github.com/levitation-build/levc/internal/unit"
)

// SourceExtension is the extension every project source file must carry
// (spec §4.7 phase 2 / §6: "extension cppl").
const SourceExtension = "cppl"

// Config is the driver's declarative configuration struct — the idiomatic
// replacement for the original's builder-pattern LevitationDriver (spec §9
// Design Notes "Builder-pattern CLI"). Every field corresponds directly to
// a CLI flag in spec §6; cmd/levc fills it from flags and an optional
// levc.toml (internal/config).
type Config struct {
	Root      string // project root
	BuildRoot string // derived artifact root
	Main      string // path to the main source, relative to Root

	Preamble string // path to the preamble source; "" disables phase 1
	Header   string // output path for synthesized header; "" disables C8

	Jobs int // worker pool size for internal/taskmgr

	LinkOutput string // output executable (link mode) or directory (-c)
	NoLink     bool   // -c: disable link phase, place objects in LinkOutput

	Verbose bool
	DryRun  bool // -###: log planned commands, perform no side effects
	Watch   bool // supplemental -watch dev loop (SPEC_FULL §3)

	ExtraArgs config.ExtraArgs
}

// Driver drives the pipeline described in spec §4.7. It holds no package
// -level singleton state: logger, front end, and linker are all
// constructor arguments, per spec §9's "explicit context object" Design
// Note.
type Driver struct {
	cfg    Config
	log    *log.Logger
	front  FrontEnd
	linker Linker
	report *progress.Reporter

	units       []unitSource
	files       map[string]FilesInfo // keyed by project-relative path
	mainFiles   FilesInfo
	mainUnit    string
	mainRelPath string
	mainAbsPath string
}

type unitSource struct {
	name FileUnit
}

// FileUnit pairs a unit's logical name with its on-disk locations.
type FileUnit struct {
	Name    string // e.g. "P1::B"
	RelPath string // project-relative path, e.g. "P1/B.cppl"
	AbsPath string
}

// New constructs a Driver. logger must be non-nil; use buildlog.New or
// buildlog.Discard.
func New(cfg Config, logger *log.Logger, front FrontEnd, linker Linker) *Driver {
	return &Driver{
		cfg:    cfg,
		log:    logger,
		front:  front,
		linker: linker,
		report: progress.New(!cfg.DryRun && progress.IsTerminal()),
		files:  make(map[string]FilesInfo),
	}
}

// Run drives the full pipeline once. Callers that want the -watch dev loop
// should use Watch instead, which calls Run repeatedly.
func (d *Driver) Run(ctx context.Context) error {
	defer d.report.Close()

	if err := d.discoverUnits(); err != nil {
		return err
	}

	if d.cfg.Preamble != "" {
		if err := d.runPreamble(ctx); err != nil {
			return xerrors.Errorf("preamble phase: %w", err)
		}
	}

	if err := d.runParse(ctx); err != nil {
		return xerrors.Errorf("parse phase: %w", err)
	}

	if d.cfg.DryRun {
		// Dry run logs the preamble and parse phases' planned commands
		// (done inline above) and stops here: there are no real manifests
		// on disk to solve, so the solve, build, link and header phases
		// are not reached.
		d.log.Info("dry run: stopping before solve phase (no manifests were written)")
		return nil
	}

	store, graph, solved, err := d.runSolve()
	if err != nil {
		return xerrors.Errorf("solve phase: %w", err)
	}

	if err := d.writeDependencyDumps(store, graph, solved); err != nil {
		return xerrors.Errorf("writing dependency dumps: %w", err)
	}

	objects, err := d.runBuild(ctx, store, graph, solved)
	if err != nil {
		return xerrors.Errorf("build phase: %w", err)
	}

	if !d.cfg.NoLink {
		if err := d.runLink(ctx, objects); err != nil {
			return xerrors.Errorf("link phase: %w", err)
		}
	} else {
		if err := d.placeObjects(objects); err != nil {
			return xerrors.Errorf("placing objects: %w", err)
		}
	}

	if d.cfg.Header != "" {
		if err := d.runHeader(store, graph, solved); err != nil {
			return xerrors.Errorf("header phase: %w", err)
		}
	}

	return nil
}

// discoverUnits enumerates every .cppl source under Root (spec §4.7 phase
// 2: "Enumerate all source files under the project root with extension
// cppl") plus the configured main source, and precomputes each one's
// FilesInfo.
func (d *Driver) discoverUnits() error {
	paths, err := atomicfs.CollectFiles(d.cfg.Root, SourceExtension)
	if err != nil {
		return xerrors.Errorf("collecting %s sources: %w", SourceExtension, err)
	}

	d.units = d.units[:0]
	for _, abs := range paths {
		rel, err := atomicfs.MakeRelative(abs, d.cfg.Root)
		if err != nil {
			return xerrors.Errorf("relativizing %s: %w", abs, err)
		}
		name := unit.FromRelPath(rel)
		d.units = append(d.units, unitSource{name: FileUnit{Name: name, RelPath: rel, AbsPath: abs}})
		// Keyed by the project-relative path, which is exactly the string
		// the front end records as a unit's package-file path in its
		// emitted manifest (spec §3 "package_file_path_id") — that's the
		// only handle the solve phase has on a dependency node.
		d.files[rel] = ComputeFiles(d.cfg.BuildRoot, abs, rel)
	}

	mainAbs := d.cfg.Main
	if !filepath.IsAbs(mainAbs) {
		mainAbs = filepath.Join(d.cfg.Root, d.cfg.Main)
	}
	mainRel, err := atomicfs.MakeRelative(mainAbs, d.cfg.Root)
	if err != nil {
		return xerrors.Errorf("relativizing main source %s: %w", mainAbs, err)
	}
	d.mainUnit = unit.FromRelPath(mainRel)
	d.mainRelPath = mainRel
	d.mainAbsPath = mainAbs
	d.mainFiles = ComputeFiles(d.cfg.BuildRoot, mainAbs, mainRel)

	return nil
}

func (d *Driver) runPreamble(ctx context.Context) error {
	out := filepath.Join(d.cfg.BuildRoot, "preamble.pch")
	d.log.Info("preamble", "source", d.cfg.Preamble, "output", out)
	if d.cfg.DryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return xerrors.Errorf("mkdirall: %w", err)
	}
	return d.front.BuildPreamble(ctx, PreambleRequest{
		Source:    d.cfg.Preamble,
		Output:    out,
		ExtraArgs: d.cfg.ExtraArgs.Header,
	})
}
