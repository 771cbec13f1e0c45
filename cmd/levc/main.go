// Command levc drives the Levitation build core end to end: preamble,
// parse, solve, declaration/object generation, link, and optional header
// synthesis (spec §4.7). It is the single entry point a build system
// invokes per project; cmd/levc-deps exposes the dependency solver alone
// for diagnostics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/levitation-build/levc/internal/buildlog"
	"github.com/levitation-build/levc/internal/config"
	"github.com/levitation-build/levc/internal/driver"
	"github.com/levitation-build/levc/internal/signalctx"
)

// repeatedFlag collects a flag passed more than once into an ordered list,
// the way `-FH foo -FH bar` needs to for extra front-end arguments.
type repeatedFlag []string

func (r *repeatedFlag) String() string { return fmt.Sprint([]string(*r)) }

func (r *repeatedFlag) Set(value string) error {
	*r = append(*r, value)
	return nil
}

var (
	root      = flag.String("root", ".", "project root directory")
	buildRoot = flag.String("buildRoot", "", "derived artifact root (default: <root>/.build)")
	main_     = flag.String("main", "main.cpp", "path to the main source, relative to -root")
	preamble  = flag.String("preamble", "", "path to the preamble source; empty disables preamble generation")
	header    = flag.String("h", "", "output path for the synthesized consumer header; empty disables header synthesis")
	jobs      = flag.Int("j", 1, "worker pool size")
	output    = flag.String("o", "", "link output path (default: <buildRoot>/a.out)")
	noLink    = flag.Bool("c", false, "compile only: place object files under -o instead of linking")
	verbose   = flag.Bool("verbose", false, "enable debug logging")
	dryRun    = flag.Bool("###", false, "log the commands each phase would run, without side effects")
	watch     = flag.Bool("watch", false, "rebuild whenever a source file changes, until interrupted")

	frontEndPath = flag.String("frontend", "levitation-cc", "path to the front-end binary")
	linkerPath   = flag.String("linker", "cc", "path to the linker driver binary")

	fhArgs repeatedFlag
	fpArgs repeatedFlag
	fcArgs repeatedFlag
	flArgs repeatedFlag
)

func init() {
	flag.Var(&fhArgs, "FH", "extra argument passed to preamble/header generation (repeatable)")
	flag.Var(&fpArgs, "FP", "extra argument passed to the parse phase (repeatable)")
	flag.Var(&fcArgs, "FC", "extra argument passed to declaration/object generation (repeatable)")
	flag.Var(&flArgs, "FL", "extra argument passed to the link phase (repeatable)")
}

func run() int {
	flag.Parse()

	cfg, err := buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "levc: %v\n", err)
		return 1
	}

	logger := buildlog.New(buildlog.Options{Verbose: cfg.Verbose})

	front := driver.ExecFrontEnd{Path: *frontEndPath}
	linker := driver.ExecLinker{Path: *linkerPath}
	d := driver.New(cfg, logger, front, linker)

	ctx, cancel := signalctx.Interruptible()
	defer cancel()

	if cfg.Watch {
		err = d.Watch(ctx)
	} else {
		err = d.Run(ctx)
	}
	if err != nil {
		logger.Error("build failed", "err", err)
		return 2
	}
	return 0
}

// buildConfig merges the optional project levc.toml (flags always win) into
// a driver.Config, matching spec §6's external-interfaces flag set.
func buildConfig() (driver.Config, error) {
	rootAbs, err := filepath.Abs(*root)
	if err != nil {
		return driver.Config{}, fmt.Errorf("resolving -root: %w", err)
	}

	var file *config.File
	if path, err := config.Find(rootAbs); err == nil && path != "" {
		f, _, err := config.Load(path)
		if err != nil {
			return driver.Config{}, err
		}
		file = f
	}

	br := *buildRoot
	if br == "" && file != nil {
		br = file.BuildRoot
	}
	if br == "" {
		br = filepath.Join(rootAbs, ".build")
	}

	preambleSrc := *preamble
	if preambleSrc == "" && file != nil {
		preambleSrc = file.Preamble
	}

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	mainSrc := *main_
	if !setFlags["main"] && file != nil && file.Main != "" {
		mainSrc = file.Main
	}

	jobCount := *jobs
	if !setFlags["j"] && file != nil && file.Jobs != 0 {
		jobCount = file.Jobs
	}

	verboseFlag := *verbose
	if !verboseFlag && file != nil {
		verboseFlag = file.Verbose
	}

	out := *output
	if out == "" {
		out = filepath.Join(br, "a.out")
	}

	extra := config.ExtraArgs{
		Header:  fhArgs,
		Parse:   fpArgs,
		Compile: fcArgs,
		Link:    flArgs,
	}
	if file != nil {
		extra.Header = append(append([]string{}, file.ExtraArgs.Header...), extra.Header...)
		extra.Parse = append(append([]string{}, file.ExtraArgs.Parse...), extra.Parse...)
		extra.Compile = append(append([]string{}, file.ExtraArgs.Compile...), extra.Compile...)
		extra.Link = append(append([]string{}, file.ExtraArgs.Link...), extra.Link...)
	}

	return driver.Config{
		Root:       rootAbs,
		BuildRoot:  br,
		Main:       mainSrc,
		Preamble:   preambleSrc,
		Header:     *header,
		Jobs:       jobCount,
		LinkOutput: out,
		NoLink:     *noLink,
		Verbose:    verboseFlag,
		DryRun:     *dryRun,
		Watch:      *watch,
		ExtraArgs:  extra,
	}, nil
}

func main() {
	os.Exit(run())
}
