// Command levc-deps runs the dependency graph builder and solver alone
// (spec §6 "Dependency-solver sub-tool"), for diagnosing a project's
// declaration graph without paying for a full parse-through-link run: it
// expects the .ldeps manifests parse has already produced under
// -build-root, and prints each unit's solved, distance-ranked dependency
// chain.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/levitation-build/levc/internal/atomicfs"
	"github.com/levitation-build/levc/internal/buildlog"
	"github.com/levitation-build/levc/internal/depgraph"
	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/manifest"
	"github.com/levitation-build/levc/internal/solver"
	"github.com/levitation-build/levc/internal/strpool"
	"github.com/levitation-build/levc/internal/unit"
)

var (
	srcRoot   = flag.String("src-root", ".", "project source root")
	buildRoot = flag.String("build-root", "", "build root containing .ldeps manifests (default: <src-root>/.build)")
	mainFile  = flag.String("main-file", "main.cpp", "path to the main source, relative to -src-root")
	verbose   = flag.Bool("verbose", false, "enable debug logging")
)

func run() int {
	flag.Parse()

	logger := buildlog.New(buildlog.Options{Verbose: *verbose})

	root, err := filepath.Abs(*srcRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "levc-deps: %v\n", err)
		return 1
	}
	br := *buildRoot
	if br == "" {
		br = filepath.Join(root, ".build")
	}

	sources, err := atomicfs.CollectFiles(root, "cppl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "levc-deps: collecting sources: %v\n", err)
		return 1
	}

	strings := strpool.New()
	store := depstore.New(strings)

	var units []string
	for _, src := range sources {
		rel, err := atomicfs.MakeRelative(src, root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "levc-deps: %v\n", err)
			return 1
		}
		manifestPath := manifestPathFor(br, rel)
		deps, err := loadManifest(manifestPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "levc-deps: %v\n", err)
			return 2
		}
		store.Insert(deps)
		units = append(units, rel)
	}

	mainAbs := *mainFile
	if !filepath.IsAbs(mainAbs) {
		mainAbs = filepath.Join(root, *mainFile)
	}
	mainRel, err := atomicfs.MakeRelative(mainAbs, root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "levc-deps: %v\n", err)
		return 1
	}
	mainDeps, err := loadManifest(manifestPathFor(br, mainRel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "levc-deps: %v\n", err)
		return 2
	}
	mainFileID := strings.Add(pathOf(mainDeps))
	store.Insert(mainDeps)

	graph := depgraph.Build(store, mainFileID)
	if graph.IsInvalid() {
		fmt.Fprintln(os.Stderr, "levc-deps: dependency graph is non-empty but has no roots")
		return 2
	}

	solved := solver.Solve(graph)
	if !solved.Ok() {
		fmt.Fprintf(os.Stderr, "levc-deps: %s\n", solved.Failure())
		return 2
	}

	logger.Debug("solved", "units", len(units))

	sort.Strings(units)
	for _, rel := range units {
		name := unit.FromRelPath(rel)
		id, ok := strings.Lookup(rel)
		if !ok {
			continue
		}
		pkg, ok := graph.Package(id)
		if !ok {
			continue
		}
		fmt.Printf("%s:\n", name)
		if pkg.HasDeclaration() {
			printChain(graph, strings, "  declaration", solved.Dependencies(pkg.Declaration))
		}
		printChain(graph, strings, "  definition", solved.Dependencies(pkg.Definition))
	}

	return 0
}

func printChain(g *depgraph.Graph, strings *strpool.Pool, label string, deps []solver.Dependency) {
	if len(deps) == 0 {
		fmt.Printf("%s: (no dependencies)\n", label)
		return
	}
	fmt.Printf("%s:\n", label)
	for _, dep := range deps {
		_, pathID := dep.NodeID.Unpack()
		name, _ := strings.Get(pathID)
		fmt.Printf("    %s (distance %d)\n", name, dep.Distance)
	}
}

func manifestPathFor(buildRoot, relPath string) string {
	withoutExt := relPath[:len(relPath)-len(filepath.Ext(relPath))]
	return filepath.Join(buildRoot, filepath.FromSlash(withoutExt)) + ".ldeps"
}

func pathOf(deps *manifest.Dependencies) string {
	if s, ok := deps.Strings.Get(deps.PackageFilePathID); ok {
		return s
	}
	return ""
}

func loadManifest(path string) (*manifest.Dependencies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	deps, _, status := manifest.ReadDependencies(data)
	if !status.Ok() {
		return nil, fmt.Errorf("decoding %s: %w", path, status)
	}
	return deps, nil
}

func main() {
	os.Exit(run())
}
