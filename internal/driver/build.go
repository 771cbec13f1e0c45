package driver

import (
	"context"
	"sync"

	"golang.org/x/xerrors"

	"github.com/levitation-build/levc/internal/depgraph"
	"github.com/levitation-build/levc/internal/depstore"
	"github.com/levitation-build/levc/internal/progress"
	"github.com/levitation-build/levc/internal/solver"
	"github.com/levitation-build/levc/internal/strpool"
	"github.com/levitation-build/levc/internal/taskmgr"
)

const (
	phaseDecl   = "decl"
	phaseObject = "object"
)

// filesForPath resolves pathID (as recorded in store's shared string
// pool) to its FilesInfo, covering both regular units and the main unit.
func (d *Driver) filesForPath(store *depstore.Store, pathID strpool.ID) (FilesInfo, bool) {
	path, ok := store.Strings().Get(pathID)
	if !ok {
		return FilesInfo{}, false
	}
	if path == d.mainRelPath {
		return d.mainFiles, true
	}
	files, ok := d.files[path]
	return files, ok
}

// declASTPaths renders a solved dependency list into the decl-ast paths
// the front end should see, deepest-distance (earliest-build) first,
// exactly the order solver.Solve already sorted them in (spec §4.5).
func (d *Driver) declASTPaths(store *depstore.Store, deps []solver.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		_, pathID := dep.NodeID.Unpack()
		files, ok := d.filesForPath(store, pathID)
		if !ok {
			continue
		}
		out = append(out, files.DeclAST)
	}
	return out
}

// runBuild schedules the declaration and object generation tasks (spec
// §4.7 phase 4). Declaration tasks are scheduled via the graph's
// depth-first job expansion (C4's DFSJobs), which already deduplicates a
// declaration node shared by multiple dependents and waits on its
// dependencies before invoking it — exactly the scheduling contract spec
// §4.6/§4.4 describe. Object tasks are 1:1 per unit (nothing depends on
// another unit's object task), so they are scheduled directly once every
// declaration task has completed.
func (d *Driver) runBuild(ctx context.Context, store *depstore.Store, graph *depgraph.Graph, solved *solver.Solved) ([]string, error) {
	tm := taskmgr.New(d.cfg.Jobs)

	d.report.Event(progress.Event{Kind: progress.PhaseStarted, Phase: phaseDecl})
	declOK := graph.DFSJobs(tm, func(ctx context.Context, id depgraph.NodeID) error {
		return d.buildDecl(ctx, store, id, solved)
	})
	d.report.Event(progress.Event{Kind: progress.PhaseDone, Phase: phaseDecl})
	if !declOK {
		return nil, xerrors.New("one or more declaration-AST builds failed")
	}

	d.report.Event(progress.Event{Kind: progress.PhaseStarted, Phase: phaseObject})

	var (
		mu      sync.Mutex
		objects []string
	)
	var ids []taskmgr.TaskID

	for _, u := range d.units {
		u := u
		files := d.files[u.name.RelPath]
		pkg, ok := graph.Package(mustLookup(store, u.name.RelPath))
		if !ok {
			return nil, xerrors.Errorf("unit %s missing from dependency graph", u.name.Name)
		}
		deps := solved.Dependencies(pkg.Definition)

		d.report.Event(progress.Event{Kind: progress.TaskStarted, Phase: phaseObject, Unit: u.name.Name})
		ids = append(ids, tm.AddTask(func(ctx context.Context) error {
			err := d.buildObject(ctx, store, files, deps, false)
			d.reportTask(phaseObject, u.name.Name, err)
			if err == nil {
				mu.Lock()
				objects = append(objects, files.Object)
				mu.Unlock()
			}
			return err
		}))
	}

	mainPkg, ok := graph.Package(mustLookup(store, d.mainRelPath))
	if !ok {
		return nil, xerrors.New("main unit missing from dependency graph")
	}
	mainDeps := solved.Dependencies(mainPkg.Definition)
	d.report.Event(progress.Event{Kind: progress.TaskStarted, Phase: phaseObject, Unit: d.mainUnit})
	ids = append(ids, tm.AddTask(func(ctx context.Context) error {
		err := d.buildObject(ctx, store, d.mainFiles, mainDeps, true)
		d.reportTask(phaseObject, d.mainUnit, err)
		if err == nil {
			mu.Lock()
			objects = append(objects, d.mainFiles.Object)
			mu.Unlock()
		}
		return err
	}))

	ok = tm.WaitForTasks(context.Background(), ids)
	d.report.Event(progress.Event{Kind: progress.PhaseDone, Phase: phaseObject})
	if !ok {
		return nil, xerrors.New("one or more object builds failed")
	}

	return objects, nil
}

func mustLookup(store *depstore.Store, relPath string) strpool.ID {
	id, _ := store.Strings().Lookup(relPath)
	return id
}

func (d *Driver) buildDecl(ctx context.Context, store *depstore.Store, id depgraph.NodeID, solved *solver.Solved) error {
	kind, pathID := id.Unpack()
	if kind != depgraph.Declaration {
		// Only declaration nodes are visited by DFSJobs starting from
		// declaration terminals; a definition node here would indicate a
		// graph-construction bug upstream.
		return xerrors.Errorf("unexpected non-declaration node in DFSJobs: %s", id)
	}
	files, ok := d.filesForPath(store, pathID)
	if !ok {
		return xerrors.Errorf("unit for node %s not found", id)
	}

	declDeps := d.declASTPaths(store, solved.Dependencies(id))

	d.log.Debug("build decl-ast", "ast", files.AST, "output", files.DeclAST, "deps", len(declDeps))
	d.report.Event(progress.Event{Kind: progress.TaskStarted, Phase: phaseDecl, Unit: files.AST})
	var err error
	if !d.cfg.DryRun {
		err = d.front.BuildDecl(ctx, DeclRequest{
			AST:         files.AST,
			Output:      files.DeclAST,
			MetaOutput:  files.DeclASTMeta,
			DeclASTDeps: declDeps,
			ExtraArgs:   d.cfg.ExtraArgs.Compile,
		})
	}
	d.reportTask(phaseDecl, files.AST, err)
	return err
}

func (d *Driver) buildObject(ctx context.Context, store *depstore.Store, files FilesInfo, deps []solver.Dependency, isMain bool) error {
	declDeps := d.declASTPaths(store, deps)

	declAST := files.DeclAST
	if isMain {
		declAST = "" // the main unit has no declaration of its own
	}

	d.log.Debug("build object", "ast", files.AST, "output", files.Object, "deps", len(declDeps))
	if d.cfg.DryRun {
		return nil
	}
	return d.front.BuildObject(ctx, ObjectRequest{
		AST:         files.AST,
		DeclAST:     declAST,
		Output:      files.Object,
		DeclASTDeps: declDeps,
		ExtraArgs:   d.cfg.ExtraArgs.Compile,
		IsMain:      isMain,
	})
}
