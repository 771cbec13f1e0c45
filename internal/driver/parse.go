package driver

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/levitation-build/levc/internal/progress"
	"github.com/levitation-build/levc/internal/taskmgr"
)

const phaseParse = "parse"

// runParse schedules one task per unit (spec §4.7 phase 2): for every
// non-main source, build AST mode produces {unit}.ast and {unit}.ldeps;
// the main source is parsed in import-only mode, producing only
// {unit}.ldeps. All tasks run under one barrier before the solve phase
// begins.
func (d *Driver) runParse(ctx context.Context) error {
	tm := taskmgr.New(d.cfg.Jobs)
	d.report.Event(progress.Event{Kind: progress.PhaseStarted, Phase: phaseParse})

	var ids []taskmgr.TaskID

	for _, u := range d.units {
		u := u
		files := d.files[u.name.RelPath]
		d.report.Event(progress.Event{Kind: progress.TaskStarted, Phase: phaseParse, Unit: u.name.Name})
		ids = append(ids, tm.AddTask(func(ctx context.Context) error {
			err := d.parseOne(ctx, u.name, files, false)
			d.reportTask(phaseParse, u.name.Name, err)
			return err
		}))
	}

	d.report.Event(progress.Event{Kind: progress.TaskStarted, Phase: phaseParse, Unit: d.mainUnit})
	mainID := tm.AddTask(func(ctx context.Context) error {
		err := d.parseOne(ctx, FileUnit{Name: d.mainUnit, AbsPath: d.mainAbsPath, RelPath: d.mainRelPath}, d.mainFiles, true)
		d.reportTask(phaseParse, d.mainUnit, err)
		return err
	})
	ids = append(ids, mainID)

	ok := tm.WaitForTasks(context.Background(), ids)
	d.report.Event(progress.Event{Kind: progress.PhaseDone, Phase: phaseParse})
	if !ok {
		return xerrors.New("one or more units failed to parse")
	}
	return nil
}

func (d *Driver) reportTask(phase, unitName string, err error) {
	kind := progress.TaskSucceeded
	if err != nil {
		kind = progress.TaskFailed
	}
	d.report.Event(progress.Event{Kind: kind, Phase: phase, Unit: unitName})
}

func (d *Driver) parseOne(ctx context.Context, u FileUnit, files FilesInfo, importOnly bool) error {
	d.log.Debug("parse", "unit", u.Name, "importOnly", importOnly)
	if d.cfg.DryRun {
		return nil
	}

	astOut := files.AST
	if importOnly {
		astOut = ""
	}
	return d.front.Parse(ctx, ParseRequest{
		Source:         u.AbsPath,
		ASTOutput:      astOut,
		ManifestOutput: files.Manifest,
		ImportOnly:     importOnly,
		ExtraArgs:      d.cfg.ExtraArgs.Parse,
	})
}
