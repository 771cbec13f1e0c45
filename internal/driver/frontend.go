package driver

import (
	"context"
	"io"
	"os"
	"os/exec"

	"golang.org/x/xerrors"
)

// FrontEnd is the external collaborator that actually parses Levitation
// sources and generates declaration ASTs and object code (spec §1 "Out of
// scope": "the actual parser/code-generator invocations (the core shells
// them out)"). The core never speaks C++ itself; it only ever talks to
// this interface, which real runs satisfy by shelling out to the
// configured front-end binary the way distri's buildctx shells out to
// toolchain commands (cmd/distri/build.go), and tests satisfy with a fake.
type FrontEnd interface {
	// BuildPreamble runs the front end in "build preamble" mode (spec
	// §4.7 phase 1), once, synchronously.
	BuildPreamble(ctx context.Context, req PreambleRequest) error
	// Parse runs the front end in "build AST" mode for a regular unit, or
	// "import-only" mode for the main unit (spec §4.7 phase 2).
	Parse(ctx context.Context, req ParseRequest) error
	// BuildDecl runs the front end in "build decl-ast" mode (spec §4.7
	// phase 4).
	BuildDecl(ctx context.Context, req DeclRequest) error
	// BuildObject runs the front end in "build object" mode (spec §4.7
	// phase 4), for both regular units and the main unit.
	BuildObject(ctx context.Context, req ObjectRequest) error
}

// Linker is the external collaborator invoked during the link phase (spec
// §4.7 phase 5).
type Linker interface {
	Link(ctx context.Context, req LinkRequest) error
}

// PreambleRequest carries the preamble source and its output path.
type PreambleRequest struct {
	Source    string
	Output    string
	ExtraArgs []string
}

// ParseRequest carries one unit's parse-phase inputs and outputs.
type ParseRequest struct {
	Source         string
	ASTOutput      string // "" in import-only mode
	ManifestOutput string
	ImportOnly     bool
	ExtraArgs      []string
}

// DeclRequest carries one unit's declaration-AST generation inputs: its
// own AST plus the decl-ast paths of every declaration dependency, in the
// distance-ranked order the solver produced (deepest/earliest first).
// MetaOutput names where the front end writes the unit's LMET decl-ast
// metadata record (source/decl-ast hashes, fragments_to_skip) consumed
// later by the header synthesizer.
type DeclRequest struct {
	AST         string
	Output      string
	MetaOutput  string
	DeclASTDeps []string
	ExtraArgs   []string
}

// ObjectRequest carries one unit's object-generation inputs: its own
// AST and decl-ast, plus the decl-ast paths of every declaration and
// definition dependency.
type ObjectRequest struct {
	AST         string
	DeclAST     string // "" for the main unit, which has no declaration
	Output      string
	DeclASTDeps []string
	ExtraArgs   []string
	IsMain      bool
}

// LinkRequest carries the full object list and output path.
type LinkRequest struct {
	Objects   []string
	Output    string
	ExtraArgs []string
}

// ExecFrontEnd shells out to a single front-end binary, passing a mode
// flag and the artifact paths as arguments — the production
// implementation of FrontEnd.
type ExecFrontEnd struct {
	// Path to the front-end binary, e.g. "levitation-cc".
	Path string
	// Stdout/Stderr receive the subprocess's output, mirroring distri's
	// build step invocation (cmd/distri/build.go): both the live stream
	// and, if non-nil, a log sink.
	Stdout, Stderr io.Writer
}

func (f ExecFrontEnd) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.Path, args...)
	cmd.Stdout = f.stdout()
	cmd.Stderr = f.stderr()
	if err := cmd.Run(); err != nil {
		return xerrors.Errorf("%s %v: %w", f.Path, args, err)
	}
	return nil
}

func (f ExecFrontEnd) stdout() io.Writer {
	if f.Stdout != nil {
		return f.Stdout
	}
	return os.Stdout
}

func (f ExecFrontEnd) stderr() io.Writer {
	if f.Stderr != nil {
		return f.Stderr
	}
	return os.Stderr
}

func (f ExecFrontEnd) BuildPreamble(ctx context.Context, req PreambleRequest) error {
	args := append([]string{
		"-mode=build-preamble",
		"-source", req.Source,
		"-o", req.Output,
	}, req.ExtraArgs...)
	return f.run(ctx, args)
}

func (f ExecFrontEnd) Parse(ctx context.Context, req ParseRequest) error {
	mode := "-mode=build-ast"
	if req.ImportOnly {
		mode = "-mode=import-only"
	}
	args := []string{mode, "-source", req.Source, "-deps-out", req.ManifestOutput}
	if req.ASTOutput != "" {
		args = append(args, "-ast-out", req.ASTOutput)
	}
	args = append(args, req.ExtraArgs...)
	return f.run(ctx, args)
}

func (f ExecFrontEnd) BuildDecl(ctx context.Context, req DeclRequest) error {
	args := []string{"-mode=build-decl", "-ast", req.AST, "-o", req.Output}
	if req.MetaOutput != "" {
		args = append(args, "-meta-out", req.MetaOutput)
	}
	for _, d := range req.DeclASTDeps {
		args = append(args, "-decl-dep", d)
	}
	args = append(args, req.ExtraArgs...)
	return f.run(ctx, args)
}

func (f ExecFrontEnd) BuildObject(ctx context.Context, req ObjectRequest) error {
	args := []string{"-mode=build-object", "-ast", req.AST, "-o", req.Output}
	if req.DeclAST != "" {
		args = append(args, "-decl-ast", req.DeclAST)
	}
	for _, d := range req.DeclASTDeps {
		args = append(args, "-decl-dep", d)
	}
	args = append(args, req.ExtraArgs...)
	return f.run(ctx, args)
}

// ExecLinker shells out to a linker driver binary, e.g. "cc" or "ld".
type ExecLinker struct {
	Path           string
	Stdout, Stderr io.Writer
}

func (l ExecLinker) Link(ctx context.Context, req LinkRequest) error {
	args := append(append([]string{"-o", req.Output}, req.Objects...), req.ExtraArgs...)
	cmd := exec.CommandContext(ctx, l.Path, args...)
	cmd.Stdout = l.stdout()
	cmd.Stderr = l.stderr()
	if err := cmd.Run(); err != nil {
		return xerrors.Errorf("%s %v: %w", l.Path, args, err)
	}
	return nil
}

func (l ExecLinker) stdout() io.Writer {
	if l.Stdout != nil {
		return l.Stdout
	}
	return os.Stdout
}

func (l ExecLinker) stderr() io.Writer {
	if l.Stderr != nil {
		return l.Stderr
	}
	return os.Stderr
}
