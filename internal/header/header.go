// Package header synthesizes the public .h file for a declaration unit
// by rewriting its source, skipping body fragments the parse phase
// marked for removal and preserving surrounding whitespace (spec
// component C8).
package header

import (
	"bytes"
	"io"

	"github.com/levitation-build/levc/internal/atomicfs"
	"github.com/levitation-build/levc/internal/manifest"
)

// Request carries everything needed to synthesize one header.
type Request struct {
	OutputPath   string
	SourcePath   string
	Preamble     string   // relative include path, empty if none configured
	Includes     []string // relative include paths for every dependency, in emit order
	Skip         []manifest.Fragment
	SourceExtension string // e.g. "cppl", emitted in the boilerplate comment
}

// Synthesize reads src (the unit's full source) and writes the header to
// req.OutputPath via an atomic write, emitting src verbatim except for
// req.Skip's fragments, which are either dropped, replaced with a bare
// semicolon, or prefixed with "extern " depending on their Action.
func Synthesize(req Request, src []byte) error {
	return atomicfs.AtomicWrite(req.OutputPath, func(w io.Writer) error {
		return render(w, req, src)
	})
}

func render(w io.Writer, req Request, src []byte) error {
	out := bufWriter{w: w}

	emitHeadComment(&out)
	emitIncludes(&out, req.Preamble, req.Includes)
	emitAfterIncludesComment(&out, req.SourceExtension)

	start := 0
	for _, frag := range req.Skip {
		keepStart := start
		keepEnd := int(frag.Start)

		keep := src[keepStart:keepEnd]
		keepStripped, afterKeepSpaces := stripTrailingSpaces(keep)
		afterKeepNewline := false
		if bytes.HasSuffix(keepStripped, []byte("\n")) {
			keepStripped = keepStripped[:len(keepStripped)-1]
			afterKeepNewline = true
		}

		if _, err := out.Write(keepStripped); err != nil {
			return err
		}

		if frag.Action == manifest.ReplaceWithSemicolon {
			if _, err := out.WriteString(";"); err != nil {
				return err
			}
		}

		skip := src[frag.Start:frag.End]
		skipStripped, afterSkipSpaces := stripTrailingSpaces(skip)
		afterSkipNewline := bytes.HasSuffix(skipStripped, []byte("\n"))

		switch {
		case !afterKeepNewline && !afterSkipNewline:
			// Case 1: keep and skip were on the same source line — carry
			// forward whatever spacing followed the skipped fragment.
			if err := out.Indent(afterSkipSpaces); err != nil {
				return err
			}
		case afterSkipNewline:
			// Cases 2 and 4: the skipped fragment itself ended in a
			// newline, so that newline is what separates the next kept
			// text.
			if _, err := out.WriteString("\n"); err != nil {
				return err
			}
			if err := out.Indent(afterSkipSpaces); err != nil {
				return err
			}
		default:
			// Case 3: keep ended in a newline but skip did not — the
			// newline we preserve is the one that followed keep.
			if _, err := out.WriteString("\n"); err != nil {
				return err
			}
			if err := out.Indent(afterKeepSpaces); err != nil {
				return err
			}
		}

		if frag.Action == manifest.PrefixWithExtern {
			if _, err := out.WriteString("extern "); err != nil {
				return err
			}
		}

		start = int(frag.End)
	}

	tail, _ := stripTrailingSpaces(src[start:])
	_, err := out.Write(tail)
	return err
}

func stripTrailingSpaces(b []byte) (stripped []byte, trimmedSpaces int) {
	n := len(b)
	for n > 0 && b[n-1] == ' ' {
		n--
	}
	return b[:n], len(b) - n
}

func emitHeadComment(out *bufWriter) {
	out.WriteString("//===--------------------- generated file --------*- C++ -*-===//\n")
	out.WriteString("//\n")
	out.WriteString("//                             Don't edit this file.\n")
	out.WriteString("//\n")
	out.WriteString("//===----------------------------------------------------------------------===//\n\n")
}

func emitAfterIncludesComment(out *bufWriter, ext string) {
	if ext == "" {
		ext = "cppl"
	}
	out.WriteString("// below follows stripped ." + ext + " file contents.\n\n")
}

func emitIncludes(out *bufWriter, preamble string, includes []string) {
	if len(includes) == 0 && preamble == "" {
		return
	}

	if preamble != "" {
		out.WriteString("// preamble\n")
		out.WriteString("#include \"" + preamble + "\"\n\n")
	}

	if len(includes) == 0 {
		return
	}

	out.WriteString("// below are #include directives for all dependencies\n\n")
	for _, inc := range includes {
		out.WriteString("#include \"" + inc + "\"\n")
	}
	out.WriteString("\n")
}

// bufWriter is a tiny io.Writer adapter with an Indent helper, avoiding a
// dependency on a heavier text-formatting package for this one use.
type bufWriter struct {
	w   io.Writer
	err error
}

func (b *bufWriter) Write(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	n, err := b.w.Write(p)
	b.err = err
	return n, err
}

func (b *bufWriter) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

func (b *bufWriter) Indent(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := b.Write(bytes.Repeat([]byte(" "), n))
	return err
}
