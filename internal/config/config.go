// Package config loads the optional project-level levc.toml file and
// merges it under command-line flags, which always take precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file, looked up in
// the project root.
const FileName = "levc.toml"

// File is the decoded shape of levc.toml. Every field is optional; a
// field left at its zero value does not override the corresponding flag
// default.
type File struct {
	BuildRoot string `toml:"build_root"`
	Main      string `toml:"main"`
	Preamble  string `toml:"preamble"`
	Jobs      int    `toml:"jobs"`
	Verbose   bool   `toml:"verbose"`

	ExtraArgs ExtraArgs `toml:"extra_args"`
}

// ExtraArgs mirrors the driver's -FH/-FP/-FC/-FL flags: extra front-end
// arguments threaded into the preamble build (Header, named after -FH),
// parse, decl/object compilation, and link respectively.
type ExtraArgs struct {
	Header  []string `toml:"header"`
	Parse   []string `toml:"parse"`
	Compile []string `toml:"compile"`
	Link    []string `toml:"link"`
}

// Find walks up from startDir looking for levc.toml, stopping at the
// filesystem root. It returns "" (not an error) if none is found —
// running without a config file is the common case.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", startDir, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load parses path and returns the decoded File plus its TOML metadata,
// which callers can use to warn about unrecognized keys via
// md.Undecoded().
func Load(path string) (*File, toml.MetaData, error) {
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, md, fmt.Errorf("loading config %s: %w", path, err)
	}
	return &f, md, nil
}
