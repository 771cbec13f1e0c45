// Package unit derives logical unit identifiers from project-relative
// source paths: split on the path separator, strip the final component's
// extension, join with "::".
package unit

import (
	"path/filepath"
	"strings"
)

// Separator joins unit-name components when rendering a UnitID.
const Separator = "::"

// FromRelPath turns a project-relative path such as "P1/B.cppl" into the
// unit name "P1::B".
func FromRelPath(relPath string) string {
	relPath = filepath.ToSlash(relPath)
	components := strings.Split(relPath, "/")
	last := components[len(components)-1]
	if dot := strings.LastIndexByte(last, '.'); dot >= 0 {
		last = last[:dot]
	}
	components[len(components)-1] = last
	return strings.Join(components, Separator)
}
