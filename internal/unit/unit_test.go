package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRelPath(t *testing.T) {
	cases := map[string]string{
		"main.cpp":   "main",
		"P1/A.cppl":  "P1::A",
		"P1/B.cppl":  "P1::B",
		"a/b/c.cppl": "a::b::c",
		"noext":      "noext",
	}
	for in, want := range cases {
		assert.Equal(t, want, FromRelPath(in), in)
	}
}
