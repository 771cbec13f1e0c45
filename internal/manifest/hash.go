package manifest

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashBytes computes the content digest stored in a DeclASTMeta's
// SourceHash/DeclASTHash fields. xxhash gives a cheap, collision-resistant
// digest suitable for the rebuild-avoidance comparison spec.md's Non-goals
// call for ("rebuild economy comes from content-hash comparison").
func HashBytes(data []byte) []byte {
	sum := xxhash.Sum64(data)
	var out [8]byte
	binary.LittleEndian.PutUint64(out[:], sum)
	return out[:]
}
