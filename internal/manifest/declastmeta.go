package manifest

import (
	"io"

	"github.com/levitation-build/levc/internal/atomicfs"
)

// Fragment is one skip-fragment: a half-open byte range [Start, End) into
// the original source, plus the rewriting action the header synthesizer
// applies to it. Fragments are non-overlapping and strictly ordered by
// Start (spec §3).
type Fragment struct {
	Start  uint32
	End    uint32
	Action FragmentAction
}

// DeclASTMeta is the per-compiled-declaration metadata record (spec §3).
//
// SourceHash and DeclASTHash are opaque byte arrays: the format reserves
// space for them but this implementation does not rely on their
// contents for equality checks (spec §9 Open Question (a) — "not
// implemented" in the original, space preserved here). They can be
// populated with a content digest (internal/manifest.HashBytes) so the
// fields are non-empty and round-trip, but no caller compares them, and
// internal/driver makes no staleness decision from any hash: every run
// rebuilds every unit.
type DeclASTMeta struct {
	SourceHash  []byte
	DeclASTHash []byte

	FragmentsToSkip []Fragment
}

// WriteDeclASTMeta atomically writes meta to path as a bit-exact LMET
// stream.
func WriteDeclASTMeta(path string, meta *DeclASTMeta) error {
	return atomicfs.AtomicWrite(path, func(w io.Writer) error {
		buf := EncodeDeclASTMeta(meta)
		_, err := w.Write(buf)
		return err
	})
}

// EncodeDeclASTMeta renders meta into the bit-exact LMET byte stream.
func EncodeDeclASTMeta(meta *DeclASTMeta) []byte {
	w := &streamWriter{}
	w.writeMagic(MagicDeclASTMeta)
	w.writeBlockInfo(declASTMetaBlockInfo())

	hashBody := w.beginBlock()
	writeBytesRecord(hashBody, recSourceHash, meta.SourceHash)
	writeBytesRecord(hashBody, recDeclASTHash, meta.DeclASTHash)
	w.endBlock(blockHashes, hashBody)

	fragBody := w.beginBlock()
	for _, f := range meta.FragmentsToSkip {
		writeRecordHeader(fragBody, recFragment, 9)
		var payload [9]byte
		payload[0] = byte(f.Start)
		payload[1] = byte(f.Start >> 8)
		payload[2] = byte(f.Start >> 16)
		payload[3] = byte(f.Start >> 24)
		payload[4] = byte(f.End)
		payload[5] = byte(f.End >> 8)
		payload[6] = byte(f.End >> 16)
		payload[7] = byte(f.End >> 24)
		payload[8] = byte(f.Action)
		fragBody.Write(payload[:])
	}
	w.endBlock(blockFragments, fragBody)

	return w.buf.Bytes()
}

// ReadDeclASTMeta parses an LMET stream.
func ReadDeclASTMeta(data []byte) (*DeclASTMeta, Status) {
	r := newReader(data)

	magic, err := r.readMagic()
	if err != nil {
		return nil, statusf(TruncatedStream, "reading magic: %v", err)
	}
	if magic != MagicDeclASTMeta {
		return nil, statusf(BadSignature, "got %q, want %q", magic[:], MagicDeclASTMeta[:])
	}
	if _, err := r.readBlockInfo(); err != nil {
		return nil, statusf(TruncatedStream, "block-info: %v", err)
	}

	meta := &DeclASTMeta{}

	for r.remaining() > 0 {
		blk, err := r.readBlock()
		if err != nil {
			return nil, statusf(TruncatedStream, "reading block: %v", err)
		}

		switch blk.ID {
		case blockHashes:
			recs, err := splitRecords(blk.Body)
			if err != nil {
				return nil, statusf(UnexpectedRecordShape, "hashes block: %v", err)
			}
			for _, rec := range recs {
				switch rec.ID {
				case recSourceHash:
					meta.SourceHash = append([]byte(nil), rec.Payload...)
				case recDeclASTHash:
					meta.DeclASTHash = append([]byte(nil), rec.Payload...)
				}
			}

		case blockFragments:
			recs, err := splitRecords(blk.Body)
			if err != nil {
				return nil, statusf(UnexpectedRecordShape, "fragments block: %v", err)
			}
			for _, rec := range recs {
				if rec.ID != recFragment {
					continue
				}
				if len(rec.Payload) != 9 {
					return nil, statusf(UnexpectedRecordShape, "fragment payload size %d", len(rec.Payload))
				}
				meta.FragmentsToSkip = append(meta.FragmentsToSkip, Fragment{
					Start:  leUint32(rec.Payload[0:4]),
					End:    leUint32(rec.Payload[4:8]),
					Action: FragmentAction(rec.Payload[8]),
				})
			}

		default:
			// unknown sub-block: skipped
		}
	}

	return meta, Status{Kind: OK}
}
