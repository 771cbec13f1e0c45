package manifest

import (
	"bytes"
	"io"
	"path/filepath"

	"github.com/levitation-build/levc/internal/atomicfs"
	"github.com/levitation-build/levc/internal/strpool"
	"golang.org/x/xerrors"
)

// Declaration records one dependency edge: the path ID of the unit it
// targets. (spec §3 "declaration records {path_id}")
type Declaration struct {
	FilePathID strpool.ID
}

// Dependencies is the per-unit dependency manifest described in spec §3:
// every ID in DeclarationDependencies/DefinitionDependencies must exist in
// Strings, the unit's own local string pool.
type Dependencies struct {
	Strings *strpool.Pool

	PackageFilePathID strpool.ID
	IsPublic          bool
	IsBodyOnly        bool

	DeclarationDependencies []Declaration
	DefinitionDependencies  []Declaration
}

// NewDependencies returns an empty manifest with a fresh local string pool.
func NewDependencies() *Dependencies {
	return &Dependencies{Strings: strpool.New()}
}

// WriteDependencies stages the manifest into a buffer and atomically writes
// it to path in a single operation — failing to emit any record leaves the
// target file absent, never partially written (spec §4.2 writer
// guarantees).
func WriteDependencies(path string, deps *Dependencies) error {
	return atomicfs.AtomicWrite(path, func(w io.Writer) error {
		buf, err := EncodeDependencies(deps)
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	})
}

// EncodeDependencies renders deps into the bit-exact LDEP byte stream.
func EncodeDependencies(deps *Dependencies) ([]byte, error) {
	w := &streamWriter{}
	w.writeMagic(MagicDependencies)
	w.writeBlockInfo(dependenciesBlockInfo())

	// Strings block: one record per interned string, in ID order so the
	// encoding is deterministic across runs with identical inputs.
	stringsBody := w.beginBlock()
	for _, item := range deps.Strings.Items() {
		writeUint32StringRecord(stringsBody, uint32(item.ID), item.Value)
	}
	w.endBlock(blockStrings, stringsBody)

	// Top-level fields block.
	topBody := w.beginBlock()
	writeRecordHeader(topBody, recTopFields, 2)
	topBody.WriteByte(boolByte(deps.IsPublic))
	topBody.WriteByte(boolByte(deps.IsBodyOnly))
	writeUint32Record(topBody, recPackagePath, uint32(deps.PackageFilePathID))
	w.endBlock(blockTopFields, topBody)

	declBody := w.beginBlock()
	for _, d := range deps.DeclarationDependencies {
		writeUint32Record(declBody, recDependency, uint32(d.FilePathID))
	}
	w.endBlock(blockDeclDeps, declBody)

	defBody := w.beginBlock()
	for _, d := range deps.DefinitionDependencies {
		writeUint32Record(defBody, recDependency, uint32(d.FilePathID))
	}
	w.endBlock(blockDefDeps, defBody)

	return w.buf.Bytes(), nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeUint32StringRecord(body *bytes.Buffer, id uint32, s string) {
	payload := make([]byte, 4+len(s))
	payload[0] = byte(id)
	payload[1] = byte(id >> 8)
	payload[2] = byte(id >> 16)
	payload[3] = byte(id >> 24)
	copy(payload[4:], s)
	writeRecordHeader(body, recString, len(payload))
	body.Write(payload)
}

// ReadDependencies parses an LDEP stream. Any path whose string form is not
// already normalized (via filepath.Clean+ToSlash) is renormalized and
// re-interned — possibly under a new ID — and a warning is appended to the
// returned warnings slice, per spec §4.2.
func ReadDependencies(data []byte) (*Dependencies, []string, Status) {
	r := newReader(data)

	magic, err := r.readMagic()
	if err != nil {
		return nil, nil, statusf(TruncatedStream, "reading magic: %v", err)
	}
	if magic != MagicDependencies {
		return nil, nil, statusf(BadSignature, "got %q, want %q", magic[:], MagicDependencies[:])
	}
	if _, err := r.readBlockInfo(); err != nil {
		return nil, nil, statusf(TruncatedStream, "block-info: %v", err)
	}

	deps := NewDependencies()
	localToGlobal := map[uint32]strpool.ID{0: strpool.Invalid}
	var warnings []string

	for r.remaining() > 0 {
		blk, err := r.readBlock()
		if err != nil {
			return nil, nil, statusf(TruncatedStream, "reading block: %v", err)
		}

		switch blk.ID {
		case blockStrings:
			recs, err := splitRecords(blk.Body)
			if err != nil {
				return nil, nil, statusf(UnexpectedRecordShape, "strings block: %v", err)
			}
			for _, rec := range recs {
				if rec.ID != recString {
					continue // unknown record within known block: ignored
				}
				if len(rec.Payload) < 4 {
					return nil, nil, statusf(UnexpectedRecordShape, "string record too short")
				}
				localID := uint32(rec.Payload[0]) | uint32(rec.Payload[1])<<8 |
					uint32(rec.Payload[2])<<16 | uint32(rec.Payload[3])<<24
				raw := string(rec.Payload[4:])

				normalized := normalizePath(raw)
				if normalized != raw {
					warnings = append(warnings, xerrors.Errorf(
						"path %q is not normalized, using %q", raw, normalized,
					).Error())
				}
				globalID := deps.Strings.Add(normalized)
				localToGlobal[localID] = globalID
			}

		case blockTopFields:
			recs, err := splitRecords(blk.Body)
			if err != nil {
				return nil, nil, statusf(UnexpectedRecordShape, "top-fields block: %v", err)
			}
			for _, rec := range recs {
				switch rec.ID {
				case recTopFields:
					if len(rec.Payload) != 2 {
						return nil, nil, statusf(UnexpectedRecordShape, "top-fields payload size %d", len(rec.Payload))
					}
					deps.IsPublic = rec.Payload[0] != 0
					deps.IsBodyOnly = rec.Payload[1] != 0
				case recPackagePath:
					if len(rec.Payload) != 4 {
						return nil, nil, statusf(UnexpectedRecordShape, "package-path payload size %d", len(rec.Payload))
					}
					deps.PackageFilePathID = strpool.ID(leUint32(rec.Payload))
				default:
					// unknown record within known block: ignored
				}
			}

		case blockDeclDeps, blockDefDeps:
			recs, err := splitRecords(blk.Body)
			if err != nil {
				return nil, nil, statusf(UnexpectedRecordShape, "dependency block %d: %v", blk.ID, err)
			}
			var list []Declaration
			for _, rec := range recs {
				if rec.ID != recDependency {
					continue
				}
				if len(rec.Payload) != 4 {
					return nil, nil, statusf(UnexpectedRecordShape, "dependency payload size %d", len(rec.Payload))
				}
				list = append(list, Declaration{FilePathID: strpool.ID(leUint32(rec.Payload))})
			}
			if blk.ID == blockDeclDeps {
				deps.DeclarationDependencies = list
			} else {
				deps.DefinitionDependencies = list
			}

		default:
			// unknown sub-block: skipped (its bytes were already consumed
			// by readBlock via the length prefix).
		}
	}

	// Remap every FilePathID from the local-on-disk numbering to the
	// (possibly renormalized) IDs actually present in deps.Strings.
	remap := func(list []Declaration) []Declaration {
		out := make([]Declaration, len(list))
		for i, d := range list {
			out[i] = Declaration{FilePathID: localToGlobal[uint32(d.FilePathID)]}
		}
		return out
	}
	deps.DeclarationDependencies = remap(deps.DeclarationDependencies)
	deps.DefinitionDependencies = remap(deps.DefinitionDependencies)
	deps.PackageFilePathID = localToGlobal[uint32(deps.PackageFilePathID)]

	return deps, warnings, Status{Kind: OK}
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
}

// recPackagePath is an extra record kind inside the top-fields block,
// carrying the manifest's own unit path ID.
const recPackagePath uint8 = 2
