package manifest

import (
	"bytes"
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// streamWriter accumulates a manifest body into memory so the caller can
// stage the whole file and append it to the output in a single write —
// the writer never produces a partially-observable file.
type streamWriter struct {
	buf bytes.Buffer
}

func (w *streamWriter) writeMagic(magic [4]byte) {
	w.buf.Write(magic[:])
}

func (w *streamWriter) writeBlockInfo(entries []blockInfoEntry) {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(entries)))
	w.buf.Write(hdr[:])
	for _, e := range entries {
		var b [4 + 1 + 1]byte
		binary.LittleEndian.PutUint32(b[0:4], e.BlockID)
		b[4] = e.RecordID
		b[5] = byte(e.Width)
		w.buf.Write(b[:])
	}
}

// beginBlock returns a nested writer for a single block's records; the
// caller must pass it, together with the block's id, to endBlock once all
// records have been written into it.
func (w *streamWriter) beginBlock() *bytes.Buffer {
	return &bytes.Buffer{}
}

func (w *streamWriter) endBlock(id uint32, body *bytes.Buffer) {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], id)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(body.Len()))
	w.buf.Write(hdr[:])
	w.buf.Write(body.Bytes())
}

func writeRecordHeader(body *bytes.Buffer, recID uint8, payloadLen int) {
	var hdr [5]byte
	hdr[0] = recID
	binary.LittleEndian.PutUint32(hdr[1:5], uint32(payloadLen))
	body.Write(hdr[:])
}

func writeUint32Record(body *bytes.Buffer, recID uint8, v uint32) {
	writeRecordHeader(body, recID, 4)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	body.Write(b[:])
}

func writeBytesRecord(body *bytes.Buffer, recID uint8, blob []byte) {
	writeRecordHeader(body, recID, len(blob))
	body.Write(blob)
}

// ---- reader ----

type reader struct {
	b   []byte
	pos int
}

func newReader(data []byte) *reader { return &reader{b: data} }

func (r *reader) remaining() int { return len(r.b) - r.pos }

func (r *reader) readN(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) readMagic() ([4]byte, error) {
	var m [4]byte
	b, err := r.readN(4)
	if err != nil {
		return m, err
	}
	copy(m[:], b)
	return m, nil
}

func (r *reader) readUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

type readBlockInfoEntry struct {
	BlockID  uint32
	RecordID uint8
	Width    widthClass
}

func (r *reader) readBlockInfo() ([]readBlockInfoEntry, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, xerrors.Errorf("block-info count: %w", err)
	}
	entries := make([]readBlockInfoEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		raw, err := r.readN(6)
		if err != nil {
			return nil, xerrors.Errorf("block-info entry %d: %w", i, err)
		}
		entries = append(entries, readBlockInfoEntry{
			BlockID:  binary.LittleEndian.Uint32(raw[0:4]),
			RecordID: raw[4],
			Width:    widthClass(raw[5]),
		})
	}
	return entries, nil
}

// block is one decoded block: its id and the raw bytes of its body (not
// yet parsed into records).
type block struct {
	ID   uint32
	Body []byte
}

func (r *reader) readBlock() (block, error) {
	id, err := r.readUint32()
	if err != nil {
		return block{}, err
	}
	length, err := r.readUint32()
	if err != nil {
		return block{}, xerrors.Errorf("block %d length: %w", id, err)
	}
	body, err := r.readN(int(length))
	if err != nil {
		return block{}, xerrors.Errorf("block %d body (%d bytes): %w", id, length, err)
	}
	return block{ID: id, Body: body}, nil
}

// record is one decoded record within a block body.
type record struct {
	ID      uint8
	Payload []byte
}

// splitRecords decodes every length-prefixed record in a block body. An
// unexpected record shape (truncated header/payload) is surfaced as an
// error by the caller via Status; unknown record IDs are left to the
// caller to ignore.
func splitRecords(body []byte) ([]record, error) {
	var out []record
	r := newReader(body)
	for r.remaining() > 0 {
		if r.remaining() < 5 {
			return nil, io.ErrUnexpectedEOF
		}
		hdr, _ := r.readN(5)
		recID := hdr[0]
		length := binary.LittleEndian.Uint32(hdr[1:5])
		payload, err := r.readN(int(length))
		if err != nil {
			return nil, xerrors.Errorf("record %d payload (%d bytes): %w", recID, length, err)
		}
		out = append(out, record{ID: recID, Payload: payload})
	}
	return out, nil
}
