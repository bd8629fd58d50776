package bucket

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lexlab/lidtrain/pkg/lidtrain/internalerr"
)

// formatVersion is the first byte of every record file. Bump it when
// the payload layout changes; readers reject anything else.
const formatVersion = 1

// Payload tags, one per record shape
const (
	tagDF byte = iota + 1
	tagPosting
	tagCount
)

// Record is one bucket file entry. The closed set of shapes is
// DFRecord, PostingRecord and CountRecord; payloads are built from
// byte-string keys, varints and varint lists only, so every
// implementation decodes them identically.
type Record interface {
	appendPayload(buf []byte) []byte
}

// DFRecord is a partial document-frequency count for one term
type DFRecord struct {
	Term  []byte
	Count int64
}

// PostingRecord lists the chunk-local ids of documents containing a
// term, tagged with the producing chunk so ids can be globalized
type PostingRecord struct {
	Term    []byte
	ChunkID int64
	DocIDs  []int64
}

// CountRecord is one (feature, document, occurrence-count) cell of
// the training matrix, document id chunk-local
type CountRecord struct {
	FeatureID int64
	ChunkID   int64
	DocID     int64
	Count     int64
}

func (r DFRecord) appendPayload(buf []byte) []byte {
	buf = append(buf, tagDF)
	buf = appendKey(buf, r.Term)
	return binary.AppendVarint(buf, r.Count)
}

func (r PostingRecord) appendPayload(buf []byte) []byte {
	buf = append(buf, tagPosting)
	buf = appendKey(buf, r.Term)
	buf = binary.AppendVarint(buf, r.ChunkID)
	buf = binary.AppendUvarint(buf, uint64(len(r.DocIDs)))
	for _, id := range r.DocIDs {
		buf = binary.AppendVarint(buf, id)
	}
	return buf
}

func (r CountRecord) appendPayload(buf []byte) []byte {
	buf = append(buf, tagCount)
	buf = binary.AppendVarint(buf, r.FeatureID)
	buf = binary.AppendVarint(buf, r.ChunkID)
	buf = binary.AppendVarint(buf, r.DocID)
	return binary.AppendVarint(buf, r.Count)
}

func appendKey(buf, key []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(key)))
	return append(buf, key...)
}

// Writer appends length-prefixed records to one file. Each worker
// writes its own files, so a Writer is never shared.
type Writer struct {
	f       *os.File
	w       *bufio.Writer
	scratch []byte
	count   int64
}

// NewWriter creates path and writes the format header
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := w.WriteByte(formatVersion); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{f: f, w: w}, nil
}

// Append writes one record
func (w *Writer) Append(rec Record) error {
	w.scratch = rec.appendPayload(w.scratch[:0])
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(w.scratch)))
	if _, err := w.w.Write(prefix[:n]); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if _, err := w.w.Write(w.scratch); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records appended so far
func (w *Writer) Count() int64 {
	return w.count
}

// Close flushes and closes the underlying file
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flush record file: %w", err)
	}
	return w.f.Close()
}

// Reader streams records back from one file. Next returns io.EOF
// only at a clean end of stream; every other decode failure is
// ErrCorruptRecord, never a silently shortened stream.
type Reader struct {
	f    *os.File
	r    *bufio.Reader
	path string
}

// NewReader opens path and verifies the format header
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	var header [1]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: missing header: %w", path, internalerr.ErrCorruptRecord)
	}
	if header[0] != formatVersion {
		f.Close()
		return nil, fmt.Errorf("%s: format version %d: %w", path, header[0], internalerr.ErrCorruptRecord)
	}
	return &Reader{f: f, r: bufio.NewReader(f), path: path}, nil
}

// Next decodes the next record, or io.EOF at end of stream
func (r *Reader) Next() (Record, error) {
	length, err := binary.ReadUvarint(r.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: bad length prefix: %w", r.path, internalerr.ErrCorruptRecord)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("%s: truncated payload: %w", r.path, internalerr.ErrCorruptRecord)
	}
	rec, err := decodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	return rec, nil
}

// Close closes the underlying file
func (r *Reader) Close() error {
	return r.f.Close()
}

func decodePayload(p []byte) (Record, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("empty payload: %w", internalerr.ErrCorruptRecord)
	}
	d := payloadDecoder{buf: p[1:]}
	var rec Record
	switch p[0] {
	case tagDF:
		rec = DFRecord{Term: d.key(), Count: d.varint()}
	case tagPosting:
		r := PostingRecord{Term: d.key(), ChunkID: d.varint()}
		n := d.uvarint()
		if d.err == nil && n > uint64(len(d.buf)) {
			// A list cannot be longer than its remaining encoding
			d.err = internalerr.ErrCorruptRecord
		}
		if d.err == nil {
			r.DocIDs = make([]int64, n)
			for i := range r.DocIDs {
				r.DocIDs[i] = d.varint()
			}
		}
		rec = r
	case tagCount:
		rec = CountRecord{
			FeatureID: d.varint(),
			ChunkID:   d.varint(),
			DocID:     d.varint(),
			Count:     d.varint(),
		}
	default:
		return nil, fmt.Errorf("unknown tag %d: %w", p[0], internalerr.ErrCorruptRecord)
	}
	if d.err != nil {
		return nil, fmt.Errorf("bad payload: %w", internalerr.ErrCorruptRecord)
	}
	if len(d.buf) != 0 {
		return nil, fmt.Errorf("%d trailing bytes: %w", len(d.buf), internalerr.ErrCorruptRecord)
	}
	return rec, nil
}

// payloadDecoder consumes fields from a payload, latching the first
// error so call sites stay linear
type payloadDecoder struct {
	buf []byte
	err error
}

func (d *payloadDecoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.err = internalerr.ErrCorruptRecord
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *payloadDecoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf)
	if n <= 0 {
		d.err = internalerr.ErrCorruptRecord
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *payloadDecoder) key() []byte {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.buf)) {
		d.err = internalerr.ErrCorruptRecord
		return nil
	}
	key := make([]byte, n)
	copy(key, d.buf[:n])
	d.buf = d.buf[n:]
	return key
}
