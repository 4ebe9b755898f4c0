// Package binstream implements the binary stream format: a varint
// length-prefixed header block (the flattened column schema) followed by
// varint length-prefixed row blocks, each row encoded with Strategy R.
//
// A typed Writer/Reader pair works against a record.Mapper type directly;
// a raw pair (RawWriter/RawReader) works against bare schema and cells,
// for callers such as pkg/dataframe that have no generated mapper type to
// hand.
package binstream

import (
	"bufio"
	"io"
	"sync"

	"github.com/Banyc/hdv/internal/wire"
	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
	"github.com/Banyc/hdv/pkg/rowcodec"
	"github.com/Banyc/hdv/pkg/shift"
)

const defaultBufSize = 4096

// rawWriterPool recycles RawWriters, the same pattern the ambient stream
// writer this codebase grew out of uses to avoid a fresh bufio.Writer per
// stream opened.
var rawWriterPool = sync.Pool{
	New: func() any { return &RawWriter{} },
}

// RawWriter writes rows directly from caller-supplied cells against a
// fixed header, with no generated record.Mapper type involved.
type RawWriter struct {
	w             *bufio.Writer
	header        []atom.Scheme
	headerWritten bool
	closed        bool
	err           error
	rowBuf        []byte
	scratch       [wire.MaxVarintLen64]byte
}

// NewRawWriter creates a RawWriter that writes header once, on the first
// call to WriteRow, followed by rows matching it.
func NewRawWriter(w io.Writer, header []atom.Scheme) *RawWriter {
	return &RawWriter{
		w:      bufio.NewWriterSize(w, defaultBufSize),
		header: header,
	}
}

// GetRawWriter fetches a pooled RawWriter reset to write to w with the
// given header. Call PutRawWriter when done.
func GetRawWriter(w io.Writer, header []atom.Scheme) *RawWriter {
	rw := rawWriterPool.Get().(*RawWriter)
	rw.reset(w, header)
	return rw
}

// PutRawWriter returns rw to the pool after use.
func PutRawWriter(rw *RawWriter) {
	if rw == nil {
		return
	}
	rw.w = nil
	rawWriterPool.Put(rw)
}

func (rw *RawWriter) reset(w io.Writer, header []atom.Scheme) {
	if rw.w == nil {
		rw.w = bufio.NewWriterSize(w, defaultBufSize)
	} else {
		rw.w.Reset(w)
	}
	rw.header = header
	rw.headerWritten = false
	rw.closed = false
	rw.err = nil
	rw.rowBuf = rw.rowBuf[:0]
}

func (rw *RawWriter) setError(err error) {
	if rw.err == nil {
		rw.err = err
	}
}

func (rw *RawWriter) checkWrite() bool {
	if rw.closed {
		rw.setError(hdverr.NewEncodeError("writer is closed", nil))
		return false
	}
	return rw.err == nil
}

// WriteRow encodes one row, writing the header first if this is the
// first call. cells must have the same length and column types as
// header.
func (rw *RawWriter) WriteRow(cells []record.Cell) error {
	if !rw.checkWrite() {
		return rw.err
	}
	if !rw.headerWritten {
		if err := writeHeader(rw.w, rw.header, rw.scratch[:]); err != nil {
			rw.setError(hdverr.NewEncodeError("write header", err))
			return rw.err
		}
		rw.headerWritten = true
	}

	rw.rowBuf = rowcodec.EncodeRun(rw.rowBuf[:0], cells)
	if err := writeLenPrefixed(rw.w, rw.rowBuf, rw.scratch[:]); err != nil {
		rw.setError(hdverr.NewEncodeError("write row", err))
		return rw.err
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (rw *RawWriter) Flush() error {
	if rw.err != nil {
		return rw.err
	}
	if err := rw.w.Flush(); err != nil {
		rw.setError(hdverr.NewEncodeError("flush", err))
		return rw.err
	}
	return nil
}

// Close flushes and marks the writer closed. It does not close the
// underlying io.Writer.
func (rw *RawWriter) Close() error {
	if rw.closed {
		return nil
	}
	rw.closed = true
	return rw.Flush()
}

// Err returns the first error recorded by this writer, if any.
func (rw *RawWriter) Err() error { return rw.err }

// Writer writes a stream of record.Marshaler values. The header is
// derived from the first value's Scheme() and implicitly shared by every
// later value written through the same Writer.
type Writer struct {
	raw *RawWriter
}

// NewWriter creates a Writer over w. The header is not written until the
// first call to Write.
func NewWriter(w io.Writer) *Writer {
	return &Writer{raw: &RawWriter{w: bufio.NewWriterSize(w, defaultBufSize)}}
}

// Write marshals rec and appends it as the next row, deriving and writing
// the stream header from rec.Scheme() on the first call.
func (w *Writer) Write(rec record.Marshaler) error {
	if !w.raw.headerWritten {
		header, err := rec.Scheme().AtomSchemes()
		if err != nil {
			w.raw.setError(hdverr.NewEncodeError("derive header", err))
			return w.raw.err
		}
		w.raw.header = header
	}
	var cells []record.Cell
	if err := rec.MarshalRecord(&cells); err != nil {
		w.raw.setError(hdverr.NewEncodeError("marshal record", err))
		return w.raw.err
	}
	return w.raw.WriteRow(cells)
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error { return w.raw.Flush() }

// Close flushes and marks the writer closed.
func (w *Writer) Close() error { return w.raw.Close() }

// Err returns the first error recorded by this writer, if any.
func (w *Writer) Err() error { return w.raw.Err() }

// RawReader reads a header and then rows directly into cells, with no
// generated record.Mapper type involved.
type RawReader struct {
	r      *bufio.Reader
	header []atom.Scheme
	types  []atom.Type
	rowBuf []byte
}

// NewRawReader creates a RawReader over r. The header is read lazily, on
// the first call to Header or ReadRow.
func NewRawReader(r io.Reader) *RawReader {
	return &RawReader{r: bufio.NewReaderSize(r, defaultBufSize)}
}

// Header returns the stream's column schema, reading it from the
// underlying reader on first use.
func (rr *RawReader) Header() ([]atom.Scheme, error) {
	if rr.header != nil {
		return rr.header, nil
	}
	header, err := readHeader(rr.r)
	if err != nil {
		return nil, err
	}
	rr.header = header
	rr.types = make([]atom.Type, len(header))
	for i, h := range header {
		rr.types[i] = h.Type
	}
	return rr.header, nil
}

// ReadRow reads one row shaped like Header(). It returns io.EOF if the
// stream ends cleanly at a row boundary.
func (rr *RawReader) ReadRow() ([]record.Cell, error) {
	if _, err := rr.Header(); err != nil {
		return nil, err
	}
	if _, err := rr.r.Peek(1); err == io.EOF {
		return nil, io.EOF
	}
	rowBuf, err := readLenPrefixed(rr.r, rr.rowBuf)
	if err != nil {
		return nil, err
	}
	rr.rowBuf = rowBuf
	cells, n, err := rowcodec.DecodeRun(rr.types, rowBuf)
	if err != nil {
		return nil, hdverr.NewDecodeError("decode row", err)
	}
	if n != len(rowBuf) {
		return nil, hdverr.NewDecodeError("row has trailing bytes", hdverr.ErrInvalidInput)
	}
	return cells, nil
}

// Reader reads a stream into instances of a record.Mapper type, shifting
// the file's header onto that type's own flattened scheme the first time
// a row is read.
type Reader struct {
	raw     *RawReader
	shifter *shift.Shifter
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{raw: NewRawReader(r)}
}

// Read decodes the next row into rec, shifting the file header onto
// rec.Scheme() the first time it is needed. Returns io.EOF at a clean
// stream boundary.
func (rd *Reader) Read(rec record.Unmarshaler) error {
	if rd.shifter == nil {
		header, err := rd.raw.Header()
		if err != nil {
			return err
		}
		required, err := rec.Scheme().AtomSchemes()
		if err != nil {
			return err
		}
		sh, err := shift.New(header, required)
		if err != nil {
			return err
		}
		rd.shifter = sh
	}
	row, err := rd.raw.ReadRow()
	if err != nil {
		return err
	}
	shifted := rd.shifter.Shift(row)
	cur := record.NewCursor(shifted)
	if err := rec.UnmarshalRecord(cur); err != nil {
		return hdverr.AsInvalidInput(err)
	}
	return nil
}

// Rows adapts a RawReader into a pull-based iterator, turning "read until
// io.EOF at a row boundary" into a plain for-loop, grounded on the
// MessageIterator this stream format's ancestor codec exposes.
type Rows struct {
	raw *RawReader
	cur []record.Cell
	err error
}

// NewRows wraps r for row-at-a-time iteration.
func NewRows(r *RawReader) *Rows {
	return &Rows{raw: r}
}

// Next advances to the next row, returning false at end of stream or on
// error; check Err afterward to distinguish the two.
func (it *Rows) Next() bool {
	if it.err != nil {
		return false
	}
	row, err := it.raw.ReadRow()
	if err != nil {
		if err != io.EOF {
			it.err = err
		}
		return false
	}
	it.cur = row
	return true
}

// Row returns the row produced by the most recent successful Next call.
func (it *Rows) Row() []record.Cell { return it.cur }

// Err returns the error that stopped iteration, or nil at clean EOF.
func (it *Rows) Err() error { return it.err }

// --- wire framing helpers ---

func writeHeader(w *bufio.Writer, header []atom.Scheme, scratch []byte) error {
	return writeLenPrefixed(w, encodeHeader(header), scratch)
}

func readHeader(r *bufio.Reader) ([]atom.Scheme, error) {
	encoded, err := readLenPrefixed(r, nil)
	if err != nil {
		return nil, err
	}
	return decodeHeader(encoded)
}

// encodeHeader serializes a column schema as: varint column count, then
// per column, varint name length, name bytes, one type-tag byte.
func encodeHeader(header []atom.Scheme) []byte {
	buf := wire.AppendUvarint(nil, uint64(len(header)))
	for _, s := range header {
		buf = wire.AppendUvarint(buf, uint64(len(s.Name)))
		buf = append(buf, s.Name...)
		buf = append(buf, byte(s.Type))
	}
	return buf
}

func decodeHeader(data []byte) ([]atom.Scheme, error) {
	count, used, err := wire.DecodeUvarint(data)
	if err != nil {
		return nil, hdverr.NewDecodeError("header column count", err)
	}
	pos := used
	out := make([]atom.Scheme, 0, count)
	for i := uint64(0); i < count; i++ {
		nameLen, n, err := wire.DecodeUvarint(data[pos:])
		if err != nil {
			return nil, hdverr.NewDecodeError("header column name length", err)
		}
		pos += n
		if uint64(len(data)-pos) < nameLen+1 {
			return nil, hdverr.ErrIoTruncated
		}
		name := string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)
		typ := atom.Type(data[pos])
		pos++
		if !typ.IsValid() {
			return nil, hdverr.NewDecodeError("header column type", hdverr.ErrInvalidInput)
		}
		out = append(out, atom.Scheme{Name: name, Type: typ})
	}
	return out, nil
}

func writeLenPrefixed(w *bufio.Writer, payload []byte, scratch []byte) error {
	n := wire.PutUvarint(scratch, uint64(len(payload)))
	if _, err := w.Write(scratch[:n]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readLenPrefixed reads one varint length-prefixed block, reusing
// reuse's backing array when it is big enough.
func readLenPrefixed(r *bufio.Reader, reuse []byte) ([]byte, error) {
	n, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	var buf []byte
	if uint64(cap(reuse)) >= n {
		buf = reuse[:n]
	} else {
		buf = make([]byte, n)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, hdverr.ErrIoUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// readUvarint decodes a varint directly from a bufio.Reader one byte at a
// time, since wire.DecodeUvarint wants a contiguous slice and a stream
// doesn't offer one up front.
func readUvarint(r *bufio.Reader) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < wire.MaxVarintLen64; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i == 0 {
				return 0, io.EOF
			}
			if err == io.EOF {
				return 0, hdverr.ErrIoUnexpectedEOF
			}
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
	}
	return 0, hdverr.ErrInvalidVarint
}
