// Package textstream implements a human-readable, line-oriented stream
// format: one header line followed by one line per row, comma-separated,
// every field (including the last) terminated by a comma before the
// newline. A null cell is an empty field.
//
// Unlike pkg/binstream, a row here is not Strategy R or Strategy S
// encoded — there is no run-length or sentinel framing, because an empty
// text field already unambiguously marks a null. Bytes columns cannot be
// represented at all; String columns cannot contain a comma, a quote, a
// newline, or leading whitespace, since those would be ambiguous with the
// field separator or the null marker on read-back.
package textstream

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
	"github.com/Banyc/hdv/pkg/shift"
)

const defaultBufSize = 4096

// Options controls how a Writer formats its header line.
type Options struct {
	// CSVHeader, when true, writes the header as a bare comma-separated
	// list of column names instead of "name:Type" pairs. A file written
	// this way is meant for spreadsheets and other CSV consumers; it
	// cannot be read back by Reader/RawReader, which always expect the
	// typed header form.
	CSVHeader bool
}

// DefaultOptions writes the typed, round-trippable header form.
var DefaultOptions = Options{}

var rawWriterPool = sync.Pool{
	New: func() any { return &RawWriter{} },
}

// RawWriter writes rows directly from caller-supplied cells against a
// fixed header, with no generated record.Mapper type involved.
type RawWriter struct {
	w             *bufio.Writer
	header        []atom.Scheme
	options       Options
	headerWritten bool
	closed        bool
	err           error
	line          strings.Builder
}

// NewRawWriter creates a RawWriter that writes header once, on the first
// call to WriteRow, followed by rows matching it.
func NewRawWriter(w io.Writer, header []atom.Scheme, options Options) *RawWriter {
	return &RawWriter{
		w:       bufio.NewWriterSize(w, defaultBufSize),
		header:  header,
		options: options,
	}
}

// GetRawWriter fetches a pooled RawWriter reset to write to w with the
// given header and options. Call PutRawWriter when done.
func GetRawWriter(w io.Writer, header []atom.Scheme, options Options) *RawWriter {
	rw := rawWriterPool.Get().(*RawWriter)
	rw.reset(w, header, options)
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

func (rw *RawWriter) reset(w io.Writer, header []atom.Scheme, options Options) {
	if rw.w == nil {
		rw.w = bufio.NewWriterSize(w, defaultBufSize)
	} else {
		rw.w.Reset(w)
	}
	rw.header = header
	rw.options = options
	rw.headerWritten = false
	rw.closed = false
	rw.err = nil
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

// WriteRow writes one row as a comma-separated text line, writing the
// header line first if this is the first call. cells must have the same
// length and column types as header.
func (rw *RawWriter) WriteRow(cells []record.Cell) error {
	if !rw.checkWrite() {
		return rw.err
	}
	if !rw.headerWritten {
		if err := rw.writeHeaderLine(); err != nil {
			rw.setError(hdverr.NewEncodeError("write header", err))
			return rw.err
		}
		rw.headerWritten = true
	}

	rw.line.Reset()
	for i, cell := range cells {
		if !cell.Present {
			rw.line.WriteByte(',')
			continue
		}
		text, err := formatCell(cell)
		if err != nil {
			col := ""
			if i < len(rw.header) {
				col = rw.header[i].Name
			}
			rw.setError(hdverr.NewColumnEncodeError(col, "format value", err))
			return rw.err
		}
		rw.line.WriteString(text)
		rw.line.WriteByte(',')
	}
	rw.line.WriteByte('\n')
	if _, err := rw.w.WriteString(rw.line.String()); err != nil {
		rw.setError(hdverr.NewEncodeError("write row", err))
		return rw.err
	}
	return nil
}

func (rw *RawWriter) writeHeaderLine() error {
	var b strings.Builder
	for _, s := range rw.header {
		if rw.options.CSVHeader {
			b.WriteString(s.Name)
		} else {
			b.WriteString(s.Name)
			b.WriteByte(':')
			b.WriteString(s.Type.String())
		}
		b.WriteByte(',')
	}
	b.WriteByte('\n')
	_, err := rw.w.WriteString(b.String())
	return err
}

// formatCell renders a present cell's value as text. Bytes can never be
// represented; String must not contain a comma, a quote, a newline, or
// leading whitespace, since any of those would be ambiguous on read-back.
func formatCell(cell record.Cell) (string, error) {
	switch cell.Value.Type() {
	case atom.TypeString:
		s, _ := cell.Value.AsString()
		if strings.ContainsAny(s, ",\"\n") || strings.TrimLeft(s, " \t") != s {
			return "", fmt.Errorf("%w: string %q contains a comma, quote, newline, or leading whitespace", hdverr.ErrWriteForbidden, s)
		}
		return s, nil
	case atom.TypeBytes:
		return "", fmt.Errorf("%w: Bytes has no text representation", hdverr.ErrWriteForbidden)
	case atom.TypeU64:
		u, _ := cell.Value.AsU64()
		return strconv.FormatUint(u, 10), nil
	case atom.TypeI64:
		i, _ := cell.Value.AsI64()
		return strconv.FormatInt(i, 10), nil
	case atom.TypeF32:
		f, _ := cell.Value.AsF32()
		return strconv.FormatFloat(float64(f), 'g', -1, 32), nil
	case atom.TypeF64:
		f, _ := cell.Value.AsF64()
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case atom.TypeBool:
		b, _ := cell.Value.AsBool()
		return strconv.FormatBool(b), nil
	default:
		return "", fmt.Errorf("%w: unknown atom type %v", hdverr.ErrInvalidInput, cell.Value.Type())
	}
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

// NewWriter creates a Writer over w with the given header options. The
// header is not written until the first call to Write.
func NewWriter(w io.Writer, options Options) *Writer {
	return &Writer{raw: &RawWriter{w: bufio.NewWriterSize(w, defaultBufSize), options: options}}
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

// RawReader reads a header line and then row lines directly into cells,
// with no generated record.Mapper type involved.
type RawReader struct {
	r      *bufio.Reader
	header []atom.Scheme
}

// NewRawReader creates a RawReader over r. The header is read lazily, on
// the first call to Header or ReadRow.
func NewRawReader(r io.Reader) *RawReader {
	return &RawReader{r: bufio.NewReaderSize(r, defaultBufSize)}
}

// Header returns the stream's column schema, reading it from the
// underlying reader on first use. It only understands the typed
// "name:Type" header form, never the CSV write-only form.
func (rr *RawReader) Header() ([]atom.Scheme, error) {
	if rr.header != nil {
		return rr.header, nil
	}
	line, err := readLine(rr.r)
	if err != nil {
		return nil, err
	}
	header, err := decodeHeaderLine(line)
	if err != nil {
		return nil, err
	}
	rr.header = header
	return rr.header, nil
}

// ReadRow reads one row shaped like Header(). It returns io.EOF if the
// stream ends cleanly at a row boundary.
func (rr *RawReader) ReadRow() ([]record.Cell, error) {
	header, err := rr.Header()
	if err != nil {
		return nil, err
	}
	if _, err := rr.r.Peek(1); err == io.EOF {
		return nil, io.EOF
	}
	line, err := readLine(rr.r)
	if err != nil {
		return nil, err
	}
	return decodeRowLine(line, header)
}

func decodeHeaderLine(line string) ([]atom.Scheme, error) {
	fields := splitFields(line)
	out := make([]atom.Scheme, 0, len(fields))
	for _, f := range fields {
		name, typStr, ok := strings.Cut(f, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header field %q is not name:Type", hdverr.ErrInvalidInput, f)
		}
		typ, ok := atom.ParseType(typStr)
		if !ok {
			return nil, fmt.Errorf("%w: header field %q names an unknown type", hdverr.ErrInvalidInput, f)
		}
		out = append(out, atom.Scheme{Name: name, Type: typ})
	}
	return out, nil
}

func decodeRowLine(line string, header []atom.Scheme) ([]record.Cell, error) {
	fields := splitFields(line)
	cells := make([]record.Cell, len(header))
	for i, s := range header {
		if i >= len(fields) {
			return nil, fmt.Errorf("%w: row has fewer fields than header", hdverr.ErrInvalidInput)
		}
		field := fields[i]
		if strings.TrimSpace(field) == "" {
			cells[i] = record.Null
			continue
		}
		v, err := parseCell(s.Type, field)
		if err != nil {
			return nil, hdverr.NewColumnDecodeError(s.Name, "parse value", err)
		}
		cells[i] = record.Some(v)
	}
	return cells, nil
}

func parseCell(typ atom.Type, field string) (atom.Value, error) {
	switch typ {
	case atom.TypeString:
		return atom.String(strings.TrimLeft(field, " \t")), nil
	case atom.TypeBytes:
		return atom.Value{}, fmt.Errorf("%w: Bytes has no text representation", hdverr.ErrInvalidInput)
	case atom.TypeU64:
		u, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return atom.Value{}, fmt.Errorf("%w: %w", hdverr.ErrInvalidInput, err)
		}
		return atom.U64(u), nil
	case atom.TypeI64:
		i, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return atom.Value{}, fmt.Errorf("%w: %w", hdverr.ErrInvalidInput, err)
		}
		return atom.I64(i), nil
	case atom.TypeF32:
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
		if err != nil {
			return atom.Value{}, fmt.Errorf("%w: %w", hdverr.ErrInvalidInput, err)
		}
		return atom.F32(float32(f)), nil
	case atom.TypeF64:
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return atom.Value{}, fmt.Errorf("%w: %w", hdverr.ErrInvalidInput, err)
		}
		return atom.F64(f), nil
	case atom.TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(field))
		if err != nil {
			return atom.Value{}, fmt.Errorf("%w: %w", hdverr.ErrInvalidInput, err)
		}
		return atom.Bool(b), nil
	default:
		return atom.Value{}, fmt.Errorf("%w: unknown atom type %v", hdverr.ErrInvalidInput, typ)
	}
}

// splitFields splits a line on "," and drops the single trailing empty
// field produced by the format's trailing comma before the newline.
func splitFields(line string) []string {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	parts := strings.Split(line, ",")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return "", io.EOF
			}
			return line, nil
		}
		return "", err
	}
	return line, nil
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
// io.EOF at a row boundary" into a plain for-loop.
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
