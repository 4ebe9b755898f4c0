// Package dataframe provides a minimal in-memory column store that reads
// and writes against binstream/textstream the same way any external
// dataframe library would: given a stream it produces a header and a row
// iterator; given a header and rows it writes a stream.
package dataframe

import (
	"io"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/binstream"
	"github.com/Banyc/hdv/pkg/record"
	"github.com/Banyc/hdv/pkg/textstream"
)

// Frame is a row-major, in-memory table: one []record.Cell per row,
// all sharing the same Header.
type Frame struct {
	Header []atom.Scheme
	Rows   [][]record.Cell
}

// ReadBinary loads a Frame from a binary stream.
func ReadBinary(r io.Reader) (*Frame, error) {
	rr := binstream.NewRawReader(r)
	header, err := rr.Header()
	if err != nil {
		return nil, err
	}
	f := &Frame{Header: header}
	it := binstream.NewRows(rr)
	for it.Next() {
		f.Rows = append(f.Rows, it.Row())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteBinary writes f to a binary stream.
func (f *Frame) WriteBinary(w io.Writer) error {
	rw := binstream.NewRawWriter(w, f.Header)
	for _, row := range f.Rows {
		if err := rw.WriteRow(row); err != nil {
			return err
		}
	}
	return rw.Close()
}

// ReadText loads a Frame from a text stream.
func ReadText(r io.Reader) (*Frame, error) {
	rr := textstream.NewRawReader(r)
	header, err := rr.Header()
	if err != nil {
		return nil, err
	}
	f := &Frame{Header: header}
	it := textstream.NewRows(rr)
	for it.Next() {
		f.Rows = append(f.Rows, it.Row())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteText writes f to a text stream with the given options.
func (f *Frame) WriteText(w io.Writer, options textstream.Options) error {
	rw := textstream.NewRawWriter(w, f.Header, options)
	for _, row := range f.Rows {
		if err := rw.WriteRow(row); err != nil {
			return err
		}
	}
	return rw.Close()
}

// Column returns every row's cell at the named column, or nil if no such
// column exists in Header.
func (f *Frame) Column(name string) []record.Cell {
	idx := -1
	for i, s := range f.Header {
		if s.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]record.Cell, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out
}
