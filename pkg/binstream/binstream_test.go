package binstream_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/binstream"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
	"github.com/Banyc/hdv/pkg/schema"
)

// sample is a minimal record.Mapper: two columns, a:I64, b:F64.
type sample struct {
	A int64
	B float64
}

func (sample) Scheme() schema.ObjectScheme {
	return schema.ObjectScheme{Fields: []schema.FieldScheme{
		{Name: "a", Value: schema.AtomValueType(atom.TypeI64)},
		{Name: "b", Value: schema.AtomValueType(atom.TypeF64)},
	}}
}

func (s sample) MarshalRecord(cells *[]record.Cell) error {
	*cells = append(*cells, record.Some(atom.I64(s.A)), record.Some(atom.F64(s.B)))
	return nil
}

func (s *sample) UnmarshalRecord(cur *record.Cursor) error {
	a, err := cur.Take()
	if err != nil {
		return err
	}
	b, err := cur.Take()
	if err != nil {
		return err
	}
	av, _ := a.Value.AsI64()
	bv, _ := b.Value.AsF64()
	s.A, s.B = av, bv
	return nil
}

func TestWriterReaderRoundTrip(t *testing.T) {
	recs := []sample{{A: 1, B: 2.0}, {A: -5, B: 3.5}}

	var buf bytes.Buffer
	w := binstream.NewWriter(&buf)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd := binstream.NewReader(bytes.NewReader(buf.Bytes()))
	for i, want := range recs {
		var got sample
		if err := rd.Read(&got); err != nil {
			t.Fatalf("Read record %d: %v", i, err)
		}
		if got != want {
			t.Errorf("record %d = %+v, want %+v", i, got, want)
		}
	}
	var tail sample
	if err := rd.Read(&tail); err != io.EOF {
		t.Errorf("final Read error = %v, want io.EOF", err)
	}
}

// TestRawWriterMatchesTypedWriter asserts the typed Writer and a manually
// driven RawWriter produce byte-identical output for equivalent data, the
// same equivalence the reference implementation's own io test checks.
func TestRawWriterMatchesTypedWriter(t *testing.T) {
	recs := []sample{{A: 1, B: 2.0}, {A: -5, B: 3.5}}

	var typedBuf bytes.Buffer
	w := binstream.NewWriter(&typedBuf)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	header := []atom.Scheme{{Name: "a", Type: atom.TypeI64}, {Name: "b", Type: atom.TypeF64}}
	var rawBuf bytes.Buffer
	rw := binstream.NewRawWriter(&rawBuf, header)
	for _, r := range recs {
		cells := []record.Cell{record.Some(atom.I64(r.A)), record.Some(atom.F64(r.B))}
		if err := rw.WriteRow(cells); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Equal(typedBuf.Bytes(), rawBuf.Bytes()) {
		t.Errorf("typed writer output = %x, raw writer output = %x", typedBuf.Bytes(), rawBuf.Bytes())
	}
}

func TestRawReaderRoundTrip(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeI64}, {Name: "b", Type: atom.TypeF64}}
	rows := [][]record.Cell{
		{record.Some(atom.I64(1)), record.Some(atom.F64(2.0))},
		{record.Some(atom.I64(-5)), record.Null},
	}

	var buf bytes.Buffer
	rw := binstream.NewRawWriter(&buf, header)
	for _, row := range rows {
		if err := rw.WriteRow(row); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rr := binstream.NewRawReader(bytes.NewReader(buf.Bytes()))
	gotHeader, err := rr.Header()
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	if len(gotHeader) != len(header) {
		t.Fatalf("header length = %d, want %d", len(gotHeader), len(header))
	}

	for i, want := range rows {
		got, err := rr.ReadRow()
		if err != nil {
			t.Fatalf("ReadRow %d: %v", i, err)
		}
		if len(got) != len(want) {
			t.Fatalf("row %d length = %d, want %d", i, len(got), len(want))
		}
		for j := range want {
			if got[j].Present != want[j].Present {
				t.Errorf("row %d cell %d presence = %v, want %v", i, j, got[j].Present, want[j].Present)
			}
		}
	}
	if _, err := rr.ReadRow(); err != io.EOF {
		t.Errorf("final ReadRow error = %v, want io.EOF", err)
	}
}

func TestRowsIterator(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeU64}}
	var buf bytes.Buffer
	rw := binstream.NewRawWriter(&buf, header)
	for i := uint64(0); i < 3; i++ {
		if err := rw.WriteRow([]record.Cell{record.Some(atom.U64(i))}); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rr := binstream.NewRawReader(bytes.NewReader(buf.Bytes()))
	it := binstream.NewRows(rr)
	count := 0
	for it.Next() {
		u, _ := it.Row()[0].Value.AsU64()
		if u != uint64(count) {
			t.Errorf("row %d value = %d, want %d", count, u, count)
		}
		count++
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if count != 3 {
		t.Errorf("iterated %d rows, want 3", count)
	}
}

func TestReaderSchemaMismatch(t *testing.T) {
	header := []atom.Scheme{{Name: "x", Type: atom.TypeBool}}
	var buf bytes.Buffer
	rw := binstream.NewRawWriter(&buf, header)
	if err := rw.WriteRow([]record.Cell{record.Some(atom.Bool(true))}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd := binstream.NewReader(bytes.NewReader(buf.Bytes()))
	var got sample
	err := rd.Read(&got)
	if !errors.Is(err, hdverr.ErrSchemaMismatch) {
		t.Errorf("error = %v, want ErrSchemaMismatch", err)
	}
}
