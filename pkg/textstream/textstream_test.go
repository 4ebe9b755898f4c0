package textstream_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
	"github.com/Banyc/hdv/pkg/schema"
	"github.com/Banyc/hdv/pkg/textstream"
)

type sample struct {
	A int64
	B float64
	C string
}

func (sample) Scheme() schema.ObjectScheme {
	return schema.ObjectScheme{Fields: []schema.FieldScheme{
		{Name: "a", Value: schema.AtomValueType(atom.TypeI64)},
		{Name: "b", Value: schema.AtomValueType(atom.TypeF64)},
		{Name: "c", Value: schema.AtomValueType(atom.TypeString)},
	}}
}

func (s sample) MarshalRecord(cells *[]record.Cell) error {
	*cells = append(*cells,
		record.Some(atom.I64(s.A)),
		record.Some(atom.F64(s.B)),
		record.Some(atom.String(s.C)),
	)
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
	c, err := cur.Take()
	if err != nil {
		return err
	}
	s.A, _ = a.Value.AsI64()
	s.B, _ = b.Value.AsF64()
	s.C, _ = c.Value.AsString()
	return nil
}

func TestWriterReaderRoundTrip(t *testing.T) {
	recs := []sample{{A: 1, B: 2.5, C: "hello"}, {A: -3, B: 0, C: "world"}}

	var buf bytes.Buffer
	w := textstream.NewWriter(&buf, textstream.DefaultOptions)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rd := textstream.NewReader(bytes.NewReader(buf.Bytes()))
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

func TestRawWriterNullField(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeU64}, {Name: "b", Type: atom.TypeBool}}
	var buf bytes.Buffer
	rw := textstream.NewRawWriter(&buf, header, textstream.DefaultOptions)
	if err := rw.WriteRow([]record.Cell{record.Some(atom.U64(7)), record.Null}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rr := textstream.NewRawReader(bytes.NewReader(buf.Bytes()))
	row, err := rr.ReadRow()
	if err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	if !row[0].Present {
		t.Fatalf("expected column a to be present, got %+v", row[0])
	}
	if row[1].Present {
		t.Errorf("expected column b to be null, got %+v", row[1])
	}
	u, _ := row[0].Value.AsU64()
	if u != 7 {
		t.Errorf("column a = %d, want 7", u)
	}
}

func TestWriteRowRejectsBytes(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeBytes}}
	var buf bytes.Buffer
	rw := textstream.NewRawWriter(&buf, header, textstream.DefaultOptions)
	err := rw.WriteRow([]record.Cell{record.Some(atom.Bytes([]byte("x")))})
	if !errors.Is(err, hdverr.ErrWriteForbidden) {
		t.Errorf("error = %v, want ErrWriteForbidden", err)
	}
}

func TestWriteRowRejectsCommaInString(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeString}}
	var buf bytes.Buffer
	rw := textstream.NewRawWriter(&buf, header, textstream.DefaultOptions)
	err := rw.WriteRow([]record.Cell{record.Some(atom.String("a,b"))})
	if !errors.Is(err, hdverr.ErrWriteForbidden) {
		t.Errorf("error = %v, want ErrWriteForbidden", err)
	}
}

func TestCSVHeaderIsWriteOnly(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeU64}}
	var buf bytes.Buffer
	rw := textstream.NewRawWriter(&buf, header, textstream.Options{CSVHeader: true})
	if err := rw.WriteRow([]record.Cell{record.Some(atom.U64(1))}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rr := textstream.NewRawReader(bytes.NewReader(buf.Bytes()))
	if _, err := rr.Header(); err == nil {
		t.Fatal("expected error reading a CSV-only header back")
	}
}

func TestRowsIterator(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeU64}}
	var buf bytes.Buffer
	rw := textstream.NewRawWriter(&buf, header, textstream.DefaultOptions)
	for i := uint64(0); i < 3; i++ {
		if err := rw.WriteRow([]record.Cell{record.Some(atom.U64(i))}); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rr := textstream.NewRawReader(bytes.NewReader(buf.Bytes()))
	it := textstream.NewRows(rr)
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
