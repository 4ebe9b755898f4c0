package shift

import (
	"errors"
	"testing"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
)

func TestShiftReorders(t *testing.T) {
	header := []atom.Scheme{
		{Name: "b", Type: atom.TypeI64},
		{Name: "a", Type: atom.TypeU64},
		{Name: "extra", Type: atom.TypeString},
	}
	required := []atom.Scheme{
		{Name: "a", Type: atom.TypeU64},
		{Name: "b", Type: atom.TypeI64},
	}
	s, err := New(header, required)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	row := []record.Cell{
		record.Some(atom.I64(-1)),
		record.Some(atom.U64(9)),
		record.Some(atom.String("ignored")),
	}
	got := s.Shift(row)
	if len(got) != 2 {
		t.Fatalf("got %d cells, want 2", len(got))
	}
	if u, _ := got[0].Value.AsU64(); u != 9 {
		t.Errorf("got[0] = %v, want U64(9)", got[0])
	}
	if i, _ := got[1].Value.AsI64(); i != -1 {
		t.Errorf("got[1] = %v, want I64(-1)", got[1])
	}
}

func TestNewMissingColumn(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeU64}}
	required := []atom.Scheme{{Name: "b", Type: atom.TypeU64}}
	_, err := New(header, required)
	if !errors.Is(err, hdverr.ErrSchemaMismatch) {
		t.Errorf("error = %v, want ErrSchemaMismatch", err)
	}
}

func TestNewTypeMismatchCountsAsMissing(t *testing.T) {
	header := []atom.Scheme{{Name: "a", Type: atom.TypeString}}
	required := []atom.Scheme{{Name: "a", Type: atom.TypeU64}}
	_, err := New(header, required)
	if !errors.Is(err, hdverr.ErrSchemaMismatch) {
		t.Errorf("error = %v, want ErrSchemaMismatch", err)
	}
}
