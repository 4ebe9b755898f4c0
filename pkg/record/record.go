// Package record defines the contract a Go type implements to become a
// row in a columnar stream: a static Scheme, a way to flatten itself into
// a sequence of cells, and a way to rebuild itself from that sequence.
package record

import (
	"fmt"
	"math"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/schema"
)

// Cell is one flattened column value: either an atom, or null.
type Cell struct {
	Value   atom.Value
	Present bool
}

// Some wraps v as a present cell.
func Some(v atom.Value) Cell { return Cell{Value: v, Present: true} }

// Null is the absent-value cell.
var Null = Cell{}

// SchemeProvider exposes a record type's static shape. It never depends
// on an instance's data — two values of the same Go type always return
// an Equal scheme.
type SchemeProvider interface {
	Scheme() schema.ObjectScheme
}

// Marshaler flattens a record instance into cells, appending exactly
// len(Scheme().AtomSchemes()) entries to *cells, in flattened column
// order.
type Marshaler interface {
	SchemeProvider
	MarshalRecord(cells *[]Cell) error
}

// Unmarshaler rebuilds a record instance from a Cursor, consuming exactly
// len(Scheme().AtomSchemes()) cells. It is implemented on a pointer
// receiver: the receiver's other fields are irrelevant and are
// overwritten.
type Unmarshaler interface {
	SchemeProvider
	UnmarshalRecord(cur *Cursor) error
}

// Mapper is the full contract: a record type that can both marshal and
// unmarshal itself.
type Mapper interface {
	Marshaler
	Unmarshaler
}

// Cursor consumes a flat cell slice left to right. Each nested record's
// Unmarshal call advances the shared cursor by exactly the width of its
// own flattened scheme, so sibling fields never see each other's cells.
type Cursor struct {
	cells []Cell
	pos   int
}

// NewCursor wraps cells for sequential consumption.
func NewCursor(cells []Cell) *Cursor {
	return &Cursor{cells: cells}
}

// Take returns the next cell and advances the cursor, or ErrRecordBuild if
// the cursor is exhausted.
func (c *Cursor) Take() (Cell, error) {
	if c.pos >= len(c.cells) {
		return Cell{}, fmt.Errorf("%w: cursor exhausted", hdverr.ErrRecordBuild)
	}
	cell := c.cells[c.pos]
	c.pos++
	return cell, nil
}

// Skip advances the cursor by n cells without inspecting them, for
// ignoring a nested record's columns wholesale.
func (c *Cursor) Skip(n int) error {
	if c.pos+n > len(c.cells) {
		return fmt.Errorf("%w: cursor exhausted", hdverr.ErrRecordBuild)
	}
	c.pos += n
	return nil
}

// Remaining reports how many cells are left unconsumed.
func (c *Cursor) Remaining() int {
	return len(c.cells) - c.pos
}

// PeekAllNull reports whether the next n cells are all absent, without
// consuming them. Used to tell an absent optional nested record apart
// from one whose fields all happen to be null-valued: spec's null-fill
// rule makes both encode identically, so a reader distinguishing "absent"
// from "present but empty" is a caller-level decision, not this
// package's — PeekAllNull just gives the caller the fact to decide with.
func (c *Cursor) PeekAllNull(n int) (bool, error) {
	if c.pos+n > len(c.cells) {
		return false, fmt.Errorf("%w: cursor exhausted", hdverr.ErrRecordBuild)
	}
	for i := 0; i < n; i++ {
		if c.cells[c.pos+i].Present {
			return false, nil
		}
	}
	return true, nil
}

// FillNulls appends one Null cell for every column o flattens to. Used
// when a nested, optional record field is absent: the parent still owns
// that many column slots, all null, per spec's null-fill rule.
func FillNulls(o schema.ObjectScheme, cells *[]Cell) error {
	atoms, err := o.AtomSchemes()
	if err != nil {
		return err
	}
	for range atoms {
		*cells = append(*cells, Null)
	}
	return nil
}

// Width returns the number of flattened columns o occupies.
func Width(o schema.ObjectScheme) (int, error) {
	atoms, err := o.AtomSchemes()
	if err != nil {
		return 0, err
	}
	return len(atoms), nil
}

// WidenU8 lifts a uint8 into the canonical U64 atom column.
func WidenU8(v uint8) atom.Value { return atom.U64(uint64(v)) }

// WidenU16 lifts a uint16 into the canonical U64 atom column.
func WidenU16(v uint16) atom.Value { return atom.U64(uint64(v)) }

// WidenU32 lifts a uint32 into the canonical U64 atom column.
func WidenU32(v uint32) atom.Value { return atom.U64(uint64(v)) }

// WidenI8 lifts an int8 into the canonical I64 atom column.
func WidenI8(v int8) atom.Value { return atom.I64(int64(v)) }

// WidenI16 lifts an int16 into the canonical I64 atom column.
func WidenI16(v int16) atom.Value { return atom.I64(int64(v)) }

// WidenI32 lifts an int32 into the canonical I64 atom column.
func WidenI32(v int32) atom.Value { return atom.I64(int64(v)) }

// NarrowU8 converts a decoded U64 back to uint8, failing with
// ErrRecordBuild if the value overflows.
func NarrowU8(v uint64) (uint8, error) {
	if v > math.MaxUint8 {
		return 0, fmt.Errorf("%w: %d overflows uint8", hdverr.ErrRecordBuild, v)
	}
	return uint8(v), nil
}

// NarrowU16 converts a decoded U64 back to uint16, failing with
// ErrRecordBuild if the value overflows.
func NarrowU16(v uint64) (uint16, error) {
	if v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d overflows uint16", hdverr.ErrRecordBuild, v)
	}
	return uint16(v), nil
}

// NarrowU32 converts a decoded U64 back to uint32, failing with
// ErrRecordBuild if the value overflows.
func NarrowU32(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d overflows uint32", hdverr.ErrRecordBuild, v)
	}
	return uint32(v), nil
}

// NarrowI8 converts a decoded I64 back to int8, failing with
// ErrRecordBuild if the value overflows.
func NarrowI8(v int64) (int8, error) {
	if v < math.MinInt8 || v > math.MaxInt8 {
		return 0, fmt.Errorf("%w: %d overflows int8", hdverr.ErrRecordBuild, v)
	}
	return int8(v), nil
}

// NarrowI16 converts a decoded I64 back to int16, failing with
// ErrRecordBuild if the value overflows.
func NarrowI16(v int64) (int16, error) {
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %d overflows int16", hdverr.ErrRecordBuild, v)
	}
	return int16(v), nil
}

// NarrowI32 converts a decoded I64 back to int32, failing with
// ErrRecordBuild if the value overflows.
func NarrowI32(v int64) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d overflows int32", hdverr.ErrRecordBuild, v)
	}
	return int32(v), nil
}
