// Package rowcodec encodes and decodes one row — a sequence of optional
// atom cells — given the column types from a header. Two interchangeable
// strategies are provided; a stream format picks one and never mixes it
// with the other within a single file.
package rowcodec

import (
	"fmt"

	"github.com/Banyc/hdv/internal/wire"
	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
)

// EncodeRun appends row's cells to buf using Strategy R: a varint count of
// how many consecutive cells starting here are present, followed by those
// cells' encodings back to back, repeated until the row is exhausted. A
// run of zero present cells is itself a single varint(0), consuming one
// null cell, so k consecutive nulls encode as k varint(0)s in a row.
//
// This is a direct port of ValueRow::encode from the reference
// implementation this format was distilled from.
func EncodeRun(buf []byte, row []record.Cell) []byte {
	numContSome := 0
	for i, cell := range row {
		if numContSome == 0 {
			for _, c := range row[i:] {
				if !c.Present {
					break
				}
				numContSome++
			}
			buf = wire.AppendUvarint(buf, uint64(numContSome))
		}
		if numContSome == 0 {
			continue
		}
		buf = atom.Encode(buf, cell.Value)
		numContSome--
	}
	return buf
}

// DecodeRun reads one Strategy R row matching the given column types from
// data, returning the row's cells and the number of bytes consumed.
func DecodeRun(types []atom.Type, data []byte) ([]record.Cell, int, error) {
	cells := make([]record.Cell, 0, len(types))
	pos := 0
	numContSome := 0
	for _, ty := range types {
		if numContSome == 0 {
			n, used, err := wire.DecodeUvarint(data[pos:])
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %w", hdverr.ErrInvalidVarint, err)
			}
			pos += used
			numContSome = int(n)
		}
		if numContSome == 0 {
			cells = append(cells, record.Null)
			continue
		}
		v, used, err := atom.Decode(ty, data[pos:])
		if err != nil {
			return nil, 0, err
		}
		pos += used
		cells = append(cells, record.Some(v))
		numContSome--
	}
	return cells, pos, nil
}

// Sentinel bytes for Strategy S.
const (
	sentinelNull    byte = 0
	sentinelPresent byte = 1
)

// EncodeSentinel appends row's cells to buf using Strategy S: one sentinel
// byte per cell (0 = null, 1 = present), immediately followed by that
// cell's atom encoding when present.
func EncodeSentinel(buf []byte, row []record.Cell) []byte {
	for _, cell := range row {
		if !cell.Present {
			buf = append(buf, sentinelNull)
			continue
		}
		buf = append(buf, sentinelPresent)
		buf = atom.Encode(buf, cell.Value)
	}
	return buf
}

// DecodeSentinel reads one Strategy S row matching the given column types
// from data, returning the row's cells and the number of bytes consumed.
func DecodeSentinel(types []atom.Type, data []byte) ([]record.Cell, int, error) {
	cells := make([]record.Cell, 0, len(types))
	pos := 0
	for _, ty := range types {
		if pos >= len(data) {
			return nil, 0, hdverr.ErrIoTruncated
		}
		sentinel := data[pos]
		pos++
		switch sentinel {
		case sentinelNull:
			cells = append(cells, record.Null)
		case sentinelPresent:
			v, used, err := atom.Decode(ty, data[pos:])
			if err != nil {
				return nil, 0, err
			}
			pos += used
			cells = append(cells, record.Some(v))
		default:
			return nil, 0, fmt.Errorf("%w: sentinel byte %d", hdverr.ErrInvalidInput, sentinel)
		}
	}
	return cells, pos, nil
}
