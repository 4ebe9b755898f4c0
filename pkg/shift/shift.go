// Package shift projects and reorders a file's column header onto the
// columns a particular record.Mapper actually requires, so a reader can
// consume a file whose header lists columns in a different order than the
// mapper's own flattened scheme, or lists extra columns the mapper
// ignores.
package shift

import (
	"fmt"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
)

// Shifter maps a file header onto a required column list: Shift pulls the
// required columns out of a row shaped like the header, in the order the
// required list names them.
type Shifter struct {
	header  []atom.Scheme
	indices []int
}

// New builds a Shifter from a file header and the list of columns a
// record.Mapper requires (e.g. from ObjectScheme.AtomSchemes). It fails
// with ErrSchemaMismatch if any required column, matched by name and
// type, is absent from header.
//
// When header contains duplicate column names, the first matching column
// is used, mirroring how the reference format this was distilled from
// resolves it (Vec::iter().position(...) takes the first match).
func New(header []atom.Scheme, required []atom.Scheme) (*Shifter, error) {
	indices := make([]int, len(required))
	for i, req := range required {
		idx := -1
		for j, h := range header {
			if h.Equal(req) {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: required column %q (%v) not found in header", hdverr.ErrSchemaMismatch, req.Name, req.Type)
		}
		indices[i] = idx
	}
	return &Shifter{header: header, indices: indices}, nil
}

// Header returns the original, unshifted file header.
func (s *Shifter) Header() []atom.Scheme {
	return s.header
}

// Shift reorders/projects a row shaped like Header() into one shaped like
// the required column list New was built with.
func (s *Shifter) Shift(source []record.Cell) []record.Cell {
	out := make([]record.Cell, len(s.indices))
	for i, idx := range s.indices {
		out[i] = source[idx]
	}
	return out
}
