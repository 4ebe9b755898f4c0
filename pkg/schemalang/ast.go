// Package schemalang provides a small textual description language for
// record shapes, and parses it into an AST that pkg/codegen and pkg/shift
// (indirectly, via the schema package it resolves to) can consume.
//
// A schema file is a sequence of record declarations:
//
//	record Point {
//	    x: f64
//	    y: f64
//	}
//
//	record Line {
//	    start: Point
//	    end: Point?
//	}
//
// Field types are either one of the seven atom type names (string, bytes,
// u64, i64, f32, f64, bool) or the name of another record declared in the
// same file. A trailing "?" on a nested record field marks it optional:
// its Go representation is a pointer, and an absent value null-fills its
// columns rather than omitting them.
package schemalang

// Position locates a token or node in its source file.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// File is a parsed schema file: every record it declares, in declaration
// order.
type File struct {
	Records []*Record
}

// Record declares one named, flat-or-nested record shape.
type Record struct {
	Position Position
	Name     string
	Fields   []*Field
}

// Field names one member of a Record and the type it holds.
type Field struct {
	Position Position
	Name     string
	TypeName string
	Optional bool
}

// atomTypeNames are the schema-language spellings of the seven leaf atom
// types a field can resolve to directly.
var atomTypeNames = map[string]bool{
	"string": true,
	"bytes":  true,
	"u64":    true,
	"i64":    true,
	"f32":    true,
	"f64":    true,
	"bool":   true,
}

// IsAtomTypeName reports whether name spells one of the seven leaf atom
// types rather than a reference to another record.
func IsAtomTypeName(name string) bool {
	return atomTypeNames[name]
}
