// Package schema models a record type's shape as a tree of named fields
// that bottom out in atoms, and flattens that tree into the ordered list
// of dotted-path columns a record.Mapper actually serializes to.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
)

// ValueType is either a leaf atom type or a nested object scheme. Exactly
// one of Atom/Object is meaningful, selected by IsObject.
type ValueType struct {
	atomType atom.Type
	object   *ObjectScheme
}

// AtomValueType builds a leaf ValueType holding an atom of type t.
func AtomValueType(t atom.Type) ValueType {
	return ValueType{atomType: t}
}

// ObjectValueType builds a ValueType that nests another record's scheme.
func ObjectValueType(o ObjectScheme) ValueType {
	return ValueType{object: &o}
}

// IsObject reports whether this ValueType nests another record.
func (v ValueType) IsObject() bool { return v.object != nil }

// Atom returns the leaf atom type and true, or the zero Type and false if
// this ValueType is an object.
func (v ValueType) Atom() (atom.Type, bool) {
	if v.object != nil {
		return 0, false
	}
	return v.atomType, true
}

// Object returns the nested scheme and true, or the zero value and false
// if this ValueType is a leaf atom.
func (v ValueType) Object() (ObjectScheme, bool) {
	if v.object == nil {
		return ObjectScheme{}, false
	}
	return *v.object, true
}

// FieldScheme names one field of a record and the shape of its value.
type FieldScheme struct {
	Name  string
	Value ValueType
}

// ObjectScheme is the full shape of a record type: an ordered list of
// named fields, each either an atom or another nested ObjectScheme.
type ObjectScheme struct {
	Fields []FieldScheme
}

// AtomSchemes flattens the field tree into the ordered list of columns a
// record.Mapper implementing this ObjectScheme serializes to and
// deserializes from. Nested object fields contribute one column per leaf
// atom, named "<field>.<nested-column>".
//
// AtomSchemes rejects any resulting column name containing "." outside
// the separators it inserts itself, or containing ",", once the name is
// NFC-normalized: both characters are load-bearing syntax in the text
// stream format and in dotted-path addressing, so a field or nested field
// name containing either can never round-trip.
func (o ObjectScheme) AtomSchemes() ([]atom.Scheme, error) {
	var out []atom.Scheme
	for _, f := range o.Fields {
		sub, err := f.atomSchemes()
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (f FieldScheme) atomSchemes() ([]atom.Scheme, error) {
	if err := validateLeafName(f.Name); err != nil {
		return nil, err
	}
	if t, ok := f.Value.Atom(); ok {
		return []atom.Scheme{{Name: f.Name, Type: t}}, nil
	}
	obj, _ := f.Value.Object()
	sub, err := obj.AtomSchemes()
	if err != nil {
		return nil, err
	}
	out := make([]atom.Scheme, len(sub))
	for i, s := range sub {
		out[i] = atom.Scheme{Name: f.Name + "." + s.Name, Type: s.Type}
	}
	return out, nil
}

// validateLeafName checks a single field's own name component (not yet
// dotted into a path) for characters that would break column addressing
// or the text stream format.
func validateLeafName(name string) error {
	normalized := norm.NFC.String(name)
	if strings.Contains(normalized, ".") || strings.Contains(normalized, ",") {
		return fmt.Errorf("%w: field name %q must not contain '.' or ','", hdverr.ErrInvalidInput, name)
	}
	if normalized == "" {
		return fmt.Errorf("%w: field name must not be empty", hdverr.ErrInvalidInput)
	}
	return nil
}

// AtomTypes appends the flattened sequence of atom types, in the same
// order AtomSchemes would produce, without allocating the intervening
// Scheme structs, for callers that only need types, not names.
func (o ObjectScheme) AtomTypes(types []atom.Type) ([]atom.Type, error) {
	for _, f := range o.Fields {
		var err error
		types, err = f.atomTypes(types)
		if err != nil {
			return nil, err
		}
	}
	return types, nil
}

func (f FieldScheme) atomTypes(types []atom.Type) ([]atom.Type, error) {
	if t, ok := f.Value.Atom(); ok {
		return append(types, t), nil
	}
	obj, _ := f.Value.Object()
	return obj.AtomTypes(types)
}

// Equal reports whether two schemes describe the same field tree.
func (o ObjectScheme) Equal(other ObjectScheme) bool {
	if len(o.Fields) != len(other.Fields) {
		return false
	}
	for i := range o.Fields {
		a, b := o.Fields[i], other.Fields[i]
		if a.Name != b.Name {
			return false
		}
		if a.Value.IsObject() != b.Value.IsObject() {
			return false
		}
		if a.Value.IsObject() {
			ao, _ := a.Value.Object()
			bo, _ := b.Value.Object()
			if !ao.Equal(bo) {
				return false
			}
			continue
		}
		at, _ := a.Value.Atom()
		bt, _ := b.Value.Atom()
		if at != bt {
			return false
		}
	}
	return true
}
