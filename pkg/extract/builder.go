package extract

import (
	"fmt"
	"go/types"
	"sort"

	"github.com/Banyc/hdv/pkg/schemalang"
)

// Builder turns collected Go struct declarations into a schemalang.File.
type Builder struct {
	types map[string]*TypeInfo
}

// NewBuilder prepares a Builder over a TypeCollector's results.
func NewBuilder(types map[string]*TypeInfo) *Builder {
	return &Builder{types: types}
}

// Build converts every collected type into a record declaration, in
// alphabetical order by Go type name for deterministic output. A field
// whose Go type cannot be expressed in the schema language (a type from
// another package, a slice other than []byte, a map, an interface, and
// so on) fails the whole build: extraction either fully describes a
// struct or reports exactly why it can't.
func (b *Builder) Build() (*schemalang.File, error) {
	names := make([]string, 0, len(b.types))
	for name := range b.types {
		names = append(names, name)
	}
	sort.Strings(names)

	file := &schemalang.File{}
	for _, name := range names {
		rec, err := b.buildRecord(b.types[name])
		if err != nil {
			return nil, err
		}
		file.Records = append(file.Records, rec)
	}
	return file, nil
}

func (b *Builder) buildRecord(info *TypeInfo) (*schemalang.Record, error) {
	rec := &schemalang.Record{Name: info.Name}
	for _, f := range info.Fields {
		typeName, optional, err := b.fieldType(f)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", info.Name, f.Name, err)
		}
		rec.Fields = append(rec.Fields, &schemalang.Field{
			Name:     f.Column,
			TypeName: typeName,
			Optional: optional,
		})
	}
	return rec, nil
}

func (b *Builder) fieldType(f FieldInfo) (typeName string, optional bool, err error) {
	t := f.GoType
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
		optional = true
	}

	if named, ok := t.(*types.Named); ok {
		if _, ok := named.Underlying().(*types.Struct); ok {
			nestedName := named.Obj().Name()
			if _, known := b.types[nestedName]; !known {
				return "", false, fmt.Errorf("references struct %q from outside the extracted package", nestedName)
			}
			return nestedName, optional, nil
		}
	}

	if optional {
		return "", false, fmt.Errorf("pointer to non-struct type %s has no optional-atom representation", t)
	}

	if atomName, ok := atomTypeName(t); ok {
		return atomName, false, nil
	}
	return "", false, fmt.Errorf("unsupported Go type %s", t)
}

func atomTypeName(t types.Type) (string, bool) {
	if slice, ok := t.(*types.Slice); ok {
		if basic, ok := slice.Elem().(*types.Basic); ok && basic.Kind() == types.Uint8 {
			return "bytes", true
		}
		return "", false
	}
	basic, ok := t.(*types.Basic)
	if !ok {
		return "", false
	}
	switch basic.Kind() {
	case types.String:
		return "string", true
	case types.Bool:
		return "bool", true
	case types.Int, types.Int8, types.Int16, types.Int32, types.Int64:
		return "i64", true
	case types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64, types.Uintptr:
		return "u64", true
	case types.Float32:
		return "f32", true
	case types.Float64:
		return "f64", true
	default:
		return "", false
	}
}
