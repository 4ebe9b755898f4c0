// Package atom defines the closed set of scalar value types a column can
// hold, and their wire encoding. Every column in a flattened schema is an
// atom; there is no nesting below this layer.
package atom

import (
	"fmt"
	"unicode/utf8"

	"github.com/Banyc/hdv/internal/wire"
	"github.com/Banyc/hdv/pkg/hdverr"
)

// Type is the closed set of scalar column types. Integers always widen to
// their 64-bit canonical form before reaching this layer: there is no U8,
// U16, U32, I8, I16, or I32 tag on the wire.
type Type uint8

const (
	TypeString Type = iota
	TypeBytes
	TypeU64
	TypeI64
	TypeF32
	TypeF64
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeBytes:
		return "Bytes"
	case TypeU64:
		return "U64"
	case TypeI64:
		return "I64"
	case TypeF32:
		return "F32"
	case TypeF64:
		return "F64"
	case TypeBool:
		return "Bool"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// IsValid reports whether t is one of the seven known tags.
func (t Type) IsValid() bool {
	return t <= TypeBool
}

// ParseType is the inverse of Type.String, for text-based formats that
// spell out a column's type by name.
func ParseType(s string) (Type, bool) {
	switch s {
	case "String":
		return TypeString, true
	case "Bytes":
		return TypeBytes, true
	case "U64":
		return TypeU64, true
	case "I64":
		return TypeI64, true
	case "F32":
		return TypeF32, true
	case "F64":
		return TypeF64, true
	case "Bool":
		return TypeBool, true
	default:
		return 0, false
	}
}

// Scheme names one column and the atom type it holds.
type Scheme struct {
	Name string
	Type Type
}

// Equal reports whether two schemes name the same column of the same type.
func (s Scheme) Equal(other Scheme) bool {
	return s.Name == other.Name && s.Type == other.Type
}

// Value holds exactly one atom of a known type. The zero Value is not
// meaningful on its own; callers pair it with the Type from the owning
// Scheme. Value is deliberately a plain struct rather than an interface so
// that holding a slice of Values never allocates per element for the
// numeric cases.
type Value struct {
	typ Type
	s   string
	b   []byte
	u64 uint64
	i64 int64
	f32 float32
	f64 float64
	bl  bool
}

// Type returns the atom type this value was constructed with.
func (v Value) Type() Type { return v.typ }

func String(s string) Value { return Value{typ: TypeString, s: s} }
func Bytes(b []byte) Value  { return Value{typ: TypeBytes, b: b} }
func U64(u uint64) Value    { return Value{typ: TypeU64, u64: u} }
func I64(i int64) Value     { return Value{typ: TypeI64, i64: i} }
func F32(f float32) Value   { return Value{typ: TypeF32, f32: f} }
func F64(f float64) Value   { return Value{typ: TypeF64, f64: f} }
func Bool(b bool) Value     { return Value{typ: TypeBool, bl: b} }

// AsString returns the held string and whether v holds a String.
func (v Value) AsString() (string, bool) {
	if v.typ != TypeString {
		return "", false
	}
	return v.s, true
}

// AsBytes returns the held bytes and whether v holds Bytes.
func (v Value) AsBytes() ([]byte, bool) {
	if v.typ != TypeBytes {
		return nil, false
	}
	return v.b, true
}

// AsU64 returns the held uint64 and whether v holds a U64.
func (v Value) AsU64() (uint64, bool) {
	if v.typ != TypeU64 {
		return 0, false
	}
	return v.u64, true
}

// AsI64 returns the held int64 and whether v holds an I64.
func (v Value) AsI64() (int64, bool) {
	if v.typ != TypeI64 {
		return 0, false
	}
	return v.i64, true
}

// AsF32 returns the held float32 and whether v holds an F32.
func (v Value) AsF32() (float32, bool) {
	if v.typ != TypeF32 {
		return 0, false
	}
	return v.f32, true
}

// AsF64 returns the held float64 and whether v holds an F64.
func (v Value) AsF64() (float64, bool) {
	if v.typ != TypeF64 {
		return 0, false
	}
	return v.f64, true
}

// AsBool returns the held bool and whether v holds a Bool.
func (v Value) AsBool() (bool, bool) {
	if v.typ != TypeBool {
		return false, false
	}
	return v.bl, true
}

const (
	boolFalse byte = 0
	boolTrue  byte = 1
)

// Encode appends v's wire encoding to buf, per the type-specific rules:
// String/Bytes are a varint length followed by raw bytes, U64 is an
// unsigned varint, I64 is a zigzag varint, F32/F64 are little-endian fixed
// width carrying the value's exact bit pattern (see internal/wire), and
// Bool is one sentinel byte.
func Encode(buf []byte, v Value) []byte {
	switch v.typ {
	case TypeString:
		b := []byte(v.s)
		buf = wire.AppendUvarint(buf, uint64(len(b)))
		return append(buf, b...)
	case TypeBytes:
		buf = wire.AppendUvarint(buf, uint64(len(v.b)))
		return append(buf, v.b...)
	case TypeU64:
		return wire.AppendUvarint(buf, v.u64)
	case TypeI64:
		return wire.AppendSvarint(buf, v.i64)
	case TypeF32:
		return wire.AppendFloat32(buf, v.f32)
	case TypeF64:
		return wire.AppendFloat64(buf, v.f64)
	case TypeBool:
		if v.bl {
			return append(buf, boolTrue)
		}
		return append(buf, boolFalse)
	default:
		panic(fmt.Sprintf("atom: encode: unknown type %v", v.typ))
	}
}

// Decode reads one atom of type typ from data, returning the value and the
// number of bytes consumed.
func Decode(typ Type, data []byte) (Value, int, error) {
	switch typ {
	case TypeString:
		n, used, err := decodeLenPrefixed(data)
		if err != nil {
			return Value{}, 0, err
		}
		if !utf8.Valid(n) {
			return Value{}, 0, hdverr.ErrInvalidUTF8
		}
		return String(string(n)), used, nil
	case TypeBytes:
		b, used, err := decodeLenPrefixed(data)
		if err != nil {
			return Value{}, 0, err
		}
		return Bytes(append([]byte(nil), b...)), used, nil
	case TypeU64:
		u, n, err := wire.DecodeUvarint(data)
		if err != nil {
			return Value{}, 0, wrapVarintErr(err)
		}
		return U64(u), n, nil
	case TypeI64:
		i, n, err := wire.DecodeSvarint(data)
		if err != nil {
			return Value{}, 0, wrapVarintErr(err)
		}
		return I64(i), n, nil
	case TypeF32:
		if len(data) < wire.Float32Size {
			return Value{}, 0, hdverr.ErrIoTruncated
		}
		f, err := wire.DecodeFloat32(data[:wire.Float32Size])
		if err != nil {
			return Value{}, 0, hdverr.ErrIoTruncated
		}
		return F32(f), wire.Float32Size, nil
	case TypeF64:
		if len(data) < wire.Float64Size {
			return Value{}, 0, hdverr.ErrIoTruncated
		}
		f, err := wire.DecodeFloat64(data[:wire.Float64Size])
		if err != nil {
			return Value{}, 0, hdverr.ErrIoTruncated
		}
		return F64(f), wire.Float64Size, nil
	case TypeBool:
		if len(data) < 1 {
			return Value{}, 0, hdverr.ErrIoTruncated
		}
		switch data[0] {
		case boolFalse:
			return Bool(false), 1, nil
		case boolTrue:
			return Bool(true), 1, nil
		default:
			return Value{}, 0, hdverr.ErrInvalidBool
		}
	default:
		return Value{}, 0, fmt.Errorf("%w: unknown atom type %v", hdverr.ErrInvalidInput, typ)
	}
}

func decodeLenPrefixed(data []byte) ([]byte, int, error) {
	n, used, err := wire.DecodeUvarint(data)
	if err != nil {
		return nil, 0, wrapVarintErr(err)
	}
	rest := data[used:]
	if uint64(len(rest)) < n {
		return nil, 0, hdverr.ErrIoTruncated
	}
	return rest[:n], used + int(n), nil
}

func wrapVarintErr(err error) error {
	return fmt.Errorf("%w: %w", hdverr.ErrInvalidVarint, err)
}
