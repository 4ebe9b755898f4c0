package extract

import (
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/Banyc/hdv/pkg/schemalang"
)

func newNamedStruct(pkg *types.Package, name string, fields []*types.Var, tags []string) *types.Named {
	obj := types.NewTypeName(token.NoPos, pkg, name, nil)
	st := types.NewStruct(fields, tags)
	return types.NewNamed(obj, st, nil)
}

func TestCollectFieldsHonorsHdvTag(t *testing.T) {
	pkg := types.NewPackage("example.com/p", "p")
	fields := []*types.Var{
		types.NewField(token.NoPos, pkg, "UserID", types.Typ[types.Uint64], false),
		types.NewField(token.NoPos, pkg, "unexported", types.Typ[types.String], false),
	}
	tags := []string{`hdv:"user_id"`, ""}
	named := newNamedStruct(pkg, "User", fields, tags)
	st := named.Underlying().(*types.Struct)

	got := collectFields(st)
	if len(got) != 1 {
		t.Fatalf("got %d fields, want 1 (unexported field dropped)", len(got))
	}
	if got[0].Column != "user_id" {
		t.Errorf("column = %q, want user_id", got[0].Column)
	}
}

func TestIsExported(t *testing.T) {
	if !isExported("Point") {
		t.Error("Point should be exported")
	}
	if isExported("point") {
		t.Error("point should not be exported")
	}
}

func TestAtomTypeName(t *testing.T) {
	cases := []struct {
		t    types.Type
		want string
	}{
		{types.Typ[types.String], "string"},
		{types.Typ[types.Bool], "bool"},
		{types.Typ[types.Uint64], "u64"},
		{types.Typ[types.Int32], "i64"},
		{types.Typ[types.Float32], "f32"},
		{types.Typ[types.Float64], "f64"},
		{types.NewSlice(types.Typ[types.Uint8]), "bytes"},
	}
	for _, c := range cases {
		got, ok := atomTypeName(c.t)
		if !ok || got != c.want {
			t.Errorf("atomTypeName(%s) = (%q, %v), want (%q, true)", c.t, got, ok, c.want)
		}
	}
	if _, ok := atomTypeName(types.NewSlice(types.Typ[types.String])); ok {
		t.Error("[]string should not resolve to an atom type")
	}
}

func TestBuilderFlatRecord(t *testing.T) {
	info := &TypeInfo{
		Name: "Point",
		Fields: []FieldInfo{
			{Name: "X", Column: "x", GoType: types.Typ[types.Float64]},
			{Name: "Y", Column: "y", GoType: types.Typ[types.Float64]},
		},
	}
	file, err := NewBuilder(map[string]*TypeInfo{"Point": info}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(file.Records) != 1 || file.Records[0].Name != "Point" {
		t.Fatalf("got %+v", file.Records)
	}
	if file.Records[0].Fields[0].TypeName != "f64" {
		t.Errorf("field type = %q, want f64", file.Records[0].Fields[0].TypeName)
	}
}

func TestBuilderNestedAndOptional(t *testing.T) {
	pkg := types.NewPackage("example.com/p", "p")
	pointNamed := newNamedStruct(pkg, "Point", []*types.Var{
		types.NewField(token.NoPos, pkg, "X", types.Typ[types.Float64], false),
		types.NewField(token.NoPos, pkg, "Y", types.Typ[types.Float64], false),
	}, nil)

	types_ := map[string]*TypeInfo{
		"Point": {
			Name: "Point",
			Fields: []FieldInfo{
				{Name: "X", Column: "X", GoType: types.Typ[types.Float64]},
				{Name: "Y", Column: "Y", GoType: types.Typ[types.Float64]},
			},
		},
		"Line": {
			Name: "Line",
			Fields: []FieldInfo{
				{Name: "Start", Column: "Start", GoType: pointNamed},
				{Name: "End", Column: "End", GoType: types.NewPointer(pointNamed), IsPointer: true},
			},
		},
	}

	file, err := NewBuilder(types_).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(file.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(file.Records))
	}
	// Builder sorts alphabetically: Line before Point.
	line := file.Records[0]
	if line.Name != "Line" {
		t.Fatalf("got %q first, want Line", line.Name)
	}
	if line.Fields[0].TypeName != "Point" || line.Fields[0].Optional {
		t.Errorf("Start field = %+v, want non-optional Point", line.Fields[0])
	}
	if line.Fields[1].TypeName != "Point" || !line.Fields[1].Optional {
		t.Errorf("End field = %+v, want optional Point", line.Fields[1])
	}

	if err := schemalang.Validate(file); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBuilderRejectsExternalStructReference(t *testing.T) {
	pkg := types.NewPackage("example.com/other", "other")
	externalNamed := newNamedStruct(pkg, "External", []*types.Var{
		types.NewField(token.NoPos, pkg, "V", types.Typ[types.Uint64], false),
	}, nil)

	info := &TypeInfo{
		Name: "Holder",
		Fields: []FieldInfo{
			{Name: "Ext", Column: "Ext", GoType: externalNamed},
		},
	}
	_, err := NewBuilder(map[string]*TypeInfo{"Holder": info}).Build()
	if err == nil {
		t.Fatal("expected error referencing a struct outside the extracted set, got nil")
	}
}

func TestBuilderRejectsUnsupportedType(t *testing.T) {
	info := &TypeInfo{
		Name: "Holder",
		Fields: []FieldInfo{
			{Name: "M", Column: "M", GoType: types.NewMap(types.Typ[types.String], types.Typ[types.Int])},
		},
	}
	_, err := NewBuilder(map[string]*TypeInfo{"Holder": info}).Build()
	if err == nil {
		t.Fatal("expected error for unsupported map type, got nil")
	}
}

func TestWriteRendersParsableSchema(t *testing.T) {
	info := &TypeInfo{
		Name: "Point",
		Fields: []FieldInfo{
			{Name: "X", Column: "x", GoType: types.Typ[types.Float64]},
		},
	}
	file, err := NewBuilder(map[string]*TypeInfo{"Point": info}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf strings.Builder
	if err := Write(&buf, file); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := schemalang.Parse("out.schema", buf.String()); err != nil {
		t.Fatalf("reparsing written schema: %v\n---\n%s", err, buf.String())
	}
}
