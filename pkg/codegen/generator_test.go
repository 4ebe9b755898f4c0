package codegen_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Banyc/hdv/pkg/codegen"
	"github.com/Banyc/hdv/pkg/schemalang"
)

func TestToPascalCase(t *testing.T) {
	cases := map[string]string{
		"point":      "Point",
		"line_start": "LineStart",
		"userID":     "UserID",
		"my-field":   "MyField",
	}
	for in, want := range cases {
		if got := codegen.ToPascalCase(in); got != want {
			t.Errorf("ToPascalCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToCamelCase(t *testing.T) {
	if got := codegen.ToCamelCase("line_start"); got != "lineStart" {
		t.Errorf("ToCamelCase = %q, want lineStart", got)
	}
}

func TestGenerateGoFlatRecord(t *testing.T) {
	file, err := schemalang.Load("test.schema", strings.NewReader(`
record Point {
    x: f64
    y: f64
}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var buf bytes.Buffer
	opts := codegen.DefaultOptions()
	opts.Package = "geometry"
	if err := codegen.GenerateGo(&buf, file, opts); err != nil {
		t.Fatalf("GenerateGo: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"package geometry",
		"type Point struct",
		"X float64",
		"Y float64",
		"func (Point) Scheme() schema.ObjectScheme",
		"func (r Point) MarshalRecord(cells *[]record.Cell) error",
		"func (r *Point) UnmarshalRecord(cur *record.Cursor) error",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated source missing %q\n---\n%s", want, out)
		}
	}
}

func TestGenerateGoNestedOptional(t *testing.T) {
	file, err := schemalang.Load("test.schema", strings.NewReader(`
record Point {
    x: f64
    y: f64
}
record Line {
    start: Point
    end: Point?
}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var buf bytes.Buffer
	opts := codegen.DefaultOptions()
	opts.Package = "geometry"
	if err := codegen.GenerateGo(&buf, file, opts); err != nil {
		t.Fatalf("GenerateGo: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Start Point",
		"End   *Point",
		"record.FillNulls(Point{}.Scheme(), cells)",
		"record.Width(Point{}.Scheme())",
		"cur.PeekAllNull(width)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated source missing %q\n---\n%s", want, out)
		}
	}
}

func TestGenerateGoAllAtomTypes(t *testing.T) {
	file, err := schemalang.Load("test.schema", strings.NewReader(`
record Everything {
    a: string
    b: bytes
    c: u64
    d: i64
    e: f32
    f: f64
    g: bool
}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var buf bytes.Buffer
	opts := codegen.DefaultOptions()
	opts.Package = "kitchensink"
	if err := codegen.GenerateGo(&buf, file, opts); err != nil {
		t.Fatalf("GenerateGo: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"A string", "B []byte", "C uint64", "D int64", "E float32", "F float64", "G bool",
		"atom.String(r.A)", "atom.Bytes(r.B)", "atom.U64(r.C)", "atom.I64(r.D)",
		"atom.F32(r.E)", "atom.F64(r.F)", "atom.Bool(r.G)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated source missing %q\n---\n%s", want, out)
		}
	}
}
