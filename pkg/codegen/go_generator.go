package codegen

import (
	"bytes"
	"fmt"
	"io"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/Banyc/hdv/pkg/schemalang"
)

// GenerateGo renders file as a Go source file implementing record.Mapper
// for every record it declares, formatting and import-fixing the result
// with golang.org/x/tools/imports before writing it to w.
func GenerateGo(w io.Writer, file *schemalang.File, opts Options) error {
	records, err := goRecords(file)
	if err != nil {
		return err
	}
	ctx := &goContext{Package: opts.Package, Records: records, Comments: opts.GenerateComments}

	tmpl, err := template.New("go").Funcs(ctx.funcMap()).Parse(goTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	formatted, err := imports.Process("generated.go", buf.Bytes(), nil)
	if err != nil {
		return fmt.Errorf("format generated source: %w", err)
	}
	_, err = w.Write(formatted)
	return err
}

type goContext struct {
	Package  string
	Records  []goRecord
	Comments bool
}

func (c *goContext) funcMap() template.FuncMap {
	return template.FuncMap{
		"comment": GoComment,
		"indent":  Indent,
	}
}

// goField is one field of a generated struct, already resolved to a Go
// type and a marshal/unmarshal strategy.
type goField struct {
	SchemaName string
	GoName     string
	GoType     string
	IsRecord   bool
	Optional   bool
	AtomCtor   string // e.g. "atom.U64"; empty when IsRecord
	AtomAccess string // e.g. "AsU64"; empty when IsRecord
	AtomType   string // e.g. "atom.TypeU64"; empty when IsRecord
	RecordType string // Go type name of the nested record; empty unless IsRecord
}

type goRecord struct {
	SchemaName string
	GoName     string
	Fields     []goField
}

var atomGoTypes = map[string]string{
	"string": "string",
	"bytes":  "[]byte",
	"u64":    "uint64",
	"i64":    "int64",
	"f32":    "float32",
	"f64":    "float64",
	"bool":   "bool",
}

var atomCtors = map[string]string{
	"string": "atom.String",
	"bytes":  "atom.Bytes",
	"u64":    "atom.U64",
	"i64":    "atom.I64",
	"f32":    "atom.F32",
	"f64":    "atom.F64",
	"bool":   "atom.Bool",
}

var atomAccessors = map[string]string{
	"string": "AsString",
	"bytes":  "AsBytes",
	"u64":    "AsU64",
	"i64":    "AsI64",
	"f32":    "AsF32",
	"f64":    "AsF64",
	"bool":   "AsBool",
}

var atomSchemeNames = map[string]string{
	"string": "atom.TypeString",
	"bytes":  "atom.TypeBytes",
	"u64":    "atom.TypeU64",
	"i64":    "atom.TypeI64",
	"f32":    "atom.TypeF32",
	"f64":    "atom.TypeF64",
	"bool":   "atom.TypeBool",
}

func goRecords(file *schemalang.File) ([]goRecord, error) {
	out := make([]goRecord, 0, len(file.Records))
	for _, rec := range file.Records {
		gr := goRecord{SchemaName: rec.Name, GoName: ToPascalCase(rec.Name)}
		for _, f := range rec.Fields {
			gf := goField{SchemaName: f.Name, GoName: ToPascalCase(f.Name), Optional: f.Optional}
			if schemalang.IsAtomTypeName(f.TypeName) {
				gf.GoType = atomGoTypes[f.TypeName]
				gf.AtomCtor = atomCtors[f.TypeName]
				gf.AtomAccess = atomAccessors[f.TypeName]
				gf.AtomType = atomSchemeNames[f.TypeName]
			} else {
				gf.IsRecord = true
				gf.RecordType = ToPascalCase(f.TypeName)
				if f.Optional {
					gf.GoType = "*" + gf.RecordType
				} else {
					gf.GoType = gf.RecordType
				}
			}
			gr.Fields = append(gr.Fields, gf)
		}
		out = append(out, gr)
	}
	return out, nil
}

const goTemplate = `// Code generated by hdvgen. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/hdverr"
	"github.com/Banyc/hdv/pkg/record"
	"github.com/Banyc/hdv/pkg/schema"
)

{{range .Records}}
{{if $.Comments}}// {{.GoName}} was generated from the "{{.SchemaName}}" record declaration.
{{end}}type {{.GoName}} struct {
{{range .Fields}}	{{.GoName}} {{.GoType}}
{{end}}}

func ({{.GoName}}) Scheme() schema.ObjectScheme {
	return schema.ObjectScheme{
		Fields: []schema.FieldScheme{
{{range .Fields}}{{if .IsRecord}}			{Name: "{{.SchemaName}}", Value: schema.ObjectValueType({{.RecordType}}{}.Scheme())},
{{else}}			{Name: "{{.SchemaName}}", Value: schema.AtomValueType({{.AtomType}})},
{{end}}{{end}}		},
	}
}

func (r {{.GoName}}) MarshalRecord(cells *[]record.Cell) error {
{{range .Fields}}{{if .IsRecord}}{{if .Optional}}	if r.{{.GoName}} != nil {
		if err := r.{{.GoName}}.MarshalRecord(cells); err != nil {
			return err
		}
	} else {
		if err := record.FillNulls({{.RecordType}}{}.Scheme(), cells); err != nil {
			return err
		}
	}
{{else}}	if err := r.{{.GoName}}.MarshalRecord(cells); err != nil {
		return err
	}
{{end}}{{else}}	*cells = append(*cells, record.Some({{.AtomCtor}}(r.{{.GoName}})))
{{end}}{{end}}	return nil
}

func (r *{{.GoName}}) UnmarshalRecord(cur *record.Cursor) error {
{{range .Fields}}{{if .IsRecord}}{{if .Optional}}	{
		width, err := record.Width({{.RecordType}}{}.Scheme())
		if err != nil {
			return err
		}
		allNull, err := cur.PeekAllNull(width)
		if err != nil {
			return err
		}
		if allNull {
			if err := cur.Skip(width); err != nil {
				return err
			}
			r.{{.GoName}} = nil
		} else {
			var v {{.RecordType}}
			if err := v.UnmarshalRecord(cur); err != nil {
				return err
			}
			r.{{.GoName}} = &v
		}
	}
{{else}}	if err := r.{{.GoName}}.UnmarshalRecord(cur); err != nil {
		return err
	}
{{end}}{{else}}	{
		cell, err := cur.Take()
		if err != nil {
			return err
		}
		if cell.Present {
			v, ok := cell.Value.{{.AtomAccess}}()
			if !ok {
				return fmt.Errorf("%w: column %q: expected {{.SchemaName}} atom", hdverr.ErrRecordBuild, "{{.SchemaName}}")
			}
			r.{{.GoName}} = v
		} else {
			return fmt.Errorf("%w: column %q: required value is null", hdverr.ErrRecordBuild, "{{.SchemaName}}")
		}
	}
{{end}}{{end}}	return nil
}
{{end}}
`
