package schemalang

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Banyc/hdv/pkg/atom"
	"github.com/Banyc/hdv/pkg/schema"
)

// atomTypesByName maps the schema-language's lowercase atom spellings to
// the wire-level atom.Type tag.
var atomTypesByName = map[string]atom.Type{
	"string": atom.TypeString,
	"bytes":  atom.TypeBytes,
	"u64":    atom.TypeU64,
	"i64":    atom.TypeI64,
	"f32":    atom.TypeF32,
	"f64":    atom.TypeF64,
	"bool":   atom.TypeBool,
}

// Load reads, parses, and validates a schema file from r, attributing
// positions to filename.
func Load(filename string, r io.Reader) (*File, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	file, err := Parse(filename, string(src))
	if err != nil {
		return nil, err
	}
	if err := Validate(file); err != nil {
		return nil, err
	}
	return file, nil
}

// LoadFile is Load over the contents of path.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(path, f)
}

// Resolve turns every record in file into a schema.ObjectScheme, keyed by
// record name. file must already have passed Validate: Resolve assumes
// every TypeName either names an atom type or a record present in file.
func Resolve(file *File) (map[string]schema.ObjectScheme, error) {
	byName := make(map[string]*Record, len(file.Records))
	for _, rec := range file.Records {
		byName[rec.Name] = rec
	}
	resolved := make(map[string]schema.ObjectScheme, len(file.Records))
	inProgress := make(map[string]bool, len(file.Records))
	for _, rec := range file.Records {
		if _, err := resolveRecord(rec, byName, resolved, inProgress); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func resolveRecord(rec *Record, byName map[string]*Record, resolved map[string]schema.ObjectScheme, inProgress map[string]bool) (schema.ObjectScheme, error) {
	if obj, ok := resolved[rec.Name]; ok {
		return obj, nil
	}
	if inProgress[rec.Name] {
		return schema.ObjectScheme{}, fmt.Errorf("record %q is involved in a cyclic nesting chain", rec.Name)
	}
	inProgress[rec.Name] = true
	defer delete(inProgress, rec.Name)

	fields := make([]schema.FieldScheme, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		if t, ok := atomTypesByName[f.TypeName]; ok {
			fields = append(fields, schema.FieldScheme{Name: f.Name, Value: schema.AtomValueType(t)})
			continue
		}
		nested, ok := byName[f.TypeName]
		if !ok {
			return schema.ObjectScheme{}, fmt.Errorf("field %q of record %q references unknown type %q", f.Name, rec.Name, f.TypeName)
		}
		nestedScheme, err := resolveRecord(nested, byName, resolved, inProgress)
		if err != nil {
			return schema.ObjectScheme{}, err
		}
		fields = append(fields, schema.FieldScheme{Name: f.Name, Value: schema.ObjectValueType(nestedScheme)})
	}
	obj := schema.ObjectScheme{Fields: fields}
	resolved[rec.Name] = obj
	return obj, nil
}

// Format renders file back to schema-language source text, in
// declaration order. Used by pkg/extract to print a schema derived from
// existing Go structs, and by tests that round-trip a File through
// Parse/Format/Parse.
func Format(file *File) string {
	var b strings.Builder
	for i, rec := range file.Records {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "record %s {\n", rec.Name)
		for _, f := range rec.Fields {
			if f.Optional {
				fmt.Fprintf(&b, "    %s: %s?\n", f.Name, f.TypeName)
			} else {
				fmt.Fprintf(&b, "    %s: %s\n", f.Name, f.TypeName)
			}
		}
		b.WriteString("}\n")
	}
	return b.String()
}
