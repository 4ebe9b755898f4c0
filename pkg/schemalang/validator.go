package schemalang

import "fmt"

// Validate checks a parsed File for the constraints the schema language
// guarantees before codegen or schema-building ever sees it: unique
// record names, unique field names within a record, every field's
// TypeName resolving to either an atom type or another declared record,
// and no cycle among nested record references.
//
// A cycle is rejected even when it passes through an Optional field: spec.md's record
// model has no pointer-indirection concept for self-reference, so a
// cyclic record can never be assigned a finite flattened column list.
func Validate(file *File) error {
	byName := make(map[string]*Record, len(file.Records))
	for _, rec := range file.Records {
		if _, exists := byName[rec.Name]; exists {
			return fmt.Errorf("%s:%d:%d: record %q declared more than once", rec.Position.Filename, rec.Position.Line, rec.Position.Column, rec.Name)
		}
		byName[rec.Name] = rec
	}

	for _, rec := range file.Records {
		if err := validateFields(rec); err != nil {
			return err
		}
		for _, f := range rec.Fields {
			if IsAtomTypeName(f.TypeName) {
				continue
			}
			if _, ok := byName[f.TypeName]; !ok {
				return fmt.Errorf("%s:%d:%d: field %q of record %q references unknown type %q", f.Position.Filename, f.Position.Line, f.Position.Column, f.Name, rec.Name, f.TypeName)
			}
		}
	}

	for _, rec := range file.Records {
		if err := checkCycle(rec, byName, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func validateFields(rec *Record) error {
	seen := make(map[string]bool, len(rec.Fields))
	for _, f := range rec.Fields {
		if f.Name == "" {
			return fmt.Errorf("%s:%d:%d: record %q has a field with an empty name", f.Position.Filename, f.Position.Line, f.Position.Column, rec.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s:%d:%d: record %q declares field %q more than once", f.Position.Filename, f.Position.Line, f.Position.Column, rec.Name, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func checkCycle(rec *Record, byName map[string]*Record, onPath map[string]bool) error {
	if onPath[rec.Name] {
		return fmt.Errorf("%s:%d:%d: record %q is involved in a cyclic nesting chain", rec.Position.Filename, rec.Position.Line, rec.Position.Column, rec.Name)
	}
	onPath[rec.Name] = true
	defer delete(onPath, rec.Name)

	for _, f := range rec.Fields {
		if IsAtomTypeName(f.TypeName) {
			continue
		}
		next := byName[f.TypeName]
		if err := checkCycle(next, byName, onPath); err != nil {
			return err
		}
	}
	return nil
}
