// Package codegen turns a resolved schemalang file into a Go source file
// implementing record.Mapper for every declared record.
package codegen

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options configures code generation.
type Options struct {
	// Package is the generated file's package name.
	Package string

	// GenerateComments includes a doc comment above each generated struct
	// naming the schema record declaration it was generated from.
	GenerateComments bool
}

// DefaultOptions returns the default code generation options.
func DefaultOptions() Options {
	return Options{GenerateComments: true}
}

var titleCaser = cases.Title(language.English)

// ToPascalCase converts a schema identifier to a Go exported name.
func ToPascalCase(s string) string {
	parts := splitName(s)
	for i, p := range parts {
		if len(p) > 1 && p == strings.ToUpper(p) {
			continue
		}
		parts[i] = titleCaser.String(strings.ToLower(p))
	}
	return strings.Join(parts, "")
}

// ToCamelCase converts a schema identifier to an unexported Go name.
func ToCamelCase(s string) string {
	pascal := ToPascalCase(s)
	if len(pascal) == 0 {
		return ""
	}
	return strings.ToLower(pascal[:1]) + pascal[1:]
}

// splitName splits a name into parts at underscores, hyphens, and
// lower-to-upper case transitions.
func splitName(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	var current strings.Builder
	for i, r := range s {
		if r == '_' || r == '-' {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}
		if i > 0 && isUpper(r) && !isUpper(rune(s[i-1])) {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// Indent indents each non-empty line of s by the given number of tabs.
func Indent(s string, tabs int) string {
	indent := strings.Repeat("\t", tabs)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// GoComment wraps text as a Go doc comment.
func GoComment(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "// " + line
	}
	return strings.Join(lines, "\n")
}
