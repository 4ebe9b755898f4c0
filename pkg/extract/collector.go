package extract

import (
	"go/types"
	"reflect"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Config controls which declarations TypeCollector considers.
type Config struct {
	// IncludePrivate collects unexported struct types too. Off by
	// default: a generated schema should describe the package's public
	// record shapes.
	IncludePrivate bool
}

// DefaultConfig returns the default collection settings.
func DefaultConfig() *Config {
	return &Config{}
}

// FieldInfo is one field of a collected struct.
type FieldInfo struct {
	// Name is the Go field name.
	Name string
	// Column is the schema column name: the field's "hdv" struct tag
	// value if present and not "-", else Name unchanged.
	Column string
	// GoType is the field's type as seen by go/types.
	GoType types.Type
	// IsPointer is true when GoType is any pointer type; a pointer to a
	// named struct becomes an optional nested record.
	IsPointer bool
}

// TypeInfo is one collected struct declaration.
type TypeInfo struct {
	Name    string
	PkgPath string
	Fields  []FieldInfo
}

// TypeCollector walks loaded packages and gathers every struct
// declaration it names.
type TypeCollector struct {
	packages []*packages.Package
	config   *Config
	types    map[string]*TypeInfo
}

// NewTypeCollector prepares a collector over pkgs.
func NewTypeCollector(pkgs []*packages.Package, cfg *Config) *TypeCollector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &TypeCollector{packages: pkgs, config: cfg, types: make(map[string]*TypeInfo)}
}

// Collect gathers every qualifying struct type across the loader's
// packages.
func (c *TypeCollector) Collect() error {
	for _, pkg := range c.packages {
		c.collectPackage(pkg)
	}
	return nil
}

// Types returns the collected struct declarations, keyed by Go type
// name.
func (c *TypeCollector) Types() map[string]*TypeInfo {
	return c.types
}

func (c *TypeCollector) collectPackage(pkg *packages.Package) {
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		if !c.config.IncludePrivate && !isExported(name) {
			continue
		}
		obj := scope.Lookup(name)
		named, ok := obj.Type().(*types.Named)
		if !ok {
			continue
		}
		st, ok := named.Underlying().(*types.Struct)
		if !ok {
			continue
		}
		c.types[name] = &TypeInfo{
			Name:    name,
			PkgPath: pkg.PkgPath,
			Fields:  collectFields(st),
		}
	}
}

func collectFields(st *types.Struct) []FieldInfo {
	fields := make([]FieldInfo, 0, st.NumFields())
	for i := 0; i < st.NumFields(); i++ {
		v := st.Field(i)
		if !v.Exported() {
			continue
		}
		column := v.Name()
		if tag := reflect.StructTag(st.Tag(i)).Get("hdv"); tag != "" && tag != "-" {
			column = tag
		}
		fieldType := v.Type()
		_, isPointer := fieldType.(*types.Pointer)
		fields = append(fields, FieldInfo{
			Name:      v.Name(),
			Column:    column,
			GoType:    fieldType,
			IsPointer: isPointer,
		})
	}
	return fields
}

func isExported(name string) bool {
	return len(name) > 0 && strings.ToUpper(name[:1]) == name[:1]
}
