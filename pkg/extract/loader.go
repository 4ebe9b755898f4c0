// Package extract derives schema-language records from already-written Go
// struct declarations, the inverse of pkg/codegen: instead of generating
// Go from a schema, it recovers a schema from Go.
package extract

import (
	"fmt"

	"golang.org/x/tools/go/packages"
)

// PackageLoader loads Go packages with enough information (types and
// syntax) to inspect their struct declarations.
type PackageLoader struct {
	config *packages.Config
}

// NewPackageLoader creates a package loader. dir is the working directory
// patterns are resolved against; an empty dir uses the process's own.
func NewPackageLoader(dir string) *PackageLoader {
	return &PackageLoader{
		config: &packages.Config{
			Dir: dir,
			Mode: packages.NeedName |
				packages.NeedTypes |
				packages.NeedTypesInfo |
				packages.NeedSyntax,
		},
	}
}

// Load loads the packages matching patterns (e.g. "./..." or a single
// import path), failing on the first package-level error encountered.
func (l *PackageLoader) Load(patterns ...string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(l.config, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	var loadErr error
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		if loadErr != nil {
			return
		}
		for _, e := range pkg.Errors {
			loadErr = fmt.Errorf("%s: %w", pkg.PkgPath, e)
			return
		}
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return pkgs, nil
}
