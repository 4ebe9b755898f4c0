package extract

import (
	"io"

	"github.com/Banyc/hdv/pkg/schemalang"
)

// Write renders file as schema-language source and writes it to w.
func Write(w io.Writer, file *schemalang.File) error {
	_, err := io.WriteString(w, schemalang.Format(file))
	return err
}

// FromPackages is the full extraction pipeline: load the Go packages
// matching patterns under dir, collect their struct declarations per
// cfg, and build the resulting schemalang.File. The returned file has
// already passed schemalang.Validate.
func FromPackages(dir string, patterns []string, cfg *Config) (*schemalang.File, error) {
	loader := NewPackageLoader(dir)
	pkgs, err := loader.Load(patterns...)
	if err != nil {
		return nil, err
	}
	collector := NewTypeCollector(pkgs, cfg)
	if err := collector.Collect(); err != nil {
		return nil, err
	}
	file, err := NewBuilder(collector.Types()).Build()
	if err != nil {
		return nil, err
	}
	if err := schemalang.Validate(file); err != nil {
		return nil, err
	}
	return file, nil
}
