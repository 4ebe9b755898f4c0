// Command hdvgen is the schema-language compiler: it generates Go record
// types from ".schema" files, derives schema-language from existing Go
// structs, and validates schema files on their own.
//
// Usage:
//
//	hdvgen generate [options] <schema-file>...
//	hdvgen extract [options] <go-package-pattern>...
//	hdvgen validate [options] <schema-file>...
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmlog "charm.land/log/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Banyc/hdv/pkg/codegen"
	"github.com/Banyc/hdv/pkg/extract"
	"github.com/Banyc/hdv/pkg/schemalang"
)

var logger *charmlog.Logger

func main() {
	var verbose, quiet bool
	var manifestPath string

	root := &cobra.Command{
		Use:   "hdvgen",
		Short: "Schema-language compiler for the hdv record codec",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = charmlog.New(os.Stderr)
			switch {
			case quiet:
				logger.SetLevel(charmlog.ErrorLevel)
			case verbose:
				logger.SetLevel(charmlog.DebugLevel)
			default:
				logger.SetLevel(charmlog.InfoLevel)
			}
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "only log errors")
	root.PersistentFlags().StringVar(&manifestPath, "manifest", "hdvgen.toml", "project manifest path")

	root.AddCommand(
		newGenerateCmd(&manifestPath),
		newExtractCmd(),
		newValidateCmd(&manifestPath),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newGenerateCmd(manifestPath *string) *cobra.Command {
	var out, pkg string
	cmd := &cobra.Command{
		Use:   "generate [schema-file]...",
		Short: "Generate Go record types from schema-language files",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := loadManifest(*manifestPath)
			if err != nil {
				return fmt.Errorf("reading manifest: %w", err)
			}
			files, err := resolveSchemaFiles(args, manifest)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no schema files given and none listed in %s", *manifestPath)
			}

			outDir := firstNonEmpty(out, manifest.Out, ".")
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			for _, path := range files {
				if err := generateOne(path, outDir, pkg, manifest); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (default: manifest out, else current directory)")
	cmd.Flags().StringVar(&pkg, "package", "", "override the generated package name")
	return cmd
}

func generateOne(path, outDir, pkgOverride string, manifest *Manifest) error {
	file, err := schemalang.LoadFile(path)
	if err != nil {
		return err
	}

	pkg := pkgOverride
	if pkg == "" {
		if d, err := loadDirDefaults(filepath.Dir(path)); err == nil && d.Package != "" {
			pkg = d.Package
		}
	}
	pkg = firstNonEmpty(pkg, manifest.Package, "hdvschema")

	outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".go")
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer f.Close()

	opts := codegen.DefaultOptions()
	opts.Package = pkg
	if err := codegen.GenerateGo(f, file, opts); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("generating code: %w", err)
	}
	logger.Info("generated", "schema", path, "out", outPath, "package", pkg)
	return nil
}

func newExtractCmd() *cobra.Command {
	var out, dir string
	var private bool
	cmd := &cobra.Command{
		Use:   "extract <go-package-pattern>...",
		Short: "Derive a schema-language file from existing Go struct declarations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := extract.FromPackages(dir, args, &extract.Config{IncludePrivate: private})
			if err != nil {
				return fmt.Errorf("extracting schema: %w", err)
			}

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				if err := extract.Write(f, file); err != nil {
					return err
				}
				logger.Info("extracted", "packages", strings.Join(args, ","), "out", out)
				return nil
			}
			return extract.Write(w, file)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory to resolve package patterns from")
	cmd.Flags().BoolVar(&private, "private", false, "include unexported struct types")
	return cmd
}

func newValidateCmd(manifestPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-file]...",
		Short: "Parse and validate schema-language files without generating code",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := loadManifest(*manifestPath)
			if err != nil {
				return fmt.Errorf("reading manifest: %w", err)
			}
			files, err := resolveSchemaFiles(args, manifest)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no schema files given and none listed in %s", *manifestPath)
			}

			group, _ := errgroup.WithContext(context.Background())
			for _, path := range files {
				path := path
				group.Go(func() error {
					if _, err := schemalang.LoadFile(path); err != nil {
						logger.Error("invalid", "file", path, "err", err)
						return fmt.Errorf("%s: %w", path, err)
					}
					logger.Info("valid", "file", path)
					return nil
				})
			}
			return group.Wait()
		},
	}
	return cmd
}

// resolveSchemaFiles returns args verbatim if non-empty, else expands
// the manifest's schema globs.
func resolveSchemaFiles(args []string, manifest *Manifest) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var files []string
	for _, pattern := range manifest.Schemas {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid schema glob %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
