package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Manifest is the optional project-wide configuration read from
// hdvgen.toml: which schema files generate participates over, and where
// and under what package name to write the generated Go.
type Manifest struct {
	Schemas []string `toml:"schemas"`
	Out     string   `toml:"out"`
	Package string   `toml:"package"`
}

// loadManifest reads path, returning a zero Manifest (not an error) if
// the file doesn't exist: the manifest is optional, and flags alone are
// a valid way to drive hdvgen.
func loadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{}, nil
		}
		return nil, err
	}
	defer f.Close()
	var m Manifest
	if _, err := toml.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// dirDefaults is a per-directory override file (.hdvgen-defaults.yaml)
// letting a subtree of schema files pick its own output package without
// editing the project manifest.
type dirDefaults struct {
	Package string `yaml:"package"`
}

// loadDirDefaults reads dir/.hdvgen-defaults.yaml, returning a zero value
// (not an error) if it doesn't exist.
func loadDirDefaults(dir string) (dirDefaults, error) {
	data, err := os.ReadFile(dir + "/.hdvgen-defaults.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return dirDefaults{}, nil
		}
		return dirDefaults{}, err
	}
	var d dirDefaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return dirDefaults{}, err
	}
	return d, nil
}
