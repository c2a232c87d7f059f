// File: pkg/amalgam/config.go
package amalgam

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults for a run over the hfsm2 development tree.
const (
	DefaultDevFolder  = "development/hfsm2"
	DefaultEntry      = "machine_dev.hpp"
	DefaultOutput     = "include/hfsm2/machine.hpp"
	DefaultIgnoreFile = ".amalgamignore"
)

// PragmaPolicy decides what happens to `#pragma once` lines in the output.
type PragmaPolicy string

const (
	// PragmaElideAll drops every guard and relies on deduplication alone.
	PragmaElideAll PragmaPolicy = "elide-all"
	// PragmaKeepFirst keeps the first guard of the run and drops the rest.
	PragmaKeepFirst PragmaPolicy = "keep-first"
)

// ParsePragmaPolicy converts a flag or config value into a PragmaPolicy.
func ParsePragmaPolicy(s string) (PragmaPolicy, error) {
	switch PragmaPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PragmaElideAll:
		return PragmaElideAll, nil
	case PragmaKeepFirst:
		return PragmaKeepFirst, nil
	default:
		return "", fmt.Errorf("unknown pragma policy %q (want %q or %q)", s, PragmaElideAll, PragmaKeepFirst)
	}
}

// Arguments holds the configuration options for one amalgamation run.
type Arguments struct {
	DevFolder         string       `yaml:"devFolder"`         // Folder holding the entry fragment.
	Entry             string       `yaml:"entry"`             // Entry fragment, relative to DevFolder.
	Output            string       `yaml:"output"`            // Destination path of the amalgamation.
	Tree              string       `yaml:"tree"`              // Optional destination path of the include tree report.
	PragmaOnce        PragmaPolicy `yaml:"pragmaOnce"`        // Guard retention policy.
	SeparateFragments bool         `yaml:"separateFragments"` // Emit one blank line before each inlined fragment.
	Annotate          bool         `yaml:"annotate"`          // Emit an `// inlined` comment before each inlined fragment.
	Passthrough       []string     `yaml:"passthrough"`       // Include patterns left verbatim instead of inlined.
	IgnoreFile        string       `yaml:"ignoreFile"`        // Passthrough pattern file, relative to DevFolder.
}

// DefaultArguments returns the arguments of a plain run over the hfsm2 tree.
func DefaultArguments() Arguments {
	return Arguments{
		DevFolder:  DefaultDevFolder,
		Entry:      DefaultEntry,
		Output:     DefaultOutput,
		PragmaOnce: PragmaElideAll,
		IgnoreFile: DefaultIgnoreFile,
	}
}

// LoadConfigFile reads a YAML config file and overlays its non-empty values on base.
func LoadConfigFile(path string, base Arguments) (Arguments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}

	var file Arguments
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse config file %s: %w", path, err)
	}

	merged := base
	if file.DevFolder != "" {
		merged.DevFolder = file.DevFolder
	}
	if file.Entry != "" {
		merged.Entry = file.Entry
	}
	if file.Output != "" {
		merged.Output = file.Output
	}
	if file.Tree != "" {
		merged.Tree = file.Tree
	}
	if file.PragmaOnce != "" {
		policy, err := ParsePragmaPolicy(string(file.PragmaOnce))
		if err != nil {
			return base, fmt.Errorf("config file %s: %w", path, err)
		}
		merged.PragmaOnce = policy
	}
	if file.IgnoreFile != "" {
		merged.IgnoreFile = file.IgnoreFile
	}
	merged.SeparateFragments = merged.SeparateFragments || file.SeparateFragments
	merged.Annotate = merged.Annotate || file.Annotate
	merged.Passthrough = append(merged.Passthrough, file.Passthrough...)

	return merged, nil
}

// Validate checks that the arguments describe a runnable amalgamation.
func (a Arguments) Validate() error {
	if a.DevFolder == "" {
		return fmt.Errorf("development folder must not be empty")
	}
	if a.Entry == "" {
		return fmt.Errorf("entry fragment must not be empty")
	}
	if a.Output == "" {
		return fmt.Errorf("output path must not be empty")
	}
	if _, err := ParsePragmaPolicy(string(a.PragmaOnce)); err != nil {
		return err
	}
	return nil
}

// EntryFragment returns the entry fragment. An entry with subdirectories
// moves the fragment folder accordingly.
func (a Arguments) EntryFragment() Fragment {
	folder, name, _ := Resolve(a.DevFolder, a.Entry)
	return Fragment{Folder: folder, Name: name}
}
