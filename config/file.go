// Package config loads .awslate.yaml / .awslate.toml project files and
// resolves the run settings.
//
// Settings are built in layers: built-in defaults, then the project file
// in the root directory, then AWSLATE_* environment variables, then
// command-line flags. The result is an immutable value handed to the
// dispatcher and the AWS client.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/awslate/apperr"
)

// Project file names, in lookup order.
const (
	YAMLFileName = ".awslate.yaml"
	TOMLFileName = ".awslate.toml"
)

// ---------------------------------------------------------------------------
// File schema
// ---------------------------------------------------------------------------

// File is the project file structure. Unset fields keep the value from the
// previous layer.
type File struct {
	// Profile is the AWS shared config profile.
	Profile string `yaml:"profile,omitempty" toml:"profile,omitempty"`
	// Region is the AWS region of the Translate endpoint.
	Region string `yaml:"region,omitempty" toml:"region,omitempty"`
	// Endpoint overrides the service endpoint URL (e.g. a local emulator).
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`

	// Input is the source locale file, relative to the project root.
	Input string `yaml:"input,omitempty" toml:"input,omitempty"`
	// OutputDir receives one file per target language.
	OutputDir string `yaml:"output_dir,omitempty" toml:"output_dir,omitempty"`
	// OutputPattern is the output file name; {lang} is the language code.
	OutputPattern string `yaml:"output_pattern,omitempty" toml:"output_pattern,omitempty"`
	// Indent is the output indentation ("" writes compact JSON).
	Indent *string `yaml:"indent,omitempty" toml:"indent,omitempty"`
	// Report is an optional path for the YAML run report.
	Report string `yaml:"report,omitempty" toml:"report,omitempty"`

	// SourceLang is the source language code.
	SourceLang string `yaml:"source_lang,omitempty" toml:"source_lang,omitempty"`
	// Languages lists target languages. Empty means every language the
	// service supports.
	Languages []string `yaml:"languages,omitempty" toml:"languages,omitempty"`
	// ExcludeLanguages are removed from the target set.
	ExcludeLanguages []string `yaml:"exclude_languages,omitempty" toml:"exclude_languages,omitempty"`

	MaxConcurrent *int      `yaml:"max_concurrent,omitempty" toml:"max_concurrent,omitempty"`
	MaxRetries    *int      `yaml:"max_retries,omitempty" toml:"max_retries,omitempty"`
	RetryDelay    *Duration `yaml:"retry_delay,omitempty" toml:"retry_delay,omitempty"`
	MaxRetryDelay *Duration `yaml:"max_retry_delay,omitempty" toml:"max_retry_delay,omitempty"`
	Timeout       *Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("1s",
// "250ms") in project files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadFile loads the project file from rootDir. It returns nil and an
// empty path if neither .awslate.yaml nor .awslate.toml exists. Unknown
// keys are rejected.
func LoadFile(rootDir string) (*File, string, error) {
	for _, name := range []string{YAMLFileName, TOMLFileName} {
		path := filepath.Join(rootDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", apperr.IO(fmt.Sprintf("reading %s", path), err)
		}

		f, err := parseFile(name, data)
		if err != nil {
			return nil, "", apperr.Config(fmt.Sprintf("parsing %s", path), err)
		}
		return f, path, nil
	}
	return nil, "", nil
}

func parseFile(name string, data []byte) (*File, error) {
	var f File
	if name == TOMLFileName {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
		return &f, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}
