package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/langmeta"
	"github.com/minios-linux/awslate/localefile"
)

// Environment variables read by ApplyEnv.
const (
	EnvProfile  = "AWSLATE_PROFILE"
	EnvRegion   = "AWSLATE_REGION"
	EnvEndpoint = "AWSLATE_ENDPOINT"
)

// Settings is the fully resolved configuration of one run.
type Settings struct {
	Profile  string
	Region   string
	Endpoint string

	Input         string
	OutputDir     string
	OutputPattern string
	Indent        string
	Report        string

	SourceLang       string
	Languages        []string
	ExcludeLanguages []string

	MaxConcurrent int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Timeout       time.Duration

	// Source is the project file the settings were loaded from, if any.
	Source string
}

// Defaults returns the built-in settings. Profile and Region stay empty
// so that AWS_PROFILE, AWS_REGION and the shared config still apply when
// nothing here names them.
func Defaults() Settings {
	return Settings{
		Input:         filepath.Join("assets", "original", "en.json"),
		OutputDir:     filepath.Join("assets", "translated"),
		OutputPattern: localefile.DefaultPattern,
		Indent:        "  ",
		SourceLang:    "en",
		MaxConcurrent: 5,
		MaxRetries:    5,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// Apply overlays the fields set in f.
func (s *Settings) Apply(f *File) {
	if f == nil {
		return
	}
	setString(&s.Profile, f.Profile)
	setString(&s.Region, f.Region)
	setString(&s.Endpoint, f.Endpoint)
	setString(&s.Input, f.Input)
	setString(&s.OutputDir, f.OutputDir)
	setString(&s.OutputPattern, f.OutputPattern)
	setString(&s.Report, f.Report)
	setString(&s.SourceLang, f.SourceLang)
	if f.Indent != nil {
		s.Indent = *f.Indent
	}
	if len(f.Languages) > 0 {
		s.Languages = append([]string(nil), f.Languages...)
	}
	if len(f.ExcludeLanguages) > 0 {
		s.ExcludeLanguages = append([]string(nil), f.ExcludeLanguages...)
	}
	if f.MaxConcurrent != nil {
		s.MaxConcurrent = *f.MaxConcurrent
	}
	if f.MaxRetries != nil {
		s.MaxRetries = *f.MaxRetries
	}
	if f.RetryDelay != nil {
		s.RetryDelay = time.Duration(*f.RetryDelay)
	}
	if f.MaxRetryDelay != nil {
		s.MaxRetryDelay = time.Duration(*f.MaxRetryDelay)
	}
	if f.Timeout != nil {
		s.Timeout = time.Duration(*f.Timeout)
	}
}

// ApplyEnv overlays the AWSLATE_* variables returned by getenv.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	setString(&s.Profile, strings.TrimSpace(getenv(EnvProfile)))
	setString(&s.Region, strings.TrimSpace(getenv(EnvRegion)))
	setString(&s.Endpoint, strings.TrimSpace(getenv(EnvEndpoint)))
}

// Resolve makes relative file paths relative to rootDir.
func (s *Settings) Resolve(rootDir string) {
	s.Input = resolvePath(rootDir, s.Input)
	s.OutputDir = resolvePath(rootDir, s.OutputDir)
	if s.Report != "" {
		s.Report = resolvePath(rootDir, s.Report)
	}
}

// Validate checks the settings for values the run cannot work with.
func (s *Settings) Validate() error {
	switch {
	case s.Input == "":
		return apperr.Config("input file is not set", nil)
	case s.OutputDir == "":
		return apperr.Config("output directory is not set", nil)
	case !strings.Contains(s.OutputPattern, "{lang}"):
		return apperr.Config(fmt.Sprintf("output pattern %q must contain {lang}", s.OutputPattern), nil)
	case strings.TrimSpace(s.Indent) != "":
		return apperr.Config(fmt.Sprintf("indent %q must contain only spaces or tabs", s.Indent), nil)
	case s.SourceLang == "" || s.SourceLang == langmeta.Auto:
		return apperr.Config("source language must be an explicit language code", nil)
	case s.MaxConcurrent < 1:
		return apperr.Config(fmt.Sprintf("max concurrent must be at least 1, got %d", s.MaxConcurrent), nil)
	case s.MaxRetries < 0:
		return apperr.Config(fmt.Sprintf("max retries must not be negative, got %d", s.MaxRetries), nil)
	case s.RetryDelay <= 0:
		return apperr.Config("retry delay must be positive", nil)
	case s.MaxRetryDelay < s.RetryDelay:
		return apperr.Config(fmt.Sprintf("max retry delay %s is shorter than retry delay %s", s.MaxRetryDelay, s.RetryDelay), nil)
	case s.Timeout < 0:
		return apperr.Config("timeout must not be negative", nil)
	}
	return nil
}

// Load resolves settings for rootDir: defaults, then the project file,
// then the environment.
func Load(rootDir string, getenv func(string) string) (Settings, error) {
	s := Defaults()
	f, path, err := LoadFile(rootDir)
	if err != nil {
		return s, err
	}
	s.Apply(f)
	s.Source = path
	if getenv != nil {
		s.ApplyEnv(getenv)
	}
	return s, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func resolvePath(rootDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootDir, p)
}
