// Package report collects the outcome of a translation run: which
// languages were written, and every leaf that kept its original text
// because translation failed.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/awslate/apperr"
)

// Language statuses.
const (
	StatusWritten   = "written"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusDryRun    = "dry-run"
)

// Language is the outcome for one target language.
type Language struct {
	Lang       string `yaml:"lang"`
	Name       string `yaml:"name,omitempty"`
	Status     string `yaml:"status"`
	Output     string `yaml:"output,omitempty"`
	Leaves     int    `yaml:"leaves"`
	Translated int    `yaml:"translated"`
	Skipped    int    `yaml:"skipped"`
	Failed     int    `yaml:"failed"`
	Error      string `yaml:"error,omitempty"`
}

// Failure is one leaf that was not translated.
type Failure struct {
	Lang     string `yaml:"lang"`
	Path     string `yaml:"path"`
	Source   string `yaml:"source"`
	Kind     string `yaml:"kind,omitempty"`
	Cause    string `yaml:"cause"`
	Attempts int    `yaml:"attempts"`
}

// Report is the summary of one run. It is safe for concurrent use.
type Report struct {
	RunID      string     `yaml:"run_id"`
	Input      string     `yaml:"input"`
	SourceLang string     `yaml:"source_lang"`
	Started    time.Time  `yaml:"started"`
	Finished   time.Time  `yaml:"finished"`
	Elapsed    string     `yaml:"elapsed"`
	Languages  []Language `yaml:"languages"`
	Failures   []Failure  `yaml:"failures,omitempty"`

	mu sync.Mutex `yaml:"-"`
}

// New starts a report for a run.
func New(input, sourceLang string) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		Input:      input,
		SourceLang: sourceLang,
		Started:    time.Now(),
	}
}

// Add records the outcome of one language along with its leaf failures.
func (r *Report) Add(lang Language, failures []Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lang.Failed = len(failures)
	r.Languages = append(r.Languages, lang)
	r.Failures = append(r.Failures, failures...)
}

// Finish stamps the end time and sorts entries by language. Failures
// keep leaf order within a language.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = time.Now()
	r.Elapsed = r.Finished.Sub(r.Started).Round(time.Millisecond).String()
	sort.SliceStable(r.Languages, func(i, j int) bool { return r.Languages[i].Lang < r.Languages[j].Lang })
	sort.SliceStable(r.Failures, func(i, j int) bool { return r.Failures[i].Lang < r.Failures[j].Lang })
}

// FailedLanguages returns the languages whose output was not written.
func (r *Report) FailedLanguages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.Languages {
		if l.Status == StatusFailed {
			out = append(out, l.Lang)
		}
	}
	return out
}

// Written returns the number of languages whose output was written.
func (r *Report) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.Languages {
		if l.Status == StatusWritten {
			n++
		}
	}
	return n
}

// HasLeafFailures reports whether any leaf kept its original text.
func (r *Report) HasLeafFailures() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures) > 0
}

// NewFailure builds a Failure from a leaf error.
func NewFailure(lang, path, source string, attempts int, err error) Failure {
	return Failure{
		Lang:     lang,
		Path:     path,
		Source:   source,
		Kind:     string(apperr.KindOf(err)),
		Cause:    cause(err),
		Attempts: attempts,
	}
}

// cause returns the service's own description of err, without the
// wrapping added by the dispatcher.
func cause(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err.Error()
	}
	return err.Error()
}

// WriteSummary prints a human-readable summary to w.
func (r *Report) WriteSummary(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	width := len("Language")
	for _, l := range r.Languages {
		width = max(width, len(l.Lang))
	}

	fmt.Fprintf(w, "  %-*s  %-9s  %6s  %6s  %6s\n", width, "Language", "Status", "Total", "Done", "Failed")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", width+37))
	for _, l := range r.Languages {
		fmt.Fprintf(w, "  %-*s  %-9s  %6d  %6d  %6d\n", width, l.Lang, l.Status, l.Leaves, l.Translated+l.Skipped, l.Failed)
		if l.Error != "" {
			fmt.Fprintf(w, "  %-*s  %s\n", width, "", l.Error)
		}
	}

	if len(r.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  Untranslated leaves (original text kept):\n")
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %-*s  %s: %s (%d attempt(s))\n", width, f.Lang, f.Path, f.Cause, f.Attempts)
	}
}

// WriteFile writes the report as YAML.
func (r *Report) WriteFile(path string) error {
	r.mu.Lock()
	data, err := yaml.Marshal(r)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperr.IO("creating report directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperr.IO(fmt.Sprintf("writing %s", path), err)
	}
	return nil
}
