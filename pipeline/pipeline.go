// Package pipeline runs one translation job end to end: read the source
// locale file, translate every string leaf into every target language,
// rebuild one document per language and write it.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/jsontree"
	"github.com/minios-linux/awslate/langmeta"
	"github.com/minios-linux/awslate/localefile"
	"github.com/minios-linux/awslate/report"
	"github.com/minios-linux/awslate/translate"
)

// Plan describes one run.
type Plan struct {
	// Input is the source locale file.
	Input string
	// SourceLang is the language of Input.
	SourceLang string
	// Targets are the languages to produce.
	Targets []string

	OutputDir     string
	OutputPattern string
	Indent        string

	// DryRun translates nothing and writes nothing; it only counts leaves
	// per language.
	DryRun bool

	// Options are handed to the dispatcher unchanged.
	Options translate.Options
}

func (p *Plan) log(format string, args ...any) {
	if p.Options.OnLog != nil {
		p.Options.OnLog(format, args...)
	}
}

// Run executes the plan. The returned report is never nil once the input
// has been read.
//
// A failure rebuilding or writing one language is recorded in the report
// and does not stop the others. If ctx is cancelled during translation,
// no output is written and ctx.Err() is returned.
func Run(ctx context.Context, plan Plan, svc translate.Service) (*report.Report, error) {
	root, err := localefile.ReadFile(plan.Input)
	if err != nil {
		return nil, err
	}
	rep := report.New(plan.Input, plan.SourceLang)
	defer rep.Finish()

	leaves := jsontree.Walk(root)
	targets := uniqueSorted(plan.Targets)
	plan.log("Found %d string leaves in %s", len(leaves), plan.Input)

	if plan.DryRun {
		for _, lang := range targets {
			rep.Add(report.Language{
				Lang:   lang,
				Name:   langmeta.Resolve(lang).Name,
				Status: report.StatusDryRun,
				Output: localefile.OutputPath(plan.OutputDir, plan.OutputPattern, lang),
				Leaves: len(leaves),
			}, nil)
		}
		return rep, nil
	}

	results, err := translate.Translate(ctx, leaves, plan.SourceLang, targets, svc, plan.Options)
	if err != nil {
		for _, lang := range targets {
			rep.Add(report.Language{
				Lang:   lang,
				Name:   langmeta.Resolve(lang).Name,
				Status: report.StatusCancelled,
				Leaves: len(leaves),
			}, nil)
		}
		return rep, err
	}

	for _, lang := range targets {
		entry, failures := writeLanguage(plan, root, lang, results[lang])
		if entry.Status == report.StatusFailed {
			plan.log("%s: %s", lang, entry.Error)
		}
		rep.Add(entry, failures)
	}
	return rep, nil
}

// writeLanguage rebuilds and writes the document for one language.
func writeLanguage(plan Plan, root jsontree.Value, lang string, results []translate.LeafResult) (report.Language, []report.Failure) {
	entry := report.Language{
		Lang:   lang,
		Name:   langmeta.Resolve(lang).Name,
		Leaves: len(results),
	}

	var failures []report.Failure
	for _, r := range results {
		switch {
		case r.Failed():
			failures = append(failures, report.NewFailure(lang, r.Path.String(), r.Source, r.Attempts, r.Err))
		case r.Skipped:
			entry.Skipped++
		default:
			entry.Translated++
		}
	}

	doc, err := jsontree.Rebuild(root, results)
	if err != nil {
		entry.Status = report.StatusFailed
		entry.Error = withLang(err, lang).Error()
		return entry, failures
	}

	out := localefile.OutputPath(plan.OutputDir, plan.OutputPattern, lang)
	if err := localefile.WriteFile(out, doc, plan.Indent); err != nil {
		entry.Status = report.StatusFailed
		entry.Error = withLang(err, lang).Error()
		return entry, failures
	}

	entry.Status = report.StatusWritten
	entry.Output = out
	return entry, failures
}

func withLang(err error, lang string) error {
	if e, ok := err.(*apperr.Error); ok {
		return e.WithLang(lang)
	}
	return fmt.Errorf("%s: %w", lang, err)
}

func uniqueSorted(langs []string) []string {
	seen := make(map[string]bool, len(langs))
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
