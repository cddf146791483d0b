package translate

import (
	"context"
	"fmt"

	"github.com/minios-linux/awslate/langmeta"
)

// LanguageLister reports the languages a service supports.
type LanguageLister interface {
	ListLanguages(ctx context.Context) ([]langmeta.Language, error)
}

// Targets returns the target languages for a run. An explicit include
// list is used without asking the service; otherwise the service's
// language list is used, minus auto, the source and exclude.
func Targets(ctx context.Context, lister LanguageLister, sourceLang string, include, exclude []string) ([]string, error) {
	if len(include) > 0 {
		return langmeta.Targets(nil, sourceLang, include, exclude), nil
	}
	available, err := lister.ListLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing languages: %w", err)
	}
	return langmeta.Targets(available, sourceLang, nil, exclude), nil
}
