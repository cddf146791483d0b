// Package localefile reads source locale files and writes translated ones.
//
// A locale file is any JSON document; keys are usually message IDs and
// values the display strings, possibly nested:
//
//	{
//	    "greeting": "Hello",
//	    "menu": { "open": "Open", "recent": ["One", "Two"] },
//	    "version": 3
//	}
//
// Output files are written through a temporary file in the target
// directory and renamed into place, so readers never see a partial file.
package localefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/jsontree"
)

// DefaultPattern is the output file name pattern; {lang} is replaced by
// the target language code.
const DefaultPattern = "{lang}.json"

// ReadFile reads and parses a locale file.
func ReadFile(path string) (jsontree.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jsontree.Value{}, apperr.IO(fmt.Sprintf("reading %s", path), err)
	}
	v, err := jsontree.Parse(data)
	if err != nil {
		return jsontree.Value{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// OutputPath returns the output file for lang inside dir.
func OutputPath(dir, pattern, lang string) string {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return filepath.Join(dir, strings.ReplaceAll(pattern, "{lang}", lang))
}

// WriteFile writes v to path with the given indent and a trailing
// newline, creating parent directories as needed.
func WriteFile(path string, v jsontree.Value, indent string) error {
	data := append(jsontree.Marshal(v, indent), '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.IO("creating directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperr.IO("creating temporary file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperr.IO(fmt.Sprintf("writing %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.IO(fmt.Sprintf("writing %s", path), err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return apperr.IO(fmt.Sprintf("writing %s", path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return apperr.IO(fmt.Sprintf("writing %s", path), err)
	}
	return nil
}
