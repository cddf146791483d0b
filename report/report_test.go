package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/awslate/apperr"
)

func sampleReport() *Report {
	r := New("assets/original/en.json", "en")
	r.Add(Language{Lang: "fr", Status: StatusWritten, Output: "out/fr.json", Leaves: 3, Translated: 2, Skipped: 0}, []Failure{
		NewFailure("fr", "$.nested.farewell", "Bye", 6, apperr.Service("translation failed after 6 attempt(s)", errors.New("TooManyRequestsException: rate exceeded"))),
	})
	r.Add(Language{Lang: "de", Status: StatusFailed, Leaves: 3, Error: "io: writing out/de.json: permission denied"}, nil)
	r.Add(Language{Lang: "es", Status: StatusWritten, Output: "out/es.json", Leaves: 3, Translated: 3}, nil)
	r.Finish()
	return r
}

func TestReport_Aggregates(t *testing.T) {
	r := sampleReport()

	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, []string{"de"}, r.FailedLanguages())
	assert.Equal(t, 2, r.Written())
	assert.True(t, r.HasLeafFailures())

	require.Len(t, r.Languages, 3)
	assert.Equal(t, "de", r.Languages[0].Lang, "languages are sorted")
	assert.Equal(t, 1, r.Languages[1].Failed, "failure count is derived from failures")
	assert.False(t, r.Finished.Before(r.Started))
}

func TestNewFailure_Cause(t *testing.T) {
	f := NewFailure("ja", "$.a", "x", 2, apperr.Service("translation failed", errors.New("UnsupportedLanguagePairException: en to xx")))
	assert.Equal(t, "service", f.Kind)
	assert.Equal(t, "UnsupportedLanguagePairException: en to xx", f.Cause)

	f = NewFailure("ja", "$.a", "x", 1, context.Canceled)
	assert.Equal(t, "", f.Kind)
	assert.Equal(t, "context canceled", f.Cause)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	sampleReport().WriteSummary(&buf)
	out := buf.String()

	assert.Contains(t, out, "Language")
	assert.Contains(t, out, "permission denied")
	assert.Contains(t, out, "$.nested.farewell")
	assert.Contains(t, out, "TooManyRequestsException")
}

func TestWriteFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	r := sampleReport()
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		RunID     string     `yaml:"run_id"`
		Languages []Language `yaml:"languages"`
		Failures  []Failure  `yaml:"failures"`
	}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Len(t, decoded.Languages, 3)
	require.Len(t, decoded.Failures, 1)
	assert.Equal(t, "$.nested.farewell", decoded.Failures[0].Path)
	assert.Equal(t, 6, decoded.Failures[0].Attempts)
}
