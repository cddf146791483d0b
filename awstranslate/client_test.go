package awstranslate

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	translatesdk "github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/aws/aws-sdk-go-v2/service/translate/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/langmeta"
	"github.com/minios-linux/awslate/translate"
)

type fakeAPI struct {
	translateIn  []*translatesdk.TranslateTextInput
	translateErr error

	pages   []*translatesdk.ListLanguagesOutput
	tokens  []string
	listErr error
}

func (f *fakeAPI) TranslateText(_ context.Context, in *translatesdk.TranslateTextInput, _ ...func(*translatesdk.Options)) (*translatesdk.TranslateTextOutput, error) {
	f.translateIn = append(f.translateIn, in)
	if f.translateErr != nil {
		return nil, f.translateErr
	}
	text := "[" + aws.ToString(in.TargetLanguageCode) + "] " + aws.ToString(in.Text)
	return &translatesdk.TranslateTextOutput{TranslatedText: aws.String(text)}, nil
}

func (f *fakeAPI) ListLanguages(_ context.Context, in *translatesdk.ListLanguagesInput, _ ...func(*translatesdk.Options)) (*translatesdk.ListLanguagesOutput, error) {
	f.tokens = append(f.tokens, aws.ToString(in.NextToken))
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

func lang(code, name string) types.Language {
	return types.Language{LanguageCode: aws.String(code), LanguageName: aws.String(name)}
}

func TestTranslateText(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api)

	got, err := c.TranslateText(context.Background(), "Hello", "en", "fr")
	require.NoError(t, err)
	assert.Equal(t, "[fr] Hello", got)

	require.Len(t, api.translateIn, 1)
	assert.Equal(t, "en", aws.ToString(api.translateIn[0].SourceLanguageCode))
	assert.Equal(t, "fr", aws.ToString(api.translateIn[0].TargetLanguageCode))
}

func TestTranslateText_TooLarge(t *testing.T) {
	api := &fakeAPI{}
	c := NewWithAPI(api)

	_, err := c.TranslateText(context.Background(), strings.Repeat("a", MaxTextBytes+1), "en", "fr")
	var se *translate.ServiceError
	require.ErrorAs(t, err, &se)
	assert.False(t, se.Retryable)
	assert.Empty(t, api.translateIn, "oversized text is rejected before calling the service")
}

func TestTranslateText_ClassifiesErrors(t *testing.T) {
	api := &fakeAPI{translateErr: &types.UnsupportedLanguagePairException{Message: aws.String("en to xx")}}
	c := NewWithAPI(api)

	_, err := c.TranslateText(context.Background(), "Hello", "en", "xx")
	var se *translate.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "UnsupportedLanguagePairException", se.Code)
	assert.False(t, se.Retryable)
}

func TestListLanguages_Pagination(t *testing.T) {
	api := &fakeAPI{pages: []*translatesdk.ListLanguagesOutput{
		{Languages: []types.Language{lang("auto", "Auto"), lang("en", "English")}, NextToken: aws.String("page2")},
		{Languages: []types.Language{lang("fr", "French"), {LanguageName: aws.String("no code")}}},
	}}
	c := NewWithAPI(api)

	got, err := c.ListLanguages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []langmeta.Language{
		{Code: "auto", Name: "Auto"},
		{Code: "en", Name: "English"},
		{Code: "fr", Name: "French"},
	}, got)
	assert.Equal(t, []string{"", "page2"}, api.tokens)
}

func TestListLanguages_Error(t *testing.T) {
	api := &fakeAPI{listErr: &types.InternalServerException{Message: aws.String("boom")}}
	_, err := NewWithAPI(api).ListLanguages(context.Background())
	assert.True(t, apperr.IsKind(err, apperr.KindService), "err = %v", err)
}

func responseError(status int, header http.Header) error {
	if header == nil {
		header = http.Header{}
	}
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status, Header: header}},
		Err:      errors.New("http failure"),
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		retryable bool
		throttled bool
		after     time.Duration
	}{
		{"throttled", &types.TooManyRequestsException{Message: aws.String("slow down")}, "TooManyRequestsException", true, true, 0},
		{"unavailable", &types.ServiceUnavailableException{}, "ServiceUnavailableException", true, false, 0},
		{"internal", &types.InternalServerException{}, "InternalServerException", true, false, 0},
		{"text too large", &types.TextSizeLimitExceededException{}, "TextSizeLimitExceededException", false, false, 0},
		{"invalid request", &types.InvalidRequestException{}, "InvalidRequestException", false, false, 0},
		{"generic throttling", &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient}, "ThrottlingException", true, true, 0},
		{"generic server fault", &smithy.GenericAPIError{Code: "Boom", Fault: smithy.FaultServer}, "Boom", true, false, 0},
		{"generic client fault", &smithy.GenericAPIError{Code: "AccessDeniedException", Fault: smithy.FaultClient}, "AccessDeniedException", false, false, 0},
		{"http 429 with retry-after", responseError(429, http.Header{"Retry-After": []string{"7"}}), "Too Many Requests", true, true, 7 * time.Second},
		{"http 502", responseError(502, nil), "Bad Gateway", true, false, 0},
		{"http 403", responseError(403, nil), "Forbidden", false, false, 0},
		{"request timeout", context.DeadlineExceeded, "RequestTimeout", true, false, 0},
		{"transport", errors.New("connection reset by peer"), "", true, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var se *translate.ServiceError
			require.ErrorAs(t, classify(tc.err), &se)
			assert.Equal(t, tc.code, se.Code)
			assert.Equal(t, tc.retryable, se.Retryable)
			assert.Equal(t, tc.throttled, se.Throttled)
			assert.Equal(t, tc.after, se.RetryAfter)
			assert.ErrorIs(t, se, tc.err)
		})
	}
}

func TestClassify_CancelPassesThrough(t *testing.T) {
	err := classify(context.Canceled)
	assert.Equal(t, context.Canceled, err)
}

func applyLoadOptions(t *testing.T, opts Options) awsconfig.LoadOptions {
	t.Helper()
	var lo awsconfig.LoadOptions
	for _, fn := range loadOptions(opts) {
		require.NoError(t, fn(&lo))
	}
	return lo
}

func TestLoadOptions(t *testing.T) {
	lo := applyLoadOptions(t, Options{Profile: "default", Region: "eu-central-1"})
	assert.Equal(t, "default", lo.SharedConfigProfile, "an explicit default profile is pinned")
	assert.Equal(t, "eu-central-1", lo.Region)
	assert.Equal(t, 1, lo.RetryMaxAttempts, "the dispatcher owns retries")

	lo = applyLoadOptions(t, Options{})
	assert.Empty(t, lo.SharedConfigProfile, "AWS_PROFILE is left to the SDK")
	assert.Empty(t, lo.Region, "AWS_REGION is left to the SDK")
	assert.Equal(t, 1, lo.RetryMaxAttempts)
}

// isolateAWSEnv points the SDK at empty shared config files.
func isolateAWSEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	for _, name := range []string{"AWS_PROFILE", "AWS_DEFAULT_PROFILE", "AWS_REGION", "AWS_DEFAULT_REGION"} {
		t.Setenv(name, "")
	}
}

func TestNew_RegionFallback(t *testing.T) {
	isolateAWSEnv(t)

	c, err := New(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, c.Region())

	t.Setenv("AWS_REGION", "eu-west-3")
	c, err = New(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-3", c.Region(), "AWS_REGION is not masked by the fallback")

	c, err = New(context.Background(), Options{Region: "ap-southeast-2"})
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", c.Region())
}
