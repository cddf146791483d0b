// Package awstranslate adapts Amazon Translate to the dispatcher's
// Service and LanguageLister interfaces.
//
// The SDK's own retryer is limited to a single attempt so that the
// dispatcher alone decides when to retry and how long to back off.
// Errors are mapped onto translate.Permanent, translate.Transient and
// translate.Throttled.
package awstranslate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	translatesdk "github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/aws/aws-sdk-go-v2/service/translate/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/minios-linux/awslate/apperr"
	"github.com/minios-linux/awslate/langmeta"
	"github.com/minios-linux/awslate/translate"
)

// MaxTextBytes is the largest text a single TranslateText request accepts.
const MaxTextBytes = 10000

// DefaultRegion is used when no option, environment variable or shared
// config profile names a region.
const DefaultRegion = "us-east-1"

// API is the subset of the Amazon Translate client used here.
type API interface {
	TranslateText(ctx context.Context, in *translatesdk.TranslateTextInput, optFns ...func(*translatesdk.Options)) (*translatesdk.TranslateTextOutput, error)
	ListLanguages(ctx context.Context, in *translatesdk.ListLanguagesInput, optFns ...func(*translatesdk.Options)) (*translatesdk.ListLanguagesOutput, error)
}

// Options selects the AWS account and endpoint.
type Options struct {
	// Profile is the shared config profile. A non-empty profile, "default"
	// included, is pinned and wins over AWS_PROFILE; "" leaves the choice
	// to the SDK (AWS_PROFILE, then "default").
	Profile string
	// Region of the endpoint. "" leaves the choice to the SDK (AWS_REGION,
	// then the profile's region) and falls back to DefaultRegion last.
	Region string
	// Endpoint overrides the service URL.
	Endpoint string
}

// Client calls Amazon Translate.
type Client struct {
	api    API
	region string
}

var (
	_ translate.Service        = (*Client)(nil)
	_ translate.LanguageLister = (*Client)(nil)
)

// New loads the AWS configuration and creates a client.
func New(ctx context.Context, opts Options) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions(opts)...)
	if err != nil {
		return nil, apperr.Config("loading AWS configuration", err)
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	api := translatesdk.NewFromConfig(cfg, func(o *translatesdk.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	c := NewWithAPI(api)
	c.region = cfg.Region
	return c, nil
}

func loadOptions(opts Options) []func(*awsconfig.LoadOptions) error {
	var out []func(*awsconfig.LoadOptions) error
	if opts.Profile != "" {
		out = append(out, awsconfig.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Region != "" {
		out = append(out, awsconfig.WithRegion(opts.Region))
	}
	return append(out, awsconfig.WithRetryMaxAttempts(1))
}

// Region returns the region the client was configured for. It is empty
// for clients built with NewWithAPI.
func (c *Client) Region() string {
	return c.region
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

// TranslateText translates text from sourceLang to targetLang.
func (c *Client) TranslateText(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if len(text) > MaxTextBytes {
		return "", translate.Permanent("TextSizeLimitExceededException",
			fmt.Errorf("text is %d bytes, limit is %d", len(text), MaxTextBytes))
	}

	out, err := c.api.TranslateText(ctx, &translatesdk.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(sourceLang),
		TargetLanguageCode: aws.String(targetLang),
	})
	if err != nil {
		return "", classify(err)
	}
	return aws.ToString(out.TranslatedText), nil
}

// ListLanguages returns every language the service supports, following
// pagination.
func (c *Client) ListLanguages(ctx context.Context) ([]langmeta.Language, error) {
	var (
		langs []langmeta.Language
		token *string
	)
	for {
		out, err := c.api.ListLanguages(ctx, &translatesdk.ListLanguagesInput{
			DisplayLanguageCode: types.DisplayLanguageCodeEn,
			MaxResults:          aws.Int32(500),
			NextToken:           token,
		})
		if err != nil {
			return nil, apperr.Service("listing languages", classify(err))
		}
		for _, l := range out.Languages {
			code := aws.ToString(l.LanguageCode)
			if code == "" {
				continue
			}
			langs = append(langs, langmeta.Language{Code: code, Name: aws.ToString(l.LanguageName)})
		}
		if aws.ToString(out.NextToken) == "" {
			return langs, nil
		}
		token = out.NextToken
	}
}

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------

// classify maps an SDK error onto the dispatcher's retry classes.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return translate.Transient("RequestTimeout", err)
	}

	var (
		throttle *types.TooManyRequestsException
		limit    *types.LimitExceededException
		unavail  *types.ServiceUnavailableException
		internal *types.InternalServerException
		pair     *types.UnsupportedLanguagePairException
		size     *types.TextSizeLimitExceededException
		invalid  *types.InvalidRequestException
		lowConf  *types.DetectedLanguageLowConfidenceException
	)
	switch {
	case errors.As(err, &throttle):
		return translate.Throttled(throttle.ErrorCode(), err, retryAfter(err))
	case errors.As(err, &limit):
		return translate.Throttled(limit.ErrorCode(), err, retryAfter(err))
	case errors.As(err, &unavail):
		return translate.Transient(unavail.ErrorCode(), err)
	case errors.As(err, &internal):
		return translate.Transient(internal.ErrorCode(), err)
	case errors.As(err, &pair):
		return translate.Permanent(pair.ErrorCode(), err)
	case errors.As(err, &size):
		return translate.Permanent(size.ErrorCode(), err)
	case errors.As(err, &invalid):
		return translate.Permanent(invalid.ErrorCode(), err)
	case errors.As(err, &lowConf):
		return translate.Permanent(lowConf.ErrorCode(), err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case isThrottleCode(code):
			return translate.Throttled(code, err, retryAfter(err))
		case apiErr.ErrorFault() == smithy.FaultServer:
			return translate.Transient(code, err)
		case apiErr.ErrorFault() == smithy.FaultClient:
			return translate.Permanent(code, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.Response != nil {
		status := respErr.HTTPStatusCode()
		code := http.StatusText(status)
		switch {
		case status == http.StatusTooManyRequests:
			return translate.Throttled(code, err, retryAfter(err))
		case status >= 500:
			return translate.Transient(code, err)
		case status >= 400:
			return translate.Permanent(code, err)
		}
	}

	// Transport failures (DNS, connection reset) have no API error.
	return translate.Transient("", err)
}

func isThrottleCode(code string) bool {
	switch code {
	case "ThrottlingException", "Throttling", "TooManyRequestsException",
		"RequestLimitExceeded", "ProvisionedThroughputExceededException":
		return true
	}
	return strings.HasSuffix(code, "ThrottledException")
}

// retryAfter reads a Retry-After header in seconds, if the response has one.
func retryAfter(err error) time.Duration {
	var respErr *smithyhttp.ResponseError
	if !errors.As(err, &respErr) || respErr.Response == nil || respErr.Response.Response == nil {
		return 0
	}
	v := strings.TrimSpace(respErr.Response.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
