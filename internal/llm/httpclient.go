package llm

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const defaultHTTPTimeout = 120 * time.Second

// NewHTTPClient returns the HTTP client shared by the model SDKs. 429 and 5xx responses are
// retried up to maxRetries times with retryablehttp's default backoff. SDKs must be configured
// with their own retries disabled.
func NewHTTPClient(maxRetries int) *http.Client {
	if maxRetries < 0 {
		maxRetries = 0
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = maxRetries
	retryClient.HTTPClient.Timeout = defaultHTTPTimeout
	retryClient.Logger = nil // failures surface as errors to the extraction layer

	return retryClient.StandardClient()
}
