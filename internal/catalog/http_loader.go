package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"
)

const DefaultMaxRetryAttempts = 3

// HTTPLoader fetches the catalog from a content service exposing GET /items.
type HTTPLoader struct {
	httpClient       *resty.Client
	maxRetryAttempts uint
	retryDelay       time.Duration
}

// NewHTTPLoader builds a loader. Zero retryAttempts selects DefaultMaxRetryAttempts.
func NewHTTPLoader(baseURL, token string, timeout time.Duration, retryAttempts uint) *HTTPLoader {
	if retryAttempts == 0 {
		retryAttempts = DefaultMaxRetryAttempts
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &HTTPLoader{
		httpClient:       client,
		maxRetryAttempts: retryAttempts,
		retryDelay:       200 * time.Millisecond,
	}
}

func (loader *HTTPLoader) Close() error {
	return loader.httpClient.Close()
}

// Load fetches and validates the catalog, retrying transient failures.
func (loader *HTTPLoader) Load(ctx context.Context) (*Catalog, error) {
	var items []Item
	if err := retry.Do(
		func() error {
			fetched, err := loader.fetch(ctx)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				slog.Default().Warn("catalog fetch failed, retrying", "error", err)
				return err
			}
			items = fetched
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(loader.maxRetryAttempts+1),
		retry.Delay(loader.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	); err != nil {
		return nil, err
	}

	if err := Validate(items); err != nil {
		return nil, err
	}
	return New(items)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.code, e.body)
}

func (loader *HTTPLoader) fetch(ctx context.Context) ([]Item, error) {
	response, err := loader.httpClient.R().
		SetContext(ctx).
		SetResult(&[]Item{}).
		Get("/items")
	if err != nil {
		return nil, fmt.Errorf("httpClient.Get > %w", err)
	}
	if response.IsError() {
		return nil, &statusError{code: response.StatusCode(), body: response.String()}
	}

	result, ok := response.Result().(*[]Item)
	if !ok || result == nil {
		return nil, fmt.Errorf("empty catalog response: %s", response.String())
	}
	return *result, nil
}

func isRetryableError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == 429
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
