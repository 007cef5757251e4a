package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-cleanhttp"
)

var (
	ErrMalformedManifest = errors.New("malformed manifest")
	ErrInvalidRequest    = errors.New("invalid registry request")
)

// StatusError is returned for a non-2xx registry response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// FetchError is returned once every attempt has failed. Err is the cause of
// the last attempt.
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	noun := "attempts"
	if e.Attempts == 1 {
		noun = "attempt"
	}
	return fmt.Sprintf("failed to fetch manifest after %d %s: %v", e.Attempts, noun, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads the version manifest with bounded, linearly spaced retries
type Fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	retries     int
	backoffStep time.Duration
	logger      *log.Logger
}

// FetcherOption customizes a Fetcher
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithBackoffStep sets the base delay between attempts
func WithBackoffStep(step time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.backoffStep = step
	}
}

// WithLogger sets the logger used to report retries
func WithLogger(logger *log.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a fetcher identifying itself as addonName. timeout
// bounds each attempt and retries is the total number of attempts.
func NewFetcher(addonName string, timeout time.Duration, retries int, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      cleanhttp.DefaultClient(),
		userAgent:   UserAgent(addonName),
		timeout:     timeout,
		retries:     retries,
		backoffStep: DefaultBackoffStep,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.retries < 1 {
		f.retries = 1
	}
	return f
}

// Fetch downloads and decodes the manifest at url. No partial or stale data
// is ever returned: either a decoded manifest or a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Manifest, error) {
	attempts := 0
	manifest, err := backoff.Retry(ctx,
		func() (*Manifest, error) {
			attempts++
			return f.fetchOnce(ctx, url)
		},
		backoff.WithBackOff(&LinearBackOff{Step: f.backoffStep}),
		backoff.WithMaxTries(uint(f.retries)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			f.logger.Warn("Registry fetch failed, retrying",
				"attempt", attempts,
				"of", f.retries,
				"retry_in", next,
				"error", err)
		}),
	)
	if err != nil {
		return nil, &FetchError{Attempts: attempts, Err: err}
	}

	f.logger.Debug("Fetched registry",
		"url", url,
		"addons", len(manifest.addons),
		"attempts", attempts)

	return manifest, nil
}

// fetchOnce performs a single attempt bounded by the per-attempt timeout
func (f *Fetcher) fetchOnce(parent context.Context, url string) (*Manifest, error) {
	ctx, cancel := context.WithTimeout(parent, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	f.logger.Debug("Fetching registry", "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := http.StatusText(resp.StatusCode)
		if status == "" {
			status = resp.Status
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxManifestSize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedManifest, maxManifestSize)
	}

	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	return &manifest, nil
}
