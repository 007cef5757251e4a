package checker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plexaddons/versioncheck/internal/registry"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func serveManifest(t *testing.T, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func TestCheckForUpdatesOutdated(t *testing.T) {
	url := serveManifest(t, `{"addons":{"Foo":{"version":"2.0.0","urgent":true}}}`)

	c, err := New("Foo", "1.0.0", WithRepositoryURL(url))
	require.NoError(t, err)

	result := c.CheckForUpdates(context.Background())

	assert.True(t, result.Success)
	assert.True(t, result.IsOutdated)
	assert.False(t, result.IsCurrent)
	assert.False(t, result.IsNewer)
	assert.Equal(t, StatusOutdated, result.Status())
	assert.Equal(t, "Foo", result.Addon)
	assert.Equal(t, "1.0.0", result.Current)
	assert.Equal(t, "2.0.0", result.Latest)
	assert.True(t, result.Urgent)
	assert.False(t, result.Breaking)
	assert.False(t, result.External)
	assert.Empty(t, result.Author)
	assert.Empty(t, result.Error)
	assert.NoError(t, result.Err)
}

func TestCheckForUpdatesCopiesRecordAndManifestFields(t *testing.T) {
	url := serveManifest(t, `{
		"repository": "https://github.com/Bali0531-RC/PlexAddons",
		"supportContact": "support@plexdev.xyz",
		"supportServer": "https://discord.gg/ignored",
		"lastUpdated": "2025-01-10",
		"addons": {
			"AiModeration": {
				"version": "1.4.0",
				"releaseDate": "2025-01-09",
				"downloadUrl": "https://example.test/ai.zip",
				"description": "Faster moderation",
				"breaking": true,
				"external": true,
				"author": "Bali",
				"homepage": "https://plexdev.xyz",
				"changelog": "https://plexdev.xyz/changelog"
			}
		}
	}`)

	c, err := New("AiModeration", "1.3.0", WithRepositoryURL(url))
	require.NoError(t, err)

	result := c.CheckForUpdates(context.Background())
	require.True(t, result.Success, result.Error)

	assert.Equal(t, Result{
		Success:        true,
		Addon:          "AiModeration",
		IsOutdated:     true,
		Current:        "1.3.0",
		Latest:         "1.4.0",
		ReleaseDate:    "2025-01-09",
		DownloadURL:    "https://example.test/ai.zip",
		Description:    "Faster moderation",
		Breaking:       true,
		External:       true,
		Author:         "Bali",
		Homepage:       "https://plexdev.xyz",
		Changelog:      "https://plexdev.xyz/changelog",
		Repository:     "https://github.com/Bali0531-RC/PlexAddons",
		SupportContact: "support@plexdev.xyz",
		LastUpdated:    "2025-01-10",
	}, result)
}

func TestCheckForUpdatesOrdering(t *testing.T) {
	url := serveManifest(t, `{"addons":{"Foo":{"version":"1.2"}}}`)

	tests := []struct {
		current string
		want    Status
	}{
		{"1.2.0", StatusCurrent},
		{"1.1.9", StatusOutdated},
		{"1.10.0", StatusNewer},
	}

	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			c, err := New("Foo", tt.current, WithRepositoryURL(url))
			require.NoError(t, err)

			result := c.CheckForUpdates(context.Background())
			require.True(t, result.Success, result.Error)
			assert.Equal(t, tt.want, result.Status())

			set := 0
			for _, flag := range []bool{result.IsOutdated, result.IsCurrent, result.IsNewer} {
				if flag {
					set++
				}
			}
			assert.Equal(t, 1, set, "exactly one ordering flag must be set")
		})
	}
}

func TestCheckForUpdatesAddonNotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing key", `{"addons":{"Foo":{"version":"1.0.0"}}}`},
		{"missing addons field", `{"repository":"https://example.test"}`},
		{"null entry", `{"addons":{"Bar":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c, err := New("Bar", "1.0.0", WithRepositoryURL(server.URL), WithRetries(3))
			require.NoError(t, err)

			result := c.CheckForUpdates(context.Background())
			assert.False(t, result.Success)
			assert.False(t, result.IsOutdated)
			assert.Contains(t, result.Error, "Bar")
			assert.Equal(t, "Addon 'Bar' not found in registry", result.Error)
			assert.ErrorIs(t, result.Err, ErrAddonNotFound)
			assert.Equal(t, StatusUnknown, result.Status())
			assert.Equal(t, int32(1), hits.Load(), "a missing addon is not retried")
		})
	}
}

func TestCheckForUpdatesIgnoresBrokenSiblings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"numeric sibling version", `{"addons":{"Foo":{"version":"2.0.0"},"Other":{"version":2.1}}}`},
		{"string sibling flag", `{"addons":{"Foo":{"version":"2.0.0"},"Other":{"version":"1.0","urgent":"yes"}}}`},
		{"numeric lastUpdated", `{"lastUpdated":1700000000,"addons":{"Foo":{"version":"2.0.0"}}}`},
		{"non-object sibling", `{"addons":{"Foo":{"version":"2.0.0"},"Other":"1.0.0"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("Foo", "1.0.0", WithRepositoryURL(serveManifest(t, tt.body)))
			require.NoError(t, err)

			result := c.CheckForUpdates(context.Background())
			require.True(t, result.Success, result.Error)
			assert.True(t, result.IsOutdated)
			assert.Equal(t, "2.0.0", result.Latest)
		})
	}
}

func TestCheckForUpdatesMistypedFieldsOnTarget(t *testing.T) {
	url := serveManifest(t, `{"lastUpdated":1700000000,"addons":{"Foo":{"version":"2.0.0","urgent":"yes","breaking":true,"author":42}}}`)

	c, err := New("Foo", "1.0.0", WithRepositoryURL(url))
	require.NoError(t, err)

	result := c.CheckForUpdates(context.Background())
	require.True(t, result.Success, result.Error)
	assert.False(t, result.Urgent, "only a JSON true sets a flag")
	assert.True(t, result.Breaking)
	assert.Equal(t, "42", result.Author)
	assert.Equal(t, "1700000000", result.LastUpdated)
}

func TestCheckForUpdatesMalformedEntryIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"addons":{"Foo":{"version":2.1}}}`)
	}))
	defer server.Close()

	c, err := New("Foo", "1.0.0", WithRepositoryURL(server.URL), WithRetries(3))
	require.NoError(t, err)

	result := c.CheckForUpdates(context.Background())
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, registry.ErrMalformedRecord)
	assert.NotErrorIs(t, result.Err, registry.ErrMalformedManifest)
	assert.Contains(t, result.Error, "Foo")
	assert.Equal(t, int32(1), hits.Load())
}

func TestCheckForUpdatesExhaustsRetries(t *testing.T) {
	const step = 10 * time.Millisecond

	var (
		mu    sync.Mutex
		calls []time.Time
	)
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			mu.Lock()
			calls = append(calls, time.Now())
			mu.Unlock()
			return nil, errors.New("dial tcp: connection refused")
		}),
	}

	c, err := New("Foo", "1.0.0",
		WithRetries(3),
		WithHTTPClient(client),
		WithBackoffStep(step),
	)
	require.NoError(t, err)

	result := c.CheckForUpdates(context.Background())

	assert.False(t, result.Success)
	assert.False(t, result.IsOutdated)
	assert.Contains(t, result.Error, "3 attempts")
	assert.Contains(t, result.Error, "connection refused")

	var fetchErr *registry.FetchError
	require.ErrorAs(t, result.Err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempts)

	require.Len(t, calls, 3)
	first := calls[1].Sub(calls[0])
	second := calls[2].Sub(calls[1])
	assert.GreaterOrEqual(t, first, step)
	assert.GreaterOrEqual(t, second, 2*step)
}

func TestCheckForUpdatesMalformedLatestVersion(t *testing.T) {
	url := serveManifest(t, `{"addons":{"Foo":{"version":"2.0.0-beta"}}}`)

	c, err := New("Foo", "1.0.0", WithRepositoryURL(url))
	require.NoError(t, err)

	result := c.CheckForUpdates(context.Background())
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrMalformedVersion)
	assert.Contains(t, result.Error, "2.0.0-beta")
}

func TestCheckForUpdatesUsesAddonUserAgent(t *testing.T) {
	var gotUA string
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`{"addons":{"Tickets":{"version":"3.0.0"}}}`)),
			}, nil
		}),
	}

	c, err := New("Tickets", "3.0.0", WithHTTPClient(client))
	require.NoError(t, err)

	result := c.CheckForUpdates(context.Background())
	require.True(t, result.Success, result.Error)
	assert.True(t, result.IsCurrent)
	assert.Equal(t, "PlexAddons-Tickets/1.0.0", gotUA)
}

func TestCheckForUpdatesConcurrentCalls(t *testing.T) {
	url := serveManifest(t, `{"addons":{"Foo":{"version":"1.1.0"}}}`)

	c, err := New("Foo", "1.0.0", WithRepositoryURL(url))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.CheckForUpdates(context.Background())
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.Success, r.Error)
		assert.True(t, r.IsOutdated)
	}
}

func TestNewDefaultsAndValidation(t *testing.T) {
	c, err := New("Foo", "1.3.0")
	require.NoError(t, err)

	cfg := c.Config()
	assert.Equal(t, "Foo", cfg.AddonName)
	assert.Equal(t, "1.3.0", cfg.CurrentVersion)
	assert.Equal(t, registry.DefaultURL, cfg.RepositoryURL)
	assert.True(t, cfg.CheckOnStartup)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries)

	c, err = New("Foo", "1.3.0", WithCheckOnStartup(false), WithTimeout(time.Second), WithRetries(5))
	require.NoError(t, err)
	cfg = c.Config()
	assert.False(t, cfg.CheckOnStartup, "an explicit false must not fall back to the default")
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retries)

	invalid := []struct {
		name    string
		addon   string
		version string
		opts    []Option
	}{
		{"empty name", "", "1.0.0", nil},
		{"malformed version", "Foo", "v1.0", nil},
		{"zero retries", "Foo", "1.0.0", []Option{WithRetries(0)}},
		{"negative timeout", "Foo", "1.0.0", []Option{WithTimeout(-time.Second)}},
		{"empty url", "Foo", "1.0.0", []Option{WithRepositoryURL(" ")}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.addon, tt.version, tt.opts...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestResultStatusRejectsInconsistentFlags(t *testing.T) {
	assert.Equal(t, StatusUnknown, Result{Success: true}.Status())
	assert.Equal(t, StatusUnknown, Result{Success: true, IsOutdated: true, IsNewer: true}.Status())
	assert.Equal(t, StatusUnknown, Result{Success: false, IsCurrent: true}.Status())
	assert.Equal(t, "outdated", StatusOutdated.String())
}
