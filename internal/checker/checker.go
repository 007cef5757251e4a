package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/plexaddons/versioncheck/internal/registry"
)

var (
	ErrAddonNotFound = registry.ErrRecordNotFound
	ErrInvalidConfig = errors.New("invalid checker configuration")
)

const (
	// DefaultTimeout bounds each HTTP attempt
	DefaultTimeout = 10 * time.Second

	// DefaultRetries is the default total number of fetch attempts
	DefaultRetries = 2
)

// Config is the immutable identity and configuration of a Checker
type Config struct {
	AddonName      string
	CurrentVersion string
	RepositoryURL  string
	// CheckOnStartup is advisory; callers decide whether to honor it
	CheckOnStartup bool
	Timeout        time.Duration
	Retries        int
}

// Checker compares a locally declared addon version against the registry.
// It holds no mutable state and is safe for concurrent use.
type Checker struct {
	cfg         Config
	client      *http.Client
	backoffStep time.Duration
	log         *log.Logger
}

// Option customizes a Checker
type Option func(*Checker)

// WithRepositoryURL points the checker at a self-hosted registry
func WithRepositoryURL(url string) Option {
	return func(c *Checker) {
		c.cfg.RepositoryURL = url
	}
}

// WithCheckOnStartup sets the advisory check-on-startup flag
func WithCheckOnStartup(enabled bool) Option {
	return func(c *Checker) {
		c.cfg.CheckOnStartup = enabled
	}
}

// WithTimeout sets the per-attempt HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		c.cfg.Timeout = timeout
	}
}

// WithRetries sets the total number of fetch attempts
func WithRetries(retries int) Option {
	return func(c *Checker) {
		c.cfg.Retries = retries
	}
}

// WithHTTPClient replaces the HTTP client used to reach the registry
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		c.client = client
	}
}

// WithBackoffStep sets the base delay between fetch attempts
func WithBackoffStep(step time.Duration) Option {
	return func(c *Checker) {
		c.backoffStep = step
	}
}

// WithLogger sets the logger. Checks are silent by default.
func WithLogger(logger *log.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.log = logger
		}
	}
}

// New creates a checker for addonName declared at currentVersion
func New(addonName, currentVersion string, opts ...Option) (*Checker, error) {
	c := &Checker{
		cfg: Config{
			AddonName:      addonName,
			CurrentVersion: currentVersion,
			RepositoryURL:  registry.DefaultURL,
			CheckOnStartup: true,
			Timeout:        DefaultTimeout,
			Retries:        DefaultRetries,
		},
		backoffStep: registry.DefaultBackoffStep,
		log:         log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.cfg.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (cfg Config) validate() error {
	if strings.TrimSpace(cfg.AddonName) == "" {
		return fmt.Errorf("%w: addon name is required", ErrInvalidConfig)
	}
	if _, err := ParseVersion(cfg.CurrentVersion); err != nil {
		return fmt.Errorf("%w: current version: %w", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(cfg.RepositoryURL) == "" {
		return fmt.Errorf("%w: repository URL is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, cfg.Timeout)
	}
	if cfg.Retries < 1 {
		return fmt.Errorf("%w: retries must be at least 1, got %d", ErrInvalidConfig, cfg.Retries)
	}
	return nil
}

// Config returns the checker's configuration
func (c *Checker) Config() Config {
	return c.cfg
}

// CheckForUpdates fetches the registry and compares the declared version
// against the addon's latest version. It never fails: every error is
// reported through a Result with Success set to false.
func (c *Checker) CheckForUpdates(ctx context.Context) Result {
	fetcher := registry.NewFetcher(c.cfg.AddonName, c.cfg.Timeout, c.cfg.Retries,
		registry.WithHTTPClient(c.client),
		registry.WithBackoffStep(c.backoffStep),
		registry.WithLogger(c.log),
	)

	c.log.Debug("Checking for updates",
		"addon", c.cfg.AddonName,
		"current", c.cfg.CurrentVersion,
		"registry", c.cfg.RepositoryURL)

	manifest, err := fetcher.Fetch(ctx, c.cfg.RepositoryURL)
	if err != nil {
		c.log.Warn("Version check failed", "addon", c.cfg.AddonName, "error", err)
		return failure(c.cfg.AddonName, c.cfg.CurrentVersion, err)
	}

	result, err := c.evaluate(manifest)
	if err != nil {
		c.log.Warn("Version check failed", "addon", c.cfg.AddonName, "error", err)
		return failure(c.cfg.AddonName, c.cfg.CurrentVersion, err)
	}

	c.log.Debug("Version check complete",
		"addon", c.cfg.AddonName,
		"status", result.Status(),
		"current", result.Current,
		"latest", result.Latest)

	return result
}

// evaluate locates the addon in the manifest and assembles the result
func (c *Checker) evaluate(manifest *registry.Manifest) (Result, error) {
	rec, err := manifest.Lookup(c.cfg.AddonName)
	switch {
	case errors.Is(err, registry.ErrRecordNotFound):
		// user-facing text, kept capitalized
		return Result{}, fmt.Errorf("Addon '%s' %w", c.cfg.AddonName, ErrAddonNotFound)
	case err != nil:
		return Result{}, fmt.Errorf("addon '%s': %w", c.cfg.AddonName, err)
	}

	cmp, err := CompareVersions(c.cfg.CurrentVersion, rec.Version)
	if err != nil {
		return Result{}, fmt.Errorf("addon '%s': %w", c.cfg.AddonName, err)
	}

	return Result{
		Success:        true,
		Addon:          c.cfg.AddonName,
		IsOutdated:     cmp < 0,
		IsCurrent:      cmp == 0,
		IsNewer:        cmp > 0,
		Current:        c.cfg.CurrentVersion,
		Latest:         rec.Version,
		ReleaseDate:    rec.ReleaseDate,
		DownloadURL:    rec.DownloadURL,
		Description:    rec.Description,
		Urgent:         rec.Urgent,
		Breaking:       rec.Breaking,
		External:       rec.External,
		Author:         rec.Author,
		Homepage:       rec.Homepage,
		Changelog:      rec.Changelog,
		Repository:     manifest.Repository,
		SupportContact: manifest.Support(),
		LastUpdated:    manifest.LastUpdated,
	}, nil
}
