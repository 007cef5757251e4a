// Package localversion discovers the version an addon declares locally, so
// callers do not have to hard-code it next to the version check.
package localversion

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/plexaddons/versioncheck/internal/checker"
)

var (
	ErrNoVersion  = errors.New("no local version found")
	ErrNotGitRepo = errors.New("not a git repository")
)

// packageManifest is the subset of package.json we care about
type packageManifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Source describes where a version was found
type Source string

const (
	SourcePackageJSON Source = "package.json"
	SourceGitTag      Source = "git tag"
)

// FromPackageJSON reads the version field of dir/package.json
func FromPackageJSON(dir string) (string, error) {
	path := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoVersion, path)
		}
		return "", err
	}

	var pkg packageManifest
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}

	version := strings.TrimSpace(pkg.Version)
	if version == "" {
		return "", fmt.Errorf("%w: %s has no version field", ErrNoVersion, path)
	}
	if !checker.ValidVersion(version) {
		return "", fmt.Errorf("%s: %w: %q", path, checker.ErrMalformedVersion, version)
	}

	return version, nil
}

// FromGitTags returns the highest dot-numeric tag of the repository
// containing dir. A leading "v" is stripped; tags that are not plain
// versions (e.g. "v2.0.0-rc1", "latest") are ignored.
func FromGitTags(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotGitRepo, err)
	}

	tags, err := repo.Tags()
	if err != nil {
		return "", fmt.Errorf("failed to list tags: %w", err)
	}

	var best string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		candidate := strings.TrimPrefix(ref.Name().Short(), "v")
		if !checker.ValidVersion(candidate) {
			return nil
		}
		if best == "" {
			best = candidate
			return nil
		}
		cmp, err := checker.CompareVersions(candidate, best)
		if err != nil {
			return nil
		}
		if cmp > 0 {
			best = candidate
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk tags: %w", err)
	}

	if best == "" {
		return "", fmt.Errorf("%w: repository has no version tags", ErrNoVersion)
	}

	return best, nil
}

// Resolve tries package.json first, then git tags
func Resolve(dir string) (string, Source, error) {
	version, pkgErr := FromPackageJSON(dir)
	if pkgErr == nil {
		return version, SourcePackageJSON, nil
	}
	if !errors.Is(pkgErr, ErrNoVersion) {
		return "", "", pkgErr
	}

	version, gitErr := FromGitTags(dir)
	if gitErr == nil {
		return version, SourceGitTag, nil
	}

	return "", "", fmt.Errorf("%w in %s (package.json: %v; git: %v)", ErrNoVersion, dir, pkgErr, gitErr)
}
