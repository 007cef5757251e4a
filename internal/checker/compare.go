package checker

import (
	"errors"
	"fmt"
	"regexp"

	goversion "github.com/hashicorp/go-version"
)

var ErrMalformedVersion = errors.New("malformed version")

// versionPattern accepts dot-separated non-negative integers only ("1", "1.2", "1.2.0.4")
var versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// ValidVersion reports whether v is a dot-separated list of non-negative integers
func ValidVersion(v string) bool {
	return versionPattern.MatchString(v)
}

// ParseVersion parses a dot-numeric version string. Prefixes, prerelease
// suffixes and empty segments are rejected with ErrMalformedVersion.
func ParseVersion(v string) (*goversion.Version, error) {
	if !ValidVersion(v) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedVersion, v)
	}
	parsed, err := goversion.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedVersion, v, err)
	}
	return parsed, nil
}

// CompareVersions compares two version strings segment by segment, treating
// missing trailing segments as zero.
// Returns -1 if current < latest, 0 if equal, 1 if current > latest.
func CompareVersions(current, latest string) (int, error) {
	cv, err := ParseVersion(current)
	if err != nil {
		return 0, fmt.Errorf("current version: %w", err)
	}
	lv, err := ParseVersion(latest)
	if err != nil {
		return 0, fmt.Errorf("latest version: %w", err)
	}
	return cv.Compare(lv), nil
}
