package compat

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Satisfies reports whether version falls inside rangeExpr. An empty range
// accepts every version. A malformed range or version is treated as a
// mismatch and returned as the error for callers that want to log it.
func Satisfies(rangeExpr, version string) (bool, error) {
	rangeExpr = strings.TrimSpace(rangeExpr)
	if rangeExpr == "" || rangeExpr == "*" {
		return true, nil
	}

	c, err := semver.NewConstraint(rangeExpr)
	if err != nil {
		return false, fmt.Errorf("parsing range %q: %w", rangeExpr, err)
	}
	v, err := parseSemver(version)
	if err != nil {
		return false, fmt.Errorf("parsing version %q: %w", version, err)
	}
	return c.Check(v), nil
}

// CompareVersions compares two version strings using semver.
// Returns -1 if a < b, 0 if equal, 1 if a > b.
func CompareVersions(a, b string) (int, error) {
	av, err := parseSemver(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	bv, err := parseSemver(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return av.Compare(bv), nil
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(version string) (*semver.Version, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	return semver.NewVersion(version)
}

// Valid reports whether version parses as a semantic version.
func Valid(version string) bool {
	_, err := parseSemver(version)
	return err == nil
}
