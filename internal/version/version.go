// Package version parses, orders and increments prefixed semantic version tags
// of the form <prefix>vMAJOR.MINOR.PATCH.
package version

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// Version is a semantic version belonging to one workload prefix.
type Version struct {
	prefix string
	sv     *semver.Version
}

// First returns the version used when a workload has no prior release.
func First(prefix string) Version {
	return Version{prefix: prefix, sv: semver.New(1, 0, 0, "", "")}
}

// tagPattern builds the strict tag matcher for a prefix.
func tagPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `v(\d+)\.(\d+)\.(\d+)$`)
}

// Parse parses a tag name as <prefix>vMAJOR.MINOR.PATCH.
func Parse(prefix, tag string) (Version, error) {
	return parseWith(tagPattern(prefix), prefix, tag)
}

func parseWith(re *regexp.Regexp, prefix, tag string) (Version, error) {
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return Version{}, fmt.Errorf("tag %q does not match %sv<major>.<minor>.<patch>", tag, prefix)
	}
	sv, err := semver.StrictNewVersion(fmt.Sprintf("%s.%s.%s", trimZeros(m[1]), trimZeros(m[2]), trimZeros(m[3])))
	if err != nil {
		return Version{}, fmt.Errorf("parsing tag %q: %w", tag, err)
	}
	return Version{prefix: prefix, sv: sv}, nil
}

// trimZeros drops leading zeros so "v1.02.0" orders as 1.2.0.
func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}

func (v Version) Prefix() string { return v.prefix }
func (v Version) Major() uint64  { return v.semver().Major() }
func (v Version) Minor() uint64  { return v.semver().Minor() }
func (v Version) Patch() uint64  { return v.semver().Patch() }

// String renders the version as a tag name.
func (v Version) String() string {
	return v.prefix + "v" + v.semver().String()
}

func (v Version) semver() *semver.Version {
	if v.sv == nil {
		return semver.New(0, 0, 0, "", "")
	}
	return v.sv
}

// Compare orders by major, then minor, then patch.
func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

// Bump applies the increment rule for ct.
func (v Version) Bump(ct ChangeType) (Version, error) {
	var next semver.Version
	switch ct {
	case ChangePatch:
		next = v.semver().IncPatch()
	case ChangeMinor:
		next = v.semver().IncMinor()
	case ChangeMajor:
		next = v.semver().IncMajor()
	default:
		return Version{}, ErrUnknownChangeType
	}
	return Version{prefix: v.prefix, sv: &next}, nil
}

// Latest returns the highest version among tags. Tags that do not parse are
// skipped. The boolean is false when no tag parsed.
func Latest(prefix string, tags []string) (Version, bool) {
	re := tagPattern(prefix)

	var latest Version
	found := false
	for _, tag := range tags {
		v, err := parseWith(re, prefix, tag)
		if err != nil {
			slog.Warn("skipping tag that is not a version", "tag", tag, "error", err)
			continue
		}
		if !found || v.Compare(latest) > 0 {
			latest = v
			found = true
		}
	}
	return latest, found
}

// Next computes the version that follows the latest of tags.
// With no usable prior tag the result is First(prefix).
func Next(prefix string, tags []string, ct ChangeType) (Version, error) {
	latest, ok := Latest(prefix, tags)
	if !ok {
		return First(prefix), nil
	}
	return latest.Bump(ct)
}
