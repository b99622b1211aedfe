package version

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ChangeType is the kind of version increment a pull request asks for.
type ChangeType int

const (
	// ChangeUnknown is the zero value and is never a valid bump.
	ChangeUnknown ChangeType = iota
	ChangePatch
	ChangeMinor
	ChangeMajor
)

// changeLabels maps the recognized bump labels to their change type.
var changeLabels = map[string]ChangeType{
	"patch": ChangePatch,
	"minor": ChangeMinor,
	"major": ChangeMajor,
}

var (
	// ErrLabel is wrapped by every bump label validation failure.
	ErrLabel = errors.New("add exactly one of the labels patch, minor or major to the pull request")
	// ErrNoBumpLabel means none of the recognized labels is present.
	ErrNoBumpLabel = fmt.Errorf("no bump label found: %w", ErrLabel)
	// ErrMultipleBumpLabels means more than one recognized label is present.
	ErrMultipleBumpLabels = fmt.Errorf("multiple bump labels found: %w", ErrLabel)
	// ErrUnknownChangeType is returned when a bump is requested without a valid change type.
	ErrUnknownChangeType = errors.New("unknown change type: add exactly one of the labels patch, minor or major to the pull request")
)

// String returns the label name for the change type.
func (c ChangeType) String() string {
	switch c {
	case ChangePatch:
		return "patch"
	case ChangeMinor:
		return "minor"
	case ChangeMajor:
		return "major"
	default:
		return "unknown"
	}
}

// ChangeTypeFromLabels picks the single bump label out of a PR's labels.
// Matching is exact and case-sensitive; unrelated labels are ignored.
func ChangeTypeFromLabels(labels []string) (ChangeType, error) {
	found := make(map[string]ChangeType)
	for _, l := range labels {
		if ct, ok := changeLabels[l]; ok {
			found[l] = ct
		}
	}

	switch len(found) {
	case 0:
		return ChangeUnknown, ErrNoBumpLabel
	case 1:
		for _, ct := range found {
			return ct, nil
		}
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	return ChangeUnknown, fmt.Errorf("%w (have %s)", ErrMultipleBumpLabels, strings.Join(names, ", "))
}
