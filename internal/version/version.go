// Package version parses and validates release version identifiers of the
// form vMAJOR.MINOR.PATCH[-PRERELEASE].
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"shipwright/internal/services"
)

// ErrInvalidFormat reports a candidate that does not match the release tag format.
var ErrInvalidFormat = errors.New("invalid version format")

var pattern = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)(?:-([A-Za-z0-9.]+))?$`)

// None is the sentinel for "no prior release". It prints as v0.0.0 but is
// distinct from a parsed v0.0.0.
var None = Version{tag: "v0.0.0", number: "0.0.0", none: true}

// Version is a validated release identifier. The zero value is not valid; use
// Parse or None.
type Version struct {
	none       bool
	tag        string
	number     string
	major      int
	minor      int
	patch      int
	prerelease string
}

// Parse validates candidate and returns the parsed Version. The candidate must
// match exactly; callers reading operator input trim it first.
func Parse(candidate string) (Version, error) {
	m := pattern.FindStringSubmatch(candidate)
	if m == nil {
		return Version{}, services.Wrap(
			services.ErrValidation, "", "version",
			fmt.Sprintf("%q is not of the form vMAJOR.MINOR.PATCH[-PRERELEASE]", candidate),
			ErrInvalidFormat,
		)
	}
	v := Version{tag: candidate, number: strings.TrimPrefix(candidate, "v"), prerelease: m[4]}
	var err error
	if v.major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, services.Wrap(services.ErrValidation, "", "version", "major component out of range", ErrInvalidFormat)
	}
	if v.minor, err = strconv.Atoi(m[2]); err != nil {
		return Version{}, services.Wrap(services.ErrValidation, "", "version", "minor component out of range", ErrInvalidFormat)
	}
	if v.patch, err = strconv.Atoi(m[3]); err != nil {
		return Version{}, services.Wrap(services.ErrValidation, "", "version", "patch component out of range", ErrInvalidFormat)
	}
	return v, nil
}

// MustParse is Parse for constants in tests and defaults.
func MustParse(candidate string) Version {
	v, err := Parse(candidate)
	if err != nil {
		panic(err)
	}
	return v
}

// Valid reports whether candidate would be accepted by Parse.
func Valid(candidate string) bool {
	_, err := Parse(candidate)
	return err == nil
}

// Tag returns the tag form, including the leading "v".
func (v Version) Tag() string { return v.tag }

// Number returns the bare numeric form used in manifests and registry URLs.
func (v Version) Number() string { return v.number }

func (v Version) Major() int { return v.major }

func (v Version) Minor() int { return v.minor }

func (v Version) Patch() int { return v.patch }

// Prerelease returns the token after "-", or "".
func (v Version) Prerelease() string { return v.prerelease }

// IsNone reports whether v is the "no prior release" sentinel or the zero
// value. A parsed v0.0.0 is a real version.
func (v Version) IsNone() bool {
	return v.none || v.tag == ""
}

func (v Version) String() string { return v.tag }

// Compare orders versions by numeric components; a prerelease sorts before the
// release it precedes. Prerelease tokens compare lexically.
func (v Version) Compare(other Version) int {
	for _, pair := range [][2]int{{v.major, other.major}, {v.minor, other.minor}, {v.patch, other.patch}} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	switch {
	case v.prerelease == other.prerelease:
		return 0
	case v.prerelease == "":
		return 1
	case other.prerelease == "":
		return -1
	default:
		return strings.Compare(v.prerelease, other.prerelease)
	}
}
