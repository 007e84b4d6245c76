// Package semver parses the API versions used in the EWP catalogue and in the
// ewp-specs GitHub tags ("1.2.3", "v1.2.3", "1.2.3-rc4").
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	msemver "github.com/Masterminds/semver/v3"
)

// ErrInvalidVersion is returned for strings that are not EWP versions.
var ErrInvalidVersion = errors.New("invalid version string")

var pattern = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-rc(\d))?$`)

// Version is an EWP API version. The zero value is 0.0.0.
type Version struct {
	Major int
	Minor int
	Patch int
	// RC is the release candidate number; it is meaningful only when
	// Candidate is set.
	RC        int
	Candidate bool

	ordered *msemver.Version
}

// New returns the release version major.minor.patch.
func New(major, minor, patch int) Version {
	return build(major, minor, patch, 0, false)
}

// NewRC returns a release candidate version.
func NewRC(major, minor, patch, rc int) Version {
	return build(major, minor, patch, rc, true)
}

func build(major, minor, patch, rc int, candidate bool) Version {
	v := Version{Major: major, Minor: minor, Patch: patch, RC: rc, Candidate: candidate}
	pre := ""
	if candidate {
		pre = "rc" + strconv.Itoa(rc)
	}
	v.ordered = msemver.New(uint64(major), uint64(minor), uint64(patch), pre, "")
	return v
}

// Parse accepts "X.Y.Z" and "X.Y.Z-rcN", optionally prefixed with "v".
func Parse(s string) (Version, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	nums := make([]int, 4)
	for i := 1; i <= 4; i++ {
		if m[i] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i])
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i-1] = n
	}
	return build(nums[0], nums[1], nums[2], nums[3], m[4] != ""), nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsReleaseCandidate reports whether the version carries an -rc suffix.
func (v Version) IsReleaseCandidate() bool {
	return v.Candidate
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.IsReleaseCandidate() {
		s += fmt.Sprintf("-rc%d", v.RC)
	}
	return s
}

// Compare returns -1, 0 or 1. Release candidates order before the release
// they precede.
func (v Version) Compare(o Version) int {
	return v.sem().Compare(o.sem())
}

func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

func (v Version) Equal(o Version) bool {
	return v.Compare(o) == 0
}

// Compatible reports whether an implementation of v can serve clients that
// expect o: same major and a minor.patch at least as high. Release
// candidates are compatible only with themselves.
func (v Version) Compatible(o Version) bool {
	if v.IsReleaseCandidate() || o.IsReleaseCandidate() {
		return v.Equal(o)
	}
	if v.Major != o.Major {
		return false
	}
	return v.Minor > o.Minor || (v.Minor == o.Minor && v.Patch >= o.Patch)
}

func (v Version) sem() *msemver.Version {
	if v.ordered == nil {
		return build(v.Major, v.Minor, v.Patch, v.RC, v.Candidate).ordered
	}
	return v.ordered
}

// MarshalText encodes the version in its canonical form.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a version.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
