// Package versions provides ordering for free-form tool version strings.
package versions

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// rcPattern matches a release candidate marker such as "-rc-2" at the end of a version.
var rcPattern = regexp.MustCompile(`-rc-(\d+)$`)

type parsed struct {
	components []int
	rc         int
	hasRC      bool
}

// parse normalizes a version string into numeric components and an optional RC number.
// Build metadata after '+' is ignored, non-numeric components count as zero.
func parse(v string) parsed {
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}

	var p parsed
	if m := rcPattern.FindStringSubmatchIndex(v); m != nil {
		p.rc = atoi(v[m[2]:m[3]])
		p.hasRC = true
		v = v[:m[0]]
	}

	for _, part := range strings.Split(v, ".") {
		p.components = append(p.components, atoi(part))
	}
	return p
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to, or after b.
//
// Missing trailing components are treated as zero, so "1.2" equals "1.2.0".
// A release candidate ("1.2.3-rc-1") sorts before the final release of the same version.
func Compare(a, b string) int {
	pa, pb := parse(a), parse(b)

	n := max(len(pa.components), len(pb.components))
	for i := range n {
		ca, cb := component(pa.components, i), component(pb.components, i)
		if ca != cb {
			return sign(ca - cb)
		}
	}

	switch {
	case pa.hasRC && pb.hasRC:
		return sign(pa.rc - pb.rc)
	case pa.hasRC:
		return -1
	case pb.hasRC:
		return 1
	default:
		return 0
	}
}

func component(c []int, i int) int {
	if i < len(c) {
		return c[i]
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort sorts versions in place in ascending order.
// Versions that compare equal (e.g. differing only in build metadata) are ordered lexically
// so the result is deterministic.
func Sort(vs []string) {
	slices.SortFunc(vs, func(a, b string) int {
		if c := Compare(a, b); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
func IsNewerVersion(newVersion, oldVersion string) bool {
	return Compare(newVersion, oldVersion) > 0
}

// Constraint filters versions against a semantic version range such as ">= 11, < 22".
type Constraint struct {
	raw         string
	constraints *semver.Constraints
}

// ParseConstraint parses a semver constraint expression.
func ParseConstraint(expr string) (*Constraint, error) {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, err
	}
	return &Constraint{raw: expr, constraints: c}, nil
}

// Allows reports whether version satisfies the constraint.
// Build metadata and RC markers are ignored and only the first three numeric components
// are checked, so "17.0.4.1+1" is checked as 17.0.4. Versions that are not coercible to
// semver never satisfy it.
func (c *Constraint) Allows(version string) bool {
	if c == nil {
		return true
	}
	v, err := semver.NewVersion(coerce(version))
	if err != nil {
		return false
	}
	return c.constraints.Check(v)
}

// coerce trims version down to at most major.minor.patch.
func coerce(version string) string {
	if i := strings.IndexByte(version, '+'); i >= 0 {
		version = version[:i]
	}
	version = strings.TrimSuffix(rcPattern.ReplaceAllString(version, ""), ".")
	if parts := strings.Split(version, "."); len(parts) > 3 {
		version = strings.Join(parts[:3], ".")
	}
	return version
}

// String returns the expression the constraint was parsed from.
func (c *Constraint) String() string {
	return c.raw
}
