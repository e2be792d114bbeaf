package scan

import (
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner selects registrations by package path.
// Patterns use doublestar syntax, e.g. "example.com/app/**".
type Scanner struct {
	Packages []string
	Exclude  []string
}

// NewScanner creates a scanner for the given package patterns
func NewScanner(packages, exclude []string) (*Scanner, error) {
	for _, p := range append(append([]string{}, packages...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid package pattern %q", p)
		}
	}
	return &Scanner{Packages: packages, Exclude: exclude}, nil
}

// Scan returns the catalog registrations whose package matches the scanner's
// patterns and none of its exclusions, sorted by full type name.
// A scanner without package patterns matches every package.
func (s *Scanner) Scan(c *Catalog) []*Registration {
	var result []*Registration
	for _, reg := range c.All() {
		if s.Matches(reg.Type.PkgPath()) {
			result = append(result, reg)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FullName() < result[j].FullName()
	})
	return result
}

// Matches reports whether a package path is selected by the scanner
func (s *Scanner) Matches(pkgPath string) bool {
	for _, pattern := range s.Exclude {
		if match(pattern, pkgPath) {
			return false
		}
	}
	if len(s.Packages) == 0 {
		return true
	}
	for _, pattern := range s.Packages {
		if match(pattern, pkgPath) {
			return true
		}
	}
	return false
}

func match(pattern, pkgPath string) bool {
	ok, err := doublestar.Match(pattern, pkgPath)
	return err == nil && ok
}
