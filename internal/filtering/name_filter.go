package filtering

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// NameFilter handles source filtering using glob patterns
type NameFilter interface {
	// ShouldInclude determines if a source should be included based on include/exclude patterns
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(name string, include, exclude []string) (bool, string)
}

// defaultNameFilter implements name filtering using glob patterns
type defaultNameFilter struct{}

var _ NameFilter = (*defaultNameFilter)(nil)

// NewDefaultNameFilter creates a new defaultNameFilter
func NewDefaultNameFilter() NameFilter {
	return &defaultNameFilter{}
}

// compilePattern validates and compiles a glob pattern. No separators are
// passed so '*' matches across any character.
func compilePattern(pattern string) (glob.Glob, error) {
	if _, err := filepath.Match(pattern, "test"); err != nil {
		return nil, err
	}
	compiled, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %v", err)
	}
	return compiled, nil
}

func matchPattern(pattern, name string) (bool, error) {
	compiled, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return compiled.Match(name), nil
}

// ShouldInclude determines if a source should be included based on include/exclude patterns.
// Exclude patterns take precedence; an invalid pattern excludes.
func (*defaultNameFilter) ShouldInclude(name string, include, exclude []string) (bool, string) {
	for _, pattern := range exclude {
		matches, err := matchPattern(pattern, name)
		if err != nil {
			return false, fmt.Sprintf("invalid exclude pattern '%s': %v", pattern, err)
		}
		if matches {
			return false, fmt.Sprintf("excluded by pattern '%s'", pattern)
		}
	}

	if len(include) > 0 {
		for _, pattern := range include {
			matches, err := matchPattern(pattern, name)
			if err != nil {
				return false, fmt.Sprintf("invalid include pattern '%s': %v", pattern, err)
			}
			if matches {
				return true, fmt.Sprintf("included by pattern '%s'", pattern)
			}
		}
		return false, fmt.Sprintf("no match found in include patterns %v", include)
	}

	if len(exclude) > 0 {
		return true, fmt.Sprintf("no match in exclude patterns %v", exclude)
	}
	return true, "no source filters specified"
}
