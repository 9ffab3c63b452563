package filtering

import (
	"fmt"
	"slices"
)

// RepositoryFilter handles repository filtering using exact key matching
type RepositoryFilter interface {
	// ShouldInclude determines if an item of the repository should be included
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(repository string, include, exclude []string) (bool, string)
}

// defaultRepositoryFilter implements RepositoryFilter
type defaultRepositoryFilter struct{}

var _ RepositoryFilter = (*defaultRepositoryFilter)(nil)

// NewDefaultRepositoryFilter creates a new defaultRepositoryFilter
func NewDefaultRepositoryFilter() RepositoryFilter {
	return &defaultRepositoryFilter{}
}

// ShouldInclude determines if an item of the repository should be included
func (*defaultRepositoryFilter) ShouldInclude(repository string, include, exclude []string) (bool, string) {
	if slices.Contains(exclude, repository) {
		return false, fmt.Sprintf("excluded repository '%s'", repository)
	}

	if len(include) > 0 {
		if slices.Contains(include, repository) {
			return true, fmt.Sprintf("included repository '%s'", repository)
		}
		return false, fmt.Sprintf("repository '%s' not in %v", repository, include)
	}

	return true, "no repository filters specified"
}
