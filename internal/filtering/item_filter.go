package filtering

import (
	"fmt"
	"log/slog"

	"github.com/stacklok/artifact-sync/internal/config"
)

// Criteria selects items by source pattern and repository key
type Criteria struct {
	// Include lists source glob patterns an item must match
	Include []string

	// Exclude lists source glob patterns that drop an item
	Exclude []string

	// Repositories lists repository keys an item must reference
	Repositories []string

	// ExcludeRepositories lists repository keys whose items are dropped
	ExcludeRepositories []string
}

// Empty reports whether no criterion is set
func (c Criteria) Empty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 &&
		len(c.Repositories) == 0 && len(c.ExcludeRepositories) == 0
}

// ItemFilter decides which configured items a run processes
type ItemFilter interface {
	// Select returns the indices of the selected items in configuration order
	Select(items []config.ItemConfig) []int
}

// defaultItemFilter combines a NameFilter on the source and a
// RepositoryFilter on the repository key
type defaultItemFilter struct {
	criteria   Criteria
	nameFilter NameFilter
	repoFilter RepositoryFilter
}

// NewItemFilter creates an ItemFilter for criteria and rejects invalid
// source patterns
func NewItemFilter(criteria Criteria) (ItemFilter, error) {
	for _, pattern := range append(append([]string{}, criteria.Include...), criteria.Exclude...) {
		if _, err := compilePattern(pattern); err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
	}
	return NewFilter(criteria, NewDefaultNameFilter(), NewDefaultRepositoryFilter()), nil
}

// NewFilter creates an ItemFilter with custom filter implementations
func NewFilter(criteria Criteria, nameFilter NameFilter, repoFilter RepositoryFilter) ItemFilter {
	return &defaultItemFilter{
		criteria:   criteria,
		nameFilter: nameFilter,
		repoFilter: repoFilter,
	}
}

// Select returns the indices of the items passing both filters
func (f *defaultItemFilter) Select(items []config.ItemConfig) []int {
	selected := make([]int, 0, len(items))
	if f.criteria.Empty() {
		for i := range items {
			selected = append(selected, i)
		}
		return selected
	}

	for i := range items {
		item := &items[i]
		included, reason := f.shouldIncludeWithReason(item)
		if included {
			selected = append(selected, i)
		}
		slog.Debug("Item selection",
			"index", i, "source", item.Source, "repository", item.Repository,
			"included", included, "reason", reason)
	}

	slog.Info("Item filtering completed", "selected", len(selected), "excluded", len(items)-len(selected))
	return selected
}

func (f *defaultItemFilter) shouldIncludeWithReason(item *config.ItemConfig) (bool, string) {
	repoIncluded, repoReason := f.repoFilter.ShouldInclude(
		item.Repository, f.criteria.Repositories, f.criteria.ExcludeRepositories)
	if !repoIncluded {
		return false, "repository filter: " + repoReason
	}

	nameIncluded, nameReason := f.nameFilter.ShouldInclude(item.Source, f.criteria.Include, f.criteria.Exclude)
	if !nameIncluded {
		return false, "source filter: " + nameReason
	}

	return true, fmt.Sprintf("repository filter: %s AND source filter: %s", repoReason, nameReason)
}
