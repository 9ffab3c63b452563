package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		baseline  string
		expected  bool
	}{
		{name: "newer major version", candidate: "2.0.0", baseline: "1.0.0", expected: true},
		{name: "newer minor version", candidate: "1.2.0", baseline: "1.1.0", expected: true},
		{name: "newer patch version", candidate: "1.0.2", baseline: "1.0.1", expected: true},
		{name: "older major version", candidate: "1.0.0", baseline: "2.0.0", expected: false},
		{name: "older minor version", candidate: "1.1.0", baseline: "1.2.0", expected: false},
		{name: "equal versions", candidate: "1.0.0", baseline: "1.0.0", expected: false},
		{name: "numeric not lexicographic", candidate: "1.10.0", baseline: "1.9.0", expected: true},
		{name: "missing trailing component is zero", candidate: "1.2", baseline: "1.2.0", expected: false},
		{name: "extra non-zero component", candidate: "1.2.0.1", baseline: "1.2", expected: true},
		{name: "snapshot equals release", candidate: "1.2.0-SNAPSHOT", baseline: "1.2.0", expected: false},
		{name: "release equals snapshot", candidate: "1.2.0", baseline: "1.2.0-SNAPSHOT", expected: false},
		{name: "newer snapshot", candidate: "1.3-SNAPSHOT", baseline: "1.2-SNAPSHOT", expected: true},
		{name: "non-numeric component is zero", candidate: "1.a", baseline: "1.0", expected: false},
		{name: "zero against non-numeric", candidate: "1.0", baseline: "1.a", expected: false},
		{name: "leading digits are used", candidate: "1.10-rc1", baseline: "1.9", expected: true},
		{name: "component beyond uint64", candidate: "1.99999999999999999999", baseline: "1.5", expected: true},
		{name: "two components beyond uint64", candidate: "1.99999999999999999998", baseline: "1.99999999999999999999", expected: false},
		{name: "leading zeros ignored", candidate: "1.010", baseline: "1.9", expected: true},
		{name: "all zeros equal zero", candidate: "1.000", baseline: "1", expected: false},
		{name: "empty candidate", candidate: "", baseline: "1.0.0", expected: false},
		{name: "empty baseline", candidate: "0.0.1", baseline: "", expected: true},
		{name: "both empty", candidate: "", baseline: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, IsNewer(tt.candidate, tt.baseline))
		})
	}
}

func TestIsNewer_Irreflexive(t *testing.T) {
	t.Parallel()

	for _, v := range []string{"", "1", "1.0", "1.2.3", "1.2.3-SNAPSHOT", "x.y", "10.0.0.0"} {
		assert.False(t, IsNewer(v, v), "IsNewer(%q, %q)", v, v)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		candidates []string
		expected   string
	}{
		{name: "unordered list", candidates: []string{"1.0", "1.2", "1.1"}, expected: "1.2"},
		{name: "numeric ordering", candidates: []string{"1.9.0", "1.10.0", "1.2.0"}, expected: "1.10.0"},
		{name: "tie keeps first seen", candidates: []string{"1.2", "1.2.0", "1.0"}, expected: "1.2"},
		{name: "snapshots", candidates: []string{"1.0-SNAPSHOT", "2.0-SNAPSHOT"}, expected: "2.0-SNAPSHOT"},
		{name: "single", candidates: []string{"3.1"}, expected: "3.1"},
		{name: "empty", candidates: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Latest(tt.candidates))
		})
	}
}
