package versions

import (
	"cmp"
	"strings"
)

// snapshotSuffix marks a floating Maven snapshot label such as "1.0-SNAPSHOT"
const snapshotSuffix = "-SNAPSHOT"

// IsNewer reports whether candidate is strictly greater than baseline.
//
// Both strings have a trailing "-SNAPSHOT" removed and are split on ".". The
// shorter sequence is padded with zeros and the components are compared as
// integers of any length. Components that are not numeric compare as 0, so
// "1.a" and "1.0" are equal. Equal versions are never newer.
func IsNewer(candidate, baseline string) bool {
	c := components(candidate)
	b := components(baseline)

	n := max(len(c), len(b))
	for i := 0; i < n; i++ {
		switch compareDigits(componentAt(c, i), componentAt(b, i)) {
		case 1:
			return true
		case -1:
			return false
		}
	}
	return false
}

// Latest returns the greatest version in the list according to IsNewer.
// Ties keep the first one seen. An empty list yields "".
func Latest(candidates []string) string {
	latest := ""
	found := false
	for _, v := range candidates {
		if !found || IsNewer(v, latest) {
			latest = v
			found = true
		}
	}
	return latest
}

func components(version string) []string {
	return strings.Split(strings.TrimSuffix(version, snapshotSuffix), ".")
}

// componentAt returns the leading digits of the i-th component without
// leading zeros, mirroring a lenient integer parse: "10-rc1" is "10", while
// "rc1", "000" and missing components are "" (zero).
func componentAt(parts []string, i int) string {
	if i >= len(parts) {
		return ""
	}
	s := strings.TrimSpace(parts[i])
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return strings.TrimLeft(s[:end], "0")
}

// compareDigits compares two unsigned decimal strings without leading zeros
func compareDigits(a, b string) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
