// Package validators provides validation functions for item source locators.
package validators

import (
	"fmt"
	"regexp"
	"strings"
)

const maxSourceLength = 200

var (
	// Maven group and artifact ids: letters, digits, dots, underscores and hyphens
	mavenIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

	// GitHub owner: alphanumeric, may contain hyphens in the middle
	ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

	// GitHub repository name: letters, digits, dots, underscores and hyphens
	repoPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// ValidateMavenCoordinates validates a "groupId:artifactId" locator and
// returns its parts.
//
// Examples of valid coordinates:
//   - net.doridian.foxbukkit:foxbukkit-chat
//   - org.example:widget_core
//
// Examples of invalid coordinates:
//   - foxbukkit-chat (missing group)
//   - org.example:widget:1.0 (version is resolved, not configured)
func ValidateMavenCoordinates(source string) (groupID, artifactID string, err error) {
	if err := checkTrimmed(source); err != nil {
		return "", "", err
	}
	if source == "" {
		return "", "", fmt.Errorf("maven coordinates cannot be empty")
	}

	switch strings.Count(source, ":") {
	case 0:
		return "", "", fmt.Errorf("maven coordinates must be in format 'groupId:artifactId' (e.g., 'org.example:widget')")
	case 1:
	default:
		return "", "", fmt.Errorf("maven coordinates must contain exactly one ':' separator")
	}

	groupID, artifactID, _ = strings.Cut(source, ":")
	if !mavenIDPattern.MatchString(groupID) {
		return "", "", fmt.Errorf("group id '%s' is invalid", groupID)
	}
	if !mavenIDPattern.MatchString(artifactID) {
		return "", "", fmt.Errorf("artifact id '%s' is invalid", artifactID)
	}

	return groupID, artifactID, nil
}

// ValidateGitHubRepository validates an "owner/repo" locator and returns its
// parts.
func ValidateGitHubRepository(source string) (owner, repo string, err error) {
	if err := checkTrimmed(source); err != nil {
		return "", "", err
	}
	if source == "" {
		return "", "", fmt.Errorf("repository cannot be empty")
	}
	if len(source) > maxSourceLength {
		return "", "", fmt.Errorf("repository exceeds maximum length of %d characters", maxSourceLength)
	}

	slashCount := strings.Count(source, "/")
	if slashCount == 0 {
		return "", "", fmt.Errorf("repository must be in format 'owner/repo' (e.g., 'turikhay/MapModCompanion')")
	}
	if slashCount > 1 {
		return "", "", fmt.Errorf("repository must contain exactly one '/' separator")
	}

	owner, repo, _ = strings.Cut(source, "/")
	if !ownerPattern.MatchString(owner) {
		return "", "", fmt.Errorf(
			"owner '%s' is invalid. Owner must start and end with alphanumeric characters, "+
				"and may contain hyphens in the middle",
			owner,
		)
	}
	if !repoPattern.MatchString(repo) || repo == "." || repo == ".." {
		return "", "", fmt.Errorf("repository name '%s' is invalid", repo)
	}

	return owner, repo, nil
}

// ValidateSource rejects locators every resolver would mangle. Resolvers
// use the source verbatim in URLs and paths.
func ValidateSource(source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("source is required")
	}
	return checkTrimmed(source)
}

func checkTrimmed(source string) error {
	if strings.TrimSpace(source) != source {
		return fmt.Errorf("source %q has leading or trailing whitespace", source)
	}
	return nil
}
