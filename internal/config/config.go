// Package config provides configuration loading and validation for artifact-sync.
package config

import (
	"encoding/base64"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/artifact-sync/internal/digest"
	"github.com/stacklok/artifact-sync/internal/telemetry"
	"github.com/stacklok/artifact-sync/internal/validators"
)

const (
	// RepositoryTypeMaven resolves the newest snapshot jar from maven-metadata.xml
	RepositoryTypeMaven = "maven"

	// RepositoryTypeGit keeps a working tree in sync with a remote branch
	RepositoryTypeGit = "git"

	// RepositoryTypeGitHubRelease downloads an asset of the latest GitHub release
	RepositoryTypeGitHubRelease = "github_release"

	// RepositoryTypeJenkinsArtifact downloads an artifact of the last successful Jenkins build
	RepositoryTypeJenkinsArtifact = "jenkins_artifact"

	// RepositoryTypePaperMC downloads the newest build from the PaperMC builds API
	RepositoryTypePaperMC = "papermc_api"

	// RepositoryTypeDevBukkit downloads the latest file of a dev.bukkit.org project
	RepositoryTypeDevBukkit = "dev_bukkit_org"
)

// Well-known parameter keys
const (
	// ParamHashAlgo selects the Maven sidecar hash algorithm (repository param)
	ParamHashAlgo = "hashAlgo"

	// ParamBranch selects the git branch (item param)
	ParamBranch = "branch"

	// ParamAssetName selects the GitHub release asset (item param)
	ParamAssetName = "assetName"

	// ParamAsset is an alias of ParamAssetName
	ParamAsset = "asset"

	// ParamArtifactRegex selects the Jenkins artifact by file name (item param)
	ParamArtifactRegex = "artifactRegex"

	// ParamVersion selects the PaperMC version (item param)
	ParamVersion = "version"

	// ParamDownload selects the PaperMC download variant (item param)
	ParamDownload = "download"

	// ParamDigestHeader overrides the response header holding the remote digest (repository param)
	ParamDigestHeader = "digestHeader"

	// ParamDigestAlgorithm overrides the digest algorithm of header comparisons (repository param)
	ParamDigestAlgorithm = "digestAlgorithm"

	// ParamDigestEncoding overrides the digest encoding of header comparisons (repository param)
	ParamDigestEncoding = "digestEncoding"
)

// KnownRepositoryTypes lists every repository type a resolver exists for
var KnownRepositoryTypes = []string{
	RepositoryTypeMaven,
	RepositoryTypeGit,
	RepositoryTypeGitHubRelease,
	RepositoryTypeJenkinsArtifact,
	RepositoryTypePaperMC,
	RepositoryTypeDevBukkit,
}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Repositories maps a repository key to its descriptor
	Repositories map[string]*RepositoryConfig `yaml:"repositories"`

	// Items lists the tracked artifacts in processing order
	Items []ItemConfig `yaml:"items"`

	// Sync holds run-level behavior
	Sync SyncConfig `yaml:"sync,omitempty"`

	// Telemetry configures OpenTelemetry tracing and metrics
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// RepositoryConfig describes one remote source shared by any number of items.
// It is read-only once loaded.
type RepositoryConfig struct {
	// Type selects the resolver (maven, git, github_release, ...)
	Type string `yaml:"type"`

	// URL is the base URL relative item locators are resolved against
	URL string `yaml:"url"`

	// Authorization is a pre-built Authorization header value
	Authorization string `yaml:"authorization,omitempty"`

	// Auth builds a Basic Authorization header; mutually exclusive with Authorization
	Auth *AuthConfig `yaml:"auth,omitempty"`

	// Params holds resolver-specific repository settings
	Params map[string]string `yaml:"params,omitempty"`
}

// AuthConfig holds Basic credentials for a repository
type AuthConfig struct {
	// Username is the Basic auth user name
	Username string `yaml:"username"`

	// Password is a literal password; prefer PasswordEnv or PasswordFile
	Password string `yaml:"password,omitempty"`

	// PasswordEnv names an environment variable holding the password
	PasswordEnv string `yaml:"passwordEnv,omitempty"`

	// PasswordFile is the path to a file containing the password
	PasswordFile string `yaml:"passwordFile,omitempty"`
}

// ItemConfig is one tracked artifact
type ItemConfig struct {
	// Repository is the key into Config.Repositories
	Repository string `yaml:"repository"`

	// Source is the resolver-specific locator, e.g. "group:artifact" or "owner/repo"
	Source string `yaml:"source"`

	// Destination is the file or directory to keep in sync, relative to the sync root
	Destination string `yaml:"destination"`

	// Params holds resolver-specific item settings; values undergo ${VAR} expansion
	Params map[string]string `yaml:"params,omitempty"`
}

// SyncConfig defines run-level behavior
type SyncConfig struct {
	// ContinueOnError attempts every item even after a failure. The run still
	// fails if any item failed.
	ContinueOnError bool `yaml:"continueOnError,omitempty"`
}

// GetPassword returns the password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the PasswordEnv environment variable if specified
// 3. The literal Password
//
// The password from file will have leading/trailing whitespace trimmed.
func (a *AuthConfig) GetPassword() (string, error) {
	if a.PasswordFile != "" {
		cleanPath := filepath.Clean(a.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", a.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if a.PasswordEnv != "" {
		if envPassword := os.Getenv(a.PasswordEnv); envPassword != "" {
			return envPassword, nil
		}
		return "", fmt.Errorf("environment variable %s is not set", a.PasswordEnv)
	}

	return a.Password, nil
}

// AuthorizationHeader returns the Authorization header value for requests
// against the repository, or "" when the repository is anonymous.
func (r *RepositoryConfig) AuthorizationHeader() (string, error) {
	if r.Authorization != "" {
		return r.Authorization, nil
	}
	if r.Auth == nil {
		return "", nil
	}

	password, err := r.Auth.GetPassword()
	if err != nil {
		return "", err
	}
	creds := base64.StdEncoding.EncodeToString([]byte(r.Auth.Username + ":" + password))
	return "Basic " + creds, nil
}

// Param returns a repository parameter or def when unset
func (r *RepositoryConfig) Param(key, def string) string {
	if v, ok := r.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// Param returns an item parameter or def when unset
func (i *ItemConfig) Param(key, def string) string {
	if v, ok := i.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses and validates configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.expandParams(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// paramVariable matches the ${NAME} references expanded in item params
var paramVariable = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandParams substitutes ${NAME} references in item parameters from the
// environment. Other uses of '$' are kept, so regex params stay intact. A
// reference to an unset variable is an error.
func (c *Config) expandParams() error {
	for i := range c.Items {
		item := &c.Items[i]
		for _, key := range slices.Sorted(maps.Keys(item.Params)) {
			var missing []string
			item.Params[key] = paramVariable.ReplaceAllStringFunc(item.Params[key], func(ref string) string {
				name := paramVariable.FindStringSubmatch(ref)[1]
				value, ok := os.LookupEnv(name)
				if !ok {
					missing = append(missing, name)
				}
				return value
			})
			if len(missing) > 0 {
				return fmt.Errorf("item[%d] (%s): params.%s: environment variable %s is not set",
					i, item.Source, key, strings.Join(missing, ", "))
			}
		}
	}
	return nil
}

// Repository returns the repository an item references
func (c *Config) Repository(key string) (*RepositoryConfig, bool) {
	repo, ok := c.Repositories[key]
	return repo, ok && repo != nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Items) == 0 {
		return fmt.Errorf("at least one item must be configured")
	}

	for _, key := range slices.Sorted(maps.Keys(c.Repositories)) {
		if err := validateRepository(key, c.Repositories[key]); err != nil {
			return err
		}
	}

	for i := range c.Items {
		if err := c.validateItem(&c.Items[i], i); err != nil {
			return err
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

// IsKnownRepositoryType reports whether a resolver exists for the type
func IsKnownRepositoryType(repoType string) bool {
	return slices.Contains(KnownRepositoryTypes, repoType)
}

// validateRepository validates a single repository descriptor
func validateRepository(key string, repo *RepositoryConfig) error {
	prefix := fmt.Sprintf("repository %q", key)

	if repo == nil {
		return fmt.Errorf("%s: definition is empty", prefix)
	}
	if !IsKnownRepositoryType(repo.Type) {
		return fmt.Errorf("%s: unknown repository type %q (known: %s)",
			prefix, repo.Type, strings.Join(KnownRepositoryTypes, ", "))
	}
	if repo.URL == "" {
		return fmt.Errorf("%s: url is required", prefix)
	}
	if repo.Authorization != "" && repo.Auth != nil {
		return fmt.Errorf("%s: only one of authorization or auth may be specified", prefix)
	}
	if repo.Auth != nil && repo.Auth.Username == "" {
		return fmt.Errorf("%s: auth.username is required", prefix)
	}

	if repo.Type == RepositoryTypeMaven {
		if alg, ok := repo.Params[ParamHashAlgo]; ok {
			if _, err := digest.ParseAlgorithm(alg); err != nil {
				return fmt.Errorf("%s: params.%s: %w", prefix, ParamHashAlgo, err)
			}
		}
	}
	if alg, ok := repo.Params[ParamDigestAlgorithm]; ok {
		if _, err := digest.ParseAlgorithm(alg); err != nil {
			return fmt.Errorf("%s: params.%s: %w", prefix, ParamDigestAlgorithm, err)
		}
	}
	if enc, ok := repo.Params[ParamDigestEncoding]; ok {
		if _, err := digest.ParseEncoding(enc); err != nil {
			return fmt.Errorf("%s: params.%s: %w", prefix, ParamDigestEncoding, err)
		}
	}

	return nil
}

// validateItem validates a single item and its repository reference
func (c *Config) validateItem(item *ItemConfig, index int) error {
	prefix := fmt.Sprintf("item[%d] (%s)", index, item.Source)

	if err := validators.ValidateSource(item.Source); err != nil {
		return fmt.Errorf("item[%d]: %w", index, err)
	}
	if item.Destination == "" {
		return fmt.Errorf("%s: destination is required", prefix)
	}
	if item.Repository == "" {
		return fmt.Errorf("%s: repository is required", prefix)
	}

	repo, ok := c.Repository(item.Repository)
	if !ok {
		return fmt.Errorf("%s: repository %q is not defined", prefix, item.Repository)
	}

	switch repo.Type {
	case RepositoryTypeMaven:
		if _, _, err := validators.ValidateMavenCoordinates(item.Source); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
	case RepositoryTypeGitHubRelease:
		if _, _, err := validators.ValidateGitHubRepository(item.Source); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
	case RepositoryTypeJenkinsArtifact:
		pattern := item.Param(ParamArtifactRegex, "")
		if pattern == "" {
			return fmt.Errorf("%s: params.%s is required", prefix, ParamArtifactRegex)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%s: params.%s: %w", prefix, ParamArtifactRegex, err)
		}
	case RepositoryTypePaperMC:
		if item.Param(ParamVersion, "") == "" {
			return fmt.Errorf("%s: params.%s is required", prefix, ParamVersion)
		}
		if item.Param(ParamDownload, "") == "" {
			return fmt.Errorf("%s: params.%s is required", prefix, ParamDownload)
		}
	}

	return nil
}
