// Package config provides configuration loading and validation for the tools index producer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/telemetry"
	"github.com/projectenv/tools-index/internal/versions"
)

// EnvPrefix is the prefix of environment variables read by the CLI
const EnvPrefix = "TOOLS_INDEX"

// Datasource types
const (
	DatasourceTypeTemurin = "temurin"
	DatasourceTypeGraalVM = "graalvm"
	DatasourceTypeNodeJS  = "nodejs"
	DatasourceTypeMaven   = "maven"
	DatasourceTypeMvnd    = "mvnd"
	DatasourceTypeGradle  = "gradle"
	DatasourceTypeClojure = "clojure"
	DatasourceTypeGitTags = "gittags"
)

// DatasourceTypes lists every supported datasource type
var DatasourceTypes = []string{
	DatasourceTypeTemurin,
	DatasourceTypeGraalVM,
	DatasourceTypeNodeJS,
	DatasourceTypeMaven,
	DatasourceTypeMvnd,
	DatasourceTypeGradle,
	DatasourceTypeClojure,
	DatasourceTypeGitTags,
}

const (
	// DefaultValidationConcurrency is the default number of simultaneous URL probes
	DefaultValidationConcurrency = 40

	// DefaultGitHubAPIURL is the default GitHub REST API endpoint
	DefaultGitHubAPIURL = "https://api.github.com"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

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

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Datasources run in parallel; their results are merged in list order.
	Datasources []DatasourceConfig `yaml:"datasources"`
	HTTP        *HTTPConfig        `yaml:"http,omitempty"`
	Validation  *ValidationConfig  `yaml:"validation,omitempty"`
	GitHub      *GitHubConfig      `yaml:"github,omitempty"`
	Telemetry   *telemetry.Config  `yaml:"telemetry,omitempty"`
}

// DatasourceConfig defines a single datasource
type DatasourceConfig struct {
	// Name identifies the datasource in logs, metrics and the --tools selector
	Name string `yaml:"name"`

	// Type selects the implementation, one of DatasourceTypes
	Type string `yaml:"type"`

	// Disabled excludes the datasource unless explicitly selected
	Disabled bool `yaml:"disabled,omitempty"`

	// Constraint is a semver range restricting the versions kept, e.g. ">= 11"
	Constraint string `yaml:"constraint,omitempty"`

	// URL overrides the upstream endpoint of the built-in datasource types
	URL string `yaml:"url,omitempty"`

	// GitTags configures datasources of type gittags
	GitTags *GitTagsConfig `yaml:"gitTags,omitempty"`
}

// GitTagsConfig derives catalog entries from the tags of a git repository
type GitTagsConfig struct {
	// Repository is the remote URL listed with ls-remote
	Repository string `yaml:"repository"`

	// TagPattern is a regular expression with one capture group extracting the version
	TagPattern string `yaml:"tagPattern"`

	// Section is the single-URL catalog section entries are written to
	// (gradleVersions or mavenVersions)
	Section string `yaml:"section"`

	// URLTemplate renders the download URL, e.g. "https://example.com/{{.Version}}/tool.zip"
	URLTemplate string `yaml:"urlTemplate"`
}

// HTTPConfig tunes the shared outbound transport
type HTTPConfig struct {
	MaxAttempts   int           `yaml:"maxAttempts,omitempty"`
	RetryWait     time.Duration `yaml:"retryWait,omitempty"`
	Permits       int           `yaml:"permits,omitempty"`
	Window        time.Duration `yaml:"window,omitempty"`
	PermitTimeout time.Duration `yaml:"permitTimeout,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
}

// ValidationConfig controls URL validation of the merged catalog
type ValidationConfig struct {
	// Skip disables probing; the merged catalog is written as is
	Skip bool `yaml:"skip,omitempty"`

	// Concurrency is the maximum number of simultaneous probes
	Concurrency int `yaml:"concurrency,omitempty"`

	// PreserveOmitted carries over entries of the previous catalog that the merged
	// catalog no longer contains
	PreserveOmitted bool `yaml:"preserveOmitted,omitempty"`
}

// GitHubConfig configures access to the GitHub REST API
type GitHubConfig struct {
	APIURL string `yaml:"apiURL,omitempty"`
	// Token is usually supplied with --github-token or TOOLS_INDEX_GITHUB_TOKEN instead
	Token string `yaml:"token,omitempty"`
}

// Default returns the configuration used when no file is given: every built-in
// datasource, in the order the index has always been assembled.
func Default() *Config {
	return &Config{
		Datasources: []DatasourceConfig{
			{Name: DatasourceTypeTemurin, Type: DatasourceTypeTemurin},
			{Name: DatasourceTypeGraalVM, Type: DatasourceTypeGraalVM},
			{Name: DatasourceTypeNodeJS, Type: DatasourceTypeNodeJS},
			{Name: DatasourceTypeMaven, Type: DatasourceTypeMaven},
			{Name: DatasourceTypeMvnd, Type: DatasourceTypeMvnd},
			{Name: DatasourceTypeGradle, Type: DatasourceTypeGradle},
			{Name: DatasourceTypeClojure, Type: DatasourceTypeClojure},
		},
	}
}

// LoadConfig loads and parses configuration from a YAML file.
// Without WithConfigPath it returns Default().
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Datasources) == 0 {
		return fmt.Errorf("at least one datasource must be configured")
	}

	names := make(map[string]bool)
	for i, ds := range c.Datasources {
		if ds.Name == "" {
			return fmt.Errorf("datasources[%d]: name is required", i)
		}
		if names[ds.Name] {
			return fmt.Errorf("datasources[%d]: duplicate datasource name '%s'", i, ds.Name)
		}
		names[ds.Name] = true

		if err := validateDatasource(&ds, fmt.Sprintf("datasources[%d] (%s)", i, ds.Name)); err != nil {
			return err
		}
	}

	if c.Validation != nil && c.Validation.Concurrency < 0 {
		return fmt.Errorf("validation.concurrency must not be negative")
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func validateDatasource(ds *DatasourceConfig, prefix string) error {
	if !slices.Contains(DatasourceTypes, ds.Type) {
		return fmt.Errorf("%s: unknown type '%s', must be one of %s", prefix, ds.Type, strings.Join(DatasourceTypes, ", "))
	}

	if ds.Constraint != "" {
		if _, err := versions.ParseConstraint(ds.Constraint); err != nil {
			return fmt.Errorf("%s: invalid constraint: %w", prefix, err)
		}
	}

	if ds.Type != DatasourceTypeGitTags {
		if ds.GitTags != nil {
			return fmt.Errorf("%s: gitTags is only valid for type %s", prefix, DatasourceTypeGitTags)
		}
		return nil
	}

	return validateGitTags(ds.GitTags, prefix)
}

func validateGitTags(g *GitTagsConfig, prefix string) error {
	if g == nil {
		return fmt.Errorf("%s: gitTags configuration is required", prefix)
	}
	if g.Repository == "" {
		return fmt.Errorf("%s: gitTags.repository is required", prefix)
	}

	pattern, err := regexp.Compile(g.TagPattern)
	if err != nil {
		return fmt.Errorf("%s: gitTags.tagPattern is invalid: %w", prefix, err)
	}
	if pattern.NumSubexp() != 1 {
		return fmt.Errorf("%s: gitTags.tagPattern must have exactly one capture group", prefix)
	}

	section, err := catalog.ParseSection(g.Section)
	if err != nil {
		return fmt.Errorf("%s: gitTags.section: %w", prefix, err)
	}
	if section != catalog.SectionGradle && section != catalog.SectionMaven {
		return fmt.Errorf("%s: gitTags.section must be %s or %s", prefix, catalog.SectionGradle, catalog.SectionMaven)
	}

	if g.URLTemplate == "" {
		return fmt.Errorf("%s: gitTags.urlTemplate is required", prefix)
	}
	if _, err := template.New("url").Parse(g.URLTemplate); err != nil {
		return fmt.Errorf("%s: gitTags.urlTemplate is invalid: %w", prefix, err)
	}

	return nil
}

// Select returns the datasources to run, in configured order.
// An empty selector returns every datasource that is not disabled; otherwise exactly the
// named datasources are returned and unknown names are an error.
func (c *Config) Select(selector []string) ([]DatasourceConfig, error) {
	if len(selector) == 0 {
		var selected []DatasourceConfig
		for _, ds := range c.Datasources {
			if !ds.Disabled {
				selected = append(selected, ds)
			}
		}
		return selected, nil
	}

	available := make([]string, 0, len(c.Datasources))
	for _, ds := range c.Datasources {
		available = append(available, ds.Name)
	}
	for _, name := range selector {
		if !slices.Contains(available, name) {
			return nil, fmt.Errorf("unknown tool '%s', available tools are: %s", name, strings.Join(available, ", "))
		}
	}

	var selected []DatasourceConfig
	for _, ds := range c.Datasources {
		if slices.Contains(selector, ds.Name) {
			selected = append(selected, ds)
		}
	}
	return selected, nil
}

// GetHTTP returns the HTTP settings, never nil
func (c *Config) GetHTTP() HTTPConfig {
	if c.HTTP == nil {
		return HTTPConfig{}
	}
	return *c.HTTP
}

// GetValidation returns the validation settings with defaults applied
func (c *Config) GetValidation() ValidationConfig {
	v := ValidationConfig{}
	if c.Validation != nil {
		v = *c.Validation
	}
	if v.Concurrency == 0 {
		v.Concurrency = DefaultValidationConcurrency
	}
	return v
}

// GetGitHubAPIURL returns the GitHub API URL, using default if not specified
func (c *Config) GetGitHubAPIURL() string {
	if c.GitHub == nil || c.GitHub.APIURL == "" {
		return DefaultGitHubAPIURL
	}
	return c.GitHub.APIURL
}

// GetGitHubToken returns the configured GitHub token, if any
func (c *Config) GetGitHubToken() string {
	if c.GitHub == nil {
		return ""
	}
	return c.GitHub.Token
}
