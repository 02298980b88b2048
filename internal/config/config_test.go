package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectenv/tools-index/internal/telemetry"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name             string
		yamlContent      string
		skipFileCreation bool
		wantConfig       *Config
		wantErr          string
	}{
		{
			name: "full_config",
			yamlContent: `datasources:
  - name: temurin
    type: temurin
    constraint: ">= 11"
  - name: nodejs
    type: nodejs
    url: https://mirror.example.com/node/index.json
  - name: ant
    type: gittags
    disabled: true
    gitTags:
      repository: https://github.com/apache/ant.git
      tagPattern: '^rel/(\d+\.\d+\.\d+)$'
      section: mavenVersions
      urlTemplate: https://archive.apache.org/dist/ant/binaries/apache-ant-{{.Version}}-bin.zip
http:
  maxAttempts: 5
  retryWait: 500ms
  permits: 10
  window: 1s
validation:
  concurrency: 8
  preserveOmitted: true
github:
  apiURL: https://github.example.com/api/v3
telemetry:
  enabled: true
  metrics:
    enabled: true`,
			wantConfig: &Config{
				Datasources: []DatasourceConfig{
					{Name: "temurin", Type: DatasourceTypeTemurin, Constraint: ">= 11"},
					{Name: "nodejs", Type: DatasourceTypeNodeJS, URL: "https://mirror.example.com/node/index.json"},
					{
						Name:     "ant",
						Type:     DatasourceTypeGitTags,
						Disabled: true,
						GitTags: &GitTagsConfig{
							Repository:  "https://github.com/apache/ant.git",
							TagPattern:  `^rel/(\d+\.\d+\.\d+)$`,
							Section:     "mavenVersions",
							URLTemplate: "https://archive.apache.org/dist/ant/binaries/apache-ant-{{.Version}}-bin.zip",
						},
					},
				},
				HTTP: &HTTPConfig{
					MaxAttempts: 5,
					RetryWait:   500 * time.Millisecond,
					Permits:     10,
					Window:      time.Second,
				},
				Validation: &ValidationConfig{Concurrency: 8, PreserveOmitted: true},
				GitHub:     &GitHubConfig{APIURL: "https://github.example.com/api/v3"},
				Telemetry: &telemetry.Config{
					Enabled: true,
					Metrics: &telemetry.MetricsConfig{Enabled: true},
				},
			},
		},
		{
			name: "minimal_config",
			yamlContent: `datasources:
  - name: gradle
    type: gradle`,
			wantConfig: &Config{
				Datasources: []DatasourceConfig{{Name: "gradle", Type: DatasourceTypeGradle}},
			},
		},
		{
			name:        "invalid_yaml",
			yamlContent: `datasources: [invalid yaml`,
			wantErr:     "failed to parse YAML config",
		},
		{
			name:        "invalid_configuration",
			yamlContent: `datasources: []`,
			wantErr:     "invalid configuration: at least one datasource must be configured",
		},
		{
			name:             "file_not_found",
			skipFileCreation: true,
			wantErr:          "failed to evaluate symlinks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			if tt.skipFileCreation {
				configPath = filepath.Join(tmpDir, "non-existent.yaml")
			} else {
				err := os.WriteFile(configPath, []byte(tt.yamlContent), 0600)
				require.NoError(t, err)
			}

			config, err := LoadConfig(WithConfigPath(configPath))

			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, config)
		})
	}
}

func TestLoadConfig_Default(t *testing.T) {
	t.Parallel()

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
	require.NoError(t, config.Validate())

	var names []string
	for _, ds := range config.Datasources {
		names = append(names, ds.Name)
	}
	assert.Equal(t, []string{"temurin", "graalvm", "nodejs", "maven", "mvnd", "gradle", "clojure"}, names)
}

func TestWithConfigPath(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("datasources: []"), 0600))

	linkPath := filepath.Join(tmpDir, "link.yaml")
	require.NoError(t, os.Symlink(configPath, linkPath))

	realPath, err := filepath.EvalSymlinks(configPath)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		wantPath string
		wantErr  bool
	}{
		{name: "empty path", path: "", wantErr: true},
		{name: "path traversal at start", path: "../etc/passwd", wantErr: true},
		{name: "missing file", path: filepath.Join(tmpDir, "missing.yaml"), wantErr: true},
		{name: "absolute path", path: configPath, wantPath: realPath},
		{name: "symlink is resolved", path: linkPath, wantPath: realPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &loaderConfig{}
			err := WithConfigPath(tt.path)(cfg)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, cfg.path)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	gitTags := func(mutate func(*GitTagsConfig)) *GitTagsConfig {
		g := &GitTagsConfig{
			Repository:  "https://github.com/apache/ant.git",
			TagPattern:  `^rel/(\d+\.\d+\.\d+)$`,
			Section:     "mavenVersions",
			URLTemplate: "https://example.com/{{.Version}}.zip",
		}
		if mutate != nil {
			mutate(g)
		}
		return g
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{name: "nil config", config: nil, wantErr: "config cannot be nil"},
		{name: "no datasources", config: &Config{}, wantErr: "at least one datasource must be configured"},
		{
			name:    "missing name",
			config:  &Config{Datasources: []DatasourceConfig{{Type: DatasourceTypeMaven}}},
			wantErr: "datasources[0]: name is required",
		},
		{
			name: "duplicate name",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "maven", Type: DatasourceTypeMaven},
				{Name: "maven", Type: DatasourceTypeMaven},
			}},
			wantErr: "datasources[1]: duplicate datasource name 'maven'",
		},
		{
			name:    "unknown type",
			config:  &Config{Datasources: []DatasourceConfig{{Name: "sdk", Type: "sdkman"}}},
			wantErr: "datasources[0] (sdk): unknown type 'sdkman'",
		},
		{
			name:    "invalid constraint",
			config:  &Config{Datasources: []DatasourceConfig{{Name: "node", Type: DatasourceTypeNodeJS, Constraint: ">= banana"}}},
			wantErr: "datasources[0] (node): invalid constraint",
		},
		{
			name: "gitTags on built-in type",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "maven", Type: DatasourceTypeMaven, GitTags: gitTags(nil)},
			}},
			wantErr: "gitTags is only valid for type gittags",
		},
		{
			name:    "gittags without settings",
			config:  &Config{Datasources: []DatasourceConfig{{Name: "ant", Type: DatasourceTypeGitTags}}},
			wantErr: "gitTags configuration is required",
		},
		{
			name: "gittags without repository",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "ant", Type: DatasourceTypeGitTags, GitTags: gitTags(func(g *GitTagsConfig) { g.Repository = "" })},
			}},
			wantErr: "gitTags.repository is required",
		},
		{
			name: "gittags pattern without capture group",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "ant", Type: DatasourceTypeGitTags, GitTags: gitTags(func(g *GitTagsConfig) { g.TagPattern = `^rel/.*$` })},
			}},
			wantErr: "must have exactly one capture group",
		},
		{
			name: "gittags invalid pattern",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "ant", Type: DatasourceTypeGitTags, GitTags: gitTags(func(g *GitTagsConfig) { g.TagPattern = `(` })},
			}},
			wantErr: "gitTags.tagPattern is invalid",
		},
		{
			name: "gittags multi level section",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "ant", Type: DatasourceTypeGitTags, GitTags: gitTags(func(g *GitTagsConfig) { g.Section = "nodeVersions" })},
			}},
			wantErr: "gitTags.section must be gradleVersions or mavenVersions",
		},
		{
			name: "gittags invalid template",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "ant", Type: DatasourceTypeGitTags, GitTags: gitTags(func(g *GitTagsConfig) { g.URLTemplate = "{{.Version" })},
			}},
			wantErr: "gitTags.urlTemplate is invalid",
		},
		{
			name: "negative concurrency",
			config: &Config{
				Datasources: []DatasourceConfig{{Name: "maven", Type: DatasourceTypeMaven}},
				Validation:  &ValidationConfig{Concurrency: -1},
			},
			wantErr: "validation.concurrency must not be negative",
		},
		{
			name: "valid gittags",
			config: &Config{Datasources: []DatasourceConfig{
				{Name: "ant", Type: DatasourceTypeGitTags, GitTags: gitTags(nil)},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	config := &Config{Datasources: []DatasourceConfig{
		{Name: "temurin", Type: DatasourceTypeTemurin},
		{Name: "nodejs", Type: DatasourceTypeNodeJS},
		{Name: "ant", Type: DatasourceTypeGitTags, Disabled: true},
		{Name: "maven", Type: DatasourceTypeMaven},
	}}

	names := func(selected []DatasourceConfig) []string {
		var out []string
		for _, ds := range selected {
			out = append(out, ds.Name)
		}
		return out
	}

	tests := []struct {
		name     string
		selector []string
		want     []string
		wantErr  string
	}{
		{name: "all enabled", selector: nil, want: []string{"temurin", "nodejs", "maven"}},
		{name: "configured order is kept", selector: []string{"maven", "temurin"}, want: []string{"temurin", "maven"}},
		{name: "disabled can be selected", selector: []string{"ant"}, want: []string{"ant"}},
		{
			name:     "unknown tool",
			selector: []string{"nodejs", "graalvm"},
			wantErr:  "unknown tool 'graalvm', available tools are: temurin, nodejs, ant, maven",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			selected, err := config.Select(tt.selector)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(selected))
		})
	}
}

func TestGetters(t *testing.T) {
	t.Parallel()

	empty := &Config{}
	assert.Equal(t, HTTPConfig{}, empty.GetHTTP())
	assert.Equal(t, ValidationConfig{Concurrency: DefaultValidationConcurrency}, empty.GetValidation())
	assert.Equal(t, DefaultGitHubAPIURL, empty.GetGitHubAPIURL())
	assert.Empty(t, empty.GetGitHubToken())

	full := &Config{
		HTTP:       &HTTPConfig{MaxAttempts: 2},
		Validation: &ValidationConfig{Concurrency: 4, Skip: true},
		GitHub:     &GitHubConfig{APIURL: "https://ghe.example.com/api/v3", Token: "secret"},
	}
	assert.Equal(t, 2, full.GetHTTP().MaxAttempts)
	assert.Equal(t, ValidationConfig{Concurrency: 4, Skip: true}, full.GetValidation())
	assert.Equal(t, "https://ghe.example.com/api/v3", full.GetGitHubAPIURL())
	assert.Equal(t, "secret", full.GetGitHubToken())
}
