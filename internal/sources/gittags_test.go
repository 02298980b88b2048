package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/catalog/catalogtest"
	"github.com/projectenv/tools-index/internal/config"
)

// fakeGitClient returns fixed tags per repository
type fakeGitClient struct {
	tags map[string][]string
	err  error
}

func (f *fakeGitClient) ListTags(_ context.Context, repository string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tags[repository], nil
}

func antConfig() *config.GitTagsConfig {
	return &config.GitTagsConfig{
		Repository:  "https://github.com/apache/ant.git",
		TagPattern:  `^rel/(\d+\.\d+\.\d+)$`,
		Section:     string(catalog.SectionMaven),
		URLTemplate: "https://archive.apache.org/dist/ant/binaries/apache-ant-{{.Version}}-bin.zip",
	}
}

func TestGitTagsDatasource_Fetch(t *testing.T) {
	t.Parallel()

	client := &fakeGitClient{tags: map[string][]string{
		"https://github.com/apache/ant.git": {"ANT_1.8.0", "rel/1.10.14", "rel/1.9.16", "rel/1.10.14-rc1"},
	}}

	ds, err := NewGitTagsDatasource(client, antConfig())
	require.NoError(t, err)

	result, err := ds.Fetch(context.Background())
	require.NoError(t, err)

	want := catalogtest.New(
		catalogtest.WithMaven("1.10.14", "https://archive.apache.org/dist/ant/binaries/apache-ant-1.10.14-bin.zip"),
		catalogtest.WithMaven("1.9.16", "https://archive.apache.org/dist/ant/binaries/apache-ant-1.9.16-bin.zip"),
	)
	assert.Equal(t, want, result)
}

func TestGitTagsDatasource_TagInTemplate(t *testing.T) {
	t.Parallel()

	cfg := &config.GitTagsConfig{
		Repository:  "repo",
		TagPattern:  `^v(.+)$`,
		Section:     string(catalog.SectionGradle),
		URLTemplate: "https://example.com/{{.Tag}}/tool-{{.Version}}.zip",
	}
	ds, err := NewGitTagsDatasource(&fakeGitClient{tags: map[string][]string{"repo": {"v2.1", "v"}}}, cfg)
	require.NoError(t, err)

	result, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, catalogtest.New(catalogtest.WithGradle("2.1", "https://example.com/v2.1/tool-2.1.zip")), result)
}

func TestGitTagsDatasource_ListError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	ds, err := NewGitTagsDatasource(&fakeGitClient{err: boom}, antConfig())
	require.NoError(t, err)

	_, err = ds.Fetch(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestNewGitTagsDatasource_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.GitTagsConfig)
		wantErr string
	}{
		{
			name:    "invalid pattern",
			mutate:  func(c *config.GitTagsConfig) { c.TagPattern = `^rel/(\d+$` },
			wantErr: "invalid tag pattern",
		},
		{
			name:    "no capture group",
			mutate:  func(c *config.GitTagsConfig) { c.TagPattern = `^rel/.*$` },
			wantErr: "exactly one capture group",
		},
		{
			name:    "two capture groups",
			mutate:  func(c *config.GitTagsConfig) { c.TagPattern = `^(rel)/(.*)$` },
			wantErr: "exactly one capture group",
		},
		{
			name:    "unknown section",
			mutate:  func(c *config.GitTagsConfig) { c.Section = "antVersions" },
			wantErr: "unknown catalog section",
		},
		{
			name:    "multi level section",
			mutate:  func(c *config.GitTagsConfig) { c.Section = string(catalog.SectionNode) },
			wantErr: "does not hold single urls",
		},
		{
			name:    "invalid template",
			mutate:  func(c *config.GitTagsConfig) { c.URLTemplate = "https://example.com/{{.Version" },
			wantErr: "invalid url template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := antConfig()
			tt.mutate(cfg)
			_, err := NewGitTagsDatasource(&fakeGitClient{}, cfg)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		_, err := NewGitTagsDatasource(&fakeGitClient{}, nil)
		require.ErrorContains(t, err, "gitTags configuration is required")
	})
}
