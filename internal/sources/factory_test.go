package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/config"
	"github.com/projectenv/tools-index/internal/github"
	"github.com/projectenv/tools-index/internal/sources/mocks"
)

func TestFactory_CreateDatasource(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	deps := Dependencies{
		HTTPClient: newTestClient(),
		GitHub:     mocks.NewMockGitHubClient(ctrl),
		Git:        &fakeGitClient{},
	}

	tests := []struct {
		name    string
		cfg     *config.DatasourceConfig
		want    any
		wantErr string
	}{
		{name: "temurin", cfg: &config.DatasourceConfig{Name: "temurin", Type: config.DatasourceTypeTemurin}, want: &temurinDatasource{}},
		{name: "graalvm", cfg: &config.DatasourceConfig{Name: "graalvm", Type: config.DatasourceTypeGraalVM}, want: &graalVMDatasource{}},
		{name: "mvnd", cfg: &config.DatasourceConfig{Name: "mvnd", Type: config.DatasourceTypeMvnd}, want: &mvndDatasource{}},
		{name: "clojure", cfg: &config.DatasourceConfig{Name: "clojure", Type: config.DatasourceTypeClojure}, want: &clojureDatasource{}},
		{name: "nodejs", cfg: &config.DatasourceConfig{Name: "nodejs", Type: config.DatasourceTypeNodeJS}, want: &nodeJSDatasource{}},
		{name: "maven", cfg: &config.DatasourceConfig{Name: "maven", Type: config.DatasourceTypeMaven}, want: &mavenDatasource{}},
		{name: "gradle", cfg: &config.DatasourceConfig{Name: "gradle", Type: config.DatasourceTypeGradle}, want: &gradleDatasource{}},
		{
			name: "gittags",
			cfg:  &config.DatasourceConfig{Name: "ant", Type: config.DatasourceTypeGitTags, GitTags: antConfig()},
			want: &gitTagsDatasource{},
		},
		{
			name: "constrained",
			cfg:  &config.DatasourceConfig{Name: "temurin", Type: config.DatasourceTypeTemurin, Constraint: ">= 17"},
			want: &constrainedDatasource{},
		},
		{
			name:    "gittags without settings",
			cfg:     &config.DatasourceConfig{Name: "ant", Type: config.DatasourceTypeGitTags},
			wantErr: "datasource ant: gitTags configuration is required",
		},
		{
			name:    "invalid constraint",
			cfg:     &config.DatasourceConfig{Name: "gradle", Type: config.DatasourceTypeGradle, Constraint: "not a range"},
			wantErr: "datasource gradle: invalid constraint",
		},
		{
			name:    "unsupported type",
			cfg:     &config.DatasourceConfig{Name: "sdkman", Type: "sdkman"},
			wantErr: "unsupported datasource type: sdkman",
		},
		{
			name:    "nil config",
			wantErr: "datasource configuration cannot be nil",
		},
	}

	factory := NewFactory(deps)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ds, err := factory.CreateDatasource(tt.cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, ds)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, ds)
		})
	}
}

func TestFactory_MissingDependencies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.DatasourceConfig
		wantErr string
	}{
		{
			name:    "GitHub client",
			cfg:     &config.DatasourceConfig{Name: "temurin", Type: config.DatasourceTypeTemurin},
			wantErr: "datasource temurin: GitHub client is not configured",
		},
		{
			name:    "HTTP client",
			cfg:     &config.DatasourceConfig{Name: "nodejs", Type: config.DatasourceTypeNodeJS},
			wantErr: "datasource nodejs: HTTP client is not configured",
		},
		{
			name:    "git client",
			cfg:     &config.DatasourceConfig{Name: "ant", Type: config.DatasourceTypeGitTags, GitTags: antConfig()},
			wantErr: "datasource ant: git client is not configured",
		},
	}

	factory := NewFactory(Dependencies{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := factory.CreateDatasource(tt.cfg)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFactory_GraalVMNeedsHTTPClient(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	factory := NewFactory(Dependencies{GitHub: mocks.NewMockGitHubClient(ctrl)})
	_, err := factory.CreateDatasource(&config.DatasourceConfig{Name: "graalvm", Type: config.DatasourceTypeGraalVM})
	require.ErrorContains(t, err, "datasource graalvm: HTTP client is not configured")
}

func TestFactory_ConstraintFiltersFetch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	gh.EXPECT().ListReleases(gomock.Any(), "apache", "maven-mvnd").Return([]github.Release{
		{TagName: "0.9.0", Assets: []github.Asset{asset("mvnd-0.9.0-linux-amd64.zip")}},
		{TagName: "1.0.2", Assets: []github.Asset{asset("maven-mvnd-1.0.2-linux-amd64.zip")}},
	}, nil)

	ds, err := NewFactory(Dependencies{GitHub: gh}).CreateDatasource(&config.DatasourceConfig{
		Name:       "mvnd",
		Type:       config.DatasourceTypeMvnd,
		Constraint: ">= 1.0",
	})
	require.NoError(t, err)

	result, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.2"}, catalog.SortedVersions(result.MvndVersions))
}
