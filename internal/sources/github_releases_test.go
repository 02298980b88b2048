package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/catalog/catalogtest"
	"github.com/projectenv/tools-index/internal/github"
	"github.com/projectenv/tools-index/internal/sources/mocks"
)

func TestMvndDatasource_Fetch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	gh.EXPECT().ListReleases(gomock.Any(), "apache", "maven-mvnd").Return([]github.Release{
		{
			TagName: "0.7.1",
			Assets: []github.Asset{
				asset("mvnd-0.7.1-darwin-amd64.zip"),
				asset("mvnd-0.7.1-linux-amd64.zip"),
				asset("mvnd-0.7.1-windows-amd64.zip"),
				asset("mvnd-0.7.1-linux-amd64.zip.sha256"),
				asset("mvnd-0.7.1-src.zip"),
			},
		},
		{
			TagName: "1.0.2",
			Assets: []github.Asset{
				asset("maven-mvnd-1.0.2-darwin-aarch64.zip"),
				asset("maven-mvnd-1.0.2-freebsd-amd64.zip"),
			},
		},
		{TagName: "1.0-m8", Assets: []github.Asset{asset("maven-mvnd-1.0-m8-m39-linux-amd64.zip")}},
	}, nil)

	result, err := NewMvndDatasource(gh).Fetch(context.Background())
	require.NoError(t, err)

	want := catalogtest.New(
		catalogtest.WithMvnd("0.7.1", catalog.MacOS, catalog.AMD64, "https://github.com/downloads/mvnd-0.7.1-darwin-amd64.zip"),
		catalogtest.WithMvnd("0.7.1", catalog.Linux, catalog.AMD64, "https://github.com/downloads/mvnd-0.7.1-linux-amd64.zip"),
		catalogtest.WithMvnd("0.7.1", catalog.Windows, catalog.AMD64, "https://github.com/downloads/mvnd-0.7.1-windows-amd64.zip"),
		catalogtest.WithMvnd("1.0.2", catalog.MacOS, catalog.AArch64, "https://github.com/downloads/maven-mvnd-1.0.2-darwin-aarch64.zip"),
	)
	assert.Equal(t, want, result)
}

func TestClojureDatasource_Fetch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	gh.EXPECT().ListReleases(gomock.Any(), "clojure", "brew-install").Return([]github.Release{
		{
			TagName: "1.11.1.1413",
			Assets: []github.Asset{
				asset("clojure-tools.zip"),
				asset("clojure-tools-1.11.1.1413.tar.gz"),
				asset("clojure-tools-1.11.1.1413.tar.gz.sha256"),
				asset("posix-install.sh"),
			},
		},
		{TagName: "v1.10", Assets: []github.Asset{asset("clojure-tools.zip")}},
	}, nil)

	result, err := NewClojureDatasource(gh).Fetch(context.Background())
	require.NoError(t, err)

	want := catalogtest.New(
		catalogtest.WithClojure("1.11.1.1413", catalog.Windows, "https://github.com/downloads/clojure-tools.zip"),
		catalogtest.WithClojure("1.11.1.1413", catalog.Linux, "https://github.com/downloads/clojure-tools-1.11.1.1413.tar.gz"),
		catalogtest.WithClojure("1.11.1.1413", catalog.MacOS, "https://github.com/downloads/clojure-tools-1.11.1.1413.tar.gz"),
	)
	assert.Equal(t, want, result)
}

func TestGitHubDatasources_PropagateErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("rate limited")

	tests := []struct {
		name    string
		owner   string
		repo    string
		create  func(GitHubClient) Datasource
		wantErr string
	}{
		{name: "mvnd", owner: "apache", repo: "maven-mvnd", create: NewMvndDatasource, wantErr: "failed to list Maven daemon releases"},
		{name: "clojure", owner: "clojure", repo: "brew-install", create: NewClojureDatasource, wantErr: "failed to list Clojure releases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			gh := mocks.NewMockGitHubClient(ctrl)
			gh.EXPECT().ListReleases(gomock.Any(), tt.owner, tt.repo).Return(nil, boom)

			_, err := tt.create(gh).Fetch(context.Background())
			require.ErrorIs(t, err, boom)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
