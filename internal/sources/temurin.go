package sources

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/versions"
)

const (
	// TemurinDistribution is the JDK distribution key of Temurin builds
	TemurinDistribution = "temurin"

	temurinOrganization = "adoptium"
)

var (
	temurinRepositoryPattern = regexp.MustCompile(`^temurin(\d+)-binaries$`)

	// jdk8u292-b10, jdk-11.0.13+8, jdk-17.0.4.1+1
	temurinTagPattern = regexp.MustCompile(`^jdk-?(\d+)(\.0.|u)([\d.]+)(\+|-b)(\d+)(\.\d*|)$`)

	// OpenJDK17U-jdk_x64_linux_hotspot_17.0.8.1_1.tar.gz
	temurinAssetPattern = regexp.MustCompile(`^OpenJDK\d+U-jdk_(x64|aarch64)_(\w+)_hotspot_(.+)\.(tar\.gz|zip)$`)

	temurinSynonyms = []string{"Temurin", "temurin", "TEMURIN"}
)

// temurinDatasource lists the JDK builds attached to the releases of every
// adoptium/temurin<N>-binaries repository.
type temurinDatasource struct {
	github GitHubClient
}

// NewTemurinDatasource creates the Temurin JDK datasource
func NewTemurinDatasource(gh GitHubClient) Datasource {
	return &temurinDatasource{github: gh}
}

// Fetch implements Datasource
func (d *temurinDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	repositories, err := d.github.ListOrganizationRepositories(ctx, temurinOrganization)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s repositories: %w", temurinOrganization, err)
	}

	var names []string
	for _, repo := range repositories {
		if temurinRepositoryPattern.MatchString(repo.Name) {
			names = append(names, repo.Name)
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		return versions.Compare(temurinRepositoryPattern.FindStringSubmatch(a)[1], temurinRepositoryPattern.FindStringSubmatch(b)[1])
	})

	result := catalog.New()
	for _, name := range names {
		releases, err := d.github.ListReleases(ctx, temurinOrganization, name)
		if err != nil {
			return nil, fmt.Errorf("failed to list releases of %s/%s: %w", temurinOrganization, name, err)
		}

		for _, release := range releases {
			version, ok := temurinVersion(release.TagName)
			if !ok {
				slog.Debug("Unexpected release tag name", "repository", name, "tag", release.TagName)
				continue
			}

			for _, asset := range release.Assets {
				os, arch, ok := temurinPlatform(asset.Name)
				if !ok {
					continue
				}
				if err := result.Put(catalog.Leaf{
					Path: catalog.Path{
						Section:      catalog.SectionJDK,
						Distribution: TemurinDistribution,
						Version:      version,
						OS:           os,
						Arch:         arch,
					},
					URL: asset.BrowserDownloadURL,
				}); err != nil {
					return nil, err
				}
			}
		}
	}

	result.AddSynonyms(TemurinDistribution, temurinSynonyms...)
	return result, nil
}

// temurinVersion normalizes a release tag to "<major>.0.<minor>+<build>".
func temurinVersion(tag string) (string, bool) {
	m := temurinTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return "", false
	}
	build := strings.TrimLeft(m[5], "0")
	if build == "" {
		build = "0"
	}
	return m[1] + ".0." + m[3] + "+" + build, true
}

func temurinPlatform(assetName string) (catalog.OperatingSystem, catalog.CPUArchitecture, bool) {
	m := temurinAssetPattern.FindStringSubmatch(assetName)
	if m == nil {
		return "", "", false
	}

	var arch catalog.CPUArchitecture
	switch m[1] {
	case "x64":
		arch = catalog.AMD64
	case "aarch64":
		arch = catalog.AArch64
	}

	switch m[2] {
	case "mac":
		return catalog.MacOS, arch, true
	case "linux":
		return catalog.Linux, arch, true
	case "windows":
		return catalog.Windows, arch, true
	default:
		return "", "", false
	}
}
