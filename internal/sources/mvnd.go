package sources

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/projectenv/tools-index/internal/catalog"
)

var (
	mvndTagPattern = regexp.MustCompile(`^([\d.]+)$`)

	// mvnd-0.7.1-darwin-amd64.zip, maven-mvnd-1.0.2-linux-aarch64.zip
	mvndAssetPattern = regexp.MustCompile(`^(?:maven-)?mvnd-[\d.]+-(\w+)-(amd64|aarch64)\.zip$`)
)

// mvndDatasource lists the native Maven daemon builds of apache/maven-mvnd
type mvndDatasource struct {
	github GitHubClient
}

// NewMvndDatasource creates the Maven daemon datasource
func NewMvndDatasource(gh GitHubClient) Datasource {
	return &mvndDatasource{github: gh}
}

// Fetch implements Datasource
func (d *mvndDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	releases, err := d.github.ListReleases(ctx, "apache", "maven-mvnd")
	if err != nil {
		return nil, fmt.Errorf("failed to list Maven daemon releases: %w", err)
	}

	result := catalog.New()
	for _, release := range releases {
		m := mvndTagPattern.FindStringSubmatch(release.TagName)
		if m == nil {
			slog.Debug("Unexpected release tag name", "repository", "apache/maven-mvnd", "tag", release.TagName)
			continue
		}
		version := m[1]

		for _, asset := range release.Assets {
			am := mvndAssetPattern.FindStringSubmatch(asset.Name)
			if am == nil {
				continue
			}
			os, err := mvndOperatingSystem(am[1])
			if err != nil {
				slog.Debug("Skipping asset", "asset", asset.Name, "error", err)
				continue
			}
			arch, err := catalog.ParseCPUArchitecture(am[2])
			if err != nil {
				return nil, err
			}
			if err := result.Put(catalog.Leaf{
				Path: catalog.Path{Section: catalog.SectionMvnd, Version: version, OS: os, Arch: arch},
				URL:  asset.BrowserDownloadURL,
			}); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func mvndOperatingSystem(name string) (catalog.OperatingSystem, error) {
	if name == "darwin" {
		return catalog.MacOS, nil
	}
	return catalog.ParseOperatingSystem(name)
}
