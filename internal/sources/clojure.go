package sources

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/projectenv/tools-index/internal/catalog"
)

var clojureTagPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+\.\d+)$`)

// clojureDatasource lists the Clojure CLI tools archives of clojure/brew-install.
// The zip archive serves Windows, the tarball serves Linux and macOS.
type clojureDatasource struct {
	github GitHubClient
}

// NewClojureDatasource creates the Clojure datasource
func NewClojureDatasource(gh GitHubClient) Datasource {
	return &clojureDatasource{github: gh}
}

// Fetch implements Datasource
func (d *clojureDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	releases, err := d.github.ListReleases(ctx, "clojure", "brew-install")
	if err != nil {
		return nil, fmt.Errorf("failed to list Clojure releases: %w", err)
	}

	result := catalog.New()
	for _, release := range releases {
		m := clojureTagPattern.FindStringSubmatch(release.TagName)
		if m == nil {
			slog.Debug("Unexpected release tag name", "repository", "clojure/brew-install", "tag", release.TagName)
			continue
		}
		version := m[1]

		for _, asset := range release.Assets {
			var targets []catalog.OperatingSystem
			switch asset.Name {
			case "clojure-tools.zip":
				targets = []catalog.OperatingSystem{catalog.Windows}
			case "clojure-tools-" + version + ".tar.gz":
				targets = []catalog.OperatingSystem{catalog.Linux, catalog.MacOS}
			default:
				continue
			}
			for _, os := range targets {
				if err := result.Put(catalog.Leaf{
					Path: catalog.Path{Section: catalog.SectionClojure, Version: version, OS: os},
					URL:  asset.BrowserDownloadURL,
				}); err != nil {
					return nil, err
				}
			}
		}
	}
	return result, nil
}
