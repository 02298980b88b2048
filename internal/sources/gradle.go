package sources

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/httpclient"
)

const (
	// DefaultGradleVersionsURL lists every Gradle version ever published
	DefaultGradleVersionsURL = "https://services.gradle.org/versions/all"

	gradleDownloadURL = "https://downloads.gradle.org/distributions/gradle-%s-bin.zip"
)

// gradleDatasource reads the Gradle version service and keeps final releases only
type gradleDatasource struct {
	client      httpclient.Client
	versionsURL string
}

// NewGradleDatasource creates the Gradle datasource. An empty versionsURL uses DefaultGradleVersionsURL.
func NewGradleDatasource(client httpclient.Client, versionsURL string) Datasource {
	if versionsURL == "" {
		versionsURL = DefaultGradleVersionsURL
	}
	return &gradleDatasource{client: client, versionsURL: versionsURL}
}

// Fetch implements Datasource
func (d *gradleDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	body, err := d.client.Get(ctx, d.versionsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Gradle versions: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse Gradle versions from %s: invalid JSON", d.versionsURL)
	}

	result := catalog.New()
	gjson.ParseBytes(body).ForEach(func(_, v gjson.Result) bool {
		version := v.Get("version").String()
		if version == "" || !isGradleRelease(v) {
			return true
		}
		result.GradleVersions[version] = fmt.Sprintf(gradleDownloadURL, version)
		return true
	})
	return result, nil
}

// isGradleRelease reports whether a version entry is a final, usable release.
func isGradleRelease(v gjson.Result) bool {
	for _, flag := range []string{"snapshot", "nightly", "releaseNightly", "broken"} {
		if v.Get(flag).Bool() {
			return false
		}
	}
	return v.Get("rcFor").String() == "" && v.Get("milestoneFor").String() == ""
}
