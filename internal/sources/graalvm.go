package sources

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/github"
	"github.com/projectenv/tools-index/internal/httpclient"
	"github.com/projectenv/tools-index/internal/versions"
)

const (
	// GraalVMDistributionPrefix prefixes the Java major to form a GraalVM CE distribution key, e.g. graalvm_ce17
	GraalVMDistributionPrefix = "graalvm_ce"

	graalVMOwner      = "graalvm"
	graalVMRepository = "graalvm-ce-builds"

	// maxReleaseFileSize bounds the release file read from an archive
	maxReleaseFileSize = 64 * 1024
)

var (
	// graalvm-ce-java17-linux-amd64-22.3.0.tar.gz, graalvm-community-jdk-21.0.1_windows-x64_bin.zip
	graalVMAssetPattern = regexp.MustCompile(`^graalvm-(?:ce|community)-(?:java|jdk-)(\d+)[^-_]*[-_](\w+)-(amd64|x64|aarch64)[-_](?:[\d.]+|bin)\.(?:tar\.gz|zip)$`)

	graalVMVersionPattern = regexp.MustCompile(`GRAALVM_VERSION="?([\d.]+)"?`)

	graalVMSynonymPrefixes = []string{"Graal VM CE ", "graalvm_ce", "graalvmce", "GraalVM CE ", "GraalVMCE", "GraalVM_CE"}
)

// graalVMDatasource lists the GraalVM CE builds of graalvm/graalvm-ce-builds.
//
// Asset names only carry the Java major, so the GraalVM version of a release is read
// from the release file inside its Windows zip. The archive is read with range
// requests, only its central directory and the release file are downloaded.
type graalVMDatasource struct {
	github GitHubClient
	client httpclient.Client
}

// NewGraalVMDatasource creates the GraalVM CE datasource
func NewGraalVMDatasource(gh GitHubClient, client httpclient.Client) Datasource {
	return &graalVMDatasource{github: gh, client: client}
}

type graalVMAsset struct {
	major string
	os    catalog.OperatingSystem
	arch  catalog.CPUArchitecture
	asset github.Asset
}

// Fetch implements Datasource
func (d *graalVMDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	releases, err := d.github.ListReleases(ctx, graalVMOwner, graalVMRepository)
	if err != nil {
		return nil, fmt.Errorf("failed to list GraalVM releases: %w", err)
	}
	slices.SortFunc(releases, func(a, b github.Release) int {
		return strings.Compare(a.TagName, b.TagName)
	})

	result := catalog.New()
	majors := map[string]struct{}{}
	for _, release := range releases {
		assets := graalVMAssets(release.Assets)
		if len(assets) == 0 {
			continue
		}

		archive, ok := graalVMVersionArchive(assets)
		if !ok {
			slog.Warn("No Windows archive to read the GraalVM version from", "tag", release.TagName)
			continue
		}
		version, err := d.readVersion(ctx, archive)
		if err != nil {
			return nil, fmt.Errorf("failed to read GraalVM version of release %s: %w", release.TagName, err)
		}

		for _, a := range assets {
			if err := result.Put(catalog.Leaf{
				Path: catalog.Path{
					Section:      catalog.SectionJDK,
					Distribution: GraalVMDistributionPrefix + a.major,
					Version:      version,
					OS:           a.os,
					Arch:         a.arch,
				},
				URL: a.asset.BrowserDownloadURL,
			}); err != nil {
				return nil, err
			}
			majors[a.major] = struct{}{}
		}
	}

	for major := range majors {
		names := make([]string, 0, len(graalVMSynonymPrefixes))
		for _, prefix := range graalVMSynonymPrefixes {
			names = append(names, prefix+major)
		}
		result.AddSynonyms(GraalVMDistributionPrefix+major, names...)
	}
	return result, nil
}

func graalVMAssets(assets []github.Asset) []graalVMAsset {
	var result []graalVMAsset
	for _, asset := range assets {
		m := graalVMAssetPattern.FindStringSubmatch(asset.Name)
		if m == nil {
			continue
		}

		var os catalog.OperatingSystem
		switch m[2] {
		case "darwin", "macos":
			os = catalog.MacOS
		case "linux":
			os = catalog.Linux
		case "windows":
			os = catalog.Windows
		default:
			continue
		}

		arch := catalog.AMD64
		if m[3] == "aarch64" {
			arch = catalog.AArch64
		}
		result = append(result, graalVMAsset{major: m[1], os: os, arch: arch, asset: asset})
	}
	return result
}

// graalVMVersionArchive picks the Windows zip of the lowest Java major.
func graalVMVersionArchive(assets []graalVMAsset) (github.Asset, bool) {
	var (
		found graalVMAsset
		ok    bool
	)
	for _, a := range assets {
		if a.os != catalog.Windows || !strings.HasSuffix(a.asset.Name, ".zip") {
			continue
		}
		if !ok || versions.Compare(a.major, found.major) < 0 {
			found, ok = a, true
		}
	}
	return found.asset, ok
}

// readVersion reads GRAALVM_VERSION from the release file of a zip archive.
func (d *graalVMDatasource) readVersion(ctx context.Context, asset github.Asset) (string, error) {
	if asset.Size <= 0 {
		return "", fmt.Errorf("size of %s is unknown", asset.Name)
	}

	r := httpclient.NewRangeReader(ctx, d.client, asset.BrowserDownloadURL, asset.Size)
	archive, err := zip.NewReader(r, r.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", asset.Name, err)
	}

	for _, f := range archive.File {
		if !strings.HasSuffix(f.Name, "/release") {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("failed to read %s from %s: %w", f.Name, asset.Name, err)
		}
		m := graalVMVersionPattern.FindSubmatch(data)
		if m == nil {
			return "", fmt.Errorf("%s of %s has no GRAALVM_VERSION", f.Name, asset.Name)
		}
		return string(m[1]), nil
	}
	return "", fmt.Errorf("no release file in %s", asset.Name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	return io.ReadAll(io.LimitReader(rc, maxReleaseFileSize))
}
