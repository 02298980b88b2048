package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/httpclient"
)

// DefaultNodeJSIndexURL is the distribution index published by the Node.js project
const DefaultNodeJSIndexURL = "https://nodejs.org/dist/index.json"

// nodePlatform maps an entry of the "files" list of the distribution index to
// the archive published for it.
type nodePlatform struct {
	os      catalog.OperatingSystem
	arch    catalog.CPUArchitecture
	archive string
}

var nodePlatforms = map[string]nodePlatform{
	"osx-x64-tar":   {os: catalog.MacOS, arch: catalog.AMD64, archive: "darwin-x64.tar.xz"},
	"osx-arm64-tar": {os: catalog.MacOS, arch: catalog.AArch64, archive: "darwin-arm64.tar.xz"},
	"win-x64-zip":   {os: catalog.Windows, arch: catalog.AMD64, archive: "win-x64.zip"},
	"win-arm64-zip": {os: catalog.Windows, arch: catalog.AArch64, archive: "win-arm64.zip"},
	"linux-x64":     {os: catalog.Linux, arch: catalog.AMD64, archive: "linux-x64.tar.xz"},
	"linux-arm64":   {os: catalog.Linux, arch: catalog.AArch64, archive: "linux-arm64.tar.xz"},
}

// nodeJSDatasource reads the Node.js distribution index
type nodeJSDatasource struct {
	client   httpclient.Client
	indexURL string
}

// NewNodeJSDatasource creates the Node.js datasource. An empty indexURL uses DefaultNodeJSIndexURL.
// Download URLs are resolved relative to the directory of the index.
func NewNodeJSDatasource(client httpclient.Client, indexURL string) Datasource {
	if indexURL == "" {
		indexURL = DefaultNodeJSIndexURL
	}
	return &nodeJSDatasource{client: client, indexURL: indexURL}
}

// Fetch implements Datasource
func (d *nodeJSDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	body, err := d.client.Get(ctx, d.indexURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Node.js index: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse Node.js index from %s: invalid JSON", d.indexURL)
	}

	baseURL := d.indexURL[:strings.LastIndex(d.indexURL, "/")+1]
	result := catalog.New()

	var putErr error
	gjson.ParseBytes(body).ForEach(func(_, release gjson.Result) bool {
		tag := release.Get("version").String()
		version := strings.TrimPrefix(tag, "v")
		if version == "" || version == tag {
			return true
		}

		for _, file := range release.Get("files").Array() {
			platform, ok := nodePlatforms[file.String()]
			if !ok {
				continue
			}
			putErr = result.Put(catalog.Leaf{
				Path: catalog.Path{Section: catalog.SectionNode, Version: version, OS: platform.os, Arch: platform.arch},
				URL:  fmt.Sprintf("%s%s/node-%s-%s", baseURL, tag, tag, platform.archive),
			})
			if putErr != nil {
				return false
			}
		}
		return true
	})
	if putErr != nil {
		return nil, putErr
	}

	return result, nil
}
