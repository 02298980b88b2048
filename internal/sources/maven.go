package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/httpclient"
)

// DefaultMavenArchiveURL is the Apache archive directory holding every Maven 3 release
const DefaultMavenArchiveURL = "https://archive.apache.org/dist/maven/maven-3/"

var mavenVersionDirPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+)/$`)

// mavenDatasource reads the version directories of the Apache archive listing
type mavenDatasource struct {
	client     httpclient.Client
	archiveURL string
}

// NewMavenDatasource creates the Maven datasource. An empty archiveURL uses DefaultMavenArchiveURL.
func NewMavenDatasource(client httpclient.Client, archiveURL string) Datasource {
	if archiveURL == "" {
		archiveURL = DefaultMavenArchiveURL
	}
	if !strings.HasSuffix(archiveURL, "/") {
		archiveURL += "/"
	}
	return &mavenDatasource{client: client, archiveURL: archiveURL}
}

// Fetch implements Datasource
func (d *mavenDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	body, err := d.client.Get(ctx, d.archiveURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Maven archive listing: %w", err)
	}

	hrefs, err := anchorHrefs(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Maven archive listing: %w", err)
	}

	result := catalog.New()
	for _, href := range hrefs {
		m := mavenVersionDirPattern.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		version := m[1]
		result.MavenVersions[version] = fmt.Sprintf("%s%s/binaries/apache-maven-%s-bin.zip", d.archiveURL, version, version)
	}
	return result, nil
}

// anchorHrefs returns the href attribute of every <a> element of an HTML document.
func anchorHrefs(document []byte) ([]string, error) {
	var hrefs []string
	tokenizer := html.NewTokenizer(bytes.NewReader(document))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return hrefs, nil
			}
			return nil, tokenizer.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "a" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = tokenizer.TagAttr()
				if string(key) == "href" {
					hrefs = append(hrefs, string(val))
				}
			}
		}
	}
}
