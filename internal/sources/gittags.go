package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/config"
	"github.com/projectenv/tools-index/internal/git"
)

// gitTagsDatasource turns the tags of a git repository into download URLs of a
// single-URL section.
type gitTagsDatasource struct {
	git        git.Client
	repository string
	pattern    *regexp.Regexp
	section    catalog.Section
	urlTmpl    *template.Template
}

// urlTemplateData is the data available to the URL template
type urlTemplateData struct {
	Tag     string
	Version string
}

// NewGitTagsDatasource creates a datasource from validated gitTags settings
func NewGitTagsDatasource(client git.Client, cfg *config.GitTagsConfig) (Datasource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gitTags configuration is required")
	}
	pattern, err := regexp.Compile(cfg.TagPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid tag pattern: %w", err)
	}
	if pattern.NumSubexp() != 1 {
		return nil, fmt.Errorf("tag pattern must have exactly one capture group")
	}
	section, err := catalog.ParseSection(cfg.Section)
	if err != nil {
		return nil, err
	}
	if section != catalog.SectionGradle && section != catalog.SectionMaven {
		return nil, fmt.Errorf("section %s does not hold single urls", section)
	}
	urlTmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.URLTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid url template: %w", err)
	}

	return &gitTagsDatasource{
		git:        client,
		repository: cfg.Repository,
		pattern:    pattern,
		section:    section,
		urlTmpl:    urlTmpl,
	}, nil
}

// Fetch implements Datasource
func (d *gitTagsDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	tags, err := d.git.ListTags(ctx, d.repository)
	if err != nil {
		return nil, err
	}

	result := catalog.New()
	for _, tag := range tags {
		m := d.pattern.FindStringSubmatch(tag)
		if m == nil || m[1] == "" {
			continue
		}

		var url strings.Builder
		if err := d.urlTmpl.Execute(&url, urlTemplateData{Tag: tag, Version: m[1]}); err != nil {
			return nil, fmt.Errorf("failed to render url for tag %s: %w", tag, err)
		}
		if err := result.Put(catalog.Leaf{
			Path: catalog.Path{Section: d.section, Version: m[1]},
			URL:  url.String(),
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}
