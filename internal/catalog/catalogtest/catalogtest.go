// Package catalogtest builds catalogs for tests.
package catalogtest

import (
	"encoding/json"
	"fmt"

	"github.com/projectenv/tools-index/internal/catalog"
)

// Option is a function that configures a Catalog for testing
type Option func(*catalog.Catalog)

// New creates an empty catalog and applies the given options
func New(opts ...Option) *catalog.Catalog {
	c := catalog.New()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLeaf stores an arbitrary leaf
func WithLeaf(l catalog.Leaf) Option {
	return func(c *catalog.Catalog) {
		if err := c.Put(l); err != nil {
			panic(fmt.Sprintf("invalid test leaf: %v", err))
		}
	}
}

// WithJDK adds a JDK download URL
func WithJDK(distribution, version string, os catalog.OperatingSystem, arch catalog.CPUArchitecture, url string) Option {
	return WithLeaf(catalog.Leaf{
		Path: catalog.Path{Section: catalog.SectionJDK, Distribution: distribution, Version: version, OS: os, Arch: arch},
		URL:  url,
	})
}

// WithSynonyms adds alternative names for a JDK distribution
func WithSynonyms(distribution string, names ...string) Option {
	return func(c *catalog.Catalog) {
		c.AddSynonyms(distribution, names...)
	}
}

// WithGradle adds a Gradle download URL
func WithGradle(version, url string) Option {
	return WithLeaf(catalog.Leaf{Path: catalog.Path{Section: catalog.SectionGradle, Version: version}, URL: url})
}

// WithMaven adds a Maven download URL
func WithMaven(version, url string) Option {
	return WithLeaf(catalog.Leaf{Path: catalog.Path{Section: catalog.SectionMaven, Version: version}, URL: url})
}

// WithMvnd adds a Maven daemon download URL
func WithMvnd(version string, os catalog.OperatingSystem, arch catalog.CPUArchitecture, url string) Option {
	return WithLeaf(catalog.Leaf{
		Path: catalog.Path{Section: catalog.SectionMvnd, Version: version, OS: os, Arch: arch},
		URL:  url,
	})
}

// WithNode adds a Node.js download URL
func WithNode(version string, os catalog.OperatingSystem, arch catalog.CPUArchitecture, url string) Option {
	return WithLeaf(catalog.Leaf{
		Path: catalog.Path{Section: catalog.SectionNode, Version: version, OS: os, Arch: arch},
		URL:  url,
	})
}

// WithClojure adds a Clojure tools download URL
func WithClojure(version string, os catalog.OperatingSystem, url string) Option {
	return WithLeaf(catalog.Leaf{
		Path: catalog.Path{Section: catalog.SectionClojure, Version: version, OS: os},
		URL:  url,
	})
}

// URLs returns the catalog's leaves keyed by their path string
func URLs(c *catalog.Catalog) map[string]string {
	urls := map[string]string{}
	for _, l := range c.Leaves() {
		urls[l.Path.String()] = l.URL
	}
	return urls
}

// ToJSON serializes a catalog, panicking on error
func ToJSON(c *catalog.Catalog) []byte {
	data, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal test catalog: %v", err))
	}
	return data
}

// InvalidJSON returns malformed JSON for error handling tests
func InvalidJSON() []byte {
	return []byte(`{"jdkVersions": {"temurin": `)
}
