// Package catalog holds the tools index data model: per-tool version tables mapping down to
// download URLs, plus the JDK distribution alias table.
//
// A Catalog is treated as a value. Operations that transform catalogs (Merge, Clone,
// Legacy) always build new containers at every level and never share maps with their
// inputs, so a caller holding a catalog can rely on it not changing underneath it.
package catalog

import (
	"cmp"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/projectenv/tools-index/internal/versions"
)

// Section names a top-level table of the catalog. Values are the JSON field names.
type Section string

// Catalog sections.
const (
	SectionJDK      Section = "jdkVersions"
	SectionSynonyms Section = "jdkDistributionSynonyms"
	SectionGradle   Section = "gradleVersions"
	SectionMaven    Section = "mavenVersions"
	SectionMvnd     Section = "mvndVersions"
	SectionNode     Section = "nodeVersions"
	SectionClojure  Section = "clojureVersions"
)

// URLSections lists the sections that hold download URLs, in serialization order.
var URLSections = []Section{SectionJDK, SectionGradle, SectionMaven, SectionMvnd, SectionNode, SectionClojure}

// ParseSection converts s into a URL-bearing Section.
func ParseSection(s string) (Section, error) {
	section := Section(s)
	if !slices.Contains(URLSections, section) {
		return "", fmt.Errorf("unknown catalog section %q", s)
	}
	return section, nil
}

// Platforms maps an operating system and architecture to a download URL.
type Platforms map[OperatingSystem]map[CPUArchitecture]string

// OSURLs maps an operating system to a download URL.
type OSURLs map[OperatingSystem]string

// Catalog is the full tools index.
type Catalog struct {
	// JDKVersions is keyed by distribution, then version.
	JDKVersions map[string]map[string]Platforms
	// JDKDistributionSynonyms maps a distribution to its alternative names, sorted and unique.
	JDKDistributionSynonyms map[string][]string
	GradleVersions          map[string]string
	MavenVersions           map[string]string
	MvndVersions            map[string]Platforms
	NodeVersions            map[string]Platforms
	ClojureVersions         map[string]OSURLs
}

// New returns an empty catalog with every section allocated.
func New() *Catalog {
	return &Catalog{
		JDKVersions:             map[string]map[string]Platforms{},
		JDKDistributionSynonyms: map[string][]string{},
		GradleVersions:          map[string]string{},
		MavenVersions:           map[string]string{},
		MvndVersions:            map[string]Platforms{},
		NodeVersions:            map[string]Platforms{},
		ClojureVersions:         map[string]OSURLs{},
	}
}

// Path locates a single leaf. Fields that do not apply to the section are empty.
type Path struct {
	Section      Section
	Distribution string
	Version      string
	OS           OperatingSystem
	Arch         CPUArchitecture
}

// String renders the path as slash separated segments, e.g. "jdkVersions/temurin/17.0.8+7/linux/amd64".
func (p Path) String() string {
	parts := []string{string(p.Section)}
	for _, s := range []string{p.Distribution, p.Version, string(p.OS), string(p.Arch)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Leaf is a download URL together with the path it is stored under.
type Leaf struct {
	Path Path
	URL  string
}

// Leaves returns every URL in the catalog in sort order. Alias tables have no leaves.
func (c *Catalog) Leaves() []Leaf {
	if c == nil {
		return nil
	}
	var leaves []Leaf
	for _, dist := range SortedDistributions(c.JDKVersions) {
		for _, v := range SortedVersions(c.JDKVersions[dist]) {
			leaves = appendPlatforms(leaves, Path{Section: SectionJDK, Distribution: dist, Version: v}, c.JDKVersions[dist][v])
		}
	}
	for _, v := range SortedVersions(c.GradleVersions) {
		leaves = append(leaves, Leaf{Path: Path{Section: SectionGradle, Version: v}, URL: c.GradleVersions[v]})
	}
	for _, v := range SortedVersions(c.MavenVersions) {
		leaves = append(leaves, Leaf{Path: Path{Section: SectionMaven, Version: v}, URL: c.MavenVersions[v]})
	}
	for _, v := range SortedVersions(c.MvndVersions) {
		leaves = appendPlatforms(leaves, Path{Section: SectionMvnd, Version: v}, c.MvndVersions[v])
	}
	for _, v := range SortedVersions(c.NodeVersions) {
		leaves = appendPlatforms(leaves, Path{Section: SectionNode, Version: v}, c.NodeVersions[v])
	}
	for _, v := range SortedVersions(c.ClojureVersions) {
		for _, os := range SortedOperatingSystems(c.ClojureVersions[v]) {
			leaves = append(leaves, Leaf{
				Path: Path{Section: SectionClojure, Version: v, OS: os},
				URL:  c.ClojureVersions[v][os],
			})
		}
	}
	return leaves
}

func appendPlatforms(leaves []Leaf, base Path, p Platforms) []Leaf {
	for _, os := range SortedOperatingSystems(p) {
		for _, arch := range SortedArchitectures(p[os]) {
			path := base
			path.OS, path.Arch = os, arch
			leaves = append(leaves, Leaf{Path: path, URL: p[os][arch]})
		}
	}
	return leaves
}

// Len returns the number of leaves in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	n := len(c.GradleVersions) + len(c.MavenVersions)
	for _, byVersion := range c.JDKVersions {
		for _, p := range byVersion {
			n += p.len()
		}
	}
	for _, p := range c.MvndVersions {
		n += p.len()
	}
	for _, p := range c.NodeVersions {
		n += p.len()
	}
	for _, urls := range c.ClojureVersions {
		n += len(urls)
	}
	return n
}

func (p Platforms) len() int {
	n := 0
	for _, archs := range p {
		n += len(archs)
	}
	return n
}

// SectionLen returns the number of leaves in a single section.
func (c *Catalog) SectionLen(section Section) int {
	n := 0
	for _, l := range c.Leaves() {
		if l.Path.Section == section {
			n++
		}
	}
	return n
}

// Get returns the URL stored under path.
func (c *Catalog) Get(path Path) (string, bool) {
	if c == nil {
		return "", false
	}
	var (
		u  string
		ok bool
	)
	switch path.Section {
	case SectionJDK:
		u, ok = c.JDKVersions[path.Distribution][path.Version].get(path.OS, path.Arch)
	case SectionGradle:
		u, ok = c.GradleVersions[path.Version]
	case SectionMaven:
		u, ok = c.MavenVersions[path.Version]
	case SectionMvnd:
		u, ok = c.MvndVersions[path.Version].get(path.OS, path.Arch)
	case SectionNode:
		u, ok = c.NodeVersions[path.Version].get(path.OS, path.Arch)
	case SectionClojure:
		u, ok = c.ClojureVersions[path.Version][path.OS]
	}
	return u, ok
}

func (p Platforms) get(os OperatingSystem, arch CPUArchitecture) (string, bool) {
	u, ok := p[os][arch]
	return u, ok
}

// Has reports whether path is present in the catalog, whatever its URL.
func (c *Catalog) Has(path Path) bool {
	_, ok := c.Get(path)
	return ok
}

// Put stores a leaf, creating intermediate tables as needed.
// It must only be called on a catalog the caller exclusively owns.
func (c *Catalog) Put(l Leaf) error {
	p := l.Path
	if p.Version == "" {
		return fmt.Errorf("%s: version is required", p)
	}
	switch p.Section {
	case SectionJDK:
		if p.Distribution == "" {
			return fmt.Errorf("%s: distribution is required", p)
		}
		if c.JDKVersions == nil {
			c.JDKVersions = map[string]map[string]Platforms{}
		}
		byVersion := c.JDKVersions[p.Distribution]
		if byVersion == nil {
			byVersion = map[string]Platforms{}
			c.JDKVersions[p.Distribution] = byVersion
		}
		return putPlatform(byVersion, l)
	case SectionGradle:
		if c.GradleVersions == nil {
			c.GradleVersions = map[string]string{}
		}
		c.GradleVersions[p.Version] = l.URL
	case SectionMaven:
		if c.MavenVersions == nil {
			c.MavenVersions = map[string]string{}
		}
		c.MavenVersions[p.Version] = l.URL
	case SectionMvnd:
		if c.MvndVersions == nil {
			c.MvndVersions = map[string]Platforms{}
		}
		return putPlatform(c.MvndVersions, l)
	case SectionNode:
		if c.NodeVersions == nil {
			c.NodeVersions = map[string]Platforms{}
		}
		return putPlatform(c.NodeVersions, l)
	case SectionClojure:
		if p.OS == "" {
			return fmt.Errorf("%s: operating system is required", p)
		}
		if c.ClojureVersions == nil {
			c.ClojureVersions = map[string]OSURLs{}
		}
		urls := c.ClojureVersions[p.Version]
		if urls == nil {
			urls = OSURLs{}
			c.ClojureVersions[p.Version] = urls
		}
		urls[p.OS] = l.URL
	default:
		return fmt.Errorf("%s: section does not hold urls", p)
	}
	return nil
}

func putPlatform(byVersion map[string]Platforms, l Leaf) error {
	p := l.Path
	if p.OS == "" || p.Arch == "" {
		return fmt.Errorf("%s: operating system and architecture are required", p)
	}
	platforms := byVersion[p.Version]
	if platforms == nil {
		platforms = Platforms{}
		byVersion[p.Version] = platforms
	}
	archs := platforms[p.OS]
	if archs == nil {
		archs = map[CPUArchitecture]string{}
		platforms[p.OS] = archs
	}
	archs[p.Arch] = l.URL
	return nil
}

// AddSynonyms records alternative names for a JDK distribution.
func (c *Catalog) AddSynonyms(distribution string, names ...string) {
	if c.JDKDistributionSynonyms == nil {
		c.JDKDistributionSynonyms = map[string][]string{}
	}
	c.JDKDistributionSynonyms[distribution] = unionSorted(c.JDKDistributionSynonyms[distribution], names)
}

func unionSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Validate checks that every leaf is a non-empty absolute URL.
func (c *Catalog) Validate() error {
	for _, l := range c.Leaves() {
		if l.URL == "" {
			return fmt.Errorf("%s: url is empty", l.Path)
		}
		u, err := url.Parse(l.URL)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", l.Path, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("%s: url %q is not absolute", l.Path, l.URL)
		}
	}
	return nil
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	return Merge(c)
}

// SortedVersions returns the keys of m ordered by version.
func SortedVersions[V any](m map[string]V) []string {
	keys := slices.Collect(maps.Keys(m))
	versions.Sort(keys)
	return keys
}

// SortedDistributions returns the keys of m in lexical order.
func SortedDistributions[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// SortedOperatingSystems returns the keys of m in catalog order.
func SortedOperatingSystems[V any](m map[OperatingSystem]V) []OperatingSystem {
	return slices.SortedFunc(maps.Keys(m), func(a, b OperatingSystem) int {
		return cmp.Or(compareOS(a, b), strings.Compare(string(a), string(b)))
	})
}

// SortedArchitectures returns the keys of m in catalog order.
func SortedArchitectures[V any](m map[CPUArchitecture]V) []CPUArchitecture {
	return slices.SortedFunc(maps.Keys(m), func(a, b CPUArchitecture) int {
		return cmp.Or(compareArch(a, b), strings.Compare(string(a), string(b)))
	})
}
