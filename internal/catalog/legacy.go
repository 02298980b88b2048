package catalog

import "encoding/json"

// LegacyCatalog is the first index format, which predates architecture support.
// It only describes amd64 downloads and has no clojure table.
type LegacyCatalog struct {
	JDKVersions             map[string]map[string]OSURLs
	JDKDistributionSynonyms map[string][]string
	GradleVersions          map[string]string
	MavenVersions           map[string]string
	MvndVersions            map[string]OSURLs
	NodeVersions            map[string]OSURLs
}

// Legacy projects the catalog onto the legacy format, keeping amd64 URLs only.
func (c *Catalog) Legacy() *LegacyCatalog {
	src := Merge(c)
	out := &LegacyCatalog{
		JDKVersions:             map[string]map[string]OSURLs{},
		JDKDistributionSynonyms: src.JDKDistributionSynonyms,
		GradleVersions:          src.GradleVersions,
		MavenVersions:           src.MavenVersions,
		MvndVersions:            amd64Only(src.MvndVersions),
		NodeVersions:            amd64Only(src.NodeVersions),
	}
	for dist, byVersion := range src.JDKVersions {
		if projected := amd64Only(byVersion); len(projected) > 0 {
			out.JDKVersions[dist] = projected
		}
	}
	return out
}

func amd64Only(byVersion map[string]Platforms) map[string]OSURLs {
	out := map[string]OSURLs{}
	for v, platforms := range byVersion {
		for os, archs := range platforms {
			u, ok := archs[AMD64]
			if !ok {
				continue
			}
			if out[v] == nil {
				out[v] = OSURLs{}
			}
			out[v][os] = u
		}
	}
	return out
}

// MarshalJSON encodes the legacy catalog in the same key order as Catalog.
func (l *LegacyCatalog) MarshalJSON() ([]byte, error) {
	jdk := make(object, 0, len(l.JDKVersions))
	for _, dist := range SortedDistributions(l.JDKVersions) {
		jdk = append(jdk, member{key: dist, value: versionsObject(l.JDKVersions[dist], osObject)})
	}
	return json.Marshal(object{
		{key: string(SectionJDK), value: jdk},
		{key: string(SectionSynonyms), value: synonymsObject(l.JDKDistributionSynonyms)},
		{key: string(SectionGradle), value: urlsObject(l.GradleVersions)},
		{key: string(SectionMaven), value: urlsObject(l.MavenVersions)},
		{key: string(SectionMvnd), value: versionsObject(l.MvndVersions, osObject)},
		{key: string(SectionNode), value: versionsObject(l.NodeVersions, osObject)},
	})
}
