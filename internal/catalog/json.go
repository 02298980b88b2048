package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// object is a JSON object whose members are written in slice order.
type object []member

type member struct {
	key   string
	value any
}

func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", m.key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func urlsObject(m map[string]string) object {
	o := make(object, 0, len(m))
	for _, v := range SortedVersions(m) {
		o = append(o, member{key: v, value: m[v]})
	}
	return o
}

func osObject(m OSURLs) object {
	o := make(object, 0, len(m))
	for _, os := range SortedOperatingSystems(m) {
		o = append(o, member{key: string(os), value: m[os]})
	}
	return o
}

func platformsObject(p Platforms) object {
	o := make(object, 0, len(p))
	for _, os := range SortedOperatingSystems(p) {
		archs := make(object, 0, len(p[os]))
		for _, arch := range SortedArchitectures(p[os]) {
			archs = append(archs, member{key: string(arch), value: p[os][arch]})
		}
		o = append(o, member{key: string(os), value: archs})
	}
	return o
}

func versionsObject[V any](m map[string]V, value func(V) object) object {
	o := make(object, 0, len(m))
	for _, v := range SortedVersions(m) {
		o = append(o, member{key: v, value: value(m[v])})
	}
	return o
}

func synonymsObject(m map[string][]string) object {
	o := make(object, 0, len(m))
	for _, dist := range SortedDistributions(m) {
		names := m[dist]
		if names == nil {
			names = []string{}
		}
		o = append(o, member{key: dist, value: names})
	}
	return o
}

// MarshalJSON encodes the catalog with every level in sort order: distributions lexically,
// versions by version ordering, then operating system and architecture in declaration order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	if c == nil {
		c = New()
	}
	jdk := make(object, 0, len(c.JDKVersions))
	for _, dist := range SortedDistributions(c.JDKVersions) {
		jdk = append(jdk, member{key: dist, value: versionsObject(c.JDKVersions[dist], platformsObject)})
	}
	return json.Marshal(object{
		{key: string(SectionJDK), value: jdk},
		{key: string(SectionSynonyms), value: synonymsObject(c.JDKDistributionSynonyms)},
		{key: string(SectionGradle), value: urlsObject(c.GradleVersions)},
		{key: string(SectionMaven), value: urlsObject(c.MavenVersions)},
		{key: string(SectionMvnd), value: versionsObject(c.MvndVersions, platformsObject)},
		{key: string(SectionNode), value: versionsObject(c.NodeVersions, platformsObject)},
		{key: string(SectionClojure), value: versionsObject(c.ClojureVersions, osObject)},
	})
}

type catalogJSON struct {
	JDKVersions             map[string]map[string]Platforms `json:"jdkVersions"`
	JDKDistributionSynonyms map[string][]string             `json:"jdkDistributionSynonyms"`
	GradleVersions          map[string]string               `json:"gradleVersions"`
	MavenVersions           map[string]string               `json:"mavenVersions"`
	MvndVersions            map[string]Platforms            `json:"mvndVersions"`
	NodeVersions            map[string]Platforms            `json:"nodeVersions"`
	ClojureVersions         map[string]OSURLs               `json:"clojureVersions"`
}

// UnmarshalJSON decodes a catalog. Missing or null sections decode as empty tables,
// unknown operating systems or architectures are rejected.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var raw catalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decoded := &Catalog{
		JDKVersions:     raw.JDKVersions,
		GradleVersions:  raw.GradleVersions,
		MavenVersions:   raw.MavenVersions,
		MvndVersions:    raw.MvndVersions,
		NodeVersions:    raw.NodeVersions,
		ClojureVersions: raw.ClojureVersions,
	}
	for _, l := range decoded.Leaves() {
		if _, err := ParseOperatingSystem(string(l.Path.OS)); l.Path.OS != "" && err != nil {
			return fmt.Errorf("%s: %w", l.Path, err)
		}
		if _, err := ParseCPUArchitecture(string(l.Path.Arch)); l.Path.Arch != "" && err != nil {
			return fmt.Errorf("%s: %w", l.Path, err)
		}
	}
	for dist, names := range raw.JDKDistributionSynonyms {
		decoded.AddSynonyms(dist, names...)
	}

	*c = *Merge(decoded)
	return nil
}
