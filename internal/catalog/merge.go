package catalog

// Merge folds catalogs into a new one, in argument order.
//
// Callers pass the previously persisted catalog first, followed by one partial catalog per
// datasource in configured order. Tables are merged key by key at every level; when two
// catalogs store a URL under the same path the later one wins. Nil catalogs and nil
// sections contribute nothing. Alias sets are unioned.
//
// The result never shares a map or slice with any argument.
func Merge(catalogs ...*Catalog) *Catalog {
	out := New()
	for _, c := range catalogs {
		if c == nil {
			continue
		}
		for dist, byVersion := range c.JDKVersions {
			dst := out.JDKVersions[dist]
			if dst == nil {
				dst = make(map[string]Platforms, len(byVersion))
				out.JDKVersions[dist] = dst
			}
			mergePlatforms(dst, byVersion)
		}
		for dist, names := range c.JDKDistributionSynonyms {
			out.JDKDistributionSynonyms[dist] = unionSorted(out.JDKDistributionSynonyms[dist], names)
		}
		mergeURLs(out.GradleVersions, c.GradleVersions)
		mergeURLs(out.MavenVersions, c.MavenVersions)
		mergePlatforms(out.MvndVersions, c.MvndVersions)
		mergePlatforms(out.NodeVersions, c.NodeVersions)
		for v, urls := range c.ClojureVersions {
			dst := out.ClojureVersions[v]
			if dst == nil {
				dst = make(OSURLs, len(urls))
				out.ClojureVersions[v] = dst
			}
			mergeURLs(dst, urls)
		}
	}
	return out
}

func mergePlatforms(dst, src map[string]Platforms) {
	for v, platforms := range src {
		dp := dst[v]
		if dp == nil {
			dp = make(Platforms, len(platforms))
			dst[v] = dp
		}
		for os, archs := range platforms {
			da := dp[os]
			if da == nil {
				da = make(map[CPUArchitecture]string, len(archs))
				dp[os] = da
			}
			mergeURLs(da, archs)
		}
	}
}

func mergeURLs[K comparable](dst, src map[K]string) {
	for k, u := range src {
		dst[k] = u
	}
}
