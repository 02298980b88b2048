package sources

import (
	"context"
	"log/slog"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/versions"
)

// constrainedDatasource drops the versions of a wrapped datasource that do not satisfy a constraint
type constrainedDatasource struct {
	name       string
	datasource Datasource
	constraint *versions.Constraint
}

// Constrained wraps ds so that only versions allowed by constraint are returned.
// A nil constraint returns ds unchanged. Distribution synonyms are always kept.
func Constrained(name string, ds Datasource, constraint *versions.Constraint) Datasource {
	if constraint == nil {
		return ds
	}
	return &constrainedDatasource{name: name, datasource: ds, constraint: constraint}
}

// Fetch implements Datasource
func (d *constrainedDatasource) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	fetched, err := d.datasource.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	result := catalog.New()
	if fetched == nil {
		return result, nil
	}
	for dist, names := range fetched.JDKDistributionSynonyms {
		result.AddSynonyms(dist, names...)
	}

	dropped := 0
	for _, leaf := range fetched.Leaves() {
		if !d.constraint.Allows(leaf.Path.Version) {
			dropped++
			continue
		}
		if err := result.Put(leaf); err != nil {
			return nil, err
		}
	}

	if dropped > 0 {
		slog.Info("Dropped versions outside of constraint",
			"datasource", d.name,
			"constraint", d.constraint.String(),
			"dropped_urls", dropped)
	}
	return result, nil
}
