package sources

import (
	"context"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/github"
)

//go:generate mockgen -destination=mocks/mock_datasource.go -package=mocks -source=types.go Datasource,GitHubClient

// Datasource discovers versions of one or more tools.
type Datasource interface {
	// Fetch returns a partial catalog with every version the upstream currently offers.
	// Finding nothing is not an error and yields an empty catalog.
	Fetch(ctx context.Context) (*catalog.Catalog, error)
}

// DatasourceFunc adapts a function to the Datasource interface
type DatasourceFunc func(ctx context.Context) (*catalog.Catalog, error)

// Fetch calls f(ctx)
func (f DatasourceFunc) Fetch(ctx context.Context) (*catalog.Catalog, error) {
	return f(ctx)
}

// GitHubClient is the subset of the GitHub API used by release based datasources
type GitHubClient interface {
	// ListReleases returns every release of owner/repo
	ListReleases(ctx context.Context, owner, repo string) ([]github.Release, error)

	// ListOrganizationRepositories returns every repository of an organization
	ListOrganizationRepositories(ctx context.Context, org string) ([]github.Repository, error)
}

var _ GitHubClient = (*github.Client)(nil)
