package sources

import (
	"fmt"

	"github.com/projectenv/tools-index/internal/config"
	"github.com/projectenv/tools-index/internal/git"
	"github.com/projectenv/tools-index/internal/httpclient"
	"github.com/projectenv/tools-index/internal/versions"
)

// Dependencies are the clients shared by every datasource of a run
type Dependencies struct {
	HTTPClient httpclient.Client
	GitHub     GitHubClient
	Git        git.Client
}

// Factory creates datasources from their configuration
type Factory interface {
	// CreateDatasource creates the datasource described by cfg
	CreateDatasource(cfg *config.DatasourceConfig) (Datasource, error)
}

// defaultFactory is the default implementation of Factory
type defaultFactory struct {
	deps Dependencies
}

var _ Factory = (*defaultFactory)(nil)

// NewFactory creates a new datasource factory
func NewFactory(deps Dependencies) Factory {
	return &defaultFactory{deps: deps}
}

// CreateDatasource creates a datasource for the given configuration and applies its version constraint
func (f *defaultFactory) CreateDatasource(cfg *config.DatasourceConfig) (Datasource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("datasource configuration cannot be nil")
	}

	ds, err := f.create(cfg)
	if err != nil {
		return nil, fmt.Errorf("datasource %s: %w", cfg.Name, err)
	}

	if cfg.Constraint == "" {
		return ds, nil
	}
	constraint, err := versions.ParseConstraint(cfg.Constraint)
	if err != nil {
		return nil, fmt.Errorf("datasource %s: invalid constraint: %w", cfg.Name, err)
	}
	return Constrained(cfg.Name, ds, constraint), nil
}

func (f *defaultFactory) create(cfg *config.DatasourceConfig) (Datasource, error) {
	switch cfg.Type {
	case config.DatasourceTypeTemurin:
		return f.withGitHub(NewTemurinDatasource)
	case config.DatasourceTypeGraalVM:
		if f.deps.GitHub == nil {
			return nil, fmt.Errorf("GitHub client is not configured")
		}
		if f.deps.HTTPClient == nil {
			return nil, fmt.Errorf("HTTP client is not configured")
		}
		return NewGraalVMDatasource(f.deps.GitHub, f.deps.HTTPClient), nil
	case config.DatasourceTypeMvnd:
		return f.withGitHub(NewMvndDatasource)
	case config.DatasourceTypeClojure:
		return f.withGitHub(NewClojureDatasource)
	case config.DatasourceTypeNodeJS:
		return f.withHTTP(NewNodeJSDatasource, cfg.URL)
	case config.DatasourceTypeMaven:
		return f.withHTTP(NewMavenDatasource, cfg.URL)
	case config.DatasourceTypeGradle:
		return f.withHTTP(NewGradleDatasource, cfg.URL)
	case config.DatasourceTypeGitTags:
		if f.deps.Git == nil {
			return nil, fmt.Errorf("git client is not configured")
		}
		return NewGitTagsDatasource(f.deps.Git, cfg.GitTags)
	default:
		return nil, fmt.Errorf("unsupported datasource type: %s", cfg.Type)
	}
}

func (f *defaultFactory) withGitHub(newDatasource func(GitHubClient) Datasource) (Datasource, error) {
	if f.deps.GitHub == nil {
		return nil, fmt.Errorf("GitHub client is not configured")
	}
	return newDatasource(f.deps.GitHub), nil
}

func (f *defaultFactory) withHTTP(newDatasource func(httpclient.Client, string) Datasource, url string) (Datasource, error) {
	if f.deps.HTTPClient == nil {
		return nil, fmt.Errorf("HTTP client is not configured")
	}
	return newDatasource(f.deps.HTTPClient, url), nil
}
