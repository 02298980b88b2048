// Package github is a small client for the parts of the GitHub REST API the datasources
// need: listing the repositories of an organization and the releases of a repository.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/projectenv/tools-index/internal/httpclient"
)

const (
	// DefaultBaseURL is the base URL of the public GitHub API
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds a single page request, retries included
	DefaultTimeout = 5 * time.Minute

	// pageSize is the largest page GitHub serves
	pageSize = 100

	acceptHeader = "application/vnd.github.v3+json"
)

// Release is a GitHub release
type Release struct {
	TagName    string  `json:"tag_name"`
	Name       string  `json:"name"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// Asset is a file attached to a release
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Repository is a GitHub repository
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Archived bool   `json:"archived"`
}

// Client lists repositories and releases.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*clientConfig)

type clientConfig struct {
	baseURL string
	token   string
	timeout time.Duration
}

// WithBaseURL points the client at a GitHub Enterprise or test server
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithToken authenticates requests to the API host with a bearer token
func WithToken(token string) Option {
	return func(c *clientConfig) {
		c.token = token
	}
}

// WithTimeout bounds a single page request
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a Client sending requests through rt, usually the shared
// httpclient.Transport so GitHub calls count against the same per-host limits.
func NewClient(rt http.RoundTripper, opts ...Option) *Client {
	cfg := &clientConfig{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.token != "" {
		rt = newAPIHostTransport(cfg.baseURL, cfg.token, rt)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		httpClient: httpclient.NewHTTPClient(rt, cfg.timeout),
	}
}

// ListReleases returns every release of owner/repo, following pagination.
func (c *Client) ListReleases(ctx context.Context, owner, repo string) ([]Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), pageSize)
	return collect[Release](ctx, c, endpoint)
}

// ListOrganizationRepositories returns every repository of an organization, following pagination.
func (c *Client) ListOrganizationRepositories(ctx context.Context, org string) ([]Repository, error) {
	endpoint := fmt.Sprintf("%s/orgs/%s/repos?per_page=%d", c.baseURL, url.PathEscape(org), pageSize)
	return collect[Repository](ctx, c, endpoint)
}

// collect fetches endpoint and every page linked from it with rel="next".
func collect[T any](ctx context.Context, c *Client, endpoint string) ([]T, error) {
	var all []T
	for next := endpoint; next != ""; {
		items, link, err := getPage[T](ctx, c, next)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		next = parseLinkNext(link)
	}
	return all, nil
}

func getPage[T any](ctx context.Context, c *Client, endpoint string) ([]T, string, error) {
	slog.Debug("Calling GitHub API", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", httpclient.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to call GitHub API: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", httpclient.NewHTTPError(resp.StatusCode, endpoint, resp.Status)
	}

	var items []T
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, "", fmt.Errorf("failed to decode GitHub response from %s: %w", endpoint, err)
	}
	return items, resp.Header.Get("Link"), nil
}

// parseLinkNext extracts the URL with rel="next" from an RFC 5988 Link header.
// Returns empty string if no next link is present.
//
// Format: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkNext(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		target, params, ok := strings.Cut(strings.TrimSpace(part), ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		target = strings.TrimSpace(target)
		if strings.HasPrefix(target, "<") && strings.HasSuffix(target, ">") {
			return target[1 : len(target)-1]
		}
	}
	return ""
}

// apiHostTransport adds the bearer token to requests for the API host only. Redirects
// and pagination links leaving that host, such as release asset downloads, are sent
// without credentials.
type apiHostTransport struct {
	host          string
	authenticated http.RoundTripper
	base          http.RoundTripper
}

func newAPIHostTransport(baseURL, token string, base http.RoundTripper) *apiHostTransport {
	var host string
	if u, err := url.Parse(baseURL); err == nil {
		host = u.Host
	} else {
		slog.Warn("Invalid GitHub API URL, requests are sent without token", "url", baseURL, "error", err)
	}
	return &apiHostTransport{
		host: host,
		authenticated: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base,
		},
		base: base,
	}
}

// RoundTrip implements http.RoundTripper
func (t *apiHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.host != "" && strings.EqualFold(req.URL.Host, t.host) {
		return t.authenticated.RoundTrip(req)
	}
	return t.base.RoundTrip(req)
}
