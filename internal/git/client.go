// Package git lists the tags of remote git repositories without cloning them.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Client defines the interface for Git operations
type Client interface {
	// ListTags returns the short names of every tag of the remote repository, sorted
	ListTags(ctx context.Context, repository string) ([]string, error)
}

// AuthConfig holds HTTP basic credentials for private remotes
type AuthConfig struct {
	Username string
	Password string
}

// defaultGitClient implements Client using go-git
type defaultGitClient struct {
	auth *AuthConfig
}

// NewDefaultGitClient creates a new defaultGitClient. auth may be nil.
func NewDefaultGitClient(auth *AuthConfig) Client {
	return &defaultGitClient{auth: auth}
}

// ListTags performs the equivalent of `git ls-remote --tags` against an in-memory storer.
func (c *defaultGitClient) ListTags(ctx context.Context, repository string) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repository},
	})

	listOptions := &git.ListOptions{
		PeelingOption: git.IgnorePeeled,
	}
	if authMethod := c.authMethod(); authMethod != nil {
		listOptions.Auth = authMethod
	}

	refs, err := remote.ListContext(ctx, listOptions)
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list remote references of %s: %w", repository, err)
	}

	tags := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Name().IsTag() {
			tags = append(tags, ref.Name().Short())
		}
	}
	slices.Sort(tags)
	tags = slices.Compact(tags)

	slog.Debug("Listed remote tags", "repository", repository, "tags", len(tags))
	return tags, nil
}

func (c *defaultGitClient) authMethod() transport.AuthMethod {
	if c.auth == nil || c.auth.Username == "" {
		return nil
	}
	return &githttp.BasicAuth{
		Username: c.auth.Username,
		Password: c.auth.Password,
	}
}
