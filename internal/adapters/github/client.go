// Package github reports whether the visitor starred the experiment's
// repository, backed by go-github.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v68/github"
)

// Client asks the GitHub API whether the authenticated user starred a repository.
type Client struct {
	api *gh.Client
}

type Option func(*gh.Client) error

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) Option {
	return func(c *gh.Client) error {
		base, err := url.Parse(strings.TrimRight(u, "/") + "/")
		if err != nil {
			return fmt.Errorf("invalid base url %q: %w", u, err)
		}
		c.BaseURL = base
		c.UploadURL = base
		return nil
	}
}

func NewClient(token string, opts ...Option) (*Client, error) {
	return NewClientWithHTTP(&http.Client{Timeout: 10 * time.Second}, token, opts...)
}

// NewClientWithHTTP builds a Client on top of an existing HTTP client.
func NewClientWithHTTP(httpClient *http.Client, token string, opts ...Option) (*Client, error) {
	api := gh.NewClient(httpClient)
	if token != "" {
		api = api.WithAuthToken(token)
	}
	for _, opt := range opts {
		if err := opt(api); err != nil {
			return nil, err
		}
	}
	return &Client{api: api}, nil
}

// HasStarred reports whether repo ("owner/name") is starred.
func (c *Client) HasStarred(ctx context.Context, repo string) (bool, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return false, fmt.Errorf("invalid repository %q", repo)
	}

	starred, _, err := c.api.Activity.IsStarred(ctx, owner, name)
	if err != nil {
		return false, fmt.Errorf("checking star on %s: %w", repo, err)
	}
	return starred, nil
}
