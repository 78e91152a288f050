// Package hosting wraps the GitHub REST calls the form needs: account
// lookup, default branch, pull request state and creation.
package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
)

// Pull is a pull request on the catalogue repository.
type Pull struct {
	Number int
	URL    string
	State  string
}

// Client talks to one repository on a GitHub-compatible API.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

// New returns a client for repo ("owner/name") at baseURL. An empty baseURL
// means the public GitHub API; an empty token means anonymous access.
func New(baseURL, token, repo string) (*Client, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("repo %q: want owner/name", repo)
	}

	gh := github.NewClient(http.DefaultClient)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parsing api url: %w", err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh, owner: owner, repo: name}, nil
}

// Repo returns the repository as owner/name.
func (c *Client) Repo() string {
	return c.owner + "/" + c.repo
}

// UserExists reports whether username is a known account. A 404 is a clean
// false; other failures are returned.
func (c *Client) UserExists(ctx context.Context, username string) (bool, error) {
	_, _, err := c.gh.Users.Get(ctx, username)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("looking up user %s: %w", username, err)
}

// DefaultBranch returns the repository's default branch.
func (c *Client) DefaultBranch(ctx context.Context) (string, error) {
	r, _, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return "", fmt.Errorf("getting repository %s: %w", c.Repo(), err)
	}
	return r.GetDefaultBranch(), nil
}

// PullState returns "open" or "closed" for pull request number.
func (c *Client) PullState(ctx context.Context, number int) (string, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return "", fmt.Errorf("getting pull request %d: %w", number, err)
	}
	return pr.GetState(), nil
}

// CreatePull opens a pull request from head into base.
func (c *Client) CreatePull(ctx context.Context, title, body, head, base string) (*Pull, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, fmt.Errorf("creating pull request for %s: %w", head, err)
	}
	return &Pull{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), State: pr.GetState()}, nil
}

func isNotFound(err error) bool {
	var er *github.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound
}
