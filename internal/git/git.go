// Package git runs the git command line in a working directory.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

const binGit = "git"

// credentials matches userinfo in URLs so tokens never reach logs.
var credentials = regexp.MustCompile(`://[^@/\s]+@`)

// CommandError is a failed git invocation.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	cmd := redact(strings.Join(e.Args, " "))
	out := redact(strings.TrimSpace(e.Output))
	if out == "" {
		return fmt.Sprintf("git %s: %v", cmd, e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", cmd, e.Err, out)
}

func (e *CommandError) Unwrap() error { return e.Err }

func redact(s string) string {
	return credentials.ReplaceAllString(s, "://***@")
}

// Repo is a local clone.
type Repo struct {
	Dir string
}

// Available reports whether the git binary is on PATH.
func Available() bool {
	_, err := exec.LookPath(binGit)
	return err == nil
}

// Clone clones url into dir, which must not exist or be empty.
func Clone(ctx context.Context, url, dir string) (*Repo, error) {
	if _, err := run(ctx, "", "clone", url, dir); err != nil {
		return nil, err
	}
	return &Repo{Dir: dir}, nil
}

// ConfigUser sets the commit identity on this clone only.
func (r *Repo) ConfigUser(ctx context.Context, name, email string) error {
	if name != "" {
		if _, err := r.run(ctx, "config", "user.name", name); err != nil {
			return err
		}
	}
	if email != "" {
		if _, err := r.run(ctx, "config", "user.email", email); err != nil {
			return err
		}
	}
	return nil
}

// Checkout switches to an existing branch.
func (r *Repo) Checkout(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "checkout", branch)
	return err
}

// CheckoutNew creates branch from HEAD and switches to it.
func (r *Repo) CheckoutNew(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "checkout", "-b", branch)
	return err
}

// Pull merges branch from remote into the current branch.
func (r *Repo) Pull(ctx context.Context, remote, branch string) error {
	_, err := r.run(ctx, "pull", "--no-rebase", remote, branch)
	return err
}

// Add stages paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	_, err := r.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Commit records the staged changes.
func (r *Repo) Commit(ctx context.Context, msg string) error {
	_, err := r.run(ctx, "commit", "-m", msg)
	return err
}

// Push pushes branch to remote.
func (r *Repo) Push(ctx context.Context, remote, branch string) error {
	_, err := r.run(ctx, "push", remote, branch)
	return err
}

// PushUpstream pushes branch to remote and sets it as upstream.
func (r *Repo) PushUpstream(ctx context.Context, remote, branch string) error {
	_, err := r.run(ctx, "push", "--set-upstream", remote, branch)
	return err
}

// IsDirty reports whether the working tree or index has changes.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CurrentBranch returns the checked out branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	return run(ctx, r.Dir, args...)
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binGit, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), &CommandError{Args: args, Output: string(out), Err: err}
	}
	return string(out), nil
}
