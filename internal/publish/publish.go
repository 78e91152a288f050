// Package publish proposes a dataset record to the catalogue repository as
// a pull request. A second publish of the same dataset reuses the branch
// and pull request of the first.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/internal/git"
	"github.com/arbml/masader-form/internal/hosting"
	"github.com/arbml/masader-form/internal/ledger"
	"github.com/arbml/masader-form/pkg/types"
)

const remote = "origin"

// Hosting is the part of the hosting API the publisher needs.
type Hosting interface {
	DefaultBranch(ctx context.Context) (string, error)
	PullState(ctx context.Context, number int) (string, error)
	CreatePull(ctx context.Context, title, body, head, base string) (*hosting.Pull, error)
}

// Options locates the pieces of a publish.
type Options struct {
	RepoURL      string // Clone URL, credentials included.
	WorkDir      string // Clone location, wiped on every publish.
	LedgerPath   string
	DatasetsDir  string // Directory of dataset files inside the repository.
	GitUserName  string
	GitUserEmail string
}

// Publisher runs publishes one at a time; the clone directory is shared.
type Publisher struct {
	mu   sync.Mutex
	host Hosting
	opts Options
}

// New returns a publisher.
func New(host Hosting, opts Options) *Publisher {
	if opts.DatasetsDir == "" {
		opts.DatasetsDir = types.DefaultDatasetsDir
	}
	return &Publisher{host: host, opts: opts}
}

// CloneURL returns the clone URL for repo ("owner/name"), embedding token
// when set.
func CloneURL(repo, token string) string {
	if token == "" {
		return "https://github.com/" + repo + ".git"
	}
	return "https://" + token + "@github.com/" + repo + ".git"
}

// Title returns the pull request title for a dataset.
func Title(name string) string {
	return "Adding " + name + " to the catalogue"
}

// Body returns the pull request body for a dataset submitted by username.
func Body(name, username string) string {
	return "This is a pull request by @" + username + " to add a " + name + " to the catalogue."
}

// Publish writes payload to its dataset file and pushes it to the dataset
// branch, opening a pull request when the ledger has none for the branch.
// Hosting and git failures abort without writing the ledger.
func (p *Publisher) Publish(ctx context.Context, payload *types.Record, username string) (types.PullRequestRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := payload.String(types.NameField)
	id := Sanitize(name)
	if id == "" {
		return types.PullRequestRef{}, fmt.Errorf("%w: %q", types.ErrInvalidName, name)
	}
	branch := BranchName(id)
	file := path.Join(p.opts.DatasetsDir, id+".json")
	ref := types.PullRequestRef{Branch: branch, Path: file}
	log := slog.With("dataset", name, "branch", branch)

	data, err := form.Marshal(payload)
	if err != nil {
		return ref, fmt.Errorf("encoding payload: %w", err)
	}

	l, err := ledger.Load(p.opts.LedgerPath)
	if err != nil {
		return ref, err
	}
	exists, err := l.Reconcile(ctx, p.host, branch)
	if err != nil {
		return ref, err
	}

	repo, err := p.clone(ctx)
	if err != nil {
		return ref, err
	}

	if exists {
		entry, _ := l.Find(branch)
		ref.URL, ref.Number = entry.URL, entry.Number
		changed, err := p.update(ctx, repo, branch, file, data)
		if err != nil {
			return ref, err
		}
		if !changed {
			log.Info("no changes to publish")
			ref.Outcome = types.OutcomeNoChanges
			return ref, nil
		}
		ref.Outcome = types.OutcomeUpdated
		log.Info("pull request updated", "pr", ref.Number)
	} else {
		pr, err := p.create(ctx, repo, name, username, branch, file, data)
		if err != nil {
			return ref, err
		}
		l.Append(types.LedgerEntry{
			Name:   name,
			URL:    pr.URL,
			Branch: branch,
			State:  types.PullStateOpen,
			Number: pr.Number,
		})
		ref.Outcome, ref.URL, ref.Number = types.OutcomeCreated, pr.URL, pr.Number
		log.Info("pull request created", "pr", pr.Number, "url", pr.URL)
	}

	if err := l.Save(); err != nil {
		return ref, fmt.Errorf("saving ledger: %w", err)
	}
	return ref, nil
}

// clone replaces any previous clone with a fresh one.
func (p *Publisher) clone(ctx context.Context) (*git.Repo, error) {
	if err := os.RemoveAll(p.opts.WorkDir); err != nil {
		return nil, fmt.Errorf("removing stale clone: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.opts.WorkDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating clone parent: %w", err)
	}
	repo, err := git.Clone(ctx, p.opts.RepoURL, p.opts.WorkDir)
	if err != nil {
		return nil, err
	}
	if err := repo.ConfigUser(ctx, p.opts.GitUserName, p.opts.GitUserEmail); err != nil {
		return nil, err
	}
	return repo, nil
}

// update commits data onto the existing branch. It reports false when the
// file is unchanged, in which case nothing is committed or pushed.
func (p *Publisher) update(ctx context.Context, repo *git.Repo, branch, file string, data []byte) (bool, error) {
	if err := repo.Checkout(ctx, branch); err != nil {
		return false, err
	}
	if err := repo.Pull(ctx, remote, branch); err != nil {
		return false, err
	}
	if err := writeFile(repo, file, data); err != nil {
		return false, err
	}
	if err := repo.Add(ctx, file); err != nil {
		return false, err
	}
	dirty, err := repo.IsDirty(ctx)
	if err != nil || !dirty {
		return false, err
	}
	if err := repo.Commit(ctx, "Updating "+file); err != nil {
		return false, err
	}
	return true, repo.Push(ctx, remote, branch)
}

// create pushes data on a new branch cut from the default branch and opens
// the pull request.
func (p *Publisher) create(ctx context.Context, repo *git.Repo, name, username, branch, file string, data []byte) (*hosting.Pull, error) {
	base, err := p.host.DefaultBranch(ctx)
	if err != nil {
		return nil, err
	}
	if err := repo.CheckoutNew(ctx, branch); err != nil {
		return nil, err
	}
	if err := repo.Pull(ctx, remote, base); err != nil {
		return nil, err
	}
	if err := writeFile(repo, file, data); err != nil {
		return nil, err
	}
	if err := repo.Add(ctx, file); err != nil {
		return nil, err
	}
	if err := repo.Commit(ctx, "Creating "+file); err != nil {
		return nil, err
	}
	if err := repo.PushUpstream(ctx, remote, branch); err != nil {
		return nil, err
	}
	return p.host.CreatePull(ctx, Title(name), Body(name, username), branch, base)
}

func writeFile(repo *git.Repo, file string, data []byte) error {
	full := filepath.Join(repo.Dir, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(file), err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	return nil
}
