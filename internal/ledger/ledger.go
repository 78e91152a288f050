// Package ledger tracks the pull requests opened for datasets in a JSON
// array file. The file is rewritten atomically and entries are never
// deleted.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/arbml/masader-form/pkg/types"
)

// FileName is the ledger file name inside the data directory.
const FileName = "prs.json"

// StateSource reports the remote state of a pull request.
type StateSource interface {
	PullState(ctx context.Context, number int) (string, error)
}

// Ledger is the in-memory copy of the ledger file.
type Ledger struct {
	path    string
	Entries []types.LedgerEntry
}

// Load reads the ledger at path, creating an empty one when the file does
// not exist.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, Entries: []types.LedgerEntry{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger dir: %w", err)
		}
		if err := l.Save(); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return l, nil
	}
	if err := json.Unmarshal(data, &l.Entries); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Find returns the first entry tracking branch.
func (l *Ledger) Find(branch string) (types.LedgerEntry, bool) {
	for _, e := range l.Entries {
		if e.Branch == branch {
			return e, true
		}
	}
	return types.LedgerEntry{}, false
}

// Append adds an entry.
func (l *Ledger) Append(e types.LedgerEntry) {
	l.Entries = append(l.Entries, e)
}

// Reconcile fetches the remote state of every entry. It reports whether an
// entry tracks target; other open entries whose pull request is closed
// remotely are flipped to closed. Remote branches are left alone. Nothing
// is written; call Save to persist.
func (l *Ledger) Reconcile(ctx context.Context, states StateSource, target string) (bool, error) {
	exists := false
	for i := range l.Entries {
		e := &l.Entries[i]
		state, err := states.PullState(ctx, e.Number)
		if err != nil {
			return false, fmt.Errorf("reconciling %s: %w", e.Branch, err)
		}
		if e.Branch == target {
			exists = true
			continue
		}
		if e.IsOpen() && state == types.PullStateClosed {
			slog.Info("pull request closed remotely", "branch", e.Branch, "pr", e.Number)
			e.State = types.PullStateClosed
		}
	}
	return exists, nil
}

// Save writes the ledger with the temp-file, fsync, rename pattern.
func (l *Ledger) Save() error {
	entries := l.Entries
	if entries == nil {
		entries = []types.LedgerEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	return WriteFileAtomic(l.path, append(data, '\n'))
}

// WriteFileAtomic replaces path with data so readers never see a partial
// file.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
