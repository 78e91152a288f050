package types

// Pull request states as tracked in the ledger.
const (
	PullStateOpen   = "open"
	PullStateClosed = "closed"
)

// LedgerEntry correlates a dataset with the pull request that proposes it.
// At most one open entry exists per branch; the branch name is derived from
// the dataset name.
type LedgerEntry struct {
	Name   string `json:"name" csv:"name"`
	URL    string `json:"url" csv:"url"`
	Branch string `json:"branch" csv:"branch"`
	State  string `json:"state" csv:"state"`
	Number int    `json:"number" csv:"number"`
}

// IsOpen reports whether the entry is tracked as open.
func (e LedgerEntry) IsOpen() bool {
	return e.State == PullStateOpen
}

// Publish outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeNoChanges = "no_changes"
)

// PullRequestRef describes the result of a publish.
type PullRequestRef struct {
	Outcome string `json:"outcome"`
	URL     string `json:"url,omitempty"`
	Number  int    `json:"number,omitempty"`
	Branch  string `json:"branch"`
	Path    string `json:"path"`
}
