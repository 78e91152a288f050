package types

import (
	"errors"
	"strings"
)

// Config holds everything the form needs to load a schema, talk to the
// extraction service and publish to the catalogue repository.
type Config struct {
	SchemaMode    string `json:"schema_mode" yaml:"schema_mode"`
	SchemaBaseURL string `json:"schema_base_url" yaml:"schema_base_url"`
	SchemaPath    string `json:"schema_path,omitempty" yaml:"schema_path,omitempty"`
	ExtractorURL  string `json:"extractor_url" yaml:"extractor_url"`
	IdentityURL   string `json:"identity_url" yaml:"identity_url"`
	Repo          string `json:"repo" yaml:"repo"`
	RepoURL       string `json:"repo_url,omitempty" yaml:"repo_url,omitempty"`
	DatasetsDir   string `json:"datasets_dir" yaml:"datasets_dir"`
	DataDir       string `json:"data_dir" yaml:"data_dir"`
	SaveDir       string `json:"save_dir" yaml:"save_dir"`
	VolumeField   string `json:"volume_field" yaml:"volume_field"`
	ServerAddr    string `json:"server_addr" yaml:"server_addr"`
	LogLevel      string `json:"log_level" yaml:"log_level"`

	// AnnotationsFromPaper adds the annotations_from_paper map to payloads.
	AnnotationsFromPaper bool `json:"annotations_from_paper" yaml:"annotations_from_paper"`

	// Secrets are read from the environment only.
	GitHubToken  string `json:"-" yaml:"-"`
	GitUserName  string `json:"-" yaml:"-"`
	GitUserEmail string `json:"-" yaml:"-"`
}

// Defaults.
const (
	DefaultSchemaMode    = "ar"
	DefaultSchemaBaseURL = "https://raw.githubusercontent.com/ARBML/masader_bot/main/schema"
	DefaultExtractorURL  = "http://0.0.0.0:8080/run"
	DefaultIdentityURL   = "https://api.github.com/"
	DefaultRepo          = "ARBML/masader"
	DefaultDatasetsDir   = "datasets"
	DefaultVolumeField   = "Volume"
	DefaultServerAddr    = ":8501"
	DefaultLogLevel      = "info"
)

// Config validation errors.
var (
	ErrSchemaSourceEmpty = errors.New("schema mode or schema path must be set")
	ErrRepoInvalid       = errors.New("repo must be owner/name")
	ErrDataDirEmpty      = errors.New("data dir must not be empty")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.SchemaMode == "" && c.SchemaPath == "" {
		return ErrSchemaSourceEmpty
	}
	owner, name, ok := strings.Cut(c.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return ErrRepoInvalid
	}
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	return nil
}

// RepoOwner returns the owner part of Repo.
func (c Config) RepoOwner() string {
	owner, _, _ := strings.Cut(c.Repo, "/")
	return owner
}

// RepoName returns the name part of Repo.
func (c Config) RepoName() string {
	_, name, _ := strings.Cut(c.Repo, "/")
	return name
}
