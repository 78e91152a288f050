package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{SchemaMode: "ar", Repo: "ARBML/masader", DataDir: ".masader-db"}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"schema path only", func(c *Config) { c.SchemaMode = ""; c.SchemaPath = "schema.json" }, nil},
		{"no schema source", func(c *Config) { c.SchemaMode = "" }, ErrSchemaSourceEmpty},
		{"repo without owner", func(c *Config) { c.Repo = "masader" }, ErrRepoInvalid},
		{"repo with empty name", func(c *Config) { c.Repo = "ARBML/" }, ErrRepoInvalid},
		{"repo with extra segment", func(c *Config) { c.Repo = "a/b/c" }, ErrRepoInvalid},
		{"no data dir", func(c *Config) { c.DataDir = "" }, ErrDataDirEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Equal(t, tt.wantErr, c.Validate())
		})
	}
}

func TestConfigRepoParts(t *testing.T) {
	c := Config{Repo: "ARBML/masader"}
	assert.Equal(t, "ARBML", c.RepoOwner())
	assert.Equal(t, "masader", c.RepoName())
}
