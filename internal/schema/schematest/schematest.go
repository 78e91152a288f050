// Package schematest provides a fixed schema document for tests.
package schematest

import (
	_ "embed"
	"testing"

	"github.com/arbml/masader-form/internal/schema"
)

// Document is the raw fixture schema.
//
//go:embed ar.json
var Document []byte

// Load parses Document and fails the test on error.
func Load(tb testing.TB) *schema.Schema {
	tb.Helper()
	s, err := schema.Parse("ar", Document)
	if err != nil {
		tb.Fatalf("parsing fixture schema: %v", err)
	}
	return s
}
