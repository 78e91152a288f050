package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/pkg/types"
)

// withDraft opens the app, loads draft id and runs fn. Errors returned by
// fn are classified for the exit code.
func withDraft(cmd *cobra.Command, id string, fn func(a *app.App, d *types.Draft) error) error {
	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.Draft(id)
	if err != nil {
		return fail(err)
	}
	return fail(fn(a, d))
}

// saveDraft stores the edited record of d.
func saveDraft(a *app.App, d *types.Draft) error {
	saved, err := a.SaveDraft(d.DraftID, d.Record)
	if err != nil {
		return err
	}
	*d = *saved
	return nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func printDiagnostics(w io.Writer, diags []form.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, "warning:", d.String())
	}
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, userError(fmt.Errorf("invalid row index %q", s))
	}
	return i, nil
}

// formatValue renders a field value on one line.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []*types.Record:
		return fmt.Sprintf("%d rows", len(t))
	case *types.Record:
		parts := make([]string, 0, t.Len())
		for _, k := range t.Keys() {
			cv, _ := t.Get(k)
			parts = append(parts, k+"="+formatValue(cv))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
