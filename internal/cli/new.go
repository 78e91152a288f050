package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/pkg/types"
)

type newOptions struct {
	jsonFile string
	jsonURL  string
	paper    string
	pdf      string
}

func newNewCmd() *cobra.Command {
	var opts newOptions
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start a new draft",
		Long: `Start a new draft from the schema defaults, optionally pre-filled from a saved
annotation (--json-file, --json-url) or by the extraction service from a paper
(--paper for an arXiv or direct pdf link, --pdf for a local file).

Prints the draft id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.jsonFile, "json-file", "", "load a saved annotation from a file")
	cmd.Flags().StringVar(&opts.jsonURL, "json-url", "", "load a saved annotation from a URL")
	cmd.Flags().StringVar(&opts.paper, "paper", "", "extract metadata from an arXiv or direct pdf link")
	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "extract metadata from a local pdf")
	cmd.MarkFlagsMutuallyExclusive("json-file", "json-url", "paper", "pdf")
	return cmd
}

func runNew(cmd *cobra.Command, opts newOptions) error {
	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var incoming *types.Record
	switch {
	case opts.jsonFile != "":
		incoming, err = a.ReadJSONFile(opts.jsonFile)
		if err != nil {
			return userError(err)
		}
	case opts.jsonURL != "":
		incoming, err = a.LoadJSON(ctx, opts.jsonURL)
	case opts.paper != "":
		incoming, err = a.Extract(ctx, opts.paper, nil, "")
	case opts.pdf != "":
		data, rerr := os.ReadFile(opts.pdf)
		if rerr != nil {
			return userError(fmt.Errorf("reading %s: %w", opts.pdf, rerr))
		}
		incoming, err = a.Extract(ctx, "", data, filepath.Base(opts.pdf))
	}
	if err != nil {
		return fail(err)
	}

	d, diags, err := a.NewDraft(incoming)
	if err != nil {
		return fail(err)
	}
	printDiagnostics(cmd.ErrOrStderr(), diags)

	if flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"draft_id":    d.DraftID,
			"name":        d.Name(),
			"diagnostics": diags,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), d.DraftID)
	return nil
}
