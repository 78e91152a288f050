package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/ledger"
	"github.com/arbml/masader-form/pkg/types"
)

func newPRsCmd() *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "prs",
		Short: "List the pull requests opened by publish",
		Long:  "List the ledger of pull requests. State is as of the last publish.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return sysError(err)
			}
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return sysError(fmt.Errorf("creating data dir: %w", err))
			}
			l, err := ledger.Load(app.LedgerPath(cfg))
			if err != nil {
				return sysError(err)
			}

			w := cmd.OutOrStdout()
			switch {
			case asCSV:
				return writeCSV(w, l.Entries)
			case flags.jsonMode:
				entries := l.Entries
				if entries == nil {
					entries = []types.LedgerEntry{}
				}
				return printJSON(w, entries)
			}
			if len(l.Entries) == 0 {
				fmt.Fprintln(w, "No pull requests.")
				return nil
			}
			for _, e := range l.Entries {
				fmt.Fprintf(w, "#%-5d %-6s  %-30s  %s\n", e.Number, e.State, e.Branch, e.URL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "output as CSV")
	return cmd
}

func writeCSV(w io.Writer, entries []types.LedgerEntry) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(types.LedgerEntry{}); err != nil {
		return sysError(fmt.Errorf("encoding csv header: %w", err))
	}
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return sysError(fmt.Errorf("encoding csv: %w", err))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return sysError(fmt.Errorf("writing csv: %w", err))
	}
	return nil
}
