package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// draftSummary is the JSON view of a listed draft.
type draftSummary struct {
	DraftID   string    `json:"draft_id"`
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newDraftsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List drafts, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			drafts, err := backend.List()
			if err != nil {
				return fail(err)
			}

			if flags.jsonMode {
				out := make([]draftSummary, 0, len(drafts))
				for _, d := range drafts {
					out = append(out, draftSummary{
						DraftID:   d.DraftID,
						Name:      d.Name(),
						Mode:      d.Mode,
						CreatedAt: d.CreatedAt,
						UpdatedAt: d.UpdatedAt,
					})
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			if len(drafts) == 0 {
				fmt.Fprintln(w, "No drafts.")
				return nil
			}
			for _, d := range drafts {
				name := d.Name()
				if name == "" {
					name = "(unnamed)"
				}
				fmt.Fprintf(w, "%s  %-30s  %-4s  updated %s\n", d.DraftID, name, d.Mode, humanize.Time(d.UpdatedAt))
			}
			return nil
		},
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.Delete(args[0]); err != nil {
				return fail(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed", args[0])
			return nil
		},
	}
}
