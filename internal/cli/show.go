package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/pkg/types"
)

const timeFormat = "2006-01-02 15:04:05"

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display a draft",
		Long:  "Display a draft field by field. With --json, print the payload exactly as save and publish write it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDraft(cmd, args[0], func(a *app.App, d *types.Draft) error {
				w := cmd.OutOrStdout()
				if flags.jsonMode {
					data, err := form.Marshal(a.Payload(d.Record))
					if err != nil {
						return err
					}
					_, err = w.Write(data)
					return err
				}

				fmt.Fprintf(w, "ID:        %s\n", d.DraftID)
				fmt.Fprintf(w, "Mode:      %s\n", d.Mode)
				fmt.Fprintf(w, "Created:   %s\n", d.CreatedAt.Local().Format(timeFormat))
				fmt.Fprintf(w, "Updated:   %s\n", d.UpdatedAt.Local().Format(timeFormat))
				fmt.Fprintln(w)
				for _, f := range a.Schema.Fields() {
					marker := ""
					if f.Required {
						marker = "*"
					}
					v, _ := d.Record.Get(f.Name)
					if f.Kind != types.KindRecordList {
						fmt.Fprintf(w, "%s%s: %s\n", f.Name, marker, formatValue(v))
						continue
					}
					fmt.Fprintf(w, "%s%s:\n", f.Name, marker)
					for i, row := range d.Record.Rows(f.Name) {
						fmt.Fprintf(w, "  [%d] %s\n", i, formatValue(row))
					}
				}
				return nil
			})
		},
	}
}
