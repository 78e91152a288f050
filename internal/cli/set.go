package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/pkg/types"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Set one field of a draft",
		Long: `Set one field of a draft. The value is coerced to the field type: lists take
comma-separated items, booleans take true/false/yes/no, and nested fields take a
JSON array of objects.

Example:
  masader set <id> Name "Shami Corpus"
  masader set <id> Tasks "machine translation, dialect identification"
  masader set <id> Volume 12,000`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, name, value := args[0], args[1], args[2]
			return withDraft(cmd, id, func(a *app.App, d *types.Draft) error {
				if err := form.SetValue(a.Schema, d.Record, name, value); err != nil {
					return err
				}
				if err := saveDraft(a, d); err != nil {
					return err
				}
				v, _ := d.Record.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, formatValue(v))
				return nil
			})
		},
	}
}
