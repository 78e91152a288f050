package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/form"
	"github.com/arbml/masader-form/pkg/types"
)

const defaultNestedField = "Subsets"

func newSubsetCmd() *cobra.Command {
	var fieldName string
	cmd := &cobra.Command{
		Use:   "subset",
		Short: "Edit the rows of a nested field",
	}
	cmd.PersistentFlags().StringVar(&fieldName, "field", defaultNestedField, "nested field to edit")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <id>",
		Short: "Append a blank row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDraft(cmd, args[0], func(a *app.App, d *types.Draft) error {
				if err := form.AddRow(a.Schema, d.Record, fieldName); err != nil {
					return err
				}
				if err := saveDraft(a, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s row %d added\n", fieldName, len(d.Record.Rows(fieldName))-1)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id> <index>",
		Short: "Remove a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return withDraft(cmd, args[0], func(a *app.App, d *types.Draft) error {
				if err := form.RemoveRow(a.Schema, d.Record, fieldName, i); err != nil {
					return err
				}
				if err := saveDraft(a, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s row %d removed\n", fieldName, i)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <index> <sub-field> <value>",
		Short: "Set one cell of a row; index one past the end appends a row",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			sub, value := args[2], args[3]
			return withDraft(cmd, args[0], func(a *app.App, d *types.Draft) error {
				if err := form.SetRowValue(a.Schema, d.Record, fieldName, i, sub, value); err != nil {
					return err
				}
				if err := saveDraft(a, d); err != nil {
					return err
				}
				row := d.Record.Rows(fieldName)[i]
				fmt.Fprintf(cmd.OutOrStdout(), "%s[%d]: %s\n", fieldName, i, formatValue(row))
				return nil
			})
		},
	})

	return cmd
}
