package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/pkg/types"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the fields of the loaded schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if flags.jsonMode {
				return printJSON(w, a.Schema.Fields())
			}
			fmt.Fprintf(w, "Schema %s: %d fields\n\n", a.Schema.Mode, len(a.Schema.Fields()))
			for _, f := range a.Schema.Fields() {
				marker := " "
				if f.Required {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %-20s %s\n", marker, f.Name, kindLabel(f))
				if f.HasOptions() {
					fmt.Fprintf(w, "    options: %s\n", strings.Join(f.Options, ", "))
				}
			}
			if groups := a.Schema.Groups(); len(groups) > 0 {
				fmt.Fprintln(w, "\nValidation groups:")
				for _, g := range groups {
					fmt.Fprintf(w, "  %s: %s\n", g, strings.Join(a.Schema.Group(g), ", "))
				}
			}
			return nil
		},
	}
}

func kindLabel(f types.Field) string {
	if f.Kind == types.KindRecordList {
		return "List[Dict[" + strings.Join(f.SubFields, ", ") + "]]"
	}
	return string(f.Kind)
}
