package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/internal/app"
	"github.com/arbml/masader-form/internal/validate"
	"github.com/arbml/masader-form/pkg/types"
)

func newValidateCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Check a draft for submission",
		Long:  "Check the GitHub username and then every field in schema order, reporting the first failure.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDraft(cmd, args[0], func(a *app.App, d *types.Draft) error {
				res := a.Validate(cmd.Context(), d.Record, username)
				if flags.jsonMode {
					if err := printJSON(cmd.OutOrStdout(), res); err != nil {
						return err
					}
				}
				if !res.OK {
					return invalid(res)
				}
				if !flags.jsonMode {
					fmt.Fprintln(cmd.OutOrStdout(), "All fields are valid.")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "GitHub username of the submitter")
	return cmd
}

func newSaveCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Write the draft payload to a local file",
		Long:  "Write the draft payload to --out, or to <save_dir>/<sanitized name>.json. Nothing is published.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDraft(cmd, args[0], func(a *app.App, d *types.Draft) error {
				path, err := a.SaveFile(d.Record, out)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func newPublishCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Validate a draft and propose it to the catalogue",
		Long: `Validate a draft and push it to its dataset branch add-<name> in the catalogue
repository. The first publish opens a pull request; later publishes update it,
or report no changes when the file is identical.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDraft(cmd, args[0], func(a *app.App, d *types.Draft) error {
				res, ref, err := a.Submit(cmd.Context(), d.Record, username)
				if errors.Is(err, app.ErrNotValid) {
					return invalid(res)
				}
				if err != nil {
					return sysError(fmt.Errorf("publish: %w", err))
				}

				w := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(w, ref)
				}
				switch ref.Outcome {
				case types.OutcomeCreated:
					fmt.Fprintf(w, "Pull request created: %s\n", ref.URL)
				case types.OutcomeUpdated:
					fmt.Fprintf(w, "Pull request updated: %s\n", ref.URL)
				default:
					fmt.Fprintf(w, "No changes to publish: %s\n", ref.URL)
				}
				fmt.Fprintf(w, "  branch: %s\n  file:   %s\n", ref.Branch, ref.Path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "GitHub username of the submitter")
	return cmd
}

// invalid reports a failed validation as a user error.
func invalid(res validate.Result) error {
	return userError(fmt.Errorf("%w: %s: %s", app.ErrNotValid, res.Field, res.Reason))
}
