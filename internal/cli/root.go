// Package cli implements the masader command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "masader" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "masader",
		Short: "Annotate datasets and propose them to the Masader catalogue",
		Long: "masader fills dataset metadata records against the catalogue schema, from scratch,\n" +
			"from a saved annotation or from a paper, and publishes them as pull requests.",
		// Errors are printed once by Run with their exit code.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return sysError(fmt.Errorf("loading .env: %w", err))
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .masader)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .masader-db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newNewCmd())
	root.AddCommand(newDraftsCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newSubsetCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newSaveCmd())
	root.AddCommand(newPublishCmd())
	root.AddCommand(newPRsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newRmCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "masader:", err)
	return exitCode(err)
}

// setupLogger installs the default slog handler. LOG_LEVEL wins over the
// configured level.
func setupLogger(w io.Writer, configured string) {
	logLevel := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = strings.ToUpper(configured)
	}

	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
