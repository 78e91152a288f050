package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbml/masader-form/internal/render"
	"github.com/arbml/masader-form/internal/server"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the annotation form over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := render.New()
			if err != nil {
				return sysError(err)
			}
			if addr == "" {
				addr = a.Config.ServerAddr
			}
			e := server.New(a, r, a.Config.LogLevel)

			context.AfterFunc(ctx, func() {
				graceful, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := e.Shutdown(graceful); err != nil {
					slog.Error("shutdown failed", "error", err)
				}
			})

			slog.Info("serving form", "addr", addr, "schema", a.Schema.Mode)
			if err := server.ListenAndServe(e, addr); err != nil {
				return sysError(fmt.Errorf("serve: %w", err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}
