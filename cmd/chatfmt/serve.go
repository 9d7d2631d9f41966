package main

import (
	"os"
	"os/signal"
	"syscall"

	"chatfmt/internal/logger"
	"chatfmt/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		addr  string
		width int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the formatter over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr
			}

			log := logger.FromContext(cmd.Context())
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.Serve(ctx, addr, server.NewRouter(log, width), log)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "", "listen address (env: CHATFMT_ADDR, default: :8080)")
	flags.IntVar(&width, "width", 80, "width used for text rendering")

	return cmd
}
