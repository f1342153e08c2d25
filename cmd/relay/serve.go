package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/shravanasati/relay/internal/app"
	"github.com/shravanasati/relay/internal/logging"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr, engine string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Address = addr
			}
			if engine != "" {
				c.cfg.Server.Engine = engine
			}
			if err := c.cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(c.cfg.Log.Level, c.cfg.Log.Format)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := app.New(c.cfg, logger, app.WithConsole(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.address)")
	cmd.Flags().StringVarP(&engine, "engine", "e", "", "nethttp, fasthttp or wire (overrides server.engine)")
	return cmd
}
