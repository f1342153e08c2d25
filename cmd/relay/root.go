package main

import (
	"github.com/shravanasati/relay/internal/config"
	"github.com/spf13/cobra"
)

// cli carries state shared by the subcommands.
type cli struct {
	configPath string
	envFiles   []string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "relay",
		Short: "Dispatch HTTP requests through an interceptor pipeline to registered handlers",
		Long: `relay resolves each request to a registered route, runs it through the
configured interceptors in priority order, and invokes the route's handler.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", []string{".env"}, ".env files to load before reading RELAY_* variables")

	root.AddCommand(
		newServeCmd(c),
		newCallCmd(c),
		newRoutesCmd(c),
		newInspectCmd(c),
	)
	return root
}

func (c *cli) load() error {
	if err := config.LoadDotEnv(c.envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}
