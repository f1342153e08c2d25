package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/shravanasati/relay/internal/app"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var headingStyle = lipgloss.NewStyle().Bold(true)

func newRoutesCmd(c *cli) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List registered routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(c.cfg, zap.NewNop(), app.WithConsole(io.Discard))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, headingStyle.Render("METHOD")+"\t"+headingStyle.Render("PATH")+"\t"+headingStyle.Render("HANDLER")+"\t"+headingStyle.Render("MIME"))
			for _, key := range a.Routes().Routes() {
				d, _ := a.Routes().Lookup(key)
				mime := key.MimeType
				if mime == "" {
					mime = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key.Method, key.Path, d.Name(), mime)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if verbose {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headingStyle.Render("INTERCEPTORS (outermost first)"))
				for _, desc := range chain.Describe(a.Dispatcher().Interceptors()) {
					fmt.Fprintln(out, "  "+desc)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print the interceptor order")
	return cmd
}
