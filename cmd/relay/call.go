package main

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/app"
	"github.com/shravanasati/relay/internal/headers"
	"github.com/shravanasati/relay/internal/logging"
	"github.com/shravanasati/relay/internal/transport"
	"github.com/spf13/cobra"
)

func newCallCmd(c *cli) *cobra.Command {
	var (
		rawHeaders  []string
		data        string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "call METHOD PATH [name=value...]",
		Short: "Dispatch one request in-process and print the raw HTTP response",
		Example: `  relay call GET /greet/ada shout=true
  relay call POST /sum -d '{"a":1,"b":2}' -t application/json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := url.Parse(args[1])
			if err != nil {
				return errors.Wrapf(err, "path %q", args[1])
			}
			query := target.Query()
			for _, kv := range args[2:] {
				name, value, ok := strings.Cut(kv, "=")
				if !ok || name == "" {
					return errors.Newf("parameter %q is not name=value", kv)
				}
				query.Add(name, value)
			}
			target.RawQuery = query.Encode()

			hdr := headers.NewHeaders()
			for _, line := range rawHeaders {
				if err := hdr.ParseFieldLine([]byte(line)); err != nil {
					return errors.Wrapf(err, "header %q", line)
				}
			}
			if contentType != "" {
				hdr.Set("content-type", contentType)
			}

			logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), c.cfg.Log.Level, c.cfg.Log.Format)
			if err != nil {
				return err
			}
			a, err := app.New(c.cfg, logger, app.WithConsole(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			resp := a.Serve(cmd.Context(), transport.Inbound{
				Method:     args[0],
				Target:     target.RequestURI(),
				Path:       target.Path,
				RawQuery:   target.RawQuery,
				Headers:    hdr,
				Body:       []byte(data),
				RemoteAddr: "127.0.0.1:0",
			})
			return resp.Write(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVarP(&rawHeaders, "header", "H", nil, `request header as "Name: value" (repeatable)`)
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringVarP(&contentType, "content-type", "t", "", "request content type")
	return cmd
}
