package main

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/transport/wire"
	"github.com/spf13/cobra"
)

func newInspectCmd(c *cli) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse raw HTTP/1.1 requests and print what the wire engine sees",
		Long: `inspect reads raw requests from stdin, or from every connection accepted
on --listen, and prints each one as parsed by the wire engine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			maxBody := c.cfg.Server.MaxBodySize.Int64()
			if listen == "" {
				return inspectStream(out, cmd.InOrStdin(), maxBody)
			}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return errors.Wrapf(err, "listening on %s", listen)
			}
			defer ln.Close()
			go func() {
				<-cmd.Context().Done()
				_ = ln.Close()
			}()
			fmt.Fprintln(out, "listening for connections on", ln.Addr())

			for {
				conn, err := ln.Accept()
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return errors.Wrap(err, "accepting connection")
				}
				fmt.Fprintln(out, "a connection has been accepted", conn.RemoteAddr())
				if err := inspectStream(out, conn, maxBody); err != nil {
					fmt.Fprintln(out, "error:", err)
				}
				_ = conn.Close()
				fmt.Fprintln(out, "a connection has been closed")
			}
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "accept connections on this address instead of reading stdin")
	return cmd
}

// inspectStream prints every request in r until the stream ends.
func inspectStream(out io.Writer, r io.Reader, maxBody int64) error {
	br := bufio.NewReader(r)
	for {
		msg, err := wire.ReadRequest(br, maxBody)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		printMessage(out, msg)
	}
}

func printMessage(out io.Writer, msg *wire.Message) {
	fmt.Fprintln(out, headingStyle.Render("Request line:"))
	fmt.Fprintf(out, "- Method: %s\n- Target: %s\n- Version: %s\n", msg.Method, msg.Target, msg.Proto)
	fmt.Fprintln(out, headingStyle.Render("Headers:"))
	for _, k := range msg.Headers.Keys() {
		fmt.Fprintf(out, "- %s: %s\n", k, msg.Headers.Get(k))
	}
	fmt.Fprintln(out, headingStyle.Render("Body:"))
	fmt.Fprintln(out, string(msg.Body))
}
