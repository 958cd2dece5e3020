// Package sctemplate is the command line of the node: it runs the daemon and
// talks to a running one over JSON-RPC.
package sctemplate

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/horizenofficial/sctemplate/cmd/checkblocktemplate"
	"github.com/horizenofficial/sctemplate/daemon"
	"github.com/horizenofficial/sctemplate/errors"
	"github.com/horizenofficial/sctemplate/services/rpc"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/horizenofficial/sctemplate/util/health"
	jsoniter "github.com/json-iterator/go"
	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewApp builds the command tree. Output of the client commands goes to out.
func NewApp(progname, version string, tSettings *settings.Settings, out io.Writer) *cli.App {
	return &cli.App{
		Name:    progname,
		Usage:   "sidechain certificate aware block template node",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rpc",
				Usage: "JSON-RPC url of a running node",
				Value: defaultRPCURL(tSettings),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Run the node",
				Action: func(c *cli.Context) error {
					return startDaemon(progname, tSettings)
				},
			},
			{
				Name:  "getblocktemplate",
				Usage: "Fetch a block template from a running node",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "roots",
						Usage: "include the merkle root and the sidechain commitment",
					},
				},
				Action: func(c *cli.Context) error {
					client, err := newClient(c)
					if err != nil {
						return err
					}

					result, err := client.GetBlockTemplate(c.Context, c.Bool("roots"))
					if err != nil {
						return err
					}

					return printJSON(c.App.Writer, result)
				},
			},
			{
				Name:      "getblockmerkleroots",
				Usage:     "Compute the roots of arbitrary block content on a running node",
				ArgsUsage: "<coinbase hex> [tx hex...]",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "cert",
						Usage: "certificate hex, in block order, may be repeated",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return errors.NewInvalidArgumentError("the coinbase transaction is required")
					}

					txs, err := decodeAll(c.Args().Slice())
					if err != nil {
						return err
					}

					certs, err := decodeAll(c.StringSlice("cert"))
					if err != nil {
						return err
					}

					client, err := newClient(c)
					if err != nil {
						return err
					}

					result, err := client.GetBlockMerkleRoots(c.Context, txs, certs)
					if err != nil {
						return err
					}

					return printJSON(c.App.Writer, result)
				},
			},
			{
				Name:  "checkblocktemplate",
				Usage: "Check that a running node's template roots and certificate order are consistent",
				Action: func(c *cli.Context) error {
					client, err := newClient(c)
					if err != nil {
						return err
					}

					logger := ulogger.New("checkblocktemplate", ulogger.WithLevel(tSettings.LogLevel))

					template, err := checkblocktemplate.ValidateBlockTemplate(c.Context, logger, client)
					if template != nil {
						_, _ = fmt.Fprintf(c.App.Writer, "template %s at height %d\n", template.TemplateID, template.Height)
					}

					return err
				},
			},
			{
				Name:  "health",
				Usage: "Check the health endpoint of a running node",
				Action: func(c *cli.Context) error {
					status, details, err := health.CheckHTTPServer(c.String("rpc"), "/health")(c.Context, false)
					_, _ = fmt.Fprintln(c.App.Writer, details)

					if err != nil {
						return err
					}

					if status != http.StatusOK {
						return errors.NewServiceUnavailableError("node is unhealthy (status %d)", status)
					}

					return nil
				},
			},
		},
	}
}

// Run is the entry point of the binary.
func Run(progname, version, commit string) {
	gocore.SetInfo(progname, version, commit)

	tSettings := settings.NewSettings()

	if err := NewApp(progname, version, tSettings, os.Stdout).RunContext(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func startDaemon(progname string, tSettings *settings.Settings) error {
	logger := ulogger.New(progname, ulogger.WithLevel(tSettings.LogLevel), ulogger.WithLoggerType(tSettings.LoggerType))

	logger.Infof("starting %s %s on %s", progname, tSettings.Version, tSettings.Network)

	d := daemon.New(daemon.WithLoggerFactory(func(serviceName string) ulogger.Logger {
		return ulogger.New(serviceName, ulogger.WithLevel(tSettings.LogLevel), ulogger.WithLoggerType(tSettings.LoggerType))
	}))

	return d.Start(logger, tSettings)
}

func newClient(c *cli.Context) (*rpc.Client, error) {
	u, err := parseURL(c.String("rpc"))
	if err != nil {
		return nil, err
	}

	return rpc.NewClient(u)
}

func defaultRPCURL(tSettings *settings.Settings) string {
	if tSettings.RPC.ClientURL == nil {
		return ""
	}

	return tSettings.RPC.ClientURL.String()
}

func parseURL(s string) (*url.URL, error) {
	if s == "" {
		return nil, errors.NewConfigurationError("rpc url is not set")
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.NewConfigurationError("invalid rpc url %q", s, err)
	}

	return u, nil
}

func decodeAll(items []string) ([][]byte, error) {
	out := make([][]byte, len(items))

	for i, s := range items {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("item %d is not hex", i, err)
		}

		out[i] = b
	}

	return out, nil
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.NewProcessingError("failed to encode result", err)
	}

	_, err = fmt.Fprintln(w, string(b))

	return err
}
