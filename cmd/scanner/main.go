package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/twstock-scanner/internal/version"
	"github.com/rxtech-lab/twstock-scanner/pkg/marketdata"
)

const defaultConfigPath = "config.yaml"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "twscan",
		Usage:   "Taiwan equity screening and paper trading",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration. Defaults apply when the file is missing",
				Value:   defaultConfigPath,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "Run one daily scan: exits, entries, state update and report",
				Action: scanAction,
			},
			{
				Name:  "download",
				Usage: "Download or update the local daily history of the universe and the index",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "symbols",
						Aliases: []string{"s"},
						Usage:   "Symbols to update. Defaults to the universe plus the index",
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "Last day to fetch in `YYYY-MM-DD` format. Defaults to today",
						Value: time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{time.DateOnly},
						},
					},
					&cli.IntFlag{
						Name:  "lookback",
						Usage: "Calendar days fetched for a symbol without local history. Defaults to scan.lookback_days",
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   fmt.Sprintf("Remote provider (%v). Defaults to fetch.provider", marketdata.GetSupportedProviders()),
					},
					&cli.StringFlag{
						Name:  "from-csv",
						Usage: "Import <dir>/<symbol>_history.csv files instead of downloading",
					},
				},
				Action: downloadAction,
			},
			{
				Name:   "report",
				Usage:  "Re-render report.html from the last trading plan and print its summary",
				Action: reportAction,
			},
			{
				Name:  "serve",
				Usage: "Serve the dashboard",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address. Defaults to dashboard.addr",
					},
				},
				Action: serveAction,
			},
			{
				Name:  "position",
				Usage: "Record or close a holding bought or sold outside the scanner",
				Commands: []*cli.Command{
					{
						Name:  "add",
						Usage: "Add a holding. The stop is set from the ATR on the entry date",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Stock symbol", Required: true},
							&cli.FloatFlag{Name: "price", Usage: "Entry price", Required: true},
							&cli.TimestampFlag{
								Name:  "date",
								Usage: "Entry day in `YYYY-MM-DD` format. Defaults to today",
								Config: cli.TimestampConfig{
									Layouts: []string{time.DateOnly},
								},
							},
							&cli.Int64Flag{Name: "shares", Usage: "Shares held. Sized from the risk limits when omitted"},
							&cli.FloatFlag{Name: "highest", Usage: "Highest price since entry"},
						},
						Action: positionAddAction,
					},
					{
						Name:  "close",
						Usage: "Close a holding at the given price",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Stock symbol", Required: true},
							&cli.FloatFlag{Name: "price", Usage: "Exit price", Required: true},
							&cli.TimestampFlag{
								Name:  "date",
								Usage: "Exit day in `YYYY-MM-DD` format. Defaults to today",
								Config: cli.TimestampConfig{
									Layouts: []string{time.DateOnly},
								},
							},
						},
						Action: positionCloseAction,
					},
				},
			},
			{
				Name:   "migrate",
				Usage:  "Rewrite a legacy portfolio state file in the current schema",
				Action: migrateAction,
			},
			{
				Name:  "schema",
				Usage: "Write the configuration JSON schema and a sample configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Output directory",
						Value: "config",
					},
				},
				Action: schemaAction,
			},
			{
				Name:  "generate",
				Usage: "Write synthetic daily history for offline runs with the local provider",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "symbols",
						Usage: "Symbols to generate. Defaults to the universe plus the index",
					},
					&cli.IntFlag{
						Name:  "bars",
						Usage: "Sessions per symbol",
						Value: 400,
					},
					&cli.TimestampFlag{
						Name:  "end",
						Usage: "Last session in `YYYY-MM-DD` format. Defaults to today",
						Value: time.Now(),
						Config: cli.TimestampConfig{
							Layouts: []string{time.DateOnly},
						},
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "Random seed",
						Value: 42,
					},
				},
				Action: generateAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
