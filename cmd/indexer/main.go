// Command indexer scans one or more roots, converts and catalogs every
// image/text/video file it finds, and prints the final tally (§7).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mdbarr/indexer/internal/config"
	"github.com/mdbarr/indexer/internal/display"
	"github.com/mdbarr/indexer/internal/indexer"
	"github.com/mdbarr/indexer/internal/report"
	"github.com/mdbarr/indexer/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "indexer",
		Usage:   "content-addressed media indexer",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "directory containing the .indexer.kdl config file",
				Value:   ".",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"j"},
				Usage:   "override the configured slot pool size",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "override the indexed-path cache file",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "render a live terminal progress UI",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if n := c.Int("concurrency"); n > 0 {
		cfg.Concurrency = n
	}
	if cache := c.String("cache"); cache != "" {
		cfg.Cache = cache
	}

	var opts []indexer.Option
	if c.Bool("progress") {
		opts = append(opts, indexer.WithUI(display.NewTerminal(32)))
	}

	ix, err := indexer.Build(cfg, opts...)
	if err != nil {
		return fmt.Errorf("build indexer: %w", err)
	}
	defer ix.Close()

	roots := c.Args().Slice()
	if len(roots) == 0 {
		roots = cfg.Scan
	}

	start := time.Now()
	if err := ix.Run(context.Background(), roots); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	report.Print(os.Stdout, ix.Tally(time.Since(start)))
	return nil
}
