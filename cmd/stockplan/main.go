package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/andresuchdata/shelfstock/internal/config"
	"github.com/andresuchdata/shelfstock/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg := config.Load()
	logger.Configure(os.Stderr, cfg.App.LogFormat, zerolog.InfoLevel)
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("stockplan failed")
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:  "stockplan",
		Usage: "Derive shelf-life capped stock targets and replenishment status from inventory tables",
		Commands: []*cli.Command{
			{
				Name:   "targets",
				Usage:  "Derive stock targets from a product table (sample data when no input is given)",
				Flags:  append(targetFlags(cfg), ioFlags()...),
				Action: func(c *cli.Context) error { return runTargets(c, cfg) },
			},
			{
				Name:   "replenish",
				Usage:  "Classify replenishment status from an inventory table (sample data when no input is given)",
				Flags:  append(replenishFlags(), ioFlags()...),
				Action: func(c *cli.Context) error { return runReplenish(c, cfg) },
			},
			{
				Name:   "batch",
				Usage:  "Run a calculation over every table of a directory, Drive folder or bucket prefix",
				Flags:  append(batchFlags(cfg), targetFlags(cfg)...),
				Action: func(c *cli.Context) error { return runBatch(c, cfg) },
			},
			{
				Name:   "watch",
				Usage:  "Poll a Drive folder and run a batch whenever its tables change",
				Flags:  append(batchFlags(cfg), targetFlags(cfg)...),
				Action: func(c *cli.Context) error { return runWatch(c, cfg) },
			},
			{
				Name:  "migrate",
				Usage: "Apply SQL migrations to the configured database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "migrations-dir",
						Usage:   "Directory containing SQL migrations",
						Value:   "./scripts/migrations",
						EnvVars: []string{"MIGRATIONS_DIR"},
					},
				},
				Action: func(c *cli.Context) error { return runMigrate(c, cfg) },
			},
		},
	}
}

func ioFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Input CSV or XLSX table",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output CSV path, - for stdout",
			Value:   "-",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output column set (targets: final|complete, replenish: full|overview)",
		},
		&cli.BoolFlag{
			Name:  "persist",
			Usage: "Save the run to the configured repository",
		},
	}
}

func targetFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:    "shelf-life-days",
			Usage:   "Default shelf life in days",
			Value:   cfg.Policy.ShelfLifeDays,
			EnvVars: []string{"POLICY_SHELF_LIFE_DAYS"},
		},
		&cli.Float64Flag{
			Name:    "cap",
			Usage:   "Fraction of shelf life allowed as stocking horizon",
			Value:   cfg.Policy.InventoryCapPercentage,
			EnvVars: []string{"POLICY_INVENTORY_CAP_PERCENTAGE"},
		},
		&cli.Float64Flag{
			Name:    "high-z",
			Usage:   "Service factor reported on derived rows",
			Value:   cfg.Policy.HighZScore,
			EnvVars: []string{"POLICY_HIGH_Z_SCORE"},
		},
	}
}

func replenishFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "summary",
			Usage: "Log the summary metrics of the evaluated batch",
			Value: true,
		},
	}
}

func batchFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "kind",
			Usage: "Calculation to run: stock_targets or replenishment",
			Value: "stock_targets",
		},
		&cli.StringFlag{
			Name:  "input-dir",
			Usage: "Local directory of input tables",
		},
		&cli.StringFlag{
			Name:    "drive-folder-id",
			Usage:   "Google Drive folder of input tables",
			EnvVars: []string{"DRIVE_FOLDER_ID"},
		},
		&cli.StringFlag{
			Name:  "storage-prefix",
			Usage: "Object storage prefix of input tables",
		},
		&cli.StringFlag{
			Name:  "download-dir",
			Usage: "Local directory remote tables are downloaded to",
			Value: cfg.Drive.DownloadDir,
		},
		&cli.StringFlag{
			Name:  "output-dir",
			Usage: "Directory for aggregated output CSVs",
			Value: cfg.App.DataDir,
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output column set (stock_targets: final|complete, replenishment: full|overview)",
		},
		&cli.StringFlag{
			Name:    "input-date-format",
			Usage:   "Date layout prefix of input filenames (Go layout)",
			Value:   "20060102",
			EnvVars: []string{"INPUT_DATE_FORMAT"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of concurrent workers",
			Value:   runtime.NumCPU(),
			EnvVars: []string{"PIPELINE_WORKERS"},
		},
		&cli.BoolFlag{
			Name:  "upload",
			Usage: "Upload aggregated outputs to object storage",
		},
		&cli.BoolFlag{
			Name:  "retry-failed",
			Usage: "Retry failed files once more after a failed batch",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Drive poll interval (watch only)",
			Value: cfg.Drive.PollInterval,
		},
	}
}
