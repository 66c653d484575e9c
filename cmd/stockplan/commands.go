package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/shelfstock/internal/app"
	"github.com/andresuchdata/shelfstock/internal/config"
	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/drive"
	"github.com/andresuchdata/shelfstock/internal/pipeline"
	"github.com/andresuchdata/shelfstock/internal/pipeline/replenishment"
	"github.com/andresuchdata/shelfstock/internal/pipeline/shelf_life"
	"github.com/andresuchdata/shelfstock/internal/repository/postgres"
	"github.com/andresuchdata/shelfstock/internal/service"
	"github.com/andresuchdata/shelfstock/internal/storage"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func policyFromFlags(c *cli.Context) shelf_life.Policy {
	return shelf_life.Policy{
		ShelfLifeDays: c.Float64("shelf-life-days"),
		CapFraction:   c.Float64("cap"),
		HighZScore:    c.Float64("high-z"),
	}
}

// writeTable writes t to path, or to stdout for "-" or "".
func writeTable(path string, t *tabular.Table) error {
	if path == "" || path == "-" {
		return tabular.WriteCSV(os.Stdout, t)
	}
	if err := tabular.WriteFile(path, t); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("rows", t.Len()).Msg("Output written")
	return nil
}

func runTargets(c *cli.Context, cfg *config.Config) error {
	format, err := shelf_life.ParseOutputFormat(c.String("format"))
	if err != nil {
		return err
	}

	application, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	policy := policyFromFlags(c)
	in := service.StockTargetInput{Policy: &policy, Persist: c.Bool("persist"), Source: "sample"}

	var out *service.StockTargetRun
	if input := c.String("input"); input != "" {
		table, err := tabular.ReadFile(input)
		if err != nil {
			return err
		}
		in.Source = filepath.Base(input)
		out, err = application.StockTargets.ComputeTable(c.Context, table, in)
		if err != nil {
			return err
		}
	} else {
		in.Records = shelf_life.SampleRecords()
		out, err = application.StockTargets.Compute(c.Context, in)
		if err != nil {
			return err
		}
	}

	if out.Run != nil {
		log.Info().Str("run_id", out.Run.ID).Msg("Stock target run persisted")
	}
	return writeTable(c.String("output"), shelf_life.ToTable(out.Results, format))
}

func runReplenish(c *cli.Context, cfg *config.Config) error {
	format, err := replenishment.ParseOutputFormat(c.String("format"))
	if err != nil {
		return err
	}

	application, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	in := service.ReplenishmentInput{Persist: c.Bool("persist"), Source: "sample"}

	var out *service.ReplenishmentRun
	if input := c.String("input"); input != "" {
		table, err := tabular.ReadFile(input)
		if err != nil {
			return err
		}
		in.Source = filepath.Base(input)
		out, err = application.Replenishment.EvaluateTable(c.Context, table, in)
		if err != nil {
			return err
		}
	} else {
		in.Records = replenishment.SampleRecords(time.Now())
		out, err = application.Replenishment.Evaluate(c.Context, in)
		if err != nil {
			return err
		}
	}

	if c.Bool("summary") {
		s := out.Summary
		log.Info().
			Int("products", s.TotalProducts).
			Int("reorder_now", s.ReorderCount).
			Int("monitor", s.MonitorCount).
			Int("ok", s.OKCount).
			Int64("total_gap", s.TotalGap).
			Int64("total_suggested", s.TotalSuggested).
			Str("total_estimated_cost", s.TotalEstimatedCost.StringFixed(2)).
			Interface("abc", s.ABCDistribution).
			Msg("Replenishment summary")
	}
	return writeTable(c.String("output"), replenishment.ToTable(out.Results, format))
}

// buildPipeline returns the batch pipeline for kind.
func buildPipeline(c *cli.Context, cfg *config.Config, kind string) (pipeline.Pipeline, error) {
	switch kind {
	case domain.KindStockTargets:
		format, err := shelf_life.ParseOutputFormat(c.String("format"))
		if err != nil {
			return nil, err
		}
		return shelf_life.NewStockTargetPipeline(shelf_life.Config{
			Policy:          policyFromFlags(c),
			Format:          format,
			InputDateFormat: c.String("input-date-format"),
		})
	case domain.KindReplenishment:
		format, err := replenishment.ParseOutputFormat(c.String("format"))
		if err != nil {
			return nil, err
		}
		policy, err := cfg.Policy.ReplenishmentPolicy()
		if err != nil {
			return nil, err
		}
		return replenishment.NewReplenishmentPipeline(replenishment.Config{
			Policy:          policy,
			Format:          format,
			InputDateFormat: c.String("input-date-format"),
		})
	}
	return nil, fmt.Errorf("%w: unknown calculation kind %q", domain.ErrInvalidInput, kind)
}

// listTables returns the CSV and XLSX files of dir in name order.
func listTables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".csv" && ext != ".xlsx") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func newDriveDownloader(ctx context.Context, cfg *config.Config) (*drive.Downloader, error) {
	if strings.TrimSpace(cfg.Drive.CredentialsFile) == "" {
		return nil, fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is required for Drive input")
	}
	driveSvc, err := drive.NewServiceFromFile(ctx, cfg.Drive.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return drive.NewDownloader(driveSvc), nil
}

// collectInputs resolves the batch input files from exactly one of the input sources.
func collectInputs(c *cli.Context, cfg *config.Config, application *app.App) ([]string, error) {
	switch {
	case c.String("input-dir") != "":
		return listTables(c.String("input-dir"))
	case c.String("drive-folder-id") != "":
		downloader, err := newDriveDownloader(c.Context, cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("folder", c.String("drive-folder-id")).Msg("Downloading tables from Drive")
		return downloader.DownloadFolder(c.Context, drive.DownloadOptions{
			FolderID:    c.String("drive-folder-id"),
			DownloadDir: c.String("download-dir"),
		})
	case c.String("storage-prefix") != "":
		if application.Storage == nil {
			return nil, fmt.Errorf("object storage is disabled; set STORAGE_ENABLED=true")
		}
		if err := os.MkdirAll(c.String("download-dir"), 0755); err != nil {
			return nil, err
		}
		return storage.DownloadPrefix(c.Context, application.Storage, c.String("storage-prefix"), c.String("download-dir"))
	}
	return nil, fmt.Errorf("one of --input-dir, --drive-folder-id or --storage-prefix is required")
}

func newOrchestrator(c *cli.Context, cfg *config.Config, application *app.App, p pipeline.Pipeline) (*pipeline.Orchestrator, error) {
	pCfg := pipeline.DefaultPipelineConfig(p.Name())
	pCfg.OutputDir = filepath.Join(c.String("output-dir"), p.Name())
	pCfg.WorkerCount = c.Int("workers")

	var onFlush pipeline.FlushFunc
	if c.Bool("upload") {
		if application.Storage == nil {
			return nil, fmt.Errorf("--upload needs object storage; set STORAGE_ENABLED=true")
		}
		onFlush = storage.UploadFlush(application.Storage, cfg.Storage.Prefix, p.Name())
	}

	return pipeline.NewOrchestrator(application.RunStore, pCfg, onFlush), nil
}

func logResults(results []pipeline.RunResult) {
	for _, r := range results {
		log.Info().
			Str("pipeline", r.Run.PipelineName).
			Str("date", r.Run.Date.Format("2006-01-02")).
			Str("status", string(r.Run.Status)).
			Int("files", r.Run.TotalFiles).
			Strs("outputs", r.Outputs).
			Msg("Batch completed")
	}
}

func runBatch(c *cli.Context, cfg *config.Config) error {
	application, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	p, err := buildPipeline(c, cfg, c.String("kind"))
	if err != nil {
		return err
	}

	orch, err := newOrchestrator(c, cfg, application, p)
	if err != nil {
		return err
	}

	files, err := collectInputs(c, cfg, application)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info().Msg("No input tables found; nothing to process")
		return nil
	}

	results, err := orch.Run(c.Context, p, files)
	logResults(results)
	if err != nil && c.Bool("retry-failed") {
		log.Warn().Err(err).Str("pipeline", p.Name()).Msg("Batch failed; retrying failed files")
		if rerr := orch.RetryFailed(c.Context, p); rerr != nil {
			return fmt.Errorf("%s retry failed: %w", p.Name(), rerr)
		}
	}
	if err != nil {
		return fmt.Errorf("%s batch failed: %w", p.Name(), err)
	}
	return nil
}

func runWatch(c *cli.Context, cfg *config.Config) error {
	folderID := c.String("drive-folder-id")
	if folderID == "" {
		return fmt.Errorf("--drive-folder-id is required")
	}

	application, err := app.New(c.Context, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	p, err := buildPipeline(c, cfg, c.String("kind"))
	if err != nil {
		return err
	}
	orch, err := newOrchestrator(c, cfg, application, p)
	if err != nil {
		return err
	}
	downloader, err := newDriveDownloader(c.Context, cfg)
	if err != nil {
		return err
	}

	opts := drive.DownloadOptions{FolderID: folderID, DownloadDir: c.String("download-dir")}
	return downloader.Watch(c.Context, opts, c.Duration("interval"), func(ctx context.Context, paths []string) error {
		results, err := orch.Run(ctx, p, paths)
		logResults(results)
		return err
	})
}

func runMigrate(c *cli.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := postgres.Migrate(c.Context, db, c.String("migrations-dir"))
	if err != nil {
		return err
	}
	log.Info().Strs("applied", applied).Msg("Migrations complete")
	return nil
}
