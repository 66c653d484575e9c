package replenishment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/shelfstock/internal/pipeline"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/rs/zerolog/log"
)

// PipelineName identifies replenishment runs.
const PipelineName = "replenishment"

// ReplenishmentPipeline implements pipeline.Pipeline for stock position tables.
type ReplenishmentPipeline struct {
	config     Config
	calculator *Calculator
}

// NewReplenishmentPipeline creates a new replenishment pipeline instance. A zero policy falls
// back to DefaultPolicy.
func NewReplenishmentPipeline(cfg Config) (*ReplenishmentPipeline, error) {
	if cfg.Policy.MonitorBand.IsZero() {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Format == "" {
		cfg.Format = FormatFull
	}
	if cfg.InputDateFormat == "" {
		cfg.InputDateFormat = pipeline.DefaultDateLayout
	}
	if cfg.RunDate.IsZero() {
		cfg.RunDate = time.Now().UTC()
	}

	calc, err := NewCalculator(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return &ReplenishmentPipeline{config: cfg, calculator: calc}, nil
}

// Name returns the unique identifier of this pipeline.
func (p *ReplenishmentPipeline) Name() string {
	return PipelineName
}

// Columns returns the output column order of the configured format.
func (p *ReplenishmentPipeline) Columns() []string {
	return Columns(p.config.Format)
}

// GetOutputTable returns the table persisted results land in.
func (p *ReplenishmentPipeline) GetOutputTable() string {
	return "replenishment_results"
}

// GetSnapshotDate extracts the snapshot date from the filename, falling back to the run date.
func (p *ReplenishmentPipeline) GetSnapshotDate(filename string) (time.Time, error) {
	return pipeline.SnapshotDateFromFilename(filename, p.config.InputDateFormat, p.config.RunDate)
}

// Validate performs basic validation on the input file.
func (p *ReplenishmentPipeline) Validate(inputFile string) error {
	info, err := os.Stat(inputFile)
	if err != nil {
		return fmt.Errorf("cannot stat input file %s: %w", inputFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected file", inputFile)
	}
	if ext := strings.ToLower(filepath.Ext(inputFile)); ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("unsupported file extension %s for %s", ext, inputFile)
	}
	return nil
}

// Transform reads one stock position table and classifies every product.
func (p *ReplenishmentPipeline) Transform(ctx context.Context, inputFile string) ([]pipeline.TransformedRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := tabular.ReadFile(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", inputFile, err)
	}

	records, err := RecordsFromTable(table)
	if err != nil {
		return nil, err
	}

	results, err := p.calculator.Evaluate(records)
	if err != nil {
		return nil, err
	}

	summary := Summarize(results)
	log.Debug().
		Str("pipeline", p.Name()).
		Str("file", filepath.Base(inputFile)).
		Int("products", summary.TotalProducts).
		Int("reorder", summary.ReorderCount).
		Int("monitor", summary.MonitorCount).
		Msg("classified stock positions")

	return ToRows(results, p.config.Format), nil
}

var _ pipeline.Pipeline = (*ReplenishmentPipeline)(nil)
