package shelf_life

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

// PipelineName identifies stock target runs.
const PipelineName = "stock_targets"

// StockTargetPipeline implements pipeline.Pipeline for product planning tables.
type StockTargetPipeline struct {
	config     Config
	calculator *Calculator
}

// NewStockTargetPipeline creates a new stock target pipeline instance.
func NewStockTargetPipeline(cfg Config) (*StockTargetPipeline, error) {
	if cfg.Format == "" {
		cfg.Format = FormatFinal
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
	return &StockTargetPipeline{config: cfg, calculator: calc}, nil
}

// Name returns the unique identifier of this pipeline.
func (p *StockTargetPipeline) Name() string {
	return PipelineName
}

// Columns returns the output column order of the configured format.
func (p *StockTargetPipeline) Columns() []string {
	return Columns(p.config.Format)
}

// GetOutputTable returns the table persisted results land in.
func (p *StockTargetPipeline) GetOutputTable() string {
	return "stock_target_results"
}

// GetSnapshotDate extracts the snapshot date from the filename, falling back to the run date.
func (p *StockTargetPipeline) GetSnapshotDate(filename string) (time.Time, error) {
	return pipeline.SnapshotDateFromFilename(filename, p.config.InputDateFormat, p.config.RunDate)
}

// Validate performs basic validation on the input file.
func (p *StockTargetPipeline) Validate(inputFile string) error {
	return validateInputFile(inputFile)
}

// Transform reads one planning table and derives its stock targets.
func (p *StockTargetPipeline) Transform(ctx context.Context, inputFile string) ([]pipeline.TransformedRow, error) {
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

	results, err := p.calculator.Derive(records)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("pipeline", p.Name()).
		Str("file", filepath.Base(inputFile)).
		Int("records", len(results)).
		Msg("derived stock targets")

	return ToRows(results), nil
}

func validateInputFile(inputFile string) error {
	info, err := os.Stat(inputFile)
	if err != nil {
		return fmt.Errorf("cannot stat input file %s: %w", inputFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected file", inputFile)
	}
	switch ext := strings.ToLower(filepath.Ext(inputFile)); ext {
	case ".csv", ".xlsx":
		return nil
	default:
		return fmt.Errorf("unsupported file extension %s for %s", ext, inputFile)
	}
}

var _ pipeline.Pipeline = (*StockTargetPipeline)(nil)
