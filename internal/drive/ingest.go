package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/service"
	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/rs/zerolog/log"
)

// IngestResult describes one Drive file evaluated and persisted as a calculation run.
type IngestResult struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Kind     string `json:"kind"`
	RunID    string `json:"run_id"`
	Records  int    `json:"records"`
}

type IngestService struct {
	source        FileSource
	stockTargets  *service.StockTargetService
	replenishment *service.ReplenishmentService
	workDir       string
}

func NewIngestService(source FileSource, stockTargets *service.StockTargetService, replenishment *service.ReplenishmentService, workDir string) *IngestService {
	return &IngestService{
		source:        source,
		stockTargets:  stockTargets,
		replenishment: replenishment,
		workDir:       workDir,
	}
}

// IngestFile downloads a CSV or XLSX file and runs the calculation named by kind on it.
// Rows are never partially accepted: any bad record fails the whole file.
func (s *IngestService) IngestFile(ctx context.Context, fileID, kind string) (*IngestResult, error) {
	// 1. Resolve file metadata
	file, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !isTableFile(file.Name) {
		return nil, fmt.Errorf("%w: %s is not a csv or xlsx file", domain.ErrInvalidInput, file.Name)
	}

	// 2. Download to a temp file; the table reader picks the parser by extension
	table, err := s.fetchTable(ctx, file)
	if err != nil {
		return nil, err
	}

	// 3. Evaluate and persist
	source := "drive:" + file.Name
	result := &IngestResult{FileID: file.ID, FileName: file.Name, Kind: kind}

	switch kind {
	case domain.KindStockTargets:
		out, err := s.stockTargets.ComputeTable(ctx, table, service.StockTargetInput{Source: source, Persist: true})
		if err != nil {
			return nil, err
		}
		result.RunID, result.Records = out.Run.ID, len(out.Results)
	case domain.KindReplenishment:
		out, err := s.replenishment.EvaluateTable(ctx, table, service.ReplenishmentInput{Source: source, Persist: true})
		if err != nil {
			return nil, err
		}
		result.RunID, result.Records = out.Run.ID, len(out.Results)
	default:
		return nil, fmt.Errorf("%w: unknown calculation kind %q", domain.ErrInvalidInput, kind)
	}

	log.Info().
		Str("file", file.Name).
		Str("kind", kind).
		Str("run_id", result.RunID).
		Int("records", result.Records).
		Msg("Drive file ingested")

	return result, nil
}

func (s *IngestService) fetchTable(ctx context.Context, file *File) (*tabular.Table, error) {
	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.workDir, "drive-*"+filepath.Ext(file.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.source.DownloadFile(ctx, file.ID, tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	return tabular.ReadFile(tmp.Name())
}
