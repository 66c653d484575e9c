package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/rs/zerolog/log"
)

type fileRows struct {
	file string
	rows []TransformedRow
}

// StreamingAggregator buffers transformed rows per file and flushes them to CSV in batches.
// Within one part, rows are grouped by input file with files in path order. Which files land
// in which part follows the order they were added, so only a single-part run is independent
// of worker completion order.
type StreamingAggregator struct {
	pipeline      Pipeline
	config        PipelineConfig
	date          time.Time
	buffer        []fileRows
	bufferSize    int64
	parts         int
	written       []string
	mu            sync.Mutex
	flushCallback FlushFunc
	lastFlush     time.Time
}

// NewStreamingAggregator creates a new streaming aggregator for a pipeline
func NewStreamingAggregator(
	pipeline Pipeline,
	config PipelineConfig,
	date time.Time,
	flushCallback FlushFunc,
) *StreamingAggregator {
	return &StreamingAggregator{
		pipeline:      pipeline,
		config:        config,
		date:          date,
		buffer:        make([]fileRows, 0, config.BatchSize),
		flushCallback: flushCallback,
		lastFlush:     time.Now(),
	}
}

// AddFileData adds transformed data from a single file to the buffer
func (sa *StreamingAggregator) AddFileData(ctx context.Context, file string, rows []TransformedRow) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	sa.buffer = append(sa.buffer, fileRows{file: file, rows: rows})

	// Rough estimate: 16 bytes per cell
	for _, row := range rows {
		sa.bufferSize += int64(len(row.Data) * 16)
	}

	log.Debug().
		Str("pipeline", sa.pipeline.Name()).
		Int("files", len(sa.buffer)).
		Int64("bytes", sa.bufferSize).
		Msg("aggregator buffer")

	shouldFlush := (sa.config.BatchSize > 0 && len(sa.buffer) >= sa.config.BatchSize) ||
		(sa.config.BatchSizeBytes > 0 && sa.bufferSize >= sa.config.BatchSizeBytes) ||
		(sa.config.FlushInterval > 0 && time.Since(sa.lastFlush) >= sa.config.FlushInterval)

	if shouldFlush {
		return sa.flushLocked(ctx)
	}

	return nil
}

// Finalize flushes any remaining data
func (sa *StreamingAggregator) Finalize(ctx context.Context) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if len(sa.buffer) == 0 {
		log.Debug().Str("pipeline", sa.pipeline.Name()).Msg("no data to finalize")
		return nil
	}

	return sa.flushLocked(ctx)
}

// flushLocked writes the current buffer to CSV and triggers the flush callback.
// Must be called with sa.mu locked
func (sa *StreamingAggregator) flushLocked(ctx context.Context) error {
	if len(sa.buffer) == 0 {
		return nil
	}

	sort.SliceStable(sa.buffer, func(i, j int) bool { return sa.buffer[i].file < sa.buffer[j].file })

	var allRows []TransformedRow
	for _, fr := range sa.buffer {
		allRows = append(allRows, fr.rows...)
	}

	sa.parts++
	csvPath := filepath.Join(
		sa.config.OutputDir,
		fmt.Sprintf("%s_%s_%03d.csv", sa.pipeline.Name(), sa.date.Format(DefaultDateLayout), sa.parts),
	)

	table := RowsToTable(sa.pipeline.Columns(), allRows)
	if err := tabular.WriteFile(csvPath, table); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	sa.written = append(sa.written, csvPath)

	log.Info().
		Str("pipeline", sa.pipeline.Name()).
		Int("rows", len(allRows)).
		Str("path", csvPath).
		Msg("wrote aggregated output")

	if sa.flushCallback != nil {
		if err := sa.flushCallback(ctx, csvPath); err != nil {
			return fmt.Errorf("flush callback failed: %w", err)
		}
	}

	sa.buffer = sa.buffer[:0]
	sa.bufferSize = 0
	sa.lastFlush = time.Now()

	return nil
}

// Written returns the paths of all CSVs written so far.
func (sa *StreamingAggregator) Written() []string {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return append([]string(nil), sa.written...)
}

// GetBufferStats returns current buffer statistics
func (sa *StreamingAggregator) GetBufferStats() (fileCount int, byteSize int64) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return len(sa.buffer), sa.bufferSize
}
