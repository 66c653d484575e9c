package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/shelfstock/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorOrdersFilesWithinPart(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 2
	cfg.BatchSizeBytes = 0
	cfg.FlushInterval = 0

	sa := NewStreamingAggregator(&fakePipeline{}, cfg, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil)
	ctx := context.Background()

	require.NoError(t, sa.AddFileData(ctx, "c.csv", []TransformedRow{row("C", 3)}))
	require.NoError(t, sa.AddFileData(ctx, "a.csv", []TransformedRow{row("A", 1)}))
	require.NoError(t, sa.AddFileData(ctx, "b.csv", []TransformedRow{row("B", 2)}))

	files, _ := sa.GetBufferStats()
	assert.Equal(t, 1, files)
	require.NoError(t, sa.Finalize(ctx))

	written := sa.Written()
	require.Len(t, written, 2)
	assert.Equal(t, "fake_20240102_001.csv", filepath.Base(written[0]))
	assert.Equal(t, "fake_20240102_002.csv", filepath.Base(written[1]))

	first, err := tabular.ReadFile(written[0])
	require.NoError(t, err)
	products, _ := first.Column("Product")
	assert.Equal(t, []string{"A", "C"}, products)

	second, err := tabular.ReadFile(written[1])
	require.NoError(t, err)
	products, _ = second.Column("Product")
	assert.Equal(t, []string{"B"}, products)
}
