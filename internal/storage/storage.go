package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/andresuchdata/shelfstock/internal/domain"
	"github.com/andresuchdata/shelfstock/internal/pipeline"
	"github.com/rs/zerolog/log"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the pipeline needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// ObjectKey joins prefix, pipeline name and file name into an object key.
func ObjectKey(prefix, pipelineName, filename string) string {
	return path.Join(prefix, pipelineName, filepath.Base(filename))
}

// UploadFlush returns a flush callback that uploads every aggregated CSV under
// prefix/pipelineName/. Upload failures are reported as IO failures.
func UploadFlush(store ObjectStorage, prefix, pipelineName string) pipeline.FlushFunc {
	return func(ctx context.Context, csvPath string) error {
		data, err := os.ReadFile(csvPath)
		if err != nil {
			return domain.IOError("read aggregated output", err)
		}

		key := ObjectKey(prefix, pipelineName, csvPath)
		if err := store.UploadObject(ctx, key, data); err != nil {
			return domain.IOError(fmt.Sprintf("upload %s", key), err)
		}

		log.Info().Str("key", key).Int("bytes", len(data)).Msg("uploaded output")
		return nil
	}
}

// DownloadPrefix downloads every object under prefix into dir and returns the local paths.
func DownloadPrefix(ctx context.Context, store ObjectStorage, prefix, dir string) ([]string, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects under %s: %w", prefix, err)
	}

	paths := make([]string, 0, len(objects))
	for _, obj := range objects {
		dest := filepath.Join(dir, filepath.Base(obj.Key))
		if err := store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return paths, fmt.Errorf("download %s: %w", obj.Key, err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}
