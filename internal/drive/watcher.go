package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader pulls input tables from a Drive folder.
type Downloader struct {
	source FileSource
	seen   map[string]string // file ID -> modified time
}

func NewDownloader(source FileSource) *Downloader {
	return &Downloader{source: source, seen: make(map[string]string)}
}

// isTableFile reports whether name is a CSV or XLSX input table.
func isTableFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".xlsx"
}

// DownloadFolder downloads every CSV and XLSX file of the folder into DownloadDir and returns
// the local paths. XLSX files are kept as-is; the table reader parses their first sheet.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	return d.download(ctx, opts, false)
}

// DownloadChanged is DownloadFolder restricted to files that are new or modified since the
// previous call on this Downloader.
func (d *Downloader) DownloadChanged(ctx context.Context, opts DownloadOptions) ([]string, error) {
	return d.download(ctx, opts, true)
}

func (d *Downloader) download(ctx context.Context, opts DownloadOptions, onlyChanged bool) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !isTableFile(f.Name) {
			continue
		}
		if onlyChanged && d.seen[f.ID] == f.ModifiedTime {
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, filepath.Base(f.Name))
		if err := d.downloadTo(ctx, f, localPath); err != nil {
			return nil, err
		}
		d.seen[f.ID] = f.ModifiedTime
		localPaths = append(localPaths, localPath)
	}

	return localPaths, nil
}

func (d *Downloader) downloadTo(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.source.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}

// Watch polls the folder every interval and hands newly changed files to fn until ctx is done.
// A failing poll or callback is logged and retried on the next tick.
func (d *Downloader) Watch(ctx context.Context, opts DownloadOptions, interval time.Duration, fn func(ctx context.Context, paths []string) error) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		paths, err := d.DownloadChanged(ctx, opts)
		switch {
		case err != nil:
			log.Error().Err(err).Str("folder", opts.FolderID).Msg("drive poll failed")
		case len(paths) > 0:
			log.Info().Int("files", len(paths)).Str("folder", opts.FolderID).Msg("drive files changed")
			if err := fn(ctx, paths); err != nil {
				log.Error().Err(err).Msg("drive batch failed")
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
