package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/schan/internal/domain"
	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/media"
	"github.com/itchan-dev/schan/internal/metrics"
)

type MediaService interface {
	Ingest(ctx context.Context, file *domain.PendingFile) (*domain.Media, error)
	Remove(paths ...string)
}

// FileStorage is implemented by storage/fs.
type FileStorage interface {
	Save(fileData io.Reader, filename string) (string, error)
	Open(publicPath string) (io.ReadCloser, error)
	Delete(publicPath string) error
}

type ImageCompressor interface {
	Compress(r io.Reader, ext string) ([]byte, error)
}

// Media stores uploads and swaps images for their recompressed variant when possible.
type Media struct {
	files      FileStorage
	compressor ImageCompressor
	now        func() time.Time
}

func NewMedia(files FileStorage, compressor ImageCompressor) *Media {
	return &Media{files: files, compressor: compressor, now: time.Now}
}

// Ingest stores file as <unix-millis>-<uuid><ext>. Compression failures are logged and
// counted, the original upload is kept in that case.
func (m *Media) Ingest(ctx context.Context, file *domain.PendingFile) (*domain.Media, error) {
	if file == nil || file.Data == nil {
		return nil, fmt.Errorf("no file data")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := fmt.Sprintf("%d-%s%s", m.now().UnixMilli(), uuid.NewString(), ext)

	path, err := m.files.Save(file.Data, filename)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", filename, err)
	}

	if file.Kind == domain.MediaImage && media.Compressible(ext) {
		compressed, err := m.compress(path, filename, ext)
		if err != nil {
			metrics.MediaFallbacks.Inc()
			logger.Log.Warn("image compression failed, keeping original",
				"component", "media",
				"file", filename,
				"error", err)
		} else {
			path = compressed
		}
	}

	return &domain.Media{Path: path, Kind: file.Kind}, nil
}

func (m *Media) compress(path, filename, ext string) (string, error) {
	src, err := m.files.Open(path)
	if err != nil {
		return "", err
	}
	data, err := m.compressor.Compress(src, ext)
	src.Close()
	if err != nil {
		return "", err
	}

	compressedPath, err := m.files.Save(bytes.NewReader(data), media.CompressedName(filename))
	if err != nil {
		return "", err
	}
	if err := m.files.Delete(path); err != nil {
		logger.Log.Warn("failed to remove original after compression",
			"component", "media",
			"path", path,
			"error", err)
	}
	return compressedPath, nil
}

// Remove deletes stored files, logging failures.
func (m *Media) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := m.files.Delete(p); err != nil {
			logger.Log.Error("failed to remove media",
				"component", "media",
				"path", p,
				"error", err)
		}
	}
}
