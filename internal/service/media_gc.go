package service

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/schan/internal/logger"
	"github.com/itchan-dev/schan/internal/metrics"
)

// MediaReferences lists the media paths stored posts still point at.
type MediaReferences interface {
	ReferencedMedia(ctx context.Context) ([]string, error)
}

// MediaFiles is the file store view the collector needs.
type MediaFiles interface {
	Walk() ([]string, error)
	ModTime(publicPath string) (time.Time, error)
	Delete(publicPath string) error
}

// CleanupStats describes the last collection run.
type CleanupStats struct {
	RunAt         time.Time
	FilesScanned  int
	OrphanedFiles int
	FilesDeleted  int
	Duration      time.Duration
	Errors        []string
}

// MediaGarbageCollector removes uploaded files that no post references, such as leftovers
// of a failed delete or of a request that died between ingest and persist.
type MediaGarbageCollector struct {
	refs            MediaReferences
	files           MediaFiles
	safetyThreshold time.Duration
	now             func() time.Time

	mu        sync.Mutex
	lastStats CleanupStats
}

// NewMediaGarbageCollector creates a collector. Files younger than safetyThreshold are kept
// since their post may not be persisted yet.
func NewMediaGarbageCollector(refs MediaReferences, files MediaFiles, safetyThreshold time.Duration) *MediaGarbageCollector {
	return &MediaGarbageCollector{
		refs:            refs,
		files:           files,
		safetyThreshold: safetyThreshold,
		now:             time.Now,
	}
}

// StartBackgroundCleanup runs a collection every interval until ctx is done.
func (gc *MediaGarbageCollector) StartBackgroundCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		logger.Log.Info("media garbage collector disabled", "component", "media_gc")
		return
	}

	ticker := time.NewTicker(interval)
	logger.Log.Info("started media garbage collector",
		"component", "media_gc",
		"interval", interval,
		"safety_threshold", gc.safetyThreshold)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats, err := gc.RunCleanup(ctx)
				if err != nil {
					logger.Log.Error("media cleanup failed", "component", "media_gc", "error", err)
					continue
				}
				logger.Log.Info("media cleanup completed",
					"component", "media_gc",
					"scanned", stats.FilesScanned,
					"orphans", stats.OrphanedFiles,
					"deleted", stats.FilesDeleted,
					"duration", stats.Duration,
					"errors", len(stats.Errors))
			case <-ctx.Done():
				logger.Log.Info("media garbage collector stopped", "component", "media_gc")
				return
			}
		}
	}()
}

// RunCleanup executes a single collection cycle.
func (gc *MediaGarbageCollector) RunCleanup(ctx context.Context) (CleanupStats, error) {
	start := gc.now()
	stats := CleanupStats{RunAt: start}

	referenced, err := gc.refs.ReferencedMedia(ctx)
	if err != nil {
		return stats, err
	}
	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		keep[p] = struct{}{}
	}

	stored, err := gc.files.Walk()
	if err != nil {
		return stats, err
	}
	stats.FilesScanned = len(stored)

	for _, p := range stored {
		if _, ok := keep[p]; ok {
			continue
		}

		modTime, err := gc.files.ModTime(p)
		if err != nil {
			stats.Errors = append(stats.Errors, "stat "+p+": "+err.Error())
			continue
		}
		if start.Sub(modTime) < gc.safetyThreshold {
			continue
		}

		stats.OrphanedFiles++
		if err := gc.files.Delete(p); err != nil {
			stats.Errors = append(stats.Errors, "delete "+p+": "+err.Error())
			continue
		}
		stats.FilesDeleted++
		metrics.OrphanedMediaDeleted.Inc()
	}

	stats.Duration = gc.now().Sub(start)
	gc.mu.Lock()
	gc.lastStats = stats
	gc.mu.Unlock()
	return stats, nil
}

// LastCleanupStats returns the statistics of the last completed run.
func (gc *MediaGarbageCollector) LastCleanupStats() CleanupStats {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.lastStats
}
