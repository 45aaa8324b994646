// Package indexer keeps the search index in step with the content source: full
// syncs, single-entry updates and file imports.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/furrow/internal/config"
	"github.com/hyperjump/furrow/internal/keyword"
	"github.com/hyperjump/furrow/internal/metrics"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/storage"
	"github.com/hyperjump/furrow/pkg/utils"
)

// Indexer writes entries to the content source and the search index.
type Indexer struct {
	store     storage.ContentSource
	engine    keyword.Engine
	index     string
	batchSize int
	logger    *zap.Logger

	// serializes index creation
	ensureMu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for sync progress and entry updates.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = utils.OrNop(l) }
}

// NewIndexer creates an indexer for the index named in cfg.
func NewIndexer(store storage.ContentSource, engine keyword.Engine, cfg *config.Config, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:     store,
		engine:    engine,
		index:     cfg.Engine.IndexName,
		batchSize: cfg.Sync.BatchSize,
		logger:    zap.NewNop(),
	}
	if idx.batchSize <= 0 {
		idx.batchSize = config.DefaultSyncBatchSize
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// SyncStats reports what a Sync wrote.
type SyncStats struct {
	Index   string         `json:"index"`
	Created bool           `json:"created"`
	Cleared bool           `json:"cleared"`
	Indexed map[string]int `json:"indexed"`
	Total   int            `json:"total"`
	Took    time.Duration  `json:"took_ns"`
}

// EnsureIndex creates the search index with the default field mappings if it does not
// exist. It reports whether the index was created.
func (idx *Indexer) EnsureIndex(ctx context.Context) (bool, error) {
	idx.ensureMu.Lock()
	defer idx.ensureMu.Unlock()
	exists, err := idx.engine.IndexExists(ctx, idx.index)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", idx.index, err)
	}
	if exists {
		return false, nil
	}
	if err := idx.engine.CreateIndex(ctx, idx.index, keyword.DefaultFieldMappings()); err != nil {
		if errors.Is(err, keyword.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", idx.index, err)
	}
	return true, nil
}

// Sync copies every entry of every content type into the search index, optionally
// clearing the index first. Content types are synced concurrently.
func (idx *Indexer) Sync(ctx context.Context, clearFirst bool) (*SyncStats, error) {
	start := time.Now()
	created, err := idx.EnsureIndex(ctx)
	if err != nil {
		return nil, err
	}
	stats := &SyncStats{Index: idx.index, Created: created, Indexed: make(map[string]int, len(models.ContentTypes))}
	if clearFirst && !created {
		if err := idx.engine.DeleteAll(ctx, idx.index); err != nil {
			return nil, fmt.Errorf("clear index %s: %w", idx.index, err)
		}
		stats.Cleared = true
	}

	counts := make([]int, len(models.ContentTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, contentType := range models.ContentTypes {
		i, contentType := i, contentType
		g.Go(func() error {
			n, err := idx.syncType(gctx, contentType)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, contentType := range models.ContentTypes {
		stats.Indexed[contentType] = counts[i]
		stats.Total += counts[i]
	}
	stats.Took = time.Since(start)
	idx.logger.Info("search index synced",
		zap.String("index", idx.index),
		zap.Int("total", stats.Total),
		zap.Bool("cleared", stats.Cleared),
		zap.Duration("took", stats.Took),
	)
	return stats, nil
}

// syncType pages through one content type in batches.
func (idx *Indexer) syncType(ctx context.Context, contentType string) (int, error) {
	indexed := 0
	for offset := 0; ; offset += idx.batchSize {
		entries, total, err := idx.store.ListByType(ctx, contentType, idx.batchSize, offset, storage.SortPublishedDesc)
		if err != nil {
			return indexed, fmt.Errorf("list %s entries: %w", contentType, err)
		}
		if len(entries) == 0 {
			return indexed, nil
		}
		docs := make([]*models.SearchDocument, len(entries))
		for i, e := range entries {
			docs[i] = ToSearchDocument(e)
		}
		if err := idx.engine.BulkIndex(ctx, idx.index, docs); err != nil {
			return indexed, fmt.Errorf("index %s batch at %d: %w", contentType, offset, err)
		}
		indexed += len(docs)
		metrics.IndexedDocumentsTotal.WithLabelValues(contentType).Add(float64(len(docs)))
		idx.logger.Debug("indexed batch",
			zap.String("type", contentType),
			zap.Int("batch", len(docs)),
			zap.Int("indexed", indexed),
			zap.Int("total", total),
		)
		if offset+len(entries) >= total {
			return indexed, nil
		}
	}
}

// IndexEntry stores e and indexes it. An entry without an ID gets a random one.
func (idx *Indexer) IndexEntry(ctx context.Context, e *models.Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if err := idx.store.Upsert(ctx, e); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	if _, err := idx.EnsureIndex(ctx); err != nil {
		return err
	}
	if err := idx.engine.BulkIndex(ctx, idx.index, []*models.SearchDocument{ToSearchDocument(e)}); err != nil {
		return fmt.Errorf("failed to index entry %s: %w", e.ID, err)
	}
	metrics.IndexedDocumentsTotal.WithLabelValues(e.ContentType).Inc()
	idx.logger.Debug("entry indexed", zap.String("id", e.ID), zap.String("type", e.ContentType))
	return nil
}

// RemoveEntry deletes an entry from the content source and the search index.
// It returns storage.ErrNotFound when the entry does not exist.
func (idx *Indexer) RemoveEntry(ctx context.Context, id string) error {
	if err := idx.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := idx.engine.Delete(ctx, idx.index, id); err != nil && !errors.Is(err, keyword.ErrIndexNotFound) {
		return fmt.Errorf("failed to remove entry %s from index: %w", id, err)
	}
	idx.logger.Debug("entry removed", zap.String("id", id))
	return nil
}
