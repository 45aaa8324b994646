package keyword

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
	"github.com/hyperjump/furrow/pkg/utils"
)

const deletePageSize = 500

var indexNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// BleveEngine implements Engine with one Bleve index per name. With an empty root
// directory every index lives in memory.
type BleveEngine struct {
	root   string
	logger *zap.Logger

	mu      sync.RWMutex
	indexes map[string]bleve.Index
	closed  bool
}

// NewBleveEngine creates an engine storing indexes under root. An empty root keeps
// indexes in memory only. A nil logger disables logging.
func NewBleveEngine(root string, logger *zap.Logger) (*BleveEngine, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	return &BleveEngine{
		root:    root,
		logger:  utils.OrNop(logger),
		indexes: make(map[string]bleve.Index),
	}, nil
}

// IndexExists reports whether the named index exists, opening it from disk if needed.
func (b *BleveEngine) IndexExists(ctx context.Context, name string) (bool, error) {
	_, err := b.index(name)
	if errors.Is(err, ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateIndex creates the named index with the given field mappings.
func (b *BleveEngine) CreateIndex(ctx context.Context, name string, fields []FieldMapping) error {
	if !indexNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIndexName, name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEngineClosed
	}
	if _, ok := b.indexes[name]; ok {
		return fmt.Errorf("%w: %s", ErrIndexExists, name)
	}

	im := buildMapping(fields)
	var (
		idx bleve.Index
		err error
	)
	if b.root == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		path := b.path(name)
		if _, statErr := os.Stat(path); statErr == nil {
			return fmt.Errorf("%w: %s", ErrIndexExists, name)
		}
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return fmt.Errorf("failed to create Bleve index %s: %w", name, err)
	}
	b.indexes[name] = idx
	b.logger.Info("created search index", zap.String("index", name), zap.Int("fields", len(fields)))
	return nil
}

// BulkIndex adds or replaces docs in one batch.
func (b *BleveEngine) BulkIndex(ctx context.Context, name string, docs []*models.SearchDocument) error {
	idx, err := b.index(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, documentFields(doc)); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", doc.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return wrapBleveErr("bulk index", err)
	}
	return nil
}

// Delete removes one document.
func (b *BleveEngine) Delete(ctx context.Context, name, id string) error {
	idx, err := b.index(name)
	if err != nil {
		return err
	}
	if err := idx.Delete(id); err != nil {
		return wrapBleveErr("delete", err)
	}
	return nil
}

// DeleteAll removes every document from the named index, keeping its mapping.
func (b *BleveEngine) DeleteAll(ctx context.Context, name string) error {
	idx, err := b.index(name)
	if err != nil {
		return err
	}
	removed := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), deletePageSize, 0, false)
		res, err := idx.SearchInContext(ctx, req)
		if err != nil {
			return wrapBleveErr("delete all", err)
		}
		if len(res.Hits) == 0 {
			break
		}
		batch := idx.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := idx.Batch(batch); err != nil {
			return wrapBleveErr("delete all", err)
		}
		removed += len(res.Hits)
	}
	b.logger.Info("cleared search index", zap.String("index", name), zap.Int("removed", removed))
	return nil
}

// DocCount returns the number of documents in the named index.
func (b *BleveEngine) DocCount(ctx context.Context, name string) (uint64, error) {
	idx, err := b.index(name)
	if err != nil {
		return 0, err
	}
	n, err := idx.DocCount()
	if err != nil {
		return 0, wrapBleveErr("doc count", err)
	}
	return n, nil
}

// Search runs q against the named index and returns at most limit hits with
// stored fields and highlight fragments.
func (b *BleveEngine) Search(ctx context.Context, name string, q *ranking.CompiledQuery, limit int) (*RawResult, error) {
	idx, err := b.index(name)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), limit, 0, false)
	req.Fields = []string{"*"}
	req.IncludeLocations = len(q.Highlight.Fields) > 0
	if len(q.Sort) > 0 {
		req.SortBy(sortOrder(q.Sort))
	}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, wrapBleveErr("search", err)
	}

	highlighters := newHighlighters(q.Highlight)
	out := &RawResult{Hits: make([]*Hit, 0, len(res.Hits)), Total: res.Total}
	for _, dm := range res.Hits {
		hit := &Hit{ID: dm.ID, Score: dm.Score, Fields: dm.Fields}
		if hit.Fields == nil {
			hit.Fields = map[string]interface{}{}
		}
		if err := highlightHit(idx, hit, dm, highlighters); err != nil {
			return nil, wrapBleveErr("highlight", err)
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

// Close closes every open index. Further calls return ErrEngineClosed.
func (b *BleveEngine) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	var errs []error
	for name, idx := range b.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	b.indexes = nil
	return errors.Join(errs...)
}

// index returns the named index, opening it from disk on first use.
func (b *BleveEngine) index(name string) (bleve.Index, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, ErrEngineClosed
	}
	idx, ok := b.indexes[name]
	b.mu.RUnlock()
	if ok {
		return idx, nil
	}
	if b.root == "" || !indexNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrEngineClosed
	}
	if idx, ok := b.indexes[name]; ok {
		return idx, nil
	}
	path := b.path(name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrEngineClosed, name, err)
	}
	b.indexes[name] = idx
	return idx, nil
}

func (b *BleveEngine) path(name string) string {
	return filepath.Join(b.root, name+".bleve")
}

// buildMapping maps fields onto a single document type. Text fields use the standard
// analyzer (lowercase + tokenize, no stemming); plural forms come from synonym expansion.
func buildMapping(fields []FieldMapping) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false
	for _, f := range fields {
		var fm *mapping.FieldMapping
		switch f.Kind {
		case FieldKeyword:
			fm = bleve.NewKeywordFieldMapping()
		case FieldDate:
			fm = bleve.NewDateTimeFieldMapping()
		default:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = standard.Name
		}
		fm.Store = true
		docMapping.AddFieldMappingsAt(f.Name, fm)
	}
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// documentFields flattens a SearchDocument for indexing. Dates are RFC 3339 so they
// round-trip through stored fields.
func documentFields(doc *models.SearchDocument) map[string]interface{} {
	fields := map[string]interface{}{
		models.FieldID:      doc.ID,
		models.FieldTitle:   doc.Title,
		models.FieldBody:    doc.Body,
		models.FieldSummary: doc.Summary,
		models.FieldType:    doc.Type,
		models.FieldSlug:    doc.Slug,
	}
	if doc.ImageURL != "" {
		fields[models.FieldImageURL] = doc.ImageURL
	}
	if !doc.PublishedAt.IsZero() {
		fields[models.FieldPublishedAt] = doc.PublishedAt.UTC().Format(time.RFC3339)
	}
	return fields
}

func wrapBleveErr(op string, err error) error {
	if errors.Is(err, bleve.ErrorIndexClosed) {
		return fmt.Errorf("%s: %w", op, ErrEngineClosed)
	}
	return fmt.Errorf("bleve %s failed: %w", op, err)
}
