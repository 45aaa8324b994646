package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/furrow/internal/fileid"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/storage"
)

// Importer loads entries from YAML or JSON files and indexes them. A file holds either
// one entry or a list of entries; entries without an id get one derived from the file
// path and their position.
type Importer struct {
	indexer    *Indexer
	extensions []string

	mu     sync.Mutex
	byPath map[string][]string // absolute path -> entry ids imported from it
}

// NewImporter creates an importer accepting files with the given extensions
// (empty = .yaml, .yml and .json).
func NewImporter(idx *Indexer, extensions []string) *Importer {
	if len(extensions) == 0 {
		extensions = []string{".yaml", ".yml", ".json"}
	}
	return &Importer{
		indexer:    idx,
		extensions: extensions,
		byPath:     make(map[string][]string),
	}
}

// ImportFile parses path and indexes every entry in it. Entries imported from the same
// file earlier but missing now are removed. It returns the number of entries indexed.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	if !extensionAllowed(filepath.Ext(absPath), im.extensions) {
		return 0, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	entries, err := ParseEntries(absPath, data)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = fileid.EntryID(absPath, i)
		}
		if err := im.indexer.IndexEntry(ctx, e); err != nil {
			return len(ids), fmt.Errorf("%s entry %d: %w", absPath, i, err)
		}
		ids = append(ids, e.ID)
	}

	im.mu.Lock()
	previous := im.byPath[absPath]
	im.byPath[absPath] = ids
	im.mu.Unlock()
	for _, id := range previous {
		if !containsID(ids, id) {
			im.removeQuietly(ctx, id)
		}
	}

	im.indexer.logger.Debug("file imported", zap.String("path", absPath), zap.Int("entries", len(ids)))
	return len(ids), nil
}

// ImportDirectory walks dir recursively and imports every file with an accepted
// extension. It returns the number of entries indexed and the first error encountered.
func (im *Importer) ImportDirectory(ctx context.Context, dir string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), im.extensions) {
			return nil
		}
		count, importErr := im.ImportFile(ctx, path)
		n += count
		return importErr
	})
	return n, err
}

// RemoveFile removes the entries imported from path.
func (im *Importer) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	im.mu.Lock()
	ids, ok := im.byPath[absPath]
	delete(im.byPath, absPath)
	im.mu.Unlock()
	if !ok {
		// not imported by this process; the first entry's derived id is the best guess
		ids = []string{fileid.EntryID(absPath, 0)}
	}
	for _, id := range ids {
		im.removeQuietly(ctx, id)
	}
	return nil
}

func (im *Importer) removeQuietly(ctx context.Context, id string) {
	if err := im.indexer.RemoveEntry(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		im.indexer.logger.Warn("failed to remove imported entry", zap.String("id", id), zap.Error(err))
	}
}

// ParseEntries decodes one entry or a list of entries. JSON files use the CMS field
// names (nodeType); YAML files use snake_case keys.
func ParseEntries(path string, data []byte) ([]*models.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	var entries []*models.Entry
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &entries); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		} else {
			var e models.Entry
			if err := json.Unmarshal(trimmed, &e); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			entries = append(entries, &e)
		}
	} else {
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&entries); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		} else {
			var e models.Entry
			if err := node.Decode(&e); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			entries = append(entries, &e)
		}
	}
	for i, e := range entries {
		if e == nil {
			return nil, fmt.Errorf("%s: entry %d is empty", path, i)
		}
		e.ContentType = strings.ToLower(strings.TrimSpace(e.ContentType))
		if !models.ValidContentType(e.ContentType) {
			return nil, fmt.Errorf("%s: entry %d has invalid type %q", path, i, e.ContentType)
		}
	}
	return entries, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
