package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/furrow/internal/config"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/search"
	"github.com/hyperjump/furrow/internal/storage"
)

// searchFailure is the 503 body: the usual empty response plus an error message.
type searchFailure struct {
	Error string `json:"error"`
	*models.SearchResponse
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		q := r.URL.Query()
		req.Query = q.Get("q")
		req.Type = q.Get("type")
		limit, err := intParam(q.Get("limit"))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = limit
	}

	if t := strings.ToLower(strings.TrimSpace(req.Type)); t != "" && !models.ValidSearchType(t) {
		s.respondError(w, http.StatusBadRequest, "type must be all, article or recipe")
		return
	}

	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		if !errors.Is(err, search.ErrFallbackFailure) {
			s.logger.Error("unexpected search error", zap.Error(err))
		}
		if resp == nil {
			resp = models.EmptyResponse(req.Type)
		}
		s.respondJSON(w, http.StatusServiceUnavailable, searchFailure{
			Error:          "search is temporarily unavailable",
			SearchResponse: resp,
		})
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	s.respondJSON(w, http.StatusOK, s.search.Analyze(q))
}

type listResponse struct {
	Items []*models.Entry `json:"items"`
	Total int             `json:"total"`
	Limit int             `json:"limit"`
	Skip  int             `json:"skip"`
}

func (s *Server) handleList(contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, err := intParam(q.Get("limit"))
		if err != nil || limit < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		skip, err := intParam(q.Get("skip"))
		if err != nil || skip < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid skip")
			return
		}
		if limit == 0 {
			limit = s.config.Search.DefaultLimit
		}
		if limit > s.config.Search.MaxLimit {
			limit = s.config.Search.MaxLimit
		}

		items, total, err := s.content.ListByType(r.Context(), contentType, limit, skip, storage.ParseSort(q.Get("sort")))
		if err != nil {
			s.logger.Error("list entries failed", zap.String("type", contentType), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "failed to list entries")
			return
		}
		s.respondJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: limit, Skip: skip})
	}
}

func (s *Server) handleGetEntry(contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		entry, err := s.content.GetByIdentifier(r.Context(), contentType, slug)
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, contentType+" not found")
			return
		}
		if err != nil {
			s.logger.Error("get entry failed", zap.String("slug", slug), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "failed to load entry")
			return
		}
		s.respondJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) handleIndexEntry(w http.ResponseWriter, r *http.Request) {
	var entry models.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidContentType(entry.ContentType) {
		s.respondError(w, http.StatusBadRequest, "type must be article or recipe")
		return
	}
	if entry.Title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	s.logger.Debug("index entry request", zap.String("id", entry.ID), zap.String("title", entry.Title))
	if err := s.indexer.IndexEntry(r.Context(), &entry); err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to index entry")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": entry.ID, "status": "indexed"})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete entry request", zap.String("id", id))
	err := s.indexer.RemoveEntry(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "entry not found")
		return
	}
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	clearIndex := s.config.Sync.ClearBeforeSync
	if v := r.URL.Query().Get("clear"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid clear")
			return
		}
		clearIndex = b
	}
	stats, err := s.indexer.Sync(r.Context(), clearIndex)
	if err != nil {
		s.logger.Error("sync failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries := make(map[string]int, len(models.ContentTypes))
	for _, contentType := range models.ContentTypes {
		n, err := s.content.Count(ctx, contentType)
		if err != nil {
			s.logger.Error("status: count entries failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "failed to count entries")
			return
		}
		entries[contentType] = n
	}
	resp := map[string]interface{}{
		"entries": entries,
		"config": map[string]interface{}{
			"index_name":       s.config.Engine.IndexName,
			"engine_timeout":   s.config.Engine.Timeout.String(),
			"fallback_timeout": s.config.Engine.FallbackTimeout.String(),
			"database_path":    s.config.Storage.DatabasePath,
			"bleve_index_path": s.config.Storage.BleveIndexPath,
		},
	}
	if s.docs != nil {
		n, err := s.docs.DocCount(ctx, s.config.Engine.IndexName)
		if err != nil {
			resp["index_error"] = err.Error()
		} else {
			resp["indexed_documents"] = n
		}
	}
	if usage, err := storage.MeasureUsage(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath); err == nil {
		resp["disk_usage"] = usage
		resp["disk_usage_bytes"] = usage.Total()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path   string `json:"path"`
	Import *bool  `json:"import,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	importExisting := true
	if req.Import != nil {
		importExisting = *req.Import
	}
	if err := s.watch.AddDirectory(abs, importExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories saves the current directory list to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
