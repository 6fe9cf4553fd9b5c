package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"manthan/internal/core"
	"manthan/internal/sources"

	"github.com/go-chi/chi/v5"
)

const (
	recentClusterWindow = 24 * time.Hour
	maxClustersReturned = 20

	// Upstream feed hosts refuse default Go user agents.
	proxyUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// handleIngestArticles accepts a JSON array of feed-derived articles and
// upserts them. Re-fetches merge rather than duplicate; see the store's
// conflict rules.
func (s *Server) handleIngestArticles(w http.ResponseWriter, r *http.Request) {
	var payload []sources.IngestArticle
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	now := time.Now().UTC()
	articles := make([]core.Article, 0, len(payload))
	for _, in := range payload {
		if in.URL == "" || in.Headline == "" {
			continue
		}
		articles = append(articles, in.ToArticle(now))
	}

	if err := s.store.UpsertArticles(articles); err != nil {
		s.log.Error("server: article ingest failed", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to store articles")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"ingested": len(articles),
	})
}

// handleProcessPipeline runs one full analysis cycle.
func (s *Server) handleProcessPipeline(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Run(r.Context())
	if err != nil {
		s.log.Error("server: pipeline run failed", "error", err.Error())
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"clusters_generated": result.ClustersGenerated,
	})
}

// handleGetClusters returns recent clusters, newest first, capped at 20.
func (s *Server) handleGetClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.store.LoadRecentClusters(recentClusterWindow, maxClustersReturned)
	if err != nil {
		s.log.Error("server: cluster read failed", "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to load clusters")
		return
	}
	if clusters == nil {
		clusters = []core.Cluster{}
	}
	s.respondJSON(w, http.StatusOK, clusters)
}

// handleGetClusterArticles returns a cluster's members, newest first.
func (s *Server) handleGetClusterArticles(w http.ResponseWriter, r *http.Request) {
	clusterID := chi.URLParam(r, "clusterID")

	articles, err := s.store.LoadClusterArticles(clusterID)
	if err != nil {
		s.log.Error("server: cluster article read failed", "cluster_id", clusterID, "error", err.Error())
		s.respondError(w, http.StatusInternalServerError, "failed to load cluster articles")
		return
	}
	if articles == nil {
		articles = []core.Article{}
	}
	s.respondJSON(w, http.StatusOK, articles)
}

// handleProxyFetch streams an upstream feed URL through with a browser-like
// user agent. Feed hosts block cross-origin fetches and generic clients;
// the UI's feed preview goes through here.
func (s *Server) handleProxyFetch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		s.respondError(w, http.StatusBadRequest, "invalid url parameter")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid url parameter")
		return
	}
	req.Header.Set("User-Agent", proxyUserAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.proxy.Do(req)
	if err != nil {
		s.log.Warn("server: proxy fetch failed", "url", target.String(), "error", err.Error())
		s.respondError(w, http.StatusBadGateway, "upstream fetch failed")
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("server: response encoding failed", "error", err.Error())
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
