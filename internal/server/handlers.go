package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"riftstats/internal/db"
	"riftstats/internal/riot"
	"riftstats/internal/rollup"
	"riftstats/internal/stats"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// topEntries bounds the frequency entries returned per map.
const topEntries = 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// FrequencyEntry is one frequency map entry with its win rate.
type FrequencyEntry struct {
	Key     string  `json:"key"`
	Matches int64   `json:"matches"`
	Wins    int64   `json:"wins"`
	WinRate float64 `json:"winRate"`
}

// BucketView is a bucket with derived rates and its most common entries.
type BucketView struct {
	Key     stats.BucketKey                    `json:"key"`
	Totals  stats.Totals                       `json:"totals"`
	WinRate float64                            `json:"winRate"`
	KDA     float64                            `json:"kda"`
	Top     map[stats.MapName][]FrequencyEntry `json:"top,omitempty"`
}

func newBucketView(b stats.Bucket) BucketView {
	v := BucketView{
		Key:     b.Key,
		Totals:  b.Totals,
		WinRate: b.Totals.WinRate(),
		KDA:     b.Totals.KDA(),
	}
	for name, m := range b.Freq {
		if len(m) == 0 {
			continue
		}
		if v.Top == nil {
			v.Top = make(map[stats.MapName][]FrequencyEntry)
		}
		for _, key := range m.Top(topEntries) {
			c := m[key]
			v.Top[name] = append(v.Top[name], FrequencyEntry{Key: key, Matches: c.Matches, Wins: c.Wins, WinRate: c.WinRate()})
		}
	}
	return v
}

// bucketKeyFromRequest builds the key named by the path kind and query.
func bucketKeyFromRequest(r *http.Request) (stats.BucketKey, error) {
	q := r.URL.Query()
	return stats.KeyFromParams(func(name string) string {
		if name == "kind" {
			return chi.URLParam(r, "kind")
		}
		return q.Get(name)
	})
}

func (s *Server) handleBucket(w http.ResponseWriter, r *http.Request) {
	key, err := bucketKeyFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.buckets.FindBucket(r.Context(), key)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "bucket not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load bucket", "key", key, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load bucket")
		return
	}
	writeJSON(w, http.StatusOK, newBucketView(b))
}

func (s *Server) handleTopBuckets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := db.TopQuery{
		Champion: q.Get("champion"),
		Tier:     strings.ToUpper(q.Get("tier")),
		Patch:    q.Get("patch"),
	}
	if raw := q.Get("kind"); raw != "" {
		kind, ok := stats.ParseKind(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown bucket kind")
			return
		}
		query.Kind = kind
	}
	if raw := q.Get("role"); raw != "" {
		role, ok := stats.ParseRole(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown role")
			return
		}
		query.Role = role
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		query.Limit = limit
	}

	buckets, err := s.buckets.TopBuckets(r.Context(), query)
	if err != nil {
		s.logger.Error("Failed to list buckets", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list buckets")
		return
	}
	views := make([]BucketView, 0, len(buckets))
	for _, b := range buckets {
		views = append(views, newBucketView(b))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleMatchScores(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if _, err := riot.PlatformForMatchID(matchID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scores, err := s.scorer.ScoreMatch(r.Context(), matchID)
	switch {
	case errors.Is(err, riot.ErrNotFound):
		writeError(w, http.StatusNotFound, "match not found")
		return
	case err != nil:
		s.logger.Error("Failed to score match", "match", matchID, "err", err)
		writeError(w, http.StatusBadGateway, "failed to score match")
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// RollupRequest is the body of POST /api/rollup. Matches must be ordered
// most recent first.
type RollupRequest struct {
	Matches []rollup.ScoredMatch `json:"matches"`
	// Now overrides the heatmap anchor date.
	Now *time.Time `json:"now,omitempty"`
}

func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	var req RollupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	now := s.now()
	if req.Now != nil {
		now = *req.Now
	}
	writeJSON(w, http.StatusOK, rollup.Build(req.Matches, now))
}
