package endpoints

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/report"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
)

// DefaultHistoryPage is the number of batches /api/history returns.
const DefaultHistoryPage = 20

// HistoryEntry is a batch as listed by /api/history.
type HistoryEntry struct {
	model.Batch
	Serials []string `json:"serials"`
}

// StatsResponse is returned by /api/stats.
type StatsResponse struct {
	Today *model.DailyStatistic    `json:"today"`
	All   *store.StatisticsSummary `json:"all"`
}

// RegisterHistoryEndpoints registers the statistics and history endpoints
func RegisterHistoryEndpoints(s *server.Server) {
	s.Router.HandleFunc("/api/stats", handleStats(s.StatisticsStore, s.Logger)).Methods("GET")
	s.Router.HandleFunc("/api/history", handleListHistory(s.HistoryStore, s.Logger)).Methods("GET")
	s.Router.HandleFunc("/api/history/{id}", handleFetchHistory(s.HistoryStore)).Methods("GET")
	s.Router.HandleFunc("/api/history/{id}/report", handleHistoryReport(s.HistoryStore)).Methods("GET")
}

func handleStats(stats store.StatisticsStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatsResponse{
			Today: today(stats),
			All: &store.StatisticsSummary{
				Daily:    map[string]model.DailyStatistic{},
				Products: map[string]int{},
			},
		}
		if stats != nil {
			summary, err := stats.Summary()
			if err != nil {
				logger.Error("failed to load statistics", zap.Error(err))
				respondWithError(w, http.StatusInternalServerError, "failed to load statistics")
				return
			}
			resp.All = summary
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleListHistory(history store.HistoryStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			respondWithJSON(w, http.StatusOK, []HistoryEntry{})
			return
		}

		limit := DefaultHistoryPage
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		batches, err := history.ListBatches(limit)
		if err != nil {
			logger.Error("failed to load history", zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "failed to load history")
			return
		}

		entries := make([]HistoryEntry, len(batches))
		for i := range batches {
			entries[i] = HistoryEntry{Batch: batches[i], Serials: batches[i].Serials()}
			entries[i].Items = nil
		}
		respondWithJSON(w, http.StatusOK, entries)
	}
}

func fetchBatch(w http.ResponseWriter, r *http.Request, history store.HistoryStore) (*model.Batch, bool) {
	if history == nil {
		respondWithError(w, http.StatusNotFound, store.ErrBatchNotFound.Error())
		return nil, false
	}
	b, err := history.FetchBatch(mux.Vars(r)["id"])
	if errors.Is(err, store.ErrBatchNotFound) {
		respondWithError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return b, true
}

func handleFetchHistory(history store.HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := fetchBatch(w, r, history)
		if !ok {
			return
		}
		respondWithJSON(w, http.StatusOK, HistoryEntry{Batch: *b, Serials: b.Serials()})
	}
}

func handleHistoryReport(history store.HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := fetchBatch(w, r, history)
		if !ok {
			return
		}

		if r.URL.Query().Get("format") == "markdown" {
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			_, _ = w.Write([]byte(report.Markdown(b)))
			return
		}

		html, err := report.HTML(b)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
	}
}
