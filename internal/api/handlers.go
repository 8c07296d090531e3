package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newstide/newstide/internal/store"
)

type startCrawlRequest struct {
	UseMock bool `json:"useMock"`
	MaxNews int  `json:"maxNews"`
}

// runView is the wire shape of one ledger entry.
type runView struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
	RequestedCount int        `json:"requestedCount"`
	FetchedCount   int        `json:"fetchedCount"`
	NewCount       int        `json:"newCount"`
	DuplicateCount int        `json:"duplicateCount"`
	DeletedCount   int        `json:"deletedCount"`
	ErrorCount     int        `json:"errorCount"`
	Status         string     `json:"status"`
}

func toRunView(run store.CrawlRun) runView {
	return runView{
		ID:             run.ID.String(),
		Kind:           string(run.Kind),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		RequestedCount: run.RequestedCount,
		FetchedCount:   run.FetchedCount,
		NewCount:       run.NewCount,
		DuplicateCount: run.DuplicateCount,
		DeletedCount:   run.DeletedCount,
		ErrorCount:     run.ErrorCount,
		Status:         string(run.Status),
	}
}

type sourceTotalView struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

const recentRunLimit = 20

func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	var req startCrawlRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	summary, err := s.crawls.StartCrawl(r.Context(), req.UseMock, req.MaxNews)
	if err != nil {
		if errors.Is(err, store.ErrBusy) {
			writeError(s.logger, w, http.StatusConflict, "a crawl is already running")
			return
		}
		writeError(s.logger, w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusOK, envelope{
		Status:  "ok",
		Message: "crawl finished",
		Data:    summary,
	})
}

func (s *Server) crawlerStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := s.store.SourceTotals(ctx)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to load source totals")
		return
	}
	runs, err := s.store.RecentRuns(ctx, recentRunLimit)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to load recent runs")
		return
	}
	totalNews, err := s.store.CountActiveArticles(ctx)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to count articles")
		return
	}
	todayNews, err := s.store.CountArticlesCrawledSince(ctx, startOfDay(s.clock.Now()))
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to count today's articles")
		return
	}

	totalViews := make([]sourceTotalView, 0, len(totals))
	for _, t := range totals {
		totalViews = append(totalViews, sourceTotalView{Source: t.Source, Count: t.Count})
	}
	runViews := make([]runView, 0, len(runs))
	for _, run := range runs {
		runViews = append(runViews, toRunView(run))
	}

	writeJSON(s.logger, w, http.StatusOK, envelope{
		Status: "ok",
		Data: map[string]any{
			"sourceTotals": totalViews,
			"recentRuns":   runViews,
			"totalNews":    totalNews,
			"todayNews":    todayNews,
		},
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalNews, err := s.store.CountActiveArticles(ctx)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to count articles")
		return
	}
	totalSources, err := s.store.CountSources(ctx)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to count sources")
		return
	}
	totalCategories, err := s.store.CountCategories(ctx)
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to count categories")
		return
	}
	todayNews, err := s.store.CountArticlesCrawledSince(ctx, startOfDay(s.clock.Now()))
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to count today's articles")
		return
	}

	writeJSON(s.logger, w, http.StatusOK, envelope{
		Status: "ok",
		Data: map[string]any{
			"totalNews":       totalNews,
			"totalSources":    totalSources,
			"totalCategories": totalCategories,
			"todayNews":       todayNews,
		},
	})
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
