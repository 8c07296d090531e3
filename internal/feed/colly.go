package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/newstide/newstide/internal/config"
)

// CollyFetcher scrapes one configured headline list with a Colly collector.
// The item selector is expected to match one anchor per headline; an optional
// summary selector pulls a teaser paragraph relative to the same element.
type CollyFetcher struct {
	src       config.FeedSource
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewCollyFetcher builds a live fetcher for one feed source.
func NewCollyFetcher(src config.FeedSource, userAgent string, timeout time.Duration, logger *zap.Logger) *CollyFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &CollyFetcher{
		src:       src,
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
	}
}

// Name returns the registry name of the source.
func (f *CollyFetcher) Name() string { return f.src.Name }

// BaseURL returns the source's canonical site URL.
func (f *CollyFetcher) BaseURL() string { return f.src.BaseURL }

// Fetch visits the configured listing page and collects headline items.
func (f *CollyFetcher) Fetch(ctx context.Context, limit int) ([]Item, error) {
	collector := colly.NewCollector(colly.Async(false))
	if f.userAgent != "" {
		collector.UserAgent = f.userAgent
	}
	collector.SetRequestTimeout(f.timeout)

	titleSelector := f.src.TitleSelector
	if titleSelector == "" {
		titleSelector = "a"
	}

	var items []Item
	collector.OnHTML(f.src.ItemSelector, func(e *colly.HTMLElement) {
		if limit > 0 && len(items) >= limit {
			return
		}
		anchor := e.DOM.Find(titleSelector).First()
		title := strings.TrimSpace(anchor.Text())
		if title == "" {
			return
		}
		href, _ := anchor.Attr("href")
		summary := ""
		if f.src.SummarySelector != "" {
			summary = strings.TrimSpace(e.DOM.Find(f.src.SummarySelector).First().Text())
		}
		items = append(items, Item{
			Title:    title,
			URL:      e.Request.AbsoluteURL(href),
			Summary:  summary,
			Category: f.src.Category,
		})
	})

	// Colly has no context plumbing of its own; bail out before the visit if
	// the caller is already cancelled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := collector.Visit(f.src.URL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", f.src.URL, err)
	}
	collector.Wait()

	f.logger.Debug("feed fetched",
		zap.String("source", f.src.Name),
		zap.Int("items", len(items)),
	)
	return items, nil
}
