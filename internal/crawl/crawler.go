// Package crawl implements the article ingestion stage: competitor
// queries go out to the search API, result URLs are deduplicated
// against every article ever stored, and new article bodies are fetched
// and appended to the articles sheet.
package crawl

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/welda-labs/compintel/internal/dedup"
	"github.com/welda-labs/compintel/internal/model"
	"github.com/welda-labs/compintel/internal/resilience"
	"github.com/welda-labs/compintel/internal/store"
	"github.com/welda-labs/compintel/internal/watchlist"
	"github.com/welda-labs/compintel/pkg/websearch"
)

const maxBodyBytes = 2 << 20

// Config tunes the crawl stage.
type Config struct {
	ResultsPerQuery  int           // search results requested per query
	MinBodyChars     int           // articles with shorter bodies are dropped
	FetchConcurrency int           // parallel article fetches
	FetchRPS         float64       // article fetch rate limit
	FetchTimeout     time.Duration // per-article fetch timeout
}

func (c Config) withDefaults() Config {
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = 20
	}
	if c.MinBodyChars <= 0 {
		c.MinBodyChars = 200
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	if c.FetchRPS <= 0 {
		c.FetchRPS = 2
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 20 * time.Second
	}
	return c
}

// Crawler runs the ingestion stage.
type Crawler struct {
	search websearch.Client
	store  store.RecordStore
	http   *http.Client
	cfg    Config
	retry  resilience.RetryConfig
	logger *zap.Logger
}

// New creates a Crawler. A nil httpClient gets a default with the
// configured fetch timeout.
func New(search websearch.Client, st store.RecordStore, httpClient *http.Client, cfg Config) *Crawler {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.FetchTimeout}
	}
	return &Crawler{
		search: search,
		store:  st,
		http:   httpClient,
		cfg:    cfg,
		retry:  resilience.DefaultRetryConfig(),
		logger: zap.L().Named("crawl"),
	}
}

// candidate is a search hit that survived URL dedup.
type candidate struct {
	competitor string
	query      string
	title      string
	url        string
	date       string
}

// Run executes one crawl pass over the watchlist. The dedup index is
// rebuilt from the articles sheet at the start; a failed read aborts
// the stage so duplicates can never slip in.
func (c *Crawler) Run(ctx context.Context, wl *watchlist.Watchlist) (model.StageCounts, error) {
	var counts model.StageCounts

	existing, err := c.store.ReadAll(ctx, model.SheetArticles)
	if err != nil {
		return counts, eris.Wrap(err, "crawl: read articles sheet")
	}
	index := dedup.Build(existing, dedup.URLKey)
	c.logger.Info("crawl starting",
		zap.Int("competitors", len(wl.Competitors)),
		zap.Int("known_urls", index.Len()),
	)

	var candidates []candidate
	for _, comp := range wl.Competitors {
		for _, query := range comp.Queries() {
			results, err := c.runSearch(ctx, query)
			if err != nil {
				if ctx.Err() != nil {
					return counts, eris.Wrap(ctx.Err(), "crawl: cancelled")
				}
				c.logger.Warn("search failed",
					zap.String("competitor", comp.Name),
					zap.String("query", query),
					zap.Error(err),
				)
				counts.Failed++
				continue
			}

			for _, r := range results {
				counts.Processed++
				url := strings.TrimSpace(r.URL)
				if url == "" || index.Has(url) {
					counts.Skipped++
					continue
				}
				index.Add(url)
				candidates = append(candidates, candidate{
					competitor: comp.Name,
					query:      query,
					title:      r.Title,
					url:        url,
					date:       r.Date,
				})
			}
		}
	}

	articles, fetchFailed, shortBodies := c.fetchAll(ctx, candidates)
	counts.Failed += fetchFailed
	counts.Skipped += shortBodies

	rows := make([]store.Row, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, a.Row())
	}
	if err := c.store.AppendRows(ctx, model.SheetArticles, rows); err != nil {
		return counts, eris.Wrap(err, "crawl: append articles")
	}
	counts.Appended = len(rows)

	c.logger.Info("crawl finished",
		zap.Int("processed", counts.Processed),
		zap.Int("skipped", counts.Skipped),
		zap.Int("appended", counts.Appended),
		zap.Int("failed", counts.Failed),
	)
	return counts, nil
}

func (c *Crawler) runSearch(ctx context.Context, query string) ([]websearch.SearchResult, error) {
	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*websearch.SearchResponse, error) {
		return c.search.Search(ctx, query, websearch.WithNumResults(c.cfg.ResultsPerQuery))
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// fetchAll downloads candidate bodies with bounded concurrency and a
// shared rate limit. Result order follows candidate order regardless of
// fetch completion order.
func (c *Crawler) fetchAll(ctx context.Context, candidates []candidate) (articles []model.Article, failed, short int) {
	slots := make([]*model.Article, len(candidates))
	limiter := rate.NewLimiter(rate.Limit(c.cfg.FetchRPS), 1)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.FetchConcurrency)

	for i, cand := range candidates {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return nil //nolint:nilerr // cancellation is handled via gctx
			}

			article, err := c.fetchOne(gctx, cand)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				c.logger.Warn("article fetch failed",
					zap.String("url", cand.url),
					zap.Error(err),
				)
				failed++
			case len(article.Body) < c.cfg.MinBodyChars:
				c.logger.Debug("article body too short",
					zap.String("url", cand.url),
					zap.Int("chars", len(article.Body)),
				)
				short++
			default:
				slots[i] = article
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, a := range slots {
		if a != nil {
			articles = append(articles, *a)
		}
	}
	return articles, failed, short
}

func (c *Crawler) fetchOne(ctx context.Context, cand candidate) (*model.Article, error) {
	html, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.get(ctx, cand.url)
	})
	if err != nil {
		return nil, err
	}

	body, err := ExtractBody(html)
	if err != nil {
		return nil, err
	}

	title := cand.title
	if title == "" {
		title = ExtractTitle(html)
	}

	return &model.Article{
		Competitor:    cand.competitor,
		Query:         cand.query,
		Title:         title,
		Body:          body,
		URL:           cand.url,
		PublishedDate: cand.date,
	}, nil
}

func (c *Crawler) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrapf(err, "crawl: create request %s", rawURL)
	}
	req.Header.Set("User-Agent", "compintel/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "crawl: fetch %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return "", resilience.NewTransientError(
			eris.Errorf("crawl: status %d for %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("crawl: status %d for %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", eris.Wrapf(err, "crawl: read %s", rawURL)
	}
	return string(data), nil
}
