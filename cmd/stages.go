package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/welda-labs/compintel/internal/crawl"
	"github.com/welda-labs/compintel/internal/extract"
	"github.com/welda-labs/compintel/internal/model"
	"github.com/welda-labs/compintel/internal/pipeline"
	"github.com/welda-labs/compintel/internal/resolve"
	"github.com/welda-labs/compintel/internal/store"
	"github.com/welda-labs/compintel/internal/watchlist"
	"github.com/welda-labs/compintel/pkg/anthropic"
	"github.com/welda-labs/compintel/pkg/dart"
	"github.com/welda-labs/compintel/pkg/websearch"
)

// openStore validates the config for the given command, opens the
// record store, and runs migrations. Callers own Close.
func openStore(ctx context.Context, mode string) (store.RecordStore, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.Backend, cfg.Store.DSN, &cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newCrawlStage loads the watchlist and wires the crawler.
func newCrawlStage(st store.RecordStore) (pipeline.StageRunner, error) {
	wl, err := watchlist.Load(cfg.Watchlist.Path)
	if err != nil {
		return nil, err
	}

	search := websearch.NewClient(cfg.Websearch.Key, websearch.WithBaseURL(cfg.Websearch.BaseURL))
	crawler := crawl.New(search, st, nil, crawl.Config{
		ResultsPerQuery:  cfg.Crawl.ResultsPerQuery,
		MinBodyChars:     cfg.Crawl.MinBodyChars,
		FetchConcurrency: cfg.Crawl.FetchConcurrency,
		FetchRPS:         cfg.Crawl.FetchRPS,
		FetchTimeout:     cfg.Crawl.FetchTimeout(),
	})

	return pipeline.StageFunc(func(ctx context.Context) (model.StageCounts, error) {
		return crawler.Run(ctx, wl)
	}), nil
}

// newExtractStage wires the LLM extractor.
func newExtractStage(st store.RecordStore) pipeline.StageRunner {
	llm := anthropic.NewClient(cfg.Anthropic.Key)
	return extract.New(llm, st, extract.Config{
		Model:           cfg.Anthropic.Model,
		MaxTokens:       cfg.Anthropic.MaxTokens,
		ArticlesPerCall: cfg.Extract.ArticlesPerCall,
		BodyCharLimit:   cfg.Extract.BodyCharLimit,
		BatchDelay:      cfg.Extract.BatchDelay(),
		CompetitorDelay: cfg.Extract.CompetitorDelay(),
	})
}

// newResolveStage wires the registry resolver with the corp code cache.
func newResolveStage(st store.RecordStore) pipeline.StageRunner {
	client := dart.NewClient(cfg.Dart.Key, dart.WithBaseURL(cfg.Dart.BaseURL))
	cache := &dart.Cache{Path: cfg.Dart.CachePath, TTL: cfg.Dart.DartCacheTTL()}
	return resolve.NewRunner(st, resolve.DartRegistry(client, cache), cfg.Resolve.ReviewThreshold)
}

// newPipeline assembles the full three-stage pipeline.
func newPipeline(st store.RecordStore) (*pipeline.Pipeline, error) {
	crawlStage, err := newCrawlStage(st)
	if err != nil {
		return nil, err
	}
	return pipeline.New(st, crawlStage, newExtractStage(st), newResolveStage(st)), nil
}
