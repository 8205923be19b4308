// Package extract implements the LLM extraction stage: new articles are
// grouped per competitor, sent to the model in small batches, and the
// returned partner pairs are appended to the collaborations sheet.
// Calls are strictly serialized with delays between batches and between
// competitors to stay inside provider rate limits.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/welda-labs/compintel/internal/dedup"
	"github.com/welda-labs/compintel/internal/model"
	"github.com/welda-labs/compintel/internal/resilience"
	"github.com/welda-labs/compintel/internal/store"
	"github.com/welda-labs/compintel/pkg/anthropic"
)

// Config tunes the extraction stage.
type Config struct {
	Model           string
	MaxTokens       int64
	ArticlesPerCall int           // batch size per LLM call
	BodyCharLimit   int           // per-article body truncation in prompts
	BatchDelay      time.Duration // pause between LLM calls
	CompetitorDelay time.Duration // pause between competitor groups
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5-20250929"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.ArticlesPerCall <= 0 {
		c.ArticlesPerCall = 5
	}
	if c.BodyCharLimit <= 0 {
		c.BodyCharLimit = 6000
	}
	if c.BatchDelay <= 0 {
		c.BatchDelay = 2 * time.Second
	}
	if c.CompetitorDelay <= 0 {
		c.CompetitorDelay = 5 * time.Second
	}
	return c
}

// Extractor runs the extraction stage.
type Extractor struct {
	llm    anthropic.Client
	store  store.RecordStore
	cfg    Config
	retry  resilience.RetryConfig
	logger *zap.Logger
}

// New creates an Extractor.
func New(llm anthropic.Client, st store.RecordStore, cfg Config) *Extractor {
	return &Extractor{
		llm:    llm,
		store:  st,
		cfg:    cfg.withDefaults(),
		retry:  resilience.DefaultRetryConfig(),
		logger: zap.L().Named("extract"),
	}
}

// Run extracts partners from every stored article that has no
// collaboration record yet. Records are appended after each competitor
// group. Articles whose batch fails stay unrecorded and are retried on
// the next run; articles that yield zero partner mentions do too.
func (e *Extractor) Run(ctx context.Context) (model.StageCounts, error) {
	var counts model.StageCounts

	articleRows, err := e.store.ReadAll(ctx, model.SheetArticles)
	if err != nil {
		return counts, eris.Wrap(err, "extract: read articles sheet")
	}
	collabRows, err := e.store.ReadAll(ctx, model.SheetCollaborations)
	if err != nil {
		return counts, eris.Wrap(err, "extract: read collaborations sheet")
	}

	extracted := dedup.Build(collabRows, func(row map[string]string) string {
		return strings.TrimSpace(row["source_url"])
	})
	pairIndex := dedup.Build(collabRows, dedup.PairKey)

	// Group pending articles per competitor, preserving sheet order.
	groups := make(map[string][]model.Article)
	var competitorOrder []string
	for _, row := range articleRows {
		a := model.ArticleFromRow(row)
		if a.URL != "" && extracted.Has(a.URL) {
			counts.Skipped++
			continue
		}
		if _, ok := groups[a.Competitor]; !ok {
			competitorOrder = append(competitorOrder, a.Competitor)
		}
		groups[a.Competitor] = append(groups[a.Competitor], a)
	}

	e.logger.Info("extraction starting",
		zap.Int("pending_articles", len(articleRows)-counts.Skipped),
		zap.Int("competitors", len(competitorOrder)),
	)

	for ci, competitor := range competitorOrder {
		if ci > 0 {
			if err := wait(ctx, e.cfg.CompetitorDelay); err != nil {
				return counts, eris.Wrap(err, "extract: cancelled")
			}
		}

		var pending []store.Row
		articles := groups[competitor]
		for start := 0; start < len(articles); start += e.cfg.ArticlesPerCall {
			if start > 0 {
				if err := wait(ctx, e.cfg.BatchDelay); err != nil {
					return counts, eris.Wrap(err, "extract: cancelled")
				}
			}

			end := min(start+e.cfg.ArticlesPerCall, len(articles))
			batch := articles[start:end]
			counts.Processed += len(batch)

			records, err := e.extractBatch(ctx, batch)
			if err != nil {
				if ctx.Err() != nil {
					return counts, eris.Wrap(ctx.Err(), "extract: cancelled")
				}
				e.logger.Warn("batch extraction failed",
					zap.String("competitor", competitor),
					zap.Int("articles", len(batch)),
					zap.Error(err),
				)
				counts.Failed += len(batch)
				continue
			}

			for _, rec := range records {
				key := dedup.SourceKey(rec.SourceTitle, rec.SourceURL)
				if pairIndex.Has(key) {
					continue
				}
				pairIndex.Add(key)
				pending = append(pending, rec.Row())
			}
		}

		// Flush after every competitor so a mid-stage failure keeps
		// the extractions already paid for.
		if err := e.store.AppendRows(ctx, model.SheetCollaborations, pending); err != nil {
			return counts, eris.Wrap(err, "extract: append collaborations")
		}
		counts.Appended += len(pending)
	}

	e.logger.Info("extraction finished",
		zap.Int("processed", counts.Processed),
		zap.Int("skipped", counts.Skipped),
		zap.Int("appended", counts.Appended),
		zap.Int("failed", counts.Failed),
	)
	return counts, nil
}

// extractBatch sends one batch to the model and resolves returned rows
// back to their source articles.
func (e *Extractor) extractBatch(ctx context.Context, batch []model.Article) ([]model.CollaborationRecord, error) {
	req := anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(batch, e.cfg.BodyCharLimit)},
		},
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.llm.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(e.cfg.Model, "extract")

	rows, err := ParseResponse(resp.Text())
	if err != nil {
		return nil, err
	}

	records := make([]model.CollaborationRecord, 0, len(rows))
	for _, row := range rows {
		rec := model.CollaborationRecord{
			ProgramName:       row.ProgramName,
			Competitor:        row.Competitor,
			PartnerName:       row.PartnerName,
			CollaborationType: row.CollaborationType,
			SourceTitle:       row.SourceTitle,
		}
		if src := matchSourceArticle(row.SourceTitle, batch); src != nil {
			rec.SourceTitle = src.Title
			rec.SourceURL = src.URL
			rec.ArticleDate = src.PublishedDate
			if rec.ArticleDate == "" {
				rec.ArticleDate = ExtractDate(src.Title)
			}
			if rec.ArticleDate == "" {
				rec.ArticleDate = ExtractDate(src.Body)
			}
		}
		if rec.Competitor == "" {
			rec.Competitor = batch[0].Competitor
		}
		records = append(records, rec)
	}
	return records, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
