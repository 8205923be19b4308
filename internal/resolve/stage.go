package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/welda-labs/compintel/internal/dedup"
	"github.com/welda-labs/compintel/internal/model"
	"github.com/welda-labs/compintel/internal/store"
	"github.com/welda-labs/compintel/pkg/dart"
)

// RegistrySource yields the corporate registry snapshot for a run.
type RegistrySource func(ctx context.Context) ([]model.RegistryEntry, error)

// DartRegistry adapts a DART client (with optional cache) into a
// RegistrySource.
func DartRegistry(client dart.Client, cache *dart.Cache) RegistrySource {
	return func(ctx context.Context) ([]model.RegistryEntry, error) {
		corps, err := dart.FetchWithCache(ctx, client, cache)
		if err != nil {
			return nil, err
		}
		entries := make([]model.RegistryEntry, len(corps))
		for i, c := range corps {
			entries[i] = model.RegistryEntry{
				CorpName:  c.CorpName,
				CorpCode:  c.CorpCode,
				StockCode: c.StockCode,
			}
		}
		return entries, nil
	}
}

// Runner executes the resolution stage: every unresolved collaboration
// record is matched against the registry, the outcome goes to the
// mappings sheet, and names without an exact match get one review entry
// per distinct normalized name per run.
type Runner struct {
	store           store.RecordStore
	registry        RegistrySource
	reviewThreshold int
	logger          *zap.Logger
}

// NewRunner creates a resolution stage runner. A non-positive threshold
// falls back to DefaultReviewThreshold.
func NewRunner(st store.RecordStore, registry RegistrySource, reviewThreshold int) *Runner {
	return &Runner{
		store:           st,
		registry:        registry,
		reviewThreshold: reviewThreshold,
		logger:          zap.L().Named("resolve"),
	}
}

// Run performs one resolution pass.
func (r *Runner) Run(ctx context.Context) (model.StageCounts, error) {
	var counts model.StageCounts

	entries, err := r.registry(ctx)
	if err != nil {
		return counts, eris.Wrap(err, "resolve: load registry")
	}
	engine := NewEngine(entries, r.reviewThreshold)

	collabRows, err := r.store.ReadAll(ctx, model.SheetCollaborations)
	if err != nil {
		return counts, eris.Wrap(err, "resolve: read collaborations sheet")
	}
	mappingRows, err := r.store.ReadAll(ctx, model.SheetMappings)
	if err != nil {
		return counts, eris.Wrap(err, "resolve: read mappings sheet")
	}
	resolved := dedup.Build(mappingRows, dedup.PairKey)

	r.logger.Info("resolution starting",
		zap.Int("registry_size", engine.Size()),
		zap.Int("collaborations", len(collabRows)),
		zap.Int("already_resolved", resolved.Len()),
	)

	var mappings []store.Row
	var unmatched []store.Row
	seenUnmatched := make(map[string]bool)

	for _, row := range collabRows {
		rec := model.CollaborationFromRow(row)
		key := dedup.SourceKey(rec.SourceTitle, rec.SourceURL)
		if resolved.Has(key) {
			counts.Skipped++
			continue
		}
		res, err := engine.Resolve(rec.PartnerName)
		if err != nil {
			// Malformed names are skipped, never fatal.
			r.logger.Warn("unresolvable partner name",
				zap.String("competitor", rec.Competitor),
				zap.String("source_url", rec.SourceURL),
				zap.Error(err),
			)
			counts.Skipped++
			continue
		}
		counts.Processed++

		mapping := model.MappingResult{
			CollaborationRecord:   rec,
			NormalizedPartnerName: res.NormalizedName,
			Matched:               res.Matched,
		}
		if res.Matched {
			mapping.RegistryName = res.Entry.CorpName
			counts.Matched++
		} else {
			counts.Unmatched++
			if !seenUnmatched[res.NormalizedName] {
				seenUnmatched[res.NormalizedName] = true
				unmatched = append(unmatched, model.UnmatchedEntry{
					PartnerName:    rec.PartnerName,
					CandidateName:  res.Candidate.CorpName,
					CandidateCode:  res.Candidate.CorpCode,
					CandidateScore: res.Score,
					NeedsReview:    res.NeedsReview,
				}.Row())
			}
		}
		mappings = append(mappings, mapping.Row())
	}

	// Review entries go first: reruns skip records already present in
	// the mappings sheet, so a mapping written without its review entry
	// would never get one.
	if err := r.store.AppendRows(ctx, model.SheetUnmatched, unmatched); err != nil {
		return counts, eris.Wrap(err, "resolve: append unmatched")
	}
	if err := r.store.AppendRows(ctx, model.SheetMappings, mappings); err != nil {
		return counts, eris.Wrap(err, "resolve: append mappings")
	}
	counts.Appended = len(mappings)

	r.logger.Info("resolution finished",
		zap.Int("processed", counts.Processed),
		zap.Int("matched", counts.Matched),
		zap.Int("unmatched", counts.Unmatched),
		zap.Int("review_entries", len(unmatched)),
		zap.Int("failed", counts.Failed),
	)
	return counts, nil
}
