package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-catalog-sync/config"
	"github.com/aluiziolira/go-catalog-sync/extract"
	"github.com/aluiziolira/go-catalog-sync/mapper"
	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/store"
)

// PageFetcher is the fetch capability the orchestrator depends on.
type PageFetcher interface {
	ListPage(ctx context.Context, page int) ([]byte, error)
	DetailPage(ctx context.Context, id string) ([]byte, error)
}

// CursorStore persists the fetch cursor.
type CursorStore interface {
	LoadCursor(ctx context.Context, source string) (models.FetchCursor, bool, error)
	ClaimCursor(ctx context.Context, source string, now time.Time) (bool, error)
	SaveProgress(ctx context.Context, source string, currentPage int) error
	FinalizeCursor(ctx context.Context, cur models.FetchCursor) error
}

// RecordSyncer writes classified records to the document store.
type RecordSyncer interface {
	Sync(ctx context.Context, records []models.CanonicalRecord) (store.UpsertResult, error)
}

// DetailLister finds stored records still lacking detail-page facets.
type DetailLister interface {
	RecordsMissingDetail(ctx context.Context, limit int) ([]models.StoredRecord, error)
}

// Orchestrator is the resume state machine. Each invocation claims the
// cursor, processes at most the page budget, and finalizes the cursor on
// every exit path. Concurrency across invocations is coordinated solely
// through the cursor's in_progress flag.
type Orchestrator struct {
	cfg       *config.Config
	fetcher   PageFetcher
	extractor *extract.Extractor
	cursors   CursorStore
	writer    RecordSyncer
	metrics   *Metrics

	// Sleep and Now are seams for tests.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(cfg *config.Config, fetcher PageFetcher, extractor *extract.Extractor, cursors CursorStore, writer RecordSyncer, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		cursors:   cursors,
		writer:    writer,
		metrics:   metrics,
		Sleep:     time.Sleep,
		Now:       time.Now,
	}
}

// Run executes one invocation: prepare (claim the cursor), loop pages, and
// finalize. When a prior run is still marked in progress the invocation is
// an idempotent no-op with zero side effects.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     uuid.NewString(),
		StartTime: o.Now(),
	}
	log := slog.With(
		slog.String("run_id", result.RunID),
		slog.String("source", o.cfg.Source),
	)

	cur, _, err := o.cursors.LoadCursor(ctx, o.cfg.Source)
	if err != nil {
		return o.finish(result, models.OutcomeFailed, err, log)
	}
	if cur.InProgress {
		log.Info("prior run unfinished, skipping invocation")
		return o.finish(result, models.OutcomeSkipped, nil, log)
	}

	claimed, err := o.cursors.ClaimCursor(ctx, o.cfg.Source, o.Now())
	if err != nil {
		return o.finish(result, models.OutcomeFailed, err, log)
	}
	if !claimed {
		log.Info("cursor claimed by a concurrent invocation, skipping")
		return o.finish(result, models.OutcomeSkipped, nil, log)
	}

	page := 1
	if cur.CurrentPage != nil {
		page = *cur.CurrentPage
		log.Info("resuming paused run", slog.Int("page", page))
	}

	outcome, runErr := o.runPages(ctx, log, &cur, &page, result)

	// Guaranteed cleanup: in_progress clears no matter how the loop ended,
	// even when the invocation context has been canceled.
	final := models.FetchCursor{
		Source:         o.cfg.Source,
		TotalItemsSeen: cur.TotalItemsSeen,
	}
	switch outcome {
	case models.OutcomeCompleted:
		now := o.Now()
		final.LastCompleteRunAt = &now
	case models.OutcomePaused:
		final.CurrentPage = &page
	case models.OutcomeFailed:
		final.CurrentPage = &page
		if runErr != nil {
			final.LastError = runErr.Error()
		}
	}
	if err := o.cursors.FinalizeCursor(context.WithoutCancel(ctx), final); err != nil {
		log.Error("finalize cursor failed", slog.Any("error", err))
	}

	return o.finish(result, outcome, runErr, log)
}

// runPages is the page loop. It returns the terminal outcome: Completed when
// a page comes back short or empty, Paused when the budget runs out, Failed
// on the first hard error. Partial progress already committed stays
// committed.
func (o *Orchestrator) runPages(ctx context.Context, log *slog.Logger, cur *models.FetchCursor, page *int, result *models.RunResult) (models.RunOutcome, error) {
	for done := 0; done < o.cfg.PageBudget; done++ {
		body, err := o.fetcher.ListPage(ctx, *page)
		if err != nil {
			return models.OutcomeFailed, fmt.Errorf("fetch page %d: %w", *page, err)
		}
		raws, err := o.extractor.ListPage(bytes.NewReader(body))
		if err != nil {
			return models.OutcomeFailed, fmt.Errorf("extract page %d: %w", *page, err)
		}

		result.Pages++
		result.ItemsSeen += len(raws)
		cur.TotalItemsSeen += int64(len(raws))
		o.metrics.AddItems(len(raws))

		if len(raws) == 0 {
			log.Info("empty page, run complete", slog.Int("page", *page))
			return models.OutcomeCompleted, nil
		}

		records := o.prepare(log, raws, result)
		res, err := o.writer.Sync(ctx, records)
		if err != nil {
			return models.OutcomeFailed, fmt.Errorf("sync page %d: %w", *page, err)
		}
		o.applyWrite(res, result)

		log.Debug("page synced",
			slog.Int("page", *page),
			slog.Int("items", len(raws)),
			slog.Int("created", res.Created),
			slog.Int("updated", res.Updated),
		)

		// Termination heuristic: a short page means the catalog ran out.
		// This under-counts if the source shrinks its page size without
		// notice; a known fragility kept from the original behaviour.
		if len(raws) < o.cfg.PageSize {
			return models.OutcomeCompleted, nil
		}

		*page++
		if err := o.cursors.SaveProgress(ctx, o.cfg.Source, *page); err != nil {
			return models.OutcomeFailed, fmt.Errorf("save progress: %w", err)
		}
		if done+1 < o.cfg.PageBudget {
			o.Sleep(o.cfg.PageDelay)
		}
	}

	log.Info("page budget reached, pausing", slog.Int("next_page", *page))
	return models.OutcomePaused, nil
}

// prepare maps raw records to canonical ones, skipping per-record mapping
// failures and quality rejects without ever aborting the batch.
func (o *Orchestrator) prepare(log *slog.Logger, raws []models.RawItemRecord, result *models.RunResult) []models.CanonicalRecord {
	records := make([]models.CanonicalRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := mapper.ToCanonical(raw)
		if err != nil {
			result.SkippedRecords++
			o.metrics.IncSkipped("mapping")
			log.Warn("record failed mapping",
				slog.String("id", raw.ID),
				slog.Any("error", err),
			)
			continue
		}

		quality := mapper.ValidateQuality(rec)
		for _, warning := range quality.Warnings {
			log.Debug("quality warning",
				slog.String("id", rec.ID),
				slog.String("warning", warning),
			)
		}
		if !quality.IsValid {
			result.SkippedRecords++
			o.metrics.IncSkipped("quality")
			continue
		}
		records = append(records, rec)
	}
	return records
}

// EnrichDetails fetches detail pages for up to limit stored records that
// still lack detail facets and folds the facets back into the store. A 404
// is the expected "item gone" condition and skips just that record; other
// fetch errors abort the pass, leaving the remainder to the next invocation.
func (o *Orchestrator) EnrichDetails(ctx context.Context, lister DetailLister, limit int) (store.UpsertResult, error) {
	var zero store.UpsertResult

	pending, err := lister.RecordsMissingDetail(ctx, limit)
	if err != nil {
		return zero, fmt.Errorf("list records missing detail: %w", err)
	}

	var enriched []models.CanonicalRecord
	for i, rec := range pending {
		body, err := o.fetcher.DetailPage(ctx, rec.ID)
		if IsNotFound(err) {
			slog.Info("item no longer exists, skipping enrichment", slog.String("id", rec.ID))
			o.metrics.IncSkipped("gone")
			continue
		}
		if err != nil {
			return zero, fmt.Errorf("fetch detail %s: %w", rec.ID, err)
		}

		det, err := o.extractor.DetailPage(rec.ID, bytes.NewReader(body))
		if err != nil {
			return zero, fmt.Errorf("extract detail %s: %w", rec.ID, err)
		}
		enriched = append(enriched, mapper.MergeDetail(rec.CanonicalRecord, det))

		if i+1 < len(pending) {
			o.Sleep(o.cfg.PageDelay)
		}
	}

	res, err := o.writer.Sync(ctx, enriched)
	if err != nil {
		return res, fmt.Errorf("sync enriched records: %w", err)
	}
	return res, nil
}

func (o *Orchestrator) applyWrite(res store.UpsertResult, result *models.RunResult) {
	result.Created += res.Created
	result.Updated += res.Updated
	result.Unchanged += res.Unchanged
	o.metrics.AddWritten("create", res.Created)
	o.metrics.AddWritten("update", res.Updated)
	o.metrics.AddBatches(res.Batches)
}

func (o *Orchestrator) finish(result *models.RunResult, outcome models.RunOutcome, err error, log *slog.Logger) (*models.RunResult, error) {
	result.Outcome = outcome
	result.EndTime = o.Now()
	if err != nil {
		result.Error = err.Error()
	}
	o.metrics.IncRun(string(outcome))

	log.Info("run finished",
		slog.String("outcome", string(outcome)),
		slog.Int("pages", result.Pages),
		slog.Int("items", result.ItemsSeen),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("skipped_records", result.SkippedRecords),
	)
	return result, err
}
