package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-catalog-sync/mapper"
	"github.com/aluiziolira/go-catalog-sync/models"
)

// RecordStore is the slice of store behaviour the upsert writer needs.
type RecordStore interface {
	GetRecords(ctx context.Context, ids []string) (map[string]models.StoredRecord, error)
	RunBatch(ctx context.Context, ops []WriteOp) error
}

// UpsertResult counts what one Sync call did.
type UpsertResult struct {
	Created   int
	Updated   int
	Unchanged int
	Batches   int
	LookupErr int // id chunks whose lookup failed open
}

// UpsertWriter turns classified records into chunked atomic write batches.
// Lookup chunks respect the store's id-predicate limit; write chunks respect
// its per-batch operation limit. Lookup failures fail open (affected ids are
// treated as new); commit failures are hard errors for the run.
type UpsertWriter struct {
	store RecordStore

	// LookupChunk and BatchChunk default to the store limits; tests shrink
	// them to exercise the chunking boundaries.
	LookupChunk int
	BatchChunk  int
	Staleness   time.Duration
	Now         func() time.Time
}

// NewUpsertWriter builds a writer with the store's default limits.
func NewUpsertWriter(s RecordStore, staleness time.Duration) *UpsertWriter {
	return &UpsertWriter{
		store:       s,
		LookupChunk: MaxLookupIDs,
		BatchChunk:  MaxBatchOps,
		Staleness:   staleness,
		Now:         time.Now,
	}
}

// Sync classifies records against the stored state and commits the resulting
// creates and updates. createdAt is preserved from the existing record on
// update; updatedAt and lastFetchedAt always refresh to now on any write.
func (w *UpsertWriter) Sync(ctx context.Context, records []models.CanonicalRecord) (UpsertResult, error) {
	var result UpsertResult
	if len(records) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		ids = append(ids, rec.ID)
	}

	existing := w.lookupExisting(ctx, ids, &result)
	now := w.Now()

	var ops []WriteOp
	for _, rec := range records {
		var stored *models.StoredRecord
		if ex, ok := existing[rec.ID]; ok {
			stored = &ex
		}

		switch mapper.Classify(rec, stored, now, w.Staleness) {
		case mapper.DecisionCreate:
			ops = append(ops, WriteOp{Kind: OpCreate, Record: models.StoredRecord{
				CanonicalRecord: rec,
				CreatedAt:       now,
				UpdatedAt:       now,
				LastFetchedAt:   now,
			}})
			result.Created++
		case mapper.DecisionUpdate:
			ops = append(ops, WriteOp{Kind: OpUpdate, Record: models.StoredRecord{
				CanonicalRecord: rec,
				CreatedAt:       stored.CreatedAt,
				UpdatedAt:       now,
				LastFetchedAt:   now,
			}})
			result.Updated++
		case mapper.DecisionUnchanged:
			result.Unchanged++
		}
	}

	for start := 0; start < len(ops); start += w.BatchChunk {
		end := start + w.BatchChunk
		if end > len(ops) {
			end = len(ops)
		}
		if err := w.store.RunBatch(ctx, ops[start:end]); err != nil {
			return result, fmt.Errorf("commit batch of %d: %w", end-start, err)
		}
		result.Batches++
	}
	return result, nil
}

// lookupExisting merges chunked id lookups into one map. A failed chunk is
// logged and skipped, which classifies its records as creates: on
// uncertainty the writer leans toward writing rather than blocking the sync.
func (w *UpsertWriter) lookupExisting(ctx context.Context, ids []string, result *UpsertResult) map[string]models.StoredRecord {
	existing := make(map[string]models.StoredRecord, len(ids))
	for start := 0; start < len(ids); start += w.LookupChunk {
		end := start + w.LookupChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		found, err := w.store.GetRecords(ctx, chunk)
		if err != nil {
			result.LookupErr++
			slog.Warn("record lookup failed, treating chunk as new",
				slog.Int("ids", len(chunk)),
				slog.Any("error", err),
			)
			continue
		}
		for id, rec := range found {
			existing[id] = rec
		}
	}
	return existing
}
