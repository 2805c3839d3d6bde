package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// fakeRecordStore records the chunk sizes it sees and can fail on demand.
type fakeRecordStore struct {
	existing    map[string]models.StoredRecord
	lookupCalls [][]string
	batchCalls  [][]WriteOp
	failLookups map[int]bool // by call index
	failBatch   bool
}

func (f *fakeRecordStore) GetRecords(_ context.Context, ids []string) (map[string]models.StoredRecord, error) {
	call := len(f.lookupCalls)
	f.lookupCalls = append(f.lookupCalls, ids)
	if f.failLookups[call] {
		return nil, fmt.Errorf("lookup unavailable")
	}
	out := make(map[string]models.StoredRecord)
	for _, id := range ids {
		if rec, ok := f.existing[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (f *fakeRecordStore) RunBatch(_ context.Context, ops []WriteOp) error {
	if f.failBatch {
		return fmt.Errorf("commit refused")
	}
	f.batchCalls = append(f.batchCalls, ops)
	return nil
}

func canonical(id string) models.CanonicalRecord {
	return models.CanonicalRecord{
		ID:    id,
		Title: "Work " + id,
		URL:   "https://catalog.example.com/works/" + id,
		Price: models.Price{Current: 1100, Currency: "JPY"},
	}
}

func TestSyncChunksLookups(t *testing.T) {
	fake := &fakeRecordStore{}
	w := NewUpsertWriter(fake, 24*time.Hour)

	var records []models.CanonicalRecord
	for i := 0; i < 15; i++ {
		records = append(records, canonical(fmt.Sprintf("RJ%06d", i)))
	}
	result, err := w.Sync(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, fake.lookupCalls, 2)
	require.Len(t, fake.lookupCalls[0], MaxLookupIDs)
	require.Len(t, fake.lookupCalls[1], 5)
	require.Equal(t, 15, result.Created)
}

func TestSyncChunksBatches(t *testing.T) {
	fake := &fakeRecordStore{}
	w := NewUpsertWriter(fake, 24*time.Hour)
	w.LookupChunk = 10
	w.BatchChunk = 500

	var records []models.CanonicalRecord
	for i := 0; i < 501; i++ {
		records = append(records, canonical(fmt.Sprintf("RJ%06d", i)))
	}
	result, err := w.Sync(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, fake.batchCalls, 2)
	require.Len(t, fake.batchCalls[0], 500)
	require.Len(t, fake.batchCalls[1], 1)
	require.Equal(t, 2, result.Batches)
	require.Equal(t, 501, result.Created)
}

func TestSyncClassification(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	unchanged := canonical("RJ000001")
	changed := canonical("RJ000002")
	stale := canonical("RJ000003")

	fake := &fakeRecordStore{existing: map[string]models.StoredRecord{
		"RJ000001": {CanonicalRecord: unchanged, CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
		"RJ000002": {CanonicalRecord: canonical("RJ000002"), CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)},
		"RJ000003": {CanonicalRecord: stale, CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-25 * time.Hour)},
	}}
	changed.Price.Current = 880

	w := NewUpsertWriter(fake, 24*time.Hour)
	w.Now = func() time.Time { return now }

	result, err := w.Sync(context.Background(), []models.CanonicalRecord{
		unchanged, changed, stale, canonical("RJ000004"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Equal(t, 2, result.Updated) // price change plus staleness refresh
	require.Equal(t, 1, result.Unchanged)

	// Updates keep the stored creation time; creates stamp now everywhere.
	require.Len(t, fake.batchCalls, 1)
	for _, op := range fake.batchCalls[0] {
		switch op.Record.ID {
		case "RJ000003":
			require.Equal(t, OpUpdate, op.Kind)
			require.True(t, op.Record.CreatedAt.Equal(now.Add(-48*time.Hour)))
			require.True(t, op.Record.UpdatedAt.Equal(now))
		case "RJ000004":
			require.Equal(t, OpCreate, op.Kind)
			require.True(t, op.Record.CreatedAt.Equal(now))
		}
	}
}

func TestSyncLookupFailsOpen(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeRecordStore{
		existing: map[string]models.StoredRecord{
			"RJ000000": {CanonicalRecord: canonical("RJ000000"), CreatedAt: now, UpdatedAt: now},
		},
		failLookups: map[int]bool{0: true},
	}

	w := NewUpsertWriter(fake, 24*time.Hour)
	w.LookupChunk = 1
	w.Now = func() time.Time { return now }

	result, err := w.Sync(context.Background(), []models.CanonicalRecord{
		canonical("RJ000000"), canonical("RJ000001"),
	})
	require.NoError(t, err)

	// The failed chunk's record is written as a create instead of blocking.
	require.Equal(t, 1, result.LookupErr)
	require.Equal(t, 2, result.Created)
	require.Equal(t, 0, result.Unchanged)
}

func TestSyncCommitFailureIsHard(t *testing.T) {
	fake := &fakeRecordStore{failBatch: true}
	w := NewUpsertWriter(fake, 24*time.Hour)

	_, err := w.Sync(context.Background(), []models.CanonicalRecord{canonical("RJ000001")})
	require.ErrorContains(t, err, "commit")
}

func TestSyncDeduplicatesIDs(t *testing.T) {
	fake := &fakeRecordStore{}
	w := NewUpsertWriter(fake, 24*time.Hour)

	_, err := w.Sync(context.Background(), []models.CanonicalRecord{
		canonical("RJ000001"), canonical("RJ000001"),
	})
	require.NoError(t, err)
	require.Len(t, fake.lookupCalls, 1)
	require.Len(t, fake.lookupCalls[0], 1)
}

func TestSyncEmptyInput(t *testing.T) {
	fake := &fakeRecordStore{}
	w := NewUpsertWriter(fake, 24*time.Hour)

	result, err := w.Sync(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, result.Created)
	require.Empty(t, fake.lookupCalls)
	require.Empty(t, fake.batchCalls)
}
