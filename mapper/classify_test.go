package mapper

import (
	"testing"
	"time"

	"github.com/aluiziolira/go-catalog-sync/models"
)

func storedFrom(rec models.CanonicalRecord, updatedAt time.Time) *models.StoredRecord {
	return &models.StoredRecord{
		CanonicalRecord: rec,
		CreatedAt:       updatedAt,
		UpdatedAt:       updatedAt,
		LastFetchedAt:   updatedAt,
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	base, _ := ToCanonical(validRaw())

	tests := []struct {
		name     string
		incoming func() models.CanonicalRecord
		existing func() *models.StoredRecord
		want     Decision
	}{
		{
			name:     "no stored record",
			incoming: func() models.CanonicalRecord { return base },
			existing: func() *models.StoredRecord { return nil },
			want:     DecisionCreate,
		},
		{
			name:     "identical and fresh",
			incoming: func() models.CanonicalRecord { return base },
			existing: func() *models.StoredRecord { return storedFrom(base, now.Add(-1*time.Hour)) },
			want:     DecisionUnchanged,
		},
		{
			name: "price changed",
			incoming: func() models.CanonicalRecord {
				rec := base
				rec.Price.Current = 880
				return rec
			},
			existing: func() *models.StoredRecord { return storedFrom(base, now.Add(-1*time.Hour)) },
			want:     DecisionUpdate,
		},
		{
			name: "rating count changed",
			incoming: func() models.CanonicalRecord {
				rec := base
				rec.Rating = &models.Rating{Stars: 4.5, Count: 322}
				return rec
			},
			existing: func() *models.StoredRecord { return storedFrom(base, now.Add(-1*time.Hour)) },
			want:     DecisionUpdate,
		},
		{
			name: "sales count changed",
			incoming: func() models.CanonicalRecord {
				rec := base
				rec.SalesCount++
				return rec
			},
			existing: func() *models.StoredRecord { return storedFrom(base, now.Add(-1*time.Hour)) },
			want:     DecisionUpdate,
		},
		{
			name: "title changed",
			incoming: func() models.CanonicalRecord {
				rec := base
				rec.Title = "Renamed Work"
				return rec
			},
			existing: func() *models.StoredRecord { return storedFrom(base, now.Add(-1*time.Hour)) },
			want:     DecisionUpdate,
		},
		{
			name:     "identical but stale",
			incoming: func() models.CanonicalRecord { return base },
			existing: func() *models.StoredRecord { return storedFrom(base, now.Add(-25*time.Hour)) },
			want:     DecisionUpdate,
		},
		{
			name: "description change alone stays unchanged",
			incoming: func() models.CanonicalRecord {
				rec := base
				rec.Description = "Newly enriched text"
				return rec
			},
			existing: func() *models.StoredRecord { return storedFrom(base, now.Add(-1*time.Hour)) },
			want:     DecisionUnchanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.incoming(), tt.existing(), now, DefaultStaleness)
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyDefaultStaleness(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	base, _ := ToCanonical(validRaw())

	// Zero window falls back to the default rather than forcing every record dirty.
	got := Classify(base, storedFrom(base, now.Add(-1*time.Hour)), now, 0)
	if got != DecisionUnchanged {
		t.Fatalf("got %s, want unchanged", got)
	}
}
