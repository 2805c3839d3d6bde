package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/go-catalog-sync/models"
)

func TestExport(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.RunBatch(ctx, []WriteOp{
		{Kind: OpCreate, Record: storedRecord("RJ000001", now)},
		{Kind: OpCreate, Record: storedRecord("RJ000002", now)},
	}))

	path := filepath.Join(t.TempDir(), "export", "records.jsonl")
	count, err := Export(ctx, s, path)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec models.StoredRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		ids = append(ids, rec.ID)
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, []string{"RJ000001", "RJ000002"}, ids)
}

func TestJSONLWriterValidateEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	w, err := NewJSONLWriter(path)
	require.NoError(t, err)
	defer w.Close()

	require.ErrorContains(t, w.Validate(), "empty")
}
