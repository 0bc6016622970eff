package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/app/sales"
)

func testRecord(id string) sales.Record {
	return sales.Record{
		ID:              id,
		ClientName:      "Мария",
		MasterName:      "Ольга",
		PackageType:     sales.PackageStarter,
		PracticesCount:  4,
		TotalAmount:     30000,
		PaidAmount:      20000,
		RemainingAmount: 10000,
		Tranches: []sales.Tranche{
			{Amount: 10000, DueDate: "15.10.2026"},
		},
		CreatedAt: time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC),
		ChatID:    100,
		ThreadID:  7,
	}
}

func TestJSONFileAppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.json")
	store := NewJSONFile(path)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testRecord("a")))
	require.NoError(t, store.Append(ctx, testRecord("b")))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, sales.PackageStarter, records[0].PackageType)
	require.Len(t, records[0].Tranches, 1)
	assert.Equal(t, "15.10.2026", records[0].Tranches[0].DueDate)
}

func TestJSONFileMissingFileIsEmptyStore(t *testing.T) {
	store := NewJSONFile(filepath.Join(t.TempDir(), "absent.json"))

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestJSONFileCorruptFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	store := NewJSONFile(path)
	ctx := context.Background()

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	// An append over a corrupt file starts fresh rather than failing.
	require.NoError(t, store.Append(ctx, testRecord("a")))
	records, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
}

func TestJSONFileUsesOriginalFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.json")
	store := NewJSONFile(path)
	require.NoError(t, store.Append(context.Background(), testRecord("a")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{
		`"clientName"`, `"masterName"`, `"packageType"`, `"practicesCount"`,
		`"remainderPayments"`, `"createdAt"`, `"chatId"`, `"messageThreadId"`,
	} {
		assert.Contains(t, string(raw), key)
	}
}

func TestConfigNormalize(t *testing.T) {
	var cfg Config
	cfg.Normalize()
	assert.Equal(t, BackendJSON, cfg.Backend)
	assert.Equal(t, "payments_data.json", cfg.Path)

	cfg = Config{Backend: BackendPostgres, Path: "x.json"}
	cfg.Normalize()
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "x.json", cfg.Path)
}
