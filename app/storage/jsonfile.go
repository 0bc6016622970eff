package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"salesbot/app/sales"
	"salesbot/core/logger"
)

// JSONFile stores records as an indented JSON array in a single file. The
// whole file is loaded and rewritten on every append; a read fault is
// treated as an empty store so a corrupt or missing file never blocks the
// operator flow.
type JSONFile struct {
	path string
	mu   sync.Mutex
}

// NewJSONFile creates a file-backed store at path. The file is created
// lazily on first append.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Append rewrites the data file with the new record included.
func (s *JSONFile) Append(ctx context.Context, rec sales.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	records := s.load(ctx)
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal records: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", s.path, err)
	}

	logger.Info(ctx, "service.sales", "record.appended",
		slog.String("backend", BackendJSON),
		slog.String("sale_id", rec.ID),
		slog.String("client", logger.SanitizeLimit(rec.ClientName, 64)),
		slog.Int("records", len(records)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// List returns every stored record.
func (s *JSONFile) List(ctx context.Context) ([]sales.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

func (s *JSONFile) load(ctx context.Context) []sales.Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "service.sales", "record.load.failed",
				slog.String("backend", BackendJSON),
				slog.String("err", err.Error()),
			)
		}
		return nil
	}

	var records []sales.Record
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn(ctx, "service.sales", "record.decode.failed",
			slog.String("backend", BackendJSON),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return records
}
