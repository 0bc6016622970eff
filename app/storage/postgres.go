package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"salesbot/app/sales"
	"salesbot/core/logger"
)

// Postgres stores sale records in a relational table; scheduled tranches are
// kept as a JSONB column since they are only ever read back whole.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an established connection.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

type saleRow struct {
	ID              string    `db:"id"`
	ClientName      string    `db:"client_name"`
	MasterName      string    `db:"master_name"`
	PackageType     string    `db:"package_type"`
	PracticesCount  int       `db:"practices_count"`
	TotalAmount     float64   `db:"total_amount"`
	PaidAmount      float64   `db:"paid_amount"`
	RemainingAmount float64   `db:"remaining_amount"`
	Tranches        []byte    `db:"tranches"`
	CreatedAt       time.Time `db:"created_at"`
	ChatID          int64     `db:"chat_id"`
	ThreadID        int       `db:"thread_id"`
}

const insertSaleQuery = `
	INSERT INTO sales (
		id, client_name, master_name, package_type, practices_count,
		total_amount, paid_amount, remaining_amount, tranches,
		created_at, chat_id, thread_id
	) VALUES (
		:id, :client_name, :master_name, :package_type, :practices_count,
		:total_amount, :paid_amount, :remaining_amount, :tranches,
		:created_at, :chat_id, :thread_id
	)`

// Append inserts one record.
func (s *Postgres) Append(ctx context.Context, rec sales.Record) error {
	tranches, err := json.Marshal(rec.Tranches)
	if err != nil {
		return fmt.Errorf("storage: marshal tranches: %w", err)
	}

	start := time.Now()
	row := saleRow{
		ID:              rec.ID,
		ClientName:      rec.ClientName,
		MasterName:      rec.MasterName,
		PackageType:     string(rec.PackageType),
		PracticesCount:  rec.PracticesCount,
		TotalAmount:     rec.TotalAmount,
		PaidAmount:      rec.PaidAmount,
		RemainingAmount: rec.RemainingAmount,
		Tranches:        tranches,
		CreatedAt:       rec.CreatedAt,
		ChatID:          rec.ChatID,
		ThreadID:        rec.ThreadID,
	}
	if _, err := s.db.NamedExecContext(ctx, insertSaleQuery, row); err != nil {
		return fmt.Errorf("storage: insert sale: %w", err)
	}

	logger.Info(ctx, "service.sales", "record.appended",
		slog.String("backend", BackendPostgres),
		slog.String("sale_id", rec.ID),
		slog.String("client", logger.SanitizeLimit(rec.ClientName, 64)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// List returns all records in creation order.
func (s *Postgres) List(ctx context.Context) ([]sales.Record, error) {
	var rows []saleRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, client_name, master_name, package_type, practices_count,
		        total_amount, paid_amount, remaining_amount, tranches,
		        created_at, chat_id, thread_id
		 FROM sales ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: select sales: %w", err)
	}

	records := make([]sales.Record, 0, len(rows))
	for _, row := range rows {
		var tranches []sales.Tranche
		if len(row.Tranches) > 0 {
			if err := json.Unmarshal(row.Tranches, &tranches); err != nil {
				logger.Warn(ctx, "service.sales", "record.decode.failed",
					slog.String("backend", BackendPostgres),
					slog.String("sale_id", row.ID),
					slog.String("err", err.Error()),
				)
			}
		}
		records = append(records, sales.Record{
			ID:              row.ID,
			ClientName:      row.ClientName,
			MasterName:      row.MasterName,
			PackageType:     sales.Package(row.PackageType),
			PracticesCount:  row.PracticesCount,
			TotalAmount:     row.TotalAmount,
			PaidAmount:      row.PaidAmount,
			RemainingAmount: row.RemainingAmount,
			Tranches:        tranches,
			CreatedAt:       row.CreatedAt,
			ChatID:          row.ChatID,
			ThreadID:        row.ThreadID,
		})
	}
	return records, nil
}
