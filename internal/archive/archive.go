// Package archive persists resolved orders for history. The live order
// registry stays in memory; only terminal outcomes are written out.
package archive

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/fasters/starshop/core/logger"
	"github.com/fasters/starshop/internal/approval"
	"github.com/fasters/starshop/internal/orders"
)

// Nop discards records. Used when the bot runs without a database.
type Nop struct{}

// Record implements approval.Archive.
func (Nop) Record(context.Context, orders.Order, approval.Decision) error { return nil }

// Postgres writes resolved orders into the order_archive table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

const insertQuery = `
INSERT INTO order_archive
	(order_id, user_id, username, target, quantity, payment_method, method_label, rate, currency, total, decision, created_at, resolved_at)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())`

// Record implements approval.Archive.
func (s *Postgres) Record(ctx context.Context, ord orders.Order, decision approval.Decision) error {
	_, err := s.db.ExecContext(ctx, insertQuery,
		ord.ID, ord.UserID, ord.Username, ord.Target, ord.Quantity,
		string(ord.Method), ord.MethodLabel, ord.Rate, ord.Currency, ord.Total,
		string(decision), ord.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive order %s: %w", ord.ID, err)
	}

	logger.Debug(ctx, "service.archive", "order.recorded",
		slog.String("order_id", ord.ID),
		slog.String("decision", string(decision)),
	)
	return nil
}
