package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nvalden/numlab-api/internal/platform/logger"
)

// TxFn is a function executed within a database transaction. The
// transaction is committed if the function returns nil and rolled back
// otherwise.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction begins a transaction on db, runs fn inside it, and
// commits or rolls back based on fn's result. Panics inside fn roll the
// transaction back before being re-raised. All returned errors wrap
// ErrTransactionFailed except errors originating from fn itself, which
// are returned as-is.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin: %v", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic", slog.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf("%w: rollback: %v (original error: %w)",
				ErrTransactionFailed, rbErr, err)
		}
		log.Debug("rolled back transaction", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}

	return nil
}
