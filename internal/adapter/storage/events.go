package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
	"github.com/niksmo/parentshop/pkg/retry"
)

var _ port.ClientEventsStorage = (*EventsRepository)(nil)

const insertEventQuery = `
	INSERT INTO client_events (
		message_id, type, name, anonymous_id, user_id,
		properties, page_url, page_title, sent_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (message_id) DO NOTHING;
`

// An EventsRepository archives analytics events in PostgreSQL.
//
// Storing is idempotent by message ID, so a batch redelivered after a
// failed offset commit is stored once.
type EventsRepository struct {
	sqldb    sqldb
	retryCfg retry.RetryConfig
}

func NewEventsRepository(sqldb sqldb) EventsRepository {
	return EventsRepository{
		sqldb: sqldb,
		retryCfg: retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.ExponentialBackoff(100 * time.Millisecond),
			ShouldRetry: isTransientPgErr,
		},
	}
}

func (r EventsRepository) StoreEvents(
	ctx context.Context, evts []domain.Event,
) error {
	const op = "EventsRepository.StoreEvents"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(evts) == 0 {
		return nil
	}

	err := retry.Do(ctx, r.retryCfg, func() error {
		return r.storeEvents(ctx, evts)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r EventsRepository) storeEvents(
	ctx context.Context, evts []domain.Event,
) (storeErr error) {
	const op = "EventsRepository.storeEvents"
	log := slog.With("op", op)

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if storeErr == nil {
			if err := tx.Commit(); err != nil {
				storeErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertEventQuery)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, v := range evts {
		props, err := marshalProperties(v.Properties)
		if err != nil {
			return fmt.Errorf("%s: message %q: %w", op, v.MessageID, err)
		}

		_, err = stmt.ExecContext(ctx,
			v.MessageID, string(v.Type), v.Name, v.AnonymousID, v.UserID,
			props, v.Page.URL, v.Page.Title, v.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
	}

	return nil
}

func marshalProperties(props domain.Properties) (string, error) {
	if props == nil {
		return "{}", nil
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// isTransientPgErr reports whether a failed batch may succeed when run
// again.
func isTransientPgErr(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgerrcode.IsConnectionException(pgErr.Code) ||
		pgErr.Code == pgerrcode.SerializationFailure ||
		pgErr.Code == pgerrcode.DeadlockDetected
}
