package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// PostgresSlots keeps slots in a PostgreSQL table. Useful when several quill
// processes should see the same posts.
type PostgresSlots struct {
	pool *pgxpool.Pool
}

var _ SlotStore = (*PostgresSlots)(nil)

// NewPostgresSlots connects to dsn, retrying with exponential backoff until the
// server answers a ping or ctx is done.
func NewPostgresSlots(ctx context.Context, dsn string) (*PostgresSlots, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	err = backoff.RetryNotify(func() error {
		return pool.Ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.WithFields(log.Fields{
			"error": err,
			"retry": next,
		}).Warn("Postgres not reachable yet")
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresSlots{pool: pool}, nil
}

func (s *PostgresSlots) Get(ctx context.Context, name string) ([]byte, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("value").From(slotsTable).Where(sb.Equal("name", name))
	query, args := sb.Build()

	var value []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return value, nil
}

func (s *PostgresSlots) Put(ctx context.Context, name string, value []byte) error {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(slotsTable).Cols("name", "value", "updated_at").Values(name, value, time.Now().UTC())
	ib.SQL("ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at")
	query, args := ib.Build()

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert error: %w", err)
	}
	return nil
}

func (s *PostgresSlots) Delete(ctx context.Context, name string) error {
	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom(slotsTable).Where(del.Equal("name", name))
	query, args := del.Build()

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

func (s *PostgresSlots) Close() error {
	s.pool.Close()
	return nil
}
