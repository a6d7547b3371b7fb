package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

const slotsTable = "slots"

// SQLiteSlots keeps slots in a single table of a local SQLite file
type SQLiteSlots struct {
	db *sql.DB
}

var _ SlotStore = (*SQLiteSlots)(nil)

func NewSQLiteSlots(path string) (*SQLiteSlots, error) {
	db, err := connection(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteSlots{db: db}, nil
}

func (s *SQLiteSlots) Get(ctx context.Context, name string) ([]byte, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("value").From(slotsTable).Where(sb.Equal("name", name))
	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	var value []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return value, nil
}

func (s *SQLiteSlots) Put(ctx context.Context, name string, value []byte) error {
	ib := sqlbuilder.NewInsertBuilder()
	ib.ReplaceInto(slotsTable).Cols("name", "value", "updated_at").Values(name, value, time.Now().Unix())
	query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)

	log.WithFields(log.Fields{
		"slot":  name,
		"bytes": len(value),
	}).Debug("Writing slot")

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

func (s *SQLiteSlots) Delete(ctx context.Context, name string) error {
	del := sqlbuilder.NewDeleteBuilder()
	del.DeleteFrom(slotsTable).Where(del.Equal("name", name))
	query, args := del.BuildWithFlavor(sqlbuilder.SQLite)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

func (s *SQLiteSlots) Close() error {
	return s.db.Close()
}
