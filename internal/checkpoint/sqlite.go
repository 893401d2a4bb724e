package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var _ Store = (*BunStore)(nil)

// entryModel is one row of the checkpoints table.
type entryModel struct {
	bun.BaseModel `bun:"table:checkpoints"`

	Kind       string    `bun:"kind,pk"`
	Key        string    `bun:"key,pk"`
	Value      string    `bun:"value,notnull"`
	RecordedAt time.Time `bun:"recorded_at,notnull"`
}

// BunStore keeps entries in a SQL database through bun.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
}

// NewBunStore wraps an open database. The checkpoints table is created if
// it does not exist.
func NewBunStore(ctx context.Context, db *bun.DB) (*BunStore, error) {
	if db == nil {
		return nil, errors.New("checkpoint: bun store requires a database")
	}
	if _, err := db.NewCreateTable().Model((*entryModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("checkpoint: create table: %w", err)
	}
	return &BunStore{db: db, now: time.Now}, nil
}

// OpenSQLite opens (creating if needed) a SQLite checkpoint file.
// dsn may be a plain path or a "file:" URI.
func OpenSQLite(ctx context.Context, dsn string) (*BunStore, error) {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?_fk=1&_busy_timeout=5000"
	}
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	sqldb.SetMaxOpenConns(1)

	store, err := NewBunStore(ctx, bun.NewDB(sqldb, sqlitedialect.New()))
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return store, nil
}

func (s *BunStore) Lookup(ctx context.Context, kind, key string) (string, bool, error) {
	var row entryModel
	err := s.db.NewSelect().
		Model(&row).
		Where("? = ?", bun.Ident("kind"), kind).
		Where("? = ?", bun.Ident("key"), key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("checkpoint: lookup %s %s: %w", kind, key, err)
	}
	return row.Value, true, nil
}

func (s *BunStore) Record(ctx context.Context, kind, key, value string) error {
	row := &entryModel{
		Kind:       kind,
		Key:        key,
		Value:      value,
		RecordedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (kind, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("recorded_at = EXCLUDED.recorded_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("checkpoint: record %s %s: %w", kind, key, err)
	}
	return nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
