package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/seahorsehq/seahorse/internal/store"
	"github.com/seahorsehq/seahorse/internal/store/migrations"
	"github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/key"

	_ "github.com/mattn/go-sqlite3"
)

const (
	RECORD_UPSERT_STATEMENT = `
	INSERT INTO records
		(fingerprint, uri, user_id, flags, created_on, expires_on, algo, length, pattern, updated_on)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(fingerprint, uri) DO UPDATE SET
		user_id = excluded.user_id,
		flags = excluded.flags,
		created_on = excluded.created_on,
		expires_on = excluded.expires_on,
		algo = excluded.algo,
		length = excluded.length,
		pattern = excluded.pattern,
		updated_on = excluded.updated_on`

	RECORD_SEARCH_STATEMENT = `
	SELECT
		fingerprint, uri, user_id, flags, created_on, expires_on, algo, length, pattern, updated_on
	FROM
		records
	WHERE
		user_id LIKE ? ESCAPE '\' OR fingerprint LIKE ? ESCAPE '\'
	ORDER BY
		updated_on DESC
	LIMIT
		?`

	RECORD_SELECT_STATEMENT = `
	SELECT
		fingerprint, uri, user_id, flags, created_on, expires_on, algo, length, pattern, updated_on
	FROM
		records
	WHERE
		fingerprint = ?
	ORDER BY
		updated_on DESC
	LIMIT 1`
)

type Config struct {
	Path      string        `flag:"path" desc:"sqlite database path" default:"seahorse.db"`
	TxTimeout time.Duration `flag:"tx-timeout" desc:"sqlite transaction timeout" default:"10s"`
	Reset     bool          `flag:"reset" desc:"remove the sqlite db on shutdown" default:"false"`
}

type SqliteStore struct {
	config *Config
	db     *sql.DB
}

func New(config *Config) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers, one connection avoids busy errors
	db.SetMaxOpenConns(1)

	return &SqliteStore{
		config: config,
		db:     db,
	}, nil
}

func (s *SqliteStore) String() string {
	return fmt.Sprintf("sqlite:%s", s.config.Path)
}

func (s *SqliteStore) Start() error {
	return migrations.Up(s.db, migrations.Sqlite)
}

func (s *SqliteStore) Dialect() migrations.Dialect {
	return migrations.Sqlite
}

// Version returns the applied schema version without migrating.
func (s *SqliteStore) Version() (uint, bool, error) {
	return migrations.Version(s.db, migrations.Sqlite)
}

func (s *SqliteStore) Stop() error {
	if err := s.db.Close(); err != nil {
		return err
	}

	if s.config.Reset {
		return s.Reset()
	}
	return nil
}

func (s *SqliteStore) Reset() error {
	if _, err := os.Stat(s.config.Path); err != nil {
		return nil
	}

	return os.Remove(s.config.Path)
}

func (s *SqliteStore) Put(ctx context.Context, uri string, pattern string, records []*key.Record) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.TxTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, RECORD_UPSERT_STATEMENT)
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}
	defer util.DeferAndLog(stmt.Close)

	now := time.Now().UnixMilli()
	for _, r := range records {
		var expires int64
		if !r.Expires.IsZero() {
			expires = r.Expires.Unix()
		}

		if _, err := stmt.ExecContext(ctx,
			r.Fingerprint,
			uri,
			r.UserID,
			int(r.Flags),
			r.Created.Unix(),
			expires,
			int(r.Algo),
			r.Length,
			pattern,
			now,
		); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}

	return tx.Commit()
}

func (s *SqliteStore) Search(ctx context.Context, q string, limit int) ([]*store.Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	like := store.Like(q)
	rows, err := s.db.QueryContext(ctx, RECORD_SEARCH_STATEMENT, like, like, limit*store.Candidates)
	if err != nil {
		return nil, err
	}
	defer util.DeferAndLog(rows.Close)

	var entries []*store.Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return store.Rank(q, entries, limit), nil
}

func (s *SqliteStore) Get(ctx context.Context, fingerprint string) (*store.Entry, bool, error) {
	e, err := scan(s.db.QueryRowContext(ctx, RECORD_SELECT_STATEMENT, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*store.Entry, error) {
	var (
		e       store.Entry
		flags   int
		created int64
		expires int64
		algo    int
		updated int64
	)

	if err := row.Scan(
		&e.Fingerprint,
		&e.URI,
		&e.UserID,
		&flags,
		&created,
		&expires,
		&algo,
		&e.Length,
		&e.Pattern,
		&updated,
	); err != nil {
		return nil, err
	}

	e.Flags = key.Flag(flags)
	e.Created = time.Unix(created, 0).UTC()
	if expires > 0 {
		e.Expires = time.Unix(expires, 0).UTC()
	}
	e.Algo = key.Algo(algo)
	e.UpdatedOn = time.UnixMilli(updated).UTC()

	return &e, nil
}
