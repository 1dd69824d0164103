package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/seahorsehq/seahorse/internal/store"
	"github.com/seahorsehq/seahorse/internal/store/migrations"
	"github.com/seahorsehq/seahorse/internal/util"
	"github.com/seahorsehq/seahorse/pkg/key"

	_ "github.com/lib/pq"
)

const (
	RECORD_UPSERT_STATEMENT = `
	INSERT INTO records
		(fingerprint, uri, user_id, flags, created_on, expires_on, algo, length, pattern, updated_on)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT(fingerprint, uri) DO UPDATE SET
		user_id = EXCLUDED.user_id,
		flags = EXCLUDED.flags,
		created_on = EXCLUDED.created_on,
		expires_on = EXCLUDED.expires_on,
		algo = EXCLUDED.algo,
		length = EXCLUDED.length,
		pattern = EXCLUDED.pattern,
		updated_on = EXCLUDED.updated_on`

	RECORD_SEARCH_STATEMENT = `
	SELECT
		fingerprint, uri, user_id, flags, created_on, expires_on, algo, length, pattern, updated_on
	FROM
		records
	WHERE
		user_id ILIKE $1 OR fingerprint ILIKE $1
	ORDER BY
		updated_on DESC
	LIMIT
		$2`

	RECORD_SELECT_STATEMENT = `
	SELECT
		fingerprint, uri, user_id, flags, created_on, expires_on, algo, length, pattern, updated_on
	FROM
		records
	WHERE
		fingerprint = $1
	ORDER BY
		updated_on DESC
	LIMIT 1`
)

type Config struct {
	Host      string            `flag:"host" desc:"postgres host" default:"localhost"`
	Port      string            `flag:"port" desc:"postgres port" default:"5432"`
	Username  string            `flag:"username" desc:"postgres username" default:""`
	Password  string            `flag:"password" desc:"postgres password" default:""`
	Database  string            `flag:"database" desc:"postgres database name" default:"seahorse"`
	Query     map[string]string `flag:"query" desc:"postgres connection options" default:"sslmode=disable"`
	TxTimeout time.Duration     `flag:"tx-timeout" desc:"postgres transaction timeout" default:"10s"`
	Reset     bool              `flag:"reset" desc:"drop the records table on shutdown" default:"false"`
}

type PostgresStore struct {
	config *Config
	db     *sql.DB
}

func New(config *Config, conns int) (*PostgresStore, error) {
	rawQuery := make([]string, 0, len(config.Query))
	for _, kv := range util.OrderedRangeKV(config.Query) {
		rawQuery = append(rawQuery, fmt.Sprintf("%s=%s", url.QueryEscape(kv.Key), url.QueryEscape(kv.Value)))
	}

	dbUrl := &url.URL{
		User:     url.UserPassword(config.Username, config.Password),
		Host:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Path:     config.Database,
		Scheme:   "postgres",
		RawQuery: strings.Join(rawQuery, "&"),
	}

	db, err := sql.Open("postgres", dbUrl.String())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	db.SetConnMaxIdleTime(0)

	return &PostgresStore{
		config: config,
		db:     db,
	}, nil
}

func (s *PostgresStore) String() string {
	return fmt.Sprintf("postgres:%s:%s/%s", s.config.Host, s.config.Port, s.config.Database)
}

func (s *PostgresStore) Start() error {
	return migrations.Up(s.db, migrations.Postgres)
}

func (s *PostgresStore) Dialect() migrations.Dialect {
	return migrations.Postgres
}

// Version returns the applied schema version without migrating.
func (s *PostgresStore) Version() (uint, bool, error) {
	return migrations.Version(s.db, migrations.Postgres)
}

func (s *PostgresStore) Stop() error {
	if s.config.Reset {
		if err := s.Reset(); err != nil {
			return errors.Join(err, s.db.Close())
		}
	}

	return s.db.Close()
}

func (s *PostgresStore) Reset() error {
	_, err := s.db.Exec("DROP TABLE IF EXISTS records; DROP TABLE IF EXISTS schema_migrations")
	return err
}

func (s *PostgresStore) Put(ctx context.Context, uri string, pattern string, records []*key.Record) error {
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

func (s *PostgresStore) Search(ctx context.Context, q string, limit int) ([]*store.Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, RECORD_SEARCH_STATEMENT, store.Like(q), limit*store.Candidates)
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

func (s *PostgresStore) Get(ctx context.Context, fingerprint string) (*store.Entry, bool, error) {
	e, err := scan(s.db.QueryRowContext(ctx, RECORD_SELECT_STATEMENT, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func scan(row interface{ Scan(...any) error }) (*store.Entry, error) {
	var (
		e       store.Entry
		flags   int
		created int64
		expires int64
		algo    int
		updated int64
	)

	if err := row.Scan(&e.Fingerprint, &e.URI, &e.UserID, &flags, &created, &expires, &algo, &e.Length, &e.Pattern, &updated); err != nil {
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
