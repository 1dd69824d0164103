package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

type Dialect string

const (
	Sqlite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func instance(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	src, err := iofs.New(FS, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s migrations: %w", dialect, err)
	}

	var driver database.Driver
	switch dialect {
	case Sqlite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case Postgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
	if err != nil {
		return nil, err
	}

	return migrate.NewWithInstance("iofs", src, string(dialect), driver)
}

// Up applies every pending migration. The migrate instance is not
// closed since that would close db too.
func Up(db *sql.DB, dialect Dialect) error {
	m, err := instance(db, dialect)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply %s migrations: %w", dialect, err)
	}
	return nil
}

// Version returns the applied schema version, zero when none was.
func Version(db *sql.DB, dialect Dialect) (uint, bool, error) {
	m, err := instance(db, dialect)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Latest returns the highest version shipped for dialect.
func Latest(dialect Dialect) (uint, error) {
	entries, err := FS.ReadDir(string(dialect))
	if err != nil {
		return 0, err
	}

	var latest uint
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}

		prefix, _, _ := strings.Cut(e.Name(), "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed migration name %q", e.Name())
		}
		latest = max(latest, uint(v))
	}
	return latest, nil
}
