package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/climate-dashboard/internal/config"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS preferences (
	name VARCHAR(64) NOT NULL PRIMARY KEY,
	pref_value VARCHAR(255) NOT NULL,
	updated_at DATETIME NOT NULL
)`

const selectPreferenceSQL = `SELECT pref_value FROM preferences WHERE name = ?`

var upsertPreferenceSQL = map[string]string{
	"sqlite3": `INSERT INTO preferences (name, pref_value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET pref_value = excluded.pref_value, updated_at = excluded.updated_at`,
	"mysql": `INSERT INTO preferences (name, pref_value, updated_at) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE pref_value = VALUES(pref_value), updated_at = VALUES(updated_at)`,
}

// SQLStore persists preferences in a SQL table keyed by preference name.
type SQLStore struct {
	db     *sql.DB
	upsert string
	clock  clockwork.Clock
}

// NewSQLStore prepares the preferences table on db. driver selects the SQL
// dialect (sqlite3 or mysql).
func NewSQLStore(ctx context.Context, db *sql.DB, driver string, clock clockwork.Clock) (*SQLStore, error) {
	upsert, ok := upsertPreferenceSQL[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported settings driver %q", driver)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("create preferences table: %w", err)
	}
	return &SQLStore{db: db, upsert: upsert, clock: clock}, nil
}

// Load returns the stored theme. A missing or unrecognised value loads as light.
func (s *SQLStore) Load(ctx context.Context) (Theme, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectPreferenceSQL, ThemeKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return Light, nil
	}
	if err != nil {
		return Light, fmt.Errorf("select theme: %w", err)
	}
	theme, err := ParseTheme(value)
	if err != nil {
		return Light, nil
	}
	return theme, nil
}

func (s *SQLStore) Save(ctx context.Context, theme Theme) error {
	if _, err := s.db.ExecContext(ctx, s.upsert, ThemeKey, string(theme), s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("upsert theme: %w", err)
	}
	return nil
}

// Open connects to the database named by cfg and prepares the preferences table.
func Open(ctx context.Context, cfg *config.Config) (*SQLStore, error) {
	db, err := OpenDB(cfg.SettingsDriver, cfg.SettingsDSN, cfg.SettingsPath)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStore(ctx, db, cfg.SettingsDriver, clockwork.NewRealClock())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// OpenDB opens and pings the settings database. For sqlite3 an empty dsn is
// built from path, creating its directory when needed.
func OpenDB(driver, dsn, path string) (*sql.DB, error) {
	if driver == "sqlite3" && dsn == "" {
		var err error
		dsn, err = sqliteDSN(path)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func sqliteDSN(path string) (string, error) {
	if path == ":memory:" {
		return "file::memory:?cache=shared", nil
	}

	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
