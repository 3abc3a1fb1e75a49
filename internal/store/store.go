// Package store keeps training runs, the embedding cache and the LLM
// request log in one SQLite file.
package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const sqliteDialect = dialect.SQLite

// Connection pragmas, applied by the driver to every new connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
	"synchronous(NORMAL)",
}

// Store owns the database handle. Repositories build their statements with
// the ent SQL builder and run them through drv.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
}

// Open opens or creates the database at path and migrates it. path may be
// a plain file name or a "file:" URI.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragmas(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &Store{db: db, drv: entsql.OpenDB(sqliteDialect, db)}, nil
}

func withPragmas(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

func (s *Store) Close() error { return s.drv.Close() }

func (s *Store) RunRepo() RunRepo { return &runRepo{drv: s.drv} }

func (s *Store) EventRepo() EventRepo { return &eventRepo{drv: s.drv} }

func (s *Store) EmbeddingCache() *EmbeddingCache { return &EmbeddingCache{drv: s.drv} }

// DefaultDBPath returns $READLEVEL_DB, else readlevel/readlevel.db under
// $XDG_DATA_HOME or ~/.local/share. The parent directory is created.
func DefaultDBPath() (string, error) {
	p := os.Getenv("READLEVEL_DB")
	if p == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("locate home directory: %w", err)
			}
			base = filepath.Join(home, ".local", "share")
		}
		p = filepath.Join(base, "readlevel", "readlevel.db")
	}
	return p, os.MkdirAll(filepath.Dir(p), 0o755)
}
