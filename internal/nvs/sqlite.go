package nvs

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/EternisAI/silo-device/internal/secret"
	"github.com/pressly/goose/v3"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	kindU8     = 1
	kindString = 2

	opTimeout = 5 * time.Second
)

type Config struct {
	Path string `mapstructure:"path"`
}

// SQLite is a file-backed KV. Every write is its own transaction, so a value
// is either fully written or not at all.
type SQLite struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY under the WAL.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to open storage: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	slog.Info("Non-volatile storage ready", "path", path)
	return &SQLite{db: db, path: path}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Namespace returns a view of the given namespace.
func (s *SQLite) Namespace(name string) *SQLiteNamespace {
	return &SQLiteNamespace{store: s, name: name}
}

type SQLiteNamespace struct {
	store *SQLite
	name  string
}

func (n *SQLiteNamespace) get(key string) (int, []byte, bool, error) {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()

	if n.store.closed {
		return 0, nil, false, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		kind  int
		value []byte
	)
	err := n.store.db.QueryRowContext(ctx,
		"SELECT kind, value FROM kv WHERE namespace = ? AND key = ?", n.name, key,
	).Scan(&kind, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("failed to read %s/%s: %w", n.name, key, err)
	}
	return kind, value, true, nil
}

func (n *SQLiteNamespace) set(key string, kind int, value []byte) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()

	if n.store.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if value == nil {
		value = []byte{}
	}
	_, err := n.store.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, kind, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
		   kind = excluded.kind,
		   value = excluded.value,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		n.name, key, kind, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", n.name, key, err)
	}
	return nil
}

func (n *SQLiteNamespace) GetU8(key string) (uint8, bool, error) {
	kind, value, found, err := n.get(key)
	if err != nil || !found {
		return 0, found, err
	}
	if kind != kindU8 || len(value) != 1 {
		return 0, true, ErrKindMismatch
	}
	return value[0], true, nil
}

func (n *SQLiteNamespace) SetU8(key string, value uint8) error {
	return n.set(key, kindU8, []byte{value})
}

func (n *SQLiteNamespace) GetString(key string, buf []byte) (int, bool, error) {
	kind, value, found, err := n.get(key)
	if err != nil || !found {
		return 0, found, err
	}
	defer secret.Wipe(value)

	if kind != kindString {
		return 0, true, ErrKindMismatch
	}
	if len(value) > len(buf) {
		return 0, true, ErrBufferTooSmall
	}
	return copy(buf, value), true, nil
}

func (n *SQLiteNamespace) SetString(key string, value []byte) error {
	return n.set(key, kindString, value)
}
