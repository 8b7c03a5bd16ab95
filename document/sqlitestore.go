package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	name       TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps documents as rows of a SQLite database.
type SQLiteStore struct {
	sqlDB *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// OpenSQLite opens the database at path and creates the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, name string, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, body, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	var body []byte
	err = s.sqlDB.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", name, err)
	}
	doc := New()
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", name, err)
	}
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name, length(body), updated_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []Info{}
	for rows.Next() {
		var (
			info    Info
			updated int64
		)
		if err := rows.Scan(&info.Name, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		info.UpdatedAt = fromMillis(updated)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
