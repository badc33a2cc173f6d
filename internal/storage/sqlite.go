package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore keeps every record as a JSON body in a single records table,
// keyed by (collection, key). An alternative to FileStore for deployments
// that prefer one database file over a data directory.
type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

func (s *SQLiteStore) Create(ctx context.Context, collection, key string, record any) error {
	if !validKey(collection) || !validKey(key) {
		return errInvalidKey
	}
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	// ON CONFLICT DO NOTHING keeps the uniqueness check inside one
	// statement; zero rows affected means the key was taken
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO records (collection, key, body, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (collection, key) DO NOTHING`,
		collection, key, string(b), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, collection, key string, out any) error {
	if !validKey(collection) || !validKey(key) {
		return errInvalidKey
	}
	var body string
	err := s.DB.QueryRowContext(ctx,
		`SELECT body FROM records WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrDecode, collection, key, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, collection, key string, record any) error {
	if !validKey(collection) || !validKey(key) {
		return errInvalidKey
	}
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE records SET body = ?, updated_at = ? WHERE collection = ? AND key = ?`,
		string(b), time.Now().Unix(), collection, key,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) error {
	if !validKey(collection) || !validKey(key) {
		return errInvalidKey
	}
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`,
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]string, error) {
	if !validKey(collection) {
		return nil, errInvalidKey
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key FROM records WHERE collection = ? ORDER BY key`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}
