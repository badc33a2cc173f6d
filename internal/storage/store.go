// Package storage provides single-record CRUD addressed by (collection, key).
//
// Owns:
//   - The Store contract and its error kinds
//   - The file-per-record backend (the default persisted layout)
//   - The SQLite backend
//
// Does not own:
//   - Record shapes or cross-record consistency; callers sequence
//     multi-record updates themselves
package storage

import (
	"context"
	"errors"
	"regexp"
)

// Store is the record store. Create is the only operation with an atomicity
// guarantee: it fails with ErrAlreadyExists instead of overwriting, which is
// what enforces key uniqueness for callers. Update fully replaces the stored
// content. No multi-record transactions are provided.
type Store interface {
	Create(ctx context.Context, collection, key string, record any) error
	Read(ctx context.Context, collection, key string, out any) error
	Update(ctx context.Context, collection, key string, record any) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) ([]string, error)
}

var (
	// ErrAlreadyExists is returned by Create when the key is taken.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrNotFound is returned when no record exists for the key.
	ErrNotFound = errors.New("record not found")
	// ErrDecode is returned by Read when the stored content is not valid
	// JSON for the target type; distinct from ErrNotFound.
	ErrDecode = errors.New("record could not be decoded")
)

var errInvalidKey = errors.New("invalid record key")

var keyPattern = regexp.MustCompile(`^[a-z0-9]{1,64}$`)

// validKey guards both backends against hostile keys reaching the
// filesystem or SQL layer. Phone numbers and generated IDs always match.
func validKey(s string) bool {
	return keyPattern.MatchString(s)
}
