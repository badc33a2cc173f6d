// Package auth issues and checks the opaque login tokens that prove control
// of a phone-identified account.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upcheck/internal/shared"
	"upcheck/internal/storage"
)

// ErrTokenExpired is returned when an expired token is asked to do anything
// other than be deleted.
var ErrTokenExpired = errors.New("token expired")

// Service persists tokens in the record store. Tokens are never reaped in
// the background; an expired record simply fails verification until someone
// deletes it.
type Service struct {
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store storage.Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Create issues a fresh token for phone, valid for the configured window.
func (s *Service) Create(ctx context.Context, phone string) (*shared.Token, error) {
	id, err := shared.RandomID(shared.IDLength)
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}
	token := &shared.Token{ID: id, Phone: phone, Expires: s.now().Add(s.ttl)}
	if err := s.store.Create(ctx, shared.CollectionTokens, id, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// Extend pushes the expiry to now + the validity window. The new expiry is
// computed from the current time, not added to the old one. Expired tokens
// cannot be extended.
func (s *Service) Extend(ctx context.Context, id string) (*shared.Token, error) {
	var token shared.Token
	if err := s.store.Read(ctx, shared.CollectionTokens, id, &token); err != nil {
		return nil, err
	}
	if token.ExpiredAt(s.now()) {
		return nil, ErrTokenExpired
	}
	token.Expires = s.now().Add(s.ttl)
	if err := s.store.Update(ctx, shared.CollectionTokens, id, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Verify reports whether the token exists, belongs to phone, and has not
// expired. It is a predicate, not a fallible operation: any lookup failure
// is simply false.
func (s *Service) Verify(ctx context.Context, id, phone string) bool {
	if id == "" || phone == "" {
		return false
	}
	var token shared.Token
	if err := s.store.Read(ctx, shared.CollectionTokens, id, &token); err != nil {
		return false
	}
	return token.Phone == phone && !token.ExpiredAt(s.now())
}

// Resolve returns the token record when it exists and is still valid.
// Handlers that only hold a token ID use it to learn the owning phone.
func (s *Service) Resolve(ctx context.Context, id string) (*shared.Token, bool) {
	if id == "" {
		return nil, false
	}
	var token shared.Token
	if err := s.store.Read(ctx, shared.CollectionTokens, id, &token); err != nil {
		return nil, false
	}
	if token.ExpiredAt(s.now()) {
		return nil, false
	}
	return &token, true
}

// Revoke deletes the token record. Ownership is not checked here: only a
// request that already carries the token can name it.
func (s *Service) Revoke(ctx context.Context, id string) error {
	return s.store.Delete(ctx, shared.CollectionTokens, id)
}
