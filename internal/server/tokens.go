package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"upcheck/internal/auth"
	"upcheck/internal/shared"
	"upcheck/internal/storage"
)

// TokenHandlers owns login, logout, lookup, and extension of tokens.
type TokenHandlers struct {
	store  storage.Store
	tokens *auth.Service
	secret string
	logger *slog.Logger
}

func (h *TokenHandlers) Handle(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "post":
		return h.create(ctx, req)
	case "get":
		return h.read(ctx, req)
	case "put":
		return h.extend(ctx, req)
	case "delete":
		return h.delete(ctx, req)
	default:
		return methodNotAllowed()
	}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// create is login: phone + password in exchange for a fresh token.
func (h *TokenHandlers) create(ctx context.Context, req *Request) *Response {
	var in loginRequest
	if !req.Decode(&in) {
		return missingPayload()
	}
	phone := trimmed(in.Phone)
	password := trimmed(in.Password)
	fields := fieldErrors{}
	if !validPhone(phone) {
		fields.add("phone", "must be exactly 10 digits")
	}
	if password == "" {
		fields.add("password", "required")
	}
	if len(fields) > 0 {
		return invalidInput(fields)
	}

	var user shared.User
	if err := h.store.Read(ctx, shared.CollectionUsers, phone, &user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// same answer as a wrong password: do not reveal which
			return &Response{Status: http.StatusForbidden, Body: errorBody("phone and password did not match")}
		}
		h.logger.Error("read user", "phone", phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the user")}
	}
	if !shared.DigestEqual(shared.HashPassword(h.secret, password), user.HashedPassword) {
		return &Response{Status: http.StatusForbidden, Body: errorBody("phone and password did not match")}
	}

	token, err := h.tokens.Create(ctx, phone)
	if err != nil {
		h.logger.Error("create token", "phone", phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not create a token")}
	}
	return &Response{Body: token}
}

// read needs no ownership check: the ID itself is the credential.
func (h *TokenHandlers) read(ctx context.Context, req *Request) *Response {
	id := trimmed(req.Query.Get("id"))
	if id == "" {
		return invalidInput(fieldErrors{"id": "required"})
	}
	var token shared.Token
	if err := h.store.Read(ctx, shared.CollectionTokens, id, &token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such token")}
		}
		h.logger.Error("read token", "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the token")}
	}
	return &Response{Body: token}
}

type extendRequest struct {
	Extend bool `json:"extend"`
}

func (h *TokenHandlers) extend(ctx context.Context, req *Request) *Response {
	id := trimmed(req.Query.Get("id"))
	if id == "" {
		return invalidInput(fieldErrors{"id": "required"})
	}
	var in extendRequest
	if !req.Decode(&in) {
		return missingPayload()
	}
	if !in.Extend {
		return invalidInput(fieldErrors{"extend": "must be true"})
	}

	token, err := h.tokens.Extend(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return &Response{Status: http.StatusForbidden, Body: errorBody("the token has already expired, log in again")}
		case errors.Is(err, storage.ErrNotFound):
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such token")}
		default:
			h.logger.Error("extend token", "error", err)
			return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not extend the token")}
		}
	}
	return &Response{Body: token}
}

// delete is logout, unconditional on knowing the ID.
func (h *TokenHandlers) delete(ctx context.Context, req *Request) *Response {
	id := trimmed(req.Query.Get("id"))
	if id == "" {
		return invalidInput(fieldErrors{"id": "required"})
	}
	if err := h.tokens.Revoke(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such token")}
		}
		h.logger.Error("revoke token", "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not delete the token")}
	}
	return &Response{}
}
