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

// UserHandlers owns the CRUD operations on user accounts, keyed by phone.
type UserHandlers struct {
	store  storage.Store
	tokens *auth.Service
	secret string
	logger *slog.Logger
}

func (h *UserHandlers) Handle(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "post":
		return h.create(ctx, req)
	case "get":
		return h.read(ctx, req)
	case "put":
		return h.update(ctx, req)
	case "delete":
		return h.delete(ctx, req)
	default:
		return methodNotAllowed()
	}
}

type createUserRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	TOSAgreement bool   `json:"tosAgreement"`
}

// create is the one operation without a token: a new account must not
// require itself to already be authenticated.
func (h *UserHandlers) create(ctx context.Context, req *Request) *Response {
	var in createUserRequest
	if !req.Decode(&in) {
		return missingPayload()
	}

	fields := fieldErrors{}
	if trimmed(in.FirstName) == "" {
		fields.add("firstName", "required")
	}
	if trimmed(in.LastName) == "" {
		fields.add("lastName", "required")
	}
	if !validPhone(trimmed(in.Phone)) {
		fields.add("phone", "must be exactly 10 digits")
	}
	if trimmed(in.Password) == "" {
		fields.add("password", "required")
	}
	if !in.TOSAgreement {
		fields.add("tosAgreement", "must be accepted")
	}
	if len(fields) > 0 {
		return invalidInput(fields)
	}

	user := shared.User{
		Phone:          trimmed(in.Phone),
		FirstName:      trimmed(in.FirstName),
		LastName:       trimmed(in.LastName),
		HashedPassword: shared.HashPassword(h.secret, in.Password),
		TOSAgreement:   true,
	}
	if err := h.store.Create(ctx, shared.CollectionUsers, user.Phone, &user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return &Response{Status: http.StatusConflict, Body: errorBody("a user with that phone number already exists")}
		}
		h.logger.Error("create user", "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not create the user")}
	}
	return &Response{Body: user.Public()}
}

func (h *UserHandlers) read(ctx context.Context, req *Request) *Response {
	phone := trimmed(req.Query.Get("phone"))
	if !validPhone(phone) {
		return invalidInput(fieldErrors{"phone": "must be exactly 10 digits"})
	}
	if !h.tokens.Verify(ctx, req.Token(), phone) {
		return forbidden()
	}

	var user shared.User
	if err := h.store.Read(ctx, shared.CollectionUsers, phone, &user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such user")}
		}
		h.logger.Error("read user", "phone", phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the user")}
	}
	return &Response{Body: user.Public()}
}

type updateUserRequest struct {
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

func (h *UserHandlers) update(ctx context.Context, req *Request) *Response {
	var in updateUserRequest
	if !req.Decode(&in) {
		return missingPayload()
	}
	phone := trimmed(in.Phone)
	if !validPhone(phone) {
		return invalidInput(fieldErrors{"phone": "must be exactly 10 digits"})
	}
	firstName := trimmed(in.FirstName)
	lastName := trimmed(in.LastName)
	password := trimmed(in.Password)
	if firstName == "" && lastName == "" && password == "" {
		return invalidInput(fieldErrors{
			"firstName": "at least one of firstName, lastName, password is required",
			"lastName":  "at least one of firstName, lastName, password is required",
			"password":  "at least one of firstName, lastName, password is required",
		})
	}
	if !h.tokens.Verify(ctx, req.Token(), phone) {
		return forbidden()
	}

	var user shared.User
	if err := h.store.Read(ctx, shared.CollectionUsers, phone, &user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such user")}
		}
		h.logger.Error("read user", "phone", phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the user")}
	}
	if firstName != "" {
		user.FirstName = firstName
	}
	if lastName != "" {
		user.LastName = lastName
	}
	if password != "" {
		user.HashedPassword = shared.HashPassword(h.secret, password)
	}
	if err := h.store.Update(ctx, shared.CollectionUsers, phone, &user); err != nil {
		h.logger.Error("update user", "phone", phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not update the user")}
	}
	return &Response{Body: user.Public()}
}

// delete removes the user record first, then cascades over the owned checks
// best-effort. A partial cascade is reported as a server error carrying the
// check IDs that could not be removed; the user record is gone either way.
func (h *UserHandlers) delete(ctx context.Context, req *Request) *Response {
	phone := trimmed(req.Query.Get("phone"))
	if !validPhone(phone) {
		return invalidInput(fieldErrors{"phone": "must be exactly 10 digits"})
	}
	if !h.tokens.Verify(ctx, req.Token(), phone) {
		return forbidden()
	}

	var user shared.User
	if err := h.store.Read(ctx, shared.CollectionUsers, phone, &user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such user")}
		}
		h.logger.Error("read user", "phone", phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the user")}
	}
	if err := h.store.Delete(ctx, shared.CollectionUsers, phone); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such user")}
		}
		h.logger.Error("delete user", "phone", phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not delete the user")}
	}

	var failed []string
	for _, checkID := range user.Checks {
		if err := h.store.Delete(ctx, shared.CollectionChecks, checkID); err != nil {
			h.logger.Error("cascade check delete", "phone", phone, "check_id", checkID, "error", err)
			failed = append(failed, checkID)
		}
	}
	if len(failed) > 0 {
		return &Response{Status: http.StatusInternalServerError, Body: map[string]any{
			"error":        "the user was deleted but some of its checks could not be removed",
			"failedChecks": failed,
		}}
	}
	return &Response{}
}
