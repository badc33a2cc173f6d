package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"upcheck/internal/auth"
	"upcheck/internal/shared"
	"upcheck/internal/storage"
)

// CheckHandlers owns the CRUD operations on monitoring checks.
type CheckHandlers struct {
	store     storage.Store
	tokens    *auth.Service
	maxChecks int
	logger    *slog.Logger
}

func (h *CheckHandlers) Handle(ctx context.Context, req *Request) *Response {
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

// checkInput covers both create (all fields required) and update (any
// subset). Pointers distinguish absent from zero.
type checkInput struct {
	Protocol       *string `json:"protocol"`
	URL            *string `json:"url"`
	Method         *string `json:"method"`
	SuccessCodes   []int   `json:"successCodes"`
	TimeoutSeconds *int    `json:"timeoutSeconds"`
}

func (h *CheckHandlers) create(ctx context.Context, req *Request) *Response {
	var in checkInput
	if !req.Decode(&in) {
		return missingPayload()
	}

	fields := fieldErrors{}
	if in.Protocol == nil || !validProtocol(*in.Protocol) {
		fields.add("protocol", "must be http or https")
	}
	if in.URL == nil || trimmed(*in.URL) == "" {
		fields.add("url", "required")
	}
	if in.Method == nil || !validCheckMethod(*in.Method) {
		fields.add("method", "must be one of post, get, put, delete")
	}
	if !validSuccessCodes(in.SuccessCodes) {
		fields.add("successCodes", "at least one status code is required")
	}
	if in.TimeoutSeconds == nil || !validTimeout(*in.TimeoutSeconds) {
		fields.add("timeoutSeconds", "must be an integer between 1 and 5")
	}
	if len(fields) > 0 {
		return invalidInput(fields)
	}

	token, ok := h.tokens.Resolve(ctx, req.Token())
	if !ok {
		return forbidden()
	}
	var user shared.User
	if err := h.store.Read(ctx, shared.CollectionUsers, token.Phone, &user); err != nil {
		// a token whose user is gone is as good as no token
		return forbidden()
	}
	if len(user.Checks) >= h.maxChecks {
		return invalidInput(fieldErrors{
			"checks": fmt.Sprintf("the user already has the maximum number of checks (%d)", h.maxChecks),
		})
	}

	id, err := shared.RandomID(shared.IDLength)
	if err != nil {
		h.logger.Error("generate check id", "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not create the check")}
	}
	check := shared.Check{
		ID:             id,
		UserPhone:      user.Phone,
		Protocol:       *in.Protocol,
		URL:            trimmed(*in.URL),
		Method:         *in.Method,
		SuccessCodes:   in.SuccessCodes,
		TimeoutSeconds: *in.TimeoutSeconds,
	}
	if err := h.store.Create(ctx, shared.CollectionChecks, id, &check); err != nil {
		h.logger.Error("create check", "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not create the check")}
	}

	user.Checks = append(user.Checks, id)
	if err := h.store.Update(ctx, shared.CollectionUsers, user.Phone, &user); err != nil {
		// compensate: do not leave an orphaned check behind
		if derr := h.store.Delete(ctx, shared.CollectionChecks, id); derr != nil {
			h.logger.Error("compensating check delete", "check_id", id, "error", derr)
		}
		h.logger.Error("link check to user", "phone", user.Phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not link the check to the user")}
	}
	return &Response{Body: check}
}

func (h *CheckHandlers) read(ctx context.Context, req *Request) *Response {
	id := trimmed(req.Query.Get("id"))
	if id == "" {
		return invalidInput(fieldErrors{"id": "required"})
	}
	var check shared.Check
	if err := h.store.Read(ctx, shared.CollectionChecks, id, &check); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such check")}
		}
		h.logger.Error("read check", "check_id", id, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the check")}
	}
	if !h.tokens.Verify(ctx, req.Token(), check.UserPhone) {
		return forbidden()
	}
	return &Response{Body: check}
}

// update patches any subset of the five check fields. Unlike create, the
// request fails only when no valid field was supplied at all.
func (h *CheckHandlers) update(ctx context.Context, req *Request) *Response {
	id := trimmed(req.Query.Get("id"))
	if id == "" {
		return invalidInput(fieldErrors{"id": "required"})
	}
	var in checkInput
	if !req.Decode(&in) {
		return missingPayload()
	}

	fields := fieldErrors{}
	valid := 0
	if in.Protocol != nil {
		if validProtocol(*in.Protocol) {
			valid++
		} else {
			fields.add("protocol", "must be http or https")
		}
	}
	if in.URL != nil {
		if trimmed(*in.URL) != "" {
			valid++
		} else {
			fields.add("url", "must not be empty")
		}
	}
	if in.Method != nil {
		if validCheckMethod(*in.Method) {
			valid++
		} else {
			fields.add("method", "must be one of post, get, put, delete")
		}
	}
	if in.SuccessCodes != nil {
		if validSuccessCodes(in.SuccessCodes) {
			valid++
		} else {
			fields.add("successCodes", "at least one status code is required")
		}
	}
	if in.TimeoutSeconds != nil {
		if validTimeout(*in.TimeoutSeconds) {
			valid++
		} else {
			fields.add("timeoutSeconds", "must be an integer between 1 and 5")
		}
	}
	if valid == 0 {
		return invalidInput(fields)
	}

	var check shared.Check
	if err := h.store.Read(ctx, shared.CollectionChecks, id, &check); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such check")}
		}
		h.logger.Error("read check", "check_id", id, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the check")}
	}
	if !h.tokens.Verify(ctx, req.Token(), check.UserPhone) {
		return forbidden()
	}

	if in.Protocol != nil && validProtocol(*in.Protocol) {
		check.Protocol = *in.Protocol
	}
	if in.URL != nil && trimmed(*in.URL) != "" {
		check.URL = trimmed(*in.URL)
	}
	if in.Method != nil && validCheckMethod(*in.Method) {
		check.Method = *in.Method
	}
	if in.SuccessCodes != nil && validSuccessCodes(in.SuccessCodes) {
		check.SuccessCodes = in.SuccessCodes
	}
	if in.TimeoutSeconds != nil && validTimeout(*in.TimeoutSeconds) {
		check.TimeoutSeconds = *in.TimeoutSeconds
	}
	if err := h.store.Update(ctx, shared.CollectionChecks, id, &check); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such check")}
		}
		h.logger.Error("update check", "check_id", id, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not update the check")}
	}
	return &Response{Body: check}
}

// delete removes the check record and then unlinks it from the owner's
// list. A check missing from that list is an integrity failure, reported
// distinctly from a plain store failure.
func (h *CheckHandlers) delete(ctx context.Context, req *Request) *Response {
	id := trimmed(req.Query.Get("id"))
	if id == "" {
		return invalidInput(fieldErrors{"id": "required"})
	}
	var check shared.Check
	if err := h.store.Read(ctx, shared.CollectionChecks, id, &check); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such check")}
		}
		h.logger.Error("read check", "check_id", id, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not read the check")}
	}
	if !h.tokens.Verify(ctx, req.Token(), check.UserPhone) {
		return forbidden()
	}

	if err := h.store.Delete(ctx, shared.CollectionChecks, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Response{Status: http.StatusNotFound, Body: errorBody("no such check")}
		}
		h.logger.Error("delete check", "check_id", id, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("could not delete the check")}
	}

	var user shared.User
	if err := h.store.Read(ctx, shared.CollectionUsers, check.UserPhone, &user); err != nil {
		h.logger.Error("read check owner", "check_id", id, "phone", check.UserPhone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("the check was deleted but its owner could not be read")}
	}
	pos := slices.Index(user.Checks, id)
	if pos == -1 {
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("the check was missing from its owner's check list")}
	}
	user.Checks = slices.Delete(user.Checks, pos, pos+1)
	if err := h.store.Update(ctx, shared.CollectionUsers, user.Phone, &user); err != nil {
		h.logger.Error("unlink check from user", "check_id", id, "phone", user.Phone, "error", err)
		return &Response{Status: http.StatusInternalServerError, Body: errorBody("the check was deleted but could not be removed from its owner's list")}
	}
	return &Response{}
}
