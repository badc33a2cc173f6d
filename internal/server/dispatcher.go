package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxBodyBytes caps inbound payloads.
const maxBodyBytes = 1 << 20

// Request is the normalized form every handler receives: trimmed path,
// lowered method, headers, parsed query, and a best-effort JSON payload.
type Request struct {
	Path    string
	Method  string
	Headers http.Header
	Query   url.Values
	// Payload is nil when the body was empty or not valid JSON; handlers
	// reject missing or malformed shapes themselves.
	Payload json.RawMessage
}

// Token returns the authentication token header, if any.
func (r *Request) Token() string {
	return r.Headers.Get("token")
}

// Decode unmarshals the payload into out. False means there was no usable
// payload.
func (r *Request) Decode(out any) bool {
	if r.Payload == nil {
		return false
	}
	return json.Unmarshal(r.Payload, out) == nil
}

// Response is what a handler returns: a status code and an optional body.
// A zero status defaults to 200 and a nil body to an empty object before
// encoding.
type Response struct {
	Status int
	Body   any
}

// Handler handles one routed path, dispatching on the lowered verb itself.
type Handler interface {
	Handle(ctx context.Context, req *Request) *Response
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) *Response

func (f HandlerFunc) Handle(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

// Dispatcher resolves normalized requests against a static path table and
// encodes handler results as JSON responses.
type Dispatcher struct {
	routes map[string]Handler
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{routes: map[string]Handler{}, logger: logger}
}

// Route registers a handler for a path. Paths are matched after trimming
// leading and trailing slashes.
func (d *Dispatcher) Route(path string, h Handler) {
	d.routes[strings.Trim(path, "/")] = h
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()

	req := &Request{
		Path:    strings.Trim(r.URL.Path, "/"),
		Method:  strings.ToLower(r.Method),
		Headers: r.Header,
		Query:   r.URL.Query(),
	}
	if body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes)); err == nil && len(body) > 0 && json.Valid(body) {
		req.Payload = body
	}
	r.Body.Close()

	var resp *Response
	if handler, ok := d.routes[req.Path]; ok {
		resp = handler.Handle(r.Context(), req)
	} else {
		resp = &Response{Status: http.StatusNotFound}
	}

	status := http.StatusOK
	if resp != nil && resp.Status >= 100 {
		status = resp.Status
	}
	var body any = struct{}{}
	if resp != nil && resp.Body != nil {
		body = resp.Body
	}
	writeJSON(w, status, body)

	d.logger.Info("request",
		"request_id", requestID,
		"method", req.Method,
		"path", req.Path,
		"status", status,
		"duration", time.Since(start),
	)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func methodNotAllowed() *Response {
	return &Response{Status: http.StatusMethodNotAllowed, Body: errorBody("method not allowed")}
}

func forbidden() *Response {
	return &Response{Status: http.StatusForbidden, Body: errorBody("missing or invalid token")}
}
