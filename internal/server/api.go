package server

import (
	"context"
	"log/slog"

	"upcheck/internal/auth"
	"upcheck/internal/shared"
	"upcheck/internal/storage"
)

// API bundles the handler groups, constructed once at startup.
type API struct {
	Users  *UserHandlers
	Tokens *TokenHandlers
	Checks *CheckHandlers
	logger *slog.Logger
}

func NewAPI(store storage.Store, tokens *auth.Service, cfg *shared.Config, logger *slog.Logger) *API {
	return &API{
		Users: &UserHandlers{
			store:  store,
			tokens: tokens,
			secret: cfg.HashingSecret,
			logger: logger,
		},
		Tokens: &TokenHandlers{
			store:  store,
			tokens: tokens,
			secret: cfg.HashingSecret,
			logger: logger,
		},
		Checks: &CheckHandlers{
			store:     store,
			tokens:    tokens,
			maxChecks: cfg.MaxChecks,
			logger:    logger,
		},
		logger: logger,
	}
}

// Dispatcher builds the routing table over the handler groups.
func (a *API) Dispatcher() *Dispatcher {
	d := NewDispatcher(a.logger)
	d.Route("ping", HandlerFunc(func(ctx context.Context, req *Request) *Response {
		return &Response{}
	}))
	d.Route("users", a.Users)
	d.Route("tokens", a.Tokens)
	d.Route("checks", a.Checks)
	return d
}
