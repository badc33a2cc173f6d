// Package worker periodically probes every stored check and alerts owners
// by SMS when a check changes state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"upcheck/internal/notify"
	"upcheck/internal/shared"
	"upcheck/internal/storage"
)

// alertTimeout bounds a single fire-and-forget SMS delivery.
const alertTimeout = 10 * time.Second

type Worker struct {
	store    storage.Store
	notifier notify.Sender
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

func New(store storage.Store, notifier notify.Sender, logger *slog.Logger, interval time.Duration) *Worker {
	return &Worker{
		store:    store,
		notifier: notifier,
		logger:   logger,
		interval: interval,
		// per-probe timeouts come from each check via context
		client: &http.Client{},
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", "interval", w.interval)
	w.sweep(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	keys, err := w.store.List(ctx, shared.CollectionChecks)
	if err != nil {
		w.logger.Error("list checks", "error", err)
		return
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		var check shared.Check
		if err := w.store.Read(ctx, shared.CollectionChecks, key, &check); err != nil {
			w.logger.Warn("skip unreadable check", "check_id", key, "error", err)
			continue
		}
		// a check whose owner is gone is an inert orphan, never probed
		var owner shared.User
		if err := w.store.Read(ctx, shared.CollectionUsers, check.UserPhone, &owner); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				w.logger.Warn("skip orphaned check", "check_id", key, "phone", check.UserPhone)
			} else {
				w.logger.Warn("skip check, owner unreadable", "check_id", key, "error", err)
			}
			continue
		}
		w.perform(ctx, &check)
	}
}

// perform probes the check, persists the judged state, and alerts the owner
// on a transition. The very first probe records state silently.
func (w *Worker) perform(ctx context.Context, check *shared.Check) {
	state := shared.StateDown
	if w.probe(ctx, check) {
		state = shared.StateUp
	}

	transitioned := !check.LastChecked.IsZero() && check.State != state
	check.State = state
	check.LastChecked = time.Now()
	if err := w.store.Update(ctx, shared.CollectionChecks, check.ID, check); err != nil {
		w.logger.Error("persist check state", "check_id", check.ID, "error", err)
		return
	}
	if transitioned {
		// fire-and-forget: alerting must not block the sweep
		go w.alert(*check)
	}
}

func (w *Worker) probe(ctx context.Context, check *shared.Check) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(check.TimeoutSeconds)*time.Second)
	defer cancel()

	target := fmt.Sprintf("%s://%s", check.Protocol, check.URL)
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(check.Method), target, nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return slices.Contains(check.SuccessCodes, resp.StatusCode)
}

func (w *Worker) alert(check shared.Check) {
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()

	msg := fmt.Sprintf("Alert: your check for %s %s://%s is currently %s",
		strings.ToUpper(check.Method), check.Protocol, check.URL, check.State)
	if err := w.notifier.Send(ctx, check.UserPhone, msg); err != nil {
		w.logger.Warn("send alert", "check_id", check.ID, "phone", check.UserPhone, "error", err)
		return
	}
	w.logger.Info("alert sent", "check_id", check.ID, "state", check.State)
}
