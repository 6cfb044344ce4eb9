// Package client assembles the client-side session runtime: the durable
// credential store, the HTTP identity client, the session state machine, and
// the background sync worker.
package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/konekta/identity/internal/core/domain"
	"github.com/konekta/identity/internal/core/ports"
	"github.com/konekta/identity/internal/core/service"
	"github.com/konekta/identity/internal/infrastructure/config"
	"github.com/konekta/identity/internal/infrastructure/db/sqlite"
	"github.com/konekta/identity/internal/infrastructure/remote"
)

// Runtime owns every moving part of a client session. Construct one per
// process with New, then drive it through Sessions and Router.
type Runtime struct {
	db       *sql.DB
	sessions ports.SessionService
	worker   *service.SyncWorker
	logger   zerolog.Logger
}

// New opens the local store and wires the session service against the remote
// identity service at cfg.APIBaseURL.
func New(cfg *config.ClientConfig, logger zerolog.Logger) (*Runtime, error) {
	db, err := sqlite.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	store := sqlite.NewCredentialStore(db)
	rc := remote.NewClient(cfg.APIBaseURL, 10*time.Second, logger)
	policy := domain.CredentialPolicy(cfg.CredentialPolicy)

	return &Runtime{
		db:       db,
		sessions: service.NewSessionService(store, rc, policy, logger),
		worker:   service.NewSyncWorker(store, rc, time.Duration(cfg.SyncIntervalSec)*time.Second, logger),
		logger:   logger,
	}, nil
}

// Sessions exposes the session state machine.
func (r *Runtime) Sessions() ports.SessionService {
	return r.sessions
}

// StartSync launches the background flush of records mutated while offline.
// It stops when ctx is cancelled.
func (r *Runtime) StartSync(ctx context.Context) {
	r.worker.Start(ctx)
}

// Route returns the destination the current session should land on.
func (r *Runtime) Route(ctx context.Context) service.Destination {
	sess, err := r.sessions.Current(ctx)
	if err != nil {
		return service.DestLogin
	}
	return service.RouteSession(sess)
}

// Close releases the local store.
func (r *Runtime) Close() error {
	return r.db.Close()
}
