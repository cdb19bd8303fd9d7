/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package gate is the top-level listener orchestrator: it owns the
// Catalog snapshot, wires the Loader, Authenticator and Persister
// together, and implements catalog_load/catalog_refresh/
// catalog_authenticate/catalog_save/catalog_load_from for the proxy.
package gate

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/sync/singleflight"

	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/authenticator"
	"github.com/sealdb/authgate/catalog"
	"github.com/sealdb/authgate/config"
	"github.com/sealdb/authgate/errs"
	"github.com/sealdb/authgate/loader"
	"github.com/sealdb/authgate/metrics"
	"github.com/sealdb/authgate/persist"
)

// Stats summarizes the current snapshot for the admin API and logs.
type Stats struct {
	Rows           int
	Databases      int
	LastRefresh    time.Time
	LastRefreshErr string
}

// Gate owns one Catalog for one listener, plus the configuration and
// collaborators needed to (re)populate it.
type Gate struct {
	log  *xlog.Log
	conf *config.Config

	cat      *catalog.Catalog
	auth     *authenticator.Authenticator
	dialer   loader.BackendDialer
	shutdown chan struct{}

	// swapMu serializes ReplaceAll calls; it is held only across the
	// pointer swap, never during backend I/O, per the concurrency model.
	swapMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats

	// refreshGroup coalesces a ticker-driven Refresh with a concurrent
	// admin-triggered one into a single backend load.
	refreshGroup singleflight.Group

	// sessions counts connections admitted by BeginSession but not yet
	// released by EndSession, per the teacher proxy's SessionCheck.
	sessions int64
}

// New builds a Gate from conf. dialer is the backend query capability
// (loader.Client in production, a fake in tests).
func New(log *xlog.Log, conf *config.Config, dialer loader.BackendDialer) *Gate {
	cat := catalog.New()
	auth := authenticator.New(cat, &net.Resolver{}, log, conf.Catalog.HostnameFallback, conf.Catalog.DNSLookupsPerSecond)
	return &Gate{
		log:      log,
		conf:     conf,
		cat:      cat,
		auth:     auth,
		dialer:   dialer,
		shutdown: make(chan struct{}),
	}
}

// Catalog exposes the Gate's snapshot container, for the admin API.
func (g *Gate) Catalog() *catalog.Catalog { return g.cat }

// Close signals the shutdown flag the Loader checks between backend
// attempts. A load already running against one backend is not
// interrupted; its rows are built in full.
func (g *Gate) Close() {
	close(g.shutdown)
}

// Load is the first load on listener start: if a persistence file exists
// it is loaded first so the gate can authenticate before any backend is
// reachable, then a normal Refresh is attempted. A Refresh failure at this
// point (no backend configured yet, or none reachable) is not fatal when a
// persisted snapshot already primed the catalog: the gate still has
// something to authenticate against, so the error is logged, not returned.
func (g *Gate) Load(ctx context.Context) (int, error) {
	primed := false
	if path := g.conf.Catalog.PersistPath; path != "" {
		if rows, databases, err := persist.Load(path); err != nil {
			g.log.Warning("gate.persist.load.path[%s].error:%+v", path, err)
		} else {
			g.swapMu.Lock()
			err := g.cat.ReplaceAll(rows, databases)
			g.swapMu.Unlock()
			if err != nil {
				g.log.Error("gate.persist.load.replace.error:%+v", err)
			} else {
				g.log.Info("gate.persist.load.path[%s].rows[%d]", path, len(rows))
				primed = true
			}
		}
	}

	n, err := g.Refresh(ctx)
	if err != nil && primed {
		g.log.Warning("gate.load.refresh.error.serving.persisted.snapshot:%+v", err)
		return len(g.cat.Dump()), nil
	}
	return n, err
}

// Refresh re-runs the Loader against the configured backends and, on
// success, swaps in the new Catalog and persists it. Concurrent callers
// (the refresh ticker racing an admin-triggered refresh) share one
// in-flight load rather than hitting the backend twice.
func (g *Gate) Refresh(ctx context.Context) (int, error) {
	reqID := uuid.NewV4().String()
	v, err, shared := g.refreshGroup.Do("refresh", func() (interface{}, error) {
		return g.doRefresh(ctx, reqID)
	})
	if shared {
		g.log.Info("gate.refresh.req[%s].joined.inflight.load", reqID)
	}
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (g *Gate) doRefresh(ctx context.Context, reqID string) (int, error) {
	backends := make([]loader.BackendConfig, len(g.conf.Backend))
	for i, b := range g.conf.Backend {
		backends[i] = loader.BackendConfig{Address: b.Address, User: b.User, Password: b.Password}
	}
	timeouts := loader.Timeouts{
		Connect: g.conf.Catalog.ConnectTimeout(),
		Read:    g.conf.Catalog.ReadTimeout(),
		Write:   g.conf.Catalog.WriteTimeout(),
	}
	opts := loader.ServiceOptions{
		SkipPermissionChecks: g.conf.Catalog.SkipPermissionChecks,
		StripDBEsc:           g.conf.Catalog.StripDBEsc,
		EnableRoot:           g.conf.Catalog.EnableRoot,
		UsersFromAll:         g.conf.Catalog.UsersFromAll,
	}

	result, err := loader.LoadAll(ctx, g.log, g.dialer, backends, timeouts, opts, g.shutdown)
	if err != nil {
		metrics.ReloadTotal.WithLabelValues("error").Inc()
		g.recordRefresh(0, 0, err)
		return 0, errors.Trace(err)
	}

	g.swapMu.Lock()
	swapErr := g.cat.ReplaceAll(result.Rows, result.Databases)
	g.swapMu.Unlock()
	if swapErr != nil {
		metrics.ReloadTotal.WithLabelValues("error").Inc()
		g.recordRefresh(0, 0, swapErr)
		return 0, errors.Trace(swapErr)
	}

	metrics.ReloadTotal.WithLabelValues("ok").Inc()
	metrics.CatalogRows.Set(float64(len(result.Rows)))
	metrics.CatalogDatabases.Set(float64(len(result.Databases)))
	g.recordRefresh(len(result.Rows), len(result.Databases), nil)
	g.log.Info("gate.refresh.req[%s].rows[%d].databases[%d]", reqID, len(result.Rows), len(result.Databases))

	if path := g.conf.Catalog.PersistPath; path != "" {
		if err := persist.Save(path, g.cat.Dump(), g.cat.Databases()); err != nil {
			g.log.Error("gate.persist.save.path[%s].error:%+v", path, errs.New(errs.PersistenceIO, err))
		}
	}

	return len(result.Rows), nil
}

func (g *Gate) recordRefresh(rows, databases int, err error) {
	g.statsMu.Lock()
	defer g.statsMu.Unlock()
	g.stats.LastRefresh = time.Now()
	if err != nil {
		g.stats.LastRefreshErr = err.Error()
		return
	}
	g.stats.Rows = rows
	g.stats.Databases = databases
	g.stats.LastRefreshErr = ""
}

// Authenticate runs one login attempt against the current snapshot.
func (g *Gate) Authenticate(ctx context.Context, req authenticator.Request) authenticator.Result {
	res := g.auth.Authenticate(ctx, req)
	metrics.AuthTotal.WithLabelValues(res.Outcome.String()).Inc()
	return res
}

// AuthenticateSQL runs Authenticate and maps the outcome to the
// sqldb.SQLError the proxy layer writes back to the client, so a caller at
// the wire boundary doesn't have to re-derive the outcome-to-error-code
// mapping itself. err is nil iff res.Outcome == authenticator.Ok.
func (g *Gate) AuthenticateSQL(ctx context.Context, req authenticator.Request) (authenticator.Result, error) {
	res := g.Authenticate(ctx, req)
	return res, sqlError(res, req)
}

// BeginSession admits one new connection against the configured
// max-connections ceiling, returning a sqldb.SQLError (ER_CON_COUNT_ERROR)
// when the ceiling is already reached. Every successful BeginSession must
// be matched by a later EndSession.
func (g *Gate) BeginSession() error {
	max := int64(g.conf.Proxy.MaxConns())
	if atomic.AddInt64(&g.sessions, 1) > max {
		atomic.AddInt64(&g.sessions, -1)
		return tooManyConnectionsError(int(max))
	}
	return nil
}

// EndSession releases one connection admitted by BeginSession.
func (g *Gate) EndSession() {
	atomic.AddInt64(&g.sessions, -1)
}

// Save serializes the current snapshot to an explicit path, independent
// of the configured persist path (catalog_save).
func (g *Gate) Save(path string) error {
	return persist.Save(path, g.cat.Dump(), g.cat.Databases())
}

// LoadFrom loads a snapshot from an explicit path and replaces the
// current Catalog contents with it (catalog_load_from).
func (g *Gate) LoadFrom(path string) error {
	rows, databases, err := persist.Load(path)
	if err != nil {
		return errors.Trace(err)
	}
	g.swapMu.Lock()
	defer g.swapMu.Unlock()
	return g.cat.ReplaceAll(rows, databases)
}

// Stats reports row/database counts and last-refresh metadata.
func (g *Gate) Stats() Stats {
	g.statsMu.Lock()
	defer g.statsMu.Unlock()
	return g.stats
}

// Config exposes the active configuration, for the admin API's configz.
func (g *Gate) Config() *config.Config { return g.conf }
