/*
 * authgate
 *
 * Copyright 2018 The Radon Authors.
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package ctl wires the ctl/v1 handlers onto an HTTP server, the admin
// portal the proxy process starts alongside the listener.
package ctl

import (
	"context"
	"net/http"
	"time"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/sealdb/mysqlstack/xlog"

	v1 "github.com/sealdb/authgate/ctl/v1"
	"github.com/sealdb/authgate/gate"
)

// Admin is the small HTTP surface exposing ping, catalog_refresh, catalog
// stats and the active config to operators.
type Admin struct {
	log *xlog.Log
	srv *http.Server
}

// NewAdmin builds the admin portal bound to addr, wiring every ctl/v1
// handler to g.
func NewAdmin(log *xlog.Log, g *gate.Gate, addr string) (*Admin, error) {
	api := rest.NewApi()
	router, err := rest.MakeRouter(
		rest.Get("/v1/authgate/ping", v1.PingHandler(log, g)),
		rest.Get("/v1/authgate/catalogz", v1.CatalogzHandler(log, g)),
		rest.Get("/v1/authgate/configz", v1.ConfigzHandler(log, g)),
		rest.Post("/v1/authgate/refresh", v1.RefreshHandler(log, g)),
	)
	if err != nil {
		return nil, err
	}
	api.SetApp(router)

	return &Admin{
		log: log,
		srv: &http.Server{Addr: addr, Handler: api.MakeHandler()},
	}, nil
}

// Start runs the admin HTTP server in a background goroutine; a bind or
// listen error is logged, not returned, so a failed admin bind never
// blocks the listener itself from starting.
func (a *Admin) Start() {
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("ctl.admin.listen.error:%+v", err)
		}
	}()
}

// Stop gracefully shuts the admin server down, bounded by a short timeout
// so it never blocks process exit indefinitely.
func (a *Admin) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Error("ctl.admin.shutdown.error:%+v", err)
	}
}
