/*
 * authgate
 *
 * Copyright 2018 The Radon Authors.
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package v1

import (
	"net/http"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/gate"
)

// PingHandler impl. Liveness is "the current snapshot is non-nil" rather
// than a round-trip to a backend: the catalog is meant to serve
// authentications even while every backend is unreachable.
func PingHandler(log *xlog.Log, g *gate.Gate) rest.HandlerFunc {
	f := func(w rest.ResponseWriter, r *rest.Request) {
		pingHandler(log, g, w, r)
	}
	return f
}

func pingHandler(log *xlog.Log, g *gate.Gate, w rest.ResponseWriter, r *rest.Request) {
	if g.Catalog() == nil {
		log.Error("api.v1.ping.error:catalog.not.initialized")
		rest.Error(w, "catalog not initialized", http.StatusServiceUnavailable)
		return
	}
	w.WriteJson(map[string]string{"status": "ok"})
}
