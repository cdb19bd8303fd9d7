/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package v1

import (
	"context"
	"net/http"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/gate"
)

// RefreshHandler impl.
func RefreshHandler(log *xlog.Log, g *gate.Gate) rest.HandlerFunc {
	f := func(w rest.ResponseWriter, r *rest.Request) {
		refreshHandler(log, g, w, r)
	}
	return f
}

func refreshHandler(log *xlog.Log, g *gate.Gate, w rest.ResponseWriter, r *rest.Request) {
	n, err := g.Refresh(context.Background())
	if err != nil {
		log.Error("api.v1.refresh.error:%+v", err)
		rest.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteJson(map[string]int{"rows": n})
}
