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
	"github.com/ant0ine/go-json-rest/rest"
	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/gate"
)

// ConfigzHandler impl.
func ConfigzHandler(log *xlog.Log, g *gate.Gate) rest.HandlerFunc {
	f := func(w rest.ResponseWriter, r *rest.Request) {
		configzHandler(log, g, w, r)
	}
	return f
}

func configzHandler(log *xlog.Log, g *gate.Gate, w rest.ResponseWriter, r *rest.Request) {
	w.WriteJson(g.Config())
}
