/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package v1

import (
	"path/filepath"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/gate"
	"github.com/sealdb/authgate/xbase"
)

// catalogzResult is the JSON body returned by GET /v1/authgate/catalogz.
type catalogzResult struct {
	Rows           int    `json:"rows"`
	Databases      int    `json:"databases"`
	LastRefresh    string `json:"last_refresh"`
	LastRefreshErr string `json:"last_refresh_error,omitempty"`

	// PersistDiskFree/PersistDiskAll report the capacity of the filesystem
	// holding the persisted snapshot, omitted when no persist path is
	// configured or the statfs call fails.
	PersistDiskFree uint64 `json:"persist_disk_free_bytes,omitempty"`
	PersistDiskAll  uint64 `json:"persist_disk_all_bytes,omitempty"`
}

// CatalogzHandler impl.
func CatalogzHandler(log *xlog.Log, g *gate.Gate) rest.HandlerFunc {
	f := func(w rest.ResponseWriter, r *rest.Request) {
		catalogzHandler(log, g, w, r)
	}
	return f
}

func catalogzHandler(log *xlog.Log, g *gate.Gate, w rest.ResponseWriter, r *rest.Request) {
	stats := g.Stats()
	result := &catalogzResult{
		Rows:           stats.Rows,
		Databases:      stats.Databases,
		LastRefresh:    stats.LastRefresh.Format("2006-01-02T15:04:05Z07:00"),
		LastRefreshErr: stats.LastRefreshErr,
	}

	if path := g.Config().Catalog.PersistPath; path != "" {
		if usage, err := xbase.DiskUsage(filepath.Dir(path)); err != nil {
			log.Warning("api.v1.catalogz.disk_usage.path[%s].error:%+v", path, err)
		} else {
			result.PersistDiskFree = usage.Free
			result.PersistDiskAll = usage.All
		}
	}

	w.WriteJson(result)
}
