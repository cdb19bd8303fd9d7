/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package metrics exports the Prometheus collectors the Gate updates on
// every reload and every authentication attempt.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CatalogRows is the number of grant rows held by the current snapshot.
	CatalogRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authgate_catalog_rows",
		Help: "Number of grant rows in the current catalog snapshot.",
	})

	// CatalogDatabases is the number of known database names in the
	// current snapshot.
	CatalogDatabases = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authgate_catalog_databases",
		Help: "Number of known database names in the current catalog snapshot.",
	})

	// ReloadTotal counts Loader passes by result: "ok" or "error".
	ReloadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_reload_total",
		Help: "Number of catalog reload attempts, by result.",
	}, []string{"result"})

	// AuthTotal counts authentication attempts by outcome: "ok",
	// "bad_password", "unknown_user", "no_such_database".
	AuthTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_auth_total",
		Help: "Number of authentication attempts, by outcome.",
	}, []string{"result"})

	// ReverseDNSFallbackTotal counts how many authentication attempts fell
	// through to the reverse-DNS hostname retry.
	ReverseDNSFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authgate_reverse_dns_fallback_total",
		Help: "Number of authentication attempts that retried via reverse DNS.",
	})
)

func init() {
	prometheus.MustRegister(CatalogRows)
	prometheus.MustRegister(CatalogDatabases)
	prometheus.MustRegister(ReloadTotal)
	prometheus.MustRegister(AuthTotal)
	prometheus.MustRegister(ReverseDNSFallbackTotal)
}
