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
	"context"
	"testing"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/ant0ine/go-json-rest/rest/test"
	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/config"
	"github.com/sealdb/authgate/gate"
	"github.com/sealdb/authgate/loader"
)

type noopDialer struct{}

func (noopDialer) Dial(ctx context.Context, cfg loader.BackendConfig, timeouts loader.Timeouts) (loader.BackendConn, error) {
	return nil, errNoBackend
}

type pingTestErr string

func (e pingTestErr) Error() string { return string(e) }

const errNoBackend = pingTestErr("no backend configured")

func testLog() *xlog.Log {
	return xlog.NewStdLog(xlog.Level(xlog.PANIC))
}

func testGate() *gate.Gate {
	return gate.New(testLog(), &config.Config{}, noopDialer{})
}

func TestCtlV1Ping(t *testing.T) {
	log := testLog()
	g := testGate()
	defer g.Close()

	api := rest.NewApi()
	router, _ := rest.MakeRouter(
		rest.Get("/v1/authgate/ping", PingHandler(log, g)),
	)
	api.SetApp(router)
	handler := api.MakeHandler()

	recorded := test.RunRequest(t, handler, test.MakeSimpleRequest("GET", "http://localhost/v1/authgate/ping", nil))
	recorded.CodeIs(200)
}

func TestCtlV1PingMethodNotAllowed(t *testing.T) {
	log := testLog()
	g := testGate()
	defer g.Close()

	api := rest.NewApi()
	router, _ := rest.MakeRouter(
		rest.Get("/v1/authgate/ping", PingHandler(log, g)),
	)
	api.SetApp(router)
	handler := api.MakeHandler()

	recorded := test.RunRequest(t, handler, test.MakeSimpleRequest("POST", "http://localhost/v1/authgate/ping", nil))
	recorded.CodeIs(405)
}
