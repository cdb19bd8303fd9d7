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
	"testing"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/ant0ine/go-json-rest/rest/test"
)

func TestCtlV1Configz(t *testing.T) {
	log := testLog()
	g := testGate()
	defer g.Close()

	api := rest.NewApi()
	router, _ := rest.MakeRouter(
		rest.Get("/v1/authgate/configz", ConfigzHandler(log, g)),
	)
	api.SetApp(router)
	handler := api.MakeHandler()

	recorded := test.RunRequest(t, handler, test.MakeSimpleRequest("GET", "http://localhost/v1/authgate/configz", nil))
	recorded.CodeIs(200)
}
