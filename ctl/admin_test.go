/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package ctl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/config"
	"github.com/sealdb/authgate/gate"
	"github.com/sealdb/authgate/loader"
)

type noopDialer struct{}

func (noopDialer) Dial(ctx context.Context, cfg loader.BackendConfig, timeouts loader.Timeouts) (loader.BackendConn, error) {
	return nil, fmt.Errorf("no backend configured")
}

func TestAdminStartStop(t *testing.T) {
	log := xlog.NewStdLog(xlog.Level(xlog.PANIC))
	g := gate.New(log, &config.Config{}, noopDialer{})
	defer g.Close()

	admin, err := NewAdmin(log, g, "127.0.0.1:0")
	assert.Nil(t, err)
	admin.Start()
	defer admin.Stop()

	time.Sleep(50 * time.Millisecond)
}
