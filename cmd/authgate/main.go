/*
 * authgate
 *
 * Copyright 2018 The Radon Authors.
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/config"
	"github.com/sealdb/authgate/ctl"
	"github.com/sealdb/authgate/gate"
	"github.com/sealdb/authgate/loader"
	"github.com/sealdb/authgate/version"
)

var flagConf string

func init() {
	flag.StringVar(&flagConf, "c", "", "authgate config file")
	flag.StringVar(&flagConf, "config", "", "authgate config file")
}

func usage() {
	fmt.Println("Usage: " + os.Args[0] + " [-c|--config] <authgate-config-file>")
}

func levelFromString(s string) string {
	switch s {
	case "DEBUG":
		return "DEBUG"
	case "WARNING":
		return "WARNING"
	case "ERROR":
		return "ERROR"
	case "PANIC":
		return "PANIC"
	default:
		return "INFO"
	}
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	log := xlog.NewStdLog(xlog.Level(xlog.DEBUG))

	fmt.Println(*version.GetBanner())
	fmt.Printf("version: [%+v]\n", version.GetVersion())

	flag.Usage = func() { usage() }
	flag.Parse()
	if flagConf == "" {
		usage()
		os.Exit(0)
	}

	conf, err := config.LoadConfig(flagConf)
	if err != nil {
		log.Panic("authgate.load.config.error[%v]", err)
	}
	log.SetLevel(levelFromString(conf.Log.Level))

	g := gate.New(log, conf, loader.Client{})
	if n, err := g.Load(context.Background()); err != nil {
		log.Warning("authgate.catalog.initial.load.error:%+v", err)
	} else {
		log.Info("authgate.catalog.initial.load.rows[%d]", n)
	}

	stop := startRefreshLoop(log, g, conf.Catalog.RefreshInterval())
	defer close(stop)

	admin, err := ctl.NewAdmin(log, g, conf.Admin.Address)
	if err != nil {
		log.Panic("authgate.admin.start.error[%v]", err)
	}
	admin.Start()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	log.Info("authgate.signal:%+v", <-ch)

	admin.Stop()
	g.Close()
}

// startRefreshLoop runs Refresh on a ticker until the returned channel is
// closed.
func startRefreshLoop(log *xlog.Log, g *gate.Gate, interval time.Duration) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := g.Refresh(context.Background()); err != nil {
					log.Error("authgate.catalog.refresh.error:%+v", err)
				} else {
					log.Info("authgate.catalog.refresh.rows[%d]", n)
				}
			case <-stop:
				return
			}
		}
	}()
	return stop
}
