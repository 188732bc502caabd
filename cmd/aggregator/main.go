// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/weathermesh/wxfabric/internal/backup"
	"github.com/weathermesh/wxfabric/internal/config"
	"github.com/weathermesh/wxfabric/internal/httpapi"
	"github.com/weathermesh/wxfabric/internal/lamport"
	"github.com/weathermesh/wxfabric/internal/persistence"
	"github.com/weathermesh/wxfabric/internal/scheduler"
	"github.com/weathermesh/wxfabric/internal/wxstore"
	"github.com/weathermesh/wxfabric/pkg/log"
)

func main() {
	var flagGops bool
	var flagConfigFile, flagLogLevel string
	var flagLogDate bool
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagConfigFile, "config", config.DefaultPath, "Path to the aggregator's config file")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of debug, info, warn, err, crit")
	flag.BoolVar(&flagLogDate, "logdate", false, "Prefix log lines with date/time")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)
	log.SetLogDateTime(flagLogDate)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	explicitConfig := flagConfigFile != config.DefaultPath
	cfg, err := config.Load(flagConfigFile, explicitConfig)
	if err != nil {
		log.Fatal(err)
	}

	addr := cfg.Addr
	if port := flag.Arg(0); port != "" {
		if p, err := strconv.Atoi(port); err != nil {
			log.Warnf("argument %q is not a valid port, using %s instead", port, addr)
		} else {
			addr = fmt.Sprintf(":%d", p)
		}
	}

	sweepInterval, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		log.Warnf("sweepInterval %q is not a valid duration, using 1s instead", cfg.SweepInterval)
		sweepInterval = time.Second
	}

	bk, err := backup.New(cfg.Backup)
	if err != nil {
		log.Fatal(err)
	}

	clock := &lamport.Clock{}
	store := wxstore.New(clock, cfg.MaxStations, int64(cfg.ExpiryMs))

	if err := persistence.Load(store, cfg.PersistFile); err != nil {
		log.Warnf("loading persisted state from %s failed, starting with an empty store: %s", cfg.PersistFile, err.Error())
	}

	api := &httpapi.API{
		Store:       store,
		Clock:       clock,
		PersistPath: cfg.PersistFile,
		Backup:      bk,
		Ready:       true,
	}

	sched, err := scheduler.New(store, sweepInterval, func() error {
		_, err := persistence.Flush(store, cfg.PersistFile)
		if err != nil {
			return err
		}
		bk.UploadBestEffort(cfg.PersistFile)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	sched.Start()

	handler := httpapi.NewRouter(api)
	server := http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      handler,
		Addr:         addr,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	log.Infof("aggregator listening at %s...", addr)

	wg.Add(1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer wg.Done()
		<-sigs
		log.Info("shutting down")

		server.Shutdown(context.Background())

		if err := sched.Shutdown(); err != nil {
			log.Warnf("scheduler shutdown: %s", err.Error())
		}

		if _, err := persistence.Flush(store, cfg.PersistFile); err != nil {
			log.Warnf("final persistence flush failed: %s", err.Error())
		}
	}()

	wg.Wait()
	log.Print("Graceful shutdown completed!")
}
