// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/weathermesh/wxfabric/internal/lamport"
	"github.com/weathermesh/wxfabric/internal/wxclient"
	"github.com/weathermesh/wxfabric/pkg/log"
)

func main() {
	var flagLogLevel string
	var flagLogDate bool
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of debug, info, warn, err, crit")
	flag.BoolVar(&flagLogDate, "logdate", false, "Prefix log lines with date/time")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)
	log.SetLogDateTime(flagLogDate)

	args := flag.Args()
	if len(args) != 2 {
		log.Fatal("usage: producer <server-url> <file-path>")
	}
	serverURL, filePath := args[0], args[1]

	if _, err := wxclient.ParseReadingFile(filePath); err != nil {
		log.Fatalf("reading file %s: %s", filePath, err.Error())
	}

	producer := &wxclient.Producer{
		Client:     http.DefaultClient,
		Clock:      &lamport.Clock{},
		ServerURL:  wxclient.NormalizeBaseURL(serverURL),
		FilePath:   filePath,
		Iterations: -1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutting down")
		cancel()
	}()

	if err := producer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("producer stopped: %s", err.Error())
	}
}
