// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

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
	if len(args) < 1 || len(args) > 2 {
		log.Fatal("usage: consumer <server-url> [station-id]")
	}
	serverURL := args[0]
	var stationID string
	if len(args) == 2 {
		stationID = args[1]
	}

	consumer := &wxclient.Consumer{
		Client:    http.DefaultClient,
		Clock:     &lamport.Clock{},
		ServerURL: wxclient.NormalizeBaseURL(serverURL),
		StationID: stationID,
	}

	rec, ok, err := consumer.Fetch(context.Background())
	if err != nil {
		log.Fatalf("consumer: %s", err.Error())
	}
	if !ok {
		fmt.Println("no data")
		os.Exit(0)
	}

	fmt.Print(wxclient.PrettyPrint(rec))
}
