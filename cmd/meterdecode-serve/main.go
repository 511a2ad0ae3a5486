// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command meterdecode-serve is the decoder daemon: it watches a
// directory for new meter-data files, decodes and audits each one, and
// exposes an operations HTTP surface. Startup sequencing (gops agent,
// config load, signal-driven graceful shutdown) follows cmd/cc-backend's
// main.go.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/ClusterCockpit/meterdecode/internal/ops"
	"github.com/ClusterCockpit/meterdecode/internal/scheduler"
	"github.com/ClusterCockpit/meterdecode/pkg/config"
	"github.com/ClusterCockpit/meterdecode/pkg/ledger"
	"github.com/ClusterCockpit/meterdecode/pkg/log"
	"github.com/ClusterCockpit/meterdecode/pkg/obis"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
	"github.com/ClusterCockpit/meterdecode/pkg/store"
	"github.com/ClusterCockpit/meterdecode/pkg/units"
)

func main() {
	var flagConfigFile string
	var flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the global config options by those specified in `config.json`")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("loading config: %s", err.Error())
	}

	if config.Keys.RegistryOverlay != "" {
		if err := loadRegistryOverlay(config.Keys.RegistryOverlay); err != nil {
			log.Fatalf("loading registry overlay: %s", err.Error())
		}
	}
	for vendorHex, exprSrc := range config.Keys.UnitOverrides {
		if err := units.SetOverride(vendorHex, exprSrc); err != nil {
			log.Fatalf("compiling unit override for %s: %s", vendorHex, err.Error())
		}
	}

	led, err := ledger.Open(config.Keys.LedgerPath)
	if err != nil {
		log.Fatalf("opening ledger: %s", err.Error())
	}
	defer led.Close()

	st, err := store.Open(config.Keys.StoreDSN)
	if err != nil {
		log.Fatalf("opening store: %s", err.Error())
	}
	defer st.Close()

	interval, err := time.ParseDuration(config.Keys.WatchInterval)
	if err != nil {
		log.Fatalf("parsing watch-interval %q: %s", config.Keys.WatchInterval, err.Error())
	}

	sched, err := scheduler.New(config.Keys.WatchDir, config.Keys.DefaultOptions, led, st)
	if err != nil {
		log.Fatalf("building scheduler: %s", err.Error())
	}
	if config.Keys.WatchDir != "" {
		if err := sched.Start(interval); err != nil {
			log.Fatalf("starting scheduler: %s", err.Error())
		}
	} else {
		log.Info("watch-dir not configured; scheduler idle, ops server still available")
	}

	opsServer := ops.New(config.Keys.OpsAddr, config.Keys.DefaultOptions)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := opsServer.Serve(); err != nil {
			log.Fatal(err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")

	if err := sched.Shutdown(); err != nil {
		log.Warnf("scheduler shutdown: %s", err.Error())
	}
	if err := opsServer.Shutdown(); err != nil {
		log.Warnf("ops server shutdown: %s", err.Error())
	}

	wg.Wait()
	log.Print("graceful shutdown completed")
}

// registryOverlayDoc mirrors registry-overlay.schema.json: a flat list
// of supplemental OBIS rows merged into pkg/obis's registry at startup.
type registryOverlayDoc struct {
	Entries []schema.OBISEntry `json:"entries"`
}

func loadRegistryOverlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := schema.Validate(schema.RegistryOverlay, bytes.NewReader(raw)); err != nil {
		return err
	}
	var doc registryOverlayDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	obis.MergeOverlay(doc.Entries)
	log.Infof("merged %d registry overlay entries from %s", len(doc.Entries), path)
	return nil
}
