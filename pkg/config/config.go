// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the decoder daemon's configuration: a JSON file
// validated against schema.Config, preceded by loading an optional .env
// file into the process environment. No ProgramConfig field is read from
// the environment; every setting comes from the JSON file or the defaults.
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/ClusterCockpit/meterdecode/pkg/log"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
	"github.com/joho/godotenv"
)

// Keys is the process-wide configuration, populated by Init. Mirrors the
// dashboard daemon's `internal/config` package-var pattern.
var Keys = ProgramConfig{
	LogLevel:      "info",
	WatchInterval: "1m",
	StoreDSN:      "./var/meterdecode.db",
	OpsAddr:       ":8181",
	LedgerPath:    "./var/meterdecode.ledger",
}

// ProgramConfig mirrors schemas/config.schema.json field for field.
type ProgramConfig struct {
	LogLevel        string            `json:"log-level"`
	LogDateTime     bool              `json:"log-date-time"`
	WatchDir        string            `json:"watch-dir"`
	WatchInterval   string            `json:"watch-interval"`
	StoreDSN        string            `json:"store-dsn"`
	OpsAddr         string            `json:"ops-addr"`
	LedgerPath      string            `json:"ledger-path"`
	RegistryOverlay string            `json:"registry-overlay"`
	UnitOverrides   map[string]string `json:"unit-overrides"`
	DefaultOptions  schema.DecodeOptions `json:"default-options"`
}

// Init loads an optional .env file into the process environment (Keys is
// not populated from it), then reads and schema-validates flagConfigFile,
// decoding it on top of Keys' defaults. A missing config file is not an
// error — the defaults above are used as-is, the same way the dashboard
// daemon's `internal/config.Init` behaves for an absent config.
func Init(flagConfigFile string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("loading .env: %v", err)
	}

	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := schema.Validate(schema.Config, bytes.NewReader(raw)); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return err
	}

	log.SetLogLevel(Keys.LogLevel)
	log.SetLogDateTime(Keys.LogDateTime)
	return nil
}
