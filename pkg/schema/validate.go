// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/ClusterCockpit/meterdecode/pkg/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Kind int

const (
	// Config validates the daemon/CLI JSON config file (pkg/config).
	Config Kind = iota + 1
	// RegistryOverlay validates a caller-supplied supplemental OBIS
	// mapping file before it is merged into pkg/obis.
	RegistryOverlay
)

//go:embed schemas/*
var schemaFiles embed.FS

func Load(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	f := u.Path
	return schemaFiles.Open(f)
}

func init() {
	jsonschema.Loaders["embedFS"] = Load
}

func Validate(k Kind, r io.Reader) (err error) {
	var s *jsonschema.Schema

	switch k {
	case Config:
		s, err = jsonschema.Compile("embedFS://schemas/config.schema.json")
	case RegistryOverlay:
		s, err = jsonschema.Compile("embedFS://schemas/registry-overlay.schema.json")
	default:
		return fmt.Errorf("unkown schema kind ")
	}

	if err != nil {
		return err
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		log.Errorf("schema.Validate() - Failed to decode %v", err)
		return err
	}

	if err = s.Validate(v); err != nil {
		return fmt.Errorf("%#v", err)
	}

	return nil
}
