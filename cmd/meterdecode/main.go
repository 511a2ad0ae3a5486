// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command meterdecode decodes a single meter-data file and prints its
// FileResult as JSON. Flag-parsing idiom follows cmd/cc-backend's
// flat flag.*Var block.
package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/ClusterCockpit/meterdecode/pkg/decoder"
	"github.com/ClusterCockpit/meterdecode/pkg/log"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

func main() {
	var flagSourceTZHint string
	var flagPretty bool
	flag.StringVar(&flagSourceTZHint, "source-tz", "", "Hint for the source file's timestamp timezone (passed in DecodeOptions, not used to convert timestamps)")
	flag.BoolVar(&flagPretty, "pretty", true, "Pretty-print the JSON output")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: meterdecode [flags] <path-to-meter-file>")
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %s", path, err.Error())
	}

	result, err := decoder.Decode(path, data, schema.DecodeOptions{SourceTZHint: flagSourceTZHint})
	if err != nil {
		log.Fatalf("decoding %s: %s", path, err.Error())
	}

	enc := json.NewEncoder(os.Stdout)
	if flagPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		log.Fatalf("writing output: %s", err.Error())
	}

	if !result.Success {
		os.Exit(1)
	}
}
