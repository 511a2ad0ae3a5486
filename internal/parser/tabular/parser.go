// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package tabular

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ClusterCockpit/meterdecode/pkg/obis"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

var obisHeaderRe = regexp.MustCompile(`\d+-\d+:\d+\.\d+\.\d+`)

// Row is one assembled (obis dotted code, raw numeric value) pair lifted
// positionally from a data line, ready to be handed to the assembler.
type Row struct {
	Timestamp time.Time
	Values    map[string]float64 // dotted OBIS code -> value
}

// Parse decodes a semicolon-separated tabular meter export: identifier
// line, OBIS header line, timestamped data rows. It never returns a
// partial success/fatal mix: a structural failure (too few lines, empty
// identifier, missing OBIS header) returns a non-nil error and no rows;
// decoding the bytes never fails (see decodeBytes); row-level
// problems are reported through warn and the row is otherwise skipped.
func Parse(raw []byte, warn func(string)) (meterID string, header []string, rows []Row, err error) {
	text := decodeBytes(raw)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	// Trim a single trailing blank line produced by a terminal newline.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) < 3 {
		return "", nil, nil, fmt.Errorf("tabular file has fewer than three lines")
	}

	meterID = strings.TrimSpace(lines[0])
	if meterID == "" {
		return "", nil, nil, fmt.Errorf("tabular file has an empty meter identifier")
	}

	header = obisHeaderRe.FindAllString(lines[2], -1)
	if len(header) == 0 {
		return "", nil, nil, fmt.Errorf("tabular file header line has no OBIS codes")
	}

	for i, line := range lines[3:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		ts, terr := time.ParseInLocation("02/01/2006 15:04:05", strings.TrimSpace(fields[0]), time.UTC)
		if terr != nil {
			warn(fmt.Sprintf("tabular row %d: malformed timestamp %q", i+4, fields[0]))
			continue
		}

		values := make(map[string]float64, len(header))
		for col, code := range header {
			idx := col + 1
			if idx >= len(fields) {
				continue
			}
			numStr := strings.ReplaceAll(strings.TrimSpace(fields[idx]), ",", ".")
			if numStr == "" {
				continue
			}
			v, nerr := strconv.ParseFloat(numStr, 64)
			if nerr != nil {
				warn(fmt.Sprintf("tabular row %d: non-numeric value %q for %s", i+4, fields[idx], code))
				continue
			}
			if _, ok := obis.LookupDotted(code); !ok {
				warn(fmt.Sprintf("tabular row %d: unmapped OBIS code %s", i+4, code))
				continue
			}
			values[code] = v
		}

		rows = append(rows, Row{Timestamp: ts, Values: values})
	}

	return meterID, header, rows, nil
}

// BuildReadings converts parsed rows into MeterReadings by resolving each
// dotted OBIS code through the registry. Tabular cells are already
// human-scaled decimal numbers (no DLMS field type, no status byte), so
// unit scaling and status-word mapping do not apply here; internal/
// assembler's combinator is for the DLMS-encoded XML path, which does
// carry raw scalars and a status byte.
func BuildReadings(meterID string, rows []Row, opts schema.DecodeOptions) []schema.MeterReading {
	if meterID == "" {
		meterID = opts.ForcedMeterID
	}
	var out []schema.MeterReading
	for _, row := range rows {
		for code, v := range row.Values {
			entry, ok := obis.LookupDotted(code)
			if !ok {
				continue
			}
			out = append(out, schema.MeterReading{
				Timestamp: row.Timestamp,
				Value:     v,
				ChannelID: entry.ChannelID,
				Unit:      entry.Unit,
				Quality:   schema.QualityGood,
				MeterID:   meterID,
			})
		}
	}
	return out
}
