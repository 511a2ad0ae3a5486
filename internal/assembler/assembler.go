// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package assembler is a pure combinator that turns one decoded record
// into a MeterReading, applying unit scaling and status-word quality
// mapping. No state, no I/O; the XML parser's billing-value and
// profile-buffer paths funnel their per-record decode through it, while
// the tabular and spreadsheet parsers build their readings directly.
package assembler

import (
	"time"

	"github.com/ClusterCockpit/meterdecode/pkg/dlms"
	"github.com/ClusterCockpit/meterdecode/pkg/obis"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
	"github.com/ClusterCockpit/meterdecode/pkg/units"
)

// Record is the raw material the assembler turns into a MeterReading: one
// value slot of one decoded record, with its registry OBIS code, its
// wire field type, and the status byte governing the whole record.
type Record struct {
	VendorHex string
	RawValue  int64
	FieldType dlms.FieldType
	Timestamp time.Time
	Status    schema.StatusFlags
	MeterID   string
}

// Assemble turns a decoded record into a MeterReading. It returns
// ok=false if the record's status marks it invalid_data: such records
// are dropped entirely rather than emitted with a degraded quality.
func Assemble(r Record) (reading schema.MeterReading, ok bool) {
	if r.Status.InvalidData {
		return schema.MeterReading{}, false
	}

	entry := obis.DescribeVendorHex(r.VendorHex)
	value, unit, err := units.ResolveWithOverride(r.VendorHex, entry.Unit, r.FieldType, r.RawValue)
	if err != nil {
		value, unit = units.Resolve(entry.Unit, r.FieldType, r.RawValue)
	}

	return schema.MeterReading{
		Timestamp: r.Timestamp,
		Value:     value,
		ChannelID: entry.ChannelID,
		Unit:      unit,
		Quality:   r.Status.Quality(),
		MeterID:   r.MeterID,
	}, true
}
