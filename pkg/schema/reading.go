// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "time"

// Unit is the canonical physical unit of a MeterReading's value.
type Unit string

const (
	UnitKWh  Unit = "kWh"
	UnitKvarh Unit = "kvarh"
	UnitKVAh Unit = "kVAh"
	UnitVolt Unit = "V"
	UnitAmp  Unit = "A"
	UnitHz   Unit = "Hz"
	// UnitUnknown marks a reading whose registry unit could not be
	// resolved; callers should not persist readings carrying it.
	UnitUnknown Unit = "?"
)

// Quality tags the confidence of a single sample.
type Quality string

const (
	QualityGood                 Quality = "good"
	QualityDegradedPowerFailure Quality = "degraded-power-failure"
	QualityClockAdjusted        Quality = "clock-adjusted"
	QualityInvalid              Quality = "invalid"
)

// MeterReading is an immutable, fully-resolved sample of one channel of
// one meter at one instant. Produced by internal/assembler on the XML
// path and built directly by the tabular and spreadsheet parsers; never
// mutated after creation.
type MeterReading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	ChannelID string    `json:"channel_id"`
	Unit      Unit      `json:"unit"`
	Quality   Quality   `json:"quality"`
	MeterID   string    `json:"meter_id"`
}
