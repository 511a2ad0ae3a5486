// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

// EnergyClass classifies the physical quantity an OBIS channel measures.
type EnergyClass string

const (
	EnergyActive   EnergyClass = "active"
	EnergyReactive EnergyClass = "reactive"
	EnergyApparent EnergyClass = "apparent"
	EnergyQuality  EnergyClass = "quality" // voltage/current/frequency, not an energy quantity proper
)

// ValidationTag records how much the registry trusts a mapping.
type ValidationTag string

const (
	ValidCorrect ValidationTag = "correct"
	ValidWarning ValidationTag = "warning"
	ValidError   ValidationTag = "error"
	ValidUnknown ValidationTag = "unknown"
)

// OBISEntry is one row of the process-wide OBIS registry. Rows are
// immutable and constructed once at startup; none are ever mutated.
type OBISEntry struct {
	DottedCode string      `json:"dotted_code,omitempty"`
	VendorHex  string      `json:"vendor_hex,omitempty"`
	ChannelID  string      `json:"channel_id"`
	Label      string      `json:"label"`
	Unit       Unit        `json:"unit"`
	Energy     EnergyClass `json:"energy_class,omitempty"`
	Direction  string      `json:"direction,omitempty"` // e.g. "import", "Q1".."Q4"
	Validation ValidationTag `json:"validation"`
	Comment    string      `json:"comment,omitempty"`
}

// UnknownEntry builds the sentinel OBISEntry returned by lookups that miss
// the registry. The raw source code becomes the label so the system stays
// self-describing instead of silently dropping unrecognized channels.
func UnknownEntry(rawCode string) OBISEntry {
	return OBISEntry{
		ChannelID:  rawCode,
		Label:      rawCode,
		Unit:       UnitUnknown,
		Validation: ValidUnknown,
	}
}
