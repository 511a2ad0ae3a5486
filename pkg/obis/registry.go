// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package obis is the process-wide OBIS-code registry: a read-only,
// bidirectional lookup between IEC 62056-61 codes (dotted or vendor-hex
// form) and the canonical channel identifiers used downstream.
package obis

import (
	"strings"
	"sync"

	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

// Canonical channel ids for the default registry layout. The 1.8.0
// register (vendor hex 0100010800FF) is used both as a billing-values
// point-in-time total and as the capture_objects slot for the 15-minute
// load-profile buffer; a vendor export ties the vendor-hex code directly
// to the interval channel id, so the registry keeps a single canonical
// id for it rather than splitting hairs between the two contexts.
const (
	ChannelActiveImport15Min = "0.0.4.1.15.1.12.0.0.0.0.2.0.0.0.0.73.0"
	ChannelActiveExportTotal = "1.0.2.8.0.255"
	ChannelReactiveQ1Total   = "1.0.5.8.0.255"
	ChannelReactiveQ2Total   = "1.0.6.8.0.255"
	ChannelReactiveQ3Total   = "1.0.7.8.0.255"
	ChannelReactiveQ4Total   = "1.0.8.8.0.255"
	ChannelVoltageL1         = "1.0.32.7.0.255"
	ChannelCurrentL1         = "1.0.31.7.0.255"
	ChannelFrequency         = "1.0.14.7.0.255"
)

// entry pairs the static registry row with its source-format keys so the
// three indices (dotted, vendor-hex, canonical) can be built from one table.
type entry struct {
	schema.OBISEntry
}

// baseTable is the single source of truth for the registry, loaded once at
// init time. Nothing outside this file ever mutates it.
var baseTable = []entry{
	{schema.OBISEntry{
		DottedCode: "1-0:1.8.0", VendorHex: "0100010800FF",
		ChannelID: ChannelActiveImport15Min, Label: "Active energy import total",
		Unit: schema.UnitKWh, Energy: schema.EnergyActive, Direction: "import",
		Validation: schema.ValidCorrect,
	}},
	{schema.OBISEntry{
		DottedCode: "1-0:2.8.0", VendorHex: "0100020800FF",
		ChannelID: ChannelActiveExportTotal, Label: "Active energy export total",
		Unit: schema.UnitKWh, Energy: schema.EnergyActive, Direction: "export",
		Validation: schema.ValidCorrect,
	}},
	// The source devices print these four reactive registers shifted
	// by one quadrant (their Q2 is actually Q1, etc.). The registry
	// keeps the physically-correct mapping and flags the mislabel; the
	// display label stays as printed by the device.
	{schema.OBISEntry{
		DottedCode: "1-0:5.8.0", VendorHex: "0100050800FF",
		ChannelID: ChannelReactiveQ1Total, Label: "Reactive energy Q2 total",
		Unit: schema.UnitKvarh, Energy: schema.EnergyReactive, Direction: "Q1",
		Validation: schema.ValidWarning,
		Comment:    "device prints this register as Q2; registry maps it to the physically correct Q1",
	}},
	{schema.OBISEntry{
		DottedCode: "1-0:6.8.0", VendorHex: "0100060800FF",
		ChannelID: ChannelReactiveQ2Total, Label: "Reactive energy Q3 total",
		Unit: schema.UnitKvarh, Energy: schema.EnergyReactive, Direction: "Q2",
		Validation: schema.ValidWarning,
		Comment:    "device prints this register as Q3; registry maps it to the physically correct Q2",
	}},
	{schema.OBISEntry{
		DottedCode: "1-0:7.8.0", VendorHex: "0100070800FF",
		ChannelID: ChannelReactiveQ3Total, Label: "Reactive energy Q4 total",
		Unit: schema.UnitKvarh, Energy: schema.EnergyReactive, Direction: "Q3",
		Validation: schema.ValidWarning,
		Comment:    "device prints this register as Q4; registry maps it to the physically correct Q3",
	}},
	{schema.OBISEntry{
		DottedCode: "1-0:8.8.0", VendorHex: "0100080800FF",
		ChannelID: ChannelReactiveQ4Total, Label: "Reactive energy Q1 total",
		Unit: schema.UnitKvarh, Energy: schema.EnergyReactive, Direction: "Q4",
		Validation: schema.ValidWarning,
		Comment:    "device prints this register as Q1; registry maps it to the physically correct Q4",
	}},
	{schema.OBISEntry{
		DottedCode: "1-0:32.7.0", VendorHex: "0100201800FF",
		ChannelID: ChannelVoltageL1, Label: "Voltage L1",
		Unit: schema.UnitVolt, Energy: schema.EnergyQuality,
		Validation: schema.ValidCorrect,
	}},
	{schema.OBISEntry{
		DottedCode: "1-0:31.7.0", VendorHex: "0100200700FF",
		ChannelID: ChannelCurrentL1, Label: "Current L1",
		Unit: schema.UnitAmp, Energy: schema.EnergyQuality,
		Validation: schema.ValidCorrect,
	}},
	{schema.OBISEntry{
		DottedCode: "1-0:14.7.0", VendorHex: "01000E0700FF",
		ChannelID: ChannelFrequency, Label: "Frequency",
		Unit: schema.UnitHz, Energy: schema.EnergyQuality,
		Validation: schema.ValidCorrect,
	}},
	{schema.OBISEntry{
		VendorHex: "0000010000FF",
		ChannelID: "clock", Label: "Clock",
		Unit: schema.UnitUnknown, Validation: schema.ValidCorrect,
	}},
	{schema.OBISEntry{
		VendorHex: "0000600A01FF",
		ChannelID: "status", Label: "Status word",
		Unit: schema.UnitUnknown, Validation: schema.ValidCorrect,
	}},
}

var (
	once       sync.Once
	byDotted   map[string]schema.OBISEntry
	byVendor   map[string]schema.OBISEntry
	byChannel  map[string]schema.OBISEntry
	overlayMu  sync.RWMutex
	overlay    []schema.OBISEntry
)

func build() {
	byDotted = make(map[string]schema.OBISEntry, len(baseTable))
	byVendor = make(map[string]schema.OBISEntry, len(baseTable))
	byChannel = make(map[string]schema.OBISEntry, len(baseTable))
	for _, e := range baseTable {
		index(e.OBISEntry)
	}
}

func index(e schema.OBISEntry) {
	if e.DottedCode != "" {
		byDotted[e.DottedCode] = e
	}
	if e.VendorHex != "" {
		byVendor[strings.ToUpper(e.VendorHex)] = e
	}
	if e.ChannelID != "" {
		byChannel[e.ChannelID] = e
	}
}

func ensureInit() {
	once.Do(build)
}

// LookupVendorHex resolves a 6-byte vendor-hex OBIS code (e.g.
// "0100010800FF"). The comparison is case-insensitive. Returns false if
// the code is not registered.
func LookupVendorHex(code string) (schema.OBISEntry, bool) {
	ensureInit()
	overlayMu.RLock()
	defer overlayMu.RUnlock()
	e, ok := byVendor[strings.ToUpper(code)]
	return e, ok
}

// LookupDotted resolves a standard dotted OBIS code (e.g. "1-0:1.8.0").
func LookupDotted(code string) (schema.OBISEntry, bool) {
	ensureInit()
	overlayMu.RLock()
	defer overlayMu.RUnlock()
	e, ok := byDotted[code]
	return e, ok
}

// Describe returns the registry row for a canonical channel id, or the
// unknown-sentinel entry (schema.UnknownEntry) if unmapped.
func Describe(channelID string) schema.OBISEntry {
	ensureInit()
	overlayMu.RLock()
	defer overlayMu.RUnlock()
	if e, ok := byChannel[channelID]; ok {
		return e
	}
	return schema.UnknownEntry(channelID)
}

// DescribeVendorHex resolves a vendor-hex OBIS code the way the layout
// resolver and reading assembler need: a direct registry hit first,
// then the one documented wildcard rule, then the unknown sentinel. This
// is the only place wildcard resolution and registry lookup are combined.
func DescribeVendorHex(vendorHex string) schema.OBISEntry {
	if e, ok := LookupVendorHex(vendorHex); ok {
		return e
	}
	if e, ok := ResolveWildcard(vendorHex); ok {
		return e
	}
	return schema.UnknownEntry(vendorHex)
}

// loadProfileSlotPrefix/Suffix match the one documented wildcard rule:
// any load-profile slot OBIS code of the form 010063XX00FF that is not
// otherwise in the registry.
var loadProfileSlotPrefix = "010063"
var loadProfileSlotSuffix = "00FF"

// ResolveWildcard applies the single documented wildcard rule: an
// unregistered load-profile slot code 010063XX00FF maps to the canonical
// active-import 15-minute channel. Returns false for anything else —
// this is the *only* inference the registry performs beyond its static
// table; it never guesses beyond the registry and this one wildcard.
func ResolveWildcard(vendorHex string) (schema.OBISEntry, bool) {
	code := strings.ToUpper(vendorHex)
	if len(code) != 12 {
		return schema.OBISEntry{}, false
	}
	if !strings.HasPrefix(code, loadProfileSlotPrefix) || !strings.HasSuffix(code, loadProfileSlotSuffix) {
		return schema.OBISEntry{}, false
	}
	return schema.OBISEntry{
		VendorHex:  code,
		ChannelID:  ChannelActiveImport15Min,
		Label:      "Active energy import, 15 min interval (wildcard)",
		Unit:       schema.UnitKWh,
		Energy:     schema.EnergyActive,
		Direction:  "import",
		Validation: schema.ValidWarning,
		Comment:    "resolved via the load-profile slot wildcard rule, not a direct registry hit",
	}, true
}

// MergeOverlay adds caller-supplied registry rows (pkg/config, schema-
// validated against registry-overlay.schema.json) into the lookup tables.
// This is explicit caller-supplied data, not inference, so it stays
// within the registry's "no guessing beyond the static table and the
// one wildcard rule" boundary.
func MergeOverlay(entries []schema.OBISEntry) {
	ensureInit()
	overlayMu.Lock()
	defer overlayMu.Unlock()
	for i := range entries {
		if entries[i].Validation == "" {
			entries[i].Validation = schema.ValidCorrect
		}
	}
	overlay = append(overlay, entries...)
	for _, e := range entries {
		index(e)
	}
}
