// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package assembler

import (
	"testing"
	"time"

	"github.com/ClusterCockpit/meterdecode/pkg/dlms"
	"github.com/ClusterCockpit/meterdecode/pkg/obis"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

func TestAssembleProfileRecordWithStatus(t *testing.T) {
	ts := time.Date(2023, 7, 10, 19, 30, 0, 0, time.UTC)
	reading, ok := Assemble(Record{
		VendorHex: "0100010800FF",
		RawValue:  1930,
		FieldType: dlms.FieldUInt32,
		Timestamp: ts,
		Status:    dlms.DecodeStatusByte(0x00),
		MeterID:   "METER-1",
	})
	if !ok {
		t.Fatal("expected assembled=true")
	}
	if reading.Value != 1.930 {
		t.Errorf("value = %v, want 1.930", reading.Value)
	}
	if reading.Unit != schema.UnitKWh {
		t.Errorf("unit = %v", reading.Unit)
	}
	if reading.ChannelID != obis.ChannelActiveImport15Min {
		t.Errorf("channel id = %s", reading.ChannelID)
	}
	if reading.Quality != schema.QualityGood {
		t.Errorf("quality = %v", reading.Quality)
	}
}

func TestAssembleInvalidDataDropped(t *testing.T) {
	_, ok := Assemble(Record{
		VendorHex: "0100010800FF",
		RawValue:  1930,
		FieldType: dlms.FieldUInt32,
		Timestamp: time.Now(),
		Status:    dlms.DecodeStatusByte(0x02),
	})
	if ok {
		t.Fatal("expected invalid_data record to be dropped")
	}
}

func TestAssembleVoltageScaling(t *testing.T) {
	reading, ok := Assemble(Record{
		VendorHex: "0100201800FF",
		RawValue:  2301,
		FieldType: dlms.FieldUInt16,
		Timestamp: time.Now(),
	})
	if !ok {
		t.Fatal("expected assembled=true")
	}
	if reading.Value != 230.1 {
		t.Errorf("value = %v, want 230.1", reading.Value)
	}
	if reading.Unit != schema.UnitVolt {
		t.Errorf("unit = %v", reading.Unit)
	}
}

func TestAssembleUnmappedCodeFallsBackToUnknown(t *testing.T) {
	reading, ok := Assemble(Record{
		VendorHex: "DEADBEEF0000",
		RawValue:  42,
		FieldType: dlms.FieldUInt32,
		Timestamp: time.Now(),
	})
	if !ok {
		t.Fatal("expected assembled=true even for an unmapped code")
	}
	if reading.Unit != schema.UnitKWh {
		t.Errorf("unit = %v, want the unknown-unit default (treated as energy)", reading.Unit)
	}
}
