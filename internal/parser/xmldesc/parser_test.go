// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package xmldesc

import (
	"fmt"
	"testing"
	"time"

	"github.com/ClusterCockpit/meterdecode/pkg/dlms"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

func noopWarn(string) {}

func collectWarn(t *testing.T) (func(string), *[]string) {
	t.Helper()
	var warnings []string
	return func(msg string) { warnings = append(warnings, msg) }, &warnings
}

const billingFixture = `<?xml version="1.0"?>
<DeviceDescriptionDataSet xmlns="http://tempuri.org/DeviceDescriptionDataSet.xsd">
  <DDs DDID="METER-0001" DDSubset="BillingValues">
    <ModificationDateTime>2023-07-10T19:30:00</ModificationDateTime>
    <Objects ObjectLogicalName="0100010800FF" ObjectName="Object1" ClassID="3">
      <Attributes AttributeName="Object1.value">
        <Fields FieldName="Object1.value.0" FieldType="DoubleLongUnsigned" FieldValue="1E240" />
      </Attributes>
    </Objects>
  </DDs>
</DeviceDescriptionDataSet>`

func TestParseBillingValues(t *testing.T) {
	warn, warnings := collectWarn(t)
	meterID, readings, channels, err := Parse([]byte(billingFixture), schema.DecodeOptions{}, warn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meterID != "METER-0001" {
		t.Fatalf("meter id = %q", meterID)
	}
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d (warnings: %v)", len(readings), *warnings)
	}
	r := readings[0]
	if r.Value != 123.456 {
		t.Errorf("value = %v, want 123.456", r.Value)
	}
	if r.Unit != schema.UnitKWh {
		t.Errorf("unit = %v", r.Unit)
	}
	if r.Quality != schema.QualityGood {
		t.Errorf("quality = %v", r.Quality)
	}
	if channels != 0 {
		t.Errorf("channels = %d, want 0 (no profile buffer in this fixture)", channels)
	}
}

func buildProfileFixture(t *testing.T, clockHex string, statusValue string, energyHex string) string {
	t.Helper()
	return fmt.Sprintf(`<?xml version="1.0"?>
<DeviceDescriptionDataSet xmlns="http://tempuri.org/DeviceDescriptionDataSet.xsd">
  <DDs DDID="METER-0002" DDSubset="LoadProfile">
    <ModificationDateTime>2023-07-10T20:00:00</ModificationDateTime>
    <Objects ObjectLogicalName="0100630100FF" ObjectName="Object2" ClassID="7">
      <Attributes AttributeName="Object2.capture_objects">
        <Fields FieldName="Object2.capture_objects.0.logical_name" FieldType="OctetString" FieldValue="0000010000FF" />
        <Fields FieldName="Object2.capture_objects.1.logical_name" FieldType="OctetString" FieldValue="0000600A01FF" />
        <Fields FieldName="Object2.capture_objects.2.logical_name" FieldType="OctetString" FieldValue="0100010800FF" />
      </Attributes>
      <Attributes AttributeName="Object2.buffer">
        <Fields FieldName="Object2.buffer.1" FieldType="Structure" FieldValue="" />
        <Fields FieldName="Object2.buffer.1.0" FieldType="OctetString" FieldValue="%s" />
        <Fields FieldName="Object2.buffer.1.1" FieldType="UInt8" FieldValue="%s" />
        <Fields FieldName="Object2.buffer.1.2" FieldType="DoubleLongUnsigned" FieldValue="%s" />
      </Attributes>
    </Objects>
  </DDs>
</DeviceDescriptionDataSet>`, clockHex, statusValue, energyHex)
}

func TestParseProfileBuffer(t *testing.T) {
	clockHex := dlms.EncodeDateTime(time.Date(2023, 7, 10, 19, 30, 0, 0, time.UTC), 120, true)
	fixture := buildProfileFixture(t, clockHex, "0", "30D40") // 0x30D40 = 200000
	warn, warnings := collectWarn(t)

	meterID, readings, channels, err := Parse([]byte(fixture), schema.DecodeOptions{}, warn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meterID != "METER-0002" {
		t.Fatalf("meter id = %q", meterID)
	}
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d (warnings: %v)", len(readings), *warnings)
	}
	r := readings[0]
	if r.Value != 200.0 {
		t.Errorf("value = %v, want 200.0", r.Value)
	}
	if r.Quality != schema.QualityGood {
		t.Errorf("quality = %v", r.Quality)
	}
	if channels != 1 {
		t.Errorf("channels = %d, want 1", channels)
	}
}

func TestParseProfileBufferInvalidDataDropped(t *testing.T) {
	clockHex := dlms.EncodeDateTime(time.Date(2023, 7, 10, 19, 45, 0, 0, time.UTC), 120, false)
	fixture := buildProfileFixture(t, clockHex, "2", "30D40") // status bit 0x02 = invalid_data
	warn, warnings := collectWarn(t)

	_, readings, _, err := Parse([]byte(fixture), schema.DecodeOptions{}, warn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 0 {
		t.Fatalf("expected invalid_data row to be dropped, got %d readings", len(readings))
	}
	if len(*warnings) == 0 {
		t.Error("expected a warning about the dropped row")
	}
}

func TestParseMalformedXML(t *testing.T) {
	_, _, _, err := Parse([]byte("<not-xml"), schema.DecodeOptions{}, noopWarn)
	if err == nil {
		t.Fatal("expected an error for malformed xml")
	}
}

func TestParseMissingTimestampDefaultsButWarns(t *testing.T) {
	const fixture = `<?xml version="1.0"?>
<DeviceDescriptionDataSet xmlns="http://tempuri.org/DeviceDescriptionDataSet.xsd">
  <DDs DDID="METER-0003" DDSubset="BillingValues">
    <Objects ObjectLogicalName="0100010800FF" ObjectName="Object1" ClassID="3">
      <Attributes AttributeName="Object1.value">
        <Fields FieldName="Object1.value.0" FieldType="DoubleLongUnsigned" FieldValue="64" />
      </Attributes>
    </Objects>
  </DDs>
</DeviceDescriptionDataSet>`
	warn, warnings := collectWarn(t)
	_, readings, _, err := Parse([]byte(fixture), schema.DecodeOptions{}, warn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 1 || !readings[0].Timestamp.IsZero() {
		t.Fatalf("expected one reading with zero timestamp, got %+v", readings)
	}
	if len(*warnings) == 0 {
		t.Error("expected a warning about the missing timestamp")
	}
}
