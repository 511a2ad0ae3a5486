// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package xmldesc

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ClusterCockpit/meterdecode/internal/assembler"
	"github.com/ClusterCockpit/meterdecode/pkg/dlms"
	"github.com/ClusterCockpit/meterdecode/pkg/obis"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

// FileKind is the DDSubset attribute of the top DDs element.
type FileKind string

const (
	KindBillingValues FileKind = "BillingValues"
	KindLoadProfile   FileKind = "LoadProfile"
	KindProfileBuffer FileKind = "ProfileBuffer"
	KindOther         FileKind = "other"
)

const energyRegisterClassID = "3"
const selectorResponseSuffix = ".buffer.Selector1.Response"

// Parse walks the device-description tree and returns the meter id, every
// MeterReading it can assemble, and the channels_count figure; warnings
// are reported through warn as they arise.
// A structural XML failure is the only file-level fatal condition this
// component can raise.
func Parse(raw []byte, opts schema.DecodeOptions, warn func(string)) (meterID string, readings []schema.MeterReading, channelsCount int, err error) {
	var doc document
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", nil, 0, fmt.Errorf("xml not well-formed: %w", err)
	}

	meterID = extractMeterID(doc.DDs)
	if meterID == "" {
		meterID = opts.ForcedMeterID
	}

	fileTime := extractFileTimestamp(doc.DDs, warn)

	// Billing values are always attempted, regardless of DDSubset: profile
	// files routinely carry point-in-time registers too.
	readings = append(readings, extractBillingValues(doc.DDs, meterID, fileTime, warn)...)

	bufferReadings, maxChannels := extractProfileBuffers(doc.DDs, meterID, warn)
	readings = append(readings, bufferReadings...)

	return meterID, readings, maxChannels, nil
}

func extractMeterID(dds ddsElement) string {
	if dds.MAPInfos != nil && strings.TrimSpace(dds.MAPInfos.DDID) != "" {
		return strings.TrimSpace(dds.MAPInfos.DDID)
	}
	return strings.TrimSpace(dds.DDID)
}

func extractFileTimestamp(dds ddsElement, warn func(string)) time.Time {
	raw := dds.ModificationDateTime
	if raw == "" {
		raw = dds.CreationDateTime
	}
	if raw == "" {
		warn("xml file carries no Modification/CreationDateTime, defaulting to zero time")
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Extended ISO 8601 without full RFC3339 strictness (e.g. no
		// timezone or comma fractional seconds).
		t, err = time.Parse("2006-01-02T15:04:05", raw)
	}
	if err != nil {
		warn(fmt.Sprintf("unparseable file timestamp %q: %v", raw, err))
		return time.Time{}
	}
	return t.UTC()
}

func extractBillingValues(dds ddsElement, meterID string, fileTime time.Time, warn func(string)) []schema.MeterReading {
	var out []schema.MeterReading
	for _, obj := range dds.Objects {
		if _, ok := obis.LookupVendorHex(obj.ObjectLogicalName); !ok || obj.ClassID != energyRegisterClassID {
			continue
		}
		for _, attr := range obj.Attributes {
			want1 := obj.ObjectName + ".value"
			want2 := obj.ObjectName + ".CurrentValue"
			if attr.AttributeName != want1 && attr.AttributeName != want2 {
				continue
			}
			for _, f := range attr.Fields {
				if !strings.HasSuffix(f.FieldName, ".0") {
					continue
				}
				raw, ok, err := dlms.DecodeScalar(dlms.FieldType(f.FieldType), f.FieldValue)
				if err != nil {
					warn(fmt.Sprintf("billing value %s: %v", f.FieldName, err))
					continue
				}
				if !ok {
					continue
				}
				reading, assembled := assembler.Assemble(assembler.Record{
					VendorHex: obj.ObjectLogicalName,
					RawValue:  raw,
					FieldType: dlms.FieldType(f.FieldType),
					Timestamp: fileTime,
					MeterID:   meterID,
				})
				if assembled {
					out = append(out, reading)
				}
			}
		}
	}
	return out
}

func extractProfileBuffers(dds ddsElement, meterID string, warn func(string)) (readings []schema.MeterReading, maxChannels int) {
	for _, obj := range dds.Objects {
		bufferAttrName := obj.ObjectName + ".buffer"
		var bufferAttr *attributesEl
		var captureFields []fieldEl
		for i := range obj.Attributes {
			a := &obj.Attributes[i]
			if a.AttributeName == bufferAttrName {
				bufferAttr = a
			}
			if strings.HasSuffix(a.AttributeName, ".capture_objects") {
				captureFields = a.Fields
			}
		}
		if bufferAttr == nil {
			continue
		}

		layout := ResolveCaptureLayout(captureFields, warn)
		if slots := len(layout.ValueSlots()); slots > maxChannels {
			maxChannels = slots
		}

		idx := buildFieldIndex(bufferAttr.Fields)

		rowParent := bufferAttrName
		selectorDialect := false
		for _, f := range bufferAttr.Fields {
			if strings.HasSuffix(f.FieldName, selectorResponseSuffix) {
				selectorDialect = true
				break
			}
		}
		if selectorDialect {
			rowParent = obj.ObjectName + selectorResponseSuffix
		}

		rows := idx[rowParent]
		for _, row := range rows {
			reading, ok := assembleProfileRow(row, idx, layout, meterID, warn)
			readings = append(readings, reading...)
			_ = ok
		}
	}
	return readings, maxChannels
}

// assembleProfileRow decodes one Struct row of a profile buffer.
func assembleProfileRow(row fieldEl, idx fieldIndex, layout schema.CaptureLayout, meterID string, warn func(string)) ([]schema.MeterReading, bool) {
	children := idx[row.FieldName]
	if len(children) == 0 {
		return nil, false
	}

	var ts time.Time
	var status schema.StatusFlags
	haveTS, haveStatus := false, false
	type valueCell struct {
		index     int
		raw       int64
		fieldType string
	}
	var values []valueCell

	for _, c := range children {
		seg := lastSegment(c.FieldName)
		idxNum, err := strconv.Atoi(seg)
		if err != nil {
			warn(fmt.Sprintf("profile buffer field %s has a non-numeric index segment", c.FieldName))
			continue
		}
		switch idxNum {
		case schema.CaptureIndexClock:
			t, terr := dlms.DecodeDateTime(c.FieldValue)
			if terr != nil {
				warn(terr.Error())
				return nil, false
			}
			ts = t
			haveTS = true
		case schema.CaptureIndexStatus:
			raw, ok, serr := dlms.DecodeScalar(dlms.FieldType(c.FieldType), c.FieldValue)
			if serr != nil {
				warn(serr.Error())
				continue
			}
			if ok {
				status = dlms.DecodeStatusByte(byte(raw))
				haveStatus = true
			}
		default:
			raw, ok, verr := dlms.DecodeScalar(dlms.FieldType(c.FieldType), c.FieldValue)
			if verr != nil {
				warn(verr.Error())
				continue
			}
			if !ok {
				continue
			}
			values = append(values, valueCell{index: idxNum, raw: raw, fieldType: c.FieldType})
		}
	}

	if !haveTS {
		warn(fmt.Sprintf("profile row %s missing a clock field, skipped", row.FieldName))
		return nil, false
	}
	if haveStatus && status.InvalidData {
		warn(fmt.Sprintf("profile row %s has invalid_data set, skipped", row.FieldName))
		return nil, false
	}

	var out []schema.MeterReading
	for _, v := range values {
		code, ok := layout[v.index]
		if !ok {
			continue
		}
		if entry := obis.DescribeVendorHex(code); entry.Validation == schema.ValidUnknown {
			warn(fmt.Sprintf("profile row %s: unmapped OBIS code %s at index %d", row.FieldName, code, v.index))
			continue
		}
		reading, assembled := assembler.Assemble(assembler.Record{
			VendorHex: code,
			RawValue:  v.raw,
			FieldType: dlms.FieldType(v.fieldType),
			Timestamp: ts,
			Status:    status,
			MeterID:   meterID,
		})
		if assembled {
			out = append(out, reading)
		}
	}
	return out, true
}
