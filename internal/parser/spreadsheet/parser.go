// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package spreadsheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ClusterCockpit/meterdecode/pkg/obis"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

// obisColumnSubstrings is the fixed set of OBIS fragments a value column's
// header is matched against.
var obisColumnSubstrings = []string{"1.8.0", "2.8.0", "5.8.0", "6.8.0"}

// excelEpoch is the day Excel's serial date 0 represents, already
// adjusted for the 1900-leap-year bug shared by every common spreadsheet
// writer.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Parse decodes a spreadsheet meter export. name is used only for
// diagnostics.
func Parse(name string, raw []byte, opts schema.DecodeOptions, warn func(string)) (schema.FileResult, error) {
	result := schema.FileResult{FileName: name, Success: true}

	sheets, err := readWorkbook(raw)
	if err != nil {
		result.Success = false
		result.AddError(err.Error())
		return result, nil
	}

	meterID := opts.ForcedMeterID
	channelSeen := map[string]bool{}

	recordWarn := func(msg string) {
		result.AddWarning(msg)
		if warn != nil {
			warn(msg)
		}
	}

	for _, sh := range sheets {
		readings, sheetMeterID, sheetErr := parseSheet(sh, recordWarn)
		if sheetErr != nil {
			result.AddError(fmt.Sprintf("sheet %q: %v", sh.name, sheetErr))
			continue
		}
		if meterID == "" {
			meterID = sheetMeterID
		}
		for _, r := range readings {
			r.MeterID = meterID
			result.Readings = append(result.Readings, r)
			channelSeen[r.ChannelID] = true
		}
	}

	if len(result.Readings) == 0 {
		recordWarn("no valid readings found in any sheet")
	}
	result.ChannelsCount = len(channelSeen)
	return result, nil
}

func parseSheet(sh sheet, warn func(string)) ([]schema.MeterReading, string, error) {
	if len(sh.rows) == 0 {
		return nil, "", nil
	}
	header := sh.rows[0]

	var dateCols, valueCols []int
	for i, h := range header {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "date") || strings.Contains(lower, "time") {
			dateCols = append(dateCols, i)
		}
		for _, frag := range obisColumnSubstrings {
			if strings.Contains(h, frag) {
				valueCols = append(valueCols, i)
				break
			}
		}
	}
	if len(dateCols) == 0 || len(valueCols) == 0 {
		return nil, "", nil
	}

	meterID := ""
	for _, r := range sh.rows[1:] {
		if len(r) > 0 && strings.TrimSpace(r[0]) != "" {
			meterID = strings.TrimSpace(r[0])
			break
		}
	}

	var out []schema.MeterReading
	for rowNum, row := range sh.rows[1:] {
		ts, ok := firstTimestamp(row, dateCols)
		if !ok {
			warn(fmt.Sprintf("sheet %q row %d: no parseable date/time cell, skipped", sh.name, rowNum+2))
			continue
		}
		for _, col := range valueCols {
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				warn(fmt.Sprintf("sheet %q row %d: non-numeric value %q", sh.name, rowNum+2, row[col]))
				continue
			}
			channelID, unit := columnChannel(header[col])
			out = append(out, schema.MeterReading{
				Timestamp: ts,
				Value:     value,
				ChannelID: channelID,
				Unit:      unit,
				Quality:   schema.QualityGood,
			})
		}
	}
	return out, meterID, nil
}

func firstTimestamp(row []string, dateCols []int) (time.Time, bool) {
	for _, col := range dateCols {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		if t, ok := parseCellTimestamp(row[col]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseCellTimestamp(cell string) (time.Time, bool) {
	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		days := math.Floor(serial)
		frac := serial - days
		t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(frac*86400*float64(time.Second)))
		return t.UTC(), true
	}
	for _, layout := range []string{"02/01/2006 15:04:05", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, cell); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func columnChannel(header string) (channelID string, unit schema.Unit) {
	for _, frag := range obisColumnSubstrings {
		if !strings.Contains(header, frag) {
			continue
		}
		if e, ok := findRegisteredForFragment(frag); ok {
			return e.ChannelID, e.Unit
		}
	}
	return header, schema.UnitUnknown
}

// findRegisteredForFragment resolves one of the four fixed OBIS
// fragments to its canonical registry row via the dotted code form,
// matching the original extractor's hardcoded reading-type table.
func findRegisteredForFragment(frag string) (schema.OBISEntry, bool) {
	dotted := "1-0:" + frag
	return obis.LookupDotted(dotted)
}

// ParseLegacyXLS handles the pre-OOXML binary workbook format (.xls,
// OLE2/BIFF). No BIFF reader exists anywhere in the example pack and
// hand-rolling a binary-compound-document parser is out of proportion to
// this component's scope, so legacy workbooks are reported as a fatal,
// named diagnostic rather than silently misread.
func ParseLegacyXLS(name string) (schema.FileResult, error) {
	result := schema.FileResult{FileName: name, Success: false}
	result.AddError("legacy .xls (OLE2/BIFF) workbooks are not supported, convert to .xlsx")
	return result, nil
}
