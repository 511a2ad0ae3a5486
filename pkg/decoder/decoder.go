// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package decoder is the public entry point of the meter-data decoder
// core: Decode dispatches a single named byte buffer to the right parser
// by extension and returns one schema.FileResult. DecodeZip walks a zip
// archive and decodes each entry independently.
package decoder

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ClusterCockpit/meterdecode/internal/parser/spreadsheet"
	"github.com/ClusterCockpit/meterdecode/internal/parser/tabular"
	"github.com/ClusterCockpit/meterdecode/internal/parser/xmldesc"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

// Decode dispatches by the extension of name (case-insensitive) and
// returns the assembled FileResult. An unsupported extension is a
// file-level fatal condition.
func Decode(name string, data []byte, opts schema.DecodeOptions) (schema.FileResult, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return decodeTabular(name, data, opts)
	case ".xlsx":
		return decodeSpreadsheet(name, data, opts)
	case ".xls":
		return spreadsheet.ParseLegacyXLS(name)
	case ".xml":
		return decodeXML(name, data, opts)
	case ".zip":
		return decodeZipAsSingleResult(name, data, opts)
	default:
		result := schema.FileResult{FileName: name, Success: false}
		result.AddError(fmt.Sprintf("unsupported file extension %q", filepath.Ext(name)))
		return result, nil
	}
}

func noopWarnSink(r *schema.FileResult) func(string) {
	return func(msg string) { r.AddWarning(msg) }
}

func decodeSpreadsheet(name string, data []byte, opts schema.DecodeOptions) (schema.FileResult, error) {
	return spreadsheet.Parse(name, data, opts, nil)
}

func decodeTabular(name string, data []byte, opts schema.DecodeOptions) (schema.FileResult, error) {
	result := schema.FileResult{FileName: name, Success: true}
	meterID, _, rows, err := tabular.Parse(data, noopWarnSink(&result))
	if err != nil {
		result.Success = false
		result.AddError(err.Error())
		return result, nil
	}
	result.Readings = tabular.BuildReadings(meterID, rows, opts)
	if len(result.Readings) == 0 {
		result.AddWarning("no readings produced from tabular input")
	}
	return result, nil
}

func decodeXML(name string, data []byte, opts schema.DecodeOptions) (schema.FileResult, error) {
	result := schema.FileResult{FileName: name, Success: true}
	_, readings, channels, err := xmldesc.Parse(data, opts, noopWarnSink(&result))
	if err != nil {
		result.Success = false
		result.AddError(err.Error())
		return result, nil
	}
	result.Readings = readings
	result.ChannelsCount = channels
	if len(result.Readings) == 0 {
		result.AddWarning("no readings produced from xml input")
	}
	return result, nil
}

// DecodeZip walks a zip archive and decodes each entry independently,
// skipping directories. An entry whose extension none of the supported
// parsers recognize produces a warning-only placeholder rather than
// aborting the whole archive.
func DecodeZip(name string, data []byte, opts schema.DecodeOptions) ([]schema.FileResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result := schema.FileResult{FileName: name, Success: false}
		result.AddError(fmt.Sprintf("corrupt zip archive: %v", err))
		return []schema.FileResult{result}, nil
	}

	var results []schema.FileResult
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entryName := name + "!" + f.Name
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !supportedExtension(ext) {
			result := schema.FileResult{FileName: entryName, Success: true}
			result.AddWarning(fmt.Sprintf("archive entry %q has an unsupported extension, skipped", f.Name))
			results = append(results, result)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			result := schema.FileResult{FileName: entryName, Success: false}
			result.AddError(fmt.Sprintf("could not open archive entry: %v", err))
			results = append(results, result)
			continue
		}
		entryData, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			result := schema.FileResult{FileName: entryName, Success: false}
			result.AddError(fmt.Sprintf("could not read archive entry: %v", err))
			results = append(results, result)
			continue
		}

		result, _ := Decode(entryName, entryData, opts)
		results = append(results, result)
	}
	return results, nil
}

func decodeZipAsSingleResult(name string, data []byte, opts schema.DecodeOptions) (schema.FileResult, error) {
	entries, err := DecodeZip(name, data, opts)
	if err != nil || len(entries) == 0 {
		result := schema.FileResult{FileName: name, Success: false}
		result.AddError("archive contained no usable entries")
		return result, nil
	}
	merged := schema.FileResult{FileName: name, Success: true}
	for _, e := range entries {
		merged.Readings = append(merged.Readings, e.Readings...)
		merged.Warnings = append(merged.Warnings, e.Warnings...)
		merged.Errors = append(merged.Errors, e.Errors...)
		if !e.Success {
			merged.Success = false
		}
		if e.ChannelsCount > merged.ChannelsCount {
			merged.ChannelsCount = e.ChannelsCount
		}
	}
	return merged, nil
}

func supportedExtension(ext string) bool {
	switch ext {
	case ".csv", ".txt", ".xlsx", ".xls", ".xml":
		return true
	default:
		return false
	}
}
