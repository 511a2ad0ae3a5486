// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package spreadsheet parses spreadsheet meter exports: every sheet of
// a workbook is scanned for an OBIS-labeled column layout.
//
// No xlsx/excelize library exists anywhere in the retrieved example pack,
// so the OOXML container is read directly with archive/zip + encoding/xml
// — the format is just a zip of small XML parts, which is well within
// reach of the standard library alone (DESIGN.md records this as a
// justified stdlib exception, not an oversight).
package spreadsheet

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// sheet is one parsed worksheet: a grid of cell text, row-major, sparse
// columns filled with "".
type sheet struct {
	name string
	rows [][]string
}

type sharedStringsXML struct {
	XMLName xml.Name  `xml:"sst"`
	Items   []siXML   `xml:"si"`
}

type siXML struct {
	T  string  `xml:"t"`
	Rs []rXML  `xml:"r"`
}

type rXML struct {
	T string `xml:"t"`
}

type worksheetXML struct {
	SheetData sheetDataXML `xml:"sheetData"`
}

type sheetDataXML struct {
	Rows []rowXML `xml:"row"`
}

type rowXML struct {
	R     string   `xml:"r,attr"`
	Cells []cellXML `xml:"c"`
}

type cellXML struct {
	R string `xml:"r,attr"`
	T string `xml:"t,attr"`
	V string `xml:"v"`
	Is *isXML `xml:"is"`
}

type isXML struct {
	T string `xml:"t"`
}

type workbookXML struct {
	Sheets []workbookSheetXML `xml:"sheets>sheet"`
}

type workbookSheetXML struct {
	Name string `xml:"name,attr"`
	RID  string `xml:"id,attr"` // r:id, matched by local name
}

type relsXML struct {
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// readWorkbook unzips an .xlsx payload and returns every sheet in
// workbook-declared order, with shared strings already resolved into cell
// text.
func readWorkbook(raw []byte) ([]sheet, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("not a valid xlsx container: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	sharedStrings, err := readSharedStrings(files)
	if err != nil {
		return nil, err
	}

	wbFile, ok := files["xl/workbook.xml"]
	if !ok {
		return nil, fmt.Errorf("xlsx container has no xl/workbook.xml")
	}
	var wb workbookXML
	if err := unmarshalZipEntry(wbFile, &wb); err != nil {
		return nil, fmt.Errorf("malformed xl/workbook.xml: %w", err)
	}

	relTargets, err := readWorkbookRels(files)
	if err != nil {
		return nil, err
	}

	var sheets []sheet
	for _, s := range wb.Sheets {
		target, ok := relTargets[s.RID]
		if !ok {
			continue
		}
		path := "xl/" + target
		sf, ok := files[path]
		if !ok {
			continue
		}
		var ws worksheetXML
		if err := unmarshalZipEntry(sf, &ws); err != nil {
			return nil, fmt.Errorf("malformed worksheet %q: %w", path, err)
		}
		sheets = append(sheets, sheet{name: s.Name, rows: toRows(ws, sharedStrings)})
	}
	return sheets, nil
}

func readSharedStrings(files map[string]*zip.File) ([]string, error) {
	f, ok := files["xl/sharedStrings.xml"]
	if !ok {
		return nil, nil
	}
	var sst sharedStringsXML
	if err := unmarshalZipEntry(f, &sst); err != nil {
		return nil, fmt.Errorf("malformed sharedStrings.xml: %w", err)
	}
	out := make([]string, len(sst.Items))
	for i, it := range sst.Items {
		if it.T != "" {
			out[i] = it.T
			continue
		}
		// Rich text runs split across multiple <r><t> children.
		for _, r := range it.Rs {
			out[i] += r.T
		}
	}
	return out, nil
}

func readWorkbookRels(files map[string]*zip.File) (map[string]string, error) {
	f, ok := files["xl/_rels/workbook.xml.rels"]
	if !ok {
		return nil, fmt.Errorf("xlsx container has no xl/_rels/workbook.xml.rels")
	}
	var rels relsXML
	if err := unmarshalZipEntry(f, &rels); err != nil {
		return nil, fmt.Errorf("malformed workbook.xml.rels: %w", err)
	}
	out := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		out[r.ID] = r.Target
	}
	return out, nil
}

func unmarshalZipEntry(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

// toRows flattens the sparse, column-addressed sheetData into a dense
// row-major grid, resolving shared-string cells along the way.
func toRows(ws worksheetXML, sharedStrings []string) [][]string {
	rows := make([][]string, len(ws.SheetData.Rows))
	for i, r := range ws.SheetData.Rows {
		maxCol := 0
		cellCols := make([]int, len(r.Cells))
		for j, c := range r.Cells {
			col := columnOf(c.R)
			cellCols[j] = col
			if col+1 > maxCol {
				maxCol = col + 1
			}
		}
		row := make([]string, maxCol)
		for j, c := range r.Cells {
			row[cellCols[j]] = cellText(c, sharedStrings)
		}
		rows[i] = row
	}
	return rows
}

func cellText(c cellXML, sharedStrings []string) string {
	switch c.T {
	case "s":
		idx, err := strconv.Atoi(c.V)
		if err != nil || idx < 0 || idx >= len(sharedStrings) {
			return ""
		}
		return sharedStrings[idx]
	case "inlineStr":
		if c.Is != nil {
			return c.Is.T
		}
		return ""
	default:
		return c.V
	}
}

// columnOf turns a cell reference like "C7" into a zero-based column
// index (A=0, B=1, ... AA=26, ...).
func columnOf(ref string) int {
	col := 0
	for _, ch := range ref {
		if ch < 'A' || ch > 'Z' {
			break
		}
		col = col*26 + int(ch-'A'+1)
	}
	return col - 1
}

// sheetNames returns sheet names sorted alphabetically, used only for
// diagnostics.
func sheetNames(sheets []sheet) []string {
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.name
	}
	sort.Strings(names)
	return names
}
