// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tabular parses semicolon-separated meter exports: an
// identifier line, an OBIS header line, and timestamped data rows.
package tabular

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// decodeBytes tries utf-8-sig, utf-8, latin-1, cp1252 in order, keeping
// the first successful decode; a leading BOM is stripped either way.
// The final fallback (cp1252, byte-for-byte mappable) cannot itself
// fail, matching the Python original's last-resort "decode with errors
// replaced" behavior.
func decodeBytes(raw []byte) string {
	stripped := bytes.TrimPrefix(raw, bom)
	if utf8.Valid(stripped) {
		return string(stripped)
	}

	if s, err := charmap.ISO8859_1.NewDecoder().String(string(stripped)); err == nil && utf8.ValidString(s) {
		return s
	}

	// cp1252 (Windows-1252) is a superset mapping of the printable
	// Latin-1 range and never fails to decode a byte stream.
	s, _ := charmap.Windows1252.NewDecoder().String(string(stripped))
	return s
}
