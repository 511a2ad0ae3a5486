// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package xmldesc

import "strings"

// fieldIndex groups a flat Fields list by the parent segment of
// FieldName (everything up to the last dot). Building this once per
// profile, instead of re-scanning the full Fields list for every row,
// avoids going quadratic in the number of buffer records, which matters
// on multi-thousand-record load profiles.
type fieldIndex map[string][]fieldEl

func buildFieldIndex(fields []fieldEl) fieldIndex {
	idx := make(fieldIndex, len(fields))
	for _, f := range fields {
		p := parentOf(f.FieldName)
		idx[p] = append(idx[p], f)
	}
	return idx
}

func parentOf(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[:i]
}

func lastSegment(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return name
	}
	return name[i+1:]
}
