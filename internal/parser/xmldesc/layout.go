// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package xmldesc

import (
	"regexp"
	"strconv"

	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

// defaultLayout is used when capture_objects is absent or carries no
// logical_name children.
var defaultLayout = schema.CaptureLayout{
	0: "0000010000FF",
	1: "0000600A01FF",
	2: "0100010800FF",
	3: "0100020800FF",
	4: "0100050800FF",
	5: "0100060800FF",
	6: "0100070800FF",
	7: "0100080800FF",
}

// logicalNameIndexRe extracts the array index N from a capture_objects
// FieldName of the form "...capture_objects.N.logical_name". The
// original extraction code indexed these by an unreferenced loop
// variable instead; this is resolved by always preferring the
// FieldName-derived index and falling back to enumeration order only
// when the pattern fails to match.
var logicalNameIndexRe = regexp.MustCompile(`\.(\d+)\.logical_name$`)

// ResolveCaptureLayout resolves the profile buffer's column layout.
// captureFields is the flat Fields list found under the profile
// object's capture_objects attribute (empty if the attribute itself is
// absent).
func ResolveCaptureLayout(captureFields []fieldEl, warn func(string)) schema.CaptureLayout {
	if len(captureFields) == 0 {
		warn("capture_objects absent, using default profile layout")
		return cloneLayout(defaultLayout)
	}

	layout := schema.CaptureLayout{}
	fallbackIdx := 0
	found := false
	for _, f := range captureFields {
		if lastSegment(f.FieldName) != "logical_name" {
			continue
		}
		found = true
		idx, err := captureIndexOf(f.FieldName, fallbackIdx)
		if err != nil {
			warn(err.Error())
		}
		layout[idx] = f.FieldValue
		fallbackIdx++
	}

	if !found {
		warn("capture_objects had no logical_name children, using default profile layout")
		return cloneLayout(defaultLayout)
	}
	return layout
}

func captureIndexOf(fieldName string, fallback int) (int, error) {
	m := logicalNameIndexRe.FindStringSubmatch(fieldName)
	if m == nil {
		return fallback, errNoIndexSegment(fieldName)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return fallback, errNoIndexSegment(fieldName)
	}
	return n, nil
}

func errNoIndexSegment(fieldName string) error {
	return &indexParseError{fieldName: fieldName}
}

type indexParseError struct{ fieldName string }

func (e *indexParseError) Error() string {
	return "capture_objects field " + e.fieldName + " has no parseable index segment, using enumeration order"
}

func cloneLayout(l schema.CaptureLayout) schema.CaptureLayout {
	out := make(schema.CaptureLayout, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}
