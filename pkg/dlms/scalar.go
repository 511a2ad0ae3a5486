// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dlms

import (
	"fmt"
	"strconv"
)

// FieldType names the scalar wire tags this decoder understands.
type FieldType string

const (
	FieldUInt8             FieldType = "UInt8"
	FieldUInt16            FieldType = "UInt16"
	FieldUInt32            FieldType = "UInt32"
	FieldInt8              FieldType = "Int8"
	FieldInt16             FieldType = "Int16"
	FieldInt32             FieldType = "Int32"
	FieldOctetString       FieldType = "OctetString"
	FieldDoubleLongUnsigned FieldType = "DoubleLongUnsigned"
	FieldLongUnsigned      FieldType = "LongUnsigned"
)

// absentSentinel is the all-zero 8-byte octet string value treated as
// "no data" rather than a real zero reading.
const absentSentinel = "0000000000000000"

// DecodeScalar converts a raw text value per its field-type tag into an
// int64, using the radix each field type is encoded in (DoubleLongUnsigned,
// LongUnsigned and octet strings longer than 8 characters are hex; the
// integer types and shorter octet strings are decimal). ok is false for
// the absent sentinel,
// in which case callers must skip the field.
func DecodeScalar(fieldType FieldType, raw string) (value int64, ok bool, err error) {
	if raw == absentSentinel {
		return 0, false, nil
	}

	radix := 10
	switch fieldType {
	case FieldUInt8, FieldUInt16, FieldUInt32, FieldInt8, FieldInt16, FieldInt32:
		radix = 10
	case FieldOctetString:
		if len(raw) > 8 {
			radix = 16
		} else {
			radix = 10
		}
	case FieldDoubleLongUnsigned, FieldLongUnsigned:
		radix = 16
	default:
		return 0, false, fmt.Errorf("unrecognized field type %q", fieldType)
	}

	v, err := strconv.ParseInt(raw, radix, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decode scalar %q as %s (radix %d): %w", raw, fieldType, radix, err)
	}
	return v, true, nil
}
