// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

// CaptureLayout is an ordered index -> OBIS (vendor hex) mapping describing
// one load-profile buffer's record schema. Index 0 is always the clock,
// index 1 the status byte; indices >= 2 are value slots. Scoped to a single
// XML parse and discarded with it.
type CaptureLayout map[int]string

// ValueSlots returns the distinct OBIS codes captured at indices >= 2,
// used to compute FileResult.ChannelsCount.
func (l CaptureLayout) ValueSlots() []string {
	seen := make(map[string]bool, len(l))
	codes := make([]string, 0, len(l))
	for idx, code := range l {
		if idx >= 2 && !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

const (
	CaptureIndexClock  = 0
	CaptureIndexStatus = 1
)

// StatusFlags decodes the DLMS status byte.
type StatusFlags struct {
	Raw            byte
	EndOfInterval  bool
	InvalidData    bool
	PowerFailure   bool
	ClockAdjusted  bool
	SummerTime     bool
}

const (
	statusBitEndOfInterval = 0x01
	statusBitInvalidData   = 0x02
	statusBitPowerFailure  = 0x04
	statusBitClockAdjusted = 0x08
	statusBitSummerTime    = 0x10
)

// DecodeStatusFlags unpacks a single status byte into its named bits.
func DecodeStatusFlags(b byte) StatusFlags {
	return StatusFlags{
		Raw:           b,
		EndOfInterval: b&statusBitEndOfInterval != 0,
		InvalidData:   b&statusBitInvalidData != 0,
		PowerFailure:  b&statusBitPowerFailure != 0,
		ClockAdjusted: b&statusBitClockAdjusted != 0,
		SummerTime:    b&statusBitSummerTime != 0,
	}
}

// Quality maps the decoded flags to a MeterReading.Quality tag, applying
// a fixed precedence: power failure beats clock-adjusted beats good.
// InvalidData is handled separately by the caller (the record is
// dropped, not assigned a quality).
func (f StatusFlags) Quality() Quality {
	switch {
	case f.PowerFailure:
		return QualityDegradedPowerFailure
	case f.ClockAdjusted:
		return QualityClockAdjusted
	default:
		return QualityGood
	}
}
