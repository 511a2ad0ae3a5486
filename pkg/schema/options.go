// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

// DecodeOptions carries the caller-provided knobs that shape a decode
// run. The decoder never performs I/O and never reaches outside this
// struct plus the input buffer for its behavior.
type DecodeOptions struct {
	// ForcedMeterID, if set, is assigned to any reading whose meter_id
	// would otherwise be empty.
	ForcedMeterID string `json:"forced_meter_id,omitempty"`

	// SourceTZHint is informational only. Tabular-text timestamps are
	// UTC-tagged identically regardless of this hint (see DESIGN.md) —
	// it is recorded for forward compatibility, not applied.
	SourceTZHint string `json:"source_tz_hint,omitempty"`
}
