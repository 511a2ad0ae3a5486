// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dlms

import "github.com/ClusterCockpit/meterdecode/pkg/schema"

// DecodeStatusByte parses a single profile-record status byte (field
// index 1). This is distinct from the clock-status byte embedded inside
// the 12-byte date-time octet string.
func DecodeStatusByte(b byte) schema.StatusFlags {
	return schema.DecodeStatusFlags(b)
}
