// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package units is the scaling & unit resolver: given an OBIS channel's
// registry unit, its source field type, and a raw decoded value, it
// produces the final value in the canonical unit.
package units

import (
	"sync"

	"github.com/ClusterCockpit/meterdecode/pkg/dlms"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Resolve applies a fixed scale-rule table per registry unit and field
// type. raw is the already-decoded integer scalar (dlms.DecodeScalar's
// result).
func Resolve(registryUnit schema.Unit, fieldType dlms.FieldType, raw int64) (value float64, unit schema.Unit) {
	switch registryUnit {
	case schema.UnitKWh, schema.UnitKvarh, schema.UnitKVAh:
		return float64(raw) / 1000.0, registryUnit

	case schema.UnitVolt:
		if fieldType == dlms.FieldUInt16 {
			return float64(raw) / 10.0, schema.UnitVolt
		}
		return float64(raw), schema.UnitVolt

	case schema.UnitAmp:
		if fieldType == dlms.FieldUInt16 {
			if raw > 10000 {
				return float64(raw) / 10.0, schema.UnitAmp
			}
			return float64(raw) / 100.0, schema.UnitAmp
		}
		return float64(raw), schema.UnitAmp

	case schema.UnitHz:
		switch {
		case fieldType == dlms.FieldUInt32 && raw < 1000:
			return float64(raw) / 10.0, schema.UnitHz
		case fieldType == dlms.FieldUInt16:
			return float64(raw) / 100.0, schema.UnitHz
		default:
			return float64(raw) / 10.0, schema.UnitHz
		}

	default:
		// Unknown registry unit: treat as energy.
		return float64(raw) / 1000.0, schema.UnitKWh
	}
}

// overrideMu guards the optional per-OBIS scaler overrides (see
// DESIGN.md): a device-supplied scaler, when the caller configures one,
// takes precedence over the heuristic table above.
var (
	overrideMu    sync.RWMutex
	overrideByObis = map[string]*vm.Program{}
)

// SetOverride compiles and installs an expr-lang expression for a vendor
// hex OBIS code. The expression receives `raw` (int64) and `fieldType`
// (string) and must evaluate to a float64. An empty expr clears any
// existing override for that code.
func SetOverride(vendorHex, exprSrc string) error {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	if exprSrc == "" {
		delete(overrideByObis, vendorHex)
		return nil
	}
	program, err := expr.Compile(exprSrc, expr.Env(map[string]interface{}{
		"raw":       int64(0),
		"fieldType": "",
	}))
	if err != nil {
		return err
	}
	overrideByObis[vendorHex] = program
	return nil
}

// ResolveWithOverride behaves like Resolve, but first checks whether the
// caller configured a scaler-override expression for vendorHex; if so,
// its result (as the value, in the registry's declared unit) is used
// instead of the heuristic table.
func ResolveWithOverride(vendorHex string, registryUnit schema.Unit, fieldType dlms.FieldType, raw int64) (float64, schema.Unit, error) {
	overrideMu.RLock()
	program, ok := overrideByObis[vendorHex]
	overrideMu.RUnlock()
	if !ok {
		v, u := Resolve(registryUnit, fieldType, raw)
		return v, u, nil
	}

	out, err := expr.Run(program, map[string]interface{}{
		"raw":       raw,
		"fieldType": string(fieldType),
	})
	if err != nil {
		return 0, "", err
	}
	switch f := out.(type) {
	case float64:
		return f, registryUnit, nil
	case int:
		return float64(f), registryUnit, nil
	case int64:
		return float64(f), registryUnit, nil
	default:
		v, u := Resolve(registryUnit, fieldType, raw)
		return v, u, nil
	}
}
