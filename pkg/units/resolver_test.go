package units

import (
	"testing"

	"github.com/ClusterCockpit/meterdecode/pkg/dlms"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

func TestResolveEnergyScenario(t *testing.T) {
	v, u := Resolve(schema.UnitKWh, dlms.FieldUInt32, 1930)
	if v != 1.930 {
		t.Errorf("value = %v, want 1.930", v)
	}
	if u != schema.UnitKWh {
		t.Errorf("unit = %v, want kWh", u)
	}
}

func TestResolveVoltageScenario(t *testing.T) {
	v, u := Resolve(schema.UnitVolt, dlms.FieldUInt16, 2301)
	if v != 230.1 {
		t.Errorf("value = %v, want 230.1", v)
	}
	if u != schema.UnitVolt {
		t.Errorf("unit = %v, want V", u)
	}
}

func TestResolveCurrentHighRange(t *testing.T) {
	v, _ := Resolve(schema.UnitAmp, dlms.FieldUInt16, 15000)
	if v != 1500.0 {
		t.Errorf("value = %v, want 1500.0 (div 10 for raw > 10000)", v)
	}
}

func TestResolveCurrentNormalRange(t *testing.T) {
	v, _ := Resolve(schema.UnitAmp, dlms.FieldUInt16, 250)
	if v != 2.5 {
		t.Errorf("value = %v, want 2.5 (div 100)", v)
	}
}

func TestResolveUnknownUnitDefaultsToEnergy(t *testing.T) {
	v, u := Resolve(schema.UnitUnknown, dlms.FieldUInt32, 5000)
	if v != 5.0 || u != schema.UnitKWh {
		t.Errorf("got (%v, %v), want (5.0, kWh)", v, u)
	}
}

func TestResolveIdempotent(t *testing.T) {
	a, _ := Resolve(schema.UnitKWh, dlms.FieldUInt32, 42)
	b, _ := Resolve(schema.UnitKWh, dlms.FieldUInt32, 42)
	if a != b {
		t.Errorf("scaling is not idempotent: %v != %v", a, b)
	}
}

func TestSetOverride(t *testing.T) {
	if err := SetOverride("0100010800FF", "raw / 500.0"); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	defer SetOverride("0100010800FF", "")

	v, u, err := ResolveWithOverride("0100010800FF", schema.UnitKWh, dlms.FieldUInt32, 1000)
	if err != nil {
		t.Fatalf("ResolveWithOverride: %v", err)
	}
	if v != 2.0 {
		t.Errorf("override value = %v, want 2.0", v)
	}
	if u != schema.UnitKWh {
		t.Errorf("override unit = %v, want kWh", u)
	}
}

func TestResolveWithOverrideFallsBackWhenUnset(t *testing.T) {
	v, u, err := ResolveWithOverride("no-such-code", schema.UnitVolt, dlms.FieldUInt16, 2301)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 230.1 || u != schema.UnitVolt {
		t.Errorf("got (%v, %v), want heuristic fallback (230.1, V)", v, u)
	}
}
