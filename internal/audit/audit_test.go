// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package audit

import (
	"testing"
	"time"

	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

func reading(minute int, meterID, channelID string) schema.MeterReading {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return schema.MeterReading{
		Timestamp: base.Add(time.Duration(minute) * time.Minute),
		ChannelID: channelID,
		MeterID:   meterID,
		Value:     1.0,
		Unit:      schema.UnitKWh,
		Quality:   schema.QualityGood,
	}
}

func TestAuditFullCoverage(t *testing.T) {
	rs := []schema.MeterReading{
		reading(0, "M1", "C1"),
		reading(15, "M1", "C1"),
		reading(30, "M1", "C1"),
		reading(45, "M1", "C1"),
		reading(60, "M1", "C1"),
	}
	reports := Audit(rs)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	r := reports[0]
	if r.Expected != 5 {
		t.Errorf("expected = %d, want 5", r.Expected)
	}
	if r.Actual != 5 {
		t.Errorf("actual = %d, want 5", r.Actual)
	}
	if r.Coverage != 100 {
		t.Errorf("coverage = %v, want 100", r.Coverage)
	}
	if !r.Complete {
		t.Error("expected complete = true")
	}
	if len(r.Gaps) != 0 {
		t.Errorf("expected no gaps, got %v", r.Gaps)
	}
}

func TestAuditDroppedSampleProducesGap(t *testing.T) {
	rs := []schema.MeterReading{
		reading(0, "M1", "C1"),
		reading(15, "M1", "C1"),
		// 30 dropped
		reading(45, "M1", "C1"),
		reading(60, "M1", "C1"),
	}
	reports := Audit(rs)
	r := reports[0]
	if r.Expected != 5 {
		t.Errorf("expected = %d, want 5", r.Expected)
	}
	if r.Coverage != 80 {
		t.Errorf("coverage = %v, want 80", r.Coverage)
	}
	if r.Complete {
		t.Error("expected complete = false")
	}
	if len(r.Gaps) != 1 {
		t.Fatalf("expected 1 gap, got %d", len(r.Gaps))
	}
	g := r.Gaps[0]
	if g.Delta != 30*time.Minute {
		t.Errorf("gap delta = %v, want 30m", g.Delta)
	}
}

func TestAuditDuplicateDetection(t *testing.T) {
	rs := []schema.MeterReading{
		reading(0, "M1", "C1"),
		reading(0, "M1", "C1"),
		reading(15, "M1", "C1"),
	}
	reports := Audit(rs)
	r := reports[0]
	if len(r.Duplicates) != 1 {
		t.Fatalf("expected 1 duplicate, got %d", len(r.Duplicates))
	}
	if r.Duplicates[0].Count != 2 {
		t.Errorf("duplicate count = %d, want 2", r.Duplicates[0].Count)
	}
}

func TestAuditGroupsByMeterAndChannel(t *testing.T) {
	rs := []schema.MeterReading{
		reading(0, "M1", "C1"),
		reading(0, "M1", "C2"),
		reading(0, "M2", "C1"),
	}
	reports := Audit(rs)
	if len(reports) != 3 {
		t.Fatalf("expected 3 independent series, got %d", len(reports))
	}
}

func TestAuditEmptyInput(t *testing.T) {
	if reports := Audit(nil); len(reports) != 0 {
		t.Fatalf("expected no reports, got %d", len(reports))
	}
}
