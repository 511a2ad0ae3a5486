// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ClusterCockpit/meterdecode/internal/audit"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReadings() []schema.MeterReading {
	base := time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC)
	return []schema.MeterReading{
		{Timestamp: base, Value: 1.930, ChannelID: "active-import-15min", Unit: schema.UnitKWh, Quality: schema.QualityGood, MeterID: "METER-0001"},
		{Timestamp: base.Add(15 * time.Minute), Value: 2.010, ChannelID: "active-import-15min", Unit: schema.UnitKWh, Quality: schema.QualityGood, MeterID: "METER-0001"},
	}
}

func TestRecordAndTrend(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := audit.SeriesReport{
		MeterID:   "METER-0001",
		ChannelID: "active-import-15min",
		From:      time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2025, 8, 26, 0, 15, 0, 0, time.UTC),
		Actual:    2,
		Expected:  2,
		Coverage:  100,
		Complete:  true,
	}

	if err := s.Record(ctx, report, sampleReadings(), time.Unix(1756000000, 0)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	trend, err := s.Trend(ctx, "METER-0001", "active-import-15min")
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if len(trend) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(trend))
	}
	if trend[0].Coverage != 100 || !trend[0].Complete {
		t.Errorf("unexpected snapshot: %+v", trend[0])
	}
}

func TestTrendOrdersOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := audit.SeriesReport{MeterID: "METER-0002", ChannelID: "ch", Coverage: 80}
	if err := s.Record(ctx, report, nil, time.Unix(1756000100, 0)); err != nil {
		t.Fatalf("Record 1: %v", err)
	}
	report.Coverage = 95
	if err := s.Record(ctx, report, nil, time.Unix(1756000200, 0)); err != nil {
		t.Fatalf("Record 2: %v", err)
	}

	trend, err := s.Trend(ctx, "METER-0002", "ch")
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if len(trend) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(trend))
	}
	if trend[0].Coverage != 80 || trend[1].Coverage != 95 {
		t.Errorf("expected ascending coverage order, got %v then %v", trend[0].Coverage, trend[1].Coverage)
	}
}

func TestDecodeBatchRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	readings := sampleReadings()
	report := audit.SeriesReport{MeterID: "METER-0001", ChannelID: "active-import-15min"}
	if err := s.Record(ctx, report, readings, time.Unix(1756000300, 0)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	trend, err := s.Trend(ctx, "METER-0001", "active-import-15min")
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	decoded, err := s.DecodeBatch(trend[0])
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(decoded) != len(readings) {
		t.Fatalf("expected %d decoded readings, got %d", len(readings), len(decoded))
	}
	if decoded[0].Value != readings[0].Value || decoded[0].MeterID != readings[0].MeterID {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded[0], readings[0])
	}
}

func TestTrendEmptyForUnknownSeries(t *testing.T) {
	s := openTestStore(t)
	trend, err := s.Trend(context.Background(), "NO-SUCH-METER", "no-such-channel")
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if len(trend) != 0 {
		t.Errorf("expected no snapshots, got %d", len(trend))
	}
}
