// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package audit is a completeness auditor: a reporting pass over an
// already-assembled stream of MeterReadings. It never removes or
// mutates a reading — every output here is derived, read-only
// commentary on the series it was given.
package audit

import (
	"sort"
	"time"

	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

// expectedInterval is the nominal load-profile sampling period the
// coverage/gap arithmetic is expressed in.
const expectedInterval = 15 * time.Minute

// Gap is a run of missing samples between two consecutive readings whose
// delta is at least twice the expected interval.
type Gap struct {
	From  time.Time
	To    time.Time
	Delta time.Duration
}

// Duplicate is a repeated (timestamp, channel_id, meter_id) key.
type Duplicate struct {
	Timestamp time.Time
	ChannelID string
	MeterID   string
	Count     int
}

// SeriesReport is the per-(meter_id, channel_id) completeness report.
type SeriesReport struct {
	MeterID    string
	ChannelID  string
	From       time.Time
	To         time.Time
	Actual     int
	Expected   int
	Coverage   float64
	Complete   bool
	Gaps       []Gap
	Duplicates []Duplicate
}

type seriesKey struct {
	meterID   string
	channelID string
}

// Audit groups readings by (meter_id, channel_id) and computes one
// SeriesReport per group. Input order is not significant; each group is
// sorted by timestamp before its metrics are derived.
func Audit(readings []schema.MeterReading) []SeriesReport {
	groups := map[seriesKey][]schema.MeterReading{}
	for _, r := range readings {
		k := seriesKey{meterID: r.MeterID, channelID: r.ChannelID}
		groups[k] = append(groups[k], r)
	}

	keys := make([]seriesKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].meterID != keys[j].meterID {
			return keys[i].meterID < keys[j].meterID
		}
		return keys[i].channelID < keys[j].channelID
	})

	reports := make([]SeriesReport, 0, len(keys))
	for _, k := range keys {
		reports = append(reports, auditSeries(k, groups[k]))
	}
	return reports
}

func auditSeries(k seriesKey, rs []schema.MeterReading) SeriesReport {
	sorted := make([]schema.MeterReading, len(rs))
	copy(sorted, rs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	report := SeriesReport{MeterID: k.meterID, ChannelID: k.channelID, Actual: len(sorted)}
	if len(sorted) == 0 {
		return report
	}

	report.From = sorted[0].Timestamp
	report.To = sorted[len(sorted)-1].Timestamp

	span := report.To.Sub(report.From)
	report.Expected = int(span/expectedInterval) + 1

	coverage := 100.0
	if report.Expected > 0 {
		coverage = float64(report.Actual) / float64(report.Expected) * 100.0
	}
	if coverage > 100 {
		coverage = 100
	}
	report.Coverage = coverage
	report.Complete = report.Coverage == 100

	seen := map[time.Time]int{}
	for i, r := range sorted {
		seen[r.Timestamp]++
		if i == 0 {
			continue
		}
		delta := r.Timestamp.Sub(sorted[i-1].Timestamp)
		// Dropping one 15-min sample out of a regular series leaves a
		// 30-min (= 2x) delta and must register as a gap, so the
		// threshold is inclusive.
		if delta >= 2*expectedInterval {
			report.Gaps = append(report.Gaps, Gap{From: sorted[i-1].Timestamp, To: r.Timestamp, Delta: delta})
		}
	}

	times := make([]time.Time, 0, len(seen))
	for ts := range seen {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for _, ts := range times {
		if n := seen[ts]; n > 1 {
			report.Duplicates = append(report.Duplicates, Duplicate{Timestamp: ts, ChannelID: k.channelID, MeterID: k.meterID, Count: n})
		}
	}

	return report
}
