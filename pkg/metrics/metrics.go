// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes operational counters and gauges for the
// decoder daemon: files processed, readings emitted, warnings raised,
// and a per-channel completeness gauge fed by internal/audit. Collector
// construction follows the same prometheus.NewCounterVec/GaugeVec shape
// used throughout the example pack's exporters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is a private prometheus registry so the decoder's metrics
// never collide with another library's default-registry collectors
// inside the same process.
var Registry = prometheus.NewRegistry()

var (
	FilesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meterdecode_files_processed_total",
		Help: "Source files decoded, labeled by outcome.",
	}, []string{"extension", "outcome"})

	ReadingsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meterdecode_readings_emitted_total",
		Help: "MeterReadings produced by the decoder, labeled by channel.",
	}, []string{"channel_id"})

	WarningsRaised = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meterdecode_warnings_total",
		Help: "Non-fatal diagnostics raised while decoding a file.",
	}, []string{"extension"})

	ChannelCompleteness = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meterdecode_channel_completeness_ratio",
		Help: "Most recent internal/audit coverage ratio (0-1) per meter/channel.",
	}, []string{"meter_id", "channel_id"})

	DecodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meterdecode_decode_duration_seconds",
		Help:    "Wall-clock time spent in pkg/decoder.Decode, labeled by extension.",
		Buckets: prometheus.DefBuckets,
	}, []string{"extension"})
)

func init() {
	Registry.MustRegister(FilesProcessed, ReadingsEmitted, WarningsRaised, ChannelCompleteness, DecodeDuration)
}

// ObserveFileResult records the per-file counters for one decode
// outcome: one FilesProcessed increment, one ReadingsEmitted increment
// per distinct channel represented, and one WarningsRaised increment
// per warning collected.
func ObserveFileResult(extension string, success bool, channelCounts map[string]int, warningCount int) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	FilesProcessed.WithLabelValues(extension, outcome).Inc()

	for channelID, n := range channelCounts {
		ReadingsEmitted.WithLabelValues(channelID).Add(float64(n))
	}

	if warningCount > 0 {
		WarningsRaised.WithLabelValues(extension).Add(float64(warningCount))
	}
}

// SetCompleteness records internal/audit's latest coverage percentage
// (0-100) for a (meter, channel) pair as a 0-1 ratio gauge.
func SetCompleteness(meterID, channelID string, coveragePercent float64) {
	ChannelCompleteness.WithLabelValues(meterID, channelID).Set(coveragePercent / 100)
}
