// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFileResultIncrementsCounters(t *testing.T) {
	FilesProcessed.Reset()
	ReadingsEmitted.Reset()
	WarningsRaised.Reset()

	ObserveFileResult(".csv", true, map[string]int{"active-import-15min": 2}, 1)

	if got := testutil.ToFloat64(FilesProcessed.WithLabelValues(".csv", "success")); got != 1 {
		t.Errorf("FilesProcessed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ReadingsEmitted.WithLabelValues("active-import-15min")); got != 2 {
		t.Errorf("ReadingsEmitted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(WarningsRaised.WithLabelValues(".csv")); got != 1 {
		t.Errorf("WarningsRaised = %v, want 1", got)
	}
}

func TestObserveFileResultErrorOutcome(t *testing.T) {
	FilesProcessed.Reset()

	ObserveFileResult(".xml", false, nil, 0)

	if got := testutil.ToFloat64(FilesProcessed.WithLabelValues(".xml", "error")); got != 1 {
		t.Errorf("FilesProcessed error = %v, want 1", got)
	}
}

func TestSetCompletenessConvertsPercentToRatio(t *testing.T) {
	ChannelCompleteness.Reset()

	SetCompleteness("METER-0001", "active-import-15min", 80)

	if got := testutil.ToFloat64(ChannelCompleteness.WithLabelValues("METER-0001", "active-import-15min")); got != 0.8 {
		t.Errorf("ChannelCompleteness = %v, want 0.8", got)
	}
}
