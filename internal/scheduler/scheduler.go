// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler polls a watch directory on an interval and feeds
// new or changed files through the decoder, ledger, and store. This is
// the daemon's "continuous intake" mode: the original tooling only ever
// ran as a one-shot script; this is polling/batch on top of it, not a
// real-time stream. Job registration follows the internal/taskManager
// gocron/v2 idiom: a package-level gocron.Scheduler, one s.NewJob per
// registered task, gocron.DurationJob for interval-based work.
package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/time/rate"

	"github.com/ClusterCockpit/meterdecode/internal/audit"
	"github.com/ClusterCockpit/meterdecode/pkg/decoder"
	"github.com/ClusterCockpit/meterdecode/pkg/ledger"
	"github.com/ClusterCockpit/meterdecode/pkg/log"
	"github.com/ClusterCockpit/meterdecode/pkg/metrics"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
	"github.com/ClusterCockpit/meterdecode/pkg/store"
)

// Scheduler watches a directory for meter-data files, decodes each one
// it has not already seen, audits the resulting readings, and persists
// a completeness snapshot.
type Scheduler struct {
	watchDir string
	opts     schema.DecodeOptions
	ledger   *ledger.Ledger
	store    *store.Store
	limiter  *rate.Limiter

	gocron gocron.Scheduler
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithRateLimit caps how many files per second the scheduler will hand
// to the decoder, so a large backlog does not spike CPU on the host.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Scheduler) {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New builds a Scheduler over watchDir, backed by led and st.
func New(watchDir string, opts schema.DecodeOptions, led *ledger.Ledger, st *store.Store, options ...Option) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		watchDir: watchDir,
		opts:     opts,
		ledger:   led,
		store:    st,
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
		gocron:   gs,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Start registers the watch-directory poll job at the given interval
// and begins running it in the background.
func (s *Scheduler) Start(interval time.Duration) error {
	log.Infof("scheduler: watching %s every %s", s.watchDir, interval)
	_, err := s.gocron.NewJob(gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.pollOnce(context.Background()); err != nil {
				log.Errorf("scheduler: poll failed: %v", err)
			}
		}))
	if err != nil {
		return err
	}
	s.gocron.Start()
	return nil
}

// Shutdown stops the background poll job.
func (s *Scheduler) Shutdown() error {
	return s.gocron.Shutdown()
}

// pollOnce walks the watch directory once, decoding every file the
// ledger has not already recorded.
func (s *Scheduler) pollOnce(ctx context.Context) error {
	entries, err := os.ReadDir(s.watchDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.processFile(ctx, filepath.Join(s.watchDir, entry.Name())); err != nil {
			log.Warnf("scheduler: %s: %v", entry.Name(), err)
		}
	}
	return nil
}

func (s *Scheduler) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	digest := ledger.Digest(data)
	if _, seen := s.ledger.Seen(digest); seen {
		return nil
	}

	start := time.Now()
	result, err := decoder.Decode(filepath.Base(path), data, s.opts)
	metrics.DecodeDuration.WithLabelValues(filepath.Ext(path)).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	channelCounts := map[string]int{}
	for _, r := range result.Readings {
		channelCounts[r.ChannelID]++
	}
	metrics.ObserveFileResult(filepath.Ext(path), result.Success, channelCounts, len(result.Warnings))

	for _, report := range audit.Audit(result.Readings) {
		metrics.SetCompleteness(report.MeterID, report.ChannelID, report.Coverage)
		if err := s.store.Record(ctx, report, result.Readings, time.Now()); err != nil {
			log.Warnf("scheduler: recording snapshot for %s/%s: %v", report.MeterID, report.ChannelID, err)
		}
	}

	return s.ledger.Record(digest, ledger.Entry{
		Path:         path,
		ProcessedAt:  time.Now(),
		ReadingCount: len(result.Readings),
	})
}
