// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store persists completeness-audit snapshots (internal/audit's
// output) across daemon runs, so a long-running scheduler can answer
// "how has coverage for meter X, channel Y trended" rather than only
// ever showing the most recent file's audit. Modeled on
// internal/repository: sqlx for struct scanning, squirrel for the
// trend query, go-sqlite3 as the driver, and golang-migrate for the
// embedded schema. Each Open call returns its own Store with its own
// single-connection handle; there is no shared singleton.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/linkedin/goavro/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ClusterCockpit/meterdecode/internal/audit"
	"github.com/ClusterCockpit/meterdecode/pkg/log"
	"github.com/ClusterCockpit/meterdecode/pkg/schema"
)

//go:embed migrations/sqlite3
var migrationFiles embed.FS

const readingAvroSchema = `{
	"type": "record",
	"name": "MeterReading",
	"fields": [
		{"name": "timestamp", "type": "string"},
		{"name": "value", "type": "double"},
		{"name": "channel_id", "type": "string"},
		{"name": "unit", "type": "string"},
		{"name": "quality", "type": "string"},
		{"name": "meter_id", "type": "string"}
	]
}`

// Store is a sqlite-backed archive of completeness snapshots.
type Store struct {
	db    *sqlx.DB
	codec *goavro.Codec
}

// Snapshot is one persisted audit outcome for a (meter, channel) series,
// mirroring internal/audit.SeriesReport plus the reading batch it was
// computed from, kept as a compact Avro blob alongside the relational
// summary columns.
type Snapshot struct {
	ID        int64     `db:"id"`
	MeterID   string    `db:"meter_id"`
	ChannelID string    `db:"channel_id"`
	FromTS    int64     `db:"from_ts"`
	ToTS      int64     `db:"to_ts"`
	Actual    int       `db:"actual"`
	Expected  int       `db:"expected"`
	Coverage  float64   `db:"coverage"`
	Complete  bool      `db:"complete"`
	GapCount  int       `db:"gap_count"`
	DupCount  int       `db:"dup_count"`
	BatchAvro []byte    `db:"batch_avro"`
	CreatedAt int64     `db:"created_at"`
}

// Open opens (or creates) the sqlite database at dsn, applies any
// pending embedded migrations, and returns a ready Store.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", dsn))
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open: %w", err)
	}
	// sqlite does not multithread; one connection avoids lock waits,
	// same reasoning as repository.Connect.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrateUp: %w", err)
	}

	codec, err := goavro.NewCodec(readingAvroSchema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("goavro.NewCodec: %w", err)
	}

	return &Store{db: db, codec: codec}, nil
}

func migrateUp(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("sqlite3.WithInstance: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("iofs.New: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migrate.NewWithInstance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("m.Up: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists one SeriesReport and the reading batch it was
// computed over as a new snapshot row.
func (s *Store) Record(ctx context.Context, report audit.SeriesReport, readings []schema.MeterReading, now time.Time) error {
	blob, err := s.encodeBatch(readings)
	if err != nil {
		return fmt.Errorf("encodeBatch: %w", err)
	}

	query, args, err := sq.Insert("completeness_snapshot").
		Columns("meter_id", "channel_id", "from_ts", "to_ts", "actual", "expected",
			"coverage", "complete", "gap_count", "dup_count", "batch_avro", "created_at").
		Values(report.MeterID, report.ChannelID, report.From.Unix(), report.To.Unix(),
			report.Actual, report.Expected, report.Coverage, report.Complete,
			len(report.Gaps), countDuplicates(report.Duplicates), blob, now.Unix()).
		ToSql()
	if err != nil {
		return fmt.Errorf("squirrel ToSql: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ExecContext: %w", err)
	}
	log.Debugf("store: recorded snapshot for meter %s channel %s, coverage %.1f%%", report.MeterID, report.ChannelID, report.Coverage)
	return nil
}

// Trend returns every snapshot recorded for (meterID, channelID), oldest
// first, for plotting a coverage-over-time series.
func (s *Store) Trend(ctx context.Context, meterID, channelID string) ([]Snapshot, error) {
	query, args, err := sq.Select("id", "meter_id", "channel_id", "from_ts", "to_ts",
		"actual", "expected", "coverage", "complete", "gap_count", "dup_count",
		"batch_avro", "created_at").
		From("completeness_snapshot").
		Where(sq.Eq{"meter_id": meterID, "channel_id": channelID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("squirrel ToSql: %w", err)
	}

	var snapshots []Snapshot
	if err := s.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, fmt.Errorf("SelectContext: %w", err)
	}
	return snapshots, nil
}

// DecodeBatch decodes a snapshot's Avro-encoded reading batch back into
// MeterReadings.
func (s *Store) DecodeBatch(snap Snapshot) ([]schema.MeterReading, error) {
	var out []schema.MeterReading
	bin := snap.BatchAvro
	for len(bin) > 0 {
		native, rest, err := s.codec.NativeFromBinary(bin)
		if err != nil {
			return nil, fmt.Errorf("NativeFromBinary: %w", err)
		}
		out = append(out, nativeToReading(native))
		bin = rest
	}
	return out, nil
}

func (s *Store) encodeBatch(readings []schema.MeterReading) ([]byte, error) {
	var out []byte
	for _, r := range readings {
		bin, err := s.codec.BinaryFromNative(nil, readingToNative(r))
		if err != nil {
			return nil, fmt.Errorf("BinaryFromNative: %w", err)
		}
		out = append(out, bin...)
	}
	return out, nil
}

func readingToNative(r schema.MeterReading) map[string]interface{} {
	return map[string]interface{}{
		"timestamp":  r.Timestamp.Format(time.RFC3339Nano),
		"value":      r.Value,
		"channel_id": r.ChannelID,
		"unit":       string(r.Unit),
		"quality":    string(r.Quality),
		"meter_id":   r.MeterID,
	}
}

func nativeToReading(native interface{}) schema.MeterReading {
	m, ok := native.(map[string]interface{})
	if !ok {
		return schema.MeterReading{}
	}
	ts, _ := time.Parse(time.RFC3339Nano, stringField(m, "timestamp"))
	return schema.MeterReading{
		Timestamp: ts,
		Value:     floatField(m, "value"),
		ChannelID: stringField(m, "channel_id"),
		Unit:      schema.Unit(stringField(m, "unit")),
		Quality:   schema.Quality(stringField(m, "quality")),
		MeterID:   stringField(m, "meter_id"),
	}
}

func stringField(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func floatField(m map[string]interface{}, key string) float64 {
	v, _ := m[key].(float64)
	return v
}

func countDuplicates(dups []audit.Duplicate) int {
	n := 0
	for _, d := range dups {
		n += d.Count
	}
	return n
}
