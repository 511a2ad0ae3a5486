// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ledger tracks which source files the scheduler daemon has
// already decoded, so a repeated directory poll does not re-emit
// readings for a file it has already processed. Grounded on
// bemasher-rtlamr-collect's MeterMap: a bbolt-backed map, msgpack-encoded
// keys/values, an in-memory mirror kept warm from the on-disk bucket at
// open time, and xerrors-wrapped errors throughout, the same as that
// example repo.
package ledger

import (
	"time"

	"github.com/vmihailenco/msgpack"
	"go.etcd.io/bbolt"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/xerrors"
)

const bucketName = "processed_files"

// Entry records one decoded file.
type Entry struct {
	Path         string
	ProcessedAt  time.Time
	ReadingCount int
}

// FileDigest is a content hash of a source file, used as the ledger key
// so a renamed-but-identical file is still recognized as already
// processed and a changed file under the same name is not skipped.
type FileDigest [32]byte

// Digest hashes a file's raw bytes with blake2b-256.
func Digest(data []byte) FileDigest {
	return blake2b.Sum256(data)
}

// Ledger is a bbolt-backed set of processed-file digests with an
// in-memory mirror for lookups that do not need a transaction.
type Ledger struct {
	db *bbolt.DB
	m  map[FileDigest]Entry
}

// Open opens (creating if absent) the bbolt database at path and loads
// its existing entries into memory.
func Open(path string) (*Ledger, error) {
	l := &Ledger{m: map[FileDigest]Entry{}}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, xerrors.Errorf("bbolt.Open: %w", err)
	}
	l.db = db

	err = db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket([]byte(bucketName))
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			var digest FileDigest
			if len(k) != len(digest) {
				return xerrors.Errorf("ledger key has unexpected length %d", len(k))
			}
			copy(digest[:], k)

			var entry Entry
			if err := msgpack.Unmarshal(v, &entry); err != nil {
				return xerrors.Errorf("msgpack.Unmarshal: %w", err)
			}
			l.m[digest] = entry
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("db.View: %w", err)
	}

	return l, nil
}

// Close closes the underlying bbolt database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Seen reports whether digest has already been recorded.
func (l *Ledger) Seen(digest FileDigest) (Entry, bool) {
	e, ok := l.m[digest]
	return e, ok
}

// Record marks digest as processed, persisting it to bbolt and updating
// the in-memory mirror only after the transaction commits.
func (l *Ledger) Record(digest FileDigest, entry Entry) error {
	err := l.db.Update(func(tx *bbolt.Tx) error {
		tx.OnCommit(func() {
			l.m[digest] = entry
		})

		bkt, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return xerrors.Errorf("tx.CreateBucketIfNotExists: %w", err)
		}

		val, err := msgpack.Marshal(entry)
		if err != nil {
			return xerrors.Errorf("msgpack.Marshal: %w", err)
		}

		if err := bkt.Put(digest[:], val); err != nil {
			return xerrors.Errorf("bkt.Put: %w", err)
		}
		return nil
	})
	if err != nil {
		return xerrors.Errorf("db.Update: %w", err)
	}
	return nil
}
