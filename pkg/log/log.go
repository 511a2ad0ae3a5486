// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log is the leveled logger used by every command and package in
// this module, from the CLI's single-file decode to the daemon's watch
// loop and ops handlers. Date/time is left off by default because systemd
// already timestamps captured output; SetLogDateTime (the config file's
// log-date-time key) re-enables it. The
// six levels are prefixed with the syslog priority codes systemd's journal
// understands natively (see sd-daemon(3)), so `journalctl -p warning` and
// friends work without extra configuration.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

var logDateTime bool

// level bundles one severity's writer, prefix, and the two loggers (with
// and without a timestamp) built from them. Discarding a level's writer
// is how SetLogLevel silences everything below the configured threshold.
type level struct {
	writer io.Writer
	prefix string
	fileFl int
	plain  *log.Logger
	withTS *log.Logger
}

func newLevel(prefix string, fileFlags int) *level {
	lv := &level{writer: os.Stderr, prefix: prefix, fileFl: fileFlags}
	lv.rebuild()
	return lv
}

func (lv *level) rebuild() {
	lv.plain = log.New(lv.writer, lv.prefix, lv.fileFl)
	lv.withTS = log.New(lv.writer, lv.prefix, lv.fileFl|log.LstdFlags)
}

func (lv *level) discard() {
	lv.writer = io.Discard
	lv.rebuild()
}

func (lv *level) output(s string) {
	if lv.writer == io.Discard {
		return
	}
	if logDateTime {
		lv.withTS.Output(3, s)
	} else {
		lv.plain.Output(3, s)
	}
}

var (
	debug = newLevel("<7>[DEBUG]    ", 0)
	info  = newLevel("<6>[INFO]     ", 0)
	note  = newLevel("<5>[NOTICE]   ", log.Lshortfile)
	warn  = newLevel("<4>[WARNING]  ", log.Lshortfile)
	errl  = newLevel("<3>[ERROR]    ", log.Llongfile)
	crit  = newLevel("<2>[CRITICAL] ", log.Llongfile)
)

// DebugWriter through CritWriter expose each level's current sink so a
// caller can hand it to a third-party library instead of going through
// this package's functions — internal/ops does this to feed
// gorilla/handlers.CustomLoggingHandler the info-level sink. These are
// re-synced whenever SetLogLevel changes which levels are discarded.
var (
	DebugWriter = debug.writer
	InfoWriter  = info.writer
	NoteWriter  = note.writer
	WarnWriter  = warn.writer
	ErrWriter   = errl.writer
	CritWriter  = crit.writer
)

func syncExportedWriters() {
	DebugWriter, InfoWriter, NoteWriter = debug.writer, info.writer, note.writer
	WarnWriter, ErrWriter, CritWriter = warn.writer, errl.writer, crit.writer
}

/* CONFIG */

// SetLogLevel silences every level below lvl by routing its writer (and
// every writer below it) to io.Discard. "debug" is the default and logs
// everything; an invalid value falls back to "debug" with a warning
// printed directly to stderr, since the logger isn't configured yet to
// report its own misconfiguration.
func SetLogLevel(lvl string) {
	switch lvl {
	case "crit":
		errl.discard()
		fallthrough
	case "err", "fatal":
		warn.discard()
		fallthrough
	case "warn":
		note.discard()
		fallthrough
	case "notice":
		info.discard()
		fallthrough
	case "info":
		debug.discard()
	case "debug":
		// nothing to discard
	default:
		fmt.Fprintf(os.Stderr, "pkg/log: flag 'loglevel' has invalid value %q, using default 'debug'\n", lvl)
		SetLogLevel("debug")
		return
	}
	syncExportedWriters()
}

// SetLogDateTime turns timestamps on or off for every level at once.
func SetLogDateTime(logdate bool) {
	logDateTime = logdate
}

/* PRINT */

func Print(v ...interface{}) { Info(v...) }

func Debug(v ...interface{}) { debug.output(fmt.Sprint(v...)) }

func Info(v ...interface{}) { info.output(fmt.Sprint(v...)) }

func Note(v ...interface{}) { note.output(fmt.Sprint(v...)) }

func Warn(v ...interface{}) { warn.output(fmt.Sprint(v...)) }

func Error(v ...interface{}) { errl.output(fmt.Sprint(v...)) }

func Crit(v ...interface{}) { crit.output(fmt.Sprint(v...)) }

// Panic logs at error level, then panics. Unlike Fatal this lets a
// recover() further up the call stack (e.g. an HTTP handler's recover
// middleware) keep the process alive; use Fatal when it shouldn't.
func Panic(v ...interface{}) {
	Error(v...)
	panic("panic triggered by pkg/log.Panic")
}

// Fatal logs at error level and exits the process with status 1.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

/* PRINT FORMAT */

func Printf(format string, v ...interface{}) { Infof(format, v...) }

func Debugf(format string, v ...interface{}) { debug.output(fmt.Sprintf(format, v...)) }

func Infof(format string, v ...interface{}) { info.output(fmt.Sprintf(format, v...)) }

func Notef(format string, v ...interface{}) { note.output(fmt.Sprintf(format, v...)) }

func Warnf(format string, v ...interface{}) { warn.output(fmt.Sprintf(format, v...)) }

func Errorf(format string, v ...interface{}) { errl.output(fmt.Sprintf(format, v...)) }

func Critf(format string, v ...interface{}) { crit.output(fmt.Sprintf(format, v...)) }

// Panicf is Panic with a format string.
func Panicf(format string, v ...interface{}) {
	Errorf(format, v...)
	panic("panic triggered by pkg/log.Panicf")
}

// Fatalf is Fatal with a format string.
func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

/* SPECIAL */

// Finfof writes directly to w at info priority and bypasses this
// package's own discard bookkeeping — for a one-off write to a
// caller-supplied destination (a response body, a capture file) that
// still wants the info prefix and optional timestamp but isn't part of
// the regular stderr stream.
func Finfof(w io.Writer, format string, v ...interface{}) {
	if w == io.Discard {
		return
	}
	if logDateTime {
		fmt.Fprintf(w, time.Now().String()+info.prefix+format+"\n", v...)
	} else {
		fmt.Fprintf(w, info.prefix+format+"\n", v...)
	}
}
