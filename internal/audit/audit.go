// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package audit records privileged and state-changing actions to an
// append-only trail. Logging is best-effort: a failed append is reported on
// stderr and never fails the action being audited.
package audit // import "github.com/hostwarden/hostwarden/internal/audit"

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/hostwarden/hostwarden/internal/logging"
	"github.com/hostwarden/hostwarden/internal/model"
)

// Tail bounds.
const (
	MinTail     = 1
	MaxTail     = 500
	DefaultTail = 50
)

// Backend names accepted by Open.
const (
	BackendFile = "file"
)

// Logger writes audit events to a Sink.
type Logger struct {
	sink Sink
	now  func() time.Time
}

// New wraps sink.
func New(sink Sink) *Logger {
	return &Logger{sink: sink, now: time.Now}
}

// Open builds a logger for backend: "file" keeps JSON lines in dir, any SQL
// type (sqlite, postgres, mysql) uses dsn.
func Open(backend, dsn, dir string) (*Logger, error) {
	if backend == "" || backend == BackendFile {
		return New(NewFileSink(dir)), nil
	}
	sink, err := NewSQLSink(backend, dsn)
	if err != nil {
		return nil, model.StorageError(err, "could not open %s audit backend", backend)
	}
	return New(sink), nil
}

// SetClock replaces the timestamp source, for tests.
func (l *Logger) SetClock(now func() time.Time) { l.now = now }

// Close releases the sink.
func (l *Logger) Close() error { return l.sink.Close() }

// Log appends {ts, kind, data}. It never returns an error; failures are
// reported through the logging package.
func (l *Logger) Log(kind model.AuditKind, data any) {
	raw := []byte("{}")
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			logging.Warnf("audit: could not encode %s event: %v", kind, err)
		} else {
			raw = b
		}
	}
	ev := model.AuditEvent{TS: l.now().Unix(), Kind: kind, Data: raw}
	if err := l.sink.Append(context.Background(), ev); err != nil {
		logging.Warnf("audit: could not record %s event: %v", kind, err)
	}
}

// ClampTail limits n to [MinTail, MaxTail].
func ClampTail(n int) int {
	return max(MinTail, min(n, MaxTail))
}

// Tail returns the newest events, n clamped to [1, 500].
func (l *Logger) Tail(n int) ([]model.AuditEvent, error) {
	evs, err := l.sink.Tail(context.Background(), ClampTail(n))
	if err != nil {
		return nil, model.StorageError(err, "could not read audit log")
	}
	return evs, nil
}

// Export writes the whole trail to w as zstd-compressed JSON lines and
// returns the number of events written.
func (l *Logger) Export(w io.Writer) (int, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("could not create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	count := 0
	err = l.sink.Each(context.Background(), func(ev model.AuditEvent) error {
		count++
		return enc.Encode(ev)
	})
	if err != nil {
		_ = zw.Close()
		return count, model.StorageError(err, "could not export audit log")
	}
	if err := zw.Close(); err != nil {
		return count, model.StorageError(err, "could not finish audit export")
	}
	return count, nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Import appends the events in r, either plain or zstd-compressed JSON lines,
// to the trail. Unparsable lines are skipped. It returns the number of
// events imported.
func (l *Logger) Import(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return 0, fmt.Errorf("could not create zstd reader: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	var evs []model.AuditEvent
	err := eachLine(src, func(line []byte) error {
		if ev, ok := decodeLine(line); ok {
			evs = append(evs, ev)
		}
		return nil
	})
	if err != nil {
		return 0, model.StorageError(err, "could not read audit import")
	}
	if len(evs) == 0 {
		return 0, nil
	}
	if err := l.sink.Append(context.Background(), evs...); err != nil {
		return 0, model.StorageError(err, "could not import audit events")
	}
	return len(evs), nil
}

// MaintainReport describes a finished maintenance run.
type MaintainReport struct {
	Backend string `json:"backend"`
	Events  int    `json:"events"`
}

type maintainer interface {
	Maintain(ctx context.Context) (MaintainReport, error)
}

// Maintain runs backend housekeeping. Only SQL backends support it.
func (l *Logger) Maintain(ctx context.Context) (MaintainReport, error) {
	m, ok := l.sink.(maintainer)
	if !ok {
		return MaintainReport{}, model.Errorf(model.KindUnsupported, "maintenance is only available for SQL audit backends")
	}
	rep, err := m.Maintain(ctx)
	if err != nil {
		return MaintainReport{}, model.StorageError(err, "audit maintenance failed")
	}
	return rep, nil
}
