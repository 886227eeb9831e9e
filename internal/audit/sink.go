// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/hostwarden/hostwarden/internal/db"
	"github.com/hostwarden/hostwarden/internal/model"
)

// Sink is an append-only store for audit events.
type Sink interface {
	Append(ctx context.Context, evs ...model.AuditEvent) error
	// Tail returns at most the newest n events, oldest first. Records that
	// cannot be decoded are skipped and not replaced.
	Tail(ctx context.Context, n int) ([]model.AuditEvent, error)
	// Each visits every readable event in append order.
	Each(ctx context.Context, fn func(model.AuditEvent) error) error
	Close() error
}

// FileName is the JSON-lines trail inside the audit directory.
const FileName = "events.jsonl"

// maxLine bounds a single audit line when reading the trail. Longer lines
// are skipped.
const maxLine = 1 << 20

// FileSink appends events as JSON lines to a single file.
type FileSink struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileSink stores events in dir/events.jsonl.
func NewFileSink(dir string) *FileSink {
	path := filepath.Join(dir, FileName)
	return &FileSink{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the trail location.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("could not create audit directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("could not lock %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *FileSink) Append(_ context.Context, evs ...model.AuditEvent) error {
	var buf bytes.Buffer
	for _, ev := range evs {
		line, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("could not encode audit event: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return s.withLock(func() error {
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", s.path, err)
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not append to %s: %w", s.path, err)
		}
		return f.Close()
	})
}

func (s *FileSink) Tail(ctx context.Context, n int) ([]model.AuditEvent, error) {
	var lines [][]byte
	err := s.scan(func(line []byte) error {
		lines = append(lines, bytes.Clone(line))
		if len(lines) > n {
			lines = lines[1:]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.AuditEvent, 0, len(lines))
	for _, l := range lines {
		if ev, ok := decodeLine(l); ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *FileSink) Each(ctx context.Context, fn func(model.AuditEvent) error) error {
	return s.scan(func(line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ev, ok := decodeLine(line); ok {
			return fn(ev)
		}
		return nil
	})
}

func (s *FileSink) Close() error { return nil }

func (s *FileSink) scan(fn func(line []byte) error) error {
	return s.withLock(func() error {
		f, err := os.Open(s.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("could not open %s: %w", s.path, err)
		}
		defer func() { _ = f.Close() }()

		return eachLine(f, fn)
	})
}

// eachLine calls fn with every non-blank line of r, trimmed. Lines longer
// than maxLine are discarded and reported as nil so callers count them
// like any other undecodable record.
func eachLine(r io.Reader, fn func(line []byte) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > maxLine {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if oversized {
			if ferr := fn(nil); ferr != nil {
				return ferr
			}
		} else if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if ferr := fn(trimmed); ferr != nil {
				return ferr
			}
		}
		line = line[:0]
		oversized = false
		if err != nil {
			return nil
		}
	}
}

func decodeLine(line []byte) (model.AuditEvent, bool) {
	var ev model.AuditEvent
	if err := json.Unmarshal(line, &ev); err != nil || ev.Kind == "" {
		return model.AuditEvent{}, false
	}
	return ev, true
}

// SQLSink stores events in the audit_events table of a db.Store.
type SQLSink struct {
	store *db.Store
}

// NewSQLSink opens and migrates the database behind dsn.
func NewSQLSink(dbType, dsn string) (*SQLSink, error) {
	s, err := db.Open(dbType, dsn)
	if err != nil {
		return nil, err
	}
	return &SQLSink{store: s}, nil
}

func (s *SQLSink) Append(ctx context.Context, evs ...model.AuditEvent) error {
	if len(evs) == 1 {
		return s.store.AppendEvent(ctx, evs[0])
	}
	return s.store.AppendEvents(ctx, evs)
}

func (s *SQLSink) Tail(ctx context.Context, n int) ([]model.AuditEvent, error) {
	return s.store.TailEvents(ctx, n)
}

func (s *SQLSink) Each(ctx context.Context, fn func(model.AuditEvent) error) error {
	return s.store.EachEvent(ctx, fn)
}

func (s *SQLSink) Close() error { return s.store.Close() }

// Maintain runs database housekeeping and reports the remaining event count.
func (s *SQLSink) Maintain(ctx context.Context) (MaintainReport, error) {
	if err := s.store.Maintain(ctx); err != nil {
		return MaintainReport{}, err
	}
	n, err := s.store.CountEvents(ctx)
	if err != nil {
		return MaintainReport{}, err
	}
	return MaintainReport{Backend: s.store.Type(), Events: n}, nil
}
