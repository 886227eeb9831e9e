// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/uptrace/bun"

	"github.com/hostwarden/hostwarden/internal/model"
)

// AuditEventModel maps the audit_events table.
type AuditEventModel struct {
	bun.BaseModel `bun:"table:audit_events"`
	ID            int64  `bun:"id,pk,autoincrement"`
	TS            int64  `bun:"ts"`
	Kind          string `bun:"kind"`
	Data          string `bun:"data"`
}

func (m AuditEventModel) event() (model.AuditEvent, error) {
	if !json.Valid([]byte(m.Data)) {
		return model.AuditEvent{}, fmt.Errorf("audit event %d has malformed data", m.ID)
	}
	return model.AuditEvent{TS: m.TS, Kind: model.AuditKind(m.Kind), Data: json.RawMessage(m.Data)}, nil
}

// AppendEvent inserts one audit event.
func (s *Store) AppendEvent(ctx context.Context, ev model.AuditEvent) error {
	data := string(ev.Data)
	if data == "" {
		data = "{}"
	}
	m := &AuditEventModel{TS: ev.TS, Kind: string(ev.Kind), Data: data}
	_, err := s.bun.NewInsert().Model(m).Exec(ctx)
	return MapDBError(err)
}

// TailEvents returns the newest n events, oldest first. Rows whose data is
// not valid JSON are skipped.
func (s *Store) TailEvents(ctx context.Context, n int) ([]model.AuditEvent, error) {
	var rows []AuditEventModel
	if err := s.bun.NewSelect().Model(&rows).OrderExpr("id DESC").Limit(n).Scan(ctx); err != nil {
		return nil, err
	}
	slices.Reverse(rows)
	return toEvents(rows), nil
}

// EachEvent streams every event in insertion order.
func (s *Store) EachEvent(ctx context.Context, fn func(model.AuditEvent) error) error {
	const page = 500
	var lastID int64
	for {
		var rows []AuditEventModel
		err := s.bun.NewSelect().Model(&rows).
			Where("id > ?", lastID).
			OrderExpr("id ASC").
			Limit(page).
			Scan(ctx)
		if err != nil {
			return err
		}
		for _, ev := range toEvents(rows) {
			if err := fn(ev); err != nil {
				return err
			}
		}
		if len(rows) < page {
			return nil
		}
		lastID = rows[len(rows)-1].ID
	}
}

// AppendEvents inserts evs in one transaction, so an import either lands
// completely or not at all.
func (s *Store) AppendEvents(ctx context.Context, evs []model.AuditEvent) error {
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		for _, ev := range evs {
			data := string(ev.Data)
			if data == "" {
				data = "{}"
			}
			if _, err := ExecRaw(ctx, tx, "INSERT INTO audit_events (ts, kind, data) VALUES (?, ?, ?)", ev.TS, string(ev.Kind), data); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := QueryRawInto(ctx, s.bun, &n, "SELECT COUNT(*) FROM audit_events"); err != nil {
		return 0, err
	}
	return n, nil
}

func toEvents(rows []AuditEventModel) []model.AuditEvent {
	out := make([]model.AuditEvent, 0, len(rows))
	for _, r := range rows {
		ev, err := r.event()
		if err != nil {
			dbLogf("db: %v", err)
			continue
		}
		out = append(out, ev)
	}
	return out
}
