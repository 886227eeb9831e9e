// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package diff compares snapshots category by category. Every result leaving
// the engine has been passed through the retention ledger's ignore list.
package diff // import "github.com/hostwarden/hostwarden/internal/diff"

import (
	"path/filepath"
	"sort"

	"github.com/hostwarden/hostwarden/internal/logging"
	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/retention"
	"github.com/hostwarden/hostwarden/internal/snapshot"
)

// Engine diffs snapshots from a store, suppressing ignored keys.
type Engine struct {
	store  *snapshot.Store
	ledger *retention.Ledger
}

// New returns an engine reading snapshots from store and suppression rules
// from ledger.
func New(store *snapshot.Store, ledger *retention.Ledger) *Engine {
	return &Engine{store: store, ledger: ledger}
}

// Compare computes the raw category-wise difference between a and b without
// applying the ignore list.
func Compare(a, b model.Snapshot) model.DiffResult {
	return model.DiffResult{
		OK:             true,
		Changes:        systemChanges(a.System, b.System),
		Processes:      compare(processKeys(a.Processes), processKeys(b.Processes)),
		Ports:          compare(portKeys(a.ListeningPorts), portKeys(b.ListeningPorts)),
		Startup:        compare(startupKeys(a.Startup), startupKeys(b.Startup)),
		ScheduledTasks: compare(taskKeys(a.ScheduledTasks), taskKeys(b.ScheduledTasks)),
		Services:       compare(serviceKeys(a.Services), serviceKeys(b.Services)),
	}
}

func systemChanges(a, b model.SystemInfo) map[string]model.FieldChange {
	af, bf := a.Fields(), b.Fields()
	names := make([]string, 0, len(af))
	for k := range af {
		names = append(names, k)
	}
	sort.Strings(names)
	changes := map[string]model.FieldChange{}
	for _, k := range names {
		if af[k] != bf[k] {
			changes[k] = model.FieldChange{From: af[k], To: bf[k]}
		}
	}
	return changes
}

// Diff compares a to b and suppresses ignored processes and ports.
func (e *Engine) Diff(a, b model.Snapshot) (model.DiffResult, error) {
	return e.ledger.ApplyIgnore(Compare(a, b))
}

// LatestTwo diffs the two most recent snapshots in the store.
func (e *Engine) LatestTwo() (model.DiffResult, error) {
	entries, err := e.store.Latest(2)
	if err != nil {
		return model.DiffResult{}, err
	}
	if len(entries) < 2 {
		return model.DiffResult{}, insufficient(len(entries))
	}
	return e.diffPaths(entries[0].Path, entries[1].Path)
}

// AgainstBaseline diffs the accepted baseline against the newest snapshot.
func (e *Engine) AgainstBaseline() (model.DiffResult, error) {
	b, err := e.ledger.BaselineGet()
	if err != nil {
		return model.DiffResult{}, err
	}
	if b == nil {
		return model.DiffResult{}, model.Errorf(model.KindNoBaseline,
			"no baseline accepted; run `hostwarden baseline accept <snapshot>` first")
	}
	if _, err := e.store.Load(b.Snapshot); err != nil {
		if model.IsKind(err, model.KindInvalidSnapshotRef) {
			return model.DiffResult{}, model.Errorf(model.KindMissingBaselineFile,
				"baseline snapshot no longer exists: %s", b.Snapshot).With("baseline", b.Snapshot)
		}
		return model.DiffResult{}, err
	}
	entries, err := e.store.Latest(1)
	if err != nil {
		return model.DiffResult{}, err
	}
	if len(entries) == 0 {
		return model.DiffResult{}, model.Errorf(model.KindInsufficientData,
			"no snapshots found; run `hostwarden scan` first").With("snapshots_found", 0)
	}
	return e.diffPaths(b.Snapshot, entries[0].Path)
}

func (e *Engine) diffPaths(from, to string) (model.DiffResult, error) {
	a, err := e.store.Load(from)
	if err != nil {
		return model.DiffResult{}, err
	}
	b, err := e.store.Load(to)
	if err != nil {
		return model.DiffResult{}, err
	}
	logging.Debugf("diff %s -> %s", filepath.Base(from), filepath.Base(to))
	d, err := e.Diff(a, b)
	if err != nil {
		return model.DiffResult{}, err
	}
	d.From = filepath.Base(from)
	d.To = filepath.Base(to)
	return d, nil
}

func insufficient(found int) *model.Error {
	return model.Errorf(model.KindInsufficientData,
		"need at least 2 snapshots; run `hostwarden scan` twice").With("snapshots_found", found)
}

// Failure converts an error into an ok:false diff result carrying its kind
// and message.
func Failure(err error) model.DiffResult {
	e := model.AsError(err)
	kind := e.Kind
	d := model.DiffResult{OK: false, Kind: &kind, Message: e.Message}
	if n, ok := e.Details["snapshots_found"].(int); ok {
		d.SnapshotsFound = &n
	}
	return d
}
