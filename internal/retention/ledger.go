// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package retention holds the operator's noise-reduction state: the ignore
// list applied to every diff and the pointer to the accepted baseline
// snapshot.
package retention // import "github.com/hostwarden/hostwarden/internal/retention"

import (
	"path/filepath"
	"slices"

	"github.com/hostwarden/hostwarden/internal/docstore"
	"github.com/hostwarden/hostwarden/internal/model"
)

// Document file names inside the state directory.
const (
	IgnoreFile   = "ignore.json"
	BaselineFile = "baseline.json"
)

// Ledger manages the ignore list and baseline pointer documents.
type Ledger struct {
	ignore   docstore.Repository[model.IgnoreList]
	baseline docstore.Repository[model.Baseline]
}

// NewLedger builds a ledger over the given repositories.
func NewLedger(ignore docstore.Repository[model.IgnoreList], baseline docstore.Repository[model.Baseline]) *Ledger {
	return &Ledger{ignore: ignore, baseline: baseline}
}

// NewFileLedger stores both documents as JSON files in stateDir.
func NewFileLedger(stateDir string) *Ledger {
	return NewLedger(
		docstore.NewFile[model.IgnoreList](filepath.Join(stateDir, IgnoreFile), 0o644),
		docstore.NewFile[model.Baseline](filepath.Join(stateDir, BaselineFile), 0o644),
	)
}

// LoadIgnore returns the ignore list, defaulting to empty sets.
func (l *Ledger) LoadIgnore() (model.IgnoreList, error) {
	list, _, err := l.ignore.Load()
	if err != nil {
		return model.IgnoreList{}, model.StorageError(err, "could not load ignore list")
	}
	return normalize(list), nil
}

// IgnoreAdd appends value to category's set unless already present.
func (l *Ledger) IgnoreAdd(category, value string) (model.IgnoreList, error) {
	probe := model.EmptyIgnoreList()
	if probe.Values(category) == nil {
		return model.IgnoreList{}, model.Errorf(model.KindInvalidCategory,
			"unknown ignore category %q (expected processes, ports or paths)", category)
	}
	if value == "" {
		return model.IgnoreList{}, model.Errorf(model.KindInvalidCategory, "ignore value must not be empty")
	}

	var out model.IgnoreList
	err := l.ignore.Update(func(cur model.IgnoreList, _ bool) (model.IgnoreList, docstore.Op, error) {
		cur = normalize(cur)
		set := cur.Values(category)
		if slices.Contains(*set, value) {
			out = cur
			return cur, docstore.Keep, nil
		}
		*set = append(*set, value)
		out = cur
		return cur, docstore.Put, nil
	})
	if err != nil {
		return model.IgnoreList{}, model.StorageError(err, "could not update ignore list")
	}
	return out, nil
}

// ApplyIgnore loads the ignore list and suppresses matching keys in d.
func (l *Ledger) ApplyIgnore(d model.DiffResult) (model.DiffResult, error) {
	list, err := l.LoadIgnore()
	if err != nil {
		return model.DiffResult{}, err
	}
	return Suppress(d, list), nil
}

// Suppress removes ignored keys from the processes and ports categories of
// a deep copy of d. Persistence-surface categories are never suppressed.
func Suppress(d model.DiffResult, list model.IgnoreList) model.DiffResult {
	out := d.Clone()
	filter(&out.Processes, list.Processes)
	filter(&out.Ports, list.Ports)
	return out
}

func filter(c *model.CategoryDiff, ignored []string) {
	if len(ignored) == 0 {
		return
	}
	skip := make(map[string]struct{}, len(ignored))
	for _, v := range ignored {
		skip[v] = struct{}{}
	}
	c.Added = without(c.Added, skip)
	c.Removed = without(c.Removed, skip)
}

func without(keys []string, skip map[string]struct{}) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := skip[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

// BaselineSet stores path as the trusted baseline, replacing any previous
// pointer. The path is validated only when a diff uses it.
func (l *Ledger) BaselineSet(path string) (model.Baseline, error) {
	b := model.Baseline{Snapshot: path}
	if err := l.baseline.Save(b); err != nil {
		return model.Baseline{}, model.StorageError(err, "could not save baseline")
	}
	return b, nil
}

// BaselineGet returns the stored pointer, or nil when no baseline is set.
func (l *Ledger) BaselineGet() (*model.Baseline, error) {
	b, exists, err := l.baseline.Load()
	if err != nil {
		return nil, model.StorageError(err, "could not load baseline")
	}
	if !exists || b.Snapshot == "" {
		return nil, nil
	}
	return &b, nil
}

func normalize(l model.IgnoreList) model.IgnoreList {
	if l.Processes == nil {
		l.Processes = []string{}
	}
	if l.Ports == nil {
		l.Ports = []string{}
	}
	if l.Paths == nil {
		l.Paths = []string{}
	}
	return l
}
