// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package snapshot locates, orders, loads and persists snapshot documents.
package snapshot // import "github.com/hostwarden/hostwarden/internal/snapshot"

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hostwarden/hostwarden/internal/docstore"
	"github.com/hostwarden/hostwarden/internal/model"
)

const fileSuffix = ".json"

// Entry is one snapshot file on disk.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Time time.Time `json:"time"`
}

// Store manages the snapshot directory.
type Store struct {
	Dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// List returns all snapshot files ordered oldest to newest. Ordering uses the
// timestamp encoded in the file name, with the name as tie-breaker; files
// whose name carries no parsable timestamp sort first.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, model.StorageError(err, "could not list snapshots in %s", s.Dir)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), fileSuffix) {
			continue
		}
		ts, _ := TimeFromName(d.Name())
		entries = append(entries, Entry{
			Name: d.Name(),
			Path: filepath.Join(s.Dir, d.Name()),
			Time: ts,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Time.Equal(entries[j].Time) {
			return entries[i].Time.Before(entries[j].Time)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Latest returns up to n newest entries, still ordered oldest to newest.
func (s *Store) Latest(n int) ([]Entry, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// TimeFromName extracts the UTC timestamp from <hostname>_<YYYYMMDD_HHMMSS>.json.
func TimeFromName(name string) (time.Time, bool) {
	base := strings.TrimSuffix(filepath.Base(name), fileSuffix)
	if len(base) < len(model.TimestampLayout) {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(model.TimestampLayout, base[len(base)-len(model.TimestampLayout):], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Resolve turns a user-supplied reference into an existing snapshot path.
// A reference is either a path to a file or a file name inside the store.
func (s *Store) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", model.Errorf(model.KindInvalidSnapshotRef, "snapshot reference is empty")
	}
	if !strings.HasSuffix(ref, fileSuffix) {
		return "", model.Errorf(model.KindInvalidSnapshotRef, "snapshot reference %q is not a %s file", ref, fileSuffix)
	}
	if fileExists(ref) {
		return ref, nil
	}
	alt := filepath.Join(s.Dir, filepath.Base(ref))
	if fileExists(alt) {
		return alt, nil
	}
	return "", model.Errorf(model.KindInvalidSnapshotRef, "snapshot not found: %s", ref)
}

// Load reads and validates the snapshot at path.
func (s *Store) Load(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.Snapshot{}, model.Errorf(model.KindInvalidSnapshotRef, "snapshot not found: %s", path)
		}
		return model.Snapshot{}, model.StorageError(err, "could not read snapshot %s", path)
	}
	snap, err := model.DecodeSnapshot(data)
	if err != nil {
		e := model.AsError(err)
		e.Message = filepath.Base(path) + ": " + e.Message
		return model.Snapshot{}, e
	}
	return snap, nil
}

// LoadRef resolves ref and loads the snapshot it names.
func (s *Store) LoadRef(ref string) (model.Snapshot, string, error) {
	path, err := s.Resolve(ref)
	if err != nil {
		return model.Snapshot{}, "", err
	}
	snap, err := s.Load(path)
	return snap, path, err
}

// Save writes snap under its canonical file name and returns the path.
// Snapshots are never rewritten once saved.
func (s *Store) Save(snap model.Snapshot) (string, error) {
	path := filepath.Join(s.Dir, snap.FileName())
	if fileExists(path) {
		return "", model.Errorf(model.KindInvalidSnapshotRef, "snapshot already exists: %s", path)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", model.StorageError(err, "could not encode snapshot")
	}
	if err := docstore.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", model.StorageError(err, "could not write snapshot")
	}
	return path, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
