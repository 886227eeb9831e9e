// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/model"
)

// BaseTime is the timestamp of the first fixture snapshot.
var BaseTime = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

// Snapshot builds a current-schema snapshot for host taken offset after BaseTime.
func Snapshot(host string, offset time.Duration, rec model.Records) model.Snapshot {
	return model.NewSnapshot(BaseTime.Add(offset), model.SystemInfo{Hostname: host, OS: "linux"}, rec)
}

// WriteSnapshot writes snap into dir under its canonical name and returns the path.
func WriteSnapshot(t *testing.T, dir string, snap model.Snapshot) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	path := filepath.Join(dir, snap.FileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

// Procs builds process records from names.
func Procs(names ...string) []model.Process {
	out := make([]model.Process, 0, len(names))
	for i, n := range names {
		out = append(out, model.Process{PID: 100 + i, Name: n})
	}
	return out
}

// Ports builds listening-port records from proto/local pairs.
func Ports(pairs ...string) []model.ListeningPort {
	out := make([]model.ListeningPort, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.ListeningPort{Proto: pairs[i], Local: pairs[i+1]})
	}
	return out
}
