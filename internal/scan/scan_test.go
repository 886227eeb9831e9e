// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/snapshot"
	"github.com/hostwarden/hostwarden/internal/testutil"
)

type fixedSystem struct{ info model.SystemInfo }

func (f fixedSystem) System(context.Context) (model.SystemInfo, error) { return f.info, nil }

func TestScan_SavesNormalizedSnapshot(t *testing.T) {
	dir := t.TempDir()
	collector := filepath.Join(dir, "records.json")
	doc := `{
  "processes": [{"pid": 9, "name": "zsh"}, {"pid": 3, "name": "Bash"}, {"pid": 1, "name": "bash"}],
  "listening_ports": [{"proto": "UDP", "local": "0.0.0.0:53", "pid": null}, {"proto": "TCP", "local": "127.0.0.1:22", "pid": 7}],
  "services": [{"service_name": "sshd", "display_name": "OpenSSH", "state": "running"}]
}`
	if err := os.WriteFile(collector, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	store := snapshot.NewStore(filepath.Join(dir, "snapshots"))
	s := &Scanner{
		System:  fixedSystem{model.SystemInfo{Hostname: "box", OS: "linux"}},
		Records: CollectorOutput{Path: collector},
		Store:   store,
		Now:     func() time.Time { return testutil.BaseTime },
	}
	snap, path, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if filepath.Base(path) != "box_20260110_080000.json" {
		t.Fatalf("unexpected snapshot path %s", path)
	}
	if snap.Schema != model.SchemaCurrent {
		t.Fatalf("unexpected schema %s", snap.Schema)
	}
	if snap.Processes[0].PID != 1 || snap.Processes[1].PID != 3 || snap.Processes[2].Name != "zsh" {
		t.Fatalf("processes not normalized: %+v", snap.Processes)
	}
	if snap.ListeningPorts[0].Proto != "TCP" {
		t.Fatalf("ports not normalized: %+v", snap.ListeningPorts)
	}
	if snap.Startup == nil || snap.ScheduledTasks == nil {
		t.Fatalf("missing categories must be empty lists")
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Services) != 1 || loaded.System.Hostname != "box" {
		t.Fatalf("unexpected loaded snapshot %+v", loaded)
	}

	if _, _, err := s.Scan(context.Background()); !model.IsKind(err, model.KindInvalidSnapshotRef) {
		t.Fatalf("a second scan in the same second must not overwrite, got %v", err)
	}
}

func TestCollectorOutput_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := (CollectorOutput{Path: filepath.Join(dir, "missing.json")}).Records(context.Background()); !model.IsKind(err, model.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("[1,2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (CollectorOutput{Path: bad}).Records(context.Background()); !model.IsKind(err, model.KindInvalidSnapshot) {
		t.Fatalf("expected invalid_snapshot, got %v", err)
	}
	rec, err := CollectorOutput{Path: "-", In: strings.NewReader(`{"processes":[{"pid":1,"name":"init"}]}`)}.Records(context.Background())
	if err != nil || len(rec.Processes) != 1 {
		t.Fatalf("stdin records = %+v, %v", rec, err)
	}
}

func TestHostProbe(t *testing.T) {
	info, err := HostProbe{}.System(context.Background())
	if err != nil {
		t.Fatalf("System: %v", err)
	}
	if info.OS == "" || info.Machine == "" {
		t.Fatalf("expected OS and machine to be set, got %+v", info)
	}
}
