// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hostwarden/hostwarden/internal/actions"
	"github.com/hostwarden/hostwarden/internal/config"
	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/security"
	"github.com/hostwarden/hostwarden/internal/testutil"
)

type fakeSystem struct{}

func (fakeSystem) System(context.Context) (model.SystemInfo, error) {
	return model.SystemInfo{Hostname: "box", OS: "linux"}, nil
}

type fixedRecords model.Records

func (r fixedRecords) Records(context.Context) (model.Records, error) { return model.Records(r), nil }

type recordingRemediator struct{ targets []string }

func (r *recordingRemediator) Remediate(_ context.Context, target string) (actions.Result, error) {
	r.targets = append(r.targets, target)
	return actions.Result{OK: true, Message: "done"}, nil
}

type testEnv struct {
	svc   *Service
	now   time.Time
	rem   *recordingRemediator
	state string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{now: testutil.BaseTime, rem: &recordingRemediator{}, state: t.TempDir()}
	cfg := config.Config{StateDir: env.state, Audit: config.AuditConfig{Backend: "file"}}
	svc, err := New(cfg,
		WithClock(func() time.Time { return env.now }),
		WithSystemProbe(fakeSystem{}),
		WithRemediators(env.rem, env.rem, env.rem),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	env.svc = svc
	return env
}

func TestScanTwiceThenDiff(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	report := env.svc.Diff(false)
	if report.OK() || report.Diff.Kind == nil || *report.Diff.Kind != model.KindInsufficientData {
		t.Fatalf("expected insufficient_data before any scan, got %+v", report.Diff)
	}
	if report.Risk.Severity != model.SeverityInfo || report.Risk.Score != 0 {
		t.Fatalf("failed diff should score info/0, got %+v", report.Risk)
	}

	first, err := env.svc.Scan(ctx, fixedRecords{Processes: testutil.Procs("sshd")})
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	env.now = env.now.Add(time.Minute)
	if _, err := env.svc.Scan(ctx, fixedRecords{
		Processes:      testutil.Procs("sshd", "miner"),
		ListeningPorts: testutil.Ports("tcp", "0.0.0.0:4444"),
	}); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if first.Counts["processes"] != 1 {
		t.Fatalf("unexpected counts %v", first.Counts)
	}

	report = env.svc.Diff(false)
	if !report.OK() {
		t.Fatalf("diff failed: %+v", report.Diff)
	}
	if got := report.Diff.Processes.Added; len(got) != 1 || got[0] != "miner" {
		t.Fatalf("added processes = %v", got)
	}
	if report.Risk.Score == 0 {
		t.Fatalf("expected a non-zero score, got %+v", report.Risk)
	}

	if _, err := env.svc.IgnoreAdd("processes", "miner"); err != nil {
		t.Fatalf("IgnoreAdd: %v", err)
	}
	report = env.svc.Diff(false)
	if len(report.Diff.Processes.Added) != 0 {
		t.Fatalf("ignored process still reported: %v", report.Diff.Processes.Added)
	}
}

func TestBaselineAcceptAndDiff(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	if r := env.svc.Diff(true); r.Diff.Kind == nil || *r.Diff.Kind != model.KindNoBaseline {
		t.Fatalf("expected no_baseline, got %+v", r.Diff)
	}
	res, err := env.svc.Scan(ctx, fixedRecords{Processes: testutil.Procs("sshd")})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := env.svc.BaselineAccept(filepath.Base(res.Path)); err != nil {
		t.Fatalf("BaselineAccept: %v", err)
	}
	b, err := env.svc.Baseline()
	if err != nil || b == nil || b.Snapshot != res.Path {
		t.Fatalf("Baseline = %+v, %v", b, err)
	}
	env.now = env.now.Add(time.Minute)
	if _, err := env.svc.Scan(ctx, fixedRecords{Processes: testutil.Procs("sshd", "nc")}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	r := env.svc.Diff(true)
	if !r.OK() || len(r.Diff.Processes.Added) != 1 {
		t.Fatalf("baseline diff = %+v", r.Diff)
	}

	if _, err := env.svc.BaselineAccept("missing.json"); !model.IsKind(err, model.KindInvalidSnapshotRef) {
		t.Fatalf("expected invalid_snapshot_ref, got %v", err)
	}
}

func TestActionsRequireOwnerToken(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	if _, err := env.svc.StartupDisable(ctx, "nope", "updater"); !model.IsKind(err, model.KindNoActiveSession) {
		t.Fatalf("expected no_active_session, got %v", err)
	}
	if replaced, err := env.svc.OwnerInit(security.FromString("1111")); err != nil || replaced {
		t.Fatalf("first OwnerInit = %v, %v", replaced, err)
	}
	if replaced, err := env.svc.OwnerInit(security.FromString("4321")); err != nil || !replaced {
		t.Fatalf("second OwnerInit must replace the PIN, got %v, %v", replaced, err)
	}
	sess, err := env.svc.OwnerVerify(security.FromString("4321"), time.Minute)
	if err != nil {
		t.Fatalf("OwnerVerify: %v", err)
	}
	if _, err := env.svc.ServiceStop(ctx, "wrong", "evil"); !model.IsKind(err, model.KindInvalidToken) {
		t.Fatalf("expected invalid_token, got %v", err)
	}
	if len(env.rem.targets) != 0 {
		t.Fatalf("remediator ran without a valid token: %v", env.rem.targets)
	}
	res, err := env.svc.TaskDisable(ctx, sess.Token, "Updater")
	if err != nil || !res.OK {
		t.Fatalf("TaskDisable = %+v, %v", res, err)
	}
	if len(env.rem.targets) != 1 || env.rem.targets[0] != "Updater" {
		t.Fatalf("remediator targets = %v", env.rem.targets)
	}

	had, err := env.svc.OwnerLogout()
	if err != nil || !had {
		t.Fatalf("OwnerLogout = %v, %v", had, err)
	}
	if _, err := env.svc.TaskDisable(ctx, sess.Token, "Updater"); !model.IsKind(err, model.KindNoActiveSession) {
		t.Fatalf("expected no_active_session after logout, got %v", err)
	}

	evs, err := env.svc.AuditTail(50)
	if err != nil {
		t.Fatalf("AuditTail: %v", err)
	}
	kinds := map[model.AuditKind]int{}
	for _, ev := range evs {
		kinds[ev.Kind]++
	}
	for _, k := range []model.AuditKind{model.AuditOwnerInit, model.AuditOwnerVerify, model.AuditOwnerLogout, model.AuditTasksDisable, model.AuditServicesStop, model.AuditStartupDisable} {
		if kinds[k] == 0 {
			t.Errorf("no %s event in %v", k, kinds)
		}
	}
}

func TestSuspiciousServicesUsesNewestSnapshot(t *testing.T) {
	env := newEnv(t)
	if _, _, err := env.svc.SuspiciousServices(""); !model.IsKind(err, model.KindInsufficientData) {
		t.Fatalf("expected insufficient_data, got %v", err)
	}
	rec := fixedRecords{Services: []model.Service{
		{ServiceName: "openssh", DisplayName: "OpenSSH server", State: "running"},
		{ServiceName: "xmrminer", DisplayName: "", State: "stopped"},
	}}
	if _, err := env.svc.Scan(context.Background(), rec); err != nil {
		t.Fatalf("scan: %v", err)
	}
	flags, path, err := env.svc.SuspiciousServices("")
	if err != nil {
		t.Fatalf("SuspiciousServices: %v", err)
	}
	if path == "" || len(flags) != 1 || flags[0].ServiceName != "xmrminer" {
		t.Fatalf("flags = %+v (path %q)", flags, path)
	}
}

func TestImportSnapshot(t *testing.T) {
	env := newEnv(t)
	snap := testutil.Snapshot("other", 0, model.Records{Processes: testutil.Procs("init")})
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	src := filepath.Join(t.TempDir(), "incoming.json")
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := env.svc.ImportSnapshot(src)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if filepath.Base(path) != snap.FileName() {
		t.Fatalf("imported as %s, want %s", path, snap.FileName())
	}
	if _, err := env.svc.ImportSnapshot(src); err == nil {
		t.Fatalf("second import should refuse to overwrite")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := env.svc.ImportSnapshot(bad); !model.IsKind(err, model.KindInvalidSnapshot) {
		t.Fatalf("expected invalid_snapshot, got %v", err)
	}
}
