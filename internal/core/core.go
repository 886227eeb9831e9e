// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core wires the snapshot store, ledger, diff engine, risk scorer,
// owner authenticator, audit log and remediation gate into the operations
// exposed to UI layers. Functions return results and structured errors and
// never print.
package core // import "github.com/hostwarden/hostwarden/internal/core"

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/hostwarden/hostwarden/internal/actions"
	"github.com/hostwarden/hostwarden/internal/audit"
	"github.com/hostwarden/hostwarden/internal/config"
	"github.com/hostwarden/hostwarden/internal/diff"
	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/owner"
	"github.com/hostwarden/hostwarden/internal/retention"
	"github.com/hostwarden/hostwarden/internal/risk"
	"github.com/hostwarden/hostwarden/internal/scan"
	"github.com/hostwarden/hostwarden/internal/security"
	"github.com/hostwarden/hostwarden/internal/snapshot"
)

// Service is the composed application.
type Service struct {
	cfg     config.Config
	store   *snapshot.Store
	ledger  *retention.Ledger
	engine  *diff.Engine
	owner   *owner.Authenticator
	audit   *audit.Logger
	gate    *actions.Gate
	startup actions.Remediator
	tasks   actions.Remediator
	svcs    actions.Remediator
	system  scan.SystemProbe
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for scans and tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSystemProbe replaces the host identity probe.
func WithSystemProbe(p scan.SystemProbe) Option {
	return func(s *Service) { s.system = p }
}

// WithRemediators replaces the startup, task and service remediators.
func WithRemediators(startup, tasks, services actions.Remediator) Option {
	return func(s *Service) {
		s.startup, s.tasks, s.svcs = startup, tasks, services
	}
}

// New opens every component below cfg.StateDir.
func New(cfg config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, system: scan.HostProbe{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	auditLog, err := audit.Open(cfg.Audit.Backend, cfg.Audit.DSN, cfg.AuditDir())
	if err != nil {
		return nil, err
	}
	auditLog.SetClock(s.now)

	s.store = snapshot.NewStore(cfg.SnapshotsDir())
	s.ledger = retention.NewFileLedger(cfg.StateFilesDir())
	s.engine = diff.New(s.store, s.ledger)
	s.owner = owner.NewFile(cfg.StateFilesDir(), owner.WithClock(s.now))
	s.audit = auditLog
	s.gate = actions.NewGate(s.owner, s.audit)

	if s.startup == nil {
		folders := cfg.Actions.StartupFolders
		if len(folders) == 0 {
			folders = actions.DefaultStartupFolders()
		}
		s.startup = actions.StartupDisabler{Folders: folders}
	}
	if s.tasks == nil {
		s.tasks = actions.Command{Template: orDefault(cfg.Actions.TaskDisableCommand, actions.DefaultTaskDisableCommand()), Success: "task disabled"}
	}
	if s.svcs == nil {
		s.svcs = actions.Command{Template: orDefault(cfg.Actions.ServiceStopCommand, actions.DefaultServiceStopCommand()), Success: "service stop requested"}
	}
	return s, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// Close releases the audit backend.
func (s *Service) Close() error { return s.audit.Close() }

// Config returns the configuration the service was built from.
func (s *Service) Config() config.Config { return s.cfg }

// EnsureLayout creates the runtime directories.
func (s *Service) EnsureLayout() error {
	for _, dir := range []string{s.cfg.SnapshotsDir(), s.cfg.StateFilesDir(), s.cfg.AuditDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return model.StorageError(err, "could not create %s", dir)
		}
	}
	return nil
}

// ScanResult reports a saved snapshot.
type ScanResult struct {
	Path     string         `json:"path"`
	Snapshot model.Snapshot `json:"-"`
	Counts   map[string]int `json:"counts"`
}

// Scan captures a snapshot from records and saves it.
func (s *Service) Scan(ctx context.Context, records scan.RecordsProbe) (ScanResult, error) {
	sc := &scan.Scanner{System: s.system, Records: records, Store: s.store, Now: s.now}
	snap, path, err := sc.Scan(ctx)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{
		Path:     path,
		Snapshot: snap,
		Counts: map[string]int{
			string(model.CategoryProcesses):      len(snap.Processes),
			string(model.CategoryPorts):          len(snap.ListeningPorts),
			string(model.CategoryStartup):        len(snap.Startup),
			string(model.CategoryScheduledTasks): len(snap.ScheduledTasks),
			string(model.CategoryServices):       len(snap.Services),
		},
	}, nil
}

// Snapshots lists stored snapshots oldest first.
func (s *Service) Snapshots() ([]snapshot.Entry, error) { return s.store.List() }

// Snapshot loads the snapshot named by ref; an empty ref means the newest.
func (s *Service) Snapshot(ref string) (model.Snapshot, string, error) {
	if ref == "" {
		entries, err := s.store.Latest(1)
		if err != nil {
			return model.Snapshot{}, "", err
		}
		if len(entries) == 0 {
			return model.Snapshot{}, "", model.Errorf(model.KindInsufficientData,
				"no snapshots found; run `hostwarden scan` first").With("snapshots_found", 0)
		}
		ref = entries[0].Path
	}
	return s.store.LoadRef(ref)
}

// ImportSnapshot validates the document at path, upgrades it to the current
// schema and stores it under its canonical name.
func (s *Service) ImportSnapshot(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", model.Errorf(model.KindInvalidSnapshotRef, "snapshot not found: %s", path)
		}
		return "", model.StorageError(err, "could not read %s", path)
	}
	snap, err := model.DecodeSnapshot(data)
	if err != nil {
		return "", err
	}
	return s.store.Save(snap)
}

// Report pairs a diff with its risk assessment.
type Report struct {
	Diff model.DiffResult `json:"diff"`
	Risk model.Assessment `json:"risk"`
}

// OK reports whether the diff succeeded.
func (r Report) OK() bool { return r.Diff.OK }

// Diff compares the two newest snapshots, or the baseline against the newest
// when useBaseline is set. Failures are folded into the report.
func (s *Service) Diff(useBaseline bool) Report {
	var d model.DiffResult
	var err error
	if useBaseline {
		d, err = s.engine.AgainstBaseline()
	} else {
		d, err = s.engine.LatestTwo()
	}
	if err != nil {
		d = diff.Failure(err)
	}
	return Report{Diff: d, Risk: risk.Score(d)}
}

// IgnoreAdd adds value to the ignore list and audits the change.
func (s *Service) IgnoreAdd(category, value string) (model.IgnoreList, error) {
	list, err := s.ledger.IgnoreAdd(category, value)
	s.audit.Log(model.AuditIgnoreAdd, map[string]any{"ok": err == nil, "category": category, "value": value})
	return list, err
}

// IgnoreList returns the current ignore list.
func (s *Service) IgnoreList() (model.IgnoreList, error) { return s.ledger.LoadIgnore() }

// BaselineAccept resolves ref and records it as the trusted baseline.
func (s *Service) BaselineAccept(ref string) (model.Baseline, error) {
	path, err := s.store.Resolve(ref)
	if err != nil {
		s.audit.Log(model.AuditBaselineAccept, map[string]any{"ok": false, "ref": ref})
		return model.Baseline{}, err
	}
	b, err := s.ledger.BaselineSet(path)
	s.audit.Log(model.AuditBaselineAccept, map[string]any{"ok": err == nil, "snapshot": path})
	return b, err
}

// Baseline returns the accepted baseline, or nil.
func (s *Service) Baseline() (*model.Baseline, error) { return s.ledger.BaselineGet() }

// OwnerInit sets the owner PIN and reports whether an earlier PIN was
// replaced.
func (s *Service) OwnerInit(pin security.Secret) (replaced bool, err error) {
	replaced, err = s.owner.Initialized()
	if err == nil {
		_, err = s.owner.Init(pin)
	}
	s.audit.Log(model.AuditOwnerInit, map[string]any{"ok": err == nil, "replaced": replaced})
	return replaced, err
}

// OwnerVerify checks the PIN and issues a token.
func (s *Service) OwnerVerify(pin security.Secret, ttl time.Duration) (owner.Session, error) {
	sess, err := s.owner.Verify(pin, ttl)
	s.audit.Log(model.AuditOwnerVerify, map[string]any{"ok": err == nil, "ttl": int64(ttl / time.Second)})
	return sess, err
}

// OwnerLogout revokes the active token.
func (s *Service) OwnerLogout() (bool, error) {
	had, err := s.owner.Invalidate()
	s.audit.Log(model.AuditOwnerLogout, map[string]any{"ok": err == nil, "had_session": had})
	return had, err
}

// AuditTail returns the newest audit events.
func (s *Service) AuditTail(n int) ([]model.AuditEvent, error) { return s.audit.Tail(n) }

// AuditLog exposes the audit logger for export, import and maintenance.
func (s *Service) AuditLog() *audit.Logger { return s.audit }

// StartupDisable disables startup-folder entries matching name.
func (s *Service) StartupDisable(ctx context.Context, token, name string) (actions.Result, error) {
	return s.gate.Run(ctx, model.AuditStartupDisable, token, name, s.startup)
}

// TaskDisable disables a scheduled task.
func (s *Service) TaskDisable(ctx context.Context, token, task string) (actions.Result, error) {
	return s.gate.Run(ctx, model.AuditTasksDisable, token, task, s.tasks)
}

// ServiceStop stops a service.
func (s *Service) ServiceStop(ctx context.Context, token, service string) (actions.Result, error) {
	return s.gate.Run(ctx, model.AuditServicesStop, token, service, s.svcs)
}

// SuspiciousServices flags services of the snapshot named by ref (newest
// when empty).
func (s *Service) SuspiciousServices(ref string) ([]risk.ServiceFlag, string, error) {
	snap, path, err := s.Snapshot(ref)
	if err != nil {
		return nil, "", err
	}
	return risk.FlagServices(snap.Services), path, nil
}
