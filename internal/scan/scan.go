// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package scan assembles snapshots from probes and persists them. Enumeration
// of processes, ports and persistence surfaces is done by external
// collectors; this package only normalizes what they report.
package scan // import "github.com/hostwarden/hostwarden/internal/scan"

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/hostwarden/hostwarden/internal/logging"
	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/snapshot"
)

// SystemProbe reports the identity of the host.
type SystemProbe interface {
	System(ctx context.Context) (model.SystemInfo, error)
}

// RecordsProbe reports the inventory records for a snapshot.
type RecordsProbe interface {
	Records(ctx context.Context) (model.Records, error)
}

// HostProbe reads the host identity from the running process environment.
type HostProbe struct{}

func (HostProbe) System(context.Context) (model.SystemInfo, error) {
	info := model.SystemInfo{OS: runtime.GOOS, Machine: runtime.GOARCH}
	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}
	if u, err := user.Current(); err == nil {
		// Windows reports DOMAIN\user.
		name := u.Username
		if i := strings.LastIndex(name, `\`); i >= 0 {
			name = name[i+1:]
		}
		info.User = name
	}
	info.OSRelease = readTrimmed("/proc/sys/kernel/osrelease")
	info.OSVersion = readTrimmed("/proc/sys/kernel/version")
	return info, nil
}

func readTrimmed(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// EmptyRecords reports no records; used when no collector output is given.
type EmptyRecords struct{}

func (EmptyRecords) Records(context.Context) (model.Records, error) { return model.Records{}, nil }

// CollectorOutput reads records emitted by an external collector as a JSON
// document shaped like model.Records. "-" reads from In.
type CollectorOutput struct {
	Path string
	In   io.Reader
}

func (c CollectorOutput) Records(context.Context) (model.Records, error) {
	var data []byte
	var err error
	if c.Path == "-" {
		if c.In == nil {
			return model.Records{}, errors.New("no input stream for collector output")
		}
		data, err = io.ReadAll(c.In)
	} else {
		data, err = os.ReadFile(c.Path)
	}
	if err != nil {
		return model.Records{}, model.StorageError(err, "could not read collector output %s", c.Path)
	}
	var rec model.Records
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Records{}, &model.Error{Kind: model.KindInvalidSnapshot, Message: fmt.Sprintf("collector output %s is not valid JSON", c.Path), Err: err}
	}
	return rec, nil
}

// Scanner builds and saves snapshots.
type Scanner struct {
	System  SystemProbe
	Records RecordsProbe
	Store   *snapshot.Store
	Now     func() time.Time
}

// Scan probes the host, saves the snapshot and returns it with its path.
func (s *Scanner) Scan(ctx context.Context) (model.Snapshot, string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	sys, err := s.System.System(ctx)
	if err != nil {
		return model.Snapshot{}, "", model.StorageError(err, "system probe failed")
	}
	rec, err := s.Records.Records(ctx)
	if err != nil {
		var me *model.Error
		if errors.As(err, &me) {
			return model.Snapshot{}, "", err
		}
		return model.Snapshot{}, "", model.StorageError(err, "records probe failed")
	}
	snap := model.NewSnapshot(now(), sys, Normalize(rec))
	path, err := s.Store.Save(snap)
	if err != nil {
		return model.Snapshot{}, "", err
	}
	logging.Infof("scan: saved %s (%d processes, %d ports)", path, len(snap.Processes), len(snap.ListeningPorts))
	return snap, path, nil
}

// Normalize orders records deterministically: processes by name then pid,
// ports by proto and address, tasks and services by name.
func Normalize(rec model.Records) model.Records {
	sort.SliceStable(rec.Processes, func(i, j int) bool {
		a, b := strings.ToLower(rec.Processes[i].Name), strings.ToLower(rec.Processes[j].Name)
		if a != b {
			return a < b
		}
		return rec.Processes[i].PID < rec.Processes[j].PID
	})
	sort.SliceStable(rec.ListeningPorts, func(i, j int) bool {
		a, b := rec.ListeningPorts[i], rec.ListeningPorts[j]
		if a.Proto != b.Proto {
			return a.Proto < b.Proto
		}
		return a.Local < b.Local
	})
	sort.SliceStable(rec.ScheduledTasks, func(i, j int) bool {
		return rec.ScheduledTasks[i].TaskName < rec.ScheduledTasks[j].TaskName
	})
	sort.SliceStable(rec.Services, func(i, j int) bool {
		return rec.Services[i].ServiceName < rec.Services[j].ServiceName
	})
	return rec
}
