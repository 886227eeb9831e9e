// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the persisted documents and derived results shared by
// the hostwarden components.
package model // import "github.com/hostwarden/hostwarden/internal/model"

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot schema identifiers. Older documents are upgraded to SchemaCurrent
// when loaded.
const (
	SchemaV1      = "hostwarden.snapshot.v1"
	SchemaV2      = "hostwarden.snapshot.v2"
	SchemaV3      = "hostwarden.snapshot.v3"
	SchemaCurrent = SchemaV3
)

// legacySchemas maps the tags written by the predecessor "shona" collector
// onto the matching hostwarden versions.
var legacySchemas = map[string]string{
	"shona.snapshot.v1": SchemaV1,
	"shona.snapshot.v2": SchemaV2,
	"shona.snapshot.v3": SchemaV3,
}

// TimestampLayout is the compact UTC layout used in snapshot documents and
// file names.
const TimestampLayout = "20060102_150405"

// Startup entry sources produced by the autostart probe.
const (
	StartupSourceRegistryRun   = "registry_run"
	StartupSourceStartupFolder = "startup_folder"
)

// SystemInfo identifies the host a snapshot was taken on.
type SystemInfo struct {
	Hostname  string `json:"hostname"`
	User      string `json:"user"`
	OS        string `json:"os"`
	OSRelease string `json:"os_release"`
	OSVersion string `json:"os_version"`
	Machine   string `json:"machine"`
}

// Fields returns the system info as a flat field map, used for change reports.
func (s SystemInfo) Fields() map[string]string {
	return map[string]string{
		"hostname":   s.Hostname,
		"user":       s.User,
		"os":         s.OS,
		"os_release": s.OSRelease,
		"os_version": s.OSVersion,
		"machine":    s.Machine,
	}
}

type Process struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

type ListeningPort struct {
	Proto string `json:"proto"`
	Local string `json:"local"`
	PID   *int   `json:"pid"`
}

type StartupEntry struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Key    string `json:"key,omitempty"`
	Type   string `json:"type,omitempty"`
}

type ScheduledTask struct {
	TaskName  string `json:"TaskName"`
	Status    string `json:"Status"`
	Author    string `json:"Author"`
	TaskToRun string `json:"Task To Run"`
	Schedule  string `json:"Schedule"`
	RunAsUser string `json:"Run As User"`
}

type Service struct {
	ServiceName string `json:"service_name"`
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
	PID         *int   `json:"pid,omitempty"`
}

// Records bundles the five inventory categories. External collectors emit
// this shape; snapshots embed it.
type Records struct {
	Processes      []Process       `json:"processes"`
	ListeningPorts []ListeningPort `json:"listening_ports"`
	Startup        []StartupEntry  `json:"startup"`
	ScheduledTasks []ScheduledTask `json:"scheduled_tasks"`
	Services       []Service       `json:"services"`
}

// Snapshot is an immutable point-in-time inventory of one host.
type Snapshot struct {
	Schema       string     `json:"schema"`
	TimestampUTC string     `json:"timestamp_utc"`
	System       SystemInfo `json:"system"`
	Records
}

// Time parses TimestampUTC.
func (s Snapshot) Time() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s.TimestampUTC, time.UTC)
}

// FileName returns the canonical file name <hostname>_<timestamp>.json.
func (s Snapshot) FileName() string {
	host := s.System.Hostname
	if host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s_%s.json", host, s.TimestampUTC)
}

// DecodeSnapshot parses a snapshot document, validates it and upgrades
// historical schema versions to SchemaCurrent.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, &Error{Kind: KindInvalidSnapshot, Message: "snapshot is not valid JSON", Err: err}
	}
	return MigrateSnapshot(snap)
}

// MigrateSnapshot upgrades snap to SchemaCurrent. v1 documents only carry
// processes and ports, v2 adds startup entries; categories a version did not
// record are normalized to empty lists.
func MigrateSnapshot(snap Snapshot) (Snapshot, error) {
	if tag, ok := legacySchemas[snap.Schema]; ok {
		snap.Schema = tag
	}
	switch snap.Schema {
	case SchemaV1:
		snap.Startup = nil
		fallthrough
	case SchemaV2:
		snap.ScheduledTasks = nil
		snap.Services = nil
		fallthrough
	case SchemaV3:
	default:
		return Snapshot{}, Errorf(KindInvalidSnapshot, "unsupported snapshot schema %q", snap.Schema)
	}
	if snap.TimestampUTC == "" {
		return Snapshot{}, Errorf(KindInvalidSnapshot, "snapshot has no timestamp_utc")
	}
	if _, err := snap.Time(); err != nil {
		return Snapshot{}, &Error{Kind: KindInvalidSnapshot, Message: fmt.Sprintf("invalid timestamp_utc %q", snap.TimestampUTC), Err: err}
	}
	snap.Schema = SchemaCurrent
	snap.Records = snap.Records.normalized()
	return snap, nil
}

func (r Records) normalized() Records {
	if r.Processes == nil {
		r.Processes = []Process{}
	}
	if r.ListeningPorts == nil {
		r.ListeningPorts = []ListeningPort{}
	}
	if r.Startup == nil {
		r.Startup = []StartupEntry{}
	}
	if r.ScheduledTasks == nil {
		r.ScheduledTasks = []ScheduledTask{}
	}
	if r.Services == nil {
		r.Services = []Service{}
	}
	return r
}

// NewSnapshot assembles a current-schema snapshot taken at t.
func NewSnapshot(t time.Time, sys SystemInfo, rec Records) Snapshot {
	return Snapshot{
		Schema:       SchemaCurrent,
		TimestampUTC: t.UTC().Format(TimestampLayout),
		System:       sys,
		Records:      rec.normalized(),
	}
}
