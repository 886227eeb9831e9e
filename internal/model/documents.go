// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "encoding/json"

// Ignore categories. IgnorePaths is reserved; nothing consumes it yet.
const (
	IgnoreProcesses = "processes"
	IgnorePorts     = "ports"
	IgnorePaths     = "paths"
)

// IgnoreList is the persisted set of exact-match diff suppressions.
type IgnoreList struct {
	Processes []string `json:"processes"`
	Ports     []string `json:"ports"`
	Paths     []string `json:"paths"`
}

// EmptyIgnoreList returns the default document with empty, non-nil sets.
func EmptyIgnoreList() IgnoreList {
	return IgnoreList{Processes: []string{}, Ports: []string{}, Paths: []string{}}
}

// Values returns a pointer to the set for category, or nil when the
// category is unknown.
func (l *IgnoreList) Values(category string) *[]string {
	switch category {
	case IgnoreProcesses:
		return &l.Processes
	case IgnorePorts:
		return &l.Ports
	case IgnorePaths:
		return &l.Paths
	}
	return nil
}

// Baseline points at the snapshot elected as trusted reference state.
type Baseline struct {
	Snapshot string `json:"snapshot"`
}

// OwnerCredential stores the salted PIN hash.
type OwnerCredential struct {
	SaltB64    string `json:"salt_b64"`
	PinHashB64 string `json:"pin_hash_b64"`
	CreatedUTC int64  `json:"created_utc"`
}

// SessionToken is the single active bearer token and its absolute expiry.
type SessionToken struct {
	Token string `json:"token"`
	Exp   int64  `json:"exp"`
}

// AuditKind labels an audit event.
type AuditKind string

const (
	AuditOwnerInit      AuditKind = "owner_init"
	AuditOwnerVerify    AuditKind = "owner_verify"
	AuditOwnerLogout    AuditKind = "owner_logout"
	AuditIgnoreAdd      AuditKind = "ignore_add"
	AuditBaselineAccept AuditKind = "baseline_accept"
	AuditStartupDisable AuditKind = "startup_disable"
	AuditTasksDisable   AuditKind = "tasks_disable"
	AuditServicesStop   AuditKind = "services_stop"
)

// AuditEvent is one immutable line of the audit trail.
type AuditEvent struct {
	TS   int64           `json:"ts"`
	Kind AuditKind       `json:"kind"`
	Data json.RawMessage `json:"data"`
}
