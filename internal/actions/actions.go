// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package actions runs remediation steps (disable an autostart entry,
// disable a scheduled task, stop a service) behind the owner token gate.
// Every attempt, allowed or not, is recorded in the audit trail.
package actions // import "github.com/hostwarden/hostwarden/internal/actions"

import (
	"context"
	"errors"
	"strings"

	"github.com/hostwarden/hostwarden/internal/logging"
	"github.com/hostwarden/hostwarden/internal/model"
)

// Change records one filesystem change made by a remediator.
type Change struct {
	From  string `json:"from"`
	To    string `json:"to,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is what a remediator reports back.
type Result struct {
	OK      bool     `json:"ok"`
	Message string   `json:"message,omitempty"`
	Changed []Change `json:"changed,omitempty"`
}

// Remediator performs one kind of remediation against a named target.
type Remediator interface {
	Remediate(ctx context.Context, target string) (Result, error)
}

// TokenChecker validates an owner token.
type TokenChecker interface {
	RequireToken(candidate string) error
}

// Auditor records audit events.
type Auditor interface {
	Log(kind model.AuditKind, data any)
}

// Gate enforces RequireToken before any remediator runs.
type Gate struct {
	tokens TokenChecker
	audit  Auditor
}

// NewGate builds a gate.
func NewGate(tokens TokenChecker, audit Auditor) *Gate {
	return &Gate{tokens: tokens, audit: audit}
}

// Run checks token, then invokes r for target. The remediator is never
// called when the token check fails.
func (g *Gate) Run(ctx context.Context, kind model.AuditKind, token, target string, r Remediator) (Result, error) {
	if err := g.tokens.RequireToken(token); err != nil {
		g.audit.Log(kind, map[string]any{"ok": false, "target": target, "reason": model.AsError(err).Message})
		return Result{}, err
	}

	target = strings.TrimSpace(target)
	if target == "" {
		g.audit.Log(kind, map[string]any{"ok": false, "reason": "empty target"})
		return Result{}, model.Errorf(model.KindActionFailed, "a target name is required")
	}

	logging.Debugf("actions: %s %q", kind, target)
	res, err := r.Remediate(ctx, target)
	if err != nil {
		var e *model.Error
		if !errors.As(err, &e) {
			e = &model.Error{Kind: model.KindActionFailed, Message: err.Error(), Err: err}
		}
		g.audit.Log(kind, map[string]any{"ok": false, "target": target, "reason": e.Message})
		return Result{}, e
	}
	g.audit.Log(kind, map[string]any{"ok": res.OK, "target": target, "changed": len(res.Changed)})
	return res, nil
}
