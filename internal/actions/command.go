// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package actions

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/hostwarden/hostwarden/internal/model"
)

// TargetPlaceholder is replaced by the target name in command templates.
const TargetPlaceholder = "{target}"

// DefaultTimeout bounds a single remediation command.
const DefaultTimeout = 30 * time.Second

// DefaultTaskDisableCommand returns the platform's scheduled-task disable
// template, or "" when there is none.
func DefaultTaskDisableCommand() string {
	switch runtime.GOOS {
	case "windows":
		return "schtasks /Change /TN {target} /Disable"
	case "linux":
		return "systemctl disable --now {target}.timer"
	}
	return ""
}

// DefaultServiceStopCommand returns the platform's service stop template,
// or "" when there is none.
func DefaultServiceStopCommand() string {
	switch runtime.GOOS {
	case "windows":
		return "sc stop {target}"
	case "linux":
		return "systemctl stop {target}"
	}
	return ""
}

// RunFunc executes a command and returns its stdout and stderr.
type RunFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// Command runs a configured command template. The target is substituted as
// a single argument and never passed through a shell.
type Command struct {
	Template string
	// Success is reported when the command exits 0 with no output.
	Success string
	Timeout time.Duration
	Run     RunFunc
}

// Argv expands the template for target.
func (c Command) Argv(target string) []string {
	fields := strings.Fields(c.Template)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, TargetPlaceholder, target)
	}
	return fields
}

// Remediate runs the expanded command.
func (c Command) Remediate(ctx context.Context, target string) (Result, error) {
	argv := c.Argv(target)
	if len(argv) == 0 {
		return Result{}, model.Errorf(model.KindUnsupported, "no command configured for this action on %s", runtime.GOOS)
	}
	run := c.Run
	if run == nil {
		run = execRun
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, err := run(ctx, argv[0], argv[1:]...)
	out := strings.TrimSpace(string(stdout))
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = out
		}
		if msg == "" {
			msg = err.Error()
		}
		return Result{}, &model.Error{Kind: model.KindActionFailed, Message: msg, Err: err}
	}
	if out == "" {
		out = c.Success
	}
	return Result{OK: true, Message: out}, nil
}
