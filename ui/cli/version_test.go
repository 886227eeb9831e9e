// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"runtime/debug"
	"testing"
)

func TestResolveBuildVersion_MainVersion(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/hostwarden/hostwarden", Version: "v0.4.0"},
	}
	v, c, d := resolveBuildVersion(info)
	if v != "v0.4.0" {
		t.Fatalf("expected v0.4.0 got %s", v)
	}
	if c != gitCommit || d != buildDate {
		t.Fatalf("expected package defaults for commit/date, got %s/%s", c, d)
	}
}

func TestResolveBuildVersion_DependencyFallback(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "example.com/wrapper", Version: "(devel)"},
		Deps: []*debug.Module{{Path: "github.com/hostwarden/hostwarden", Version: "v0.3.2"}},
	}
	if v, _, _ := resolveBuildVersion(info); v != "v0.3.2" {
		t.Fatalf("expected dependency version fallback got %s", v)
	}
}

func TestResolveBuildVersion_VCSSettings(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/hostwarden/hostwarden", Version: "v1.0.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-10T08:00:00Z"},
		},
	}
	_, c, d := resolveBuildVersion(info)
	if c != "abc123" || d != "2026-01-10T08:00:00Z" {
		t.Fatalf("unexpected vcs values %s %s", c, d)
	}
}

func TestResolveBuildVersion_GitCommitFallback(t *testing.T) {
	orig := gitCommit
	defer func() { gitCommit = orig }()
	gitCommit = "deadbeef"
	info := &debug.BuildInfo{Main: debug.Module{Path: "github.com/hostwarden/hostwarden", Version: "(devel)"}}
	if v, _, _ := resolveBuildVersion(info); v != "deadbeef" {
		t.Fatalf("expected gitCommit fallback got %s", v)
	}
}
