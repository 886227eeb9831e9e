// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package buildvars

import "testing"

func TestVersionOrDefault(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = ""
	if got := VersionOrDefault("dev"); got != "dev" {
		t.Fatalf("expected dev, got %s", got)
	}
	Version = "v1.2.3"
	if got := VersionOrDefault("dev"); got != "v1.2.3" {
		t.Fatalf("expected v1.2.3, got %s", got)
	}
}
