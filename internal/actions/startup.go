// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package actions

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hostwarden/hostwarden/internal/model"
)

// DisabledSuffix is appended to autostart files that were switched off.
const DisabledSuffix = ".disabled"

// MaxStartupMatches limits how many files one call may rename.
const MaxStartupMatches = 10

// StartupDisabler disables startup-folder entries by renaming matching files
// to <name>.disabled. Files are never deleted.
type StartupDisabler struct {
	Folders []string
}

// DefaultStartupFolders returns the per-user and all-users startup folders
// for the running OS.
func DefaultStartupFolders() []string {
	var out []string
	if runtime.GOOS == "windows" {
		for _, env := range []string{"APPDATA", "PROGRAMDATA"} {
			if base := os.Getenv(env); base != "" {
				out = append(out, filepath.Join(base, "Microsoft", "Windows", "Start Menu", "Programs", "Startup"))
			}
		}
		return out
	}
	if cfg, err := os.UserConfigDir(); err == nil {
		out = append(out, filepath.Join(cfg, "autostart"))
	}
	out = append(out, "/etc/xdg/autostart")
	return out
}

// Remediate renames up to MaxStartupMatches files whose name contains
// target (case-insensitive).
func (d StartupDisabler) Remediate(_ context.Context, target string) (Result, error) {
	needle := strings.ToLower(strings.TrimSpace(target))
	if needle == "" {
		return Result{}, model.Errorf(model.KindActionFailed, "provide a name fragment to match")
	}

	var hits []string
	for _, dir := range d.Folders {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasSuffix(e.Name(), DisabledSuffix) {
				continue
			}
			if strings.Contains(strings.ToLower(e.Name()), needle) {
				hits = append(hits, filepath.Join(dir, e.Name()))
			}
		}
	}
	if len(hits) == 0 {
		return Result{}, model.Errorf(model.KindActionFailed, "no startup folder entries matched %q", target)
	}
	if len(hits) > MaxStartupMatches {
		hits = hits[:MaxStartupMatches]
	}

	res := Result{OK: true}
	for _, src := range hits {
		dst := src + DisabledSuffix
		if err := os.Rename(src, dst); err != nil {
			res.Changed = append(res.Changed, Change{From: src, Error: err.Error()})
			continue
		}
		res.Changed = append(res.Changed, Change{From: src, To: dst})
	}
	return res, nil
}
