// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package diff

import (
	"sort"

	"github.com/hostwarden/hostwarden/internal/model"
)

// Identity keys per category. Two records with the same key are the same
// record, even when their other fields (pid, state, schedule) differ.

func processKeys(ps []model.Process) map[string]struct{} {
	set := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		if p.Name != "" {
			set[p.Name] = struct{}{}
		}
	}
	return set
}

func portKeys(ps []model.ListeningPort) map[string]struct{} {
	set := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		if p.Proto == "" || p.Local == "" {
			continue
		}
		set[p.Proto+":"+p.Local] = struct{}{}
	}
	return set
}

// StartupKey returns the identity key of an autostart entry, or "" when the
// entry cannot be identified.
func StartupKey(e model.StartupEntry) string {
	if e.Name == "" {
		return ""
	}
	switch e.Source {
	case model.StartupSourceRegistryRun:
		return "reg:" + e.Key + ":" + e.Name + ":" + e.Value
	case model.StartupSourceStartupFolder:
		return "folder:" + e.Name + ":" + e.Value
	case "":
		return ""
	default:
		return e.Source + ":" + e.Name + ":" + e.Value
	}
}

func startupKeys(es []model.StartupEntry) map[string]struct{} {
	set := make(map[string]struct{}, len(es))
	for _, e := range es {
		if k := StartupKey(e); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

func taskKeys(ts []model.ScheduledTask) map[string]struct{} {
	set := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		if t.TaskName != "" {
			set[t.TaskName+"|"+t.TaskToRun] = struct{}{}
		}
	}
	return set
}

func serviceKeys(ss []model.Service) map[string]struct{} {
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		if s.ServiceName != "" {
			set[s.ServiceName+"|"+s.DisplayName] = struct{}{}
		}
	}
	return set
}

// minus returns the sorted keys of a that are not in b.
func minus(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func compare(a, b map[string]struct{}) model.CategoryDiff {
	return model.CategoryDiff{Added: minus(b, a), Removed: minus(a, b)}
}
