// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package risk

import (
	"fmt"
	"testing"

	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func keys(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}

func TestScore(t *testing.T) {
	cases := []struct {
		name     string
		diff     model.DiffResult
		score    int
		severity model.Severity
		explain  string
	}{
		{
			name:     "ports and startup below medium",
			diff:     model.DiffResult{OK: true, Ports: model.CategoryDiff{Added: keys("p", 3)}, Startup: model.CategoryDiff{Added: keys("s", 1)}},
			score:    23,
			severity: model.SeverityLow,
			explain:  "ports changes (+3/-0), startup changes (+1/-0)",
		},
		{
			name:     "empty diff",
			diff:     model.DiffResult{OK: true},
			score:    0,
			severity: model.SeverityLow,
			explain:  "no notable changes",
		},
		{
			name:     "medium boundary",
			diff:     model.DiffResult{OK: true, Services: model.CategoryDiff{Added: keys("a", 3), Removed: keys("r", 2)}},
			score:    30,
			severity: model.SeverityMedium,
			explain:  "services changes (+3/-2)",
		},
		{
			name: "caps and high",
			diff: model.DiffResult{OK: true,
				Processes: model.CategoryDiff{Added: keys("x", 100)},
				Startup:   model.CategoryDiff{Removed: keys("s", 20)},
			},
			score:    90,
			severity: model.SeverityHigh,
			explain:  "processes changes (+100/-0), startup changes (+0/-20)",
		},
		{
			name:     "failed diff",
			diff:     model.DiffResult{OK: false, Message: "need at least 2 snapshots"},
			score:    0,
			severity: model.SeverityInfo,
			explain:  "need at least 2 snapshots",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Score(tc.diff)
			if a.Score != tc.score || a.Severity != tc.severity || a.Explanation != tc.explain {
				t.Fatalf("got %+v, want score=%d severity=%s explain=%q", a, tc.score, tc.severity, tc.explain)
			}
		})
	}
}

func TestMaxScore(t *testing.T) {
	if got := MaxScore(); got != 240 {
		t.Fatalf("MaxScore = %d, want 240", got)
	}
}

func TestScore_MonotonicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("adding a change to one category never lowers the score", prop.ForAll(
		func(catIdx, base, n int) bool {
			c := model.Categories[catIdx]
			d := model.DiffResult{OK: true, Ports: model.CategoryDiff{Added: keys("b", base)}}
			cd := d.Category(c)
			cd.Added = append(cd.Added, keys("n", n)...)
			before := Score(d).Score
			cd.Added = append(cd.Added, "one-more")
			after := Score(d).Score
			return after >= before
		},
		gen.IntRange(0, len(model.Categories)-1),
		gen.IntRange(0, 10),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestFlagServices(t *testing.T) {
	services := []model.Service{
		{ServiceName: "Spooler", DisplayName: "Print Spooler", State: "RUNNING"},
		{ServiceName: "xmrMiner", DisplayName: "Updater", State: "STOPPED"},
		{ServiceName: "abc", DisplayName: "", State: "RUNNING"},
		{ServiceName: "12345", DisplayName: "Digits", State: "RUNNING"},
		{ServiceName: "nodisp", DisplayName: "", State: "STOPPED"},
		{ServiceName: "keylogger", DisplayName: "", State: "RUNNING"},
	}
	got := FlagServices(services)

	want := []struct {
		name  string
		score int
	}{
		{"keylogger", 7},
		{"abc", 5},
		{"xmrMiner", 5},
		{"12345", 3},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d flagged services, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].ServiceName != w.name || got[i].FlagScore != w.score {
			t.Fatalf("position %d: got %s/%d, want %s/%d", i, got[i].ServiceName, got[i].FlagScore, w.name, w.score)
		}
	}
	if len(got[0].Reasons) != 2 {
		t.Fatalf("expected two reasons for keylogger, got %v", got[0].Reasons)
	}
}
