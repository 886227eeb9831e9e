// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package risk turns a diff into a bounded severity score with a short
// human-readable explanation. It quantifies change; it does not detect malware.
package risk // import "github.com/hostwarden/hostwarden/internal/risk"

import (
	"fmt"
	"strings"

	"github.com/hostwarden/hostwarden/internal/model"
)

// Weight is the per-change score of a category and the most it can
// contribute in total.
type Weight struct {
	PerChange int
	Cap       int
}

// Weights per category. Persistence surfaces weigh more than volatile state.
var Weights = map[model.Category]Weight{
	model.CategoryProcesses:      {PerChange: 2, Cap: 30},
	model.CategoryPorts:          {PerChange: 5, Cap: 40},
	model.CategoryStartup:        {PerChange: 8, Cap: 60},
	model.CategoryScheduledTasks: {PerChange: 8, Cap: 60},
	model.CategoryServices:       {PerChange: 6, Cap: 50},
}

// Severity thresholds (inclusive lower bounds).
const (
	HighThreshold   = 80
	MediumThreshold = 30
)

// Score assesses d. A failed diff is reported as info with score 0 and the
// diff's message as explanation.
func Score(d model.DiffResult) model.Assessment {
	if !d.OK {
		msg := d.Message
		if msg == "" {
			msg = "no diff"
		}
		return model.Assessment{Severity: model.SeverityInfo, Score: 0, Explanation: msg}
	}

	score := 0
	var notes []string
	for _, c := range model.Categories {
		cd := d.Category(c)
		n := cd.Len()
		if n == 0 {
			continue
		}
		w := Weights[c]
		score += min(w.Cap, w.PerChange*n)
		notes = append(notes, fmt.Sprintf("%s changes (+%d/-%d)", c, len(cd.Added), len(cd.Removed)))
	}

	explanation := "no notable changes"
	if len(notes) > 0 {
		explanation = strings.Join(notes, ", ")
	}
	return model.Assessment{Severity: SeverityFor(score), Score: score, Explanation: explanation}
}

// SeverityFor maps a score to its tier.
func SeverityFor(score int) model.Severity {
	switch {
	case score >= HighThreshold:
		return model.SeverityHigh
	case score >= MediumThreshold:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// MaxScore is the highest score any diff can reach.
func MaxScore() int {
	total := 0
	for _, w := range Weights {
		total += w.Cap
	}
	return total
}
