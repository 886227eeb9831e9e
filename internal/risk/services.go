// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package risk

import (
	"sort"
	"strings"

	"github.com/hostwarden/hostwarden/internal/model"
)

// ServiceFlag is a service that tripped one or more naming heuristics.
type ServiceFlag struct {
	model.Service
	FlagScore int      `json:"flag_score"`
	Reasons   []string `json:"reasons"`
}

// FlagThreshold is the minimum heuristic score for a service to be flagged.
const FlagThreshold = 3

var suspiciousKeywords = []string{"miner", "proxy", "rat", "hack", "steal", "keylog"}

// FlagServices applies naming heuristics to services and returns those that
// score at least FlagThreshold, highest score first then by name.
func FlagServices(services []model.Service) []ServiceFlag {
	flagged := make([]ServiceFlag, 0)
	for _, s := range services {
		name := strings.ToLower(s.ServiceName)
		score := 0
		var reasons []string

		if strings.TrimSpace(s.DisplayName) == "" {
			score += 2
			reasons = append(reasons, "missing display name")
		}
		if strings.EqualFold(s.State, "running") && (len(name) <= 4 || allDigits(name)) {
			score += 3
			reasons = append(reasons, "odd short name running")
		}
		for _, kw := range suspiciousKeywords {
			if strings.Contains(name, kw) {
				score += 5
				reasons = append(reasons, "suspicious keyword in name")
				break
			}
		}

		if score >= FlagThreshold {
			flagged = append(flagged, ServiceFlag{Service: s, FlagScore: score, Reasons: reasons})
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].FlagScore != flagged[j].FlagScore {
			return flagged[i].FlagScore > flagged[j].FlagScore
		}
		return flagged[i].ServiceName < flagged[j].ServiceName
	})
	return flagged
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
