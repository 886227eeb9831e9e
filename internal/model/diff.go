// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package model

// Category names a diffable inventory category.
type Category string

const (
	CategoryProcesses      Category = "processes"
	CategoryPorts          Category = "ports"
	CategoryStartup        Category = "startup"
	CategoryScheduledTasks Category = "scheduled_tasks"
	CategoryServices       Category = "services"
)

// Categories lists every diffable category in reporting order.
var Categories = []Category{
	CategoryProcesses,
	CategoryPorts,
	CategoryStartup,
	CategoryScheduledTasks,
	CategoryServices,
}

// CategoryDiff holds the sorted keys that appeared and disappeared.
type CategoryDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Len returns the number of changed keys.
func (c CategoryDiff) Len() int { return len(c.Added) + len(c.Removed) }

func (c CategoryDiff) clone() CategoryDiff {
	out := CategoryDiff{
		Added:   make([]string, len(c.Added)),
		Removed: make([]string, len(c.Removed)),
	}
	copy(out.Added, c.Added)
	copy(out.Removed, c.Removed)
	return out
}

// FieldChange describes one system-info field that differs.
type FieldChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DiffResult is the derived comparison between two snapshots. When OK is
// false only Message, Kind and SnapshotsFound are meaningful.
type DiffResult struct {
	OK             bool                   `json:"ok"`
	Kind           *Kind                  `json:"kind,omitempty"`
	Message        string                 `json:"message,omitempty"`
	SnapshotsFound *int                   `json:"snapshots_found,omitempty"`
	From           string                 `json:"from,omitempty"`
	To             string                 `json:"to,omitempty"`
	Changes        map[string]FieldChange `json:"changes,omitempty"`
	Processes      CategoryDiff           `json:"processes"`
	Ports          CategoryDiff           `json:"ports"`
	Startup        CategoryDiff           `json:"startup"`
	ScheduledTasks CategoryDiff           `json:"scheduled_tasks"`
	Services       CategoryDiff           `json:"services"`
}

// Category returns a pointer to the per-category diff so callers can read or
// rewrite it generically.
func (d *DiffResult) Category(c Category) *CategoryDiff {
	switch c {
	case CategoryProcesses:
		return &d.Processes
	case CategoryPorts:
		return &d.Ports
	case CategoryStartup:
		return &d.Startup
	case CategoryScheduledTasks:
		return &d.ScheduledTasks
	case CategoryServices:
		return &d.Services
	}
	return nil
}

// Clone returns a deep copy of d.
func (d DiffResult) Clone() DiffResult {
	out := d
	if d.Kind != nil {
		k := *d.Kind
		out.Kind = &k
	}
	if d.SnapshotsFound != nil {
		n := *d.SnapshotsFound
		out.SnapshotsFound = &n
	}
	if d.Changes != nil {
		out.Changes = make(map[string]FieldChange, len(d.Changes))
		for k, v := range d.Changes {
			out.Changes[k] = v
		}
	}
	for _, c := range Categories {
		*out.Category(c) = d.Category(c).clone()
	}
	return out
}

// Severity is the coarse risk tier derived from a change score.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Assessment is the risk scorer's verdict on one diff.
type Assessment struct {
	Severity    Severity `json:"severity"`
	Score       int      `json:"score"`
	Explanation string   `json:"explanation"`
}
