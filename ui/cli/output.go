// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hostwarden/hostwarden/internal/core"
	"github.com/hostwarden/hostwarden/internal/i18n"
	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/risk"
	"github.com/hostwarden/hostwarden/util/mapst"
)

// result is the JSON body of one command; "ok" is filled in on output.
type result map[string]any

var (
	colorSubtle  = lipgloss.Color("241")
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtle)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	severityStyles = map[model.Severity]lipgloss.Style{
		model.SeverityInfo:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		model.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.SeverityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		model.SeverityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

func (a *app) textOutput() bool { return a.cfg.Output == "text" }

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// success prints r with ok:true. In text mode text renders it instead.
func (a *app) success(r result, text func(w io.Writer)) error {
	if a.textOutput() && text != nil {
		text(a.out)
		return nil
	}
	if r == nil {
		r = result{}
	}
	r["ok"] = true
	return a.writeJSON(r)
}

// failure prints err as {ok:false, kind, message} and returns an ExitError
// with ExitFailure.
func (a *app) failure(err error) error {
	e := model.AsError(err)
	if a.textOutput() {
		fmt.Fprintf(a.out, "%s: %s\n", errorStyle.Render(i18n.T("error."+e.Kind.String())), e.Message)
	} else {
		r := result{"ok": false, "kind": e.Kind, "message": e.Message}
		for k, v := range e.Details {
			r[k] = v
		}
		if werr := a.writeJSON(r); werr != nil {
			return &ExitError{Code: ExitFailure, Err: werr}
		}
	}
	return &ExitError{Code: ExitFailure, Err: err}
}

// finish routes err to failure or r to success.
func (a *app) finish(r result, err error, text func(w io.Writer)) error {
	if err != nil {
		return a.failure(err)
	}
	return a.success(r, text)
}

// report prints a diff report. A failed diff exits with ExitFailure.
func (a *app) report(rep core.Report) error {
	if a.textOutput() {
		renderReport(a.out, rep)
	} else if err := a.writeJSON(result{"ok": rep.OK(), "diff": rep.Diff, "risk": rep.Risk}); err != nil {
		return err
	}
	if !rep.OK() {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%s", rep.Diff.Message)}
	}
	return nil
}

func renderReport(w io.Writer, rep core.Report) {
	d := rep.Diff
	if !d.OK {
		kind := model.KindStorage
		if d.Kind != nil {
			kind = *d.Kind
		}
		fmt.Fprintf(w, "%s: %s\n", errorStyle.Render(i18n.T("error."+kind.String())), d.Message)
		return
	}
	sev := severityStyles[rep.Risk.Severity].Render(strings.ToUpper(string(rep.Risk.Severity)))
	fmt.Fprintf(w, "%s %s   %s %d/%d\n", labelStyle.Render(i18n.T("report.severity")+":"), sev,
		labelStyle.Render(i18n.T("report.score")+":"), rep.Risk.Score, risk.MaxScore())
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(i18n.T("report.from")+":"), d.From)
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(i18n.T("report.to")+":"), d.To)
	fmt.Fprintf(w, "%s %s\n\n", labelStyle.Render(i18n.T("report.explanation")+":"), rep.Risk.Explanation)

	for _, c := range model.Categories {
		cd := d.Category(c)
		if cd.Len() == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render(string(c)), labelStyle.Render(fmt.Sprintf("(+%d %s, -%d %s)",
			len(cd.Added), i18n.T("report.added"), len(cd.Removed), i18n.T("report.removed"))))
		for _, k := range cd.Added {
			fmt.Fprintf(w, "  %s %s\n", addedStyle.Render("+"), k)
		}
		for _, k := range cd.Removed {
			fmt.Fprintf(w, "  %s %s\n", removedStyle.Render("-"), k)
		}
	}
	if len(d.Changes) > 0 {
		fmt.Fprintln(w, titleStyle.Render(i18n.T("report.system_changes")))
		for _, k := range mapst.SortedKeys(d.Changes) {
			ch := d.Changes[k]
			fmt.Fprintf(w, "  %s: %s -> %s\n", k, ch.From, ch.To)
		}
	}
}

// renderLines prints one line per item, or "no changes" when empty.
func renderLines(w io.Writer, items []string) {
	if len(items) == 0 {
		fmt.Fprintln(w, labelStyle.Render(i18n.T("report.no_changes")))
		return
	}
	for _, it := range items {
		fmt.Fprintln(w, it)
	}
}
