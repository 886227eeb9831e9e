// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/hostwarden/hostwarden/internal/i18n"
	"github.com/hostwarden/hostwarden/internal/security"
)

// pinFromFlagOrPrompt returns the PIN given by --pin, or prompts for it.
// With confirm set the PIN is asked twice.
func (a *app) pinFromFlagOrPrompt(flag string, confirm bool) (security.Secret, error) {
	if flag != "" {
		return security.FromString(flag), nil
	}
	first, err := a.readPIN(i18n.T("cli.owner.pin_prompt"))
	if err != nil {
		return nil, fmt.Errorf("could not read PIN: %w", err)
	}
	pin := security.Secret(first)
	if !confirm {
		return pin, nil
	}
	second, err := a.readPIN(i18n.T("cli.owner.pin_confirm"))
	if err != nil {
		pin.Zero()
		return nil, fmt.Errorf("could not read PIN: %w", err)
	}
	again := security.Secret(second)
	defer again.Zero()
	if !pin.Equal(again) {
		pin.Zero()
		return nil, errors.New(i18n.T("cli.owner.pin_mismatch"))
	}
	return pin, nil
}

// promptPIN reads a PIN without echo from a terminal, or one line from the
// input stream otherwise.
func (a *app) promptPIN(prompt string) ([]byte, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		return b, err
	}
	if a.lines == nil {
		a.lines = bufio.NewReader(a.in)
	}
	line, err := a.lines.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

func writeClipboard(s string) error {
	return clipboard.WriteAll(s)
}
