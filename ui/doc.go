// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ui groups the user interfaces of hostwarden. The command-line
// interface lives in ui/cli.
package ui
