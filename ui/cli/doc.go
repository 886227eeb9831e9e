// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli implements the hostwarden command tree on cobra. Commands
// print one JSON document (or styled text) per invocation on stdout; logs
// go to stderr.
package cli
