// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	cfg "github.com/hostwarden/hostwarden/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.StateDir != ".hostwarden" || got.Audit.Backend != "file" || got.Output != "json" {
		t.Fatalf("unexpected defaults %+v", got)
	}
	ttl, err := got.TTL()
	if err != nil || ttl != 5*time.Minute {
		t.Fatalf("TTL = %s, %v", ttl, err)
	}
	if got.SnapshotsDir() != filepath.Join(".hostwarden", "snapshots") {
		t.Fatalf("unexpected snapshots dir %s", got.SnapshotsDir())
	}
}

func TestLoadConfig_ExplicitFileEnvAndFlags(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "custom.yaml")
	doc := "state_dir: /var/lib/hostwarden\nlanguage: de\naudit:\n  backend: sqlite\n  dsn: /tmp/a.db\nactions:\n  startup_folders: [/a, /b]\n"
	if err := os.WriteFile(file, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOSTWARDEN_OWNER_TOKEN_TTL", "90")
	t.Setenv("HOSTWARDEN_LANGUAGE", "en")

	cmd := &cobra.Command{}
	cmd.Flags().String("state-dir", "", "")
	cfg.BindKey(cmd.Flags(), "state-dir", "state_dir")
	if err := cmd.Flags().Set("state-dir", "/override"); err != nil {
		t.Fatal(err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.StateDir != "/override" {
		t.Fatalf("flag must win over file, got %q", got.StateDir)
	}
	if got.Language != "en" {
		t.Fatalf("env must win over file, got %q", got.Language)
	}
	if got.Audit.Backend != "sqlite" || got.Audit.DSN != "/tmp/a.db" {
		t.Fatalf("audit section not read: %+v", got.Audit)
	}
	if len(got.Actions.StartupFolders) != 2 {
		t.Fatalf("startup folders not read: %v", got.Actions.StartupFolders)
	}
	if ttl, err := got.TTL(); err != nil || ttl != 90*time.Second {
		t.Fatalf("TTL = %s, %v", ttl, err)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "bad.yaml")
	if err := os.WriteFile(file, []byte("state_dir: [unclosed\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file); err == nil {
		t.Fatalf("expected an error for malformed YAML")
	}
}

func TestWriteConfigFile_RoundTrip(t *testing.T) {
	isolate(t)
	c := cfg.Config{StateDir: "/srv/hw", Language: "de", Output: "text"}
	c.Owner.TokenTTL = "10m"
	c.Audit.Backend = "file"

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}
	want, err := cfg.GetConfigPath(false)
	if err != nil || path != want {
		t.Fatalf("written to %s, want %s (%v)", path, want, err)
	}
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.StateDir != "/srv/hw" || got.Output != "text" || got.Owner.TokenTTL != "10m" {
		t.Fatalf("unexpected round trip %+v", got)
	}
}

func TestParseTTL(t *testing.T) {
	cases := map[string]time.Duration{"300": 5 * time.Minute, "2m": 2 * time.Minute, " 1s ": time.Second}
	for in, want := range cases {
		got, err := cfg.ParseTTL(in)
		if err != nil || got != want {
			t.Fatalf("ParseTTL(%q) = %s, %v", in, got, err)
		}
	}
	for _, in := range []string{"soon", "9223372037", "-9223372037", "99999999999999999999"} {
		if _, err := cfg.ParseTTL(in); err == nil {
			t.Fatalf("ParseTTL(%q): expected an error", in)
		}
	}
	if got, err := cfg.ParseTTL("9223372036"); err != nil || got <= 0 {
		t.Fatalf("largest second count must parse, got %s, %v", got, err)
	}
}
