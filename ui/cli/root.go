// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hostwarden/hostwarden/buildvars"
	"github.com/hostwarden/hostwarden/internal/config"
	"github.com/hostwarden/hostwarden/internal/core"
	"github.com/hostwarden/hostwarden/internal/db"
	"github.com/hostwarden/hostwarden/internal/i18n"
	"github.com/hostwarden/hostwarden/internal/logging"
)

var version = "dev"   // set by the linker
var gitCommit = "dev" // short commit SHA, set at build time
var buildDate = ""    // RFC3339, set at build time

// Exit codes.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitFailure = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an Execute error to a process exit code. Errors that are not
// an *ExitError are usage or configuration problems.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitUsage
}

// app holds the state of one invocation.
type app struct {
	cfg      config.Config
	cfgFile  string
	verbose  bool
	svc      *core.Service
	svcOpts  []core.Option
	in       io.Reader
	lines    *bufio.Reader
	out      io.Writer
	readPIN  func(prompt string) ([]byte, error)
	copyText func(string) error
}

// Option customizes the root command, mainly for tests.
type Option func(*app)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *app) { a.in, a.out = in, out }
}

// WithServiceOptions passes options to the core service.
func WithServiceOptions(opts ...core.Option) Option {
	return func(a *app) { a.svcOpts = append(a.svcOpts, opts...) }
}

// WithClipboard replaces the clipboard writer used by `owner verify --copy`.
func WithClipboard(fn func(string) error) Option {
	return func(a *app) { a.copyText = fn }
}

// Execute runs the CLI. main maps the returned error through ExitCode.
func Execute() error {
	initLanguage(os.Args[1:])
	return NewRootCmd().Execute()
}

// initLanguage selects the message catalog before the command tree is built,
// so help and usage text are translated. Language is resolved from flags,
// environment and config files exactly as setup does. Errors leave the
// current catalog in place; setup reports them when the command runs.
func initLanguage(args []string) {
	root := NewRootCmd(WithIO(strings.NewReader(""), io.Discard))
	cmd, rest, err := root.Find(args)
	if err != nil {
		cmd, rest = root, args
	}
	cmd.InitDefaultHelpFlag()
	_ = cmd.ParseFlags(rest)
	explicit, err := configPathFromFlags(cmd)
	if err != nil {
		return
	}
	cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), explicit)
	if err != nil {
		return
	}
	i18n.Init(cfg.Language)
}

// NewRootCmd builds a fresh command tree. Each call has its own state so
// tests can run commands in isolation.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{in: os.Stdin, out: os.Stdout, copyText: writeClipboard}
	a.readPIN = a.promptPIN
	for _, o := range opts {
		o(a)
	}

	cmd := &cobra.Command{
		Use:           "hostwarden",
		Short:         i18n.T("cli.root.short"),
		Long:          i18n.T("cli.root.long"),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	cmd.SetOut(a.out)
	cmd.SetIn(a.in)
	cmd.Version = compositeVersion()

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	pf.String("state-dir", ".hostwarden", "Directory holding snapshots, state and audit data")
	pf.String("language", "en", `Message language ("en", "de")`)
	pf.StringP("output", "o", "json", `Output format ("json", "text")`)
	pf.String("audit-backend", "file", "Audit backend (file, sqlite, postgres, mysql)")
	pf.String("audit-dsn", "", "Audit database DSN for SQL backends")
	config.BindKey(pf, "state-dir", "state_dir")
	config.BindKey(pf, "language", "language")
	config.BindKey(pf, "output", "output")
	config.BindKey(pf, "audit-backend", "audit.backend")
	config.BindKey(pf, "audit-dsn", "audit.dsn")

	cmd.AddCommand(
		a.scanCmd(),
		a.snapshotsCmd(),
		a.diffCmd(),
		a.ignoreCmd(),
		a.baselineCmd(),
		a.ownerCmd(),
		a.auditCmd(),
		a.servicesCmd(),
		a.startupCmd(),
		a.tasksCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}
	explicit, err := configPathFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), explicit)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	switch cfg.Output {
	case "json", "text":
	default:
		return fmt.Errorf("unknown output format %q", cfg.Output)
	}
	a.cfg = cfg
	i18n.Init(cfg.Language)
	logging.Debugf("config: state_dir=%s audit.backend=%s", cfg.StateDir, cfg.Audit.Backend)
	return nil
}

func configPathFromFlags(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// service opens the core service on first use.
func (a *app) service() (*core.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := core.New(a.cfg, a.svcOpts...)
	if err != nil {
		return nil, err
	}
	if err := svc.EnsureLayout(); err != nil {
		_ = svc.Close()
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) close() error {
	if a.svc == nil {
		return nil
	}
	err := a.svc.Close()
	a.svc = nil
	return err
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date. If info is nil it reads build info from the runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/hostwarden/hostwarden" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("cli.version.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, c, d := resolveBuildVersion(nil)
			return a.success(result{"version": v, "commit": c, "built": d}, func(w io.Writer) {
				fmt.Fprintf(w, "version: %s\ncommit: %s\n", v, c)
				if d != "" {
					fmt.Fprintf(w, "built: %s\n", d)
				}
			})
		},
	}
}
