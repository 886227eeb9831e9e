// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostwarden/hostwarden/internal/actions"
	"github.com/hostwarden/hostwarden/internal/audit"
	"github.com/hostwarden/hostwarden/internal/config"
	"github.com/hostwarden/hostwarden/internal/core"
	"github.com/hostwarden/hostwarden/internal/i18n"
	"github.com/hostwarden/hostwarden/internal/logging"
	"github.com/hostwarden/hostwarden/internal/model"
	"github.com/hostwarden/hostwarden/internal/owner"
	"github.com/hostwarden/hostwarden/internal/risk"
	"github.com/hostwarden/hostwarden/internal/scan"
	"github.com/hostwarden/hostwarden/internal/security"
	"github.com/hostwarden/hostwarden/internal/snapshot"
	"github.com/hostwarden/hostwarden/util/slicest"
)

// withService opens the core service, runs fn and closes the service again.
// Open failures are rendered like any other command failure.
func (a *app) withService(fn func(svc *core.Service) error) error {
	svc, err := a.service()
	if err != nil {
		return a.failure(err)
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			logging.Warnf("close: %v", cerr)
		}
	}()
	return fn(svc)
}

func (a *app) scanCmd() *cobra.Command {
	var records string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: i18n.T("cli.scan.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				var probe scan.RecordsProbe = scan.EmptyRecords{}
				if records != "" {
					probe = scan.CollectorOutput{Path: records, In: a.in}
				}
				res, err := svc.Scan(cmd.Context(), probe)
				return a.finish(result{"path": res.Path, "counts": res.Counts}, err, func(w io.Writer) {
					fmt.Fprintln(w, res.Path)
					for _, c := range model.Categories {
						fmt.Fprintf(w, "  %s %d\n", labelStyle.Render(string(c)+":"), res.Counts[string(c)])
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&records, "records", "", `JSON records from an external collector ("-" reads stdin)`)
	return cmd
}

func (a *app) snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "snapshots", Short: i18n.T("cli.snapshots.short")}

	list := &cobra.Command{
		Use:   "list",
		Short: i18n.T("cli.snapshots.list"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				entries, err := svc.Snapshots()
				return a.finish(result{"snapshots": entries}, err, func(w io.Writer) {
					renderLines(w, slicest.Map(entries, func(e snapshot.Entry) string { return e.Name }))
				})
			})
		},
	}

	show := &cobra.Command{
		Use:   "show [ref]",
		Short: i18n.T("cli.snapshots.show"),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				ref := ""
				if len(args) == 1 {
					ref = args[0]
				}
				snap, path, err := svc.Snapshot(ref)
				return a.finish(result{"path": path, "snapshot": snap}, err, nil)
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: i18n.T("cli.snapshots.import"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				path, err := svc.ImportSnapshot(args[0])
				return a.finish(result{"path": path}, err, func(w io.Writer) { fmt.Fprintln(w, path) })
			})
		},
	}

	cmd.AddCommand(list, show, imp)
	return cmd
}

func (a *app) diffCmd() *cobra.Command {
	var useBaseline bool
	cmd := &cobra.Command{
		Use:   "diff",
		Short: i18n.T("cli.diff.short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				return a.report(svc.Diff(useBaseline))
			})
		},
	}
	cmd.Flags().BoolVar(&useBaseline, "baseline", false, "Compare the accepted baseline against the latest snapshot")
	return cmd
}

func (a *app) ignoreCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ignore", Short: i18n.T("cli.ignore.short")}
	renderIgnore := func(l model.IgnoreList) func(w io.Writer) {
		return func(w io.Writer) {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("processes:"), strings.Join(l.Processes, ", "))
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("ports:"), strings.Join(l.Ports, ", "))
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render("paths:"), strings.Join(l.Paths, ", "))
		}
	}

	add := &cobra.Command{
		Use:   "add <category> <value>",
		Short: i18n.T("cli.ignore.add"),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				l, err := svc.IgnoreAdd(args[0], args[1])
				return a.finish(result{"ignore": l}, err, renderIgnore(l))
			})
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: i18n.T("cli.ignore.list"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				l, err := svc.IgnoreList()
				return a.finish(result{"ignore": l}, err, renderIgnore(l))
			})
		},
	}
	cmd.AddCommand(add, list)
	return cmd
}

func (a *app) baselineCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "baseline", Short: i18n.T("cli.baseline.short")}

	accept := &cobra.Command{
		Use:   "accept <ref>",
		Short: i18n.T("cli.baseline.accept"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				b, err := svc.BaselineAccept(args[0])
				return a.finish(result{"baseline": b}, err, func(w io.Writer) { fmt.Fprintln(w, b.Snapshot) })
			})
		},
	}
	show := &cobra.Command{
		Use:   "show",
		Short: i18n.T("cli.baseline.show"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				b, err := svc.Baseline()
				return a.finish(result{"baseline": b}, err, func(w io.Writer) {
					if b == nil {
						fmt.Fprintln(w, labelStyle.Render("-"))
						return
					}
					fmt.Fprintln(w, b.Snapshot)
				})
			})
		},
	}
	cmd.AddCommand(accept, show)
	return cmd
}

func (a *app) ownerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "owner", Short: i18n.T("cli.owner.short")}

	var initPIN string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("cli.owner.init"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := a.pinFromFlagOrPrompt(initPIN, true)
			if err != nil {
				return err
			}
			defer pin.Zero()
			return a.withService(func(svc *core.Service) error {
				replaced, err := svc.OwnerInit(pin)
				return a.finish(result{"initialized": true, "replaced": replaced}, err, func(w io.Writer) { fmt.Fprintln(w, "ok") })
			})
		},
	}
	initCmd.Flags().StringVar(&initPIN, "pin", "", "Owner PIN (prompted without echo when omitted)")

	var verifyPIN, ttlFlag string
	var copyToken bool
	verify := &cobra.Command{
		Use:   "verify",
		Short: i18n.T("cli.owner.verify"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := a.tokenTTL(ttlFlag)
			if err != nil {
				return a.failure(err)
			}
			pin, err := a.pinFromFlagOrPrompt(verifyPIN, false)
			if err != nil {
				return err
			}
			defer pin.Zero()
			return a.withService(func(svc *core.Service) error {
				sess, err := svc.OwnerVerify(pin, ttl)
				if err != nil {
					return a.failure(err)
				}
				r := result{"token": sess.Token, "expires_at": sess.ExpiresAt, "expires_in": sess.ExpiresIn}
				if copyToken {
					copied := a.copyText(sess.Token) == nil
					r["copied"] = copied
					if copied {
						fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("cli.owner.copied"))
					}
				}
				return a.success(r, func(w io.Writer) {
					fmt.Fprintln(w, sess.Token)
					fmt.Fprintf(w, "%s %s\n", labelStyle.Render("expires:"), sess.ExpiresAt.Format(time.RFC3339))
				})
			})
		},
	}
	verify.Flags().StringVar(&verifyPIN, "pin", "", "Owner PIN (prompted without echo when omitted)")
	verify.Flags().StringVar(&ttlFlag, "ttl", "", "Token lifetime, seconds or a duration such as 5m (default owner.token_ttl)")
	verify.Flags().BoolVar(&copyToken, "copy", false, "Copy the token to the clipboard")

	logout := &cobra.Command{
		Use:   "logout",
		Short: i18n.T("cli.owner.logout"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				had, err := svc.OwnerLogout()
				return a.finish(result{"had_session": had}, err, func(w io.Writer) { fmt.Fprintln(w, "ok") })
			})
		},
	}

	cmd.AddCommand(initCmd, verify, logout)
	return cmd
}

// tokenTTL resolves --ttl, falling back to owner.token_ttl.
func (a *app) tokenTTL(flag string) (time.Duration, error) {
	raw := flag
	if raw == "" {
		raw = a.cfg.Owner.TokenTTL
	}
	if raw == "" {
		return owner.DefaultTTL, nil
	}
	ttl, err := config.ParseTTL(raw)
	if err != nil {
		return 0, &model.Error{Kind: model.KindInvalidTTL, Message: err.Error(), Err: err}
	}
	return ttl, nil
}

func (a *app) auditCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "audit", Short: i18n.T("cli.audit.short")}

	var tail int
	var kind string
	show := &cobra.Command{
		Use:   "show",
		Short: i18n.T("cli.audit.show"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				evs, err := svc.AuditTail(tail)
				if kind != "" {
					evs = slicest.Filter(evs, func(ev model.AuditEvent) bool { return string(ev.Kind) == kind })
				}
				return a.finish(result{"events": evs}, err, func(w io.Writer) {
					renderLines(w, slicest.Map(evs, func(ev model.AuditEvent) string {
						ts := time.Unix(ev.TS, 0).UTC().Format(time.RFC3339)
						return fmt.Sprintf("%s %s %s", labelStyle.Render(ts), titleStyle.Render(string(ev.Kind)), ev.Data)
					}))
				})
			})
		},
	}
	show.Flags().IntVar(&tail, "tail", audit.DefaultTail, "Number of events to show (1-500)")
	show.Flags().StringVar(&kind, "kind", "", "Only show events of this kind within the tail window")

	export := &cobra.Command{
		Use:   "export [file]",
		Short: i18n.T("cli.audit.export"),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				if len(args) == 0 {
					if _, err := svc.AuditLog().Export(a.out); err != nil {
						return &ExitError{Code: ExitFailure, Err: err}
					}
					return nil
				}
				f, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return a.failure(model.StorageError(err, "could not create %s", args[0]))
				}
				n, err := svc.AuditLog().Export(f)
				if cerr := f.Close(); err == nil && cerr != nil {
					err = model.StorageError(cerr, "could not write %s", args[0])
				}
				return a.finish(result{"path": args[0], "events": n}, err, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%d)\n", args[0], n)
				})
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: i18n.T("cli.audit.import"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				var src io.Reader = a.in
				if args[0] != "-" {
					f, err := os.Open(args[0])
					if err != nil {
						return a.failure(model.StorageError(err, "could not open %s", args[0]))
					}
					defer func() { _ = f.Close() }()
					src = f
				}
				n, err := svc.AuditLog().Import(src)
				return a.finish(result{"imported": n}, err, func(w io.Writer) { fmt.Fprintln(w, n) })
			})
		},
	}

	maintain := &cobra.Command{
		Use:   "maintain",
		Short: i18n.T("cli.audit.maintain"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				rep, err := svc.AuditLog().Maintain(cmd.Context())
				return a.finish(result{"backend": rep.Backend, "events": rep.Events}, err, func(w io.Writer) {
					fmt.Fprintf(w, "%s (%d)\n", rep.Backend, rep.Events)
				})
			})
		},
	}

	cmd.AddCommand(show, export, imp, maintain)
	return cmd
}

// actionFunc is one of the gated remediation operations of core.Service.
type actionFunc func(svc *core.Service, cmd *cobra.Command, token, target string) (actions.Result, error)

func (a *app) actionCmd(use, short string, run actionFunc) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				if token == "" {
					token = os.Getenv("HOSTWARDEN_TOKEN")
				}
				res, err := run(svc, cmd, token, args[0])
				if err != nil {
					return a.failure(err)
				}
				if !res.OK {
					return a.failure(model.Errorf(model.KindActionFailed, "%s", res.Message))
				}
				return a.success(result{"message": res.Message, "changed": res.Changed}, func(w io.Writer) {
					fmt.Fprintln(w, res.Message)
					for _, c := range res.Changed {
						fmt.Fprintf(w, "  %s -> %s\n", c.From, c.To)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Owner token issued by owner verify (default $HOSTWARDEN_TOKEN)")
	return cmd
}

func (a *app) servicesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "services", Short: i18n.T("cli.services.short")}

	suspicious := &cobra.Command{
		Use:   "suspicious [ref]",
		Short: i18n.T("cli.services.suspicious"),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				ref := ""
				if len(args) == 1 {
					ref = args[0]
				}
				flags, path, err := svc.SuspiciousServices(ref)
				return a.finish(result{"snapshot": path, "flagged": flags}, err, func(w io.Writer) {
					renderLines(w, slicest.Map(flags, func(f risk.ServiceFlag) string {
						return fmt.Sprintf("%s %d %s", titleStyle.Render(f.ServiceName), f.FlagScore, strings.Join(f.Reasons, "; "))
					}))
				})
			})
		},
	}

	stop := a.actionCmd("stop <service>", i18n.T("cli.services.stop"),
		func(svc *core.Service, cmd *cobra.Command, token, target string) (actions.Result, error) {
			return svc.ServiceStop(cmd.Context(), token, target)
		})

	cmd.AddCommand(suspicious, stop)
	return cmd
}

func (a *app) startupCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "startup", Short: i18n.T("cli.startup.short")}
	cmd.AddCommand(a.actionCmd("disable <name>", i18n.T("cli.startup.disable"),
		func(svc *core.Service, cmd *cobra.Command, token, target string) (actions.Result, error) {
			return svc.StartupDisable(cmd.Context(), token, target)
		}))
	return cmd
}

func (a *app) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tasks", Short: i18n.T("cli.tasks.short")}
	cmd.AddCommand(a.actionCmd("disable <task>", i18n.T("cli.tasks.disable"),
		func(svc *core.Service, cmd *cobra.Command, token, target string) (actions.Result, error) {
			return svc.TaskDisable(cmd.Context(), token, target)
		}))
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: i18n.T("cli.config.short")}

	show := &cobra.Command{
		Use:   "show",
		Short: i18n.T("cli.config.show"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg
			if c.Audit.DSN != "" {
				c.Audit.DSN = security.FromString(c.Audit.DSN).String()
			}
			return a.success(result{"config": c}, nil)
		},
	}

	var system bool
	write := &cobra.Command{
		Use:   "write",
		Short: i18n.T("cli.config.write"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(&a.cfg, system)
			if err != nil {
				return a.failure(model.StorageError(err, "could not write config"))
			}
			return a.success(result{"path": path}, func(w io.Writer) { fmt.Fprintln(w, path) })
		},
	}
	write.Flags().BoolVar(&system, "system", false, "Write the system-wide config instead of the user config")

	cmd.AddCommand(show, write)
	return cmd
}
