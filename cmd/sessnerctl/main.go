// Command sessnerctl is an operator CLI driving pkg/core.Core
// out-of-process, for local debugging and scripted maintenance of a
// running profile directory without the host extension UI.
//
// Grounded on navindex-colly's cmd package shape (one mow.cli command per
// verb, flags/opts bound to a small set of package-level handlers) per
// SPEC_FULL.md's DOMAIN STACK entry for github.com/jawher/mow.cli.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/jawher/mow.cli"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/config"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostapi"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/kvstore"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/logging"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/persistence"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/pkg/core"
)

// noopTabs satisfies hostapi.TabStore for CLI use, where there is no
// live browser to query; every maintenance verb here operates purely on
// persisted state.
type noopTabs struct{}

func (noopTabs) ListTabs() ([]identity.TabHandle, error) { return nil, nil }
func (noopTabs) TabURL(identity.TabHandle) (string, error) { return "", nil }
func (noopTabs) QueryGlobalCookies(string) ([]hostapi.GlobalCookie, error) {
	return nil, nil
}
func (noopTabs) DeleteGlobalCookie(string, string) error { return nil }

// fixedEntitlement reports the operator-selected tier; the CLI has no
// licensing collaborator of its own (spec.md §9 "entitlement validation
// is host-provided").
type fixedEntitlement struct{ tier policy.Tier }

func (f fixedEntitlement) GetTier() policy.Tier            { return f.tier }
func (f fixedEntitlement) GetFeatures() policy.FeatureSet { return policy.FeatureSet{} }

// stderrNotifier satisfies hostapi.Notifier for CLI use, where there is
// no host notification tray; the periodic expiration sweep's message
// still needs somewhere to go, so it lands on stderr.
type stderrNotifier struct{}

func (stderrNotifier) Notify(title, text string) { fmt.Fprintf(os.Stderr, "%s: %s\n", title, text) }
func (stderrNotifier) Alarm(string, time.Time)   {}

func openCore(tier string) (*core.Core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	primary, err := persistence.OpenBadgerLayer(cfg.Storage.BadgerPath)
	if err != nil {
		return nil, fmt.Errorf("opening primary store: %w", err)
	}
	secondary, err := persistence.OpenSQLiteLayer(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening secondary store: %w", err)
	}
	tertiary := persistence.NewMemoryLayer()

	t := policy.Pro
	switch tier {
	case "basic":
		t = policy.Basic
	case "plus":
		t = policy.Plus
	}

	logger := logging.New(false)
	c := core.New(noopTabs{}, fixedEntitlement{tier: t}, primary, secondary, tertiary, kvstore.NewMapBackend(), nil, stderrNotifier{}, nil, logger)
	if err := c.Boot(context.Background()); err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	return c, nil
}

func main() {
	app := cli.App("sessnerctl", "Operator CLI for the identity-scoped session state engine")
	app.Version("v version", "sessnerctl 0.1.0")

	tierOpt := app.StringOpt("tier", "pro", "entitlement tier to boot under: basic|plus|pro")

	app.Command("list", "List every identity, active and dormant", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			c, err := openCore(*tierOpt)
			mustOK(err)
			enum := c.ListIdentities()
			for _, ident := range enum.Active {
				fmt.Printf("active  %s %q\n", ident.ID, ident.Name)
			}
			for _, ident := range enum.Dormant {
				fmt.Printf("dormant %s %q\n", ident.ID, ident.Name)
			}
		}
	})

	app.Command("create", "Create a new identity", func(cmd *cli.Cmd) {
		name := cmd.StringOpt("name", "", "optional display name")
		cmd.Action = func() {
			c, err := openCore(*tierOpt)
			mustOK(err)
			result := c.CreateIdentity(nil)
			if result.Refused {
				fmt.Fprintf(os.Stderr, "refused: %s\n", result.Reason)
				os.Exit(1)
			}
			if *name != "" {
				c.Rename(result.Identity.ID, *name)
			}
			fmt.Println(result.Identity.ID)
		}
	})

	app.Command("delete", "Delete one identity by id", func(cmd *cli.Cmd) {
		id := cmd.StringArg("ID", "", "identity id")
		cmd.Action = func() {
			c, err := openCore(*tierOpt)
			mustOK(err)
			if !c.Delete(identity.ID(*id)) {
				fmt.Fprintln(os.Stderr, "no such identity")
				os.Exit(1)
			}
		}
	})

	app.Command("sweep-dormant", "Delete every dormant identity in bulk", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			c, err := openCore(*tierOpt)
			mustOK(err)
			attempted, deleted, errs := c.DeleteAllDormant()
			fmt.Printf("attempted=%d deleted=%d errors=%d\n", attempted, deleted, len(errs))
		}
	})

	app.Command("init-state", "Print the Initialization Orchestrator's state and transition log", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			c, err := openCore(*tierOpt)
			mustOK(err)
			state, log := c.GetInitState()
			fmt.Println("state:", state)
			for _, t := range log {
				fmt.Printf("  %s -> %s at %s\n", t.From, t.To, t.At.Format("15:04:05.000"))
			}
		}
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mustOK(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
