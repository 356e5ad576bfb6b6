// Package main implements the gitledger CLI: init, lock, update, renew,
// release, status, and gc against a monotonic-ledger lease.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/monoledger/gitledger/cmd"
	"github.com/monoledger/gitledger/internal/config"
	"github.com/monoledger/gitledger/internal/ledger"
	"github.com/monoledger/gitledger/internal/lease"
	"github.com/monoledger/gitledger/internal/tui"
	"github.com/monoledger/gitledger/internal/version"
)

const defaultConfigPath = ".gitledger.yaml"

// commonFlags are recognized by every subcommand that touches a ledger.
type commonFlags struct {
	configPath string
	quiet      bool
	json       bool
	payload    string
}

// parseCommonFlags extracts --config, --quiet/-q, --json, and --payload
// from args, returning the parsed flags and whatever remained.
func parseCommonFlags(args []string) (commonFlags, []string) {
	flags := commonFlags{configPath: defaultConfigPath}
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" && i+1 < len(args):
			i++
			flags.configPath = args[i]
		case arg == "--payload" && i+1 < len(args):
			i++
			flags.payload = args[i]
		case arg == "--quiet" || arg == "-q":
			flags.quiet = true
		case arg == "--json":
			flags.json = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return flags, remaining
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(0)
	}

	command := os.Args[1]

	if command == "--help" || command == "-h" || command == "help" {
		printHelp()
		os.Exit(0)
	}

	if command == "--version" {
		fmt.Printf("gitledger %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
		os.Exit(0)
	}

	switch command {
	case "init":
		runInit(os.Args[2:])

	case "lock":
		runLock(os.Args[2:])

	case "update":
		runUpdate(os.Args[2:])

	case "renew":
		runRenew(os.Args[2:])

	case "release":
		runRelease(os.Args[2:])

	case "status":
		runStatus(os.Args[2:])

	case "gc":
		runGC(os.Args[2:])

	case "completion":
		if len(os.Args) < 3 {
			tui.PrintError("Usage", "gitledger completion <shell>\nSupported shells: bash, zsh, fish, powershell")
			os.Exit(1)
		}

		shell := os.Args[2]
		var script string

		switch shell {
		case "bash":
			script = cmd.GenerateBashCompletion()
		case "zsh":
			script = cmd.GenerateZshCompletion()
		case "fish":
			script = cmd.GenerateFishCompletion()
		case "powershell":
			script = cmd.GeneratePowerShellCompletion()
		default:
			tui.PrintError("Invalid Shell", fmt.Sprintf("'%s' is not supported. Use: bash, zsh, fish, or powershell", shell))
			os.Exit(1)
		}

		fmt.Println(script)

	default:
		tui.PrintError("Unknown Command", fmt.Sprintf("'%s' is not a recognized command. Run 'gitledger help' for usage.", command))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(tui.StyleTitle("gitledger"))
	fmt.Println("A distributed lease manager layered over a git object store.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gitledger <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Interactively configure a ledger")
	fmt.Println("  lock        Acquire the lease, print the payload")
	fmt.Println("  update      Acquire the lease and publish a new payload")
	fmt.Println("  renew       Renew a held lease without changing the payload")
	fmt.Println("  release     Release a held lease")
	fmt.Println("  status      Show the ledger's current lease and payload")
	fmt.Println("  gc          Garbage-collect leaked ephemeral refs")
	fmt.Println("  completion  Generate shell completion script")
	fmt.Println()
	fmt.Println("Flags (lock/update/renew/release/status):")
	fmt.Println("  --config <path>   ledger config file (default .gitledger.yaml)")
	fmt.Println("  --payload <path>  payload file to publish (update only)")
	fmt.Println("  --quiet, -q       suppress non-error output")
	fmt.Println("  --json            emit machine-readable JSON events")
}

func runInit(args []string) {
	flags, _ := parseCommonFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		tui.PrintError("Init Failed", err.Error())
		os.Exit(1)
	}

	cfg := tui.RunInitWizard(filepath.Join(cwd, ".gitledger"))
	if err := cfg.Save(flags.configPath); err != nil {
		tui.PrintError("Init Failed", err.Error())
		os.Exit(1)
	}
	tui.PrintInitSummary(cfg)
}

// runLock acquires the lease, prints its payload, then holds the lease by
// renewing it once per poll interval until interrupted, releasing on
// exit. This is the only subcommand that actually exercises Guard.Renew:
// renew/release have no meaningful standalone CLI form (see runRenew,
// runRelease below), since there is no guard object for a fresh process
// to renew or release.
func runLock(args []string) {
	flags, _ := parseCommonFlags(args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, callback := loadConfigOrExit(flags)
	mgr, tracker := openManager(ctx, cfg, flags, callback)

	guard, err := mgr.Lock(ctx)
	if err != nil {
		callback.ShowError("Lock Failed", err.Error())
		os.Exit(1)
	}
	finishWait(tracker)
	defer guard.Close()

	os.Stdout.Write(guard.Data())
	fmt.Println()
	callback.ShowSuccess("lease held, renewing until interrupted (ctrl-c to release)")

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := guard.Renew(ctx); err != nil {
				callback.ShowError("Renew Failed", err.Error())
				return
			}
		}
	}
}

func runUpdate(args []string) {
	flags, _ := parseCommonFlags(args)
	if flags.payload == "" {
		tui.PrintError("Usage", "gitledger update --payload <path> [--config <path>]")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, callback := loadConfigOrExit(flags)
	mgr, tracker := openManager(ctx, cfg, flags, callback)

	payload, err := os.ReadFile(flags.payload)
	if err != nil {
		callback.ShowError("Update Failed", err.Error())
		os.Exit(1)
	}

	guard, err := mgr.Lock(ctx)
	if err != nil {
		callback.ShowError("Lock Failed", err.Error())
		os.Exit(1)
	}
	finishWait(tracker)

	if err := guard.UpdateAndRelease(ctx, payload); err != nil {
		callback.ShowError("Update Failed", err.Error())
		os.Exit(1)
	}
	callback.ShowSuccess("ledger updated")
}

func runRenew(args []string) {
	flags, _ := parseCommonFlags(args)
	tui.PrintError("Unsupported", "renew requires a long-lived process holding the guard; "+
		"use the lease package's Guard.Renew from a daemon, not the one-shot CLI.")
	_ = flags
	os.Exit(1)
}

func runRelease(args []string) {
	flags, _ := parseCommonFlags(args)
	tui.PrintError("Unsupported", "release requires the guard returned by the original lock; "+
		"there is no CLI-safe way to release someone else's in-process guard.")
	_ = flags
	os.Exit(1)
}

func runStatus(args []string) {
	flags, _ := parseCommonFlags(args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, callback := loadConfigOrExit(flags)

	l, err := ledger.Open(ctx, cfg.LocalPath, cfg.RemoteName, cfg.RemoteURL, cfg.Branch)
	if err != nil {
		callback.ShowError("Status Failed", err.Error())
		os.Exit(1)
	}

	state, err := l.Fetch(ctx)
	if err != nil {
		callback.ShowError("Status Failed", err.Error())
		os.Exit(1)
	}
	if state == nil {
		callback.ShowSuccess("ledger has never been pushed to")
		return
	}

	payload, leaseID, err := ledger.Decode(ctx, l.Git(), state.Entries)
	if err != nil {
		callback.ShowError("Status Failed", err.Error())
		os.Exit(1)
	}

	if flags.json {
		fmt.Printf(`{"commit":%q,"lease_id":%d,"payload_bytes":%d}`+"\n", state.Commit, leaseID, len(payload))
		return
	}
	if leaseID == 0 {
		callback.ShowSuccess(fmt.Sprintf("unheld, commit %s, %d payload bytes", state.Commit, len(payload)))
	} else {
		callback.ShowSuccess(fmt.Sprintf("held (lease %016x), commit %s, %d payload bytes", leaseID, state.Commit, len(payload)))
	}
}

func runGC(args []string) {
	flags, _ := parseCommonFlags(args)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, callback := loadConfigOrExit(flags)

	l, err := ledger.Open(ctx, cfg.LocalPath, cfg.RemoteName, cfg.RemoteURL, cfg.Branch)
	if err != nil {
		callback.ShowError("GC Failed", err.Error())
		os.Exit(1)
	}

	n, err := l.Git().GCEphemeralRefs(ctx)
	if err != nil {
		callback.ShowError("GC Failed", err.Error())
		os.Exit(1)
	}
	callback.ShowSuccess(fmt.Sprintf("removed %d leaked ephemeral ref(s)", n))
}

func loadConfigOrExit(flags commonFlags) (*config.Config, tui.Callback) {
	mode := tui.DetectMode(flags.json, flags.quiet)
	callback := tui.NewCallback(mode)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		callback.ShowError("Config Error", fmt.Sprintf("%s (run 'gitledger init' first)", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		callback.ShowError("Config Error", err.Error())
		os.Exit(1)
	}
	return cfg, callback
}

// openManager opens a ledger and lease manager for cfg, wiring a wait
// tracker appropriate to the output mode (a progress bar for interactive
// terminals, one line per event for quiet/piped output, nothing for JSON).
// The returned tracker is nil in JSON mode; pass it to finishWait once
// acquisition completes.
func openManager(ctx context.Context, cfg *config.Config, flags commonFlags, callback tui.Callback) (*lease.Manager, lease.Notifier) {
	l, err := ledger.Open(ctx, cfg.LocalPath, cfg.RemoteName, cfg.RemoteURL, cfg.Branch)
	if err != nil {
		callback.ShowError("Open Failed", err.Error())
		os.Exit(1)
	}

	var notifier lease.Notifier
	switch callback.Mode() {
	case tui.OutputNormal:
		notifier = tui.NewBubbleteaWaitTracker(cfg.LeaseDuration)
	case tui.OutputQuiet:
		notifier = tui.NewTextWaitTracker(cfg.LeaseDuration)
	}

	return lease.New(l, lease.Config{PollInterval: cfg.PollInterval, LeaseDuration: cfg.LeaseDuration}, notifier), notifier
}

// finishWait signals a BubbleteaWaitTracker that acquisition completed, so
// its program can render a final frame and quit. Other trackers (or nil,
// in JSON mode) are left alone.
func finishWait(tracker lease.Notifier) {
	if bt, ok := tracker.(*tui.BubbleteaWaitTracker); ok {
		bt.Done()
	}
}
