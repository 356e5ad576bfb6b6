package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/monoledger/gitledger/internal/config"
)

func check(err error) {
	if err != nil {
		fmt.Println("Aborted.")
		os.Exit(1)
	}
}

// RunInitWizard launches the interactive first-time setup wizard and
// returns a populated, validated Config. defaultLocalPath seeds the local
// path field.
func RunInitWizard(defaultLocalPath string) *config.Config {
	cfg := config.Default(defaultLocalPath)
	var pollSeconds, leaseSeconds string
	pollSeconds = strconv.Itoa(int(cfg.PollInterval.Seconds()))
	leaseSeconds = strconv.Itoa(int(cfg.LeaseDuration.Seconds()))

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Remote URL").
				Placeholder("https://github.com/owner/repo.git").
				Description("The git remote hosting the ledger's branch.").
				Value(&cfg.RemoteURL).
				Validate(validateNonEmpty("remote URL")),
			huh.NewInput().
				Title("Remote name").
				Value(&cfg.RemoteName).
				Validate(validateNonEmpty("remote name")),
			huh.NewInput().
				Title("Branch").
				Value(&cfg.Branch).
				Validate(validateNonEmpty("branch")),
			huh.NewInput().
				Title("Local store path").
				Value(&cfg.LocalPath).
				Validate(validateNonEmpty("local path")),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Description("How often to re-check a held lease while waiting.").
				Value(&pollSeconds).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Lease duration (seconds)").
				Description("How long a lease may go unrenewed before a waiter may steal it.").
				Value(&leaseSeconds).
				Validate(validatePositiveInt),
		),
	)
	check(form.Run())

	pollN, _ := strconv.Atoi(strings.TrimSpace(pollSeconds))
	leaseN, _ := strconv.Atoi(strings.TrimSpace(leaseSeconds))
	cfg.PollInterval = time.Duration(pollN) * time.Second
	cfg.LeaseDuration = time.Duration(leaseN) * time.Second

	if err := cfg.Validate(); err != nil {
		PrintError("Invalid configuration", err.Error())
		os.Exit(1)
	}
	return cfg
}

func validateNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number of seconds")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// PrintInitSummary prints the resolved configuration after a successful
// init wizard run.
func PrintInitSummary(cfg *config.Config) {
	fmt.Println(StyleTitle("Ledger configured"))
	fmt.Printf("  remote:         %s (%s)\n", cfg.RemoteURL, cfg.RemoteName)
	fmt.Printf("  branch:         %s\n", cfg.Branch)
	fmt.Printf("  local path:     %s\n", cfg.LocalPath)
	fmt.Printf("  poll interval:  %s\n", cfg.PollInterval)
	fmt.Printf("  lease duration: %s\n", cfg.LeaseDuration)
}
