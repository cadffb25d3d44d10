package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"SolarBudget/internal/store"
)

type checkCmd struct {
	config *string
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "verify the snapshot database" }
func (*checkCmd) Usage() string {
	return `solarbudget check

  Checks that the snapshot store is reachable and migrated, and that the
  newest snapshot of each series holds valid JSON.
`
}

func (c *checkCmd) SetFlags(*flag.FlagSet) {}

func (c *checkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig(*c.config, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ open store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer st.Close()

	rep, err := st.Check(ctx)
	if rep != nil {
		fmt.Print(rep.String())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if !rep.OK() {
		return subcommands.ExitFailure
	}
	fmt.Println("all checks passed")
	return subcommands.ExitSuccess
}
