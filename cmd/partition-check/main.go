// Command partition-check reports whether the partition table covers the
// current month, or the next one with --next. It exits 1 when it does not.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	_ "time/tzdata"

	"github.com/spf13/cobra"

	"botspese/internal/cli"
	"botspese/internal/config"
	"botspese/internal/partition"
)

// errMissing is reported with exit status 1; everything else exits 2.
var errMissing = errors.New("partition missing")

func newRootCmd(cfg *config.Config, now func() time.Time) *cobra.Command {
	var next, list bool
	cmd := &cobra.Command{
		Use:   "partition-check",
		Short: "Check that the ledger partition table covers this month",
		Long: `partition-check resolves the partition of the current month in
TIMEZONE against PARTITIONS_FILE and PARTITIONS, and prints its key and id.

Example:
  partition-check --next   # run before month end to catch a missing entry`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cmd.OutOrStdout(), cfg, now(), next, list)
		},
	}
	cmd.Flags().BoolVar(&next, "next", false, "check the month after the current one")
	cmd.Flags().BoolVar(&list, "list", false, "print every configured partition")
	return cmd
}

func check(out io.Writer, cfg *config.Config, now time.Time, next, list bool) error {
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	table, err := partition.Load(cfg.PartitionsFile, cfg.Partitions)
	if err != nil {
		return fmt.Errorf("load partitions: %w", err)
	}
	router := partition.NewRouter(table, loc)

	if list {
		for _, k := range table.Keys() {
			id, _ := table.Lookup(k)
			fmt.Fprintf(out, "%s\t%s\n", k, id)
		}
	}

	resolve := router.Resolve
	if next {
		resolve = router.Next
	}
	key, id, ok := resolve(now)
	if !ok {
		fmt.Fprintf(out, "%s\tMISSING\n", key)
		return fmt.Errorf("%w for %s", errMissing, key)
	}
	fmt.Fprintf(out, "%s\t%s\n", key, id)
	return nil
}

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd(config.Load(), time.Now).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errMissing) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
