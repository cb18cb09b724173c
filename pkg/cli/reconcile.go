package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func reconcileCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "reconcile",
		Usage: "Repair drift between the record store and the summary index",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.load(c); err != nil {
				return err
			}
			ctx = cfg.loggerContext(ctx, os.Stderr)

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			sp.Suffix = " reconciling..."
			sp.Start()
			report, err := uc.Reconcile(ctx)
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "failed to reconcile")
			}

			fmt.Fprintf(c.Root().Writer, "re-indexed: %d, removed orphans: %d\n",
				len(report.Repaired), len(report.Removed))
			for _, id := range report.Repaired {
				fmt.Fprintf(c.Root().Writer, "  re-indexed %s\n", id)
			}
			for _, id := range report.Removed {
				fmt.Fprintf(c.Root().Writer, "  removed %s\n", id)
			}
			return nil
		},
	}
}
