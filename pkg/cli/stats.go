package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func statsCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "stats",
		Usage: "Show store and index statistics",
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

			stats, err := uc.Stats(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to collect stats")
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "memories:       %d\n", stats.TotalMemories)
			fmt.Fprintf(w, "index entries:  %d\n", stats.IndexEntries)
			fmt.Fprintf(w, "embedding dims: %d\n", stats.EmbeddingDims)
			if len(stats.RecentTitles) > 0 {
				fmt.Fprintln(w, "recent:")
				for _, title := range stats.RecentTitles {
					fmt.Fprintf(w, "  %s\n", title)
				}
			}
			return nil
		},
	}
}
