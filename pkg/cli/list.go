package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Sources:     cli.EnvVars("KIOKU_LIST_OFFSET"),
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of memories to list",
			Value:       20,
			Sources:     cli.EnvVars("KIOKU_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List recent memories",
		Flags: flags,
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

			result, err := uc.ListRecent(ctx, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list memories")
			}

			for _, p := range result.Memories {
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04"), p.Title)
			}
			fmt.Fprintf(c.Root().Writer, "total: %d\n", result.Total)
			return nil
		},
	}
}
