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

func searchCommand() *cli.Command {
	var (
		cfg   config
		query string
		limit int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Natural language query to search memories",
			Sources:     cli.EnvVars("KIOKU_SEARCH_QUERY"),
			Destination: &query,
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of previews to return",
			Value:       10,
			Sources:     cli.EnvVars("KIOKU_SEARCH_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "search",
		Usage: "Search memories and show previews",
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

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			sp.Suffix = " searching..."
			sp.Start()
			previews, err := uc.Search(ctx, query, int(limit))
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "failed to search memories")
			}

			if len(previews) == 0 {
				fmt.Fprintln(c.Root().Writer, "no matching memories")
				return nil
			}
			for _, p := range previews {
				fmt.Fprintf(c.Root().Writer, "%s\t%.3f\t%s\n\t%s\n", p.ID, p.Score, p.Title, p.Summary)
			}
			return nil
		},
	}
}
