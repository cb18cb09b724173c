package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/urfave/cli/v3"
)

func deleteCommand() *cli.Command {
	var (
		cfg config
		id  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Memory ID to delete",
			Destination: &id,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a memory from the store and the index",
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

			existed, err := uc.Delete(ctx, model.MemoryID(id))
			if err != nil {
				return goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
			}

			if existed {
				fmt.Fprintf(c.Root().Writer, "deleted %s\n", id)
			} else {
				fmt.Fprintf(c.Root().Writer, "%s was not found\n", id)
			}
			return nil
		},
	}
}
