package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/model"
	"github.com/urfave/cli/v3"
)

func getCommand() *cli.Command {
	var (
		cfg config
		ids []string
	)

	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "id",
			Usage:       "Memory ID to retrieve (repeatable)",
			Destination: &ids,
			Required:    true,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "get",
		Usage: "Retrieve full memories by ID",
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

			memoryIDs := make([]model.MemoryID, len(ids))
			for i, id := range ids {
				memoryIDs[i] = model.MemoryID(id)
			}

			result, err := uc.GetByIDs(ctx, memoryIDs)
			if err != nil {
				return goerr.Wrap(err, "failed to retrieve memories")
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
