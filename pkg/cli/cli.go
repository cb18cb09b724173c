package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "kioku",
		Usage: "Persistent memory server for AI agents",
		Commands: []*cli.Command{
			serveCommand(),
			writeCommand(),
			searchCommand(),
			getCommand(),
			listCommand(),
			showCommand(),
			deleteCommand(),
			reconcileCommand(),
			statsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
