package cli

import (
	"context"
	"os"

	mcpservice "github.com/m-mizutani/kioku/pkg/service/mcp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP memory server on stdio",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.load(c); err != nil {
				return err
			}
			// stdout carries the MCP protocol, so logs go to stderr
			ctx = cfg.loggerContext(ctx, os.Stderr)

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			server := mcpservice.New(uc)
			return server.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
