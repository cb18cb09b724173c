package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kioku/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// writeInputFile is the YAML shape accepted by --input.
type writeInputFile struct {
	Title       string         `yaml:"title"`
	Summary     string         `yaml:"summary"`
	FullContent string         `yaml:"full_content"`
	Metadata    map[string]any `yaml:"metadata"`
}

func writeCommand() *cli.Command {
	var (
		cfg     config
		title   string
		summary string
		content string
		input   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Title of the memory",
			Sources:     cli.EnvVars("KIOKU_WRITE_TITLE"),
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "summary",
			Aliases:     []string{"s"},
			Usage:       "Summary shown in search previews",
			Sources:     cli.EnvVars("KIOKU_WRITE_SUMMARY"),
			Destination: &summary,
		},
		&cli.StringFlag{
			Name:        "content",
			Usage:       "Full content of the memory",
			Sources:     cli.EnvVars("KIOKU_WRITE_CONTENT"),
			Destination: &content,
		},
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to a YAML file with title, summary and full_content ('-' reads stdin)",
			Destination: &input,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "write",
		Usage: "Store a new memory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.load(c); err != nil {
				return err
			}
			ctx = cfg.loggerContext(ctx, os.Stderr)

			in := &memory.WriteInput{
				Title:   title,
				Summary: summary,
				Content: content,
			}
			if input != "" {
				file, err := readWriteInput(input)
				if err != nil {
					return err
				}
				in.Title = file.Title
				in.Summary = file.Summary
				in.Content = file.FullContent
				in.Metadata = file.Metadata
			}

			uc, closer, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer closer()

			mem, err := uc.Write(ctx, in)
			if err != nil {
				return goerr.Wrap(err, "failed to write memory")
			}

			fmt.Fprintf(c.Root().Writer, "%s\t%s\n", mem.ID, mem.Title)
			return nil
		},
	}
}

func readWriteInput(path string) (*writeInputFile, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read input", goerr.V("path", path))
	}

	var file writeInputFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse input", goerr.V("path", path))
	}
	return &file, nil
}
