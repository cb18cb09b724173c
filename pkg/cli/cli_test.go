package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/cli"
)

func run(t *testing.T, argv ...string) {
	t.Helper()
	err := cli.Run(context.Background(), append([]string{"kioku"}, argv...))
	if err != nil {
		t.Fatalf("command failed: %s", err.Message)
	}
}

func backendFlags(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"--storage", "sqlite",
		"--sqlite-path", filepath.Join(dir, "kioku.db"),
		"--index", "chromem",
		"--index-dir", filepath.Join(dir, "index"),
		"--embedder", "mock",
	}
}

func TestWriteSearchDeleteFlow(t *testing.T) {
	flags := backendFlags(t)

	run(t, append([]string{"write",
		"--title", "Debug sqlite busy timeout",
		"--summary", "Set busy_timeout pragma to avoid lock errors",
		"--content", "Full notes on the sqlite locking investigation.",
	}, flags...)...)

	run(t, append([]string{"search", "--query", "sqlite lock errors", "--limit", "5"}, flags...)...)
	run(t, append([]string{"list", "--limit", "10"}, flags...)...)
	run(t, append([]string{"reconcile"}, flags...)...)
	run(t, append([]string{"stats"}, flags...)...)
}

func TestWriteFromInputFile(t *testing.T) {
	flags := backendFlags(t)

	input := filepath.Join(t.TempDir(), "memory.yml")
	body := `title: Configure CI caching
summary: Cache Go module downloads between CI runs
full_content: |
  Detailed CI configuration notes.
metadata:
  source: ci-docs
`
	gt.NoError(t, os.WriteFile(input, []byte(body), 0600))

	run(t, append([]string{"write", "--input", input}, flags...)...)
	run(t, append([]string{"list", "--limit", "1"}, flags...)...)
}

func TestWriteRejectsEmptyTitle(t *testing.T) {
	flags := backendFlags(t)

	err := cli.Run(context.Background(), append([]string{"kioku", "write",
		"--summary", "s", "--content", "c"}, flags...))
	gt.V(t, err).NotNil()
}
