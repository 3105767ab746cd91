// Package dumpcmd implements the `treevault dump` command.
package dumpcmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yalp/jsonpath"

	"github.com/go-ports/treevault/cmd/treevault/shared"
	"github.com/go-ports/treevault/internal/storage"
	"github.com/go-ports/treevault/internal/valuefmt"
)

// Command implements `treevault dump`.
type Command struct {
	ctx   *shared.Context
	cmd   *cobra.Command
	query string
}

// New creates the dump command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "dump [path]",
		Short: "Export a subtree as JSON, optionally filtered by a JSONPath query",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.run,
	}
	c.cmd.Flags().StringVarP(&c.query, "query", "q", "",
		`JSONPath expression over the exported document, e.g. "$.tools.nmap"`)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	backend, err := c.ctx.Open()
	if err != nil {
		return err
	}
	defer backend.Close()

	node := backend.Root()
	if len(args) == 1 {
		v, err := node.Get(args[0])
		if err != nil {
			return err
		}
		child, ok := v.(*storage.Node)
		if !ok {
			return fmt.Errorf("%w: %q holds a value, not a mapping", storage.ErrMappingExpected, args[0])
		}
		node = child
	}

	doc, err := storage.Export(node)
	if err != nil {
		return err
	}
	out := valuefmt.Displayable(doc)

	if c.query != "" {
		out, err = jsonpath.Read(out, c.query)
		if err != nil {
			return fmt.Errorf("dump: query %q: %w", c.query, err)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
