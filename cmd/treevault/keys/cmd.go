// Package keyscmd implements the `treevault keys` command.
package keyscmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/treevault/cmd/treevault/shared"
	"github.com/go-ports/treevault/internal/storage"
)

// Command implements `treevault keys`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the keys command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "keys [path]",
		Short: "List child keys of a mapping (root when no path is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.run,
	}
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

	keys, err := node.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
