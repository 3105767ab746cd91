// Package getcmd implements the `treevault get` command.
package getcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/treevault/cmd/treevault/shared"
	"github.com/go-ports/treevault/internal/valuefmt"
)

// Command implements `treevault get`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the get command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "get <path>",
		Short: "Read the value at a slash-separated path",
		Args:  cobra.ExactArgs(1),
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

	v, err := backend.Root().Get(args[0])
	if err != nil {
		return err
	}
	out, err := valuefmt.Format(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
