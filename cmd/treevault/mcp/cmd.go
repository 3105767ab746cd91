// Package mcpcmd implements the `treevault mcp` command.
package mcpcmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/treevault/cmd/treevault/shared"
	"github.com/go-ports/treevault/internal/mcp"
)

// Command implements `treevault mcp`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the mcp command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the storage tree over stdio MCP",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	backend, err := c.ctx.Open()
	if err != nil {
		return err
	}
	defer backend.Close()

	return mcp.Serve(cmd.Context(), backend.Root())
}
