// Package setcmd implements the `treevault set` command.
package setcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/treevault/cmd/treevault/shared"
	"github.com/go-ports/treevault/internal/valuefmt"
)

// Command implements `treevault set`.
type Command struct {
	ctx     *shared.Context
	cmd     *cobra.Command
	valType string
}

// New creates the set command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Write a value at a slash-separated path",
		Long: `Write a value at a slash-separated path.

All intermediate mappings must already exist. With --type json the
value is parsed as a JSON fragment; a JSON object replaces the entire
previous subtree at the path.`,
		Args: cobra.ExactArgs(2),
		RunE: c.run,
	}
	c.cmd.Flags().StringVarP(&c.valType, "type", "t", valuefmt.TypeString,
		"Value type: string, int, float, bool, bytes, null or json")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, args []string) error {
	value, err := valuefmt.Parse(args[1], c.valType)
	if err != nil {
		return err
	}

	backend, err := c.ctx.Open()
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.Root().Set(args[0], value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", args[0])
	return nil
}
