// Package rootcmd wires the root cobra.Command for the treevault CLI
// binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	deletecmd "github.com/go-ports/treevault/cmd/treevault/delete"
	dumpcmd "github.com/go-ports/treevault/cmd/treevault/dump"
	getcmd "github.com/go-ports/treevault/cmd/treevault/get"
	keyscmd "github.com/go-ports/treevault/cmd/treevault/keys"
	mcpcmd "github.com/go-ports/treevault/cmd/treevault/mcp"
	setcmd "github.com/go-ports/treevault/cmd/treevault/set"
	"github.com/go-ports/treevault/cmd/treevault/shared"
)

// New creates and returns the root cobra.Command for the treevault
// CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "treevault",
		Short:         "Hierarchical key-value storage over JSON or SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}

	root.PersistentFlags().StringVar(
		&ctx.Backend, "backend", "",
		"Storage backend: json or sqlite (default from config)",
	)
	root.PersistentFlags().StringVar(
		&ctx.Store, "store", "",
		"Store file path; \":memory:\" for an ephemeral store (default: backend default under the treevault home)",
	)

	root.AddCommand(
		getcmd.New(ctx).Cmd(),
		setcmd.New(ctx).Cmd(),
		deletecmd.New(ctx).Cmd(),
		keyscmd.New(ctx).Cmd(),
		dumpcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
	)

	return root
}
