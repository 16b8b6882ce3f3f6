package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the zkhook client commands.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "zkhook",
		Short: "zkhook client commands",
	}
	AddCommands(root, baseURL)
	return root
}

// AddCommands registers the client commands on parent.
func AddCommands(parent *cobra.Command, baseURL BaseURLFunc) {
	parent.AddCommand(NewRegisterCommand(baseURL))
	parent.AddCommand(NewFiltersCommand(baseURL))
}
