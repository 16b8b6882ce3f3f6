package client

import (
	"fmt"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/zkhook/internal/cmd/client/transports"
)

// NewFiltersCommand constructs the `filters` command listing stored filters.
func NewFiltersCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "List registered filters and their subscriber counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			server, _ := cmd.Flags().GetString("server")
			asJSON, _ := cmd.Flags().GetBool("json")
			if server == "" {
				server = baseURL()
			}
			rows, err := transports.NewHTTPTransport(server, transports.EncodingJSON).ListFilters(cmd.Context(), kind)
			if err != nil {
				return fmt.Errorf("list filters: %w", err)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %d\n", r.Key, r.Subscribers)
			}
			return nil
		},
	}
	cmd.Flags().String("kind", "", "only list one kind: all|character|corporation|alliance|system|ship")
	cmd.Flags().String("server", "", "zkhook server base URL")
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}
