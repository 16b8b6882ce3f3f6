package client

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	transports "github.com/rzbill/zkhook/internal/cmd/client/transports"
	"github.com/rzbill/zkhook/internal/filter"
	"github.com/rzbill/zkhook/internal/subscription"
)

// NewRegisterCommand constructs the `register` command. Every --filter gets
// the same set of --url subscriptions.
func NewRegisterCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register webhooks for one or more filters",
		Example: `  zkhook register --url https://discord.com/api/webhooks/... --format discord --filter system:30000142
  zkhook register --url https://example.com/hook --format raw --filter character:93265215:victim --filter all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			urls, _ := cmd.Flags().GetStringArray("url")
			formatName, _ := cmd.Flags().GetString("format")
			filterSpecs, _ := cmd.Flags().GetStringArray("filter")
			server, _ := cmd.Flags().GetString("server")
			useJSON, _ := cmd.Flags().GetBool("json")

			batch, err := buildBatch(urls, formatName, filterSpecs)
			if err != nil {
				return err
			}
			if server == "" {
				server = baseURL()
			}
			enc := transports.EncodingCBOR
			if useJSON {
				enc = transports.EncodingJSON
			}
			if err := transports.NewHTTPTransport(server, enc).Register(cmd.Context(), batch); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %d webhook(s) for %d filter(s)\n", len(urls), len(batch))
			return nil
		},
	}
	cmd.Flags().StringArray("url", nil, "webhook URL (repeatable)")
	cmd.Flags().String("format", "discord", "payload format: discord|raw")
	cmd.Flags().StringArray("filter", nil, "filter, e.g. all, system:30000142, ship:587:victim (repeatable)")
	cmd.Flags().String("server", "", "zkhook server base URL")
	cmd.Flags().Bool("json", false, "send JSON instead of CBOR")
	return cmd
}

func buildBatch(urls []string, formatName string, filterSpecs []string) ([]transports.Registration, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one --url is required")
	}
	if len(filterSpecs) == 0 {
		return nil, errors.New("at least one --filter is required")
	}
	format, err := subscription.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	subs := make([]subscription.Subscription, 0, len(urls))
	for _, u := range urls {
		s := subscription.Subscription{WebhookURL: u, Format: format}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	filters := make([]filter.Filter, 0, len(filterSpecs))
	for _, raw := range filterSpecs {
		f, err := filter.Parse(raw)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	batch := make([]transports.Registration, 0, len(filters))
	for _, f := range filter.Dedup(filters) {
		batch = append(batch, transports.Registration{Filter: f, Subscriptions: subs})
	}
	return batch, nil
}
