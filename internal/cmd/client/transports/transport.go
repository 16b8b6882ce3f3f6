package transports

import (
	"context"

	"github.com/rzbill/zkhook/internal/server/http/controllers"
)

// Registration is one {filter, subscriptions} entry sent to the server.
type Registration = controllers.Registration

// FilterCount is one row of the server's filter listing.
type FilterCount struct {
	Key         string `json:"key"`
	Subscribers int    `json:"subscribers"`
}

// RegistrationTransport abstracts how the CLI reaches a zkhook server.
type RegistrationTransport interface {
	Register(ctx context.Context, batch []Registration) error
	ListFilters(ctx context.Context, kind string) ([]FilterCount, error)
}
