package controllers

import (
	"github.com/rzbill/zkhook/internal/filter"
	"github.com/rzbill/zkhook/internal/registry"
	"github.com/rzbill/zkhook/internal/subscription"
)

// Registration is one entry of a registration batch.
type Registration struct {
	Filter        filter.Filter               `json:"filter" cbor:"filter"`
	Subscriptions []subscription.Subscription `json:"subscriptions" cbor:"subscriptions"`
}

// registrationWire keeps the filter optional so a missing one is rejected
// rather than read as the zero filter.
type registrationWire struct {
	Filter        *filter.Filter              `json:"filter" cbor:"filter"`
	Subscriptions []subscription.Subscription `json:"subscriptions" cbor:"subscriptions"`
}

// filterJSON is one row of the filter listing. URLs are never exposed.
type filterJSON struct {
	Filter      filter.Filter `json:"filter"`
	Key         string        `json:"key"`
	Subscribers int           `json:"subscribers"`
}

type filtersResp struct {
	Filters []filterJSON   `json:"filters"`
	Total   int            `json:"total"`
	Stats   registry.Stats `json:"stats"`
}
