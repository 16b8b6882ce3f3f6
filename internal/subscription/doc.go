// Package subscription holds the webhook Subscription type, the Set used as
// the registry value, and its deterministic CBOR encoding.
package subscription
