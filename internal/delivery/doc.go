// Package delivery renders killmails for a subscriber's format and posts
// them. Deliveries are attempted once.
package delivery
