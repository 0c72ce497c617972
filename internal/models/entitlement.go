package models

import "time"

// Entitlement is the per-user subscription and token state. Rows are keyed
// by user id, never by browser context, so switching accounts can never
// observe another user's balance.
type Entitlement struct {
	UserID       string
	Active       bool
	PlanID       *string
	ExpiresAt    *time.Time
	TokenBalance int64
	UpdatedAt    time.Time
}

// Expired reports whether the paid period has lapsed.
func (e Entitlement) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}
