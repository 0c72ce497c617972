package models

import "time"

type CheckoutStatus string

const (
	// CheckoutStatusPlanSelected: plan chosen, no payment method yet.
	CheckoutStatusPlanSelected CheckoutStatus = "plan_selected"
	// CheckoutStatusMethodSelected: method chosen, provider widget pending.
	CheckoutStatusMethodSelected CheckoutStatus = "method_selected"
	// CheckoutStatusCompleted: provider confirmed payment, tokens granted.
	CheckoutStatusCompleted CheckoutStatus = "completed"
	// CheckoutStatusCancelled: abandoned by the user or the provider.
	CheckoutStatusCancelled CheckoutStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
	PaymentMethodCrypto PaymentMethod = "crypto"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodCrypto:
		return true
	}
	return false
}

// CheckoutSession tracks one purchase attempt from plan selection to a
// terminal state. A provider error is not terminal: the session stays on
// method_selected so the user can retry without re-picking a plan.
type CheckoutSession struct {
	ID            string
	UserID        string
	PlanID        string
	Method        PaymentMethod
	Trial         bool
	AmountMinor   int64
	Currency      string
	Status        CheckoutStatus
	ProviderName  string
	ProviderRef   string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (s CheckoutSession) Terminal() bool {
	return s.Status == CheckoutStatusCompleted || s.Status == CheckoutStatusCancelled
}
