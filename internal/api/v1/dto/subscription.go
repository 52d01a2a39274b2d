package dto

// SubscriptionCheckoutRequest selects the plan for a Stripe Checkout session.
type SubscriptionCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=basic pro"`
}
