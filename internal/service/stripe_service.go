package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BoweryJG/mUiLinguistics/internal/config"
	"github.com/BoweryJG/mUiLinguistics/internal/model"
	"github.com/BoweryJG/mUiLinguistics/internal/repository"
	"github.com/BoweryJG/mUiLinguistics/internal/tier"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeService reconciles subscription lifecycle events into user limits and
// manages checkout and billing portal sessions.
type StripeService struct {
	cfg          *config.Config
	userRepo     repository.UserRepository
	customerRepo repository.CustomerRepository
	limitsRepo   repository.LimitsRepository
	resolver     *tier.Resolver
	logger       zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service with a
// scoped logger.
func NewStripeService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	customerRepo repository.CustomerRepository,
	limitsRepo repository.LimitsRepository,
	resolver *tier.Resolver,
	logger zerolog.Logger,
) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	return &StripeService{
		cfg:          cfg,
		userRepo:     userRepo,
		customerRepo: customerRepo,
		limitsRepo:   limitsRepo,
		resolver:     resolver,
		logger:       logger.With().Str("service", "StripeService").Logger(),
	}
}

// HandleWebhook processes Stripe webhook events. Subscription created and
// updated events are both current-state snapshots and are applied
// identically; deleted events downgrade the user to the free tier. Events the
// service does not understand, or that reference an unmanaged customer, are
// acknowledged and ignored so the provider stops redelivering them.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	ctx := r.Context()
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			s.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Malformed subscription payload, ignoring event")
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := s.applySubscriptionSnapshot(ctx, &sub, event.Created); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to apply subscription snapshot")
			http.Error(w, "failed to apply subscription event", http.StatusInternalServerError)
			return
		}
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			s.logger.Warn().Err(err).Msg("Malformed subscription payload, ignoring event")
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := s.applySubscriptionDeleted(ctx, &sub, event.Created); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to downgrade user on subscription deletion")
			http.Error(w, "failed to apply subscription event", http.StatusInternalServerError)
			return
		}
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

// applySubscriptionSnapshot upserts the user's limits from a subscription
// snapshot. version is the event's created timestamp; the limits repository
// drops writes older than the stored version, so out-of-order and redelivered
// events converge to the latest known subscription state.
func (s *StripeService) applySubscriptionSnapshot(ctx context.Context, sub *stripe.Subscription, version int64) error {
	userID, ok, err := s.resolveUser(ctx, sub)
	if err != nil || !ok {
		return err
	}

	if sub.Items == nil || len(sub.Items.Data) == 0 {
		s.logger.Warn().Str("subscription_id", sub.ID).Msg("Subscription has no items, ignoring event")
		return nil
	}
	item := sub.Items.Data[0]
	if item.Price == nil || item.Price.Product == nil {
		s.logger.Warn().Str("subscription_id", sub.ID).Msg("Subscription item has no product, ignoring event")
		return nil
	}

	t := s.resolver.Resolve(ctx, item.Price.Product.ID)
	limits := tier.LimitsFor(t)

	// A tier change grants a fresh counting period rather than prorating.
	// The period is anchored to the event's timestamp, not the processing
	// clock: a redelivered event writes the identical row instead of moving
	// the reset date and wiping usage counted between deliveries.
	if err := s.limitsRepo.Upsert(ctx, model.UserLimits{
		UserID:              userID,
		Tier:                string(t),
		MonthlyQuota:        limits.MonthlyQuota,
		MaxFileSize:         limits.MaxFileSize,
		UsageResetDate:      time.Unix(version, 0),
		SubscriptionVersion: version,
	}); err != nil {
		return fmt.Errorf("upsert limits from subscription snapshot: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Str("tier", string(t)).Msg("Applied subscription snapshot")
	return nil
}

// applySubscriptionDeleted reverts the user to free-tier limits.
func (s *StripeService) applySubscriptionDeleted(ctx context.Context, sub *stripe.Subscription, version int64) error {
	userID, ok, err := s.resolveUser(ctx, sub)
	if err != nil || !ok {
		return err
	}

	free := tier.LimitsFor(tier.Free)
	if err := s.limitsRepo.Upsert(ctx, model.UserLimits{
		UserID:              userID,
		Tier:                string(tier.Free),
		MonthlyQuota:        free.MonthlyQuota,
		MaxFileSize:         free.MaxFileSize,
		UsageResetDate:      time.Unix(version, 0),
		SubscriptionVersion: version,
	}); err != nil {
		return fmt.Errorf("downgrade user %s to free tier: %w", userID, err)
	}
	s.logger.Info().Str("user_id", userID).Msg("Subscription deleted, user downgraded to free tier")
	return nil
}

// resolveUser maps the event's customer to a user ID. ok is false when the
// customer is unknown or unmanaged; that is a logged no-op, not an error, so
// the webhook is still acknowledged.
func (s *StripeService) resolveUser(ctx context.Context, sub *stripe.Subscription) (string, bool, error) {
	if sub.Customer == nil || sub.Customer.ID == "" {
		s.logger.Warn().Str("subscription_id", sub.ID).Msg("Subscription event has no customer, ignoring")
		return "", false, nil
	}
	userID, err := s.customerRepo.GetUserID(ctx, sub.Customer.ID)
	if err != nil {
		return "", false, fmt.Errorf("resolve customer %s: %w", sub.Customer.ID, err)
	}
	if userID == "" {
		s.logger.Info().Str("stripe_customer_id", sub.Customer.ID).Msg("No user linked to customer, ignoring event")
		return "", false, nil
	}
	return userID, true, nil
}

// getOrCreateCustomer ensures a Stripe customer exists for a user and that the
// customer->user linkage is recorded.
func (s *StripeService) getOrCreateCustomer(ctx context.Context, userID string) (string, error) {
	customerID, err := s.customerRepo.GetCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if customerID != "" {
		return customerID, nil
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("fetch user %s: %w", userID, err)
	}
	if user == nil {
		return "", fmt.Errorf("user not found: %s", userID)
	}

	params := &stripe.CustomerParams{
		Email:    stripe.String(user.Email),
		Name:     stripe.String(user.Name),
		Metadata: map[string]string{"user_id": user.UserID},
	}
	params.Context = ctx
	cust, err := customerpkg.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.customerRepo.Link(ctx, cust.ID, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store stripe customer linkage")
		return "", err
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for the given plan.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, plan string) (string, error) {
	var priceID string
	switch plan {
	case "basic":
		priceID = s.cfg.StripePriceBasic
	case "pro":
		priceID = s.cfg.StripePricePro
	default:
		return "", fmt.Errorf("invalid plan: %s", plan)
	}

	customerID, err := s.getOrCreateCustomer(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get or create Stripe customer for checkout session")
		return "", err
	}

	sessParams := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:         stripe.String(s.cfg.StripePortalReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripePortalReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"user_id": userID},
	}
	sessParams.Context = ctx
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("plan", plan).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session.
func (s *StripeService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	customerID, err := s.customerRepo.GetCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		s.logger.Error().Str("user_id", userID).Msg("No Stripe customer found for user when creating portal session")
		return "", fmt.Errorf("no stripe customer for user: %s", userID)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.cfg.StripePortalReturnURL),
	}
	params.Context = ctx
	sess, err := billingsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}
