package tier

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/product"
)

// Tier is a named subscription level.
type Tier string

const (
	Free  Tier = "free"
	Basic Tier = "basic"
	Pro   Tier = "pro"
)

// Limits are the per-period quota and single-file size ceiling a tier grants.
type Limits struct {
	MonthlyQuota int
	MaxFileSize  int64
}

// tierLimits is static configuration, not derived at runtime.
var tierLimits = map[Tier]Limits{
	Free:  {MonthlyQuota: 10, MaxFileSize: 25_000_000},
	Basic: {MonthlyQuota: 50, MaxFileSize: 50_000_000},
	Pro:   {MonthlyQuota: 250, MaxFileSize: 100_000_000},
}

// LimitsFor returns the limits for a tier, falling back to free-tier limits
// for any tier not in the table.
func LimitsFor(t Tier) Limits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[Free]
}

// Resolver maps a Stripe product ID to a tier via the product's metadata.
type Resolver struct {
	fetch  func(ctx context.Context, productID string) (*stripe.Product, error)
	logger zerolog.Logger
}

// NewResolver returns a Resolver backed by the Stripe product API.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{
		fetch: func(ctx context.Context, productID string) (*stripe.Product, error) {
			params := &stripe.ProductParams{}
			params.Context = ctx
			return product.Get(productID, params)
		},
		logger: logger.With().Str("component", "TierResolver").Logger(),
	}
}

// NewResolverWithFetch returns a Resolver with a custom product lookup.
func NewResolverWithFetch(fetch func(ctx context.Context, productID string) (*stripe.Product, error), logger zerolog.Logger) *Resolver {
	return &Resolver{fetch: fetch, logger: logger}
}

// Resolve returns the tier named in the product's metadata. An unknown
// product, a failed lookup, or an unrecognized tier name all resolve to free:
// a billing hiccup must never fail open into a paid tier.
func (r *Resolver) Resolve(ctx context.Context, productID string) Tier {
	if productID == "" {
		r.logger.Warn().Msg("Empty product ID, defaulting to free tier")
		return Free
	}
	p, err := r.fetch(ctx, productID)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("Failed to retrieve product, defaulting to free tier")
		return Free
	}
	name, ok := p.Metadata["tier"]
	if !ok || name == "" {
		r.logger.Warn().Str("product_id", productID).Msg("Product has no tier metadata, defaulting to free tier")
		return Free
	}
	t := Tier(name)
	if _, known := tierLimits[t]; !known {
		r.logger.Warn().Str("product_id", productID).Str("tier", name).Msg("Unrecognized tier in product metadata, defaulting to free tier")
		return Free
	}
	return t
}
