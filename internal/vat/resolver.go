package vat

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

// DefaultCountry is the country whose settings row drives rate resolution.
// The shop sells under Dutch VAT only; making this configurable per order is
// deliberately out of scope for now.
const DefaultCountry = "NL"

// fallbackStandard is the rate used when configuration is missing. Checkout
// must never block on an empty settings table, so resolution degrades to the
// Dutch standard rate instead of failing.
var fallbackStandard = decimal.NewFromInt(21)

// Resolver resolves a VAT category to a percentage using the settings cache.
//
// Resolution is total: every path returns a usable number, never an error.
// Missing configuration is a policy fallback (logged as a warning), not a
// failure:
//
//   - cache empty or target country row absent: standard/reduced resolve to
//     21, zero resolves to 0
//   - row present but the requested rate field is zero or unset:
//     standard/reduced fall back to 21, zero legitimately stays 0
type Resolver struct {
	cache   *SettingsCache
	country string
	logger  *slog.Logger
}

// NewResolver creates a resolver targeting DefaultCountry.
func NewResolver(cache *SettingsCache, logger *slog.Logger) *Resolver {
	return NewResolverForCountry(cache, DefaultCountry, logger)
}

// NewResolverForCountry creates a resolver targeting a specific country row.
func NewResolverForCountry(cache *SettingsCache, country string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cache:   cache,
		country: country,
		logger:  logger,
	}
}

// Country returns the country code this resolver reads settings for.
func (r *Resolver) Country() string {
	return r.country
}

// Rate returns the percentage for the given category.
// An unknown or empty category is treated as standard.
func (r *Resolver) Rate(category Category) decimal.Decimal {
	setting, ok := r.cache.Get(r.country)
	if !ok {
		if category == CategoryZero {
			return decimal.Zero
		}
		r.logger.Warn("VAT settings missing, falling back to standard rate",
			"country", r.country,
			"category", string(category),
			"fallback", fallbackStandard.String(),
		)
		return fallbackStandard
	}

	var rate decimal.Decimal
	switch category {
	case CategoryZero:
		// The zero category defaults to 0, not 21: an unset zero rate is a
		// valid configuration, not missing configuration.
		return setting.ZeroRate
	case CategoryReduced:
		rate = setting.ReducedRate
	default:
		rate = setting.StandardRate
	}

	if rate.LessThanOrEqual(decimal.Zero) {
		r.logger.Warn("VAT rate unset, falling back to standard rate",
			"country", r.country,
			"category", string(category),
			"fallback", fallbackStandard.String(),
		)
		return fallbackStandard
	}

	return rate
}
