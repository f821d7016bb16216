package vat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrSettingNotFound is returned when no settings row exists for a country.
	ErrSettingNotFound = errors.New("vat setting not found")
)

// Repository persists VAT settings and feeds the in-memory cache.
type Repository struct {
	pool   *pgxpool.Pool
	cache  *SettingsCache
	logger *slog.Logger
}

// NewRepository creates a VAT settings repository. Writes through the
// repository reload the given cache so resolvers see changes immediately.
func NewRepository(pool *pgxpool.Pool, cache *SettingsCache, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		pool:   pool,
		cache:  cache,
		logger: logger,
	}
}

// List returns all settings rows ordered by country code.
func (r *Repository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT country_code, standard_rate, reduced_rate, zero_rate, description, is_eu_member, updated_at
		FROM vat_settings
		ORDER BY country_code
	`)
	if err != nil {
		return nil, fmt.Errorf("listing vat settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.CountryCode, &s.StandardRate, &s.ReducedRate, &s.ZeroRate,
			&s.Description, &s.IsEUMember, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning vat setting: %w", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vat settings: %w", err)
	}

	return settings, nil
}

// Get returns the settings row for a country.
func (r *Repository) Get(ctx context.Context, countryCode string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx, `
		SELECT country_code, standard_rate, reduced_rate, zero_rate, description, is_eu_member, updated_at
		FROM vat_settings
		WHERE country_code = $1
	`, countryCode).Scan(&s.CountryCode, &s.StandardRate, &s.ReducedRate, &s.ZeroRate,
		&s.Description, &s.IsEUMember, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, ErrSettingNotFound
		}
		return Setting{}, fmt.Errorf("getting vat setting %s: %w", countryCode, err)
	}
	return s, nil
}

// Upsert creates or replaces the settings row for a country and reloads the
// cache.
func (r *Repository) Upsert(ctx context.Context, s Setting) (Setting, error) {
	s.UpdatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vat_settings (country_code, standard_rate, reduced_rate, zero_rate, description, is_eu_member, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (country_code) DO UPDATE SET
			standard_rate = EXCLUDED.standard_rate,
			reduced_rate  = EXCLUDED.reduced_rate,
			zero_rate     = EXCLUDED.zero_rate,
			description   = EXCLUDED.description,
			is_eu_member  = EXCLUDED.is_eu_member,
			updated_at    = EXCLUDED.updated_at
	`, s.CountryCode, s.StandardRate, s.ReducedRate, s.ZeroRate, s.Description, s.IsEUMember, s.UpdatedAt)
	if err != nil {
		return Setting{}, fmt.Errorf("upserting vat setting %s: %w", s.CountryCode, err)
	}

	if err := r.Reload(ctx); err != nil {
		return Setting{}, err
	}

	r.logger.Info("vat setting saved",
		"country", s.CountryCode,
		"standard_rate", s.StandardRate.String(),
		"reduced_rate", s.ReducedRate.String(),
	)

	return s, nil
}

// Delete removes the settings row for a country and reloads the cache.
func (r *Repository) Delete(ctx context.Context, countryCode string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vat_settings WHERE country_code = $1`, countryCode)
	if err != nil {
		return fmt.Errorf("deleting vat setting %s: %w", countryCode, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSettingNotFound
	}

	return r.Reload(ctx)
}

// Reload replaces the cache contents with the current table state.
func (r *Repository) Reload(ctx context.Context) error {
	settings, err := r.List(ctx)
	if err != nil {
		return fmt.Errorf("reloading vat settings cache: %w", err)
	}

	r.cache.Load(settings)

	r.logger.Info("vat settings cache reloaded", "countries", len(settings))
	return nil
}
