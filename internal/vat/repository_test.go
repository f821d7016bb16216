package vat_test

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/testutil"
	"github.com/klinkercommerce/accounting/internal/vat"
)

var testDB *testutil.TestDB

func TestMain(m *testing.M) {
	var code int
	defer func() { os.Exit(code) }()

	db, err := testutil.SetupTestDB()
	if err != nil {
		log.Fatalf("setting up test database: %v", err)
	}
	defer db.Close()
	testDB = db

	code = m.Run()
}

func newRepo() (*vat.Repository, *vat.SettingsCache) {
	cache := vat.NewSettingsCache()
	return vat.NewRepository(testDB.Pool, cache, nil), cache
}

func TestRepository_UpsertAndGet(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	repo, cache := newRepo()

	saved, err := repo.Upsert(ctx, vat.Setting{
		CountryCode:  "DE",
		StandardRate: decimal.NewFromInt(19),
		ReducedRate:  decimal.NewFromInt(7),
		Description:  "Duitsland",
		IsEUMember:   true,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("updated_at was not set")
	}

	got, err := repo.Get(ctx, "DE")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.StandardRate.Equal(decimal.NewFromInt(19)) {
		t.Errorf("standard rate: got %s, want 19", got.StandardRate)
	}

	// Writes reload the cache, so resolvers see the change immediately.
	if cached, ok := cache.Get("DE"); !ok || !cached.ReducedRate.Equal(decimal.NewFromInt(7)) {
		t.Errorf("cache after upsert: ok=%v setting=%+v", ok, cached)
	}
}

func TestRepository_UpsertReplaces(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	repo, _ := newRepo()

	testDB.FixtureVATSetting(t, "BE", decimal.NewFromInt(21), decimal.NewFromInt(6), decimal.Zero)

	if _, err := repo.Upsert(ctx, vat.Setting{
		CountryCode:  "BE",
		StandardRate: decimal.NewFromInt(22),
		ReducedRate:  decimal.NewFromInt(6),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(ctx, "BE")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.StandardRate.Equal(decimal.NewFromInt(22)) {
		t.Errorf("standard rate after replace: got %s, want 22", got.StandardRate)
	}
}

func TestRepository_GetNotFound(t *testing.T) {
	testDB.Truncate(t)
	repo, _ := newRepo()

	if _, err := repo.Get(context.Background(), "XX"); !errors.Is(err, vat.ErrSettingNotFound) {
		t.Errorf("got err %v, want ErrSettingNotFound", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	repo, cache := newRepo()

	testDB.FixtureVATSetting(t, "FR", decimal.NewFromInt(20), decimal.RequireFromString("5.5"), decimal.Zero)
	if err := repo.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if err := repo.Delete(ctx, "FR"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := cache.Get("FR"); ok {
		t.Error("cache still holds deleted country")
	}

	if err := repo.Delete(ctx, "FR"); !errors.Is(err, vat.ErrSettingNotFound) {
		t.Errorf("second delete: got err %v, want ErrSettingNotFound", err)
	}
}

func TestRepository_ReloadFeedsResolver(t *testing.T) {
	testDB.Truncate(t)
	ctx := context.Background()
	repo, cache := newRepo()

	if err := repo.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	// The migration seeds the NL row, so the resolver answers from the table
	// rather than its fallback.
	resolver := vat.NewResolver(cache, nil)
	if got := resolver.Rate(vat.CategoryReduced); !got.Equal(decimal.NewFromInt(9)) {
		t.Errorf("reduced rate after reload: got %s, want 9", got)
	}
}
