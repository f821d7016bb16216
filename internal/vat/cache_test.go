package vat

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSettingsCache_GetMissing(t *testing.T) {
	cache := NewSettingsCache()

	_, ok := cache.Get("NL")
	if ok {
		t.Error("expected miss on empty cache")
	}
	if cache.Count() != 0 {
		t.Errorf("count: got %d, want 0", cache.Count())
	}
}

func TestSettingsCache_LoadReplaces(t *testing.T) {
	cache := NewSettingsCache()
	cache.Load([]Setting{
		{CountryCode: "NL", StandardRate: decimal.NewFromInt(21)},
		{CountryCode: "BE", StandardRate: decimal.NewFromInt(21)},
	})

	if cache.Count() != 2 {
		t.Fatalf("count: got %d, want 2", cache.Count())
	}

	// A reload drops rows no longer present.
	cache.Load([]Setting{
		{CountryCode: "NL", StandardRate: decimal.NewFromInt(21)},
	})

	if cache.Count() != 1 {
		t.Errorf("count after reload: got %d, want 1", cache.Count())
	}
	if _, ok := cache.Get("BE"); ok {
		t.Error("BE should be gone after reload")
	}
}

func TestSettingsCache_GetAllReturnsCopy(t *testing.T) {
	cache := NewSettingsCache()
	cache.Load([]Setting{{CountryCode: "NL", StandardRate: decimal.NewFromInt(21)}})

	all := cache.GetAll()
	delete(all, "NL")

	if _, ok := cache.Get("NL"); !ok {
		t.Error("mutating GetAll result must not affect the cache")
	}
}

func TestSettingsCache_ConcurrentAccess(t *testing.T) {
	cache := NewSettingsCache()
	settings := []Setting{{CountryCode: "NL", StandardRate: decimal.NewFromInt(21)}}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Load(settings)
		}()
		go func() {
			defer wg.Done()
			cache.Get("NL")
			cache.Count()
		}()
	}
	wg.Wait()
}
