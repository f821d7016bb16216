package vat

import "sync"

// SettingsCache is a thread-safe in-memory snapshot of the vat_settings
// table, keyed by country code. The resolver reads from it on every price
// calculation; the admin settings service reloads it after writes.
// Uses sync.RWMutex to allow concurrent reads while serializing reloads.
type SettingsCache struct {
	mu       sync.RWMutex
	settings map[string]Setting
}

// NewSettingsCache creates a new empty SettingsCache.
func NewSettingsCache() *SettingsCache {
	return &SettingsCache{
		settings: make(map[string]Setting),
	}
}

// Get retrieves the settings row for a country code.
// Returns the setting and true if found, or a zero value and false if not.
func (c *SettingsCache) Get(countryCode string) (Setting, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.settings[countryCode]
	return s, ok
}

// GetAll returns a copy of all cached settings.
func (c *SettingsCache) GetAll() map[string]Setting {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Setting, len(c.settings))
	for code, s := range c.settings {
		result[code] = s
	}
	return result
}

// Load replaces the entire cache with the given settings rows.
func (c *SettingsCache) Load(settings []Setting) {
	next := make(map[string]Setting, len(settings))
	for _, s := range settings {
		next[s.CountryCode] = s
	}

	c.mu.Lock()
	c.settings = next
	c.mu.Unlock()
}

// Count returns the number of countries in the cache.
func (c *SettingsCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.settings)
}
