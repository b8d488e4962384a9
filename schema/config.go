package schema

import "errors"

// ServiceConfig defines limits and defaults for the tab orchestration
// service.
type ServiceConfig struct {
	// Enabled gates the whole subsystem.
	Enabled bool
	// MaxTabsPerUser caps remote tabs per user; reaching it triggers
	// eviction of the oldest persisted binding before a new tab is created.
	MaxTabsPerUser int
	// ViewportWidth and ViewportHeight are applied before navigation and
	// screenshots.
	ViewportWidth  int
	ViewportHeight int
}

// Defaults for ServiceConfig.
const (
	DefaultMaxTabsPerUser = 10
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.MaxTabsPerUser == 0 {
		cfg.MaxTabsPerUser = DefaultMaxTabsPerUser
	}
	if cfg.MaxTabsPerUser < 1 {
		return ServiceConfig{}, errors.New("max tabs per user must be positive")
	}
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = DefaultViewportWidth
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = DefaultViewportHeight
	}
	if cfg.ViewportWidth < 1 || cfg.ViewportHeight < 1 {
		return ServiceConfig{}, errors.New("viewport dimensions must be positive")
	}
	return cfg, nil
}
