package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/tabwise/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	Features      FeaturesConfig `mapstructure:"features" yaml:"features"`
	Service       ServiceConfig  `mapstructure:"service" yaml:"service"`
	Gateway       GatewayConfig  `mapstructure:"gateway" yaml:"gateway"`
	State         StateConfig    `mapstructure:"state" yaml:"state"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// FeaturesConfig flags optional functionality on or off.
type FeaturesConfig struct {
	BrowserTabs bool `mapstructure:"browser_tabs" yaml:"browser_tabs"`
}

// ServiceConfig controls core service behavior.
type ServiceConfig struct {
	MaxTabsPerUser int `mapstructure:"max_tabs_per_user" yaml:"max_tabs_per_user"`
	ViewportWidth  int `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// GatewayConfig selects and configures the browser tool backend.
type GatewayConfig struct {
	Backend string       `mapstructure:"backend" yaml:"backend"`
	MCP     MCPConfig    `mapstructure:"mcp" yaml:"mcp"`
	Chrome  ChromeConfig `mapstructure:"chrome" yaml:"chrome"`
}

// MCPConfig configures the remote MCP gateway.
type MCPConfig struct {
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	ToolPrefix string `mapstructure:"tool_prefix" yaml:"tool_prefix"`
}

// ChromeConfig configures the local Chrome gateway.
type ChromeConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
}

// StateConfig selects and configures the tab state store.
type StateConfig struct {
	Backend  string         `mapstructure:"backend" yaml:"backend"`
	File     FileConfig     `mapstructure:"file" yaml:"file"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// FileConfig configures the per-user JSON file store.
type FileConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// PostgresConfig configures the PostgreSQL store.
type PostgresConfig struct {
	ConnString string `mapstructure:"conn_string" yaml:"conn_string"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Features: FeaturesConfig{
			BrowserTabs: true,
		},
		Service: ServiceConfig{
			MaxTabsPerUser: schema.DefaultMaxTabsPerUser,
			ViewportWidth:  schema.DefaultViewportWidth,
			ViewportHeight: schema.DefaultViewportHeight,
		},
		Gateway: GatewayConfig{
			Backend: "chrome",
			MCP: MCPConfig{
				Endpoint:   "",
				ToolPrefix: "browser_",
			},
			Chrome: ChromeConfig{
				Headless: true,
			},
		},
		State: StateConfig{
			Backend: "file",
			File: FileConfig{
				Dir: filepath.Join(home, ".tabwise", "state"),
			},
			Postgres: PostgresConfig{
				ConnString: "",
			},
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabwise", "config.yaml"), nil
}
