package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("features.browser_tabs", cfg.Features.BrowserTabs)
	v.SetDefault("service.max_tabs_per_user", cfg.Service.MaxTabsPerUser)
	v.SetDefault("service.viewport_width", cfg.Service.ViewportWidth)
	v.SetDefault("service.viewport_height", cfg.Service.ViewportHeight)
	v.SetDefault("gateway.backend", cfg.Gateway.Backend)
	v.SetDefault("gateway.mcp.endpoint", cfg.Gateway.MCP.Endpoint)
	v.SetDefault("gateway.mcp.tool_prefix", cfg.Gateway.MCP.ToolPrefix)
	v.SetDefault("gateway.chrome.headless", cfg.Gateway.Chrome.Headless)
	v.SetDefault("state.backend", cfg.State.Backend)
	v.SetDefault("state.file.dir", cfg.State.File.Dir)
	v.SetDefault("state.postgres.conn_string", cfg.State.Postgres.ConnString)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
		switch v.GetString("gateway.backend") {
		case "chrome":
		case "mcp":
			if strings.TrimSpace(v.GetString("gateway.mcp.endpoint")) == "" {
				return Config{}, fmt.Errorf("gateway.mcp.endpoint is required when gateway.backend is mcp")
			}
		default:
			return Config{}, fmt.Errorf("unsupported gateway.backend %q", v.GetString("gateway.backend"))
		}
		switch v.GetString("state.backend") {
		case "file", "memory":
		case "postgres":
			if strings.TrimSpace(v.GetString("state.postgres.conn_string")) == "" {
				return Config{}, fmt.Errorf("state.postgres.conn_string is required when state.backend is postgres")
			}
		default:
			return Config{}, fmt.Errorf("unsupported state.backend %q", v.GetString("state.backend"))
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateMCPEndpoint(cfg.Gateway.MCP.Endpoint); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateMCPEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("gateway.mcp.endpoint must include scheme and host (e.g. https://example.com/mcp)")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.Gateway.MCP.Endpoint = expandEnv(cfg.Gateway.MCP.Endpoint)
	cfg.State.File.Dir = expandEnv(cfg.State.File.Dir)
	cfg.State.Postgres.ConnString = expandEnv(cfg.State.Postgres.ConnString)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
