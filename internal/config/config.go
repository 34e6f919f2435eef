package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port: 18790,
			Bind: "loopback",
			Auth: GatewayAuth{
				Mode: "token",
			},
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
		Storage: StorageConfig{
			Backend:  "disk",
			Naming:   "unique",
			MaxBytes: 25 << 20,
		},
		Permissions: PermissionsConfig{
			MediaLibrary: "ask",
			Camera:       "ask",
			Location:     "ask",
		},
		Platform: PlatformConfig{
			Locator: LocatorConfig{Mode: "none"},
		},
	}
}
