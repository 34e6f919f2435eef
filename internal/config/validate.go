package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var (
	validBinds         = []string{"auto", "lan", "loopback", "custom"}
	validAuthModes     = []string{"token", "password"}
	validLogLevels     = []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	validConsoleStyles = []string{"pretty", "json"}
	validBackends      = []string{"disk", "s3", "spaces", "firebase"}
	validNamings       = []string{"unique", "segment", "content"}
	validPolicies      = []string{"grant", "deny", "ask"}
	validLocatorModes  = []string{"static", "http", "none"}
)

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	oneOf := func(path, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			issues = append(issues, ValidationIssue{
				Path:    path,
				Message: fmt.Sprintf("must be one of %v, got %q", valid, value),
			})
		}
	}
	required := func(path, value, why string) {
		if value == "" {
			issues = append(issues, ValidationIssue{Path: path, Message: why})
		}
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}
	oneOf("gateway.bind", cfg.Gateway.Bind, validBinds)
	oneOf("gateway.auth.mode", cfg.Gateway.Auth.Mode, validAuthModes)
	if cfg.Gateway.TLS.Enabled {
		required("gateway.tls.certPath", cfg.Gateway.TLS.CertPath, "required when TLS is enabled")
		required("gateway.tls.keyPath", cfg.Gateway.TLS.KeyPath, "required when TLS is enabled")
	}

	// Logging validation
	oneOf("logging.level", cfg.Logging.Level, validLogLevels)
	oneOf("logging.consoleStyle", cfg.Logging.ConsoleStyle, validConsoleStyles)

	// Storage validation
	oneOf("storage.backend", cfg.Storage.Backend, validBackends)
	oneOf("storage.naming", cfg.Storage.Naming, validNamings)
	if cfg.Storage.MaxBytes < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "storage.maxBytes",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Storage.MaxBytes),
		})
	}
	switch cfg.Storage.Backend {
	case "s3":
		required("storage.s3.bucket", cfg.Storage.S3.Bucket, "bucket is required for the s3 backend")
		required("storage.s3.region", cfg.Storage.S3.Region, "region is required for the s3 backend")
	case "spaces":
		required("storage.s3.bucket", cfg.Storage.S3.Bucket, "bucket is required for the spaces backend")
		required("storage.s3.endpoint", cfg.Storage.S3.Endpoint, "endpoint is required for the spaces backend")
	case "firebase":
		required("storage.firebase.bucket", cfg.Storage.Firebase.Bucket, "bucket is required for the firebase backend")
	}

	// Permission policies
	oneOf("permissions.mediaLibrary", cfg.Permissions.MediaLibrary, validPolicies)
	oneOf("permissions.camera", cfg.Permissions.Camera, validPolicies)
	oneOf("permissions.location", cfg.Permissions.Location, validPolicies)

	// Locator
	loc := cfg.Platform.Locator
	oneOf("platform.locator.mode", loc.Mode, validLocatorModes)
	if loc.Mode == "http" {
		required("platform.locator.url", loc.URL, "url is required for the http locator")
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		issues = append(issues, ValidationIssue{
			Path:    "platform.locator.latitude",
			Message: fmt.Sprintf("must be within [-90, 90], got %g", loc.Latitude),
		})
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		issues = append(issues, ValidationIssue{
			Path:    "platform.locator.longitude",
			Message: fmt.Sprintf("must be within [-180, 180], got %g", loc.Longitude),
		})
	}

	// IRC validation (only if configured)
	if cfg.Channels.IRC != nil {
		irc := cfg.Channels.IRC
		required("channels.irc.server", irc.Server, "server is required")
		required("channels.irc.nick", irc.Nick, "nick is required")
		if irc.Port < 0 || irc.Port > 65535 {
			issues = append(issues, ValidationIssue{
				Path:    "channels.irc.port",
				Message: fmt.Sprintf("port must be 0-65535, got %d", irc.Port),
			})
		}
		if irc.SASL && irc.Password == "" {
			issues = append(issues, ValidationIssue{
				Path:    "channels.irc.sasl",
				Message: "SASL requires a password to be set",
			})
		}
	}

	return issues
}
