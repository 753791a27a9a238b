package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings is the proxy's own configuration, distinct from the chat
// Configuration it enhances and forwards.
type Settings struct {
	Gateway GatewaySettings `yaml:"gateway,omitempty"`
	Engine  EngineSettings  `yaml:"engine,omitempty"`
	Store   StoreSettings   `yaml:"store,omitempty"`
	Logging LoggingSettings `yaml:"logging,omitempty"`
}

// GatewaySettings controls the WebSocket/HTTP host surface.
type GatewaySettings struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	Host string `yaml:"host,omitempty"` // used when bind: custom
	// Token authenticates gateway clients. Empty disables auth (loopback
	// development only). Supports ${ENV_VAR} references.
	Token string `yaml:"token,omitempty"`
}

// EngineSettings locates the chat-state engine the proxy spawns.
type EngineSettings struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// StoreSettings selects the audit store backend.
type StoreSettings struct {
	Backend string `yaml:"backend,omitempty"` // "sqlite" | "memory"
	Path    string `yaml:"path,omitempty"`    // sqlite file, default under data dir
}

// LoggingSettings controls log output.
type LoggingSettings struct {
	Level string `yaml:"level,omitempty"`
}

// ConfigError represents a settings file error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultSettings returns Settings with sensible defaults applied.
func DefaultSettings() Settings {
	return Settings{
		Gateway: GatewaySettings{
			Port: 18790,
			Bind: "loopback",
		},
		Engine: EngineSettings{
			Command: "chat-state",
		},
		Store: StoreSettings{
			Backend: "sqlite",
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// LoadSettings reads the settings file, applies defaults and environment
// overrides. A missing file yields defaults only.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&s)
			return s, nil
		}
		return s, err
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, &ConfigError{Message: "failed to parse settings: " + err.Error()}
	}

	applySettingsDefaults(&s)
	applyEnvOverrides(&s)
	s.Gateway.Token = expandEnvVars(s.Gateway.Token)
	return s, nil
}

// applySettingsDefaults fills zero-value fields after unmarshalling.
func applySettingsDefaults(s *Settings) {
	if s.Gateway.Port == 0 {
		s.Gateway.Port = 18790
	}
	if s.Gateway.Bind == "" {
		s.Gateway.Bind = "loopback"
	}
	if s.Engine.Command == "" {
		s.Engine.Command = "chat-state"
	}
	if s.Store.Backend == "" {
		s.Store.Backend = "sqlite"
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
}

// applyEnvOverrides reads GITCHAT_* environment variables.
func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("GITCHAT_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			s.Gateway.Port = port
		}
	}
	if v := os.Getenv("GITCHAT_GATEWAY_BIND"); v != "" {
		s.Gateway.Bind = v
	}
	if v := os.Getenv("GITCHAT_ENGINE_COMMAND"); v != "" {
		s.Engine.Command = v
	}
	if v := os.Getenv("GITCHAT_LOG_LEVEL"); v != "" {
		s.Logging.Level = v
	}
}

// ValidationIssue describes a problem with a settings value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// ValidateSettings checks Settings for issues. Returns nil if valid.
func ValidateSettings(s *Settings) []ValidationIssue {
	var issues []ValidationIssue

	if s.Gateway.Port < 0 || s.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", s.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if s.Gateway.Bind != "" && !slices.Contains(validBinds, s.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, s.Gateway.Bind),
		})
	}
	if s.Gateway.Bind == "custom" && s.Gateway.Host == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.host",
			Message: "required when bind: custom",
		})
	}

	validBackends := []string{"sqlite", "memory"}
	if s.Store.Backend != "" && !slices.Contains(validBackends, s.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, s.Store.Backend),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if s.Logging.Level != "" && !slices.Contains(validLogLevels, s.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, s.Logging.Level),
		})
	}

	if s.Engine.Command == "" {
		issues = append(issues, ValidationIssue{
			Path:    "engine.command",
			Message: "command is required",
		})
	}

	return issues
}
