package config

import (
	"encoding/json"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// LoadPartial reads an inbound configuration payload from a JSON or YAML
// file. A missing path yields an empty PartialConfig (all defaults).
func LoadPartial(path string) (PartialConfig, error) {
	var p PartialConfig
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	return ParsePartial(data)
}

// ParsePartial decodes a configuration payload. JSON payloads are detected
// by their leading brace; everything else is treated as YAML.
func ParsePartial(data []byte) (PartialConfig, error) {
	var p PartialConfig

	if looksLikeJSON(data) {
		if err := json.Unmarshal(data, &p); err != nil {
			return p, &ConfigError{Message: "failed to parse config payload: " + err.Error()}
		}
		expandPartialEnv(&p)
		return p, nil
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, &ConfigError{Message: "failed to parse config payload: " + err.Error()}
	}
	expandPartialEnv(&p)
	return p, nil
}

func looksLikeJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

// expandPartialEnv resolves ${ENV_VAR} references in path-like fields so
// payloads can be written portably.
func expandPartialEnv(p *PartialConfig) {
	if p.CurrentDirectory != nil {
		expanded := expandEnvVars(*p.CurrentDirectory)
		p.CurrentDirectory = &expanded
	}
	for i := range p.MCPServers {
		p.MCPServers[i].Command = expandEnvVars(p.MCPServers[i].Command)
	}
}
