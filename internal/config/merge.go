package config

import (
	"fmt"

	"github.com/colinrozzi/git-chat-assistant/internal/prompt"
	"github.com/colinrozzi/git-chat-assistant/internal/workflow"
)

// Default values applied to fields the caller leaves unset.
const (
	DefaultModel       = "claude-sonnet-4-20250514"
	DefaultProvider    = "anthropic"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 8192
	DefaultTitle       = "Git Assistant"
	DefaultDescription = "AI assistant with git tools for repository management and commit workflows"

	// DefaultGitServerCommand is the external git command-execution service
	// the default tool server descriptor points at.
	DefaultGitServerCommand = "mcp-git"

	minTemperature = 0.0
	maxTemperature = 2.0
)

// ValidationError reports a malformed inbound configuration payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// DefaultGitToolServer returns the git tool provider descriptor appended
// when the caller does not override the tool server list.
func DefaultGitToolServer() ToolServer {
	return ToolServer{
		Name:    "git",
		Command: DefaultGitServerCommand,
	}
}

// Merge completes a partial configuration with git-domain defaults.
//
// It is pure and total on well-formed input: errors occur only for an
// unknown workflow tag, a temperature outside [0, 2], or a non-positive
// max_tokens, all reported as *ValidationError. Merge is idempotent:
// re-merging Config.Partial() of its own output yields an equal Config,
// because the contextual prompt sections are composed from BasePrompt
// rather than appended to SystemPrompt.
func Merge(p PartialConfig) (Config, error) {
	if p.Temperature != nil && (*p.Temperature < minTemperature || *p.Temperature > maxTemperature) {
		return Config{}, &ValidationError{
			Field:   "temperature",
			Message: fmt.Sprintf("must be in [%g, %g], got %g", minTemperature, maxTemperature, *p.Temperature),
		}
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return Config{}, &ValidationError{
			Field:   "max_tokens",
			Message: fmt.Sprintf("must be positive, got %d", *p.MaxTokens),
		}
	}

	var wfTag string
	if p.Workflow != nil {
		wfTag = *p.Workflow
	}
	directive, err := workflow.Parse(wfTag)
	if err != nil {
		return Config{}, &ValidationError{Field: "workflow", Message: err.Error()}
	}

	cfg := Config{
		ModelConfig: ModelConfig{
			Model:    DefaultModel,
			Provider: DefaultProvider,
		},
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Title:       DefaultTitle,
		Description: DefaultDescription,
		Workflow:    wfTag,
	}

	if p.ModelConfig != nil {
		if p.ModelConfig.Model != "" {
			cfg.ModelConfig.Model = p.ModelConfig.Model
		}
		if p.ModelConfig.Provider != "" {
			cfg.ModelConfig.Provider = p.ModelConfig.Provider
		}
	}
	if p.Temperature != nil {
		cfg.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		cfg.MaxTokens = *p.MaxTokens
	}
	if p.Title != nil && *p.Title != "" {
		cfg.Title = *p.Title
	}
	if p.Description != nil && *p.Description != "" {
		cfg.Description = *p.Description
	}
	if p.CurrentDirectory != nil {
		cfg.CurrentDirectory = *p.CurrentDirectory
	}

	// Prompt resolution: caller prompt verbatim as the base, else the
	// built-in git template; contextual sections are composed on top.
	cfg.BasePrompt = prompt.DefaultTemplate
	if p.SystemPrompt != nil && *p.SystemPrompt != "" {
		cfg.BasePrompt = *p.SystemPrompt
	}
	cfg.SystemPrompt = prompt.Compose(cfg.BasePrompt, cfg.CurrentDirectory, directive)

	// Tool server resolution: an explicit caller list wins verbatim
	// (advanced override, full trust). Otherwise the git server is the
	// single default entry.
	if p.MCPServers != nil {
		cfg.MCPServers = make([]ToolServer, len(p.MCPServers))
		copy(cfg.MCPServers, p.MCPServers)
	} else {
		cfg.MCPServers = []ToolServer{DefaultGitToolServer()}
	}

	return cfg, nil
}
