// Package config defines the chat configuration model and the merge rules
// that turn a partially specified inbound payload into the complete
// configuration handed to the chat-state engine.
package config

import "github.com/colinrozzi/git-chat-assistant/internal/workflow"

// ModelConfig identifies the model the chat-state engine should use.
type ModelConfig struct {
	Model    string `json:"model" yaml:"model"`
	Provider string `json:"provider" yaml:"provider"`
}

// ToolServer describes one tool provider the engine may route tool calls to.
// Command is the path or address of the external tool-execution service; the
// proxy never interprets or runs tools itself.
type ToolServer struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Tools optionally restricts which tools are exposed. nil means all.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// PartialConfig is the inbound configuration payload. Every field is
// optional; Merge fills the gaps with git-domain defaults.
type PartialConfig struct {
	CurrentDirectory *string      `json:"current_directory,omitempty" yaml:"current_directory,omitempty"`
	Workflow         *string      `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	ModelConfig      *ModelConfig `json:"model_config,omitempty" yaml:"model_config,omitempty"`
	Temperature      *float64     `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens        *int         `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Title            *string      `json:"title,omitempty" yaml:"title,omitempty"`
	Description      *string      `json:"description,omitempty" yaml:"description,omitempty"`
	SystemPrompt     *string      `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// MCPServers, when present (non-nil), replaces the tool server list
	// verbatim. Absent means the default git server is appended to an empty
	// list.
	MCPServers []ToolServer `json:"mcp_servers,omitempty" yaml:"mcp_servers,omitempty"`
}

// Config is a complete, validated chat configuration. Every field is
// populated after Merge. SystemPrompt is the fully composed prompt;
// BasePrompt preserves the pre-composition base text so that re-merging
// never appends the contextual sections twice.
type Config struct {
	ModelConfig      ModelConfig  `json:"model_config" yaml:"model_config"`
	Temperature      float64      `json:"temperature" yaml:"temperature"`
	MaxTokens        int          `json:"max_tokens" yaml:"max_tokens"`
	SystemPrompt     string       `json:"system_prompt" yaml:"system_prompt"`
	BasePrompt       string       `json:"base_prompt" yaml:"base_prompt"`
	Title            string       `json:"title" yaml:"title"`
	Description      string       `json:"description" yaml:"description"`
	CurrentDirectory string       `json:"current_directory,omitempty" yaml:"current_directory,omitempty"`
	Workflow         string       `json:"workflow,omitempty" yaml:"workflow,omitempty"`
	MCPServers       []ToolServer `json:"mcp_servers" yaml:"mcp_servers"`
}

// Directive resolves the configured workflow tag, or nil when no workflow
// is set. Config is always produced by Merge, so the tag is known-valid.
func (c Config) Directive() *workflow.Directive {
	d, _ := workflow.Parse(c.Workflow)
	return d
}

// Partial converts a merged Config back into a PartialConfig. Merging the
// result with no further overrides yields an identical Config.
func (c Config) Partial() PartialConfig {
	mc := c.ModelConfig
	temp := c.Temperature
	maxTokens := c.MaxTokens
	base := c.BasePrompt
	title := c.Title
	desc := c.Description

	p := PartialConfig{
		ModelConfig:  &mc,
		Temperature:  &temp,
		MaxTokens:    &maxTokens,
		SystemPrompt: &base,
		Title:        &title,
		Description:  &desc,
		MCPServers:   make([]ToolServer, len(c.MCPServers)),
	}
	copy(p.MCPServers, c.MCPServers)
	if c.CurrentDirectory != "" {
		dir := c.CurrentDirectory
		p.CurrentDirectory = &dir
	}
	if c.Workflow != "" {
		wf := c.Workflow
		p.Workflow = &wf
	}
	return p
}
