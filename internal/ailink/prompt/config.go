package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rootlab/rootlab/internal/ailink/content"
)

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug           string            `yaml:"slug" json:"slug"`
	Name           string            `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string            `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string            `yaml:"version,omitempty" json:"version,omitempty"`
	Input          InputSpec         `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string            `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string            `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	DepthVariants  map[string]string `yaml:"depth_variants,omitempty" json:"depth_variants,omitempty"`
	ProviderHints  map[string]any    `yaml:"provider_hints,omitempty" json:"provider_hints,omitempty"`
}

// InputSpec defines prompt input requirements.
type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}

// DepthRule returns the variant text for a depth (lesson level), matched
// case-insensitively.
func (p *Prompt) DepthRule(depth string) (string, bool) {
	if p == nil {
		return "", false
	}
	want := strings.ToLower(strings.TrimSpace(depth))
	for key, rule := range p.Config.DepthVariants {
		if strings.ToLower(strings.TrimSpace(key)) == want {
			return strings.TrimSpace(rule), true
		}
	}
	return "", false
}

// Render substitutes {{name}} placeholders and returns the chat messages.
// Missing required variables are an error.
func (p *Prompt) Render(vars map[string]string) ([]content.Message, error) {
	if p == nil {
		return nil, fmt.Errorf("prompt is required")
	}
	var missing []string
	for _, name := range p.Config.Input.RequiredVariables {
		if strings.TrimSpace(vars[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("prompt %s: missing variables: %s", p.Config.Slug, strings.Join(missing, ", "))
	}

	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	replacer := strings.NewReplacer(pairs...)

	var messages []content.Message
	if system := strings.TrimSpace(p.Config.SystemTemplate); system != "" {
		messages = append(messages, content.TextMessage(content.RoleSystem, replacer.Replace(system)))
	}
	if user := strings.TrimSpace(p.Config.UserTemplate); user != "" {
		messages = append(messages, content.TextMessage(content.RoleUser, replacer.Replace(user)))
	}
	return messages, nil
}

// Temperature returns the temperature hint, if any.
func (p *Prompt) Temperature() *float64 {
	if v, ok := p.numericHint("temperature"); ok {
		return &v
	}
	return nil
}

// MaxOutputTokens returns the max_output_tokens hint, if any.
func (p *Prompt) MaxOutputTokens() *int {
	if v, ok := p.numericHint("max_output_tokens"); ok {
		n := int(v)
		return &n
	}
	return nil
}

// PreferredModels returns the preferred_models hint.
func (p *Prompt) PreferredModels() []string {
	if p == nil {
		return nil
	}
	value, ok := p.Config.ProviderHints["preferred_models"]
	if !ok || value == nil {
		return nil
	}

	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		models := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				models = append(models, strings.TrimSpace(s))
			}
		}
		return models
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		return []string{strings.TrimSpace(typed)}
	default:
		return nil
	}
}

func (p *Prompt) numericHint(name string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p.Config.ProviderHints[name].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
