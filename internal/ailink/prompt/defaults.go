package prompt

import (
	"embed"
	"fmt"
)

// LessonSlug is the built-in lesson prompt.
const LessonSlug = "rootlab-lesson"

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		prompt, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

// DefaultRegistry builds a registry from embedded prompts, replaced slug by
// slug with any prompts found in overrideDir.
func DefaultRegistry(overrideDir string) (*InMemoryRegistry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(prompts)
	if err != nil {
		return nil, err
	}
	if overrideDir == "" {
		return reg, nil
	}
	overrides, err := LoadFromDir(overrideDir)
	if err != nil {
		return nil, err
	}
	for _, p := range overrides {
		reg.Put(p)
	}
	return reg, nil
}
