package gemini

import (
	"fmt"
	"strings"

	"github.com/rootlab/rootlab/internal/ailink/content"
	"github.com/rootlab/rootlab/internal/ailink/driver"
)

type part struct {
	Text string `json:"text"`
}

type contentItem struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents          []contentItem     `json:"contents"`
	SystemInstruction *contentItem      `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

func buildGenerateRequest(req *driver.Request) (*generateRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := &generateRequest{}
	var system []part
	for _, msg := range req.Messages {
		text := msg.Text()
		if msg.Role == content.RoleSystem {
			if text != "" {
				system = append(system, part{Text: text})
			}
			continue
		}
		payload.Contents = append(payload.Contents, contentItem{Role: geminiRole(msg.Role), Parts: []part{{Text: text}}})
	}
	if len(payload.Contents) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}
	if len(system) > 0 {
		payload.SystemInstruction = &contentItem{Parts: system}
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		payload.GenerationConfig = &generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	return payload, nil
}

// geminiRole maps chat roles onto Gemini's user/model pair.
func geminiRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case content.RoleAssistant, "model":
		return "model"
	default:
		return "user"
	}
}
