// Package content provides optional AI personalization of follow-up bodies.
// Personalization is best-effort: any failure falls back to the plain
// template body so a flaky model endpoint can never fail a dispatch.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sngor/bayon-backend/platform/config"
	"github.com/sngor/bayon-backend/platform/logger"

	"google.golang.org/genai"
)

// Personalizer rewrites a follow-up body for one visitor.
type Personalizer interface {
	Personalize(ctx context.Context, body string, visitorName, interestLevel, notes string) (string, error)
}

// GeminiPersonalizer implements Personalizer with the Gemini API.
type GeminiPersonalizer struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

// NewGeminiPersonalizer creates a personalizer, or nil when AI is not configured.
func NewGeminiPersonalizer(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*GeminiPersonalizer, error) {
	if !cfg.IsAIEnabled() {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiPersonalizer{
		client: client,
		model:  cfg.GetGeminiModel(),
		log:    log,
	}, nil
}

// Personalize asks the model to adapt the body to the visitor's interest
// level and notes. A nil receiver returns the body unchanged.
func (p *GeminiPersonalizer) Personalize(ctx context.Context, body string, visitorName, interestLevel, notes string) (string, error) {
	if p == nil {
		return body, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"Rewrite the following open-house follow-up message for %s, whose interest level is %q. "+
			"Keep it under 120 words, keep every link intact, and keep the tone warm and professional. "+
			"Agent notes about the visitor: %s\n\nMessage:\n%s",
		visitorName, interestLevel, strings.TrimSpace(notes), body,
	)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}

	return text, nil
}
