package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

var jsonFence = regexp.MustCompile("(?i)```json")

// Judge scores a debate transcript. Implementations return the model's raw text.
type Judge interface {
	Evaluate(ctx context.Context, prompt string) (string, error)
}

// GeminiJudge calls the Gemini API through the genai SDK
type GeminiJudge struct {
	client *genai.Client
	model  string
}

// NewGeminiJudge creates a judge for model. An empty apiKey lets the SDK read
// GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGeminiJudge(ctx context.Context, apiKey, model string) (*GeminiJudge, error) {
	config := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		config.APIKey = apiKey
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiJudge{client: client, model: model}, nil
}

func (g *GeminiJudge) Evaluate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("gemini client not initialized")
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// extractVerdictBlock pulls the structured block out of free model text: a fenced json
// block if present, otherwise the outermost braces.
func extractVerdictBlock(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	if loc := jsonFence.FindStringIndex(cleaned); loc != nil {
		rest := cleaned[loc[1]:]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		cleaned = strings.TrimSpace(rest)
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}
