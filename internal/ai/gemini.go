package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	apperrors "misa/internal/errors"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.0-flash"

// contentGenerator is the part of the genai client the providers use.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiClient creates a Gemini API client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// GeminiClassifier classifies concepts with a Gemini model in JSON mode.
type GeminiClassifier struct {
	models contentGenerator
	model  string
}

// NewGeminiClassifier creates a Classifier backed by client.
func NewGeminiClassifier(client *genai.Client, model string) *GeminiClassifier {
	return newGeminiClassifier(client.Models, model)
}

func newGeminiClassifier(models contentGenerator, model string) *GeminiClassifier {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClassifier{models: models, model: model}
}

// Classify implements Classifier.
func (g *GeminiClassifier) Classify(ctx context.Context, concept string, candidates []string) (Classification, error) {
	prompt := buildClassificationPrompt(concept, candidates)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Classification{}, apperrors.Wrap(apperrors.ErrCapability, fmt.Errorf("generate content: %w", err))
	}

	raw := resp.Text()
	if raw == "" {
		return Classification{}, apperrors.Wrap(apperrors.ErrCapability, fmt.Errorf("empty response from model"))
	}

	var res Classification
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &res); err != nil {
		return Classification{}, apperrors.Wrap(apperrors.ErrCapability, fmt.Errorf("unmarshal classification: %w", err))
	}
	return res, nil
}

func buildClassificationPrompt(concept string, candidates []string) string {
	var b strings.Builder
	b.WriteString("You classify personal expenses.\n\n")
	b.WriteString("Allowed categories:\n")
	for _, c := range candidates {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- \"category\" must be exactly one of the allowed categories, or \"Otros\" if none fits.\n")
	b.WriteString("- \"subcategory\" is a short label of at most 3 words.\n")
	b.WriteString("- Output STRICT JSON only: {\"category\": string, \"subcategory\": string}.\n")
	b.WriteString("- Do NOT wrap the response in code fences.\n\n")
	b.WriteString("Expense: ")
	b.WriteString(concept)
	b.WriteString("\n")
	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding text from a model
// response, keeping the outermost JSON object or array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	openCh, closeCh := "{", "}"
	if o, a := strings.Index(s, "{"), strings.Index(s, "["); a != -1 && (o == -1 || a < o) {
		openCh, closeCh = "[", "]"
	}
	if start := strings.Index(s, openCh); start != -1 {
		if end := strings.LastIndex(s, closeCh); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
