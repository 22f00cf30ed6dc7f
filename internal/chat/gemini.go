package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ashendes/pickle-storefront/internal/models"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// historyWindow is how many earlier turns are sent with each question
const historyWindow = 4

const systemPrompt = `You are a helpful pickle store assistant. Help customers choose pickles based on their spice preference. We have:
1. Avakai (Very Spicy, ₹220-₹750)
2. Gongura (Medium Spicy, ₹200-₹720)
3. Lemon (Mild, ₹180-₹650)

IMPORTANT: Respond in the same language as the user.
- If the user speaks in English, respond in English.
- If the user speaks in Telugu (either Telugu script or romanized), respond in ROMANIZED TELUGU using ENGLISH LETTERS ONLY (e.g., "Namaskaram" not "నమస్కారం", "Meeku kaaram ishtama?" not "మీకు కారం ఇష్టమా?").
Keep responses concise (2-3 sentences).`

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty model response")

// contentGenerator is the part of *genai.Models the responder uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini answers through the Gemini API
type Gemini struct {
	models contentGenerator
	model  string
}

// NewGemini creates a Gemini responder for apiKey
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGemini(client.Models, model), nil
}

func newGemini(m contentGenerator, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: m, model: model}
}

// Respond sends the last few turns of history plus message to the model
func (g *Gemini) Respond(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	contents := BuildContents(message, history)

	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// BuildContents maps chat history onto model turns, keeping the last few
// messages and ending with the new user message
func BuildContents(message string, history []models.ChatMessage) []*genai.Content {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" || m.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}
