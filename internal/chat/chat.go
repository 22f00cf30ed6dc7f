// Package chat answers shopper questions about the catalog, through an LLM
// when one is configured and from a bilingual keyword table otherwise.
package chat

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ashendes/pickle-storefront/internal/metrics"
	"github.com/ashendes/pickle-storefront/internal/models"
)

// Responder produces a reply to message given the earlier conversation
type Responder interface {
	Respond(ctx context.Context, message string, history []models.ChatMessage) (string, error)
}

// Service routes questions to the LLM responder and falls back to the
// rule-based one when the LLM is absent, fails or says nothing
type Service struct {
	llm Responder
}

// NewService creates a chat service; llm may be nil
func NewService(llm Responder) *Service {
	return &Service{llm: llm}
}

// Answer always produces a reply
func (s *Service) Answer(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	if s.llm != nil {
		text, err := s.llm.Respond(ctx, req.Message, req.ConversationHistory)
		if err == nil {
			metrics.ChatResponses.WithLabelValues(models.ChatSourceLLM).Inc()
			return models.ChatResponse{Response: text, Source: models.ChatSourceLLM}
		}
		log.WithError(err).Warn("LLM chat failed, using rule-based fallback")
	}

	metrics.ChatResponses.WithLabelValues(models.ChatSourceRuleBased).Inc()
	return models.ChatResponse{Response: Reply(req.Message), Source: models.ChatSourceRuleBased}
}
