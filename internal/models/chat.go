package models

// ChatMessage is one turn of a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the body of POST /api/chat
type ChatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory"`
}

// ChatResponse represents the chat reply and which responder produced it
type ChatResponse struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}

// Chat response sources
const (
	ChatSourceRuleBased      = "rule-based"
	ChatSourceLLM            = "gemini"
	ChatSourceRuleBasedError = "rule-based-error"
)
