package chat

import "time"

type ChatRequest struct {
	Message   string `json:"message" validate:"required,min=1,max=4096"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

type SuggestionResponse struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

type ChatResponse struct {
	Response     string               `json:"response"`
	SessionID    string               `json:"session_id"`
	Intent       string               `json:"intent"`
	Confidence   float64              `json:"confidence"`
	Suggestions  []SuggestionResponse `json:"suggestions,omitempty"`
	NextQuestion string               `json:"next_question,omitempty"`
}

type HistoryTurnResponse struct {
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Intent      string    `json:"intent"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}

type HistoryResponse struct {
	SessionID string                `json:"session_id"`
	Turns     []HistoryTurnResponse `json:"turns"`
}
