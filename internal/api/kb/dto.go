package kb

import "time"

type IntentResponse struct {
	Name      string    `json:"name"`
	Patterns  []string  `json:"patterns"`
	Responses []string  `json:"responses"`
	UpdatedAt time.Time `json:"updated_at"`
}

type IntentListResponse struct {
	Intents []IntentResponse `json:"intents"`
}

type AddPatternRequest struct {
	Pattern string `json:"pattern" validate:"required,min=2,max=256"`
}

type ReindexRequest struct {
	Source string `json:"source" validate:"omitempty,oneof=local s3"`
	Dir    string `json:"dir" validate:"omitempty,max=512"`
	Prefix string `json:"prefix" validate:"omitempty,max=512"`
}

type ReindexResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}
