package models

import "time"

// ChatRequest is a question for the workplace assistant.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// ChatResponse carries the assistant's reply.
type ChatResponse struct {
	Reply       string    `json:"reply"`
	GeneratedAt time.Time `json:"generated_at"`
}
