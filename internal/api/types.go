package api

import (
	"github.com/nicodishanthj/Modeval_phase1/internal/agent"
)

type evaluateRequest struct {
	Content        string `json:"content"`
	Filename       string `json:"filename"`
	EvaluationType string `json:"evaluation_type"`
}

type evaluateResponse struct {
	Checksum       string      `json:"checksum"`
	EvaluationType string      `json:"evaluation_type"`
	Cached         bool        `json:"cached"`
	Outcome        interface{} `json:"outcome"`
}

type reviewRequest struct {
	Question       string                   `json:"question"`
	Checksum       string                   `json:"checksum,omitempty"`
	EvaluationType string                   `json:"evaluation_type,omitempty"`
	Evaluation     *agent.EvaluationContext `json:"evaluation,omitempty"`
}
