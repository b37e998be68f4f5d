package agent

import (
	"context"
	"fmt"
	"strings"

	langgraphgo "github.com/tmc/langgraphgo"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

// Runner answers follow-up questions about a stored evaluation run.
type Runner struct {
	provider llm.Provider
}

func NewRunner(provider llm.Provider) *Runner {
	return &Runner{provider: provider}
}

// EvaluationContext carries the stored run the question refers to.
type EvaluationContext struct {
	Filename        string   `json:"filename,omitempty"`
	EvaluationType  string   `json:"evaluation_type,omitempty"`
	OverallScore    float64  `json:"overall_score,omitempty"`
	Grade           string   `json:"grade,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Gaps            []string `json:"gaps,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

type ReviewOptions struct {
	Evaluation *EvaluationContext `json:"evaluation,omitempty"`
}

// Review answers one question about an evaluation, with the stored result
// injected as system context.
func (r *Runner) Review(ctx context.Context, question string, opts *ReviewOptions) (string, error) {
	graph := langgraphgo.NewGraph(func(ctx context.Context, question string) (string, error) {
		if r.provider == nil {
			return fmt.Sprintf("no review provider available: %s", question), nil
		}
		messages := []llm.Message{{Role: "system", Content: buildSystemPrompt(opts)}}
		if ctxMsgs := evaluationMessages(opts); len(ctxMsgs) > 0 {
			messages = append(messages, ctxMsgs...)
		}
		messages = append(messages, llm.Message{Role: "user", Content: question})
		common.Logger().Debug("agent: review question", "messages", len(messages))
		return r.provider.Chat(ctx, messages)
	})
	return graph.Run(ctx, question)
}

func buildSystemPrompt(opts *ReviewOptions) string {
	systemPrompt := "You are a concise migration assessment reviewer."
	if opts == nil || opts.Evaluation == nil {
		return systemPrompt
	}
	eval := opts.Evaluation
	var contextParts []string
	if eval.EvaluationType != "" {
		contextParts = append(contextParts, fmt.Sprintf("Evaluation type: %s.", eval.EvaluationType))
		switch strings.ToLower(strings.TrimSpace(eval.EvaluationType)) {
		case "migration_proposal":
			contextParts = append(contextParts,
				"Focus areas: explain the phase scores, justify the identified gaps, and suggest concrete improvements to the proposal content.")
		case "statement_of_work":
			contextParts = append(contextParts,
				"Focus areas: deliverable definitions, acceptance criteria coverage, timeline commitments and commercial terms.")
		}
	}
	if eval.Filename != "" {
		contextParts = append(contextParts, fmt.Sprintf("Document: %s.", eval.Filename))
	}
	if len(contextParts) > 0 {
		systemPrompt = fmt.Sprintf("%s %s", systemPrompt, strings.Join(contextParts, " "))
	}
	return systemPrompt
}

// evaluationMessages converts the stored result into system context messages.
func evaluationMessages(opts *ReviewOptions) []llm.Message {
	if opts == nil || opts.Evaluation == nil {
		return nil
	}
	eval := opts.Evaluation
	var parts []string
	if eval.Grade != "" || eval.OverallScore > 0 {
		parts = append(parts, fmt.Sprintf("Overall score: %.1f (grade %s).", eval.OverallScore, eval.Grade))
	}
	if strings.TrimSpace(eval.Summary) != "" {
		parts = append(parts, "Assessment summary: "+strings.TrimSpace(eval.Summary))
	}
	if len(eval.Gaps) > 0 {
		parts = append(parts, "Identified gaps:\n- "+strings.Join(eval.Gaps, "\n- "))
	}
	if len(eval.Recommendations) > 0 {
		parts = append(parts, "Recommendations:\n- "+strings.Join(eval.Recommendations, "\n- "))
	}
	if len(parts) == 0 {
		return nil
	}
	messages := make([]llm.Message, 0, len(parts))
	for _, part := range parts {
		messages = append(messages, llm.Message{Role: "system", Content: part})
	}
	return messages
}
