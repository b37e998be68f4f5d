package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

func TestBuildSystemPromptProposalReview(t *testing.T) {
	prompt := buildSystemPrompt(&ReviewOptions{Evaluation: &EvaluationContext{
		EvaluationType: "migration_proposal",
		Filename:       "acme-proposal.pdf",
	}})
	if !strings.Contains(prompt, "You are a concise migration assessment reviewer.") {
		t.Fatalf("expected base system prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "explain the phase scores") {
		t.Fatalf("expected proposal focus in prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "acme-proposal.pdf") {
		t.Fatalf("expected filename in prompt: %q", prompt)
	}
}

func TestBuildSystemPromptStatementOfWork(t *testing.T) {
	prompt := buildSystemPrompt(&ReviewOptions{Evaluation: &EvaluationContext{
		EvaluationType: "statement_of_work",
	}})
	if !strings.Contains(prompt, "acceptance criteria") {
		t.Fatalf("expected SOW focus in prompt: %q", prompt)
	}
}

func TestEvaluationMessagesCarryStoredResult(t *testing.T) {
	messages := evaluationMessages(&ReviewOptions{Evaluation: &EvaluationContext{
		OverallScore:    72.5,
		Grade:           "B",
		Summary:         "Solid plan, weak operations coverage.",
		Gaps:            []string{"No rollback strategy", "Missing cost model"},
		Recommendations: []string{"Add a rollback runbook"},
	}})
	if len(messages) != 4 {
		t.Fatalf("expected 4 context messages, got %d", len(messages))
	}
	joined := ""
	for _, msg := range messages {
		if msg.Role != "system" {
			t.Fatalf("expected system role, got %q", msg.Role)
		}
		joined += msg.Content + "\n"
	}
	for _, want := range []string{"72.5", "grade B", "No rollback strategy", "rollback runbook"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in context messages:\n%s", want, joined)
		}
	}
}

func TestEvaluationMessagesEmptyContext(t *testing.T) {
	if msgs := evaluationMessages(nil); msgs != nil {
		t.Fatalf("expected no messages, got %v", msgs)
	}
	if msgs := evaluationMessages(&ReviewOptions{}); msgs != nil {
		t.Fatalf("expected no messages for empty options, got %v", msgs)
	}
}

type echoProvider struct {
	lastMessages []llm.Message
}

func (e *echoProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	e.lastMessages = messages
	return "the score reflects weak operations coverage", nil
}

func (e *echoProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, nil
}

func (e *echoProvider) Name() string { return "echo" }

func TestReviewSendsContextAndQuestion(t *testing.T) {
	provider := &echoProvider{}
	runner := NewRunner(provider)

	answer, err := runner.Review(context.Background(), "Why did the proposal score a B?", &ReviewOptions{
		Evaluation: &EvaluationContext{
			EvaluationType: "migration_proposal",
			OverallScore:   72.5,
			Grade:          "B",
			Summary:        "Solid plan, weak operations coverage.",
		},
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if answer != "the score reflects weak operations coverage" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(provider.lastMessages) < 3 {
		t.Fatalf("expected system context plus question, got %d messages", len(provider.lastMessages))
	}
	last := provider.lastMessages[len(provider.lastMessages)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "score a B") {
		t.Fatalf("expected question as final user message, got %+v", last)
	}
}

func TestReviewWithoutProvider(t *testing.T) {
	runner := NewRunner(nil)
	answer, err := runner.Review(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if !strings.Contains(answer, "no review provider available") {
		t.Fatalf("expected fallback answer, got %q", answer)
	}
}
