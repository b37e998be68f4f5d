package evaluation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

// scriptedProvider answers each node by matching a marker phrase in the
// system prompt. Fan-out nodes call Chat concurrently, hence the lock.
type scriptedProvider struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

func (s *scriptedProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	system := messages[0].Content
	for marker, response := range s.responses {
		if strings.Contains(system, marker) {
			s.calls = append(s.calls, marker)
			return response, nil
		}
	}
	return "{}", nil
}

func (s *scriptedProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *scriptedProvider) Name() string { return "scripted" }

func testSpec(t *testing.T) *Spec {
	t.Helper()
	spec, err := LoadSpec("")
	if err != nil {
		t.Fatalf("load spec: %v", err)
	}
	return spec
}

func opsFocusedResponses() map[string]string {
	return map[string]string{
		"document analysis expert":                         `{"enhanced_sections": {}, "key_themes": ["operations"], "document_purpose": "Ops runbook", "migration_indicators": [], "quality_assessment": "clear"}`,
		"Map the document onto the three migration stages": `{
			"strategise_and_plan": {"relevant_content": "No relevant content identified", "key_points": [], "confidence_score": 0.2},
			"migrate_and_modernise": {"relevant_content": "No relevant content identified", "key_points": [], "confidence_score": 0.1},
			"manage_and_optimise": {"relevant_content": "Monitoring and cost optimisation are described in detail", "key_points": ["monitoring", "rightsizing"], "confidence_score": 0.9},
			"overall_intent": "operations playbook"}`,
		"evaluation expert assessing": `{"score": 2, "strengths": ["solid monitoring"], "weaknesses": ["no cost model"], "evidence": ["dashboards"], "recommendations": ["add showback"]}`,
		"compliance expert":           `{"overall_compliance_score": 0.6, "missing_elements": ["wave plan"], "compliance_strengths": ["automation"], "improvement_areas": ["business case"], "recommendations": ["add discovery evidence"]}`,
		"gap analysis expert":         `{"critical_gaps": [], "high_priority_gaps": [{"area": "Planning", "description": "No wave plan", "impact": "Sequencing risk", "recommendation": "Add wave plan"}], "medium_priority_gaps": [], "low_priority_gaps": []}`,
		"consultant":                  `{"critical_recommendations": [], "high_priority_recommendations": [{"title": "Add wave plan", "description": "Plan migration waves", "rationale": "Sequencing", "implementation": "Use discovery data"}], "medium_priority_recommendations": [], "low_priority_recommendations": []}`,
		"scoring expert":              `{"final_score": 72, "score_breakdown": {"phase_scores": 2.0, "compliance_score": 0.6, "gap_penalty": -5, "quality_bonus": 0}, "score_rationale": "Good operations coverage", "grade": "C"}`,
	}
}

func newTestPipeline(t *testing.T, provider *scriptedProvider) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(provider, testSpec(t), DefaultConfig())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pipeline
}

func contentsState(confidences map[Phase]float64) engine.State {
	var contents []PhaseContent
	for _, phase := range AllPhases {
		confidence := confidences[phase]
		relevant := "Detailed phase coverage"
		if confidence == 0 {
			relevant = NoRelevantContent
		}
		contents = append(contents, PhaseContent{Phase: phase, RelevantContent: relevant, Confidence: confidence})
	}
	return engine.State{fieldPhaseContents: contents}
}

func TestRouteToEvaluatorsAboveThreshold(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{})
	targets := pipeline.routeToEvaluators(contentsState(map[Phase]float64{
		PhaseStrategiseAndPlan:   0.2,
		PhaseMigrateAndModernise: 0.8,
		PhaseManageAndOptimise:   0.3,
	}))
	if len(targets) != 1 || targets[0] != "migrate_and_modernise_evaluator" {
		t.Fatalf("targets = %v, want [migrate_and_modernise_evaluator]", targets)
	}
}

func TestRouteToEvaluatorsBestOfFallback(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{})
	targets := pipeline.routeToEvaluators(contentsState(map[Phase]float64{
		PhaseStrategiseAndPlan:   0.1,
		PhaseMigrateAndModernise: 0.2,
		PhaseManageAndOptimise:   0.3,
	}))
	if len(targets) != 1 || targets[0] != "manage_and_optimise_evaluator" {
		t.Fatalf("targets = %v, want highest-confidence evaluator only", targets)
	}
}

func TestRouteToEvaluatorsMultipleAboveThreshold(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{})
	targets := pipeline.routeToEvaluators(contentsState(map[Phase]float64{
		PhaseStrategiseAndPlan:   0.7,
		PhaseMigrateAndModernise: 0.8,
		PhaseManageAndOptimise:   0.1,
	}))
	if len(targets) != 2 {
		t.Fatalf("targets = %v, want two evaluators", targets)
	}
}

func TestRouteIgnoresEmptyContentAboveThreshold(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{})
	state := engine.State{fieldPhaseContents: []PhaseContent{
		{Phase: PhaseStrategiseAndPlan, RelevantContent: NoRelevantContent, Confidence: 0.9},
		{Phase: PhaseMigrateAndModernise, RelevantContent: "Wave execution detail", Confidence: 0.6},
		{Phase: PhaseManageAndOptimise, RelevantContent: NoRelevantContent, Confidence: 0.1},
	}}
	targets := pipeline.routeToEvaluators(state)
	if len(targets) != 1 || targets[0] != "migrate_and_modernise_evaluator" {
		t.Fatalf("targets = %v, want content-bearing evaluator only", targets)
	}
}

func TestEvaluateOpsOnlyDocument(t *testing.T) {
	provider := &scriptedProvider{responses: opsFocusedResponses()}
	pipeline := newTestPipeline(t, provider)

	content := "Operations Handbook\n\nOperations\nWe monitor, operate and optimise the estate with automated runbooks.\n"
	outcome, err := pipeline.Evaluate(context.Background(), []byte(content), "ops.txt")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("outcome failed: %s", outcome.Error)
	}
	result := outcome.Result
	if len(result.PhaseEvaluations) != 1 {
		t.Fatalf("phase evaluations = %d, want 1 (ops only)", len(result.PhaseEvaluations))
	}
	if result.PhaseEvaluations[0].Phase != PhaseManageAndOptimise {
		t.Fatalf("evaluated phase = %s, want manage_and_optimise", result.PhaseEvaluations[0].Phase)
	}
	if result.Final.Score != 72 {
		t.Fatalf("final score = %.0f, want 72", result.Final.Score)
	}
	if result.Final.Grade != "C" {
		t.Fatalf("grade = %q, want C", result.Final.Grade)
	}
	if got := result.Scorecard[PhaseManageAndOptimise]; got != 2 {
		t.Fatalf("scorecard = %d, want 2", got)
	}
	if len(result.Gaps) != 1 || result.Gaps[0].Severity != LevelHigh {
		t.Fatalf("gaps = %+v, want one high-severity gap", result.Gaps)
	}
	if outcome.Processing.PhasesEvaluated != 1 {
		t.Fatalf("processing info phases = %d", outcome.Processing.PhasesEvaluated)
	}
}

func TestEvaluateSurvivesUnparseableResponses(t *testing.T) {
	provider := &scriptedProvider{responses: map[string]string{
		"document analysis expert":                         "I could not produce JSON, sorry.",
		"Map the document onto the three migration stages": "Here is prose instead of JSON.",
		"evaluation expert assessing":                      "still no json",
		"compliance expert":                                "nope",
		"gap analysis expert":                              "nope",
		"consultant":                                       "nope",
		"scoring expert":                                   "nope",
	}}
	pipeline := newTestPipeline(t, provider)

	content := "We will assess the estate, plan the strategy and build the business case."
	outcome, err := pipeline.Evaluate(context.Background(), []byte(content), "plan.txt")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("outcome failed: %s", outcome.Error)
	}
	// Keyword fallback marks strategise_and_plan at 0.7, so that evaluator
	// runs and the scoring fallback supplies the neutral grade.
	if len(outcome.Result.PhaseEvaluations) != 1 {
		t.Fatalf("phase evaluations = %d, want 1", len(outcome.Result.PhaseEvaluations))
	}
	if outcome.Result.PhaseEvaluations[0].Phase != PhaseStrategiseAndPlan {
		t.Fatalf("phase = %s, want strategise_and_plan", outcome.Result.PhaseEvaluations[0].Phase)
	}
	if outcome.Result.Final.Score != 50 || outcome.Result.Final.Grade != "C" {
		t.Fatalf("fallback score = %.0f grade %s", outcome.Result.Final.Score, outcome.Result.Final.Grade)
	}
}

func TestEvaluateRejectsUnsupportedUpload(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{responses: opsFocusedResponses()})
	if _, err := pipeline.Evaluate(context.Background(), []byte("x"), "image.png"); err == nil {
		t.Fatal("evaluate accepted unsupported upload")
	}
}

func TestLoadSpecEmbedded(t *testing.T) {
	spec := testSpec(t)
	if len(spec.Phases) != 3 {
		t.Fatalf("phases = %d, want 3", len(spec.Phases))
	}
	if len(spec.CorePrinciples) == 0 || len(spec.RedFlags) == 0 {
		t.Fatal("principles or red flags missing from embedded spec")
	}
	if spec.Phases[PhaseStrategiseAndPlan].Name == "" {
		t.Fatal("strategise_and_plan phase has no name")
	}
}

func TestEvaluateSOW(t *testing.T) {
	content := `Statement of Work
Scope: deliverables include two migration waves with milestones.
Dependencies: client responsibilities cover environment access.
Assumptions: we assume stable network connectivity; risks are tracked.`
	result := EvaluateSOW(content)
	if result.OverallScore == 0 {
		t.Fatal("sow score = 0 for a covered document")
	}
	if result.MaxScore != 9 {
		t.Fatalf("max score = %d, want 9", result.MaxScore)
	}
	for _, dimension := range []string{"scope_definition", "dependencies_analysis", "assumptions_review"} {
		phase, ok := result.PhaseResults[dimension]
		if !ok {
			t.Fatalf("missing dimension %s", dimension)
		}
		if phase.Score == 0 {
			t.Errorf("%s scored 0, want coverage detected", dimension)
		}
	}
}

func TestEvaluateSOWEmptyDocument(t *testing.T) {
	result := EvaluateSOW("Hello world")
	if result.OverallScore != 0 {
		t.Fatalf("score = %d, want 0", result.OverallScore)
	}
	if len(result.Recommendations) != 3 {
		t.Fatalf("recommendations = %d, want one per dimension", len(result.Recommendations))
	}
}
