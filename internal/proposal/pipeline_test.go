package proposal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

// scriptRule answers calls whose prompt contains the marker. Responses are
// consumed in order; the last one repeats.
type scriptRule struct {
	marker    string
	responses []string
}

// scriptedProvider matches rules in declaration order against the full
// prompt text. Fan-out nodes call Chat concurrently, hence the lock.
type scriptedProvider struct {
	mu    sync.Mutex
	rules []scriptRule
	index map[string]int
	calls []string
}

func (s *scriptedProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var text strings.Builder
	for _, message := range messages {
		text.WriteString(message.Content)
		text.WriteString("\n")
	}
	prompt := text.String()
	for _, rule := range s.rules {
		if !strings.Contains(prompt, rule.marker) {
			continue
		}
		if s.index == nil {
			s.index = map[string]int{}
		}
		i := s.index[rule.marker]
		if i >= len(rule.responses) {
			i = len(rule.responses) - 1
		}
		s.index[rule.marker]++
		s.calls = append(s.calls, rule.marker)
		return rule.responses[i], nil
	}
	return "{}", nil
}

func (s *scriptedProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *scriptedProvider) Name() string { return "scripted" }

const (
	markerClassify     = "expert cloud migration consultant"
	markerContent      = "expert technical writer"
	markerWaves        = "dual-track agile delivery"
	markerStrategy     = "6R migration framework"
	markerArchitecture = "cloud architecture expert"
	markerGenAI        = "AI/ML expert"
	markerSprint       = "project management expert"
)

func happyRules() []scriptRule {
	return []scriptRule{
		{markerClassify, []string{`{"type": "web application", "technology_stack": ["java", "spring"], "complexity": "Low", "migration_readiness": "Ready", "business_criticality": "Medium", "dependencies": [], "estimated_effort_weeks": 4}`}},
		{markerContent, []string{`{"executive_summary": "Acme Corp will modernise its estate.", "overview": "The programme migrates two applications to AWS.", "scope": "Scope covers Billing and Reporting."}`}},
		{markerWaves, []string{`{"methodology": "Dual-Track Agile Delivery", "estimated_duration_months": 2, "key_principles": ["Discovery one sprint ahead"], "waves": [{"wave_number": 1, "name": "Initial Delivery", "track": "Delivery", "applications": ["Billing", "Reporting"], "duration_weeks": 8, "sprint_count": 4, "risk_level": "Low", "success_criteria": ["Increments delivered"]}]}`}},
		{markerStrategy, []string{`{"recommended_strategy": "rehost", "modernization_opportunities": ["Managed services"], "rationale": "Simple lift", "effort_estimate_weeks": 4, "risk_level": "Low", "prerequisites": [], "success_metrics": ["Done"]}`}},
		{markerArchitecture, []string{`{"architecture_patterns": ["Cloud-native"], "technology_stack": {"compute": ["ECS"], "storage": ["RDS"], "networking": ["ALB"]}, "recommendations": [{"category": "Security", "recommendation": "Adopt least-privilege IAM", "rationale": "Reduce blast radius", "priority": "High"}]}`}},
		{markerGenAI, []string{`{"tool_categories": [{"category": "Code Modernization", "tools": ["GitHub Copilot"], "use_cases": ["Refactoring"], "expected_benefits": ["Velocity"], "implementation_effort": "Medium"}], "automation_opportunities": [{"opportunity": "Test generation", "potential_savings": "20% less manual effort", "complexity": "Low"}]}`}},
		{markerSprint, []string{`{"total_project_duration_weeks": 24, "total_sprint_count": 12, "wave_estimates": [{"wave_number": 1, "wave_name": "Initial Delivery", "duration_weeks": 8, "sprint_count": 4, "team_size": 5, "effort_person_weeks": 40, "key_milestones": ["Migration complete"], "risk_factors": ["Complexity"]}], "resource_requirements": {"developers": 3, "architects": 1}}`}},
	}
}

func setRule(rules []scriptRule, marker string, responses ...string) []scriptRule {
	for i := range rules {
		if rules[i].marker == marker {
			rules[i].responses = responses
			return rules
		}
	}
	return append(rules, scriptRule{marker, responses})
}

const discoveryJSON = `{"applications": [
	{"name": "Billing", "description": "REST billing API", "technology_stack": ["java", "spring"], "current_environment": "on-prem VMware"},
	{"name": "Reporting", "description": "BI reporting", "technology_stack": ["python"], "current_environment": "on-prem"}
]}`

func testInput() DiscoveryInput {
	return DiscoveryInput{
		SourceType:      "json",
		RawData:         discoveryJSON,
		ClientName:      "Acme Corp",
		ProjectName:     "Acme Cloud Migration",
		TargetCloud:     "AWS",
		BusinessDrivers: []string{"cost", "agility"},
	}
}

func newTestPipeline(t *testing.T, provider *scriptedProvider) *Pipeline {
	t.Helper()
	config := DefaultConfig()
	config.OutputRoot = t.TempDir()
	pipeline, err := NewPipeline(provider, config)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pipeline
}

func containsEdge(trail []string, edge string) bool {
	for _, fired := range trail {
		if fired == edge {
			return true
		}
	}
	return false
}

func TestGenerateFullRun(t *testing.T) {
	provider := &scriptedProvider{rules: happyRules()}
	pipeline := newTestPipeline(t, provider)

	outcome, err := pipeline.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.Success || !outcome.Converged {
		t.Fatalf("expected successful converged run, got %+v", outcome)
	}
	if outcome.Iterations != 0 || len(outcome.FeedbackTrail) != 0 {
		t.Fatalf("expected no feedback firings, got %d (%v)", outcome.Iterations, outcome.FeedbackTrail)
	}
	if len(outcome.Sections) != 8 {
		t.Fatalf("expected 8 sections, got %d: %+v", len(outcome.Sections), outcome.Sections)
	}
	for i, section := range outcome.Sections {
		if want := fmt.Sprintf("%d", i+1); section.Number != want {
			t.Errorf("section %d numbered %q", i, section.Number)
		}
	}
	if len(outcome.MissingSections) != 0 {
		t.Errorf("unexpected missing sections: %v", outcome.MissingSections)
	}
	if !strings.Contains(outcome.Markdown, "Acme Cloud Migration") || !strings.Contains(outcome.Markdown, "Acme Corp") {
		t.Errorf("markdown missing client context")
	}
	// The bias upgrades both rehost assignments to replatform.
	if !strings.Contains(outcome.Markdown, "Replatform") {
		t.Errorf("expected upgraded replatform strategies in markdown")
	}
	if outcome.Quality == nil || outcome.Quality.Overall <= 0 {
		t.Fatalf("expected quality metrics, got %+v", outcome.Quality)
	}
	if len(outcome.OutputFiles) != 3 {
		t.Fatalf("expected markdown/json/yaml artifacts, got %v", outcome.OutputFiles)
	}
	for _, path := range outcome.OutputFiles {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact not written: %v", err)
		}
	}
}

func TestGenerateWaveReplanFeedback(t *testing.T) {
	rules := setRule(happyRules(), markerStrategy,
		`{"recommended_strategy": "refactor", "modernization_opportunities": ["Containers", "APIs", "Eventing"], "effort_estimate_weeks": 8, "risk_level": "Medium"}`)
	provider := &scriptedProvider{rules: rules}
	pipeline := newTestPipeline(t, provider)

	outcome, err := pipeline.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("run failed: %s", outcome.Error)
	}
	if !containsEdge(outcome.FeedbackTrail, "modernisation_bias->wave_planning") {
		t.Fatalf("expected wave re-plan feedback, trail: %v", outcome.FeedbackTrail)
	}
	if len(outcome.Sections) != 8 {
		t.Fatalf("re-planned run should still produce a full proposal, got %d sections", len(outcome.Sections))
	}
}

func TestGenerateScopeUpdateFeedback(t *testing.T) {
	rules := setRule(happyRules(), markerArchitecture,
		`{"architecture_patterns": ["Microservices"], "technology_stack": {"compute": ["EKS"]}, "recommendations": []}`)
	// The regenerated scope prompt carries the architecture direction; match
	// it ahead of the generic content rule.
	rules = append([]scriptRule{{
		marker:    "Architecture Direction",
		responses: []string{`{"scope": "Expanded scope covering the microservices split."}`},
	}}, rules...)
	provider := &scriptedProvider{rules: rules}
	pipeline := newTestPipeline(t, provider)

	outcome, err := pipeline.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("run failed: %s", outcome.Error)
	}
	if !containsEdge(outcome.FeedbackTrail, "architecture_advisor->generate_scope") {
		t.Fatalf("expected scope update feedback, trail: %v", outcome.FeedbackTrail)
	}
	var scope ProposalSection
	for _, section := range outcome.Sections {
		if section.Title == "Scope Definition" {
			scope = section
		}
	}
	if !strings.Contains(scope.Content, "Expanded scope") {
		t.Fatalf("scope was not regenerated: %q", scope.Content)
	}
}

func TestGenerateEffortReclassification(t *testing.T) {
	rules := setRule(happyRules(), markerSprint,
		`{"total_project_duration_weeks": 80, "wave_estimates": [{"wave_number": 1, "wave_name": "Initial Delivery", "duration_weeks": 80, "sprint_count": 40, "team_size": 5, "effort_person_weeks": 90}]}`,
		`{"total_project_duration_weeks": 24, "wave_estimates": [{"wave_number": 1, "wave_name": "Initial Delivery", "duration_weeks": 24, "sprint_count": 12, "team_size": 5, "effort_person_weeks": 60}]}`)
	provider := &scriptedProvider{rules: rules}
	pipeline := newTestPipeline(t, provider)

	outcome, err := pipeline.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !outcome.Success || !outcome.Converged {
		t.Fatalf("expected the second estimate to settle the run, got %+v", outcome)
	}
	if !containsEdge(outcome.FeedbackTrail, "sprint_effort_estimator->migration_strategy_6rs") {
		t.Fatalf("expected reclassification feedback, trail: %v", outcome.FeedbackTrail)
	}
}

func TestGenerateNonConvergence(t *testing.T) {
	rules := setRule(happyRules(), markerSprint,
		`{"total_project_duration_weeks": 80, "wave_estimates": [{"wave_number": 1, "wave_name": "Initial Delivery", "duration_weeks": 80, "sprint_count": 40, "team_size": 5, "effort_person_weeks": 400}]}`)
	provider := &scriptedProvider{rules: rules}
	pipeline := newTestPipeline(t, provider)

	outcome, err := pipeline.Generate(context.Background(), testInput())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if outcome.Success || outcome.Converged {
		t.Fatalf("expected non-convergent run, got %+v", outcome)
	}
	if !strings.Contains(outcome.Error, "iteration cap") {
		t.Errorf("error should report the cap, got %q", outcome.Error)
	}
	if outcome.Partial["estimated_duration_weeks"] != 80 {
		t.Errorf("partial results missing estimate: %v", outcome.Partial)
	}
}

func TestGenerateRequiresNames(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{})
	input := testInput()
	input.ClientName = "  "
	if _, err := pipeline.Generate(context.Background(), input); err == nil {
		t.Fatal("expected error for missing client name")
	}
}

func TestParseInputDecodesJSONDirectly(t *testing.T) {
	provider := &scriptedProvider{}
	pipeline := newTestPipeline(t, provider)

	input := testInput()
	out, err := pipeline.parseInputNode(context.Background(), engine.State{fieldInput: &input})
	if err != nil {
		t.Fatalf("parse input: %v", err)
	}
	records, _ := out[fieldRawApplications].([]map[string]interface{})
	if len(records) != 2 {
		t.Fatalf("expected 2 application records, got %d", len(records))
	}
	if len(provider.calls) != 0 {
		t.Errorf("json input should not call the model, calls: %v", provider.calls)
	}
}

func TestExtractApplicationRecordsVariants(t *testing.T) {
	records := extractApplicationRecords(map[string]interface{}{
		"workloads": []interface{}{
			map[string]interface{}{"name": "A"},
			map[string]interface{}{"name": "B"},
		},
	})
	if len(records) != 2 {
		t.Fatalf("expected 2 records from workloads key, got %d", len(records))
	}
	single := extractApplicationRecords(map[string]interface{}{"name": "Solo"})
	if len(single) != 1 {
		t.Fatalf("expected whole payload as single record, got %d", len(single))
	}
}

func TestFallbackWavePlanGrouping(t *testing.T) {
	apps := []Application{
		{Name: "Portal", Complexity: "Low", MigrationReadiness: "Ready"},
		{Name: "Billing", Complexity: "Medium", MigrationReadiness: "Needs Assessment"},
		{Name: "Ledger", Complexity: "High", MigrationReadiness: "Complex"},
		{Name: "Archive", Complexity: "High", MigrationReadiness: "Complex"},
	}
	plan := fallbackWavePlan(apps)
	if plan.TotalWaves != 5 {
		t.Fatalf("expected 5 waves, got %d", plan.TotalWaves)
	}
	if plan.Waves[0].Track != "Delivery" || plan.Waves[0].Applications[0] != "Portal" {
		t.Errorf("ready workload should open the delivery track: %+v", plan.Waves[0])
	}
	if plan.TotalSprints != 19 {
		t.Errorf("expected 19 sprints, got %d", plan.TotalSprints)
	}
	if plan.EstimatedDurationMonths != 8.8 {
		t.Errorf("expected 8.8 months for 38 weeks, got %v", plan.EstimatedDurationMonths)
	}
	if warnings := validateWavePlan(plan, apps); len(warnings) != 0 {
		t.Errorf("fallback plan should cover all applications: %v", warnings)
	}
}

func TestStrategyFallbackRules(t *testing.T) {
	cases := []struct {
		app  Application
		want Strategy
	}{
		{Application{Name: "Shop", Complexity: "Low", MigrationReadiness: "Ready", TechnologyStack: []string{"Docker", "Go"}}, StrategyRefactor},
		{Application{Name: "Shop", Complexity: "Low", MigrationReadiness: "Ready", TechnologyStack: []string{"PHP"}}, StrategyReplatform},
		{Application{Name: "CRM", Complexity: "Medium", BusinessCriticality: "Critical"}, StrategyReplatform},
		{Application{Name: "CRM", Complexity: "Medium", BusinessCriticality: "Low"}, StrategyRefactor},
		{Application{Name: "Legacy ERP", Complexity: "High", BusinessCriticality: "Medium"}, StrategyRepurchase},
		{Application{Name: "Legacy ERP", Complexity: "High", BusinessCriticality: "Critical"}, StrategyRefactor},
	}
	for _, tc := range cases {
		record := strategyFallback(tc.app)
		if got := record["recommended_strategy"]; got != string(tc.want) {
			t.Errorf("%s/%s/%s: got %v, want %s", tc.app.Name, tc.app.Complexity, tc.app.BusinessCriticality, got, tc.want)
		}
	}
}

func TestModernisationUpgrades(t *testing.T) {
	critical := Application{Name: "API", BusinessCriticality: "Critical", TechnologyStack: []string{"REST API", "Java"}}
	if next, _ := upgradeFor(StrategyRehost, critical); next != StrategyRefactor {
		t.Errorf("critical cloud-native candidate should upgrade to refactor, got %s", next)
	}
	medium := Application{Name: "Web", BusinessCriticality: "Medium", TechnologyStack: []string{"Java"}}
	if next, _ := upgradeFor(StrategyRehost, medium); next != StrategyReplatform {
		t.Errorf("medium criticality modern stack should upgrade to replatform, got %s", next)
	}
	scale := Application{Name: "Core", BusinessCriticality: "Critical", EstimatedUsers: 6000, TechnologyStack: []string{"Spring"}}
	if next, _ := upgradeFor(StrategyReplatform, scale); next != StrategyRefactor {
		t.Errorf("critical high-scale replatform should upgrade to refactor, got %s", next)
	}
	legacy := Application{Name: "Batch", BusinessCriticality: "Low", TechnologyStack: []string{"COBOL"}}
	if next, _ := upgradeFor(StrategyRehost, legacy); next != StrategyRehost {
		t.Errorf("low-value workload should keep rehost, got %s", next)
	}
}

func TestFeedbackPredicates(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{})

	if pipeline.effortTooHigh(nil) {
		t.Error("nil estimate must not trigger reclassification")
	}
	if !pipeline.effortTooHigh(&SprintEstimate{TotalDurationWeeks: 60}) {
		t.Error("60 project weeks should exceed the budget")
	}
	if !pipeline.effortTooHigh(&SprintEstimate{TotalDurationWeeks: 20, Waves: []WaveEstimate{{EffortPersonWeeks: 120}}}) {
		t.Error("a 120 person-week wave should exceed the budget")
	}
	if pipeline.effortTooHigh(&SprintEstimate{TotalDurationWeeks: 24, Waves: []WaveEstimate{{EffortPersonWeeks: 40}}}) {
		t.Error("a modest estimate should pass")
	}

	state := engine.State{fieldArchitecture: &ArchitectureAdvice{
		TechnologyStack: map[string][]string{"compute": make([]string, 6), "storage": make([]string, 6)},
	}}
	if !pipeline.shouldUpdateScope(state) {
		t.Error("12 recommended services should trigger a scope update")
	}
	state = engine.State{fieldArchitecture: &ArchitectureAdvice{Patterns: []string{"Event-driven"}}}
	if !pipeline.shouldUpdateScope(state) {
		t.Error("a complex pattern should trigger a scope update")
	}
	if pipeline.shouldUpdateScope(engine.State{}) {
		t.Error("no advice, no scope update")
	}
}

func TestSimplifyStrategyDowngrades(t *testing.T) {
	refactor := simplifyStrategy(StrategyClassification{Strategy: StrategyRefactor, EffortWeeks: 16})
	if refactor.Strategy != StrategyReplatform || refactor.EffortWeeks != 8 {
		t.Errorf("refactor should halve down to replatform: %+v", refactor)
	}
	replatform := simplifyStrategy(StrategyClassification{Strategy: StrategyReplatform, EffortWeeks: 8})
	if replatform.Strategy != StrategyRehost {
		t.Errorf("replatform should downgrade to rehost: %+v", replatform)
	}
	rehost := simplifyStrategy(StrategyClassification{Strategy: StrategyRehost, EffortWeeks: 4})
	if rehost.Strategy != StrategyRehost || rehost.EffortWeeks != 4 {
		t.Errorf("rehost is already the simplest: %+v", rehost)
	}
}

func TestTemplateFormatterAssemblesSections(t *testing.T) {
	pipeline := newTestPipeline(t, &scriptedProvider{})
	apps := []Application{{Name: "Portal", Complexity: "Low", MigrationReadiness: "Ready"}}
	strategies := []StrategyClassification{{ApplicationName: "Portal", Strategy: StrategyReplatform, EffortWeeks: 4, RiskLevel: "Low"}}
	state := engine.State{
		fieldInput:            &DiscoveryInput{ClientName: "Acme Corp", ProjectName: "Acme Cloud Migration"},
		fieldExecutiveSummary: "Summary of the initiative.",
		fieldOverview:         "Overview of the programme.",
		fieldScope:            "Scope of the delivery.",
		fieldApplications:     apps,
		fieldWavePlan:         fallbackWavePlan(apps),
		fieldStrategies:       strategies,
		fieldStrategySummary:  summariseStrategies(strategies),
		fieldArchitecture:     &ArchitectureAdvice{Patterns: []string{"Cloud-native"}},
		fieldGenAI:            &GenAIPlan{ToolCategories: []GenAIToolCategory{{Category: "Testing", Tools: []string{"Copilot"}}}},
		fieldEstimate:         &SprintEstimate{TotalDurationWeeks: 4, TotalSprints: 2, Waves: []WaveEstimate{{WaveNumber: 1, WaveName: "Delivery", DurationWeeks: 4, SprintCount: 2, TeamSize: 5, EffortPersonWeeks: 20}}},
	}

	out, err := pipeline.templateFormatterNode(context.Background(), state)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	sections, _ := out[fieldSections].([]ProposalSection)
	if len(sections) != 8 {
		t.Fatalf("expected 8 sections, got %d", len(sections))
	}
	markdown, _ := out[fieldMarkdown].(string)
	if !strings.Contains(markdown, "# 4. Wave Group Planning") {
		t.Errorf("markdown missing numbered wave section")
	}
	quality, _ := out[fieldQuality].(*QualityMetrics)
	if quality == nil {
		t.Fatal("expected quality metrics")
	}
	if quality.Completeness != 1 {
		t.Errorf("eight sections should max completeness, got %v", quality.Completeness)
	}
	if quality.Modernisation != 1 {
		t.Errorf("all-replatform portfolio should max modernisation, got %v", quality.Modernisation)
	}
	if len(missingSectionTopics(sections)) != 0 {
		t.Errorf("no topics should be missing: %v", missingSectionTopics(sections))
	}
}

func TestValidateApplicationsWarnings(t *testing.T) {
	warnings := validateApplications([]Application{
		{Name: "Billing", TechnologyStack: []string{"java"}, Dependencies: []string{"Ledger"}},
		{Name: "Reporting"},
	})
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "Ledger") {
		t.Errorf("missing dependency warning: %v", warnings)
	}
	if !strings.Contains(warnings[1], "technology stack") {
		t.Errorf("missing stack warning: %v", warnings)
	}
}
