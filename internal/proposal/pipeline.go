package proposal

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

// State field names shared by the generation nodes.
const (
	fieldInput            = "discovery_input"
	fieldRawApplications  = "raw_applications"
	fieldApplications     = "applications"
	fieldSummary          = "workload_summary"
	fieldWarnings         = "warnings"
	fieldExecutiveSummary = "executive_summary"
	fieldOverview         = "overview"
	fieldScope            = "scope"
	fieldStrategies       = "strategies"
	fieldStrategySummary  = "strategy_summary"
	fieldUpgrades         = "modernization_upgrades"
	fieldWavePlan         = "wave_plan"
	fieldArchitecture     = "architecture"
	fieldGenAI            = "genai_plan"
	fieldEstimate         = "sprint_estimate"
	fieldSections         = "sections"
	fieldMarkdown         = "markdown"
	fieldQuality          = "quality"
	fieldOutputs          = "output_files"
)

func inputFrom(state engine.State) (*DiscoveryInput, error) {
	input, ok := state[fieldInput].(*DiscoveryInput)
	if !ok || input == nil {
		return nil, fmt.Errorf("no discovery input in state")
	}
	return input, nil
}

func applicationsFrom(state engine.State) []Application {
	applications, _ := state[fieldApplications].([]Application)
	return applications
}

func summaryFrom(state engine.State) *WorkloadSummary {
	summary, _ := state[fieldSummary].(*WorkloadSummary)
	return summary
}

func strategiesFrom(state engine.State) []StrategyClassification {
	strategies, _ := state[fieldStrategies].([]StrategyClassification)
	return strategies
}

func strategySummaryFrom(state engine.State) *StrategySummary {
	summary, _ := state[fieldStrategySummary].(*StrategySummary)
	return summary
}

func upgradesFrom(state engine.State) map[string]StrategyUpgrade {
	upgrades, _ := state[fieldUpgrades].(map[string]StrategyUpgrade)
	return upgrades
}

func wavePlanFrom(state engine.State) *WavePlan {
	plan, _ := state[fieldWavePlan].(*WavePlan)
	return plan
}

func architectureFrom(state engine.State) *ArchitectureAdvice {
	advice, _ := state[fieldArchitecture].(*ArchitectureAdvice)
	return advice
}

func genaiFrom(state engine.State) *GenAIPlan {
	plan, _ := state[fieldGenAI].(*GenAIPlan)
	return plan
}

func estimateFrom(state engine.State) *SprintEstimate {
	estimate, _ := state[fieldEstimate].(*SprintEstimate)
	return estimate
}

func sectionsFrom(state engine.State) []ProposalSection {
	sections, _ := state[fieldSections].([]ProposalSection)
	return sections
}

func qualityFrom(state engine.State) *QualityMetrics {
	quality, _ := state[fieldQuality].(*QualityMetrics)
	return quality
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func round1(v float64) float64 {
	if v < 0 {
		return float64(int(v*10-0.5)) / 10
	}
	return float64(int(v*10+0.5)) / 10
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Pipeline generates proposals through the compiled workflow. One Pipeline
// serves many invocations; each run gets its own state.
type Pipeline struct {
	provider llm.Provider
	config   Config
	runnable *engine.Runnable
}

// NewPipeline compiles the generation graph against the given provider.
func NewPipeline(provider llm.Provider, config Config) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("proposal: provider required")
	}
	defaults := DefaultConfig()
	if config.ModernizationOpportunityLimit <= 0 {
		config.ModernizationOpportunityLimit = defaults.ModernizationOpportunityLimit
	}
	if len(config.ComplexStrategies) == 0 {
		config.ComplexStrategies = defaults.ComplexStrategies
	}
	if config.MaxProjectWeeks <= 0 {
		config.MaxProjectWeeks = defaults.MaxProjectWeeks
	}
	if config.MaxWavePersonWeeks <= 0 {
		config.MaxWavePersonWeeks = defaults.MaxWavePersonWeeks
	}
	if len(config.ComplexPatterns) == 0 {
		config.ComplexPatterns = defaults.ComplexPatterns
	}
	if config.ServiceCountLimit <= 0 {
		config.ServiceCountLimit = defaults.ServiceCountLimit
	}
	if config.MaxFeedbackIterations <= 0 {
		config.MaxFeedbackIterations = defaults.MaxFeedbackIterations
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = defaults.CallTimeout
	}
	if config.OutputRoot == "" {
		config.OutputRoot = defaults.OutputRoot
	}
	p := &Pipeline{provider: provider, config: config}

	schema := engine.NewSchema().
		Field(fieldInput, engine.Replace).
		Field(fieldRawApplications, engine.Replace).
		Field(fieldApplications, engine.Replace).
		Field(fieldSummary, engine.Replace).
		Field(fieldWarnings, engine.Append).
		Field(fieldExecutiveSummary, engine.Replace).
		Field(fieldOverview, engine.Replace).
		Field(fieldScope, engine.Replace).
		Field(fieldStrategies, engine.Replace).
		Field(fieldStrategySummary, engine.Replace).
		Field(fieldUpgrades, engine.Replace).
		Field(fieldWavePlan, engine.Replace).
		Field(fieldArchitecture, engine.Replace).
		Field(fieldGenAI, engine.Replace).
		Field(fieldEstimate, engine.Replace).
		Field(fieldSections, engine.Replace).
		Field(fieldMarkdown, engine.Replace).
		Field(fieldQuality, engine.Replace).
		Field(fieldOutputs, engine.Replace)

	graph := engine.NewStateGraph(schema)
	graph.AddNode("parse_input", p.parseInputNode)
	graph.AddNode("classify_workloads", p.classifyWorkloadsNode)
	graph.AddNode("generate_overview", p.generateOverviewNode)
	graph.AddNode("generate_scope", p.generateScopeNode)
	graph.AddNode("wave_planning", p.wavePlanningNode)
	graph.AddNode("migration_strategy_6rs", p.migrationStrategyNode)
	graph.AddNode("modernisation_bias", p.modernisationBiasNode)
	graph.AddNode("architecture_advisor", p.architectureAdvisorNode)
	graph.AddNode("genai_tool_planner", p.genaiToolPlannerNode)
	graph.AddNode("sprint_effort_estimator", p.sprintEstimatorNode)
	graph.AddNode("template_formatter", p.templateFormatterNode)
	graph.AddNode("emit_files", p.emitFilesNode)

	graph.SetEntryPoint("parse_input")
	graph.AddEdge("parse_input", "classify_workloads")

	// Parallel fan-out after classification. The branches that only feed
	// the formatter terminate here; the strategy branch continues.
	graph.AddEdge("classify_workloads", "generate_overview")
	graph.AddEdge("classify_workloads", "generate_scope")
	graph.AddEdge("classify_workloads", "wave_planning")
	graph.AddEdge("classify_workloads", "migration_strategy_6rs")
	graph.AddEdge("generate_overview", engine.End)
	graph.AddEdge("generate_scope", engine.End)
	graph.AddEdge("wave_planning", engine.End)

	graph.AddEdge("migration_strategy_6rs", "modernisation_bias")
	graph.AddConditionalEdges("modernisation_bias", p.routeAfterBias,
		"wave_planning", "architecture_advisor")
	graph.AddConditionalEdges("architecture_advisor", p.routeAfterArchitecture,
		"generate_scope", "genai_tool_planner")
	graph.AddEdge("genai_tool_planner", "sprint_effort_estimator")
	graph.AddConditionalEdges("sprint_effort_estimator", p.routeAfterEstimation,
		"migration_strategy_6rs", "template_formatter")
	graph.AddEdge("template_formatter", "emit_files")
	graph.AddEdge("emit_files", engine.End)

	runnable, err := graph.Compile()
	if err != nil {
		return nil, fmt.Errorf("proposal: %w", err)
	}
	p.runnable = runnable
	return p, nil
}

func (p *Pipeline) chat(ctx context.Context, system, user string) (string, error) {
	return llm.ChatWithTimeout(ctx, p.provider, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, p.config.CallTimeout)
}

// shouldReplanWaves fires when the strategy analysis shows significantly
// more modernisation than the current wave plan assumed.
func (p *Pipeline) shouldReplanWaves(state engine.State) bool {
	for _, classification := range strategiesFrom(state) {
		if len(classification.ModernizationOpportunities) > p.config.ModernizationOpportunityLimit {
			return true
		}
		if p.config.isComplexStrategy(classification.Strategy) {
			return true
		}
	}
	return false
}

// shouldUpdateScope fires when the architecture advice implies a materially
// larger or more complex delivery than the scope describes.
func (p *Pipeline) shouldUpdateScope(state engine.State) bool {
	advice := architectureFrom(state)
	if advice == nil {
		return false
	}
	for _, pattern := range advice.Patterns {
		if p.config.isComplexPattern(pattern) {
			return true
		}
	}
	return advice.TotalServices() > p.config.ServiceCountLimit
}

// effortTooHigh fires when the estimate exceeds the project or per-wave
// effort budget.
func (p *Pipeline) effortTooHigh(estimate *SprintEstimate) bool {
	if estimate == nil {
		return false
	}
	if estimate.TotalDurationWeeks > p.config.MaxProjectWeeks {
		return true
	}
	for _, wave := range estimate.Waves {
		if wave.EffortPersonWeeks > p.config.MaxWavePersonWeeks {
			return true
		}
	}
	return false
}

// routeAfterBias re-plans the waves alongside the forward hop when the bias
// outcome warrants it; the re-planned waves and the architecture advice are
// computed in the same frontier.
func (p *Pipeline) routeAfterBias(state engine.State) []string {
	if p.shouldReplanWaves(state) {
		return []string{"wave_planning", "architecture_advisor"}
	}
	return []string{"architecture_advisor"}
}

func (p *Pipeline) routeAfterArchitecture(state engine.State) []string {
	if p.shouldUpdateScope(state) {
		return []string{"generate_scope", "genai_tool_planner"}
	}
	return []string{"genai_tool_planner"}
}

func (p *Pipeline) routeAfterEstimation(state engine.State) []string {
	if p.effortTooHigh(estimateFrom(state)) {
		return []string{"migration_strategy_6rs"}
	}
	return []string{"template_formatter"}
}

// Generate runs the full proposal workflow for one discovery input. Errors
// inside the workflow come back in the outcome with whatever partial
// progress was made; a Go error means the input itself was unusable or the
// context was cancelled.
func (p *Pipeline) Generate(ctx context.Context, input DiscoveryInput) (*Outcome, error) {
	if strings.TrimSpace(input.ClientName) == "" {
		return nil, fmt.Errorf("proposal: client name required")
	}
	if strings.TrimSpace(input.ProjectName) == "" {
		return nil, fmt.Errorf("proposal: project name required")
	}
	common.Logger().Info("proposal: starting run",
		"client", input.ClientName, "project", input.ProjectName, "source_type", input.SourceType)

	result, err := p.runnable.Invoke(ctx, engine.State{fieldInput: &input},
		engine.WithMaxIterations(p.config.MaxFeedbackIterations),
		engine.WithNodeTimeout(p.config.NodeTimeout))
	if err != nil {
		return nil, err
	}

	state := result.State
	outcome := &Outcome{
		Converged:     result.Converged,
		Warnings:      state.Strings(fieldWarnings),
		FeedbackTrail: result.FeedbackTrail,
		Iterations:    result.Iterations,
	}

	if msg := state.Error(); msg != "" {
		common.Logger().Warn("proposal: run failed", "client", input.ClientName, "error", msg)
		outcome.Error = msg
		outcome.Partial = partialResults(state)
		return outcome, nil
	}
	if !result.Converged {
		common.Logger().Warn("proposal: run did not converge",
			"client", input.ClientName, "iterations", result.Iterations)
		outcome.Error = "feedback cycles exceeded the iteration cap before the plan settled"
		outcome.Partial = partialResults(state)
		return outcome, nil
	}

	outcome.Success = true
	outcome.Markdown = state.String(fieldMarkdown)
	outcome.Sections = sectionsFrom(state)
	outcome.MissingSections = missingSectionTopics(outcome.Sections)
	outcome.Quality = qualityFrom(state)
	outcome.OutputFiles = state.Strings(fieldOutputs)
	common.Logger().Info("proposal: run complete",
		"client", input.ClientName, "sections", len(outcome.Sections),
		"iterations", result.Iterations, "feedback_edges", len(result.FeedbackTrail))
	return outcome, nil
}

// partialResults snapshots how far a failed run got.
func partialResults(state engine.State) map[string]interface{} {
	partial := map[string]interface{}{}
	if applications := applicationsFrom(state); len(applications) > 0 {
		partial["applications_classified"] = len(applications)
	}
	if summary := summaryFrom(state); summary != nil {
		partial["total_effort_weeks"] = summary.TotalEffortWeeks
	}
	if plan := wavePlanFrom(state); plan != nil {
		partial["waves_planned"] = len(plan.Waves)
	}
	if strategies := strategiesFrom(state); len(strategies) > 0 {
		distribution := map[string]int{}
		for _, classification := range strategies {
			distribution[string(classification.Strategy)]++
		}
		partial["strategies_assigned"] = distribution
	}
	if estimate := estimateFrom(state); estimate != nil {
		partial["estimated_duration_weeks"] = estimate.TotalDurationWeeks
	}
	if sections := sectionsFrom(state); len(sections) > 0 {
		partial["sections_formatted"] = len(sections)
	}
	return partial
}
