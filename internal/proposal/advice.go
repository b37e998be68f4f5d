package proposal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
)

// architectureAdvisorNode recommends target architecture patterns and
// services based on the assigned strategies.
func (p *Pipeline) architectureAdvisorNode(ctx context.Context, state engine.State) (engine.State, error) {
	strategies := strategiesFrom(state)
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no migration strategies available for architecture advice")
	}

	system := `You are a cloud architecture expert providing recommendations for migration projects.
Cover cloud architecture patterns, a recommended service map per concern
(compute, storage, networking) and prioritised individual recommendations
spanning security, observability and cost.
Respond with ONLY valid JSON:
{"architecture_patterns": ["..."], "technology_stack": {"compute": ["..."], "storage": ["..."], "networking": ["..."]}, "recommendations": [{"category": "...", "recommendation": "...", "rationale": "...", "priority": "High|Medium|Low"}]}`

	response, err := p.chat(ctx, system, "Provide architecture recommendations based on these migration strategies:\n\n"+formatStrategies(strategies))
	if err != nil {
		return nil, fmt.Errorf("architecture advice: %w", err)
	}

	record := coerce.ExtractWith(response, architectureFallback())
	advice := &ArchitectureAdvice{
		Patterns:        coerce.Strings(record, "architecture_patterns"),
		TechnologyStack: map[string][]string{},
	}
	for concern := range coerce.Record(record, "technology_stack") {
		services := coerce.Strings(coerce.Record(record, "technology_stack"), concern)
		if len(services) > 0 {
			advice.TechnologyStack[concern] = services
		}
	}
	for _, entry := range coerce.Records(record, "recommendations") {
		advice.Recommendations = append(advice.Recommendations, ArchitectureRecommendation{
			Category:       coerce.String(entry, "category", "General"),
			Recommendation: coerce.String(entry, "recommendation", ""),
			Rationale:      coerce.String(entry, "rationale", ""),
			Priority:       coerce.String(entry, "priority", "Medium"),
		})
	}
	return engine.State{fieldArchitecture: advice}, nil
}

// genaiToolPlannerNode plans GenAI tooling and automation opportunities for
// the migration programme.
func (p *Pipeline) genaiToolPlannerNode(ctx context.Context, state engine.State) (engine.State, error) {
	applications := applicationsFrom(state)
	if len(applications) == 0 {
		return nil, fmt.Errorf("no workload data available for GenAI planning")
	}

	system := `You are an AI/ML expert specialising in GenAI tools for cloud migration and modernisation.
Recommend tooling per category (code modernisation, documentation, testing,
infrastructure as code, observability, security) and concrete automation
opportunities with expected savings.
Respond with ONLY valid JSON:
{"tool_categories": [{"category": "...", "tools": ["..."], "use_cases": ["..."], "expected_benefits": ["..."], "implementation_effort": "Low|Medium|High"}], "automation_opportunities": [{"opportunity": "...", "potential_savings": "...", "complexity": "Low|Medium|High"}]}`

	workloads, _ := json.Marshal(applications)
	user := fmt.Sprintf("Recommend GenAI tools for these workloads and migration strategies:\n\nWorkloads: %s\n\nStrategies:\n%s",
		workloads, formatStrategies(strategiesFrom(state)))
	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("genai planning: %w", err)
	}

	record := coerce.ExtractWith(response, genaiFallback())
	plan := &GenAIPlan{}
	for _, entry := range coerce.Records(record, "tool_categories") {
		plan.ToolCategories = append(plan.ToolCategories, GenAIToolCategory{
			Category:             coerce.String(entry, "category", "General"),
			Tools:                coerce.Strings(entry, "tools"),
			UseCases:             coerce.Strings(entry, "use_cases"),
			ExpectedBenefits:     coerce.Strings(entry, "expected_benefits"),
			ImplementationEffort: coerce.String(entry, "implementation_effort", "Medium"),
		})
	}
	for _, entry := range coerce.Records(record, "automation_opportunities") {
		plan.AutomationOpportunities = append(plan.AutomationOpportunities, AutomationOpportunity{
			Opportunity:      coerce.String(entry, "opportunity", ""),
			PotentialSavings: coerce.String(entry, "potential_savings", ""),
			Complexity:       coerce.String(entry, "complexity", "Medium"),
		})
	}
	return engine.State{fieldGenAI: plan}, nil
}

// sprintEstimatorNode estimates sprint effort per wave. The routing after
// this step compares the totals against the configured budget and can send
// the run back to strategy reclassification.
func (p *Pipeline) sprintEstimatorNode(ctx context.Context, state engine.State) (engine.State, error) {
	plan := wavePlanFrom(state)
	if plan == nil || len(plan.Waves) == 0 {
		return nil, fmt.Errorf("no migration waves available for effort estimation")
	}

	system := `You are a project management expert specialising in agile migration projects.
Estimate sprint effort per wave using 2-week sprint cycles: duration, sprint
count, team size and person-weeks, with milestones and risk factors, plus
project totals and resource requirements.
Respond with ONLY valid JSON:
{"total_project_duration_weeks": 0, "total_sprint_count": 0, "wave_estimates": [{"wave_number": 1, "wave_name": "...", "duration_weeks": 0, "sprint_count": 0, "team_size": 0, "effort_person_weeks": 0, "key_milestones": ["..."], "risk_factors": ["..."]}], "resource_requirements": {"developers": 0, "architects": 0, "devops_engineers": 0, "testers": 0}}`

	waves, _ := json.Marshal(plan.Waves)
	user := fmt.Sprintf("Estimate sprint efforts for these migration waves and strategies:\n\nWaves: %s\n\nStrategies:\n%s",
		waves, formatStrategies(strategiesFrom(state)))
	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("sprint estimation: %w", err)
	}

	var estimate *SprintEstimate
	if record, err := coerce.Extract(response); err == nil {
		estimate = estimateFromRecord(record)
	}
	if estimate == nil || len(estimate.Waves) == 0 {
		estimate = fallbackEstimate(plan)
	}
	return engine.State{fieldEstimate: estimate}, nil
}

func estimateFromRecord(record map[string]interface{}) *SprintEstimate {
	estimate := &SprintEstimate{
		TotalDurationWeeks: coerce.Int(record, "total_project_duration_weeks", 0),
		TotalSprints:       coerce.Int(record, "total_sprint_count", 0),
		Resources:          map[string]int{},
	}
	for _, entry := range coerce.Records(record, "wave_estimates") {
		estimate.Waves = append(estimate.Waves, WaveEstimate{
			WaveNumber:        coerce.Int(entry, "wave_number", len(estimate.Waves)+1),
			WaveName:          coerce.String(entry, "wave_name", ""),
			DurationWeeks:     coerce.Int(entry, "duration_weeks", 0),
			SprintCount:       coerce.Int(entry, "sprint_count", 0),
			TeamSize:          coerce.Int(entry, "team_size", 5),
			EffortPersonWeeks: coerce.Int(entry, "effort_person_weeks", 0),
			KeyMilestones:     coerce.Strings(entry, "key_milestones"),
			RiskFactors:       coerce.Strings(entry, "risk_factors"),
		})
	}
	for role := range coerce.Record(record, "resource_requirements") {
		estimate.Resources[role] = coerce.Int(coerce.Record(record, "resource_requirements"), role, 0)
	}
	if estimate.TotalDurationWeeks == 0 {
		for _, wave := range estimate.Waves {
			estimate.TotalDurationWeeks += wave.DurationWeeks
		}
	}
	if estimate.TotalSprints == 0 {
		for _, wave := range estimate.Waves {
			estimate.TotalSprints += wave.SprintCount
		}
	}
	return estimate
}

// fallbackEstimate derives the estimate mechanically from the wave plan:
// one five-person team per wave, effort = duration x team size.
func fallbackEstimate(plan *WavePlan) *SprintEstimate {
	const teamSize = 5
	estimate := &SprintEstimate{
		Resources: map[string]int{"developers": 3, "architects": 1, "devops_engineers": 1, "testers": 1},
	}
	for _, wave := range plan.Waves {
		estimate.TotalDurationWeeks += wave.DurationWeeks
		estimate.TotalSprints += wave.SprintCount
		estimate.Waves = append(estimate.Waves, WaveEstimate{
			WaveNumber:        wave.WaveNumber,
			WaveName:          wave.Name,
			DurationWeeks:     wave.DurationWeeks,
			SprintCount:       wave.SprintCount,
			TeamSize:          teamSize,
			EffortPersonWeeks: wave.DurationWeeks * teamSize,
			KeyMilestones:     []string{"Wave migration complete", "Validation complete"},
			RiskFactors:       []string{"Technical complexity", "Resource availability"},
		})
	}
	return estimate
}
