package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
)

// parseInputNode normalises the discovery payload into a list of raw
// application records. JSON payloads are decoded directly; free text goes
// through model-assisted extraction with a degraded single-record fallback.
func (p *Pipeline) parseInputNode(ctx context.Context, state engine.State) (engine.State, error) {
	input, err := inputFrom(state)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(input.RawData)
	if raw == "" {
		return nil, fmt.Errorf("discovery input carries no data")
	}

	var parsed map[string]interface{}
	if input.SourceType == "json" || strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("decode discovery json: %w", err)
		}
	} else {
		system := `You are an expert at extracting structured information from discovery documents.
Identify individual applications/workloads, their technology components,
business criticality, current hosting environment and dependencies.
Respond with ONLY valid JSON:
{"applications": [{"name": "...", "description": "...", "technology_stack": ["..."], "dependencies": ["..."], "current_environment": "..."}], "infrastructure": {}, "business_requirements": {}}`
		response, err := p.chat(ctx, system, "Extract structured information from this discovery text:\n\n"+truncate(raw, 6000))
		if err != nil {
			return nil, fmt.Errorf("discovery extraction: %w", err)
		}
		parsed = coerce.ExtractWith(response, discoveryExtractionFallback(raw))
	}

	records := extractApplicationRecords(parsed)
	if len(records) == 0 {
		return nil, fmt.Errorf("no applications found in discovery data")
	}
	return engine.State{fieldRawApplications: records}, nil
}

// extractApplicationRecords pulls the application list out of a decoded
// discovery payload, tolerating the common key variants. A payload without
// any list is treated as a single application record.
func extractApplicationRecords(parsed map[string]interface{}) []map[string]interface{} {
	for _, key := range []string{"applications", "apps", "workloads", "systems"} {
		list, ok := parsed[key].([]interface{})
		if !ok {
			continue
		}
		var records []map[string]interface{}
		for _, entry := range list {
			if record, ok := entry.(map[string]interface{}); ok {
				records = append(records, record)
			}
		}
		if len(records) > 0 {
			return records
		}
	}
	if len(parsed) == 0 {
		return nil
	}
	return []map[string]interface{}{parsed}
}

// classifyWorkloadsNode classifies every application record for migration
// planning and aggregates the portfolio summary.
func (p *Pipeline) classifyWorkloadsNode(ctx context.Context, state engine.State) (engine.State, error) {
	records, _ := state[fieldRawApplications].([]map[string]interface{})
	if len(records) == 0 {
		return nil, fmt.Errorf("no workload records available for classification")
	}

	applications := make([]Application, 0, len(records))
	for _, record := range records {
		app, err := p.classifyOne(ctx, record)
		if err != nil {
			return nil, err
		}
		applications = append(applications, app)
	}

	warnings := validateApplications(applications)
	return engine.State{
		fieldApplications: applications,
		fieldSummary:      summariseWorkloads(applications),
		fieldWarnings:     warnings,
	}, nil
}

func (p *Pipeline) classifyOne(ctx context.Context, record map[string]interface{}) (Application, error) {
	system := `You are an expert cloud migration consultant. Analyse the provided application
data and classify it for migration planning: application type, technology
stack, complexity, migration readiness, business criticality, dependencies
and estimated effort.
Respond with ONLY valid JSON:
{"name": "...", "type": "...", "technology_stack": ["..."], "complexity": "Low|Medium|High", "migration_readiness": "Ready|Needs Assessment|Complex", "business_criticality": "Low|Medium|High|Critical", "dependencies": ["..."], "estimated_effort_weeks": 0, "notes": "..."}`

	detail, _ := json.Marshal(record)
	response, err := p.chat(ctx, system, "Classify this application for migration:\n\n"+string(detail))
	if err != nil {
		return Application{}, fmt.Errorf("workload classification: %w", err)
	}

	classified := coerce.ExtractWith(response, classificationFallback(record))
	app := Application{
		Name:                 coerce.String(classified, "name", coerce.String(record, "name", "Unknown Application")),
		Type:                 coerce.String(classified, "type", "Unknown"),
		Description:          coerce.String(record, "description", ""),
		TechnologyStack:      coerce.Strings(classified, "technology_stack"),
		Complexity:           coerce.String(classified, "complexity", "Medium"),
		MigrationReadiness:   coerce.String(classified, "migration_readiness", "Needs Assessment"),
		BusinessCriticality:  coerce.String(classified, "business_criticality", "Medium"),
		Dependencies:         coerce.Strings(classified, "dependencies"),
		CurrentEnvironment:   coerce.String(record, "current_environment", ""),
		EstimatedUsers:       coerce.Int(record, "estimated_users", 0),
		EstimatedEffortWeeks: coerce.Int(classified, "estimated_effort_weeks", 4),
		Notes:                coerce.String(classified, "notes", ""),
	}
	if len(app.TechnologyStack) == 0 {
		app.TechnologyStack = coerce.Strings(record, "technology_stack")
	}
	return app, nil
}

func summariseWorkloads(applications []Application) *WorkloadSummary {
	summary := &WorkloadSummary{
		TotalApplications:       len(applications),
		ComplexityDistribution:  map[string]int{},
		ReadinessDistribution:   map[string]int{},
		CriticalityDistribution: map[string]int{},
	}
	for _, app := range applications {
		summary.ComplexityDistribution[app.Complexity]++
		summary.ReadinessDistribution[app.MigrationReadiness]++
		summary.CriticalityDistribution[app.BusinessCriticality]++
		summary.TotalEffortWeeks += app.EstimatedEffortWeeks
	}
	if len(applications) > 0 {
		summary.AverageEffortWeeks = round1(float64(summary.TotalEffortWeeks) / float64(len(applications)))
	}
	return summary
}

// validateApplications reports completeness problems as warnings; they never
// stop the run.
func validateApplications(applications []Application) []string {
	var warnings []string
	for _, app := range applications {
		if len(app.TechnologyStack) == 0 {
			warnings = append(warnings, fmt.Sprintf("application %q has no technology stack defined", app.Name))
		}
		for _, dep := range app.Dependencies {
			found := false
			for _, other := range applications {
				if strings.Contains(strings.ToLower(other.Name), strings.ToLower(dep)) {
					found = true
					break
				}
			}
			if !found {
				warnings = append(warnings, fmt.Sprintf("application %q depends on %q which is not in the portfolio", app.Name, dep))
			}
		}
	}
	return warnings
}
