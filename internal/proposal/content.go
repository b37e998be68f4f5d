package proposal

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
)

const contentWriterPrompt = `You are an expert technical writer specialising in cloud migration proposals.
Generate professional content grounded in the client context and the
portfolio analysis. Use the client and project names throughout, align with
the stated business drivers and respect timeline and compliance constraints.
Respond with ONLY valid JSON:
{"executive_summary": "...", "overview": "...", "scope": "..."}`

// generateOverviewNode produces the executive summary and project overview.
func (p *Pipeline) generateOverviewNode(ctx context.Context, state engine.State) (engine.State, error) {
	input, err := inputFrom(state)
	if err != nil {
		return nil, err
	}

	response, err := p.chat(ctx, contentWriterPrompt, contentContext(state, input, ""))
	if err != nil {
		return nil, fmt.Errorf("overview generation: %w", err)
	}
	content := coerce.ExtractWith(response, contentFallback(input))
	return engine.State{
		fieldExecutiveSummary: coerce.String(content, "executive_summary", ""),
		fieldOverview:         coerce.String(content, "overview", ""),
	}, nil
}

// generateScopeNode produces the scope definition. When re-entered from the
// architecture feedback edge the advice is folded into the prompt so the
// regenerated scope reflects the recommended patterns and services.
func (p *Pipeline) generateScopeNode(ctx context.Context, state engine.State) (engine.State, error) {
	input, err := inputFrom(state)
	if err != nil {
		return nil, err
	}

	var architectureNote string
	if advice := architectureFrom(state); advice != nil {
		architectureNote = fmt.Sprintf(
			"\n**Architecture Direction (fold into scope):**\nPatterns: %s\nRecommended services: %d across %d concerns\n",
			strings.Join(advice.Patterns, ", "), advice.TotalServices(), len(advice.TechnologyStack))
	}

	response, err := p.chat(ctx, contentWriterPrompt, contentContext(state, input, architectureNote))
	if err != nil {
		return nil, fmt.Errorf("scope generation: %w", err)
	}
	content := coerce.ExtractWith(response, contentFallback(input))
	return engine.State{fieldScope: coerce.String(content, "scope", "")}, nil
}

// contentContext assembles the shared prompt context: client information
// plus whatever analysis has accumulated so far.
func contentContext(state engine.State, input *DiscoveryInput, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Client Information:**\n- Client: %s\n- Project: %s\n", input.ClientName, input.ProjectName)
	if input.BusinessContext != "" {
		fmt.Fprintf(&b, "- Business Context: %s\n", input.BusinessContext)
	}
	if len(input.BusinessDrivers) > 0 {
		fmt.Fprintf(&b, "- Primary Drivers: %s\n", strings.Join(input.BusinessDrivers, ", "))
	}
	if input.TargetCloud != "" {
		fmt.Fprintf(&b, "- Target Cloud: %s\n", input.TargetCloud)
	}
	if input.MigrationApproach != "" {
		fmt.Fprintf(&b, "- Migration Approach: %s\n", input.MigrationApproach)
	}
	if input.TimelineConstraint != "" {
		fmt.Fprintf(&b, "- Timeline: %s\n", input.TimelineConstraint)
	}
	if compliance := activeCompliance(input.ComplianceRequirements); len(compliance) > 0 {
		fmt.Fprintf(&b, "- Compliance: %s\n", strings.Join(compliance, ", "))
	}

	if summary := summaryFrom(state); summary != nil {
		fmt.Fprintf(&b, "\n**Portfolio:** %d applications, %d estimated effort weeks\n",
			summary.TotalApplications, summary.TotalEffortWeeks)
	}
	for _, app := range applicationsFrom(state) {
		fmt.Fprintf(&b, "- %s (%s, %s complexity, %s readiness)\n",
			app.Name, app.Type, app.Complexity, app.MigrationReadiness)
	}
	if extra != "" {
		b.WriteString(extra)
	}
	return "Generate migration proposal content based on this analysis:\n\n" + b.String()
}

func activeCompliance(requirements []string) []string {
	var active []string
	for _, req := range requirements {
		if req != "" && !strings.EqualFold(req, "none") {
			active = append(active, req)
		}
	}
	return active
}
