package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
)

// migrationStrategyNode assigns a 6-R strategy to every application. When
// the run re-enters here from the effort feedback edge, the assignments are
// simplified toward lower-effort strategies so the estimate can settle.
func (p *Pipeline) migrationStrategyNode(ctx context.Context, state engine.State) (engine.State, error) {
	applications := applicationsFrom(state)
	if len(applications) == 0 {
		return nil, fmt.Errorf("no classified workloads available for strategy classification")
	}
	pressure := p.effortTooHigh(estimateFrom(state))

	classifications := make([]StrategyClassification, 0, len(applications))
	for _, app := range applications {
		classification, err := p.classifyStrategy(ctx, app, pressure)
		if err != nil {
			return nil, err
		}
		if pressure {
			classification = simplifyStrategy(classification)
		}
		classifications = append(classifications, classification)
	}

	return engine.State{
		fieldStrategies:      classifications,
		fieldStrategySummary: summariseStrategies(classifications),
		fieldWarnings:        validateStrategyAssignments(applications, classifications),
	}, nil
}

func (p *Pipeline) classifyStrategy(ctx context.Context, app Application, pressure bool) (StrategyClassification, error) {
	system := `You are an expert cloud migration strategist specialising in the 6R migration framework with modernisation bias.
Recommend one strategy per workload: rehost (lift and shift), replatform
(lift and reshape), refactor (re-architect), repurchase (move to SaaS),
retire (decommission) or retain (keep on-premises). Favour cloud-native
approaches when feasible, balanced against complexity and timeline.
Respond with ONLY valid JSON:
{"application_name": "...", "recommended_strategy": "rehost|replatform|refactor|repurchase|retire|retain", "modernization_opportunities": ["..."], "rationale": "...", "effort_estimate_weeks": 0, "risk_level": "Low|Medium|High", "prerequisites": ["..."], "success_metrics": ["..."]}`
	if pressure {
		system += "\nThe current plan exceeds the effort budget. Prefer simpler, lower-effort strategies."
	}

	detail, _ := json.Marshal(app)
	response, err := p.chat(ctx, system, "Classify the migration strategy for this workload:\n\n"+string(detail))
	if err != nil {
		return StrategyClassification{}, fmt.Errorf("strategy classification: %w", err)
	}

	record := coerce.ExtractWith(response, strategyFallback(app))
	return StrategyClassification{
		ApplicationName:            coerce.String(record, "application_name", app.Name),
		Strategy:                   normaliseStrategy(coerce.String(record, "recommended_strategy", string(StrategyReplatform))),
		ModernizationOpportunities: coerce.Strings(record, "modernization_opportunities"),
		Rationale:                  coerce.String(record, "rationale", ""),
		EffortWeeks:                coerce.Int(record, "effort_estimate_weeks", 6),
		RiskLevel:                  coerce.String(record, "risk_level", "Medium"),
		Prerequisites:              coerce.Strings(record, "prerequisites"),
		SuccessMetrics:             coerce.Strings(record, "success_metrics"),
	}, nil
}

func normaliseStrategy(raw string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case StrategyRehost:
		return StrategyRehost
	case StrategyRefactor:
		return StrategyRefactor
	case StrategyRepurchase:
		return StrategyRepurchase
	case StrategyRetire:
		return StrategyRetire
	case StrategyRetain:
		return StrategyRetain
	default:
		return StrategyReplatform
	}
}

// simplifyStrategy downgrades high-effort assignments one step.
func simplifyStrategy(c StrategyClassification) StrategyClassification {
	switch c.Strategy {
	case StrategyRefactor, StrategyRepurchase:
		c.Strategy = StrategyReplatform
		c.Rationale = strings.TrimSpace(c.Rationale + " Simplified to replatform to fit the effort budget.")
		if c.EffortWeeks > 4 {
			c.EffortWeeks = c.EffortWeeks / 2
		}
	case StrategyReplatform:
		c.Strategy = StrategyRehost
		c.Rationale = strings.TrimSpace(c.Rationale + " Simplified to rehost to fit the effort budget.")
		if c.EffortWeeks > 2 {
			c.EffortWeeks = c.EffortWeeks / 2
		}
	}
	return c
}

// modernisationBiasNode upgrades conservative assignments where the
// application shows modernisation potential. Under effort pressure the bias
// stands down so the reclassification loop can settle instead of tugging the
// assignments back up.
func (p *Pipeline) modernisationBiasNode(ctx context.Context, state engine.State) (engine.State, error) {
	classifications := strategiesFrom(state)
	if len(classifications) == 0 {
		return nil, fmt.Errorf("no strategy assignments available for modernisation bias")
	}
	if p.effortTooHigh(estimateFrom(state)) {
		return engine.State{fieldUpgrades: map[string]StrategyUpgrade{}}, nil
	}

	byName := map[string]Application{}
	for _, app := range applicationsFrom(state) {
		byName[app.Name] = app
	}

	upgrades := map[string]StrategyUpgrade{}
	updated := make([]StrategyClassification, len(classifications))
	for i, classification := range classifications {
		updated[i] = classification
		app, ok := byName[classification.ApplicationName]
		if !ok {
			continue
		}
		next, reason := upgradeFor(classification.Strategy, app)
		if next == classification.Strategy {
			continue
		}
		upgrades[classification.ApplicationName] = StrategyUpgrade{
			From:   classification.Strategy,
			To:     next,
			Reason: reason,
		}
		updated[i].Strategy = next
	}

	out := engine.State{fieldUpgrades: upgrades}
	if len(upgrades) > 0 {
		out[fieldStrategies] = updated
		out[fieldStrategySummary] = summariseStrategies(updated)
	}
	return out, nil
}

func upgradeFor(current Strategy, app Application) (Strategy, string) {
	criticality := strings.ToLower(app.BusinessCriticality)
	switch current {
	case StrategyRehost:
		if criticality == "critical" && isCloudNativeCandidate(app) {
			return StrategyRefactor, "upgraded from rehost to refactor: critical application with cloud-native potential"
		}
		if (criticality == "medium" || criticality == "high") && hasModernisationPotential(app) {
			return StrategyReplatform, fmt.Sprintf("upgraded from rehost to replatform: %s criticality with modernisation potential", criticality)
		}
	case StrategyReplatform:
		if criticality == "critical" && app.EstimatedUsers > 5000 && hasModernisationPotential(app) {
			return StrategyRefactor, "upgraded from replatform to refactor: critical, high-scale application with modernisation potential"
		}
	}
	return current, ""
}

var modernTechnologies = []string{
	"java", "python", "node.js", "javascript", "typescript", "go", "rust",
	"spring", "django", "express", "react", "angular", "vue",
	"docker", "kubernetes", "microservices",
}

var cloudNativeIndicators = []string{
	"api", "rest", "microservice", "docker", "container",
	"spring boot", "node.js", "serverless", "lambda",
}

func hasModernisationPotential(app Application) bool {
	stack := strings.ToLower(strings.Join(app.TechnologyStack, " "))
	for _, tech := range modernTechnologies {
		if strings.Contains(stack, tech) {
			return true
		}
	}
	return false
}

func isCloudNativeCandidate(app Application) bool {
	haystack := strings.ToLower(strings.Join(app.TechnologyStack, " ") + " " + app.Description)
	for _, indicator := range cloudNativeIndicators {
		if strings.Contains(haystack, indicator) {
			return true
		}
	}
	return app.EstimatedUsers > 10000
}

func summariseStrategies(classifications []StrategyClassification) *StrategySummary {
	summary := &StrategySummary{
		TotalApplications: len(classifications),
		Distribution:      map[Strategy]int{},
	}
	for _, classification := range classifications {
		summary.Distribution[classification.Strategy]++
		summary.TotalEffortWeeks += classification.EffortWeeks
	}
	if summary.TotalApplications > 0 {
		weighted := summary.Distribution[StrategyRefactor]*3 +
			summary.Distribution[StrategyReplatform]*2 +
			summary.Distribution[StrategyRepurchase]*2
		summary.ModernisationScore = round1(float64(weighted) / float64(summary.TotalApplications*3))
		summary.RecommendedApproach = recommendedApproach(summary)
	}
	return summary
}

func recommendedApproach(summary *StrategySummary) string {
	total := float64(summary.TotalApplications)
	rehost := float64(summary.Distribution[StrategyRehost]) / total
	replatform := float64(summary.Distribution[StrategyReplatform]) / total
	refactor := float64(summary.Distribution[StrategyRefactor]) / total
	switch {
	case refactor > 0.4:
		return "Transformation-focused: high modernisation with significant cloud-native adoption"
	case replatform+refactor > 0.6:
		return "Modernisation-focused: balanced approach with substantial cloud optimisation"
	case rehost > 0.6:
		return "Migration-focused: rapid cloud adoption with future modernisation phases"
	default:
		return "Hybrid approach: mixed strategy based on application-specific needs"
	}
}

// validateStrategyAssignments flags distribution smells as warnings.
func validateStrategyAssignments(applications []Application, classifications []StrategyClassification) []string {
	var warnings []string
	assigned := map[string]bool{}
	for _, classification := range classifications {
		assigned[classification.ApplicationName] = true
	}
	for _, app := range applications {
		if !assigned[app.Name] {
			warnings = append(warnings, fmt.Sprintf("no migration strategy assigned to %q", app.Name))
		}
	}
	total := len(classifications)
	if total == 0 {
		return warnings
	}
	counts := map[Strategy]int{}
	for _, classification := range classifications {
		counts[classification.Strategy]++
	}
	if share := float64(counts[StrategyRehost]) / float64(total); share > 0.7 {
		warnings = append(warnings, fmt.Sprintf("high share of rehost strategies (%.0f%%), consider more modernisation", share*100))
	}
	if share := float64(counts[StrategyRetire]) / float64(total); share > 0.3 {
		warnings = append(warnings, fmt.Sprintf("high share of retire strategies (%.0f%%), verify these are truly obsolete", share*100))
	}
	return warnings
}

func formatStrategies(classifications []StrategyClassification) string {
	var b strings.Builder
	for _, classification := range classifications {
		fmt.Fprintf(&b, "- %s: %s (%d weeks, %s risk)\n",
			classification.ApplicationName, classification.Strategy,
			classification.EffortWeeks, classification.RiskLevel)
	}
	return b.String()
}
