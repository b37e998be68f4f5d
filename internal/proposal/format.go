package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
)

// requiredSectionTopics must each appear in at least one section title for
// the proposal to count as complete.
var requiredSectionTopics = []string{
	"overview", "scope", "wave", "strategy", "architecture", "genai", "effort",
}

// templateFormatterNode assembles the numbered sections and the combined
// markdown document from everything the pipeline produced.
func (p *Pipeline) templateFormatterNode(ctx context.Context, state engine.State) (engine.State, error) {
	input, err := inputFrom(state)
	if err != nil {
		return nil, err
	}

	var sections []ProposalSection
	add := func(title, content string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		sections = append(sections, ProposalSection{
			Number:  fmt.Sprintf("%d", len(sections)+1),
			Title:   title,
			Content: content,
		})
	}

	add("Executive Summary", state.String(fieldExecutiveSummary))
	add("Project Overview", state.String(fieldOverview))
	add("Scope Definition", state.String(fieldScope))
	if plan := wavePlanFrom(state); plan != nil {
		add("Wave Group Planning", wavePlanningContent(plan))
	}
	if strategies := strategiesFrom(state); len(strategies) > 0 {
		add("6 R's Classification & Migration Strategy", strategyContent(strategies, strategySummaryFrom(state), upgradesFrom(state)))
	}
	if advice := architectureFrom(state); advice != nil {
		add("Cloud Architecture & Best Practices", architectureContent(advice))
	}
	if plan := genaiFrom(state); plan != nil {
		add("GenAI Tooling and Automation Plan", genaiContent(plan))
	}
	if estimate := estimateFrom(state); estimate != nil {
		add("Sprint Timeline and Effort Estimation", timelineContent(estimate))
	}

	missing := missingSectionTopics(sections)
	var warnings []string
	for _, topic := range missing {
		warnings = append(warnings, fmt.Sprintf("proposal is missing a %s section", topic))
	}

	return engine.State{
		fieldSections: sections,
		fieldMarkdown: combineSections(input, sections),
		fieldQuality:  estimateQuality(state, sections),
		fieldWarnings: warnings,
	}, nil
}

// missingSectionTopics reports which required topics no section title covers.
func missingSectionTopics(sections []ProposalSection) []string {
	var missing []string
	for _, topic := range requiredSectionTopics {
		found := false
		for _, section := range sections {
			if strings.Contains(strings.ToLower(section.Title), topic) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, topic)
		}
	}
	return missing
}

// estimateQuality scores completeness, detail, modernisation share and
// automation coverage, combined with fixed weights.
func estimateQuality(state engine.State, sections []ProposalSection) *QualityMetrics {
	metrics := &QualityMetrics{}
	metrics.Completeness = clamp01(float64(len(sections)) / float64(len(requiredSectionTopics)))

	totalLength := 0
	for _, section := range sections {
		totalLength += len(section.Content)
	}
	metrics.Detail = clamp01(float64(totalLength) / 10000)

	if summary := strategySummaryFrom(state); summary != nil && summary.TotalApplications > 0 {
		modern := summary.Distribution[StrategyRefactor] + summary.Distribution[StrategyReplatform]
		metrics.Modernisation = float64(modern) / float64(summary.TotalApplications)
	}
	if plan := genaiFrom(state); plan != nil {
		metrics.Automation = clamp01(float64(len(plan.ToolCategories)) / 4)
	}

	metrics.Overall = metrics.Completeness*0.3 + metrics.Detail*0.2 +
		metrics.Modernisation*0.3 + metrics.Automation*0.2
	return metrics
}

func wavePlanningContent(plan *WavePlan) string {
	var b strings.Builder
	b.WriteString("## Migration Wave Strategy\n\n")
	fmt.Fprintf(&b, "**Methodology:** %s\n", plan.Methodology)
	if plan.MethodologyDescription != "" {
		fmt.Fprintf(&b, "%s\n", plan.MethodologyDescription)
	}
	fmt.Fprintf(&b, "\n**Totals:** %d waves, %d sprints, ~%.1f months\n\n",
		plan.TotalWaves, plan.TotalSprints, plan.EstimatedDurationMonths)
	for _, wave := range plan.Waves {
		fmt.Fprintf(&b, "### Wave %d: %s\n\n", wave.WaveNumber, wave.Name)
		fmt.Fprintf(&b, "**Track:** %s\n", wave.Track)
		fmt.Fprintf(&b, "**Duration:** %d weeks (%d sprints)\n", wave.DurationWeeks, wave.SprintCount)
		fmt.Fprintf(&b, "**Risk Level:** %s\n\n", wave.RiskLevel)
		b.WriteString("**Applications:**\n")
		for _, app := range wave.Applications {
			fmt.Fprintf(&b, "- %s\n", app)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func strategyContent(classifications []StrategyClassification, summary *StrategySummary, upgrades map[string]StrategyUpgrade) string {
	var b strings.Builder
	b.WriteString("## Migration Strategy Classification\n\n")
	b.WriteString("Each application has been classified using the 6 R's migration strategy framework:\n\n")

	grouped := map[Strategy][]StrategyClassification{}
	for _, classification := range classifications {
		grouped[classification.Strategy] = append(grouped[classification.Strategy], classification)
	}
	for _, strategy := range []Strategy{StrategyRehost, StrategyReplatform, StrategyRefactor, StrategyRepurchase, StrategyRetire, StrategyRetain} {
		group := grouped[strategy]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", strings.Title(string(strategy)))
		for _, classification := range group {
			fmt.Fprintf(&b, "- %s (%d weeks, %s risk)", classification.ApplicationName, classification.EffortWeeks, classification.RiskLevel)
			if upgrade, ok := upgrades[classification.ApplicationName]; ok {
				fmt.Fprintf(&b, " — %s", upgrade.Reason)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if summary != nil {
		fmt.Fprintf(&b, "**Recommended Approach:** %s\n", summary.RecommendedApproach)
		fmt.Fprintf(&b, "**Modernisation Score:** %.1f\n", summary.ModernisationScore)
	}
	return b.String()
}

func architectureContent(advice *ArchitectureAdvice) string {
	var b strings.Builder
	b.WriteString("## Cloud Architecture Recommendations\n\n")
	if len(advice.Patterns) > 0 {
		b.WriteString("**Architecture Patterns:**\n")
		for _, pattern := range advice.Patterns {
			fmt.Fprintf(&b, "- %s\n", pattern)
		}
		b.WriteString("\n")
	}
	if len(advice.TechnologyStack) > 0 {
		b.WriteString("**Recommended Services:**\n")
		for _, concern := range []string{"compute", "storage", "networking"} {
			if services := advice.TechnologyStack[concern]; len(services) > 0 {
				fmt.Fprintf(&b, "- %s: %s\n", strings.Title(concern), strings.Join(services, ", "))
			}
		}
		b.WriteString("\n")
	}
	for _, rec := range advice.Recommendations {
		fmt.Fprintf(&b, "### %s (%s priority)\n\n%s\n\n", rec.Category, rec.Priority, rec.Recommendation)
		if rec.Rationale != "" {
			fmt.Fprintf(&b, "_%s_\n\n", rec.Rationale)
		}
	}
	return b.String()
}

func genaiContent(plan *GenAIPlan) string {
	var b strings.Builder
	b.WriteString("## GenAI Tooling and Automation Plan\n\n")
	b.WriteString("The following GenAI tools will accelerate the migration process:\n\n")
	for _, category := range plan.ToolCategories {
		fmt.Fprintf(&b, "### %s\n\n", category.Category)
		fmt.Fprintf(&b, "**Tools:** %s\n\n", strings.Join(category.Tools, ", "))
		if len(category.UseCases) > 0 {
			b.WriteString("**Use Cases:**\n")
			for _, useCase := range category.UseCases {
				fmt.Fprintf(&b, "- %s\n", useCase)
			}
			b.WriteString("\n")
		}
		if len(category.ExpectedBenefits) > 0 {
			b.WriteString("**Expected Benefits:**\n")
			for _, benefit := range category.ExpectedBenefits {
				fmt.Fprintf(&b, "- %s\n", benefit)
			}
			b.WriteString("\n")
		}
	}
	if len(plan.AutomationOpportunities) > 0 {
		b.WriteString("**Automation Opportunities:**\n")
		for _, opportunity := range plan.AutomationOpportunities {
			fmt.Fprintf(&b, "- %s (%s complexity", opportunity.Opportunity, opportunity.Complexity)
			if opportunity.PotentialSavings != "" {
				fmt.Fprintf(&b, ", %s", opportunity.PotentialSavings)
			}
			b.WriteString(")\n")
		}
	}
	return b.String()
}

func timelineContent(estimate *SprintEstimate) string {
	var b strings.Builder
	b.WriteString("## Sprint Timeline and Effort Estimate\n\n")
	fmt.Fprintf(&b, "**Overall Timeline:** %d weeks (%d sprints)\n\n",
		estimate.TotalDurationWeeks, estimate.TotalSprints)
	for _, wave := range estimate.Waves {
		fmt.Fprintf(&b, "### Wave %d: %s\n\n", wave.WaveNumber, wave.WaveName)
		fmt.Fprintf(&b, "**Duration:** %d weeks (%d sprints)\n", wave.DurationWeeks, wave.SprintCount)
		fmt.Fprintf(&b, "**Team Size:** %d people\n", wave.TeamSize)
		fmt.Fprintf(&b, "**Effort:** %d person-weeks\n\n", wave.EffortPersonWeeks)
	}
	if len(estimate.Resources) > 0 {
		b.WriteString("**Resource Requirements:**\n")
		for _, role := range []string{"developers", "architects", "devops_engineers", "testers"} {
			if count := estimate.Resources[role]; count > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", strings.Title(strings.ReplaceAll(role, "_", " ")), count)
			}
		}
	}
	return b.String()
}

func combineSections(input *DiscoveryInput, sections []ProposalSection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Migration Proposal: %s\n\n", input.ProjectName)
	fmt.Fprintf(&b, "**Client:** %s\n", input.ClientName)
	fmt.Fprintf(&b, "**Generated:** %s\n\n---\n\n", time.Now().Format("2006-01-02 15:04:05"))
	for _, section := range sections {
		fmt.Fprintf(&b, "# %s. %s\n\n%s\n\n---\n\n", section.Number, section.Title, section.Content)
	}
	return b.String()
}

// emitFilesNode writes the markdown document plus JSON and YAML artifacts
// under the configured output root.
func (p *Pipeline) emitFilesNode(ctx context.Context, state engine.State) (engine.State, error) {
	input, err := inputFrom(state)
	if err != nil {
		return nil, err
	}
	markdown := state.String(fieldMarkdown)
	if markdown == "" {
		return nil, fmt.Errorf("no formatted proposal to emit")
	}

	dir := filepath.Join(p.config.OutputRoot, "proposals")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	stem := fmt.Sprintf("%s_proposal_%s",
		strings.ToLower(strings.ReplaceAll(input.ClientName, " ", "_")),
		time.Now().Format("20060102_150405"))

	artifact := map[string]interface{}{
		"client":   input.ClientName,
		"project":  input.ProjectName,
		"sections": sectionsFrom(state),
		"quality":  qualityFrom(state),
		"warnings": state.Strings(fieldWarnings),
	}

	var files []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		files = append(files, path)
		return nil
	}

	if err := write(stem+".md", []byte(markdown)); err != nil {
		return nil, err
	}
	jsonData, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode proposal json: %w", err)
	}
	if err := write(stem+".json", jsonData); err != nil {
		return nil, err
	}
	yamlData, err := yaml.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("encode proposal yaml: %w", err)
	}
	if err := write(stem+".yaml", yamlData); err != nil {
		return nil, err
	}

	return engine.State{fieldOutputs: files}, nil
}
