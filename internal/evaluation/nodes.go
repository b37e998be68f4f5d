package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
	"github.com/nicodishanthj/Modeval_phase1/internal/ingest"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

// State field names shared by the evaluation nodes.
const (
	fieldDocument         = "document"
	fieldPhaseContents    = "phase_contents"
	fieldPhaseEvaluations = "phase_evaluations"
	fieldCompliance       = "compliance"
	fieldGaps             = "gaps"
	fieldRecommendations  = "recommendations"
	fieldResult           = "result"
)

func documentFrom(state engine.State) (*ingest.Document, error) {
	doc, ok := state[fieldDocument].(*ingest.Document)
	if !ok || doc == nil {
		return nil, fmt.Errorf("no parsed document in state")
	}
	return doc, nil
}

func phaseContentsFrom(state engine.State) []PhaseContent {
	contents, _ := state[fieldPhaseContents].([]PhaseContent)
	return contents
}

func phaseEvaluationsFrom(state engine.State) []PhaseEvaluation {
	evals, _ := state[fieldPhaseEvaluations].([]PhaseEvaluation)
	return evals
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (p *Pipeline) chat(ctx context.Context, system, user string) (string, error) {
	return llm.ChatWithTimeout(ctx, p.provider, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, p.config.CallTimeout)
}

// parseDocumentNode asks the model to enhance the mechanically extracted
// sections and attach document-level metadata: themes, purpose and migration
// indicators.
func (p *Pipeline) parseDocumentNode(ctx context.Context, state engine.State) (engine.State, error) {
	doc, err := documentFrom(state)
	if err != nil {
		return nil, err
	}

	var sections strings.Builder
	for name, content := range doc.Sections {
		fmt.Fprintf(&sections, "- %s: %s\n", name, truncate(content, 200))
	}

	system := `You are a document analysis expert reviewing a parsed migration document.
Review the extracted sections, identify missing important ones, and summarise
the document's purpose. Focus on migration projects, technology assessments
and project proposals.
Respond with ONLY valid JSON:
{"enhanced_sections": {"section_name": "section_content"}, "key_themes": ["..."], "document_purpose": "...", "migration_indicators": ["..."], "quality_assessment": "..."}`
	user := fmt.Sprintf("Document Type: %s\nFilename: %s\nContent Length: %d characters\n\nExisting Sections:\n%s\nContent (first 2000 chars):\n%s",
		doc.DocType, doc.Metadata["filename"], len(doc.Content), sections.String(), truncate(doc.Content, 2000))

	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("document analysis: %w", err)
	}
	analysis := coerce.ExtractWith(response, documentAnalysisFallback())

	enhanced := &ingest.Document{
		Content:  doc.Content,
		DocType:  doc.DocType,
		Sections: make(map[string]string, len(doc.Sections)),
		Metadata: make(map[string]string, len(doc.Metadata)+3),
	}
	for name, content := range doc.Sections {
		enhanced.Sections[name] = content
	}
	for name, value := range coerce.Record(analysis, "enhanced_sections") {
		if text, ok := value.(string); ok && strings.TrimSpace(text) != "" {
			enhanced.Sections[name] = text
		}
	}
	for key, value := range doc.Metadata {
		enhanced.Metadata[key] = value
	}
	enhanced.Metadata["key_themes"] = strings.Join(coerce.Strings(analysis, "key_themes"), ", ")
	enhanced.Metadata["document_purpose"] = coerce.String(analysis, "document_purpose", "")
	enhanced.Metadata["migration_indicators"] = strings.Join(coerce.Strings(analysis, "migration_indicators"), ", ")

	return engine.State{fieldDocument: enhanced}, nil
}

// extractPhasesNode maps document content onto the three migration stages
// with a confidence score each. Every stage is always represented so the
// router downstream has a complete picture.
func (p *Pipeline) extractPhasesNode(ctx context.Context, state engine.State) (engine.State, error) {
	doc, err := documentFrom(state)
	if err != nil {
		return nil, err
	}

	system := `You are a migration expert. Map the document onto the three migration stages.
STAGE DEFINITIONS:
- STRATEGISE_AND_PLAN: discovery, assessment, strategic planning, business case, architecture design, team enablement
- MIGRATE_AND_MODERNISE: migration execution, automated tools, AI-assisted modernisation, data migration, validation, cutover
- MANAGE_AND_OPTIMISE: post-migration operations, monitoring, cost optimisation, performance tuning, security, continuous improvement
For each stage extract the relevant content, key points, and a confidence
score (0.0-1.0) for how well the content addresses that stage. Use
"No relevant content identified" when a stage is not covered.
Respond with ONLY valid JSON:
{"strategise_and_plan": {"relevant_content": "...", "key_points": ["..."], "confidence_score": 0.0}, "migrate_and_modernise": {...}, "manage_and_optimise": {...}, "overall_intent": "..."}`
	user := fmt.Sprintf("Document Content: %s\n\nDocument Type: %s", truncate(doc.Content, 2000), doc.DocType)

	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("phase extraction: %w", err)
	}
	analysis := coerce.ExtractWith(response, phaseExtractionFallback(strings.ToLower(doc.Content), containsAny))

	contents := make([]PhaseContent, 0, len(AllPhases))
	for _, phase := range AllPhases {
		stage := coerce.Record(analysis, string(phase))
		if stage == nil {
			contents = append(contents, PhaseContent{Phase: phase, RelevantContent: NoRelevantContent})
			continue
		}
		confidence := coerce.Float(stage, "confidence_score", 0)
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		contents = append(contents, PhaseContent{
			Phase:           phase,
			RelevantContent: coerce.String(stage, "relevant_content", NoRelevantContent),
			KeyPoints:       coerce.Strings(stage, "key_points"),
			Confidence:      confidence,
		})
	}

	return engine.State{fieldPhaseContents: contents}, nil
}

func containsAny(haystack string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(haystack, word) {
			return true
		}
	}
	return false
}

// routeToEvaluators selects the phase evaluators worth running: every phase
// whose confidence clears the threshold and that has actual content. When
// nothing clears the bar the single best phase still runs so the caller gets
// feedback on why the document does not align.
func (p *Pipeline) routeToEvaluators(state engine.State) []string {
	contents := phaseContentsFrom(state)
	var targets []string
	for _, content := range contents {
		if content.Confidence > p.config.ConfidenceThreshold && content.RelevantContent != NoRelevantContent {
			targets = append(targets, evaluatorNode(content.Phase))
		}
	}
	if len(targets) > 0 {
		return targets
	}

	best := PhaseManageAndOptimise
	bestScore := 0.0
	for _, content := range contents {
		if content.Confidence > bestScore {
			bestScore = content.Confidence
			best = content.Phase
		}
	}
	return []string{evaluatorNode(best)}
}

func evaluatorNode(phase Phase) string {
	return string(phase) + "_evaluator"
}

// evaluatePhaseNode builds the scorer for one migration phase. The phase
// content is judged against the framework's workstreams on the 0-3 scale.
func (p *Pipeline) evaluatePhaseNode(phase Phase) engine.NodeFunc {
	return func(ctx context.Context, state engine.State) (engine.State, error) {
		var content *PhaseContent
		for _, pc := range phaseContentsFrom(state) {
			if pc.Phase == phase {
				pc := pc
				content = &pc
				break
			}
		}
		if content == nil {
			return nil, fmt.Errorf("no content for %s phase", phase)
		}

		phaseSpec := p.spec.Phases[phase]
		var workstreams strings.Builder
		for _, ws := range phaseSpec.Workstreams {
			fmt.Fprintf(&workstreams, "- %s: %s\n", ws.Name, ws.Description)
		}

		system := fmt.Sprintf(`You are a migrate.ai evaluation expert assessing the %s phase.
Phase: %s
Description: %s
Workstreams to evaluate:
%s
Score 0-3 (0=Poor, 1=Basic, 2=Good, 3=Excellent) on workstream coverage,
implementation quality, alignment with migrate.ai principles, feasibility and
risk management.
Respond with ONLY valid JSON:
{"score": 0, "strengths": ["..."], "weaknesses": ["..."], "evidence": ["..."], "recommendations": ["..."]}`,
			strings.ToUpper(string(phase)), phaseSpec.Name, phaseSpec.Description, workstreams.String())
		user := fmt.Sprintf("Evaluate this %s phase content:\n\n%s\n\nKey points: %s",
			phase, content.RelevantContent, strings.Join(content.KeyPoints, "; "))

		response, err := p.chat(ctx, system, user)
		if err != nil {
			return nil, fmt.Errorf("%s evaluation: %w", phase, err)
		}
		result := coerce.ExtractWith(response, phaseEvaluationFallback(phase))

		score := coerce.Int(result, "score", 1)
		if score < 0 {
			score = 0
		}
		if score > 3 {
			score = 3
		}
		evaluation := PhaseEvaluation{
			Phase:           phase,
			Score:           score,
			Strengths:       coerce.Strings(result, "strengths"),
			Weaknesses:      coerce.Strings(result, "weaknesses"),
			Evidence:        coerce.Strings(result, "evidence"),
			Recommendations: coerce.Strings(result, "recommendations"),
		}
		return engine.State{fieldPhaseEvaluations: []PhaseEvaluation{evaluation}}, nil
	}
}

// specCheckerNode assesses overall compliance with the framework's core
// principles and scans for red flags.
func (p *Pipeline) specCheckerNode(ctx context.Context, state engine.State) (engine.State, error) {
	doc, err := documentFrom(state)
	if err != nil {
		return nil, err
	}

	system := fmt.Sprintf(`You are a migrate.ai compliance expert.
Core principles to evaluate:
%s
Red flags to check for:
%s
Assess adherence to the principles, absence of red flags, technical approach
quality and evidence of automation and AI integration.
Respond with ONLY valid JSON:
{"overall_compliance_score": 0.0, "missing_elements": ["..."], "compliance_strengths": ["..."], "improvement_areas": ["..."], "recommendations": ["..."]}`,
		bulletList(p.spec.CorePrinciples), bulletList(p.spec.RedFlags))
	user := "Evaluate this proposal content for specification compliance:\n\n" + truncate(doc.Content, 3000)

	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("compliance check: %w", err)
	}
	result := coerce.ExtractWith(response, complianceFallback())

	score := coerce.Float(result, "overall_compliance_score", 0.5)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	compliance := &SpecCompliance{
		OverallScore:     score,
		MissingElements:  coerce.Strings(result, "missing_elements"),
		Strengths:        coerce.Strings(result, "compliance_strengths"),
		ImprovementAreas: coerce.Strings(result, "improvement_areas"),
		Recommendations:  coerce.Strings(result, "recommendations"),
	}
	return engine.State{fieldCompliance: compliance}, nil
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}

func complianceFrom(state engine.State) *SpecCompliance {
	compliance, _ := state[fieldCompliance].(*SpecCompliance)
	return compliance
}

func formatPhaseEvaluations(evals []PhaseEvaluation) string {
	var b strings.Builder
	for _, eval := range evals {
		fmt.Fprintf(&b, "\n%s phase (score %d/3):\n", strings.ToUpper(string(eval.Phase)), eval.Score)
		fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(eval.Strengths, ", "))
		fmt.Fprintf(&b, "Weaknesses: %s\n", strings.Join(eval.Weaknesses, ", "))
	}
	return b.String()
}

func formatCompliance(compliance *SpecCompliance) string {
	if compliance == nil {
		return "No compliance assessment available"
	}
	return fmt.Sprintf("Overall compliance: %.2f\nMissing elements: %s\nImprovement areas: %s",
		compliance.OverallScore,
		strings.Join(compliance.MissingElements, ", "),
		strings.Join(compliance.ImprovementAreas, ", "))
}

// gapHighlighterNode turns the phase evaluations and compliance assessment
// into a severity-tagged gap list.
func (p *Pipeline) gapHighlighterNode(ctx context.Context, state engine.State) (engine.State, error) {
	doc, err := documentFrom(state)
	if err != nil {
		return nil, err
	}

	system := `You are a migrate.ai gap analysis expert. Identify specific gaps and
weaknesses in the proposal based on the phase evaluations and compliance
analysis. For each gap provide the affected area, a description, the impact
and a recommendation.
Respond with ONLY valid JSON:
{"critical_gaps": [{"area": "...", "description": "...", "impact": "...", "recommendation": "..."}], "high_priority_gaps": [...], "medium_priority_gaps": [...], "low_priority_gaps": [...]}`
	user := fmt.Sprintf("PHASE EVALUATIONS:\n%s\n\nSPECIFICATION COMPLIANCE:\n%s\n\nDOCUMENT CONTENT:\n%s",
		formatPhaseEvaluations(phaseEvaluationsFrom(state)),
		formatCompliance(complianceFrom(state)),
		truncate(doc.Content, 2000))

	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("gap analysis: %w", err)
	}
	result := coerce.ExtractWith(response, gapAnalysisFallback())

	var gaps []Gap
	for _, bucket := range []struct {
		key      string
		severity string
	}{
		{"critical_gaps", LevelCritical},
		{"high_priority_gaps", LevelHigh},
		{"medium_priority_gaps", LevelMedium},
		{"low_priority_gaps", LevelLow},
	} {
		for _, record := range coerce.Records(result, bucket.key) {
			gaps = append(gaps, Gap{
				Area:           coerce.String(record, "area", "General"),
				Severity:       bucket.severity,
				Description:    coerce.String(record, "description", ""),
				Impact:         coerce.String(record, "impact", ""),
				Recommendation: coerce.String(record, "recommendation", ""),
			})
		}
	}
	return engine.State{fieldGaps: gaps}, nil
}

// recommendationsNode generates priority-tagged improvement actions from
// everything gathered so far.
func (p *Pipeline) recommendationsNode(ctx context.Context, state engine.State) (engine.State, error) {
	gaps, _ := state[fieldGaps].([]Gap)
	counts := map[string]int{}
	for _, gap := range gaps {
		counts[gap.Severity]++
	}

	system := `You are a migrate.ai consultant. Generate specific, actionable
recommendations that address the identified gaps, improve compliance with
migrate.ai principles, and strengthen the technical approach and risk
management. Categorise by priority (critical, high, medium, low).
Respond with ONLY valid JSON:
{"critical_recommendations": [{"title": "...", "description": "...", "rationale": "...", "implementation": "..."}], "high_priority_recommendations": [...], "medium_priority_recommendations": [...], "low_priority_recommendations": [...]}`
	user := fmt.Sprintf("PHASE EVALUATIONS:\n%s\n\nSPECIFICATION COMPLIANCE:\n%s\n\nGAP ANALYSIS:\ncritical: %d, high: %d, medium: %d, low: %d",
		formatPhaseEvaluations(phaseEvaluationsFrom(state)),
		formatCompliance(complianceFrom(state)),
		counts[LevelCritical], counts[LevelHigh], counts[LevelMedium], counts[LevelLow])

	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	result := coerce.ExtractWith(response, recommendationsFallback())

	var recommendations []Recommendation
	for _, bucket := range []struct {
		key      string
		priority string
	}{
		{"critical_recommendations", LevelCritical},
		{"high_priority_recommendations", LevelHigh},
		{"medium_priority_recommendations", LevelMedium},
		{"low_priority_recommendations", LevelLow},
	} {
		for _, record := range coerce.Records(result, bucket.key) {
			recommendations = append(recommendations, Recommendation{
				Title:          coerce.String(record, "title", coerce.String(record, "description", "Recommendation")),
				Description:    coerce.String(record, "description", ""),
				Priority:       bucket.priority,
				Rationale:      coerce.String(record, "rationale", ""),
				Implementation: coerce.String(record, "implementation", ""),
			})
		}
	}
	return engine.State{fieldRecommendations: recommendations}, nil
}

// scoringNode computes the final score and assembles the complete result
// artifact from everything accumulated in the state.
func (p *Pipeline) scoringNode(ctx context.Context, state engine.State) (engine.State, error) {
	evals := phaseEvaluationsFrom(state)
	compliance := complianceFrom(state)
	gaps, _ := state[fieldGaps].([]Gap)
	recommendations, _ := state[fieldRecommendations].([]Recommendation)

	totalPhaseScore := 0
	for _, eval := range evals {
		totalPhaseScore += eval.Score
	}
	avgPhaseScore := 0.0
	if len(evals) > 0 {
		avgPhaseScore = float64(totalPhaseScore) / float64(len(evals))
	}
	gapCounts := map[string]int{}
	for _, gap := range gaps {
		gapCounts[gap.Severity]++
	}

	system := `You are a migrate.ai scoring expert. Calculate the final evaluation score
on a 0-100 scale from the phase scores (0-3 each), the compliance score
(0.0-1.0), a penalty for critical and high gaps, and a bonus for exceptional
alignment. 90-100 exceptional, 80-89 strong, 70-79 good, 60-69 adequate,
50-59 poor, below 50 inadequate.
Respond with ONLY valid JSON:
{"final_score": 0, "score_breakdown": {"phase_scores": 0.0, "compliance_score": 0.0, "gap_penalty": 0.0, "quality_bonus": 0.0}, "score_rationale": "...", "grade": "A|B|C|D|F"}`
	user := fmt.Sprintf("PHASE EVALUATIONS:%s\nAverage phase score: %.2f/3\n\nSPECIFICATION COMPLIANCE:\n%s\n\nGAPS: critical %d, high %d, medium %d, low %d",
		formatPhaseEvaluations(evals), avgPhaseScore, formatCompliance(compliance),
		gapCounts[LevelCritical], gapCounts[LevelHigh], gapCounts[LevelMedium], gapCounts[LevelLow])

	response, err := p.chat(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	scored := coerce.ExtractWith(response, scoringFallback())

	finalScore := coerce.Float(scored, "final_score", 50)
	if finalScore < 0 {
		finalScore = 0
	}
	if finalScore > 100 {
		finalScore = 100
	}
	breakdown := map[string]float64{}
	for key, value := range coerce.Record(scored, "score_breakdown") {
		if number, ok := value.(float64); ok {
			breakdown[key] = number
		}
	}
	final := FinalScore{
		Score:     finalScore,
		Breakdown: breakdown,
		Rationale: coerce.String(scored, "score_rationale", ""),
		Grade:     coerce.String(scored, "grade", gradeFor(finalScore)),
	}

	scorecard := make(map[Phase]int, len(evals))
	comments := make(map[Phase]string, len(evals))
	for _, eval := range evals {
		scorecard[eval.Phase] = eval.Score
		comments[eval.Phase] = summariseEvaluation(eval)
	}
	var complianceValue SpecCompliance
	if compliance != nil {
		complianceValue = *compliance
	}
	result := &Result{
		Scorecard:        scorecard,
		Comments:         comments,
		PhaseEvaluations: evals,
		Compliance:       complianceValue,
		Gaps:             gaps,
		Recommendations:  recommendations,
		OverallScore:     avgPhaseScore,
		Final:            final,
		Summary:          final.Rationale,
	}
	return engine.State{fieldResult: result}, nil
}

func gradeFor(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func summariseEvaluation(eval PhaseEvaluation) string {
	parts := make([]string, 0, 2)
	if len(eval.Strengths) > 0 {
		parts = append(parts, "Strengths: "+strings.Join(eval.Strengths, "; "))
	}
	if len(eval.Weaknesses) > 0 {
		parts = append(parts, "Weaknesses: "+strings.Join(eval.Weaknesses, "; "))
	}
	return strings.Join(parts, ". ")
}
