// Package evaluation runs uploaded pre-sales documents through the
// migration-assessment workflow: phase extraction, selective phase
// evaluation, compliance checking, gap analysis, recommendations and final
// scoring, all orchestrated on the workflow graph engine.
package evaluation

// Phase identifies one of the three migration stages a document is assessed
// against.
type Phase string

const (
	PhaseStrategiseAndPlan   Phase = "strategise_and_plan"
	PhaseMigrateAndModernise Phase = "migrate_and_modernise"
	PhaseManageAndOptimise   Phase = "manage_and_optimise"
)

// AllPhases lists the stages in evaluation order.
var AllPhases = []Phase{PhaseStrategiseAndPlan, PhaseMigrateAndModernise, PhaseManageAndOptimise}

// Type selects the evaluation flavor for an upload.
type Type string

const (
	TypeMigrationProposal Type = "migration_proposal"
	TypeStatementOfWork   Type = "statement_of_work"
)

// PhaseContent is document content mapped to one migration phase, with the
// extractor's confidence that the phase is genuinely addressed.
type PhaseContent struct {
	Phase           Phase    `json:"phase"`
	RelevantContent string   `json:"relevant_content"`
	KeyPoints       []string `json:"key_points"`
	Confidence      float64  `json:"confidence_score"`
}

// NoRelevantContent marks a phase the extractor found nothing for.
const NoRelevantContent = "No relevant content identified"

// PhaseEvaluation scores one phase on the 0-3 scale.
type PhaseEvaluation struct {
	Phase           Phase    `json:"phase"`
	Score           int      `json:"score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Evidence        []string `json:"evidence"`
	Recommendations []string `json:"recommendations"`
}

// SpecCompliance is the framework-level compliance assessment.
type SpecCompliance struct {
	OverallScore     float64  `json:"overall_compliance_score"`
	MissingElements  []string `json:"missing_elements"`
	Strengths        []string `json:"compliance_strengths"`
	ImprovementAreas []string `json:"improvement_areas"`
	Recommendations  []string `json:"recommendations"`
}

// Gap is a weakness in the proposal, tagged by severity.
type Gap struct {
	Area           string `json:"area"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation,omitempty"`
	Phase          Phase  `json:"phase,omitempty"`
}

// Recommendation is an actionable improvement, tagged by priority.
type Recommendation struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Priority       string `json:"priority"`
	Rationale      string `json:"rationale,omitempty"`
	Implementation string `json:"implementation,omitempty"`
	Phase          Phase  `json:"phase,omitempty"`
}

// Severity and priority levels used by gaps and recommendations.
const (
	LevelCritical = "critical"
	LevelHigh     = "high"
	LevelMedium   = "medium"
	LevelLow      = "low"
)

// FinalScore is the 0-100 aggregate with its breakdown and letter grade.
type FinalScore struct {
	Score     float64            `json:"final_score"`
	Breakdown map[string]float64 `json:"score_breakdown"`
	Rationale string             `json:"score_rationale"`
	Grade     string             `json:"grade"`
}

// Result is the complete evaluation artifact returned to callers.
type Result struct {
	Scorecard        map[Phase]int     `json:"scorecard"`
	Comments         map[Phase]string  `json:"comments"`
	PhaseEvaluations []PhaseEvaluation `json:"phase_evaluations"`
	Compliance       SpecCompliance    `json:"spec_compliance"`
	Gaps             []Gap             `json:"gaps"`
	Recommendations  []Recommendation  `json:"recommendations"`
	OverallScore     float64           `json:"overall_score"`
	Final            FinalScore        `json:"final"`
	Summary          string            `json:"summary"`
}

// DocumentInfo describes the evaluated upload.
type DocumentInfo struct {
	Filename      string   `json:"filename"`
	DocumentType  string   `json:"document_type"`
	SectionsFound []string `json:"sections_found"`
	ContentLength int      `json:"content_length"`
}

// ProcessingInfo summarises the run itself.
type ProcessingInfo struct {
	PhasesEvaluated int `json:"phases_evaluated"`
	GapsIdentified  int `json:"gaps_identified"`
	Recommendations int `json:"recommendations_generated"`
	Iterations      int `json:"iterations"`
}

// Outcome wraps a pipeline run: either a result with metadata or the error
// captured inside the workflow, with whatever partial progress was made.
type Outcome struct {
	Success    bool                   `json:"success"`
	Result     *Result                `json:"evaluation_result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Partial    map[string]interface{} `json:"partial_results,omitempty"`
	Document   *DocumentInfo          `json:"document_info,omitempty"`
	Processing *ProcessingInfo        `json:"processing_info,omitempty"`
}
