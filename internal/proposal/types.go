// Package proposal generates migration proposals from discovery data. The
// pipeline classifies workloads, plans delivery waves, assigns 6-R migration
// strategies and assembles the numbered proposal document, with feedback
// cycles that re-plan earlier steps when later analysis contradicts them.
package proposal

// Strategy is one of the 6-R migration strategies.
type Strategy string

const (
	StrategyRehost     Strategy = "rehost"
	StrategyReplatform Strategy = "replatform"
	StrategyRefactor   Strategy = "refactor"
	StrategyRepurchase Strategy = "repurchase"
	StrategyRetire     Strategy = "retire"
	StrategyRetain     Strategy = "retain"
)

// DiscoveryInput is the request record for a generation run. RawData carries
// the discovery payload; when SourceType is "json" it is decoded directly,
// anything else goes through model-assisted text extraction.
type DiscoveryInput struct {
	SourceType             string   `json:"source_type"`
	RawData                string   `json:"raw_data"`
	ClientName             string   `json:"client_name"`
	ProjectName            string   `json:"project_name"`
	BusinessContext        string   `json:"business_context,omitempty"`
	BusinessDrivers        []string `json:"business_drivers,omitempty"`
	TargetCloud            string   `json:"target_cloud,omitempty"`
	MigrationApproach      string   `json:"migration_approach,omitempty"`
	TimelineConstraint     string   `json:"timeline_constraint,omitempty"`
	BudgetConstraint       string   `json:"budget_constraint,omitempty"`
	RiskTolerance          string   `json:"risk_tolerance,omitempty"`
	ComplianceRequirements []string `json:"compliance_requirements,omitempty"`
}

// Application is one classified workload.
type Application struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Description          string   `json:"description,omitempty"`
	TechnologyStack      []string `json:"technology_stack,omitempty"`
	Complexity           string   `json:"complexity"`
	MigrationReadiness   string   `json:"migration_readiness"`
	BusinessCriticality  string   `json:"business_criticality"`
	Dependencies         []string `json:"dependencies,omitempty"`
	CurrentEnvironment   string   `json:"current_environment,omitempty"`
	EstimatedUsers       int      `json:"estimated_users,omitempty"`
	EstimatedEffortWeeks int      `json:"estimated_effort_weeks"`
	Notes                string   `json:"notes,omitempty"`
}

// WorkloadSummary aggregates the classified portfolio.
type WorkloadSummary struct {
	TotalApplications       int            `json:"total_applications"`
	ComplexityDistribution  map[string]int `json:"complexity_distribution"`
	ReadinessDistribution   map[string]int `json:"readiness_distribution"`
	CriticalityDistribution map[string]int `json:"criticality_distribution"`
	TotalEffortWeeks        int            `json:"total_estimated_effort_weeks"`
	AverageEffortWeeks      float64        `json:"average_effort_per_app"`
}

// StrategyClassification assigns a 6-R strategy to one application.
type StrategyClassification struct {
	ApplicationName            string   `json:"application_name"`
	Strategy                   Strategy `json:"recommended_strategy"`
	ModernizationOpportunities []string `json:"modernization_opportunities,omitempty"`
	Rationale                  string   `json:"rationale,omitempty"`
	EffortWeeks                int      `json:"effort_estimate_weeks"`
	RiskLevel                  string   `json:"risk_level"`
	Prerequisites              []string `json:"prerequisites,omitempty"`
	SuccessMetrics             []string `json:"success_metrics,omitempty"`
}

// StrategySummary describes the strategy distribution across the portfolio.
type StrategySummary struct {
	TotalApplications   int              `json:"total_applications"`
	Distribution        map[Strategy]int `json:"strategy_distribution"`
	TotalEffortWeeks    int              `json:"total_effort_weeks"`
	ModernisationScore  float64          `json:"modernisation_score"`
	RecommendedApproach string           `json:"recommended_approach"`
}

// StrategyUpgrade records a modernisation-bias change to one assignment.
type StrategyUpgrade struct {
	From   Strategy `json:"original_strategy"`
	To     Strategy `json:"new_strategy"`
	Reason string   `json:"reason"`
}

// WaveGroup is one migration wave on the discovery or delivery track.
type WaveGroup struct {
	WaveNumber               int      `json:"wave_number"`
	Name                     string   `json:"name"`
	Track                    string   `json:"track"`
	TrackDescription         string   `json:"track_description,omitempty"`
	Applications             []string `json:"applications"`
	DurationWeeks            int      `json:"duration_weeks"`
	SprintCount              int      `json:"sprint_count"`
	DependenciesSatisfied    []string `json:"dependencies_satisfied,omitempty"`
	RiskLevel                string   `json:"risk_level"`
	SuccessCriteria          []string `json:"success_criteria,omitempty"`
	DeliveryApproach         string   `json:"delivery_approach,omitempty"`
	StakeholderCollaboration string   `json:"stakeholder_collaboration,omitempty"`
	Notes                    string   `json:"notes,omitempty"`
}

// WavePlan is the dual-track delivery plan for the whole portfolio.
type WavePlan struct {
	Methodology             string      `json:"methodology"`
	MethodologyDescription  string      `json:"methodology_description,omitempty"`
	TotalWaves              int         `json:"total_waves"`
	TotalSprints            int         `json:"total_sprints"`
	EstimatedDurationMonths float64     `json:"estimated_duration_months"`
	KeyPrinciples           []string    `json:"key_principles,omitempty"`
	Waves                   []WaveGroup `json:"waves"`
}

// ArchitectureRecommendation is one targeted architecture suggestion.
type ArchitectureRecommendation struct {
	Category       string `json:"category"`
	Recommendation string `json:"recommendation"`
	Rationale      string `json:"rationale,omitempty"`
	Priority       string `json:"priority"`
}

// ArchitectureAdvice carries the advisor's full output: recommended
// patterns, a service map per concern and individual recommendations.
type ArchitectureAdvice struct {
	Patterns        []string                     `json:"architecture_patterns"`
	TechnologyStack map[string][]string          `json:"technology_stack"`
	Recommendations []ArchitectureRecommendation `json:"recommendations"`
}

// TotalServices counts every recommended service across concerns.
func (a *ArchitectureAdvice) TotalServices() int {
	total := 0
	for _, services := range a.TechnologyStack {
		total += len(services)
	}
	return total
}

// GenAIToolCategory groups recommended tools for one automation concern.
type GenAIToolCategory struct {
	Category             string   `json:"category"`
	Tools                []string `json:"tools"`
	UseCases             []string `json:"use_cases,omitempty"`
	ExpectedBenefits     []string `json:"expected_benefits,omitempty"`
	ImplementationEffort string   `json:"implementation_effort"`
}

// AutomationOpportunity is one concrete automation candidate.
type AutomationOpportunity struct {
	Opportunity      string `json:"opportunity"`
	PotentialSavings string `json:"potential_savings,omitempty"`
	Complexity       string `json:"complexity"`
}

// GenAIPlan is the tooling and automation plan.
type GenAIPlan struct {
	ToolCategories          []GenAIToolCategory     `json:"tool_categories"`
	AutomationOpportunities []AutomationOpportunity `json:"automation_opportunities,omitempty"`
}

// WaveEstimate is the effort estimate for one wave.
type WaveEstimate struct {
	WaveNumber        int      `json:"wave_number"`
	WaveName          string   `json:"wave_name"`
	DurationWeeks     int      `json:"duration_weeks"`
	SprintCount       int      `json:"sprint_count"`
	TeamSize          int      `json:"team_size"`
	EffortPersonWeeks int      `json:"effort_person_weeks"`
	KeyMilestones     []string `json:"key_milestones,omitempty"`
	RiskFactors       []string `json:"risk_factors,omitempty"`
}

// SprintEstimate is the project-level effort estimate.
type SprintEstimate struct {
	TotalDurationWeeks int            `json:"total_project_duration_weeks"`
	TotalSprints       int            `json:"total_sprint_count"`
	Waves              []WaveEstimate `json:"wave_estimates"`
	Resources          map[string]int `json:"resource_requirements,omitempty"`
}

// ProposalSection is one numbered section of the assembled document.
type ProposalSection struct {
	Number  string `json:"section_number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// QualityMetrics estimates how complete and detailed the proposal is.
type QualityMetrics struct {
	Completeness  float64 `json:"completeness_score"`
	Detail        float64 `json:"detail_score"`
	Modernisation float64 `json:"modernisation_score"`
	Automation    float64 `json:"automation_score"`
	Overall       float64 `json:"overall_score"`
}

// Outcome is the caller-facing result of one generation run.
type Outcome struct {
	Success         bool                   `json:"success"`
	Converged       bool                   `json:"converged"`
	Markdown        string                 `json:"markdown,omitempty"`
	Sections        []ProposalSection      `json:"sections,omitempty"`
	MissingSections []string               `json:"missing_sections,omitempty"`
	Quality         *QualityMetrics        `json:"quality,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
	FeedbackTrail   []string               `json:"feedback_trail,omitempty"`
	Iterations      int                    `json:"iterations"`
	OutputFiles     []string               `json:"output_files,omitempty"`
	Error           string                 `json:"error,omitempty"`
	Partial         map[string]interface{} `json:"partial_results,omitempty"`
}
