package evaluation

import (
	"fmt"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
)

// SOWPhaseResult scores one statement-of-work dimension.
type SOWPhaseResult struct {
	Score     int      `json:"score"`
	Feedback  string   `json:"feedback"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

// SOWResult is the statement-of-work evaluation artifact.
type SOWResult struct {
	EvaluationType  string                    `json:"evaluation_type"`
	OverallScore    int                       `json:"overall_score"`
	MaxScore        int                       `json:"max_score"`
	PhaseResults    map[string]SOWPhaseResult `json:"phase_results"`
	KeyFindings     []string                  `json:"key_findings"`
	Recommendations []Recommendation          `json:"recommendations"`
	Summary         string                    `json:"summary"`
}

type sowDimension struct {
	name     string
	label    string
	keywords []string
}

// The three SOW dimensions and the wording that signals coverage.
var sowDimensions = []sowDimension{
	{
		name:     "scope_definition",
		label:    "scope definition",
		keywords: []string{"scope", "deliverable", "milestone", "in scope", "out of scope", "timeline", "work package"},
	},
	{
		name:     "dependencies_analysis",
		label:    "dependencies analysis",
		keywords: []string{"dependency", "dependencies", "prerequisite", "third party", "client responsibilit", "access", "environment"},
	},
	{
		name:     "assumptions_review",
		label:    "assumptions review",
		keywords: []string{"assumption", "assume", "constraint", "risk", "exclusion", "contingency"},
	},
}

// EvaluateSOW scores a statement of work on scope, dependencies and
// assumptions coverage. The scorer is keyword-driven: each dimension earns
// up to 3 points for distinct signal terms found in the document.
func EvaluateSOW(content string) *SOWResult {
	lower := strings.ToLower(content)
	results := make(map[string]SOWPhaseResult, len(sowDimensions))
	total := 0
	var findings []string
	var recommendations []Recommendation

	for _, dimension := range sowDimensions {
		var hits []string
		for _, keyword := range dimension.keywords {
			if strings.Contains(lower, keyword) {
				hits = append(hits, keyword)
			}
		}
		score := len(hits)
		if score > 3 {
			score = 3
		}
		total += score

		result := SOWPhaseResult{Score: score}
		switch {
		case score >= 3:
			result.Feedback = fmt.Sprintf("The %s is well covered.", dimension.label)
			result.Strengths = []string{fmt.Sprintf("Multiple %s signals present: %s", dimension.label, strings.Join(hits, ", "))}
		case score > 0:
			result.Feedback = fmt.Sprintf("The %s is partially covered.", dimension.label)
			result.Strengths = []string{fmt.Sprintf("Some %s coverage: %s", dimension.label, strings.Join(hits, ", "))}
			result.Gaps = []string{fmt.Sprintf("Expand the %s with explicit detail", dimension.label)}
		default:
			result.Feedback = fmt.Sprintf("No %s coverage found.", dimension.label)
			result.Gaps = []string{fmt.Sprintf("Add a %s section", dimension.label)}
			recommendations = append(recommendations, Recommendation{
				Title:       fmt.Sprintf("Document the %s", dimension.label),
				Description: fmt.Sprintf("The statement of work has no identifiable %s; add one before commercial review.", dimension.label),
				Priority:    LevelHigh,
			})
		}
		results[dimension.name] = result
		findings = append(findings, fmt.Sprintf("%s scored %d/3", dimension.label, score))
	}

	maxScore := len(sowDimensions) * 3
	common.Logger().Info("evaluation: sow scored", "score", total, "max", maxScore)
	return &SOWResult{
		EvaluationType:  string(TypeStatementOfWork),
		OverallScore:    total,
		MaxScore:        maxScore,
		PhaseResults:    results,
		KeyFindings:     findings,
		Recommendations: recommendations,
		Summary:         fmt.Sprintf("SOW framework evaluation complete: %d/%d", total, maxScore),
	}
}
