package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/engine"
	"github.com/nicodishanthj/Modeval_phase1/internal/ingest"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
)

// Config tunes the evaluation pipeline.
type Config struct {
	// ConfidenceThreshold gates the selective evaluator fan-out.
	ConfidenceThreshold float64
	// CallTimeout bounds each model call.
	CallTimeout time.Duration
	// NodeTimeout bounds a whole workflow step.
	NodeTimeout time.Duration
}

// DefaultConfig matches the behaviour the evaluators were calibrated with.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		CallTimeout:         llm.DefaultCallTimeout,
		NodeTimeout:         3 * time.Minute,
	}
}

// Pipeline evaluates documents through the compiled assessment workflow.
// One Pipeline serves many invocations; each run gets its own state.
type Pipeline struct {
	provider llm.Provider
	spec     *Spec
	config   Config
	runnable *engine.Runnable
}

// NewPipeline compiles the evaluation graph against the given provider and
// assessment framework.
func NewPipeline(provider llm.Provider, spec *Spec, config Config) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("evaluation: provider required")
	}
	if spec == nil {
		return nil, fmt.Errorf("evaluation: spec required")
	}
	if config.ConfidenceThreshold <= 0 {
		config.ConfidenceThreshold = DefaultConfig().ConfidenceThreshold
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultConfig().CallTimeout
	}
	p := &Pipeline{provider: provider, spec: spec, config: config}

	schema := engine.NewSchema().
		Field(fieldDocument, engine.Replace).
		Field(fieldPhaseContents, engine.Append).
		Field(fieldPhaseEvaluations, engine.Append).
		Field(fieldCompliance, engine.Replace).
		Field(fieldGaps, engine.Append).
		Field(fieldRecommendations, engine.Append).
		Field(fieldResult, engine.Replace)

	graph := engine.NewStateGraph(schema)
	graph.AddNode("parse_document", p.parseDocumentNode)
	graph.AddNode("extract_phases", p.extractPhasesNode)
	for _, phase := range AllPhases {
		graph.AddNode(evaluatorNode(phase), p.evaluatePhaseNode(phase))
	}
	graph.AddNode("spec_checker", p.specCheckerNode)
	graph.AddNode("gap_highlighter", p.gapHighlighterNode)
	graph.AddNode("recommendations_generator", p.recommendationsNode)
	graph.AddNode("scoring", p.scoringNode)

	graph.SetEntryPoint("parse_document")
	graph.AddEdge("parse_document", "extract_phases")
	candidates := make([]string, 0, len(AllPhases))
	for _, phase := range AllPhases {
		candidates = append(candidates, evaluatorNode(phase))
	}
	graph.AddConditionalEdges("extract_phases", p.routeToEvaluators, candidates...)
	for _, phase := range AllPhases {
		graph.AddEdge(evaluatorNode(phase), "spec_checker")
	}
	graph.AddEdge("spec_checker", "gap_highlighter")
	graph.AddEdge("gap_highlighter", "recommendations_generator")
	graph.AddEdge("recommendations_generator", "scoring")
	graph.AddEdge("scoring", engine.End)

	runnable, err := graph.Compile()
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}
	p.runnable = runnable
	return p, nil
}

// Evaluate runs the full assessment for an uploaded document. Ingestion
// failures are returned as errors; failures inside the workflow come back in
// the outcome with whatever partial progress was made.
func (p *Pipeline) Evaluate(ctx context.Context, fileContent []byte, filename string) (*Outcome, error) {
	doc, err := ingest.Parse(fileContent, filename)
	if err != nil {
		return nil, err
	}
	common.Logger().Info("evaluation: starting run",
		"filename", filename, "doc_type", doc.DocType, "sections", len(doc.Sections))

	result, err := p.runnable.Invoke(ctx, engine.State{fieldDocument: doc},
		engine.WithNodeTimeout(p.config.NodeTimeout))
	if err != nil {
		return nil, err
	}

	state := result.State
	if msg := state.Error(); msg != "" {
		common.Logger().Warn("evaluation: run failed", "filename", filename, "error", msg)
		return &Outcome{
			Success: false,
			Error:   msg,
			Partial: partialResults(state),
		}, nil
	}

	evalResult, ok := state[fieldResult].(*Result)
	if !ok || evalResult == nil {
		return &Outcome{
			Success: false,
			Error:   "evaluation completed but no results generated",
			Partial: partialResults(state),
		}, nil
	}

	finalDoc, _ := state[fieldDocument].(*ingest.Document)
	if finalDoc == nil {
		finalDoc = doc
	}
	sections := make([]string, 0, len(finalDoc.Sections))
	for name := range finalDoc.Sections {
		sections = append(sections, name)
	}
	common.Logger().Info("evaluation: run complete",
		"filename", filename, "score", evalResult.Final.Score, "grade", evalResult.Final.Grade)

	return &Outcome{
		Success: true,
		Result:  evalResult,
		Document: &DocumentInfo{
			Filename:      filename,
			DocumentType:  string(finalDoc.DocType),
			SectionsFound: sections,
			ContentLength: len(finalDoc.Content),
		},
		Processing: &ProcessingInfo{
			PhasesEvaluated: len(evalResult.PhaseEvaluations),
			GapsIdentified:  len(evalResult.Gaps),
			Recommendations: len(evalResult.Recommendations),
			Iterations:      result.Iterations,
		},
	}, nil
}

// partialResults snapshots how far a failed run got.
func partialResults(state engine.State) map[string]interface{} {
	partial := map[string]interface{}{}
	if doc, ok := state[fieldDocument].(*ingest.Document); ok && doc != nil {
		partial["document_parsed"] = true
		partial["document_type"] = string(doc.DocType)
		partial["sections_found"] = len(doc.Sections)
	}
	if contents := phaseContentsFrom(state); len(contents) > 0 {
		partial["phase_contents_extracted"] = len(contents)
	}
	if evals := phaseEvaluationsFrom(state); len(evals) > 0 {
		partial["phases_evaluated"] = len(evals)
		scores := map[string]int{}
		for _, eval := range evals {
			scores[string(eval.Phase)] = eval.Score
		}
		partial["phase_scores"] = scores
	}
	if compliance := complianceFrom(state); compliance != nil {
		partial["compliance_checked"] = true
		partial["compliance_score"] = compliance.OverallScore
	}
	if gaps, ok := state[fieldGaps].([]Gap); ok && len(gaps) > 0 {
		partial["gaps_identified"] = len(gaps)
	}
	if recommendations, ok := state[fieldRecommendations].([]Recommendation); ok && len(recommendations) > 0 {
		partial["recommendations_generated"] = len(recommendations)
	}
	return partial
}
