package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/agent"
	"github.com/nicodishanthj/Modeval_phase1/internal/coerce"
	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/sqlite"
)

// handleReview answers a follow-up question about an evaluation. The run
// context comes either inline or from the stored history by checksum.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: review decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}

	evalCtx := req.Evaluation
	if evalCtx == nil && strings.TrimSpace(req.Checksum) != "" {
		if s.store == nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Errorf("run history store not configured"))
			return
		}
		evaluationType, err := normaliseEvaluationType(req.EvaluationType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		record, err := s.store.EvaluationByChecksum(r.Context(), req.Checksum, string(evaluationType))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("no stored evaluation for checksum %s", req.Checksum))
			return
		}
		evalCtx = evaluationContextFromRecord(record)
	}

	logger.Info("api: review requested", "question_len", len(req.Question), "stored", req.Checksum != "")
	answer, err := s.agent.Review(r.Context(), req.Question, &agent.ReviewOptions{Evaluation: evalCtx})
	if err != nil {
		logger.Error("api: review failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// evaluationContextFromRecord distils a stored result payload into the
// context the review runner injects. The payload shape differs per
// evaluation type, so fields are picked from the decoded JSON by key.
func evaluationContextFromRecord(record *sqlite.EvaluationRecord) *agent.EvaluationContext {
	evalCtx := &agent.EvaluationContext{
		Filename:       record.Filename,
		EvaluationType: record.EvaluationType,
		OverallScore:   record.OverallScore,
		Grade:          record.Grade,
	}
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(record.ResultJSON), &payload); err != nil {
		return evalCtx
	}
	result := coerce.Record(payload, "evaluation_result")
	if result == nil {
		result = payload
	}
	evalCtx.Summary = coerce.String(result, "summary", "")
	for _, gap := range coerce.Records(result, "gaps") {
		if description := coerce.String(gap, "description", ""); description != "" {
			evalCtx.Gaps = append(evalCtx.Gaps, description)
		}
	}
	if len(evalCtx.Gaps) == 0 {
		evalCtx.Gaps = coerce.Strings(result, "key_findings")
	}
	for _, rec := range coerce.Records(result, "recommendations") {
		if title := coerce.String(rec, "title", ""); title != "" {
			evalCtx.Recommendations = append(evalCtx.Recommendations, title)
		}
	}
	return evalCtx
}
