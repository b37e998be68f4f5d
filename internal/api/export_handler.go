package api

import (
	"fmt"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/sqlite"
)

// handleEvaluationsExport renders the stored run history as json, yaml or
// markdown.
func (s *Server) handleEvaluationsExport(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("run history store not configured"))
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	evaluationType := strings.TrimSpace(r.URL.Query().Get("evaluation_type"))
	records, err := s.store.ListEvaluations(r.Context(), evaluationType, s.historyLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("api: exporting evaluations", "format", format, "count", len(records))

	switch format {
	case "json":
		writeJSON(w, http.StatusOK, map[string]interface{}{"evaluations": records})
	case "yaml":
		payload, err := yaml.Marshal(map[string]interface{}{"evaluations": records})
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("encode yaml: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(renderEvaluationsMarkdown(records)))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported export format: %s", format))
	}
}

func renderEvaluationsMarkdown(records []sqlite.EvaluationRecord) string {
	var b strings.Builder
	b.WriteString("# Evaluation History\n\n")
	if len(records) == 0 {
		b.WriteString("No evaluations recorded.\n")
		return b.String()
	}
	b.WriteString("| Filename | Type | Score | Grade | Evaluated |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, record := range records {
		grade := record.Grade
		if grade == "" {
			grade = "-"
		}
		b.WriteString(fmt.Sprintf("| %s | %s | %.1f | %s | %s |\n",
			record.Filename, record.EvaluationType, record.OverallScore, grade,
			record.UpdatedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}
