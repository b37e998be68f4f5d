package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/proposal"
	"github.com/nicodishanthj/Modeval_phase1/internal/sqlite"
)

func (s *Server) handleProposalGenerate(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var input proposal.DiscoveryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		logger.Warn("api: proposal decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(input.RawData) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("raw_data is required"))
		return
	}
	logger.Info("api: proposal generation requested",
		"client", input.ClientName, "project", input.ProjectName, "source_type", input.SourceType)

	outcome, err := s.generator.Generate(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if outcome.Success {
		s.persistProposal(r, input, outcome)
	} else {
		logger.Warn("api: proposal generation incomplete",
			"client", input.ClientName, "converged", outcome.Converged, "error", outcome.Error)
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("run history store not configured"))
		return
	}
	records, err := s.store.ListProposals(r.Context(), s.historyLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"proposals": records})
}

func (s *Server) persistProposal(r *http.Request, input proposal.DiscoveryInput, outcome *proposal.Outcome) {
	logger := common.Logger()
	if s.store == nil {
		logger.Debug("api: no store configured, skipping proposal persistence")
		return
	}
	var quality float64
	if outcome.Quality != nil {
		quality = outcome.Quality.Overall
	}
	if _, err := s.store.SaveProposal(r.Context(), sqlite.ProposalRecord{
		ClientName:    input.ClientName,
		ProjectName:   input.ProjectName,
		Converged:     outcome.Converged,
		Iterations:    outcome.Iterations,
		QualityScore:  quality,
		FeedbackTrail: strings.Join(outcome.FeedbackTrail, ","),
		Markdown:      outcome.Markdown,
	}); err != nil {
		logger.Warn("api: persist proposal failed", "client", input.ClientName, "error", err)
	}
}
