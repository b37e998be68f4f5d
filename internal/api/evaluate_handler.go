package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/evaluation"
	"github.com/nicodishanthj/Modeval_phase1/internal/ingest"
	"github.com/nicodishanthj/Modeval_phase1/internal/sqlite"
)

// resultCache short-circuits repeat evaluations of the same document bytes
// under the same evaluation type.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]interface{})}
}

func (c *resultCache) get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *resultCache) put(key string, entry interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

func cacheKey(checksum string, evaluationType evaluation.Type) string {
	return checksum + "|" + string(evaluationType)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: evaluate decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("content is required"))
		return
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "document.txt"
	}
	s.evaluate(r.Context(), w, []byte(req.Content), filename, req.EvaluationType)
}

func (s *Server) handleEvaluateUpload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	const maxMemory = 32 << 20 // 32 MiB of in-memory file parts
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		logger.Warn("api: evaluate upload form parse failed", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("read uploaded file: %w", err))
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("uploaded file is empty"))
		return
	}
	s.evaluate(r.Context(), w, content, header.Filename, r.FormValue("evaluation_type"))
}

func (s *Server) evaluate(ctx context.Context, w http.ResponseWriter, content []byte, filename, rawType string) {
	logger := common.Logger()
	evaluationType, err := normaliseEvaluationType(rawType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])
	key := cacheKey(checksum, evaluationType)
	if cached, ok := s.cache.get(key); ok {
		logger.Info("api: evaluation served from cache", "checksum", checksum, "type", evaluationType)
		writeJSON(w, http.StatusOK, evaluateResponse{
			Checksum:       checksum,
			EvaluationType: string(evaluationType),
			Cached:         true,
			Outcome:        cached,
		})
		return
	}

	logger.Info("api: evaluation requested", "filename", filename, "type", evaluationType, "bytes", len(content))
	var (
		outcome interface{}
		score   float64
		grade   string
		success bool
	)
	switch evaluationType {
	case evaluation.TypeStatementOfWork:
		doc, parseErr := ingest.Parse(content, filename)
		if parseErr != nil {
			writeError(w, ingestStatus(parseErr), parseErr)
			return
		}
		result := evaluation.EvaluateSOW(doc.Content)
		outcome = result
		score = float64(result.OverallScore)
		success = true
	default:
		run, evalErr := s.evaluator.Evaluate(ctx, content, filename)
		if evalErr != nil {
			writeError(w, ingestStatus(evalErr), evalErr)
			return
		}
		outcome = run
		success = run.Success
		if run.Result != nil {
			score = run.Result.Final.Score
			grade = run.Result.Final.Grade
		}
	}

	if success {
		s.cache.put(key, outcome)
		s.persistEvaluation(ctx, checksum, filename, evaluationType, score, grade, outcome)
	}
	writeJSON(w, http.StatusOK, evaluateResponse{
		Checksum:       checksum,
		EvaluationType: string(evaluationType),
		Outcome:        outcome,
	})
}

func (s *Server) persistEvaluation(ctx context.Context, checksum, filename string, evaluationType evaluation.Type, score float64, grade string, outcome interface{}) {
	logger := common.Logger()
	if s.store == nil {
		logger.Debug("api: no store configured, skipping evaluation persistence")
		return
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		logger.Warn("api: marshal evaluation result failed", "error", err)
		return
	}
	if _, err := s.store.SaveEvaluation(ctx, sqlite.EvaluationRecord{
		Checksum:       checksum,
		Filename:       filename,
		EvaluationType: string(evaluationType),
		OverallScore:   score,
		Grade:          grade,
		ResultJSON:     string(payload),
	}); err != nil {
		logger.Warn("api: persist evaluation failed", "checksum", checksum, "error", err)
	}
}

func normaliseEvaluationType(raw string) (evaluation.Type, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(evaluation.TypeMigrationProposal):
		return evaluation.TypeMigrationProposal, nil
	case string(evaluation.TypeStatementOfWork):
		return evaluation.TypeStatementOfWork, nil
	default:
		return "", fmt.Errorf("unknown evaluation type: %s", raw)
	}
}

func ingestStatus(err error) int {
	if errors.Is(err, ingest.ErrUnsupportedFormat) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("run history store not configured"))
		return
	}
	evaluationType := strings.TrimSpace(r.URL.Query().Get("evaluation_type"))
	records, err := s.store.ListEvaluations(r.Context(), evaluationType, s.historyLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"evaluations": records})
}
