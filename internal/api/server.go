package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/Modeval_phase1/internal/agent"
	"github.com/nicodishanthj/Modeval_phase1/internal/common"
	"github.com/nicodishanthj/Modeval_phase1/internal/evaluation"
	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
	"github.com/nicodishanthj/Modeval_phase1/internal/proposal"
	"github.com/nicodishanthj/Modeval_phase1/internal/sqlite"
)

type Server struct {
	router    chi.Router
	provider  llm.Provider
	evaluator *evaluation.Pipeline
	generator *proposal.Pipeline
	store     *sqlite.Store
	agent     *agent.Runner
	cache     *resultCache

	historyLimit int
}

// Config controls how the API server evaluates and generates documents.
type Config struct {
	// SpecPath overrides the embedded assessment framework.
	SpecPath string
	// OutputRoot is where generated proposal artifacts are written.
	OutputRoot string
	// HistoryLimit caps list and export responses.
	HistoryLimit int

	Evaluation evaluation.Config
	Proposal   proposal.Config
}

// DefaultConfig returns the standard configuration used when no overrides
// are provided.
func DefaultConfig() Config {
	return Config{
		HistoryLimit: 50,
		Evaluation:   evaluation.DefaultConfig(),
		Proposal:     proposal.DefaultConfig(),
	}
}

// Merge overlays non-zero configuration from the override onto the base.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.SpecPath) != "" {
		result.SpecPath = strings.TrimSpace(override.SpecPath)
	}
	if strings.TrimSpace(override.OutputRoot) != "" {
		result.OutputRoot = strings.TrimSpace(override.OutputRoot)
	}
	if override.HistoryLimit > 0 {
		result.HistoryLimit = override.HistoryLimit
	}
	if override.Evaluation.ConfidenceThreshold > 0 {
		result.Evaluation = override.Evaluation
	}
	if override.Proposal.MaxFeedbackIterations > 0 {
		result.Proposal = override.Proposal
	}
	return result
}

// NewServer wires the evaluation and generation pipelines behind the HTTP
// surface. The store may be nil; history endpoints then report unavailable.
func NewServer(provider llm.Provider, store *sqlite.Store, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if provider == nil {
		return nil, fmt.Errorf("provider required")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}

	spec, err := evaluation.LoadSpec(configuration.SpecPath)
	if err != nil {
		return nil, fmt.Errorf("load assessment spec: %w", err)
	}
	evaluator, err := evaluation.NewPipeline(provider, spec, configuration.Evaluation)
	if err != nil {
		return nil, err
	}
	proposalCfg := configuration.Proposal
	if strings.TrimSpace(configuration.OutputRoot) != "" {
		proposalCfg.OutputRoot = configuration.OutputRoot
	}
	generator, err := proposal.NewPipeline(provider, proposalCfg)
	if err != nil {
		return nil, err
	}

	logger.Info("api: building server",
		"provider", provider.Name(),
		"store_available", store != nil,
		"output_root", proposalCfg.OutputRoot)

	srv := &Server{
		router:       chi.NewRouter(),
		provider:     provider,
		evaluator:    evaluator,
		generator:    generator,
		store:        store,
		agent:        agent.NewRunner(provider),
		cache:        newResultCache(),
		historyLimit: configuration.HistoryLimit,
	}
	srv.routes()
	logger.Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/evaluate", s.handleEvaluate)
	s.router.Post("/v1/evaluate/upload", s.handleEvaluateUpload)
	s.router.Post("/v1/proposal/generate", s.handleProposalGenerate)
	s.router.Get("/v1/proposals", s.handleProposals)
	s.router.Get("/v1/evaluations", s.handleEvaluations)
	s.router.Get("/v1/evaluations/export", s.handleEvaluationsExport)
	s.router.Post("/v1/review", s.handleReview)
	s.router.Get("/v1/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
