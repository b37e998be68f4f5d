package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nicodishanthj/Modeval_phase1/internal/llm"
	"github.com/nicodishanthj/Modeval_phase1/internal/sqlite"
)

// scriptRule answers calls whose prompt contains the marker. Responses are
// consumed in order; the last one repeats.
type scriptRule struct {
	marker    string
	responses []string
}

type scriptedProvider struct {
	mu    sync.Mutex
	rules []scriptRule
	index map[string]int
}

func (s *scriptedProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var text strings.Builder
	for _, message := range messages {
		text.WriteString(message.Content)
		text.WriteString("\n")
	}
	prompt := text.String()
	for _, rule := range s.rules {
		if !strings.Contains(prompt, rule.marker) {
			continue
		}
		if s.index == nil {
			s.index = map[string]int{}
		}
		i := s.index[rule.marker]
		if i >= len(rule.responses) {
			i = len(rule.responses) - 1
		}
		s.index[rule.marker]++
		return rule.responses[i], nil
	}
	return "{}", nil
}

func (s *scriptedProvider) Embed(ctx context.Context, input []string) ([][]float32, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *scriptedProvider) Name() string { return "scripted" }

// proposalRules scripts a complete generation run with no feedback loops.
func proposalRules() []scriptRule {
	return []scriptRule{
		{"expert cloud migration consultant", []string{`{"type": "web application", "technology_stack": ["java", "spring"], "complexity": "Low", "migration_readiness": "Ready", "business_criticality": "Medium", "dependencies": [], "estimated_effort_weeks": 4}`}},
		{"expert technical writer", []string{`{"executive_summary": "Acme Corp will modernise its estate.", "overview": "The programme migrates two applications to AWS.", "scope": "Scope covers Billing and Reporting."}`}},
		{"dual-track agile delivery", []string{`{"methodology": "Dual-Track Agile Delivery", "estimated_duration_months": 2, "key_principles": ["Discovery one sprint ahead"], "waves": [{"wave_number": 1, "name": "Initial Delivery", "track": "Delivery", "applications": ["Billing", "Reporting"], "duration_weeks": 8, "sprint_count": 4, "risk_level": "Low", "success_criteria": ["Increments delivered"]}]}`}},
		{"6R migration framework", []string{`{"recommended_strategy": "rehost", "modernization_opportunities": ["Managed services"], "rationale": "Simple lift", "effort_estimate_weeks": 4, "risk_level": "Low", "prerequisites": [], "success_metrics": ["Done"]}`}},
		{"cloud architecture expert", []string{`{"architecture_patterns": ["Cloud-native"], "technology_stack": {"compute": ["ECS"], "storage": ["RDS"], "networking": ["ALB"]}, "recommendations": [{"category": "Security", "recommendation": "Adopt least-privilege IAM", "rationale": "Reduce blast radius", "priority": "High"}]}`}},
		{"AI/ML expert", []string{`{"tool_categories": [{"category": "Code Modernization", "tools": ["GitHub Copilot"], "use_cases": ["Refactoring"], "expected_benefits": ["Velocity"], "implementation_effort": "Medium"}], "automation_opportunities": [{"opportunity": "Test generation", "potential_savings": "20% less manual effort", "complexity": "Low"}]}`}},
		{"project management expert", []string{`{"total_project_duration_weeks": 24, "total_sprint_count": 12, "wave_estimates": [{"wave_number": 1, "wave_name": "Initial Delivery", "duration_weeks": 8, "sprint_count": 4, "team_size": 5, "effort_person_weeks": 40, "key_milestones": ["Migration complete"], "risk_factors": ["Complexity"]}], "resource_requirements": {"developers": 3, "architects": 1}}`}},
	}
}

const sowText = `Statement of Work.
The scope includes two deliverables with a milestone timeline and defined work packages.
Dependencies: third party access, client responsibilities and environment provisioning are prerequisites.
We assume stable requirements; constraints, risks and exclusions are documented with a contingency.`

func newTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()
	store, err := sqlite.OpenWithConfig(sqlite.Config{
		Path:            filepath.Join(t.TempDir(), "catalog.db"),
		MaxOpenConns:    2,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		BusyTimeout:     time.Second,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv, err := NewServer(provider, store, &Config{OutputRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rr.Code, rr.Body.String())
	}
}

func TestEvaluateStatementOfWork(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	rr := postJSON(t, srv, "/v1/evaluate", evaluateRequest{
		Content:        sowText,
		Filename:       "acme-sow.txt",
		EvaluationType: "statement_of_work",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("evaluate = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Checksum       string                 `json:"checksum"`
		EvaluationType string                 `json:"evaluation_type"`
		Cached         bool                   `json:"cached"`
		Outcome        map[string]interface{} `json:"outcome"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Checksum == "" || resp.Cached {
		t.Fatalf("unexpected response metadata: %+v", resp)
	}
	score, _ := resp.Outcome["overall_score"].(float64)
	if score < 6 {
		t.Errorf("expected high SOW coverage score, got %v", resp.Outcome["overall_score"])
	}

	// Same bytes again come from the cache.
	rr = postJSON(t, srv, "/v1/evaluate", evaluateRequest{
		Content:        sowText,
		Filename:       "acme-sow.txt",
		EvaluationType: "statement_of_work",
	})
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode cached response: %v", err)
	}
	if !resp.Cached {
		t.Error("expected cached response on second evaluation")
	}

	// The run landed in the history.
	req := httptest.NewRequest(http.MethodGet, "/v1/evaluations", nil)
	listRR := httptest.NewRecorder()
	srv.ServeHTTP(listRR, req)
	if listRR.Code != http.StatusOK {
		t.Fatalf("list = %d", listRR.Code)
	}
	var list struct {
		Evaluations []sqlite.EvaluationRecord `json:"evaluations"`
	}
	if err := json.Unmarshal(listRR.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Evaluations) != 1 || list.Evaluations[0].Filename != "acme-sow.txt" {
		t.Fatalf("unexpected history: %+v", list.Evaluations)
	}
}

func TestEvaluateValidation(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	rr := postJSON(t, srv, "/v1/evaluate", evaluateRequest{Filename: "x.txt"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing content = %d, want 400", rr.Code)
	}

	rr = postJSON(t, srv, "/v1/evaluate", evaluateRequest{
		Content:        "text",
		EvaluationType: "unknown_type",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown type = %d, want 400", rr.Code)
	}
}

func TestEvaluateUploadMultipart(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "uploaded-sow.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(sowText)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.WriteField("evaluation_type", "statement_of_work"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluate/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload = %d: %s", rr.Code, rr.Body.String())
	}
	var resp evaluateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EvaluationType != "statement_of_work" || resp.Checksum == "" {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
}

func TestProposalGenerateAndHistory(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{rules: proposalRules()})

	rr := postJSON(t, srv, "/v1/proposal/generate", map[string]interface{}{
		"source_type":  "json",
		"raw_data":     `{"applications": [{"name": "Billing", "technology_stack": ["java"]}, {"name": "Reporting", "technology_stack": ["python"]}]}`,
		"client_name":  "Acme Corp",
		"project_name": "Acme Cloud Migration",
		"target_cloud": "AWS",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("generate = %d: %s", rr.Code, rr.Body.String())
	}
	var outcome struct {
		Success   bool   `json:"success"`
		Converged bool   `json:"converged"`
		Markdown  string `json:"markdown"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if !outcome.Success || !outcome.Converged {
		t.Fatalf("expected successful run: %s", rr.Body.String())
	}
	if !strings.Contains(outcome.Markdown, "Acme Cloud Migration") {
		t.Error("expected project name in markdown")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/proposals", nil)
	listRR := httptest.NewRecorder()
	srv.ServeHTTP(listRR, req)
	if listRR.Code != http.StatusOK {
		t.Fatalf("proposals list = %d", listRR.Code)
	}
	var list struct {
		Proposals []sqlite.ProposalRecord `json:"proposals"`
	}
	if err := json.Unmarshal(listRR.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Proposals) != 1 || list.Proposals[0].ClientName != "Acme Corp" {
		t.Fatalf("unexpected proposal history: %+v", list.Proposals)
	}
	if !list.Proposals[0].Converged {
		t.Error("expected converged run in history")
	}
}

func TestProposalGenerateValidation(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	rr := postJSON(t, srv, "/v1/proposal/generate", map[string]interface{}{
		"client_name": "Acme Corp",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing raw_data = %d, want 400", rr.Code)
	}

	rr = postJSON(t, srv, "/v1/proposal/generate", map[string]interface{}{
		"raw_data": `{"applications": []}`,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing names = %d, want 400", rr.Code)
	}
}

func TestReviewWithInlineContext(t *testing.T) {
	provider := &scriptedProvider{rules: []scriptRule{
		{"migration assessment reviewer", []string{"The grade reflects weak operations coverage."}},
	}}
	srv := newTestServer(t, provider)

	rr := postJSON(t, srv, "/v1/review", map[string]interface{}{
		"question": "Why did the proposal score a B?",
		"evaluation": map[string]interface{}{
			"evaluation_type": "migration_proposal",
			"overall_score":   72.5,
			"grade":           "B",
			"summary":         "Solid plan, weak operations coverage.",
		},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("review = %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp["answer"], "operations coverage") {
		t.Fatalf("unexpected answer: %q", resp["answer"])
	}
}

func TestReviewFromStoredEvaluation(t *testing.T) {
	provider := &scriptedProvider{rules: []scriptRule{
		{"migration assessment reviewer", []string{"Coverage of scope was strong."}},
	}}
	srv := newTestServer(t, provider)

	rr := postJSON(t, srv, "/v1/evaluate", evaluateRequest{
		Content:        sowText,
		Filename:       "acme-sow.txt",
		EvaluationType: "statement_of_work",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("seed evaluation = %d", rr.Code)
	}
	var seeded evaluateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &seeded); err != nil {
		t.Fatalf("decode seed: %v", err)
	}

	rr = postJSON(t, srv, "/v1/review", map[string]interface{}{
		"question":        "How was scope covered?",
		"checksum":        seeded.Checksum,
		"evaluation_type": "statement_of_work",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("review = %d: %s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, srv, "/v1/review", map[string]interface{}{
		"question":        "anything",
		"checksum":        "not-a-real-checksum",
		"evaluation_type": "statement_of_work",
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing record = %d, want 404", rr.Code)
	}
}

func TestReviewValidation(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	rr := postJSON(t, srv, "/v1/review", map[string]interface{}{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing question = %d, want 400", rr.Code)
	}
}

func TestEvaluationsExportFormats(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	rr := postJSON(t, srv, "/v1/evaluate", evaluateRequest{
		Content:        sowText,
		Filename:       "acme-sow.txt",
		EvaluationType: "statement_of_work",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("seed evaluation = %d", rr.Code)
	}

	cases := []struct {
		format      string
		contentType string
		want        string
	}{
		{"json", "application/json", "acme-sow.txt"},
		{"yaml", "application/x-yaml", "acme-sow.txt"},
		{"markdown", "text/markdown", "| acme-sow.txt |"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/evaluations/export?format="+tc.format, nil)
		exportRR := httptest.NewRecorder()
		srv.ServeHTTP(exportRR, req)
		if exportRR.Code != http.StatusOK {
			t.Fatalf("export %s = %d", tc.format, exportRR.Code)
		}
		if got := exportRR.Header().Get("Content-Type"); !strings.HasPrefix(got, tc.contentType) {
			t.Errorf("export %s content type = %q", tc.format, got)
		}
		if !strings.Contains(exportRR.Body.String(), tc.want) {
			t.Errorf("export %s missing %q in body", tc.format, tc.want)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/evaluations/export?format=pdf", nil)
	badRR := httptest.NewRecorder()
	srv.ServeHTTP(badRR, req)
	if badRR.Code != http.StatusBadRequest {
		t.Errorf("unsupported format = %d, want 400", badRR.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	req := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("logs = %d", rr.Code)
	}
	var resp struct {
		Entries []map[string]interface{} `json:"entries"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if len(resp.Entries) == 0 {
		t.Error("expected captured log entries from server construction")
	}
}
