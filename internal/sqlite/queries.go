package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SaveEvaluation persists one evaluation run. A rerun of the same document
// under the same evaluation type replaces the previous record.
func (s *Store) SaveEvaluation(ctx context.Context, record EvaluationRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlite store not initialised")
	}
	if strings.TrimSpace(record.Checksum) == "" {
		return 0, fmt.Errorf("evaluation checksum required")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO evaluations(checksum, filename, evaluation_type, overall_score, grade, result_json)
                VALUES (?, ?, ?, ?, ?, ?)
                ON CONFLICT(checksum, evaluation_type) DO UPDATE SET
                        filename = excluded.filename,
                        overall_score = excluded.overall_score,
                        grade = excluded.grade,
                        result_json = excluded.result_json,
                        updated_at = CURRENT_TIMESTAMP`,
		record.Checksum, record.Filename, record.EvaluationType, record.OverallScore, record.Grade, record.ResultJSON)
	if err != nil {
		return 0, fmt.Errorf("insert evaluation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("evaluation id: %w", err)
	}
	return id, nil
}

// ListEvaluations returns the most recent evaluation runs, newest first. An
// empty evaluationType returns runs of every type.
func (s *Store) ListEvaluations(ctx context.Context, evaluationType string, limit int) ([]EvaluationRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	records := []EvaluationRecord{}
	if strings.TrimSpace(evaluationType) == "" {
		if err := s.db.SelectContext(ctx, &records, `SELECT * FROM evaluations ORDER BY created_at DESC, id DESC LIMIT ?`, limit); err != nil {
			return nil, fmt.Errorf("select evaluations: %w", err)
		}
		return records, nil
	}
	if err := s.db.SelectContext(ctx, &records, `SELECT * FROM evaluations WHERE evaluation_type = ? ORDER BY created_at DESC, id DESC LIMIT ?`, evaluationType, limit); err != nil {
		return nil, fmt.Errorf("select evaluations: %w", err)
	}
	return records, nil
}

// EvaluationByChecksum retrieves a stored run for a document, or nil when the
// document has not been evaluated under that type.
func (s *Store) EvaluationByChecksum(ctx context.Context, checksum, evaluationType string) (*EvaluationRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialised")
	}
	checksum = strings.TrimSpace(checksum)
	if checksum == "" {
		return nil, fmt.Errorf("evaluation checksum required")
	}
	var record EvaluationRecord
	err := s.db.GetContext(ctx, &record, `SELECT * FROM evaluations WHERE checksum = ? AND evaluation_type = ?`, checksum, evaluationType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	return &record, nil
}

// DeleteEvaluation removes a stored run.
func (s *Store) DeleteEvaluation(ctx context.Context, checksum, evaluationType string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialised")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE checksum = ? AND evaluation_type = ?`, checksum, evaluationType); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}

// SaveProposal persists one generation run.
func (s *Store) SaveProposal(ctx context.Context, record ProposalRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlite store not initialised")
	}
	if strings.TrimSpace(record.ClientName) == "" || strings.TrimSpace(record.ProjectName) == "" {
		return 0, fmt.Errorf("proposal client and project names required")
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO proposals(client_name, project_name, converged, iterations, quality_score, feedback_trail, markdown)
                VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ClientName, record.ProjectName, record.Converged, record.Iterations, record.QualityScore, record.FeedbackTrail, record.Markdown)
	if err != nil {
		return 0, fmt.Errorf("insert proposal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("proposal id: %w", err)
	}
	return id, nil
}

// ListProposals returns the most recent generation runs, newest first.
func (s *Store) ListProposals(ctx context.Context, limit int) ([]ProposalRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	records := []ProposalRecord{}
	if err := s.db.SelectContext(ctx, &records, `SELECT * FROM proposals ORDER BY created_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("select proposals: %w", err)
	}
	return records, nil
}
