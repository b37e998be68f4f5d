package sqlite

import "time"

// EvaluationRecord is one persisted evaluation run, keyed by the document
// checksum and evaluation type so reruns of the same upload update in place.
type EvaluationRecord struct {
	ID             int64     `db:"id"`
	Checksum       string    `db:"checksum"`
	Filename       string    `db:"filename"`
	EvaluationType string    `db:"evaluation_type"`
	OverallScore   float64   `db:"overall_score"`
	Grade          string    `db:"grade"`
	ResultJSON     string    `db:"result_json"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ProposalRecord is one persisted generation run.
type ProposalRecord struct {
	ID            int64     `db:"id"`
	ClientName    string    `db:"client_name"`
	ProjectName   string    `db:"project_name"`
	Converged     bool      `db:"converged"`
	Iterations    int       `db:"iterations"`
	QualityScore  float64   `db:"quality_score"`
	FeedbackTrail string    `db:"feedback_trail"`
	Markdown      string    `db:"markdown"`
	CreatedAt     time.Time `db:"created_at"`
}
