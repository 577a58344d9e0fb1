package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitbuilder587/code-review-agent/internal/domain"
)

type ReviewRepo struct {
	db *DB
}

func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) SaveSummary(ctx context.Context, summary *domain.ReviewSummary) error {
	query := `
		INSERT INTO reviews (
			run_id, filename, language, status, overall_score, overall_severity,
			total_findings, critical_count, warning_count, info_count, narrative, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		summary.RunID,
		summary.Filename,
		summary.Language,
		summary.Status.String(),
		summary.OverallScore,
		summary.OverallSeverity.String(),
		summary.TotalFindings,
		summary.CriticalCount,
		summary.WarningCount,
		summary.InfoCount,
		summary.Narrative,
		summary.CreatedAt,
	).Scan(&summary.CreatedAt)

	if err != nil {
		if isDuplicateError(err) {
			return domain.ErrStageConflict
		}
		return fmt.Errorf("save review summary: %w", err)
	}

	return nil
}

func (r *ReviewRepo) GetSummary(ctx context.Context, runID string) (*domain.ReviewSummary, error) {
	query := `
		SELECT run_id, filename, language, status, overall_score, overall_severity,
		       total_findings, critical_count, warning_count, info_count, narrative, created_at
		FROM reviews
		WHERE run_id = $1
	`

	var s domain.ReviewSummary
	var status, severity string
	err := r.db.Pool.QueryRow(ctx, query, runID).Scan(
		&s.RunID,
		&s.Filename,
		&s.Language,
		&status,
		&s.OverallScore,
		&severity,
		&s.TotalFindings,
		&s.CriticalCount,
		&s.WarningCount,
		&s.InfoCount,
		&s.Narrative,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	s.Status = domain.Status(status)
	s.OverallSeverity = domain.Severity(severity)
	return &s, nil
}

func (r *ReviewRepo) ListRecent(ctx context.Context, limit int) ([]domain.ReviewSummary, error) {
	query := `
		SELECT run_id, filename, language, status, overall_score, overall_severity,
		       total_findings, critical_count, warning_count, info_count, narrative, created_at
		FROM reviews
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent reviews: %w", err)
	}
	defer rows.Close()

	var out []domain.ReviewSummary
	for rows.Next() {
		var s domain.ReviewSummary
		var status, severity string
		if err := rows.Scan(
			&s.RunID,
			&s.Filename,
			&s.Language,
			&status,
			&s.OverallScore,
			&severity,
			&s.TotalFindings,
			&s.CriticalCount,
			&s.WarningCount,
			&s.InfoCount,
			&s.Narrative,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review summary: %w", err)
		}
		s.Status = domain.Status(status)
		s.OverallSeverity = domain.Severity(severity)
		out = append(out, s)
	}

	return out, rows.Err()
}

func (r *ReviewRepo) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	query := `SELECT status, COUNT(*) FROM reviews GROUP BY status`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count reviews by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.Status(status)] = n
	}

	return counts, rows.Err()
}

// isDuplicateError checks if the error is a PostgreSQL unique constraint violation
func isDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
