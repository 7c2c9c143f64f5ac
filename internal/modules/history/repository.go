package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/qpricing/internal/database"
	"github.com/aristath/qpricing/internal/domain"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit
const DefaultRecentLimit = 20

// Repository handles run journal database operations
// Database: journal.db (runs table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new run journal repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
		now: time.Now,
	}
}

// Save inserts a run record. A missing ID or timestamp is filled in and the
// stored record is returned.
func (r *Repository) Save(ctx context.Context, rec RunRecord) (RunRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return rec, fmt.Errorf("invalid run id %q: %w", rec.ID, err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	p := rec.Parameters
	query := `
		INSERT INTO runs (
			id, created_at, option_type, spot, volatility, rate, days, strike,
			uncertainty_qubits, evaluation_qubits,
			exact_value, estimated_value, value_probability,
			exact_delta, estimated_delta, delta_probability,
			backend, chart_dir
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			rec.ID,
			rec.CreatedAt.UnixMilli(),
			string(p.Type),
			p.Spot,
			p.Volatility,
			p.Rate,
			p.Days,
			p.Strike,
			rec.UncertaintyQubits,
			rec.EvaluationQubits,
			rec.ExactValue,
			rec.EstimatedValue,
			rec.ValueProbability,
			rec.ExactDelta,
			rec.EstimatedDelta,
			rec.DeltaProbability,
			rec.Backend,
			rec.ChartDir,
		)
		return err
	})
	if err != nil {
		return rec, fmt.Errorf("failed to save run %s: %w", rec.ID, err)
	}

	r.log.Debug().Str("run_id", rec.ID).Msg("Run journaled")
	return rec, nil
}

// Recent returns the most recent runs, newest first
func (r *Repository) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := `
		SELECT id, created_at, option_type, spot, volatility, rate, days, strike,
			uncertainty_qubits, evaluation_qubits,
			exact_value, estimated_value, value_probability,
			exact_delta, estimated_delta, delta_probability,
			backend, chart_dir
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var createdAtMillis int64
		var optionType string

		if err := rows.Scan(
			&rec.ID,
			&createdAtMillis,
			&optionType,
			&rec.Parameters.Spot,
			&rec.Parameters.Volatility,
			&rec.Parameters.Rate,
			&rec.Parameters.Days,
			&rec.Parameters.Strike,
			&rec.UncertaintyQubits,
			&rec.EvaluationQubits,
			&rec.ExactValue,
			&rec.EstimatedValue,
			&rec.ValueProbability,
			&rec.ExactDelta,
			&rec.EstimatedDelta,
			&rec.DeltaProbability,
			&rec.Backend,
			&rec.ChartDir,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.CreatedAt = time.UnixMilli(createdAtMillis).UTC()
		rec.Parameters.Type = domain.OptionType(optionType)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return records, nil
}
