package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresRecordStore persists assessment records in PostgreSQL.
// Schema lives in migrations/002_risk_assessments.sql.
type PostgresRecordStore struct {
	db *sql.DB
}

// NewPostgresRecordStore creates a PostgreSQL-backed record store.
func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

func (s *PostgresRecordStore) Record(ctx context.Context, rec *Record) error {
	assessmentJSON, err := json.Marshal(rec.Assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	decisionJSON, err := json.Marshal(rec.Decision)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments
			(id, transaction_id, user_id, score, level, action, assessment, decision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID,
		rec.TransactionID,
		rec.UserID,
		rec.Assessment.Score,
		string(rec.Assessment.Level),
		string(rec.Decision.Action),
		assessmentJSON,
		decisionJSON,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record risk assessment: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) ListByTransaction(ctx context.Context, transactionID string) ([]*Record, error) {
	return s.list(ctx, `
		SELECT id, transaction_id, user_id, assessment, decision, created_at
		FROM risk_assessments
		WHERE transaction_id = $1
		ORDER BY created_at DESC
	`, transactionID)
}

func (s *PostgresRecordStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, `
		SELECT id, transaction_id, user_id, assessment, decision, created_at
		FROM risk_assessments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
}

func (s *PostgresRecordStore) list(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list risk assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Record
	for rows.Next() {
		var rec Record
		var assessmentJSON, decisionJSON []byte
		if err := rows.Scan(&rec.ID, &rec.TransactionID, &rec.UserID, &assessmentJSON, &decisionJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan risk assessment: %w", err)
		}
		if err := json.Unmarshal(assessmentJSON, &rec.Assessment); err != nil {
			return nil, fmt.Errorf("unmarshal assessment %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal(decisionJSON, &rec.Decision); err != nil {
			return nil, fmt.Errorf("unmarshal decision %s: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
