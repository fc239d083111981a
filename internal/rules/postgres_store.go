package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// PostgresStore persists custom rules in PostgreSQL.
// Schema lives in migrations/001_custom_risk_rules.sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed rule store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rule *Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_risk_rules
			(id, name, description, conditions, risk_score, priority, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rule.ID,
		rule.Name,
		rule.Description,
		conditionsJSON,
		rule.RiskScore,
		rule.Priority,
		rule.Active,
		rule.CreatedBy,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, conditions, risk_score, priority, is_active, created_by, created_at, updated_at
		FROM custom_risk_rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	return rule, err
}

func (s *PostgresStore) Update(ctx context.Context, rule *Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE custom_risk_rules
		SET name = $2, description = $3, conditions = $4, risk_score = $5,
		    priority = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`,
		rule.ID,
		rule.Name,
		rule.Description,
		conditionsJSON,
		rule.RiskScore,
		rule.Priority,
		rule.Active,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Rule, error) {
	query := `
		SELECT id, name, description, conditions, risk_score, priority, is_active, created_by, created_at, updated_at
		FROM custom_risk_rules
		WHERE 1=1`
	var args []any
	if f.Active != nil {
		args = append(args, *f.Active)
		query += " AND is_active = $" + strconv.Itoa(len(args))
	}
	if f.CreatedBy != "" {
		args = append(args, f.CreatedBy)
		query += " AND created_by = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY priority DESC, created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*Rule, error) {
	active := true
	return s.List(ctx, Filter{Active: &active})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var rule Rule
	var conditionsJSON []byte
	var description, createdBy sql.NullString

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&description,
		&conditionsJSON,
		&rule.RiskScore,
		&rule.Priority,
		&rule.Active,
		&createdBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.Description = description.String
	rule.CreatedBy = createdBy.String
	if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshal conditions for %s: %w", rule.ID, err)
	}
	return &rule, nil
}
