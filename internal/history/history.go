// Package history persists scored assessments and crisis alerts in Postgres.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/severity"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when an assessment does not exist.
var ErrNotFound = errors.New("assessment not found")

// CrisisMessage is stored with every alert raised for a Critical result.
const CrisisMessage = "User assessment indicates critical mental health status requiring immediate attention"

const schema = `
CREATE TABLE IF NOT EXISTS assessments (
	id                    UUID PRIMARY KEY,
	created_at            TIMESTAMPTZ NOT NULL,
	success               BOOLEAN NOT NULL,
	predicted_status      TEXT,
	prediction_confidence DOUBLE PRECISION,
	risk_level            TEXT,
	risk_factors          TEXT[],
	recommendations       TEXT[],
	requires_intervention BOOLEAN NOT NULL DEFAULT FALSE,
	error                 TEXT,
	input                 JSONB
);
CREATE TABLE IF NOT EXISTS alerts (
	id            UUID PRIMARY KEY,
	assessment_id UUID NOT NULL REFERENCES assessments(id),
	alert_type    TEXT NOT NULL,
	severity      TEXT NOT NULL,
	alert_message TEXT NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);`

const (
	insertAssessment = `INSERT INTO assessments (id, created_at, success, predicted_status, prediction_confidence, risk_level, risk_factors, recommendations, requires_intervention, error, input) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	insertAlert      = `INSERT INTO alerts (id, assessment_id, alert_type, severity, alert_message, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	selectColumns    = `SELECT id, created_at, success, predicted_status, prediction_confidence, risk_level, risk_factors, recommendations, requires_intervention, error, input FROM assessments`
	selectAlerts     = `SELECT id, assessment_id, alert_type, severity, alert_message, status, created_at FROM alerts ORDER BY created_at DESC LIMIT $1`
)

// Assessment is one stored prediction.
type Assessment struct {
	ID                   uuid.UUID     `json:"id"`
	CreatedAt            time.Time     `json:"created_at"`
	Success              bool          `json:"success"`
	PredictedStatus      string        `json:"predicted_status,omitempty"`
	Confidence           float64       `json:"prediction_confidence,omitempty"`
	RiskLevel            string        `json:"risk_level,omitempty"`
	RiskFactors          []string      `json:"risk_factors,omitempty"`
	Recommendations      []string      `json:"recommendations,omitempty"`
	RequiresIntervention bool          `json:"requires_intervention"`
	Error                string        `json:"error,omitempty"`
	Input                record.Record `json:"input,omitempty"`
}

// Alert flags an assessment that needs immediate attention.
type Alert struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Type         string    `json:"alert_type"`
	Severity     string    `json:"severity"`
	Message      string    `json:"alert_message"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is a Postgres-backed assessment history.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() uuid.UUID
}

// Open connects to Postgres using dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return New(db), nil
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now, newID: uuid.New}
}

// Ping tests the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// Save stores a scored record. A Critical result also raises an alert in
// the same transaction.
func (s *Store) Save(ctx context.Context, rec record.Record, res predict.Result) (*Assessment, error) {
	a := &Assessment{
		ID:                   s.newID(),
		CreatedAt:            s.now().UTC(),
		Success:              res.Success,
		RequiresIntervention: res.RequiresIntervention(),
		Error:                res.Error,
		Input:                rec,
	}
	if res.Success {
		a.PredictedStatus = res.Prediction.String()
		a.Confidence = res.Confidence
		a.RiskLevel = string(res.RiskLevel)
		a.RiskFactors = res.RiskFactors
		a.Recommendations = res.Recommendations
	}

	input, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertAssessment,
		a.ID, a.CreatedAt, a.Success,
		nullString(a.PredictedStatus), a.Confidence, nullString(a.RiskLevel),
		pq.Array(a.RiskFactors), pq.Array(a.Recommendations),
		a.RequiresIntervention, nullString(a.Error), input,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert assessment: %w", err)
	}

	if res.Success && res.RiskLevel == severity.RiskCritical {
		_, err = tx.ExecContext(ctx, insertAlert,
			s.newID(), a.ID, "Crisis", string(severity.RiskCritical), CrisisMessage, "New", a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert alert: %w", err)
		}
		log.Warn().Str("assessment_id", a.ID.String()).Msg("Critical assessment, alert raised")
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit assessment: %w", err)
	}
	return a, nil
}

// List returns the most recent assessments, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read assessments: %w", err)
	}
	return out, nil
}

// Get returns one assessment by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Alerts returns the most recent alerts, newest first.
func (s *Store) Alerts(ctx context.Context, limit int) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx, selectAlerts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var al Alert
		if err := rows.Scan(&al.ID, &al.AssessmentID, &al.Type, &al.Severity, &al.Message, &al.Status, &al.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		out = append(out, al)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row scanner) (*Assessment, error) {
	var (
		a                   Assessment
		status, level, errS sql.NullString
		confidence          sql.NullFloat64
		factors, recs       pq.StringArray
		input               []byte
	)
	err := row.Scan(&a.ID, &a.CreatedAt, &a.Success, &status, &confidence, &level,
		&factors, &recs, &a.RequiresIntervention, &errS, &input)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assessment: %w", err)
	}

	a.PredictedStatus = status.String
	a.Confidence = confidence.Float64
	a.RiskLevel = level.String
	a.Error = errS.String
	a.RiskFactors = factors
	a.Recommendations = recs
	if len(input) > 0 {
		if err := json.Unmarshal(input, &a.Input); err != nil {
			return nil, fmt.Errorf("failed to decode input: %w", err)
		}
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
