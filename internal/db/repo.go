package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"triage-chatbot/pkg"
)

// ErrNotFound is returned when a user or record does not exist.
var ErrNotFound = errors.New("not found")

// ErrBadCredentials covers both unknown usernames and wrong passwords, so
// login responses cannot be used to enumerate accounts.
var ErrBadCredentials = errors.New("invalid username or password")

// Repository wraps database operations for accounts and diagnosis history.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreateUser registers a new account with a bcrypt-hashed password.
func (r *Repository) CreateUser(ctx context.Context, username, password string) (*pkg.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	var u pkg.User
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO users (id, username, password_hash)
         VALUES ($1, $2, $3)
         RETURNING id, username, created_at`,
		uuid.New(), username, string(hash),
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("username %q is taken", username)
		}
		return nil, err
	}
	return &u, nil
}

// Authenticate verifies credentials and returns the account on success.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (*pkg.User, error) {
	var u pkg.User
	var hash string
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at
         FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return &u, nil
}

// GetUser loads a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (*pkg.User, error) {
	var u pkg.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertDiagnosis appends one completed diagnosis to the user's history.
func (r *Repository) InsertDiagnosis(ctx context.Context, rec *pkg.DiagnosisRecord) error {
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO diagnoses
           (user_id, patient_name, symptoms, initial_label, initial_confidence,
            final_label, final_confidence)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at`,
		rec.UserID, rec.PatientName, pq.Array(rec.Symptoms),
		rec.InitialLabel, rec.InitialConfidence,
		rec.FinalLabel, rec.FinalConfidence,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// ListDiagnoses returns the user's history, newest first.
func (r *Repository) ListDiagnoses(ctx context.Context, userID string, limit int) ([]pkg.DiagnosisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, patient_name, symptoms, initial_label,
                initial_confidence, final_label, final_confidence, created_at
         FROM diagnoses
         WHERE user_id = $1
         ORDER BY created_at DESC
         LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pkg.DiagnosisRecord
	for rows.Next() {
		var rec pkg.DiagnosisRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.PatientName, pq.Array(&rec.Symptoms),
			&rec.InitialLabel, &rec.InitialConfidence,
			&rec.FinalLabel, &rec.FinalConfidence, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
