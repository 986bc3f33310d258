package repository

import (
	"context"
	"fmt"

	"memory-tracker-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PatientRepository handles database operations for patients
type PatientRepository struct {
	db *pgxpool.Pool
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *pgxpool.Pool) *PatientRepository {
	return &PatientRepository{db: db}
}

const patientColumns = `id, name, mobile, email, password_hash, push_token, created_at`

// Create creates a new patient
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		patient.ID, patient.Name, patient.Mobile, patient.Email,
		patient.PasswordHash, patient.PushToken, patient.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a patient by ID
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByMobile retrieves a patient by normalised mobile number
func (r *PatientRepository) GetByMobile(ctx context.Context, mobile string) (*models.Patient, error) {
	return r.getOne(ctx, `WHERE mobile = $1`, mobile)
}

// GetByEmail retrieves a patient by email
func (r *PatientRepository) GetByEmail(ctx context.Context, email string) (*models.Patient, error) {
	return r.getOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (r *PatientRepository) getOne(ctx context.Context, where string, arg any) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ` + where
	var patient models.Patient
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&patient.ID, &patient.Name, &patient.Mobile, &patient.Email,
		&patient.PasswordHash, &patient.PushToken, &patient.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", translate(err))
	}
	return &patient, nil
}

// UpdatePushToken updates the push token for a patient
func (r *PatientRepository) UpdatePushToken(ctx context.Context, patientID string, pushToken *string) error {
	query := `UPDATE patients SET push_token = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, pushToken, patientID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to update push token: %w", ErrNotFound)
	}
	return nil
}
