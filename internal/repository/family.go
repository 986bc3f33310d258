package repository

import (
	"context"
	"fmt"

	"memory-tracker-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FamilyMemberRepository handles database operations for family members
type FamilyMemberRepository struct {
	db *pgxpool.Pool
}

// NewFamilyMemberRepository creates a new family member repository
func NewFamilyMemberRepository(db *pgxpool.Pool) *FamilyMemberRepository {
	return &FamilyMemberRepository{db: db}
}

const familyColumns = `id, name, mobile, email, relationship, patient_id, patient_mobile, password_hash, push_token, created_at`

// Create creates a new family member. patient_id must reference an existing patient.
func (r *FamilyMemberRepository) Create(ctx context.Context, member *models.FamilyMember) error {
	query := `
		INSERT INTO family_members (` + familyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		member.ID, member.Name, member.Mobile, member.Email, member.Relationship,
		member.PatientID, member.PatientMobile, member.PasswordHash, member.PushToken, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create family member: %w", translate(err))
	}
	return nil
}

// GetByID retrieves a family member by ID
func (r *FamilyMemberRepository) GetByID(ctx context.Context, id string) (*models.FamilyMember, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail retrieves a family member by email
func (r *FamilyMemberRepository) GetByEmail(ctx context.Context, email string) (*models.FamilyMember, error) {
	return r.getOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (r *FamilyMemberRepository) getOne(ctx context.Context, where string, arg any) (*models.FamilyMember, error) {
	query := `SELECT ` + familyColumns + ` FROM family_members ` + where
	var member models.FamilyMember
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&member.ID, &member.Name, &member.Mobile, &member.Email, &member.Relationship,
		&member.PatientID, &member.PatientMobile, &member.PasswordHash, &member.PushToken, &member.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", translate(err))
	}
	return &member, nil
}

// ListByPatientID retrieves every family member linked to a patient
func (r *FamilyMemberRepository) ListByPatientID(ctx context.Context, patientID string) ([]*models.FamilyMember, error) {
	query := `SELECT ` + familyColumns + ` FROM family_members WHERE patient_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	defer rows.Close()

	var members []*models.FamilyMember
	for rows.Next() {
		var member models.FamilyMember
		err := rows.Scan(
			&member.ID, &member.Name, &member.Mobile, &member.Email, &member.Relationship,
			&member.PatientID, &member.PatientMobile, &member.PasswordHash, &member.PushToken, &member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating family members: %w", err)
	}

	return members, nil
}

// UpdatePushToken updates the push token for a family member
func (r *FamilyMemberRepository) UpdatePushToken(ctx context.Context, memberID string, pushToken *string) error {
	query := `UPDATE family_members SET push_token = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, pushToken, memberID)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to update push token: %w", ErrNotFound)
	}
	return nil
}
