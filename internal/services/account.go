package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"memory-tracker-backend/internal/access"
	"memory-tracker-backend/internal/models"
	"memory-tracker-backend/internal/repository"
	"memory-tracker-backend/internal/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// PatientStore is the patients table
type PatientStore interface {
	Create(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, id string) (*models.Patient, error)
	GetByMobile(ctx context.Context, mobile string) (*models.Patient, error)
	GetByEmail(ctx context.Context, email string) (*models.Patient, error)
	UpdatePushToken(ctx context.Context, patientID string, pushToken *string) error
}

// FamilyStore is the family_members table
type FamilyStore interface {
	Create(ctx context.Context, member *models.FamilyMember) error
	GetByID(ctx context.Context, id string) (*models.FamilyMember, error)
	GetByEmail(ctx context.Context, email string) (*models.FamilyMember, error)
	ListByPatientID(ctx context.Context, patientID string) ([]*models.FamilyMember, error)
	UpdatePushToken(ctx context.Context, memberID string, pushToken *string) error
}

// LoginLimiter throttles failed logins per key
type LoginLimiter interface {
	Check(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// AccountService registers, authenticates and describes accounts
type AccountService struct {
	patients   PatientStore
	families   FamilyStore
	limiter    LoginLimiter
	validate   *validator.Validator
	jwtSecret  string
	jwtExpires time.Duration
}

// NewAccountService creates a new account service. limiter may be nil.
func NewAccountService(
	patients PatientStore,
	families FamilyStore,
	limiter LoginLimiter,
	validate *validator.Validator,
	jwtSecret string,
	jwtExpires time.Duration,
) *AccountService {
	return &AccountService{
		patients:   patients,
		families:   families,
		limiter:    limiter,
		validate:   validate,
		jwtSecret:  jwtSecret,
		jwtExpires: jwtExpires,
	}
}

// RegisterPatientRequest represents a patient registration
type RegisterPatientRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Mobile   string `json:"mobile" validate:"required,mobile"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// RegisterFamilyRequest represents a family member registration
type RegisterFamilyRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Mobile        string `json:"mobile" validate:"required,mobile"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6,max=72"`
	Relationship  string `json:"relationship" validate:"required,max=50"`
	PatientMobile string `json:"patient_mobile" validate:"required,mobile"`
}

// LoginRequest represents a login with email and password
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by registration and login
type AuthResponse struct {
	Token        string               `json:"token"`
	Kind         access.Kind          `json:"kind"`
	SubjectID    string               `json:"subject_id"`
	Patient      *models.Patient      `json:"patient"`
	FamilyMember *models.FamilyMember `json:"family_member,omitempty"`
}

// Profile describes the signed-in account and the accounts linked to it
type Profile struct {
	Kind          access.Kind            `json:"kind"`
	SubjectID     string                 `json:"subject_id"`
	Patient       *models.Patient        `json:"patient"`
	FamilyMember  *models.FamilyMember   `json:"family_member,omitempty"`
	FamilyMembers []*models.FamilyMember `json:"family_members"`
}

// RegisterPatient creates a patient account
func (s *AccountService) RegisterPatient(ctx context.Context, req RegisterPatientRequest) (*AuthResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, invalid(err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	patient := &models.Patient{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Mobile:       validator.NormalizeMobile(req.Mobile),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := s.patients.Create(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, storeErr(err)
	}

	token, err := s.GenerateJWT(patient.ID, access.KindPatient)
	if err != nil {
		return nil, err
	}

	log.Info().Str("patient_id", patient.ID).Msg("Patient registered")

	return &AuthResponse{
		Token:     token,
		Kind:      access.KindPatient,
		SubjectID: patient.ID,
		Patient:   patient,
	}, nil
}

// RegisterFamilyMember creates a family account linked to the patient
// whose mobile number matches req.PatientMobile
func (s *AccountService) RegisterFamilyMember(ctx context.Context, req RegisterFamilyRequest) (*AuthResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, invalid(err)
	}

	patientMobile := validator.NormalizeMobile(req.PatientMobile)
	patient, err := s.patients.GetByMobile(ctx, patientMobile)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, storeErr(err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	member := &models.FamilyMember{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(req.Name),
		Mobile:        validator.NormalizeMobile(req.Mobile),
		Email:         strings.TrimSpace(req.Email),
		Relationship:  strings.TrimSpace(req.Relationship),
		PatientID:     patient.ID,
		PatientMobile: patientMobile,
		PasswordHash:  hash,
		CreatedAt:     time.Now(),
	}

	if err := s.families.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyRegistered
		}
		return nil, storeErr(err)
	}

	token, err := s.GenerateJWT(member.ID, access.KindFamily)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("family_id", member.ID).
		Str("patient_id", patient.ID).
		Msg("Family member registered")

	return &AuthResponse{
		Token:        token,
		Kind:         access.KindFamily,
		SubjectID:    patient.ID,
		Patient:      withoutPatientPushToken(patient),
		FamilyMember: member,
	}, nil
}

// LoginPatient authenticates a patient
func (s *AccountService) LoginPatient(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, invalid(err)
	}

	key := "patient:" + strings.ToLower(req.Email)
	if err := s.checkLimit(ctx, key); err != nil {
		return nil, err
	}

	patient, err := s.patients.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(patient.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.resetLimit(ctx, key)

	token, err := s.GenerateJWT(patient.ID, access.KindPatient)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:     token,
		Kind:      access.KindPatient,
		SubjectID: patient.ID,
		Patient:   patient,
	}, nil
}

// LoginFamilyMember authenticates a family member and loads the linked patient
func (s *AccountService) LoginFamilyMember(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, invalid(err)
	}

	key := "family:" + strings.ToLower(req.Email)
	if err := s.checkLimit(ctx, key); err != nil {
		return nil, err
	}

	member, err := s.families.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	s.resetLimit(ctx, key)

	patient, err := s.linkedPatient(ctx, member)
	if err != nil {
		return nil, err
	}

	token, err := s.GenerateJWT(member.ID, access.KindFamily)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:        token,
		Kind:         access.KindFamily,
		SubjectID:    patient.ID,
		Patient:      withoutPatientPushToken(patient),
		FamilyMember: member,
	}, nil
}

// Profile returns the account behind identity together with its links
func (s *AccountService) Profile(ctx context.Context, identity access.Identity) (*Profile, error) {
	switch id := identity.(type) {
	case access.PatientIdentity:
		patient, err := s.patients.GetByID(ctx, id.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, access.ErrUnknownIdentity
			}
			return nil, storeErr(err)
		}
		members, err := s.families.ListByPatientID(ctx, patient.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		linked := make([]*models.FamilyMember, 0, len(members))
		for _, member := range members {
			linked = append(linked, withoutFamilyPushToken(member))
		}
		return &Profile{
			Kind:          access.KindPatient,
			SubjectID:     patient.ID,
			Patient:       patient,
			FamilyMembers: linked,
		}, nil

	case access.FamilyIdentity:
		member, err := s.families.GetByID(ctx, id.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, access.ErrUnlinkedFamilyMember
			}
			return nil, storeErr(err)
		}
		patient, err := s.linkedPatient(ctx, member)
		if err != nil {
			return nil, err
		}
		return &Profile{
			Kind:          access.KindFamily,
			SubjectID:     patient.ID,
			Patient:       withoutPatientPushToken(patient),
			FamilyMember:  member,
			FamilyMembers: []*models.FamilyMember{},
		}, nil

	default:
		return nil, access.ErrUnknownIdentity
	}
}

// UpdatePushToken stores the device token used for push notifications.
// An empty token clears it.
func (s *AccountService) UpdatePushToken(ctx context.Context, identity access.Identity, pushToken string) error {
	var token *string
	if pushToken != "" {
		token = &pushToken
	}

	var err error
	switch id := identity.(type) {
	case access.PatientIdentity:
		err = s.patients.UpdatePushToken(ctx, id.ID, token)
	case access.FamilyIdentity:
		err = s.families.UpdatePushToken(ctx, id.ID, token)
	default:
		return access.ErrUnknownIdentity
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return access.ErrUnknownIdentity
		}
		return storeErr(err)
	}
	return nil
}

// Device tokens are only shown to their owner.
func withoutPatientPushToken(patient *models.Patient) *models.Patient {
	linked := *patient
	linked.PushToken = nil
	return &linked
}

func withoutFamilyPushToken(member *models.FamilyMember) *models.FamilyMember {
	linked := *member
	linked.PushToken = nil
	return &linked
}

func (s *AccountService) linkedPatient(ctx context.Context, member *models.FamilyMember) (*models.Patient, error) {
	if member.PatientID == "" {
		return nil, access.ErrUnlinkedFamilyMember
	}
	patient, err := s.patients.GetByID(ctx, member.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, access.ErrUnlinkedFamilyMember
		}
		return nil, storeErr(err)
	}
	return patient, nil
}

func (s *AccountService) checkLimit(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Check(ctx, key); err != nil {
		if errors.Is(err, ErrTooManyAttempts) {
			return err
		}
		// Limiter outages do not block logins.
		log.Warn().Err(err).Msg("Login rate limiter unavailable")
	}
	return nil
}

func (s *AccountService) resetLimit(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, key); err != nil {
		log.Warn().Err(err).Msg("Failed to reset login attempts")
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// GenerateJWT generates a JWT token for an account of the given kind
func (s *AccountService) GenerateJWT(userID string, kind access.Kind) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"kind":    string(kind),
		"exp":     now.Add(s.jwtExpires).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the identity it carries
func (s *AccountService) ValidateJWT(tokenString string) (access.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	kind, _ := claims["kind"].(string)

	return access.NewIdentity(userID, access.Kind(kind))
}
