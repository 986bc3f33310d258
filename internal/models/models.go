package models

import "time"

// MemoryType is the kind of content a memory holds
type MemoryType string

const (
	MemoryTypePhoto MemoryType = "photo"
	MemoryTypeVoice MemoryType = "voice"
	MemoryTypeText  MemoryType = "text"
)

// PhotoFilter is a display hint applied to photo memories
type PhotoFilter string

const (
	FilterNone     PhotoFilter = "none"
	FilterPolaroid PhotoFilter = "polaroid"
	FilterSepia    PhotoFilter = "sepia"
	FilterVintage  PhotoFilter = "vintage"
)

// Patient represents a patient account. Its ID equals the identity token.
type Patient struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Mobile       string    `json:"mobile"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PushToken    *string   `json:"push_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// FamilyMember represents a family account linked to exactly one patient
type FamilyMember struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Mobile        string    `json:"mobile"`
	Email         string    `json:"email"`
	Relationship  string    `json:"relationship"`
	PatientID     string    `json:"patient_id"`
	PatientMobile string    `json:"patient_mobile"`
	PasswordHash  string    `json:"-"`
	PushToken     *string   `json:"push_token,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Memory is a photo, voice or text record owned by a patient.
// UserID is always the patient's id, whoever created it.
type Memory struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Content     string      `json:"content"`
	Date        time.Time   `json:"date"`
	Type        MemoryType  `json:"type"`
	Location    string      `json:"location,omitempty"`
	People      []string    `json:"people"`
	Filter      PhotoFilter `json:"filter"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// MemoryPatch holds the fields of a memory update; nil fields are left as is
type MemoryPatch struct {
	Title       *string
	Description *string
	Content     *string
	Date        *time.Time
	Type        *MemoryType
	Location    *string
	People      *[]string
	Filter      *PhotoFilter
}
