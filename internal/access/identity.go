package access

// Kind names the table an identity was found in at login
type Kind string

const (
	KindPatient Kind = "patient"
	KindFamily  Kind = "family"
)

// Identity is an authenticated account. The only implementations are
// PatientIdentity and FamilyIdentity.
type Identity interface {
	IdentityID() string
	Kind() Kind
	sealed()
}

// PatientIdentity is a signed-in patient
type PatientIdentity struct {
	ID string
}

func (p PatientIdentity) IdentityID() string { return p.ID }
func (p PatientIdentity) Kind() Kind         { return KindPatient }
func (PatientIdentity) sealed()              {}

// FamilyIdentity is a signed-in family member
type FamilyIdentity struct {
	ID string
}

func (f FamilyIdentity) IdentityID() string { return f.ID }
func (f FamilyIdentity) Kind() Kind         { return KindFamily }
func (FamilyIdentity) sealed()              {}

// NewIdentity builds an identity from a token's id and kind claims
func NewIdentity(id string, kind Kind) (Identity, error) {
	if id == "" {
		return nil, ErrUnknownIdentity
	}
	switch kind {
	case KindPatient:
		return PatientIdentity{ID: id}, nil
	case KindFamily:
		return FamilyIdentity{ID: id}, nil
	default:
		return nil, ErrUnknownIdentity
	}
}
