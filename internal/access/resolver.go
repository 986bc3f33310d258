package access

import (
	"context"
	"errors"
	"fmt"

	"memory-tracker-backend/internal/models"
	"memory-tracker-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// Action is an operation on a memory
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// FamilyMemberLookup finds family member rows by identity id.
// It returns repository.ErrNotFound when no row exists.
type FamilyMemberLookup interface {
	GetByID(ctx context.Context, id string) (*models.FamilyMember, error)
}

// SubjectCache caches family identity -> patient id links.
// A miss is reported as ok == false with a nil error.
type SubjectCache interface {
	GetSubject(ctx context.Context, identityID string) (subjectID string, ok bool, err error)
	SetSubject(ctx context.Context, identityID, subjectID string) error
}

// Resolver maps identities to the patient whose memories they act on
type Resolver struct {
	families FamilyMemberLookup
	cache    SubjectCache
}

// NewResolver creates a new resolver. cache may be nil.
func NewResolver(families FamilyMemberLookup, cache SubjectCache) *Resolver {
	return &Resolver{
		families: families,
		cache:    cache,
	}
}

// ResolveSubject returns the patient id that scopes every memory
// operation performed by identity
func (r *Resolver) ResolveSubject(ctx context.Context, identity Identity) (string, error) {
	switch id := identity.(type) {
	case PatientIdentity:
		if id.ID == "" {
			return "", ErrUnknownIdentity
		}
		return id.ID, nil
	case FamilyIdentity:
		if id.ID == "" {
			return "", ErrUnknownIdentity
		}
		return r.resolveFamily(ctx, id.ID)
	default:
		return "", ErrUnknownIdentity
	}
}

func (r *Resolver) resolveFamily(ctx context.Context, familyID string) (string, error) {
	if r.cache != nil {
		subjectID, ok, err := r.cache.GetSubject(ctx, familyID)
		if err != nil {
			log.Warn().Err(err).Str("family_id", familyID).Msg("Subject cache read failed")
		} else if ok && subjectID != "" {
			return subjectID, nil
		}
	}

	member, err := r.families.GetByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUnlinkedFamilyMember
		}
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if member == nil || member.PatientID == "" {
		return "", ErrUnlinkedFamilyMember
	}

	if r.cache != nil {
		if err := r.cache.SetSubject(ctx, familyID, member.PatientID); err != nil {
			log.Warn().Err(err).Str("family_id", familyID).Msg("Subject cache write failed")
		}
	}

	return member.PatientID, nil
}

// Authorize checks that identity may perform action on memory and returns
// the subject id. For ActionCreate memory is ignored and the returned id is
// the user_id the new memory must carry. For the other actions a memory
// outside the subject yields ErrNotFound.
func (r *Resolver) Authorize(ctx context.Context, identity Identity, action Action, memory *models.Memory) (string, error) {
	subjectID, err := r.ResolveSubject(ctx, identity)
	if err != nil {
		return "", err
	}

	switch action {
	case ActionCreate:
		return subjectID, nil
	case ActionRead, ActionUpdate, ActionDelete:
		if memory == nil || memory.UserID != subjectID {
			return "", ErrNotFound
		}
		return subjectID, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}
