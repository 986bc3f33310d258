package access

import (
	"context"
	"errors"
	"testing"

	"memory-tracker-backend/internal/models"
	"memory-tracker-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFamilies struct {
	rows  map[string]*models.FamilyMember
	err   error
	calls int
}

func (f *fakeFamilies) GetByID(_ context.Context, id string) (*models.FamilyMember, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	member, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return member, nil
}

type fakeCache struct {
	entries map[string]string
	getErr  error
	sets    int
}

func (c *fakeCache) GetSubject(_ context.Context, identityID string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	subjectID, ok := c.entries[identityID]
	return subjectID, ok, nil
}

func (c *fakeCache) SetSubject(_ context.Context, identityID, subjectID string) error {
	c.sets++
	c.entries[identityID] = subjectID
	return nil
}

func newFamilies() *fakeFamilies {
	return &fakeFamilies{rows: map[string]*models.FamilyMember{
		"f1": {ID: "f1", PatientID: "p1"},
		"f2": {ID: "f2", PatientID: "p2"},
		"f4": {ID: "f4", PatientID: ""},
	}}
}

func TestResolveSubject(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		want     string
		wantErr  error
	}{
		{name: "patient_is_own_subject", identity: PatientIdentity{ID: "p1"}, want: "p1"},
		{name: "family_resolves_to_patient", identity: FamilyIdentity{ID: "f1"}, want: "p1"},
		{name: "other_family_other_patient", identity: FamilyIdentity{ID: "f2"}, want: "p2"},
		{name: "family_without_row", identity: FamilyIdentity{ID: "f3"}, wantErr: ErrUnlinkedFamilyMember},
		{name: "family_with_empty_patient", identity: FamilyIdentity{ID: "f4"}, wantErr: ErrUnlinkedFamilyMember},
		{name: "nil_identity", identity: nil, wantErr: ErrUnknownIdentity},
		{name: "empty_patient_id", identity: PatientIdentity{}, wantErr: ErrUnknownIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(newFamilies(), nil)

			got, err := r.ResolveSubject(context.Background(), tt.identity)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSubject_PatientNeedsNoLookup(t *testing.T) {
	families := newFamilies()
	r := NewResolver(families, nil)

	_, err := r.ResolveSubject(context.Background(), PatientIdentity{ID: "p9"})

	require.NoError(t, err)
	assert.Zero(t, families.calls)
}

func TestResolveSubject_StoreFailure(t *testing.T) {
	families := &fakeFamilies{err: errors.New("connection refused")}
	r := NewResolver(families, nil)

	_, err := r.ResolveSubject(context.Background(), FamilyIdentity{ID: "f1"})

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrUnlinkedFamilyMember)
}

func TestResolveSubject_Idempotent(t *testing.T) {
	r := NewResolver(newFamilies(), nil)
	identity := FamilyIdentity{ID: "f1"}

	first, err := r.ResolveSubject(context.Background(), identity)
	require.NoError(t, err)
	second, err := r.ResolveSubject(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveSubject_UsesCache(t *testing.T) {
	families := newFamilies()
	cache := &fakeCache{entries: map[string]string{}}
	r := NewResolver(families, cache)

	for i := 0; i < 3; i++ {
		got, err := r.ResolveSubject(context.Background(), FamilyIdentity{ID: "f1"})
		require.NoError(t, err)
		assert.Equal(t, "p1", got)
	}

	assert.Equal(t, 1, families.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestResolveSubject_CacheFailureFallsBackToStore(t *testing.T) {
	families := newFamilies()
	cache := &fakeCache{entries: map[string]string{}, getErr: errors.New("redis down")}
	r := NewResolver(families, cache)

	got, err := r.ResolveSubject(context.Background(), FamilyIdentity{ID: "f1"})

	require.NoError(t, err)
	assert.Equal(t, "p1", got)
	assert.Equal(t, 1, families.calls)
}

func TestAuthorize_CreateStampsSubject(t *testing.T) {
	r := NewResolver(newFamilies(), nil)

	// A patient creating "Walk in park" stamps its own id.
	userID, err := r.Authorize(context.Background(), PatientIdentity{ID: "p1"}, ActionCreate, nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", userID)

	// A family member stamps the patient's id, never its own.
	userID, err = r.Authorize(context.Background(), FamilyIdentity{ID: "f1"}, ActionCreate, nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", userID)
	assert.NotEqual(t, "f1", userID)
}

func TestAuthorize_ScopeMatrix(t *testing.T) {
	identities := map[string]Identity{
		"patient p1": PatientIdentity{ID: "p1"},
		"patient p2": PatientIdentity{ID: "p2"},
		"family f1":  FamilyIdentity{ID: "f1"},
		"family f2":  FamilyIdentity{ID: "f2"},
	}
	subjects := map[string]string{
		"patient p1": "p1",
		"patient p2": "p2",
		"family f1":  "p1",
		"family f2":  "p2",
	}
	memories := []*models.Memory{
		{ID: "m1", UserID: "p1"},
		{ID: "m2", UserID: "p2"},
	}
	actions := []Action{ActionRead, ActionUpdate, ActionDelete}

	r := NewResolver(newFamilies(), nil)
	for name, identity := range identities {
		for _, memory := range memories {
			for _, action := range actions {
				subjectID, err := r.Authorize(context.Background(), identity, action, memory)
				if memory.UserID == subjects[name] {
					assert.NoError(t, err, "%s %s %s", name, action, memory.ID)
					assert.Equal(t, memory.UserID, subjectID)
				} else {
					assert.ErrorIs(t, err, ErrNotFound, "%s %s %s", name, action, memory.ID)
				}
			}
		}
	}
}

func TestAuthorize_Scenarios(t *testing.T) {
	r := NewResolver(newFamilies(), nil)
	ctx := context.Background()

	t.Run("family_of_other_patient_cannot_read", func(t *testing.T) {
		_, err := r.Authorize(ctx, FamilyIdentity{ID: "f2"}, ActionRead, &models.Memory{ID: "m1", UserID: "p1"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unlinked_family_member", func(t *testing.T) {
		_, err := r.Authorize(ctx, FamilyIdentity{ID: "f3"}, ActionCreate, nil)
		assert.ErrorIs(t, err, ErrUnlinkedFamilyMember)
	})

	t.Run("patient_deletes_memory_created_by_family", func(t *testing.T) {
		userID, err := r.Authorize(ctx, FamilyIdentity{ID: "f1"}, ActionCreate, nil)
		require.NoError(t, err)
		memory := &models.Memory{ID: "m1", UserID: userID, Title: "Walk in park"}

		_, err = r.Authorize(ctx, PatientIdentity{ID: "p1"}, ActionDelete, memory)
		assert.NoError(t, err)
	})

	t.Run("missing_memory", func(t *testing.T) {
		_, err := r.Authorize(ctx, PatientIdentity{ID: "p1"}, ActionRead, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown_action", func(t *testing.T) {
		_, err := r.Authorize(ctx, PatientIdentity{ID: "p1"}, Action("share"), &models.Memory{UserID: "p1"})
		assert.ErrorIs(t, err, ErrUnknownAction)
	})
}

func TestNewIdentity(t *testing.T) {
	identity, err := NewIdentity("p1", KindPatient)
	require.NoError(t, err)
	assert.Equal(t, PatientIdentity{ID: "p1"}, identity)

	identity, err = NewIdentity("f1", KindFamily)
	require.NoError(t, err)
	assert.Equal(t, FamilyIdentity{ID: "f1"}, identity)

	_, err = NewIdentity("x1", Kind("admin"))
	assert.ErrorIs(t, err, ErrUnknownIdentity)

	_, err = NewIdentity("", KindPatient)
	assert.ErrorIs(t, err, ErrUnknownIdentity)
}
