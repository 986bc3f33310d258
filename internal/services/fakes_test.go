package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"memory-tracker-backend/internal/models"
	"memory-tracker-backend/internal/repository"
)

type fakePatients struct {
	mu   sync.Mutex
	byID map[string]*models.Patient
	err  error
}

func newFakePatients(patients ...*models.Patient) *fakePatients {
	f := &fakePatients{byID: make(map[string]*models.Patient)}
	for _, p := range patients {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePatients) Create(ctx context.Context, patient *models.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, p := range f.byID {
		if strings.EqualFold(p.Email, patient.Email) || p.Mobile == patient.Mobile {
			return repository.ErrConflict
		}
	}
	f.byID[patient.ID] = patient
	return nil
}

func (f *fakePatients) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakePatients) GetByMobile(ctx context.Context, mobile string) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byID {
		if p.Mobile == mobile {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePatients) GetByEmail(ctx context.Context, email string) (*models.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byID {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePatients) UpdatePushToken(ctx context.Context, patientID string, pushToken *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[patientID]
	if !ok {
		return repository.ErrNotFound
	}
	p.PushToken = pushToken
	return nil
}

type fakeFamilies struct {
	mu   sync.Mutex
	byID map[string]*models.FamilyMember
	err  error
}

func newFakeFamilies(members ...*models.FamilyMember) *fakeFamilies {
	f := &fakeFamilies{byID: make(map[string]*models.FamilyMember)}
	for _, m := range members {
		f.byID[m.ID] = m
	}
	return f
}

func (f *fakeFamilies) Create(ctx context.Context, member *models.FamilyMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, m := range f.byID {
		if strings.EqualFold(m.Email, member.Email) {
			return repository.ErrConflict
		}
	}
	f.byID[member.ID] = member
	return nil
}

func (f *fakeFamilies) GetByID(ctx context.Context, id string) (*models.FamilyMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if m, ok := f.byID[id]; ok {
		return m, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFamilies) GetByEmail(ctx context.Context, email string) (*models.FamilyMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.byID {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFamilies) ListByPatientID(ctx context.Context, patientID string) ([]*models.FamilyMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var members []*models.FamilyMember
	for _, m := range f.byID {
		if m.PatientID == patientID {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (f *fakeFamilies) UpdatePushToken(ctx context.Context, memberID string, pushToken *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	m.PushToken = pushToken
	return nil
}

type fakeMemories struct {
	mu         sync.Mutex
	byID       map[string]*models.Memory
	lastFilter repository.MemoryFilter
	err        error
}

func newFakeMemories(memories ...*models.Memory) *fakeMemories {
	f := &fakeMemories{byID: make(map[string]*models.Memory)}
	for _, m := range memories {
		f.byID[m.ID] = m
	}
	return f
}

func (f *fakeMemories) Create(ctx context.Context, memory *models.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	stored := *memory
	f.byID[memory.ID] = &stored
	return nil
}

func (f *fakeMemories) GetByID(ctx context.Context, id string) (*models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMemories) ListByUserID(ctx context.Context, userID string, filter repository.MemoryFilter) ([]*models.Memory, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}

	var memories []*models.Memory
	for _, m := range f.byID {
		if m.UserID != userID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		memories = append(memories, m)
	}
	sort.Slice(memories, func(i, j int) bool {
		if !memories[i].Date.Equal(memories[j].Date) {
			return memories[i].Date.After(memories[j].Date)
		}
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})

	total := len(memories)
	if filter.Limit > 0 {
		start := filter.Offset
		if start > total {
			start = total
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		memories = memories[start:end]
	}
	if memories == nil {
		memories = []*models.Memory{}
	}
	return memories, total, nil
}

func (f *fakeMemories) Update(ctx context.Context, id, userID string, patch models.MemoryPatch) (*models.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.byID[id]
	if !ok || m.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.Content != nil {
		m.Content = *patch.Content
	}
	if patch.Date != nil {
		m.Date = *patch.Date
	}
	if patch.Type != nil {
		m.Type = *patch.Type
	}
	if patch.Location != nil {
		m.Location = *patch.Location
	}
	if patch.People != nil {
		m.People = *patch.People
	}
	if patch.Filter != nil {
		m.Filter = *patch.Filter
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMemories) Delete(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	m, ok := f.byID[id]
	if !ok || m.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeMemories) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type published struct {
	subjectID string
	message   WSMessage
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingPublisher) Publish(subjectID string, message WSMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{subjectID: subjectID, message: message})
}

type notification struct {
	subjectID string
	authorID  string
	memoryID  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (r *recordingNotifier) MemoryCreated(ctx context.Context, subjectID, authorID string, memory *models.Memory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, notification{subjectID: subjectID, authorID: authorID, memoryID: memory.ID})
}

type fakeLimiter struct {
	checkErr error
	checked  []string
	resets   []string
}

func (f *fakeLimiter) Check(ctx context.Context, key string) error {
	f.checked = append(f.checked, key)
	return f.checkErr
}

func (f *fakeLimiter) Reset(ctx context.Context, key string) error {
	f.resets = append(f.resets, key)
	return nil
}
