package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"memory-tracker-backend/internal/access"
	"memory-tracker-backend/internal/models"
	"memory-tracker-backend/internal/repository"
	"memory-tracker-backend/internal/validator"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	dateLayout = "2006-01-02"

	// Limits shared with the CreateMemoryRequest tags, counted in characters.
	maxTitleLength  = 200
	maxPeople       = 50
	maxPersonLength = 100
)

// MemoryStore is the memories table
type MemoryStore interface {
	Create(ctx context.Context, memory *models.Memory) error
	GetByID(ctx context.Context, id string) (*models.Memory, error)
	ListByUserID(ctx context.Context, userID string, filter repository.MemoryFilter) ([]*models.Memory, int, error)
	Update(ctx context.Context, id, userID string, patch models.MemoryPatch) (*models.Memory, error)
	Delete(ctx context.Context, id, userID string) error
}

// EventPublisher fans memory changes out to the sessions of a subject
type EventPublisher interface {
	Publish(subjectID string, message WSMessage)
}

// MemoryNotifier is told about memories created on behalf of a subject
type MemoryNotifier interface {
	MemoryCreated(ctx context.Context, subjectID, authorID string, memory *models.Memory)
}

// MemoryService handles memory-related business logic. Every operation is
// scoped to the subject the access resolver computes for the caller.
type MemoryService struct {
	memories MemoryStore
	resolver *access.Resolver
	validate *validator.Validator
	events   EventPublisher
	notifier MemoryNotifier
}

// NewMemoryService creates a new memory service. events and notifier may be nil.
func NewMemoryService(
	memories MemoryStore,
	resolver *access.Resolver,
	validate *validator.Validator,
	events EventPublisher,
	notifier MemoryNotifier,
) *MemoryService {
	return &MemoryService{
		memories: memories,
		resolver: resolver,
		validate: validate,
		events:   events,
		notifier: notifier,
	}
}

// CreateMemoryRequest represents a new memory
type CreateMemoryRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Content     string   `json:"content" validate:"required"`
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	Type        string   `json:"type" validate:"required,oneof=photo voice text"`
	Location    string   `json:"location" validate:"max=200"`
	People      []string `json:"people" validate:"max=50,dive,required,max=100"`
	Filter      string   `json:"filter" validate:"omitempty,oneof=none polaroid sepia vintage"`
}

// UpdateMemoryRequest holds the fields to change; omitted fields stay as they are
type UpdateMemoryRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Content     *string   `json:"content"`
	Date        *string   `json:"date"`
	Type        *string   `json:"type"`
	Location    *string   `json:"location"`
	People      *[]string `json:"people"`
	Filter      *string   `json:"filter"`
}

// ListMemoriesRequest narrows a memory listing
type ListMemoriesRequest struct {
	Type   string
	Limit  int
	Offset int
}

// MemoryList is a page of memories
type MemoryList struct {
	Memories []*models.Memory `json:"memories"`
	Total    int              `json:"total"`
}

// Create stores a new memory for the caller's subject. The memory's
// user_id is always the patient's id, also when a family member creates it.
func (s *MemoryService) Create(ctx context.Context, identity access.Identity, req CreateMemoryRequest) (*models.Memory, error) {
	// Trim first so blank titles and names fail the required rule.
	req.Title = strings.TrimSpace(req.Title)
	req.People = trimPeople(req.People)
	if err := s.validate.Validate(req); err != nil {
		return nil, invalid(err)
	}

	date, _ := time.Parse(dateLayout, req.Date)
	memoryType := models.MemoryType(req.Type)
	if err := checkContent(memoryType, req.Content); err != nil {
		return nil, err
	}

	userID, err := s.resolver.Authorize(ctx, identity, access.ActionCreate, nil)
	if err != nil {
		return nil, err
	}

	people := req.People
	if people == nil {
		people = []string{}
	}

	now := time.Now()
	memory := &models.Memory{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Date:        date,
		Type:        memoryType,
		Location:    req.Location,
		People:      people,
		Filter:      effectiveFilter(memoryType, models.PhotoFilter(req.Filter)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.memories.Create(ctx, memory); err != nil {
		return nil, storeErr(err)
	}

	log.Info().
		Str("identity_id", identity.IdentityID()).
		Str("subject_id", userID).
		Str("memory_id", memory.ID).
		Msg("Memory created")

	s.publish(userID, "memory_created", memory)
	if s.notifier != nil {
		s.notifier.MemoryCreated(ctx, userID, identity.IdentityID(), memory)
	}

	return memory, nil
}

// Get returns a memory in the caller's scope
func (s *MemoryService) Get(ctx context.Context, identity access.Identity, memoryID string) (*models.Memory, error) {
	memory, _, err := s.load(ctx, identity, access.ActionRead, memoryID)
	if err != nil {
		return nil, err
	}
	return memory, nil
}

// List returns the caller's subject's memories, newest date first
func (s *MemoryService) List(ctx context.Context, identity access.Identity, req ListMemoriesRequest) (*MemoryList, error) {
	subjectID, err := s.resolver.ResolveSubject(ctx, identity)
	if err != nil {
		return nil, err
	}

	if req.Type != "" && !validMemoryType(req.Type) {
		return nil, invalid(fmt.Errorf("type: must be one of: photo voice text"))
	}

	// Validate limit
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	memories, total, err := s.memories.ListByUserID(ctx, subjectID, repository.MemoryFilter{
		Type:   models.MemoryType(req.Type),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, storeErr(err)
	}

	return &MemoryList{Memories: memories, Total: total}, nil
}

// Timeline returns every memory of the caller's subject grouped by month
func (s *MemoryService) Timeline(ctx context.Context, identity access.Identity) ([]TimelineGroup, error) {
	subjectID, err := s.resolver.ResolveSubject(ctx, identity)
	if err != nil {
		return nil, err
	}

	memories, _, err := s.memories.ListByUserID(ctx, subjectID, repository.MemoryFilter{})
	if err != nil {
		return nil, storeErr(err)
	}

	return GroupByMonth(memories), nil
}

// Update changes a memory in the caller's scope. Patients and family
// members have the same rights; the last write wins.
func (s *MemoryService) Update(ctx context.Context, identity access.Identity, memoryID string, req UpdateMemoryRequest) (*models.Memory, error) {
	current, subjectID, err := s.load(ctx, identity, access.ActionUpdate, memoryID)
	if err != nil {
		return nil, err
	}

	patch, err := buildPatch(current, req)
	if err != nil {
		return nil, err
	}

	memory, err := s.memories.Update(ctx, memoryID, subjectID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, access.ErrNotFound
		}
		return nil, storeErr(err)
	}

	log.Info().
		Str("identity_id", identity.IdentityID()).
		Str("memory_id", memoryID).
		Msg("Memory updated")

	s.publish(subjectID, "memory_updated", memory)

	return memory, nil
}

// Delete removes a memory in the caller's scope, whoever created it
func (s *MemoryService) Delete(ctx context.Context, identity access.Identity, memoryID string) error {
	memory, subjectID, err := s.load(ctx, identity, access.ActionDelete, memoryID)
	if err != nil {
		return err
	}

	if err := s.memories.Delete(ctx, memory.ID, subjectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return access.ErrNotFound
		}
		return storeErr(err)
	}

	log.Info().
		Str("identity_id", identity.IdentityID()).
		Str("memory_id", memoryID).
		Msg("Memory deleted")

	s.publish(subjectID, "memory_deleted", &models.Memory{ID: memory.ID, UserID: subjectID})

	return nil
}

// load fetches a memory and authorizes action on it. Missing and
// out-of-scope memories both yield access.ErrNotFound.
func (s *MemoryService) load(ctx context.Context, identity access.Identity, action access.Action, memoryID string) (*models.Memory, string, error) {
	if _, err := uuid.Parse(memoryID); err != nil {
		// Still resolve the caller so identity errors take precedence.
		if _, err := s.resolver.ResolveSubject(ctx, identity); err != nil {
			return nil, "", err
		}
		return nil, "", access.ErrNotFound
	}

	memory, err := s.memories.GetByID(ctx, memoryID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", storeErr(err)
	}

	subjectID, err := s.resolver.Authorize(ctx, identity, action, memory)
	if err != nil {
		return nil, "", err
	}
	return memory, subjectID, nil
}

func (s *MemoryService) publish(subjectID, eventType string, memory *models.Memory) {
	if s.events == nil {
		return
	}
	s.events.Publish(subjectID, WSMessage{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		MemoryID:  memory.ID,
		Data:      memory,
	})
}

func buildPatch(current *models.Memory, req UpdateMemoryRequest) (models.MemoryPatch, error) {
	var patch models.MemoryPatch

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return patch, invalid(errors.New("title: is required"))
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return patch, invalid(fmt.Errorf("title: must be at most %d characters long", maxTitleLength))
		}
		patch.Title = &title
	}
	if req.Description != nil {
		patch.Description = req.Description
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			return patch, invalid(errors.New("date: must be a date (YYYY-MM-DD)"))
		}
		patch.Date = &date
	}
	if req.Location != nil {
		patch.Location = req.Location
	}
	if req.People != nil {
		people := trimPeople(*req.People)
		if people == nil {
			people = []string{}
		}
		if len(people) > maxPeople {
			return patch, invalid(fmt.Errorf("people: must have at most %d entries", maxPeople))
		}
		for _, person := range people {
			if person == "" {
				return patch, invalid(errors.New("people: names must not be empty"))
			}
			if utf8.RuneCountInString(person) > maxPersonLength {
				return patch, invalid(fmt.Errorf("people: names must be at most %d characters long", maxPersonLength))
			}
		}
		patch.People = &people
	}

	memoryType := current.Type
	if req.Type != nil {
		if !validMemoryType(*req.Type) {
			return patch, invalid(errors.New("type: must be one of: photo voice text"))
		}
		memoryType = models.MemoryType(*req.Type)
		patch.Type = &memoryType
	}

	content := current.Content
	if req.Content != nil {
		if *req.Content == "" {
			return patch, invalid(errors.New("content: is required"))
		}
		content = *req.Content
		patch.Content = req.Content
	}
	if req.Content != nil || req.Type != nil {
		if err := checkContent(memoryType, content); err != nil {
			return patch, err
		}
	}

	filter := current.Filter
	if req.Filter != nil {
		switch models.PhotoFilter(*req.Filter) {
		case models.FilterNone, models.FilterPolaroid, models.FilterSepia, models.FilterVintage:
			filter = models.PhotoFilter(*req.Filter)
		default:
			return patch, invalid(errors.New("filter: must be one of: none polaroid sepia vintage"))
		}
	}
	if req.Filter != nil || req.Type != nil {
		filter = effectiveFilter(memoryType, filter)
		patch.Filter = &filter
	}

	return patch, nil
}

// trimPeople trims every name and keeps nil as nil
func trimPeople(people []string) []string {
	if people == nil {
		return nil
	}
	trimmed := make([]string, len(people))
	for i, person := range people {
		trimmed[i] = strings.TrimSpace(person)
	}
	return trimmed
}

// checkContent requires photo and voice content to be a blob URL
func checkContent(memoryType models.MemoryType, content string) error {
	if memoryType == models.MemoryTypeText {
		return nil
	}
	u, err := url.ParseRequestURI(content)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(fmt.Errorf("content: %s memories must reference an uploaded file URL", memoryType))
	}
	return nil
}

// effectiveFilter drops display filters from non-photo memories
func effectiveFilter(memoryType models.MemoryType, filter models.PhotoFilter) models.PhotoFilter {
	if memoryType != models.MemoryTypePhoto || filter == "" {
		return models.FilterNone
	}
	return filter
}

func validMemoryType(t string) bool {
	switch models.MemoryType(t) {
	case models.MemoryTypePhoto, models.MemoryTypeVoice, models.MemoryTypeText:
		return true
	}
	return false
}
