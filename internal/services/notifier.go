package services

import (
	"context"
	"fmt"
	"time"

	"memory-tracker-backend/internal/config"
	"memory-tracker-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const pushTimeout = 10 * time.Second

// Pusher delivers a single APNs notification
type Pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// Notifier pushes new-memory alerts to the devices of everybody sharing
// a subject except the author
type Notifier struct {
	pusher   Pusher
	topic    string
	patients PatientStore
	families FamilyStore
}

// NewAPNsClient creates a token based APNs client
func NewAPNsClient(cfg config.APNsConfig) (*apns2.Client, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		return client.Production(), nil
	}
	return client.Development(), nil
}

// NewNotifier creates a new notifier
func NewNotifier(pusher Pusher, topic string, patients PatientStore, families FamilyStore) *Notifier {
	return &Notifier{
		pusher:   pusher,
		topic:    topic,
		patients: patients,
		families: families,
	}
}

// MemoryCreated notifies asynchronously; failures are logged
func (n *Notifier) MemoryCreated(ctx context.Context, subjectID, authorID string, memory *models.Memory) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()
		n.notify(ctx, subjectID, authorID, memory)
	}()
}

// notify sends the alerts and returns how many were accepted by APNs
func (n *Notifier) notify(ctx context.Context, subjectID, authorID string, memory *models.Memory) int {
	tokens, err := n.recipients(ctx, subjectID, authorID)
	if err != nil {
		log.Error().Err(err).Str("subject_id", subjectID).Msg("Failed to load push recipients")
		return 0
	}

	p := payload.NewPayload().
		AlertTitle("New memory").
		AlertBody(memory.Title).
		Sound("default").
		Custom("memory_id", memory.ID)

	sent := 0
	for _, deviceToken := range tokens {
		res, err := n.pusher.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       n.topic,
			Payload:     p,
		})
		if err != nil {
			log.Error().Err(err).Str("memory_id", memory.ID).Msg("Failed to send push notification")
			continue
		}
		if !res.Sent() {
			log.Warn().
				Int("status", res.StatusCode).
				Str("reason", res.Reason).
				Str("memory_id", memory.ID).
				Msg("Push notification rejected")
			continue
		}
		sent++
	}

	return sent
}

func (n *Notifier) recipients(ctx context.Context, subjectID, authorID string) ([]string, error) {
	var tokens []string

	patient, err := n.patients.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if patient.ID != authorID && patient.PushToken != nil && *patient.PushToken != "" {
		tokens = append(tokens, *patient.PushToken)
	}

	members, err := n.families.ListByPatientID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		if member.ID != authorID && member.PushToken != nil && *member.PushToken != "" {
			tokens = append(tokens, *member.PushToken)
		}
	}

	return tokens, nil
}
