package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
)

type NotificationService struct {
	repo     NotificationRepository
	prefRepo PreferenceRepository
	pageSize int
	log      zerolog.Logger
}

func NewNotificationService(repo NotificationRepository, prefRepo PreferenceRepository, pageSize int, log zerolog.Logger) *NotificationService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &NotificationService{repo: repo, prefRepo: prefRepo, pageSize: pageSize, log: log}
}

// Enqueue stores an in-app notification. Pass the transaction context to
// make it part of the surrounding ticket change.
func (s *NotificationService) Enqueue(ctx context.Context, userID uuid.UUID, kind model.NotificationType, message string, ticketID *uuid.UUID) (*model.Notification, error) {
	n := &model.Notification{
		UserID:   userID,
		Type:     kind,
		Message:  message,
		TicketID: ticketID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, principal model.Principal, unreadOnly bool) ([]model.Notification, error) {
	return s.repo.ListByUser(ctx, principal.UserID, unreadOnly, s.pageSize)
}

func (s *NotificationService) UnreadCount(ctx context.Context, principal model.Principal) (int64, error) {
	return s.repo.CountUnread(ctx, principal.UserID)
}

// MarkRead reports ErrNotFound for notifications addressed to someone else.
func (s *NotificationService) MarkRead(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, principal.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, principal model.Principal) (int64, error) {
	return s.repo.MarkAllRead(ctx, principal.UserID)
}

func (s *NotificationService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, principal.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Preferences returns the stored channels or the defaults.
func (s *NotificationService) Preferences(ctx context.Context, principal model.Principal) (model.NotificationChannels, error) {
	pref, err := s.prefRepo.FindByUserID(ctx, principal.UserID)
	if err != nil {
		return model.NotificationChannels{}, err
	}
	if pref == nil {
		return model.DefaultNotificationChannels(), nil
	}
	return pref.Channels.Data(), nil
}

type UpdatePreferencesInput struct {
	EmailEnabled *bool `json:"email_enabled"`
	SMSEnabled   *bool `json:"sms_enabled"`
	PushEnabled  *bool `json:"push_enabled"`
	InAppEnabled *bool `json:"in_app_enabled"`
}

// UpdatePreferences applies the fields that are set on top of the current channels.
func (s *NotificationService) UpdatePreferences(ctx context.Context, principal model.Principal, input UpdatePreferencesInput) (model.NotificationChannels, error) {
	channels, err := s.Preferences(ctx, principal)
	if err != nil {
		return model.NotificationChannels{}, err
	}

	if input.EmailEnabled != nil {
		channels.EmailEnabled = *input.EmailEnabled
	}
	if input.SMSEnabled != nil {
		channels.SMSEnabled = *input.SMSEnabled
	}
	if input.PushEnabled != nil {
		channels.PushEnabled = *input.PushEnabled
	}
	if input.InAppEnabled != nil {
		channels.InAppEnabled = *input.InAppEnabled
	}

	pref := &model.NotificationPreference{
		UserID:   principal.UserID,
		Channels: datatypes.NewJSONType(channels),
	}
	if err := s.prefRepo.Upsert(ctx, pref); err != nil {
		return model.NotificationChannels{}, err
	}

	s.log.Debug().Str("user_id", principal.UserID.String()).Msg("notification preferences updated")
	return channels, nil
}
