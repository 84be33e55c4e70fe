package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cityfix-service/internal/model"
	"cityfix-service/internal/repository"
)

// Transactor runs fn in one transaction; repositories called with the
// context handed to fn take part in it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	List(ctx context.Context, filter repository.TicketListFilter) ([]model.Ticket, int64, error)
	TransitionStatus(ctx context.Context, ticket *model.Ticket, expected model.TicketStatus) error
	Touch(ctx context.Context, id uuid.UUID) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.TicketComment) error
	ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketComment, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *model.TicketFeedback) error
	FindByTicketID(ctx context.Context, ticketID uuid.UUID) (*model.TicketFeedback, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *model.TicketAssignment) error
	DeactivateActive(ctx context.Context, ticketID uuid.UUID) error
	FindActiveByTicket(ctx context.Context, ticketID uuid.UUID) (*model.TicketAssignment, error)
	ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketAssignment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type PreferenceRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error)
	Upsert(ctx context.Context, pref *model.NotificationPreference) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role, municipalityID *uuid.UUID) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
}

type MunicipalityRepository interface {
	Create(ctx context.Context, municipality *model.Municipality) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Municipality, error)
	List(ctx context.Context) ([]model.Municipality, error)
	Update(ctx context.Context, municipality *model.Municipality) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type BoundaryRepository interface {
	GetByMunicipalityID(ctx context.Context, municipalityID uuid.UUID) (*model.MunicipalityBoundary, error)
	Upsert(ctx context.Context, boundary *model.MunicipalityBoundary) error
}

type MediaRepository interface {
	Create(ctx context.Context, media *model.MediaFile) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.MediaFile, error)
	ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.MediaFile, error)
}

type StatsRepository interface {
	TicketStats(ctx context.Context, municipalityID *uuid.UUID, since time.Time) (*model.TicketStats, error)
	CountTickets(ctx context.Context) (int64, error)
}

// CacheRepository returns repository.ErrCacheMiss from Get on a miss.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}
