package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"cityfix-service/internal/client"
	"cityfix-service/internal/lifecycle"
	"cityfix-service/internal/model"
	"cityfix-service/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	reverseTimeout   = 3 * time.Second
)

// ReverseGeocoder fills in addresses for new tickets.
type ReverseGeocoder interface {
	Enabled() bool
	Reverse(ctx context.Context, lat, lng float64) (*client.Location, error)
}

type TicketServiceDeps struct {
	Tx             Transactor
	Tickets        TicketRepository
	Comments       CommentRepository
	Feedback       FeedbackRepository
	Assignments    AssignmentRepository
	Users          UserRepository
	Municipalities MunicipalityRepository
	Notifications  *NotificationService
	Geocoder       ReverseGeocoder
	Metrics        *MetricsService
	Log            zerolog.Logger
}

// TicketService applies lifecycle decisions to stored tickets. Every state
// change and the notification it produces commit in one transaction.
type TicketService struct {
	tx             Transactor
	tickets        TicketRepository
	comments       CommentRepository
	feedback       FeedbackRepository
	assignments    AssignmentRepository
	users          UserRepository
	municipalities MunicipalityRepository
	notifications  *NotificationService
	geocoder       ReverseGeocoder
	metrics        *MetricsService
	log            zerolog.Logger
	now            func() time.Time
}

func NewTicketService(deps TicketServiceDeps) *TicketService {
	return &TicketService{
		tx:             deps.Tx,
		tickets:        deps.Tickets,
		comments:       deps.Comments,
		feedback:       deps.Feedback,
		assignments:    deps.Assignments,
		users:          deps.Users,
		municipalities: deps.Municipalities,
		notifications:  deps.Notifications,
		geocoder:       deps.Geocoder,
		metrics:        deps.Metrics,
		log:            deps.Log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type CreateTicketInput struct {
	MunicipalityID *uuid.UUID `json:"municipality_id"`
	Title          string     `json:"title" validate:"required,notblank,max=200"`
	Description    string     `json:"description" validate:"required,notblank,max=5000"`
	Category       string     `json:"category" validate:"required,category"`
	Latitude       *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude      *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address        *string    `json:"address" validate:"omitempty,max=500"`
}

// Create files a ticket for a citizen. The municipality defaults to the citizen's own.
func (s *TicketService) Create(ctx context.Context, principal model.Principal, input CreateTicketInput) (*model.Ticket, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(principal.Role, lifecycle.ActionCreate); err != nil {
		return nil, err
	}
	if input.MunicipalityID == nil {
		input.MunicipalityID = principal.MunicipalityID
	}

	citizenID := principal.UserID
	ticket, err := s.create(ctx, input, &citizenID)
	s.recordOutcome(lifecycle.ActionCreate, err)
	return ticket, err
}

// CreateAnonymous files a ticket without a reporting citizen. Such tickets
// never produce notifications.
func (s *TicketService) CreateAnonymous(ctx context.Context, input CreateTicketInput) (*model.Ticket, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	ticket, err := s.create(ctx, input, nil)
	s.recordOutcome(lifecycle.ActionCreate, err)
	return ticket, err
}

func (s *TicketService) create(ctx context.Context, input CreateTicketInput, citizenID *uuid.UUID) (*model.Ticket, error) {
	if input.MunicipalityID == nil {
		return nil, fmt.Errorf("%w: municipality_id is required", ErrValidation)
	}
	if _, err := s.municipalities.GetByID(ctx, *input.MunicipalityID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: municipality %s", ErrNotFound, *input.MunicipalityID)
		}
		return nil, err
	}

	ticket := &model.Ticket{
		MunicipalityID: *input.MunicipalityID,
		CitizenID:      citizenID,
		IsAnonymous:    citizenID == nil,
		Status:         model.TicketStatusPending,
		Category:       input.Category,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Latitude:       *input.Latitude,
		Longitude:      *input.Longitude,
		Address:        input.Address,
	}
	if ticket.Address == nil {
		ticket.Address = s.lookupAddress(ctx, ticket.Latitude, ticket.Longitude)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("ticket_id", ticket.ID.String()).
		Str("municipality_id", ticket.MunicipalityID.String()).
		Bool("anonymous", ticket.IsAnonymous).
		Msg("ticket created")
	return ticket, nil
}

// lookupAddress is best effort; failures leave the address empty.
func (s *TicketService) lookupAddress(ctx context.Context, lat, lng float64) *string {
	if s.geocoder == nil || !s.geocoder.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, reverseTimeout)
	defer cancel()

	loc, err := s.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		s.log.Warn().Err(err).Float64("lat", lat).Float64("lng", lng).Msg("reverse geocoding failed")
		return nil
	}
	return &loc.Address
}

func (s *TicketService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.TicketDetails, error) {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByTicketID(ctx, id)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedback.FindByTicketID(ctx, id)
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.FindActiveByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.assignments.ListByTicketID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.TicketDetails{
		Ticket:      *ticket,
		Comments:    comments,
		Feedback:    feedback,
		Assignment:  assignment,
		Assignments: history,
	}, nil
}

// List forces the caller's visibility scope onto filter.
func (s *TicketService) List(ctx context.Context, principal model.Principal, filter repository.TicketListFilter) ([]model.Ticket, int64, error) {
	switch principal.Role {
	case model.RoleCitizen:
		filter.CitizenID = &principal.UserID
	case model.RoleOperator, model.RoleManager:
		if principal.MunicipalityID == nil {
			return nil, 0, ErrPermissionDenied
		}
		filter.MunicipalityID = principal.MunicipalityID
	case model.RoleAdmin:
	default:
		return nil, 0, ErrPermissionDenied
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Near != nil && filter.Near.RadiusM <= 0 {
		return nil, 0, fmt.Errorf("%w: radius must be positive", ErrValidation)
	}

	return s.tickets.List(ctx, filter)
}

// Assign moves a pending ticket to in_progress. Operators may only claim for
// themselves; managers and admins name an operator of the ticket's municipality.
func (s *TicketService) Assign(ctx context.Context, principal model.Principal, id uuid.UUID, operatorID *uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.assign(ctx, principal, id, operatorID)
	s.recordOutcome(lifecycle.ActionAssign, err)
	return ticket, err
}

func (s *TicketService) assign(ctx context.Context, principal model.Principal, id uuid.UUID, operatorID *uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(principal.Role, lifecycle.ActionAssign); err != nil {
		return nil, err
	}

	if operatorID == nil {
		if !principal.IsOperator() {
			return nil, fmt.Errorf("%w: operator_id is required", ErrValidation)
		}
		operatorID = &principal.UserID
	}

	if principal.IsOperator() {
		if *operatorID != principal.UserID {
			return nil, fmt.Errorf("%w: operators can only claim tickets for themselves", ErrPermissionDenied)
		}
	} else {
		if err := s.checkAssignee(ctx, ticket, *operatorID); err != nil {
			return nil, err
		}
	}

	next, err := lifecycle.Next(ticket.Status, lifecycle.ActionAssign)
	if err != nil {
		return nil, err
	}

	expected := ticket.Status
	now := s.now()
	ticket.Status = next
	ticket.AssignedOperatorID = operatorID

	err = s.commit(ctx, ticket, expected, func(ctx context.Context) error {
		if err := s.assignments.DeactivateActive(ctx, ticket.ID); err != nil {
			return err
		}
		assignment := &model.TicketAssignment{
			TicketID:   ticket.ID,
			OperatorID: *operatorID,
			AssignedBy: principal.UserID,
			AssignedAt: now,
			IsActive:   true,
		}
		if err := s.assignments.Create(ctx, assignment); err != nil {
			return err
		}
		return s.notifyCitizen(ctx, ticket, model.NotificationInfo,
			fmt.Sprintf("Your ticket %q has been assigned to an operator and is now in progress.", ticket.Title))
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(ticket, lifecycle.ActionAssign, principal)
	return ticket, nil
}

func (s *TicketService) checkAssignee(ctx context.Context, ticket *model.Ticket, operatorID uuid.UUID) error {
	operator, err := s.users.GetByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: operator %s", ErrNotFound, operatorID)
		}
		return err
	}
	if operator.Role != model.RoleOperator || !operator.IsActive {
		return fmt.Errorf("%w: user %s is not an active operator", ErrValidation, operatorID)
	}
	if operator.MunicipalityID == nil || *operator.MunicipalityID != ticket.MunicipalityID {
		return fmt.Errorf("%w: operator %s does not belong to municipality %s", ErrScopeMismatch, operatorID, ticket.MunicipalityID)
	}
	return nil
}

// Complete moves an in_progress ticket to completed.
func (s *TicketService) Complete(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.complete(ctx, principal, id)
	s.recordOutcome(lifecycle.ActionComplete, err)
	return ticket, err
}

func (s *TicketService) complete(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(principal.Role, lifecycle.ActionComplete); err != nil {
		return nil, err
	}
	// Unassigned tickets fall through to the state check.
	if principal.IsOperator() && ticket.AssignedOperatorID != nil && !ticket.AssignedTo(principal.UserID) {
		return nil, fmt.Errorf("%w: ticket is assigned to another operator", ErrPermissionDenied)
	}

	next, err := lifecycle.Next(ticket.Status, lifecycle.ActionComplete)
	if err != nil {
		return nil, err
	}

	expected := ticket.Status
	completedAt := s.now()
	ticket.Status = next
	ticket.CompletedAt = &completedAt

	err = s.commit(ctx, ticket, expected, func(ctx context.Context) error {
		return s.notifyCitizen(ctx, ticket, model.NotificationSuccess,
			fmt.Sprintf("Your ticket %q has been completed. You can now leave feedback.", ticket.Title))
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(ticket, lifecycle.ActionComplete, principal)
	return ticket, nil
}

type RejectTicketInput struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// Reject closes a pending or in_progress ticket and releases its operator.
func (s *TicketService) Reject(ctx context.Context, principal model.Principal, id uuid.UUID, input RejectTicketInput) (*model.Ticket, error) {
	ticket, err := s.reject(ctx, principal, id, input)
	s.recordOutcome(lifecycle.ActionReject, err)
	return ticket, err
}

func (s *TicketService) reject(ctx context.Context, principal model.Principal, id uuid.UUID, input RejectTicketInput) (*model.Ticket, error) {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(principal.Role, lifecycle.ActionReject); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	input.Reason = reason
	if err := validateInput(input); err != nil {
		return nil, err
	}

	next, err := lifecycle.Next(ticket.Status, lifecycle.ActionReject)
	if err != nil {
		return nil, err
	}

	expected := ticket.Status
	rejectedAt := s.now()
	ticket.Status = next
	ticket.AssignedOperatorID = nil
	ticket.RejectedAt = &rejectedAt
	if reason != "" {
		ticket.RejectionReason = &reason
	}

	message := fmt.Sprintf("Your ticket %q has been rejected.", ticket.Title)
	if reason != "" {
		message += " Reason: " + reason
	}

	err = s.commit(ctx, ticket, expected, func(ctx context.Context) error {
		if err := s.assignments.DeactivateActive(ctx, ticket.ID); err != nil {
			return err
		}
		return s.notifyCitizen(ctx, ticket, model.NotificationWarning, message)
	})
	if err != nil {
		return nil, err
	}

	s.logTransition(ticket, lifecycle.ActionReject, principal)
	return ticket, nil
}

type PatchTicketInput struct {
	Status             string     `json:"status" validate:"required,oneof=in_progress completed rejected"`
	AssignedOperatorID *uuid.UUID `json:"assigned_operator_id"`
	Reason             string     `json:"reason"`
}

// UpdateStatus dispatches a requested target status to the matching transition.
func (s *TicketService) UpdateStatus(ctx context.Context, principal model.Principal, id uuid.UUID, input PatchTicketInput) (*model.Ticket, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	action, _ := lifecycle.ForStatus(model.TicketStatus(input.Status))
	switch action {
	case lifecycle.ActionAssign:
		return s.Assign(ctx, principal, id, input.AssignedOperatorID)
	case lifecycle.ActionComplete:
		return s.Complete(ctx, principal, id)
	default:
		return s.Reject(ctx, principal, id, RejectTicketInput{Reason: input.Reason})
	}
}

type AddFeedbackInput struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// AddFeedback stores the reporting citizen's rating of a completed ticket, once.
func (s *TicketService) AddFeedback(ctx context.Context, principal model.Principal, id uuid.UUID, input AddFeedbackInput) (*model.TicketFeedback, error) {
	feedback, err := s.addFeedback(ctx, principal, id, input)
	s.recordOutcome(lifecycle.ActionFeedback, err)
	return feedback, err
}

func (s *TicketService) addFeedback(ctx context.Context, principal model.Principal, id uuid.UUID, input AddFeedbackInput) (*model.TicketFeedback, error) {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(principal.Role, lifecycle.ActionFeedback); err != nil {
		return nil, err
	}
	if !ticket.OwnedBy(principal.UserID) {
		return nil, fmt.Errorf("%w: only the reporting citizen can leave feedback", ErrPermissionDenied)
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if _, err := lifecycle.Next(ticket.Status, lifecycle.ActionFeedback); err != nil {
		return nil, err
	}

	existing, err := s.feedback.FindByTicketID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrFeedbackAlreadyExists
	}

	feedback := &model.TicketFeedback{
		TicketID:  ticket.ID,
		CitizenID: principal.UserID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	if err := s.feedback.Create(ctx, feedback); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrFeedbackAlreadyExists
		}
		return nil, err
	}

	s.log.Info().
		Str("ticket_id", ticket.ID.String()).
		Int("rating", feedback.Rating).
		Msg("ticket feedback stored")
	return feedback, nil
}

type AddCommentInput struct {
	Message string `json:"message" validate:"required,notblank,max=2000"`
}

func (s *TicketService) AddComment(ctx context.Context, principal model.Principal, id uuid.UUID, input AddCommentInput) (*model.TicketComment, error) {
	comment, err := s.addComment(ctx, principal, id, input)
	s.recordOutcome(lifecycle.ActionComment, err)
	return comment, err
}

func (s *TicketService) addComment(ctx context.Context, principal model.Principal, id uuid.UUID, input AddCommentInput) (*model.TicketComment, error) {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(principal.Role, lifecycle.ActionComment); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if _, err := lifecycle.Next(ticket.Status, lifecycle.ActionComment); err != nil {
		return nil, err
	}

	authorID := principal.UserID
	comment := &model.TicketComment{
		TicketID:   ticket.ID,
		AuthorID:   &authorID,
		AuthorRole: principal.Role,
		Message:    strings.TrimSpace(input.Message),
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		return s.tickets.Touch(ctx, ticket.ID)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *TicketService) ListComments(ctx context.Context, principal model.Principal, id uuid.UUID) ([]model.TicketComment, error) {
	if _, err := s.loadVisible(ctx, principal, id); err != nil {
		return nil, err
	}
	return s.comments.ListByTicketID(ctx, id)
}

// CanView applies the visibility rule: citizens see their own tickets,
// operators and managers their municipality, admins everything.
func CanView(principal model.Principal, ticket *model.Ticket) bool {
	switch principal.Role {
	case model.RoleCitizen:
		return ticket.OwnedBy(principal.UserID)
	case model.RoleOperator, model.RoleManager:
		return principal.InMunicipality(ticket.MunicipalityID)
	case model.RoleAdmin:
		return true
	}
	return false
}

func (s *TicketService) loadVisible(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !CanView(principal, ticket) {
		return nil, ErrPermissionDenied
	}
	return ticket, nil
}

// commit writes the transition guarded by the expected prior status and runs
// effects in the same transaction.
func (s *TicketService) commit(ctx context.Context, ticket *model.Ticket, expected model.TicketStatus, effects func(ctx context.Context) error) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.tickets.TransitionStatus(ctx, ticket, expected); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				current, rerr := s.tickets.GetByID(ctx, ticket.ID)
				if rerr != nil {
					return fmt.Errorf("%w: ticket changed concurrently", ErrInvalidStateTransition)
				}
				return fmt.Errorf("%w: ticket is now %s", ErrInvalidStateTransition, current.Status)
			}
			return err
		}
		return effects(ctx)
	})
}

// notifyCitizen is a no-op for anonymous tickets.
func (s *TicketService) notifyCitizen(ctx context.Context, ticket *model.Ticket, kind model.NotificationType, message string) error {
	if ticket.CitizenID == nil {
		return nil
	}
	ticketID := ticket.ID
	_, err := s.notifications.Enqueue(ctx, *ticket.CitizenID, kind, message, &ticketID)
	return err
}

func (s *TicketService) logTransition(ticket *model.Ticket, action lifecycle.Action, principal model.Principal) {
	s.log.Info().
		Str("ticket_id", ticket.ID.String()).
		Str("action", string(action)).
		Str("status", string(ticket.Status)).
		Str("actor_id", principal.UserID.String()).
		Str("actor_role", string(principal.Role)).
		Msg("ticket transition")
}

func (s *TicketService) recordOutcome(action lifecycle.Action, err error) {
	s.metrics.RecordTransition(string(action), outcomeLabel(err))
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrScopeMismatch):
		return "scope_mismatch"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state_transition"
	case errors.Is(err, ErrFeedbackAlreadyExists):
		return "feedback_already_exists"
	}
	return "error"
}
