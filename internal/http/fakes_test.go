package http

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
	"cityfix-service/internal/repository"
)

// store is a minimal in-memory backend for end-to-end handler tests.
type store struct {
	mu             sync.Mutex
	tickets        map[uuid.UUID]model.Ticket
	comments       []model.TicketComment
	feedback       map[uuid.UUID]model.TicketFeedback
	assignments    []model.TicketAssignment
	notifications  []model.Notification
	prefs          map[uuid.UUID]model.NotificationPreference
	users          map[uuid.UUID]model.User
	municipalities map[uuid.UUID]model.Municipality
}

func newStore() *store {
	return &store{
		tickets:        map[uuid.UUID]model.Ticket{},
		feedback:       map[uuid.UUID]model.TicketFeedback{},
		prefs:          map[uuid.UUID]model.NotificationPreference{},
		users:          map[uuid.UUID]model.User{},
		municipalities: map[uuid.UUID]model.Municipality{},
	}
}

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type storeTickets struct{ s *store }

func (r storeTickets) Create(ctx context.Context, t *model.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt, t.UpdatedAt = time.Now(), time.Now()
	r.s.tickets[t.ID] = *t
	return nil
}

func (r storeTickets) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r storeTickets) List(ctx context.Context, f repository.TicketListFilter) ([]model.Ticket, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Ticket
	for _, t := range r.s.tickets {
		if f.MunicipalityID != nil && t.MunicipalityID != *f.MunicipalityID {
			continue
		}
		if f.CitizenID != nil && !t.OwnedBy(*f.CitizenID) {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (r storeTickets) TransitionStatus(ctx context.Context, t *model.Ticket, expected model.TicketStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[t.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStaleStatus
	}
	r.s.tickets[t.ID] = *t
	return nil
}

func (r storeTickets) Touch(ctx context.Context, id uuid.UUID) error { return nil }

type storeComments struct{ s *store }

func (r storeComments) Create(ctx context.Context, c *model.TicketComment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.New()
	r.s.comments = append(r.s.comments, *c)
	return nil
}

func (r storeComments) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.TicketComment
	for _, c := range r.s.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type storeFeedback struct{ s *store }

func (r storeFeedback) Create(ctx context.Context, f *model.TicketFeedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.feedback[f.TicketID]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.ID = uuid.New()
	r.s.feedback[f.TicketID] = *f
	return nil
}

func (r storeFeedback) FindByTicketID(ctx context.Context, ticketID uuid.UUID) (*model.TicketFeedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.feedback[ticketID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

type storeAssignments struct{ s *store }

func (r storeAssignments) Create(ctx context.Context, a *model.TicketAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.New()
	r.s.assignments = append(r.s.assignments, *a)
	return nil
}

func (r storeAssignments) DeactivateActive(ctx context.Context, ticketID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.assignments {
		if r.s.assignments[i].TicketID == ticketID {
			r.s.assignments[i].IsActive = false
		}
	}
	return nil
}

func (r storeAssignments) FindActiveByTicket(ctx context.Context, ticketID uuid.UUID) (*model.TicketAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assignments {
		if a.TicketID == ticketID && a.IsActive {
			return &a, nil
		}
	}
	return nil, nil
}

func (r storeAssignments) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.TicketAssignment
	for i := len(r.s.assignments) - 1; i >= 0; i-- {
		if r.s.assignments[i].TicketID == ticketID {
			out = append(out, r.s.assignments[i])
		}
	}
	return out, nil
}

type storeNotifications struct{ s *store }

func (r storeNotifications) Create(ctx context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = uuid.New()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r storeNotifications) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Notification
	for _, n := range r.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r storeNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r storeNotifications) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id && r.s.notifications[i].UserID == userID {
			r.s.notifications[i].Read = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r storeNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (r storeNotifications) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return gorm.ErrRecordNotFound
}

type storePrefs struct{ s *store }

func (r storePrefs) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prefs[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r storePrefs) Upsert(ctx context.Context, p *model.NotificationPreference) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.prefs[p.UserID] = *p
	return nil
}

type storeUsers struct{ s *store }

func (r storeUsers) Create(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r storeUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r storeUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r storeUsers) ListByRole(ctx context.Context, role model.Role, municipalityID *uuid.UUID) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, u := range r.s.users {
		if u.Role == role && (municipalityID == nil || (u.MunicipalityID != nil && *u.MunicipalityID == *municipalityID)) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r storeUsers) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

type storeMunicipalities struct{ s *store }

func (r storeMunicipalities) Create(ctx context.Context, m *model.Municipality) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = uuid.New()
	r.s.municipalities[m.ID] = *m
	return nil
}

func (r storeMunicipalities) GetByID(ctx context.Context, id uuid.UUID) (*model.Municipality, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.municipalities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r storeMunicipalities) List(ctx context.Context) ([]model.Municipality, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Municipality
	for _, m := range r.s.municipalities {
		out = append(out, m)
	}
	return out, nil
}

func (r storeMunicipalities) Update(ctx context.Context, m *model.Municipality) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.municipalities[m.ID] = *m
	return nil
}

func (r storeMunicipalities) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.municipalities, id)
	return nil
}

func (r storeMunicipalities) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.municipalities)), nil
}
