package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"cityfix-service/internal/model"
	"cityfix-service/internal/repository"
)

// memDB is an in-memory stand-in for the database shared by all fake repositories.
type memDB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	tickets        map[uuid.UUID]model.Ticket
	comments       []model.TicketComment
	feedback       map[uuid.UUID]model.TicketFeedback
	assignments    []model.TicketAssignment
	notifications  []model.Notification
	prefs          map[uuid.UUID]model.NotificationPreference
	users          map[uuid.UUID]model.User
	municipalities map[uuid.UUID]model.Municipality
	boundaries     map[uuid.UUID]model.MunicipalityBoundary
	media          map[uuid.UUID]model.MediaFile

	notificationErr error
	// open is the rollback point of the running transaction, if any.
	open *memSnapshot
	// beforeTransition runs inside TransitionStatus before the status check.
	beforeTransition func()
}

func newMemDB() *memDB {
	return &memDB{
		tickets:        map[uuid.UUID]model.Ticket{},
		feedback:       map[uuid.UUID]model.TicketFeedback{},
		prefs:          map[uuid.UUID]model.NotificationPreference{},
		users:          map[uuid.UUID]model.User{},
		municipalities: map[uuid.UUID]model.Municipality{},
		boundaries:     map[uuid.UUID]model.MunicipalityBoundary{},
		media:          map[uuid.UUID]model.MediaFile{},
	}
}

type memSnapshot struct {
	tickets       map[uuid.UUID]model.Ticket
	comments      []model.TicketComment
	feedback      map[uuid.UUID]model.TicketFeedback
	assignments   []model.TicketAssignment
	notifications []model.Notification
}

func (d *memDB) snapshot() memSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := memSnapshot{
		tickets:       make(map[uuid.UUID]model.Ticket, len(d.tickets)),
		comments:      append([]model.TicketComment(nil), d.comments...),
		feedback:      make(map[uuid.UUID]model.TicketFeedback, len(d.feedback)),
		assignments:   append([]model.TicketAssignment(nil), d.assignments...),
		notifications: append([]model.Notification(nil), d.notifications...),
	}
	for k, v := range d.tickets {
		s.tickets[k] = v
	}
	for k, v := range d.feedback {
		s.feedback[k] = v
	}
	return s
}

func (d *memDB) restore(s memSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tickets = s.tickets
	d.comments = s.comments
	d.feedback = s.feedback
	d.assignments = s.assignments
	d.notifications = s.notifications
}

type memTxKey struct{}

// memTx serializes transactions and restores the snapshot when fn fails.
type memTx struct {
	db *memDB
}

func (t memTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	snap := t.db.snapshot()
	t.db.mu.Lock()
	t.db.open = &snap
	t.db.mu.Unlock()
	defer func() {
		t.db.mu.Lock()
		t.db.open = nil
		t.db.mu.Unlock()
	}()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// commitTicket stores a ticket as another writer's committed change, so a
// rollback of the running transaction keeps it.
func (d *memDB) commitTicket(ticket model.Ticket) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tickets[ticket.ID] = ticket
	if d.open != nil {
		d.open.tickets[ticket.ID] = ticket
	}
}

func (d *memDB) notificationsFor(userID uuid.UUID) []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.Notification
	for _, n := range d.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (d *memDB) ticket(id uuid.UUID) model.Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tickets[id]
}

type memTickets struct{ db *memDB }

func (r memTickets) Create(ctx context.Context, ticket *model.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	now := time.Now().UTC()
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	r.db.tickets[ticket.ID] = *ticket
	return nil
}

func (r memTickets) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r memTickets) List(ctx context.Context, filter repository.TicketListFilter) ([]model.Ticket, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Ticket
	for _, t := range r.db.tickets {
		if filter.MunicipalityID != nil && t.MunicipalityID != *filter.MunicipalityID {
			continue
		}
		if filter.CitizenID != nil && !t.OwnedBy(*filter.CitizenID) {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.AssignedOperatorID != nil && !t.AssignedTo(*filter.AssignedOperatorID) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r memTickets) TransitionStatus(ctx context.Context, ticket *model.Ticket, expected model.TicketStatus) error {
	if r.db.beforeTransition != nil {
		r.db.beforeTransition()
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.tickets[ticket.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStaleStatus
	}
	stored.Status = ticket.Status
	stored.AssignedOperatorID = ticket.AssignedOperatorID
	stored.CompletedAt = ticket.CompletedAt
	stored.RejectedAt = ticket.RejectedAt
	stored.RejectionReason = ticket.RejectionReason
	stored.UpdatedAt = time.Now().UTC()
	r.db.tickets[ticket.ID] = stored
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r memTickets) Touch(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.UpdatedAt = time.Now().UTC().Add(time.Millisecond)
	r.db.tickets[id] = t
	return nil
}

type memComments struct{ db *memDB }

func (r memComments) Create(ctx context.Context, comment *model.TicketComment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	comment.ID = uuid.New()
	comment.CreatedAt = time.Now().UTC()
	r.db.comments = append(r.db.comments, *comment)
	return nil
}

func (r memComments) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketComment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.TicketComment
	for _, c := range r.db.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memFeedback struct{ db *memDB }

func (r memFeedback) Create(ctx context.Context, feedback *model.TicketFeedback) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.feedback[feedback.TicketID]; ok {
		return gorm.ErrDuplicatedKey
	}
	feedback.ID = uuid.New()
	r.db.feedback[feedback.TicketID] = *feedback
	return nil
}

func (r memFeedback) FindByTicketID(ctx context.Context, ticketID uuid.UUID) (*model.TicketFeedback, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.feedback[ticketID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

type memAssignments struct{ db *memDB }

func (r memAssignments) Create(ctx context.Context, assignment *model.TicketAssignment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	assignment.ID = uuid.New()
	r.db.assignments = append(r.db.assignments, *assignment)
	return nil
}

func (r memAssignments) DeactivateActive(ctx context.Context, ticketID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now().UTC()
	for i := range r.db.assignments {
		a := &r.db.assignments[i]
		if a.TicketID == ticketID && a.IsActive {
			a.IsActive = false
			a.UnassignedAt = &now
		}
	}
	return nil
}

func (r memAssignments) FindActiveByTicket(ctx context.Context, ticketID uuid.UUID) (*model.TicketAssignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.assignments {
		if a.TicketID == ticketID && a.IsActive {
			return &a, nil
		}
	}
	return nil, nil
}

func (r memAssignments) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.TicketAssignment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.TicketAssignment
	for i := len(r.db.assignments) - 1; i >= 0; i-- {
		if r.db.assignments[i].TicketID == ticketID {
			out = append(out, r.db.assignments[i])
		}
	}
	return out, nil
}

type memNotifications struct{ db *memDB }

func (r memNotifications) Create(ctx context.Context, n *model.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.notificationErr != nil {
		return r.db.notificationErr
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	r.db.notifications = append(r.db.notifications, *n)
	return nil
}

func (r memNotifications) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.Notification
	for i := len(r.db.notifications) - 1; i >= 0; i-- {
		n := r.db.notifications[i]
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r memNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, x := range r.db.notifications {
		if x.UserID == userID && !x.Read {
			n++
		}
	}
	return n, nil
}

func (r memNotifications) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.notifications {
		if r.db.notifications[i].ID == id && r.db.notifications[i].UserID == userID {
			r.db.notifications[i].Read = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r memNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for i := range r.db.notifications {
		if r.db.notifications[i].UserID == userID && !r.db.notifications[i].Read {
			r.db.notifications[i].Read = true
			n++
		}
	}
	return n, nil
}

func (r memNotifications) Delete(ctx context.Context, id, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, x := range r.db.notifications {
		if x.ID == id && x.UserID == userID {
			r.db.notifications = append(r.db.notifications[:i], r.db.notifications[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memPrefs struct{ db *memDB }

func (r memPrefs) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.NotificationPreference, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.prefs[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memPrefs) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.prefs[pref.UserID] = *pref
	return nil
}

type memUsers struct{ db *memDB }

func (r memUsers) Create(ctx context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUsers) ListByRole(ctx context.Context, role model.Role, municipalityID *uuid.UUID) ([]model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.User
	for _, u := range r.db.users {
		if u.Role != role || !u.IsActive {
			continue
		}
		if municipalityID != nil && (u.MunicipalityID == nil || *u.MunicipalityID != *municipalityID) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r memUsers) Count(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.users)), nil
}

type memMunicipalities struct{ db *memDB }

func (r memMunicipalities) Create(ctx context.Context, m *model.Municipality) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.db.municipalities[m.ID] = *m
	return nil
}

func (r memMunicipalities) GetByID(ctx context.Context, id uuid.UUID) (*model.Municipality, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.municipalities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r memMunicipalities) List(ctx context.Context) ([]model.Municipality, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Municipality, 0, len(r.db.municipalities))
	for _, m := range r.db.municipalities {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memMunicipalities) Update(ctx context.Context, m *model.Municipality) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.municipalities[m.ID] = *m
	return nil
}

func (r memMunicipalities) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.municipalities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.db.municipalities, id)
	return nil
}

func (r memMunicipalities) Count(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.db.municipalities)), nil
}

type memBoundaries struct{ db *memDB }

func (r memBoundaries) GetByMunicipalityID(ctx context.Context, municipalityID uuid.UUID) (*model.MunicipalityBoundary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.boundaries[municipalityID]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r memBoundaries) Upsert(ctx context.Context, b *model.MunicipalityBoundary) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.boundaries[b.MunicipalityID] = *b
	return nil
}

type memMedia struct{ db *memDB }

func (r memMedia) Create(ctx context.Context, m *model.MediaFile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.db.media[m.ID] = *m
	return nil
}

func (r memMedia) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaFile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.media[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r memMedia) ListByTicketID(ctx context.Context, ticketID uuid.UUID) ([]model.MediaFile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []model.MediaFile
	for _, m := range r.db.media {
		if m.TicketID == ticketID {
			out = append(out, m)
		}
	}
	return out, nil
}

// fixture wires a TicketService and a small world: one municipality M1 with a
// citizen, two operators and a manager, plus an operator of another municipality.
type fixture struct {
	db            *memDB
	tickets       *TicketService
	notifications *NotificationService

	m1, m2       uuid.UUID
	citizen      model.Principal
	otherCitizen model.Principal
	operator     model.Principal
	operator2    model.Principal
	foreignOp    model.Principal
	manager      model.Principal
	admin        model.Principal
}

func newFixture() *fixture {
	db := newMemDB()
	f := &fixture{db: db, m1: uuid.New(), m2: uuid.New()}

	db.municipalities[f.m1] = model.Municipality{ID: f.m1, Name: "M1"}
	db.municipalities[f.m2] = model.Municipality{ID: f.m2, Name: "M2"}

	addUser := func(role model.Role, municipality *uuid.UUID) model.Principal {
		u := model.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: role, MunicipalityID: municipality, IsActive: true}
		db.users[u.ID] = u
		return u.Principal()
	}
	f.citizen = addUser(model.RoleCitizen, &f.m1)
	f.otherCitizen = addUser(model.RoleCitizen, &f.m1)
	f.operator = addUser(model.RoleOperator, &f.m1)
	f.operator2 = addUser(model.RoleOperator, &f.m1)
	f.foreignOp = addUser(model.RoleOperator, &f.m2)
	f.manager = addUser(model.RoleManager, &f.m1)
	f.admin = addUser(model.RoleAdmin, nil)

	log := zerolog.Nop()
	f.notifications = NewNotificationService(memNotifications{db}, memPrefs{db}, 50, log)
	f.tickets = NewTicketService(TicketServiceDeps{
		Tx:             memTx{db},
		Tickets:        memTickets{db},
		Comments:       memComments{db},
		Feedback:       memFeedback{db},
		Assignments:    memAssignments{db},
		Users:          memUsers{db},
		Municipalities: memMunicipalities{db},
		Notifications:  f.notifications,
		Metrics:        NewMetricsService(),
		Log:            log,
	})
	return f
}

func (f *fixture) createTicket(ctx context.Context) *model.Ticket {
	lat, lng := 50.45, 30.52
	ticket, err := f.tickets.Create(ctx, f.citizen, CreateTicketInput{
		MunicipalityID: &f.m1,
		Title:          "Pothole",
		Description:    "Deep pothole near the bus stop",
		Category:       model.CategoryRoads,
		Latitude:       &lat,
		Longitude:      &lng,
	})
	if err != nil {
		panic(err)
	}
	return ticket
}
