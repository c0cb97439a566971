package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ticketops/helpdesk/internal/config"
	"github.com/ticketops/helpdesk/internal/domain"
	"github.com/ticketops/helpdesk/internal/repository"
)

// memStore is a shared in-memory backing for the fake repositories.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*domain.User
	tickets       map[int64]*domain.Ticket
	comments      []*domain.Comment
	nextTicketID  int64
	nextCommentID int64

	failTicketUpdate bool
	failListAgents   bool
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*domain.User),
		tickets: make(map[int64]*domain.Ticket),
	}
}

func (s *memStore) addUser(username string, role domain.UserRole, active bool) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &domain.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Active:   active,
	}
	s.users[user.ID] = user
	clone := *user
	return &clone
}

func (s *memStore) addTicket(t domain.Ticket) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTicketID++
	t.ID = s.nextTicketID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	stored := t
	s.tickets[t.ID] = &stored
	clone := t
	return &clone
}

func (s *memStore) ticket(id int64) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		clone := *t
		return &clone
	}
	return nil
}

func (s *memStore) commentsFor(id int64) []domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Comment
	for _, c := range s.comments {
		if c.TicketID == id {
			out = append(out, *c)
		}
	}
	return out
}

type memTicketRepo struct{ store *memStore }

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	created := r.store.addTicket(*ticket)
	*ticket = *created
	return nil
}

func (r *memTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failTicketUpdate {
		return errors.New("simulated write failure")
	}
	existing, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	r.store.tickets[ticket.ID] = &clone
	return nil
}

func (r *memTicketRepo) UpdateWithComment(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment) error {
	if err := r.Update(ctx, ticket); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextCommentID++
	comment.ID = r.store.nextCommentID
	comment.CreatedAt = time.Now()
	clone := *comment
	r.store.comments = append(r.store.comments, &clone)
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	if t := r.store.ticket(id); t != nil {
		return t, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) Delete(ctx context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.tickets, id)
	return nil
}

func (r *memTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.store.tickets {
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Unassigned && t.AssignedTo != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.OrderOldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[j].CreatedAt.Before(out[i].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memTicketRepo) ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.store.tickets {
		if !t.Status.IsActive() {
			continue
		}
		if t.ResolutionDueAt == nil || !t.ResolutionDueAt.Before(now) {
			continue
		}
		if t.Priority == domain.TicketPriorityHigh {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ResolutionDueAt.Before(*out[j].ResolutionDueAt)
	})
	return out, nil
}

func (r *memTicketRepo) ActiveLoadByAssignee(ctx context.Context, weights domain.PriorityWeights) (map[string]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	loads := make(map[string]int)
	for _, t := range r.store.tickets {
		if t.AssignedTo == nil || !t.Status.IsActive() {
			continue
		}
		loads[*t.AssignedTo] += weights.Weight(t.Priority)
	}
	return loads, nil
}

func (r *memTicketRepo) ActiveLoadForAgent(ctx context.Context, agentID string, weights domain.PriorityWeights) (int, error) {
	loads, err := r.ActiveLoadByAssignee(ctx, weights)
	if err != nil {
		return 0, err
	}
	return loads[agentID], nil
}

type memUserRepo struct{ store *memStore }

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *user
	clone.CreatedAt = time.Now()
	r.store.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.store.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.User
	for _, u := range r.store.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) ListAgents(ctx context.Context) ([]domain.User, error) {
	if r.store.failListAgents {
		return nil, errors.New("simulated agent listing failure")
	}
	role := domain.UserRoleAgent
	active := true
	return r.List(ctx, repository.UserFilter{Role: &role, Active: &active})
}

func (r *memUserRepo) EnsureSystemActor(ctx context.Context) (*domain.User, error) {
	if u, err := r.GetByUsername(ctx, domain.SystemActorUsername); err == nil {
		return u, nil
	}
	return r.store.addUser(domain.SystemActorUsername, domain.UserRoleAdmin, true), nil
}

type memCommentRepo struct{ store *memStore }

func (r *memCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextCommentID++
	comment.ID = r.store.nextCommentID
	comment.CreatedAt = time.Now()
	clone := *comment
	r.store.comments = append(r.store.comments, &clone)
	return nil
}

func (r *memCommentRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	return r.store.commentsFor(ticketID), nil
}

func containsStatus(haystack []domain.TicketStatus, needle domain.TicketStatus) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsPriority(haystack []domain.TicketPriority, needle domain.TicketPriority) bool {
	for _, p := range haystack {
		if p == needle {
			return true
		}
	}
	return false
}

func testAssignmentConfig() config.AssignmentConfig {
	return config.AssignmentConfig{
		WeightHigh:         3,
		WeightMedium:       2,
		WeightLow:          1,
		LoadCap:            10,
		LowResolutionHours: 72,
	}
}

// testEnv wires the core services over the fakes with a controllable clock.
type testEnv struct {
	store       *memStore
	systemActor *domain.User
	assignment  *AssignmentService
	escalation  *EscalationService
	tickets     *TicketService
	now         time.Time
}

func newTestEnv() *testEnv {
	store := newMemStore()
	systemActor := store.addUser(domain.SystemActorUsername, domain.UserRoleAdmin, true)
	ticketRepo := &memTicketRepo{store: store}
	userRepo := &memUserRepo{store: store}
	commentRepo := &memCommentRepo{store: store}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assignment := NewAssignmentService(testAssignmentConfig(), AssignmentDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		SystemActor: systemActor,
	})
	assignment.now = func() time.Time { return now }

	escalation := NewEscalationService(EscalationDependencies{
		TicketRepo:  ticketRepo,
		SystemActor: systemActor,
	})
	escalation.now = func() time.Time { return now }

	tickets := NewTicketService(TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		Assignment:  assignment,
	})

	return &testEnv{
		store:       store,
		systemActor: systemActor,
		assignment:  assignment,
		escalation:  escalation,
		tickets:     tickets,
		now:         now,
	}
}
