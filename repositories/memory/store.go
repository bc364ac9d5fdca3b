// Package memory is an in-process backend for local development and tests.
// Subject scopes apply the same visibility rules as the PostgreSQL row level
// security policies: profiles are readable by every authenticated subject but
// writable only by their owner, and step entries are private to their owner.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/walkingapp/walking-api/models"
	"github.com/walkingapp/walking-api/repositories"
)

// Store holds all rows. Each Run holds the store lock, so scopes are
// serialised and a failed Run leaves no partial writes behind.
type Store struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
	steps map[uuid.UUID]models.StepEntry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users: make(map[uuid.UUID]models.User),
		steps: make(map[uuid.UUID]models.StepEntry),
	}
}

// ForSubject returns a scope that only sees what subjectID may see.
func (s *Store) ForSubject(subjectID string) repositories.Scope {
	return &scope{store: s, subjectID: subjectID}
}

// Service returns an unrestricted scope.
func (s *Store) Service() repositories.Scope {
	return &scope{store: s, service: true}
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(context.Context) error {
	return nil
}

type scope struct {
	store     *Store
	subjectID string
	service   bool
}

func (sc *scope) Run(ctx context.Context, fn func(ctx context.Context, repos *repositories.Repositories) error) (err error) {
	var subject uuid.UUID
	if !sc.service {
		if sc.subjectID == "" {
			return errors.New("subject scope requires a subject id")
		}
		// Non-UUID subjects match no rows, as the policy cast would in PostgreSQL.
		subject, _ = uuid.Parse(sc.subjectID)
	}

	s := sc.store
	s.mu.Lock()
	defer s.mu.Unlock()

	users := maps.Clone(s.users)
	steps := maps.Clone(s.steps)
	defer func() {
		if p := recover(); p != nil {
			s.users, s.steps = users, steps
			panic(p)
		}
		if err != nil {
			s.users, s.steps = users, steps
		}
	}()

	repos := &repositories.Repositories{
		Users: &userRepo{store: s, subject: subject, service: sc.service},
		Steps: &stepRepo{store: s, subject: subject, service: sc.service},
	}
	return fn(ctx, repos)
}

type userRepo struct {
	store   *Store
	subject uuid.UUID
	service bool
}

func (r *userRepo) canWrite(id uuid.UUID) bool {
	return r.service || (r.subject != uuid.Nil && r.subject == id)
}

func (r *userRepo) Upsert(_ context.Context, user *models.User) error {
	if !r.canWrite(user.ID) {
		return fmt.Errorf("new row violates row-level security policy for table \"users\"")
	}
	if existing, ok := r.store.users[user.ID]; ok {
		existing.Email = user.Email
		r.store.users[user.ID] = existing
		*user = existing
		return nil
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.store.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", repositories.ErrNotFound, id)
	}
	return &user, nil
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	existing, ok := r.store.users[user.ID]
	if !ok || !r.canWrite(user.ID) {
		return fmt.Errorf("%w: user %s", repositories.ErrNotFound, user.ID)
	}
	existing.DisplayName = user.DisplayName
	existing.DailyStepGoal = user.DailyStepGoal
	existing.UpdatedAt = user.UpdatedAt
	r.store.users[user.ID] = existing
	return nil
}

type stepRepo struct {
	store   *Store
	subject uuid.UUID
	service bool
}

func (r *stepRepo) visible(entry models.StepEntry) bool {
	return r.service || (r.subject != uuid.Nil && entry.UserID == r.subject)
}

func (r *stepRepo) Create(_ context.Context, entry *models.StepEntry) error {
	if !r.visible(*entry) {
		return fmt.Errorf("new row violates row-level security policy for table \"step_entries\"")
	}
	if _, ok := r.store.users[entry.UserID]; !ok {
		return fmt.Errorf("insert violates foreign key constraint: user %s", entry.UserID)
	}
	for _, existing := range r.store.steps {
		if existing.UserID == entry.UserID && existing.EntryDate.Equal(entry.EntryDate) && existing.Source == entry.Source {
			return fmt.Errorf("%w: step entry for %s", repositories.ErrDuplicate, entry.Date())
		}
	}
	r.store.steps[entry.ID] = *entry
	return nil
}

func (r *stepRepo) GetByID(_ context.Context, id uuid.UUID) (*models.StepEntry, error) {
	entry, ok := r.store.steps[id]
	if !ok || !r.visible(entry) {
		return nil, fmt.Errorf("%w: step entry %s", repositories.ErrNotFound, id)
	}
	return &entry, nil
}

func (r *stepRepo) inRange(userID uuid.UUID, from, to time.Time) []models.StepEntry {
	var out []models.StepEntry
	for _, entry := range r.store.steps {
		if entry.UserID != userID || !r.visible(entry) {
			continue
		}
		if entry.EntryDate.Before(from) || entry.EntryDate.After(to) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.After(out[j].EntryDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *stepRepo) ListByUser(_ context.Context, userID uuid.UUID, from, to time.Time) ([]*models.StepEntry, error) {
	entries := r.inRange(userID, from, to)
	out := make([]*models.StepEntry, len(entries))
	for i := range entries {
		out[i] = &entries[i]
	}
	return out, nil
}

func (r *stepRepo) DailyTotals(_ context.Context, userID uuid.UUID, from, to time.Time) ([]models.DailyTotal, error) {
	var totals []models.DailyTotal
	for _, entry := range r.inRange(userID, from, to) {
		if n := len(totals); n > 0 && totals[n-1].Date.Equal(entry.EntryDate) {
			totals[n-1].Steps += entry.StepCount
			continue
		}
		totals = append(totals, models.DailyTotal{Date: entry.EntryDate, Steps: entry.StepCount})
	}
	return totals, nil
}

func (r *stepRepo) Delete(_ context.Context, id uuid.UUID) error {
	entry, ok := r.store.steps[id]
	if !ok || !r.visible(entry) {
		return fmt.Errorf("%w: step entry %s", repositories.ErrNotFound, id)
	}
	delete(r.store.steps, id)
	return nil
}
