// Package memory is a mutex-guarded in-process Store. It backs the test
// suites and STORE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	pickupModel "ecochain/models/pickup"
	userModel "ecochain/models/user"
	"ecochain/store"
	"ecochain/types"

	"github.com/google/uuid"
)

type Store struct {
	mu      sync.RWMutex
	pickups map[string]*pickupModel.Pickup
	users   map[string]*userModel.User
	emails  map[string]string
	events  []pickupModel.StatusEvent
	logs    []types.LogEntry
	closed  bool

	// Now is the clock used for updated_at. Defaults to time.Now.
	Now func() time.Time
}

func New() *Store {
	return &Store{
		pickups: make(map[string]*pickupModel.Pickup),
		users:   make(map[string]*userModel.User),
		emails:  make(map[string]string),
		Now:     time.Now,
	}
}

func (s *Store) CreatePickup(ctx context.Context, p *pickupModel.Pickup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.pickups[p.ID]; exists {
		return fmt.Errorf("pickup %s: %w", p.ID, store.ErrDuplicate)
	}
	ts := s.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts
	s.pickups[p.ID] = clonePickup(p)
	return nil
}

func (s *Store) GetPickup(ctx context.Context, id string) (*pickupModel.Pickup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	p, ok := s.pickups[id]
	if !ok {
		return nil, fmt.Errorf("pickup %s: %w", id, store.ErrNotFound)
	}
	return clonePickup(p), nil
}

func (s *Store) UpdatePickup(ctx context.Context, id string, pre store.Precondition, fields store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	current, ok := s.pickups[id]
	if !ok {
		return fmt.Errorf("pickup %s: %w", id, store.ErrNotFound)
	}
	if pre.Status != "" && current.Status != pre.Status {
		return fmt.Errorf("pickup %s is %s: %w", id, current.Status, store.ErrPreconditionFailed)
	}
	for _, col := range pre.Unset {
		if !pickupFieldIsNull(current, col) {
			return fmt.Errorf("pickup %s has %s set: %w", id, col, store.ErrPreconditionFailed)
		}
	}

	next := clonePickup(current)
	for col, value := range fields {
		if err := setPickupField(next, col, value); err != nil {
			return err
		}
	}
	next.UpdatedAt = s.Now()
	s.pickups[id] = next
	return nil
}

func (s *Store) ListPickups(ctx context.Context, filter store.PickupFilter) ([]pickupModel.Pickup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	result := make([]pickupModel.Pickup, 0)
	for _, p := range s.pickups {
		if filter.Matches(p) {
			result = append(result, *clonePickup(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, u *userModel.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	email := strings.ToLower(u.Email)
	if _, taken := s.emails[email]; taken {
		return fmt.Errorf("email %s: %w", email, store.ErrDuplicate)
	}
	if _, exists := s.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrDuplicate)
	}
	ts := s.Now()
	u.CreatedAt = ts
	u.UpdatedAt = ts
	s.users[u.ID] = cloneUser(u)
	s.emails[email] = u.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*userModel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*userModel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("email %s: %w", email, store.ErrNotFound)
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, fields store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	current, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	next := cloneUser(current)
	for col, value := range fields {
		switch col {
		case userModel.FieldIsAvailable:
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("field %s expects bool, got %T", col, value)
			}
			next.IsAvailable = &v
		case userModel.FieldPincode:
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("field %s expects string, got %T", col, value)
			}
			next.Pincode = &v
		case userModel.FieldUpdatedAt:
		default:
			return fmt.Errorf("unknown user field %q", col)
		}
	}
	next.UpdatedAt = s.Now()
	s.users[id] = next
	return nil
}

func (s *Store) IncrementPoints(ctx context.Context, userID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	u.Points += delta
	u.UpdatedAt = s.Now()
	return nil
}

func (s *Store) AppendStatusEvent(ctx context.Context, ev *pickupModel.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.Now()
	}
	s.events = append(s.events, *ev)
	return nil
}

// StatusEvents returns the audit trail of one pickup in insertion order.
func (s *Store) StatusEvents(pickupID string) []pickupModel.StatusEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pickupModel.StatusEvent
	for _, ev := range s.events {
		if ev.PickupID == pickupID {
			out = append(out, ev)
		}
	}
	return out
}

// SaveLog keeps request logs in memory so the async logger has a sink.
func (s *Store) SaveLog(ctx context.Context, entry types.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *Store) Logs() []types.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.LogEntry(nil), s.logs...)
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// check must be called with the lock held.
func (s *Store) check(ctx context.Context) error {
	if s.closed {
		return store.ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%v: %w", err, store.ErrUnavailable)
	}
	return nil
}

func pickupFieldIsNull(p *pickupModel.Pickup, col string) bool {
	switch col {
	case pickupModel.FieldAssignedTo:
		return p.AssignedTo == nil
	case pickupModel.FieldCompletedAt:
		return p.CompletedAt == nil
	case pickupModel.FieldGeneratorRating:
		return p.GeneratorRating == nil
	case pickupModel.FieldGeneratorComment:
		return p.GeneratorComment == nil
	case pickupModel.FieldPickerRating:
		return p.PickerRating == nil
	case pickupModel.FieldPickerComment:
		return p.PickerComment == nil
	default:
		return false
	}
}

func setPickupField(p *pickupModel.Pickup, col string, value interface{}) error {
	switch col {
	case pickupModel.FieldStatus:
		v, ok := value.(pickupModel.Status)
		if !ok {
			return fmt.Errorf("field %s expects Status, got %T", col, value)
		}
		p.Status = v
	case pickupModel.FieldAssignedTo:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s expects string, got %T", col, value)
		}
		p.AssignedTo = &v
	case pickupModel.FieldCompletedAt:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("field %s expects time.Time, got %T", col, value)
		}
		p.CompletedAt = &v
	case pickupModel.FieldGeneratorRating:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("field %s expects int, got %T", col, value)
		}
		p.GeneratorRating = &v
	case pickupModel.FieldPickerRating:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("field %s expects int, got %T", col, value)
		}
		p.PickerRating = &v
	case pickupModel.FieldGeneratorComment, pickupModel.FieldPickerComment:
		v, err := optionalString(col, value)
		if err != nil {
			return err
		}
		if col == pickupModel.FieldGeneratorComment {
			p.GeneratorComment = v
		} else {
			p.PickerComment = v
		}
	case pickupModel.FieldUpdatedAt:
	default:
		return fmt.Errorf("unknown pickup field %q", col)
	}
	return nil
}

func optionalString(col string, value interface{}) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		s := *v
		return &s, nil
	case string:
		return &v, nil
	default:
		return nil, fmt.Errorf("field %s expects string, got %T", col, value)
	}
}

func clonePickup(p *pickupModel.Pickup) *pickupModel.Pickup {
	c := *p
	c.WasteTypes = append(pickupModel.StringSlice(nil), p.WasteTypes...)
	c.AssignedTo = cloneString(p.AssignedTo)
	c.UserAddress = cloneString(p.UserAddress)
	c.Pincode = cloneString(p.Pincode)
	c.GeneratorComment = cloneString(p.GeneratorComment)
	c.PickerComment = cloneString(p.PickerComment)
	c.GeneratorRating = cloneInt(p.GeneratorRating)
	c.PickerRating = cloneInt(p.PickerRating)
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneUser(u *userModel.User) *userModel.User {
	c := *u
	c.Pincode = cloneString(u.Pincode)
	if u.IsAvailable != nil {
		b := *u.IsAvailable
		c.IsAvailable = &b
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
