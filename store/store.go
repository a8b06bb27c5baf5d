// Package store defines the document store contract shared by the postgres,
// mongo and in-memory backends.
package store

import (
	"context"
	"errors"

	pickupModel "ecochain/models/pickup"
	userModel "ecochain/models/user"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrDuplicate          = errors.New("duplicate record")
	ErrUnavailable        = errors.New("store unavailable")
)

// Fields maps column names to new values. Keys are the Field* constants of
// the model packages.
type Fields map[string]interface{}

// Precondition guards a conditional write. The write applies only when the
// stored status equals Status and every column listed in Unset is null.
type Precondition struct {
	Status pickupModel.Status
	Unset  []string
}

// PickupFilter selects pickups. Zero values are ignored.
type PickupFilter struct {
	GeneratorID   string
	AssignedTo    string
	Pincode       string
	Statuses      []pickupModel.Status
	ExcludeStatus pickupModel.Status
	Limit         int
}

// Store is the persistence contract. Pickups are listed newest first.
type Store interface {
	CreatePickup(ctx context.Context, p *pickupModel.Pickup) error
	GetPickup(ctx context.Context, id string) (*pickupModel.Pickup, error)
	UpdatePickup(ctx context.Context, id string, pre Precondition, fields Fields) error
	ListPickups(ctx context.Context, filter PickupFilter) ([]pickupModel.Pickup, error)

	CreateUser(ctx context.Context, u *userModel.User) error
	GetUser(ctx context.Context, id string) (*userModel.User, error)
	GetUserByEmail(ctx context.Context, email string) (*userModel.User, error)
	UpdateUser(ctx context.Context, id string, fields Fields) error
	IncrementPoints(ctx context.Context, userID string, delta int) error

	AppendStatusEvent(ctx context.Context, ev *pickupModel.StatusEvent) error

	Ping(ctx context.Context) error
	Close() error
}

// Matches reports whether p satisfies the filter. Backends without a query
// language use it directly.
func (f PickupFilter) Matches(p *pickupModel.Pickup) bool {
	if f.GeneratorID != "" && p.GeneratorID != f.GeneratorID {
		return false
	}
	if f.AssignedTo != "" && !p.IsAssignedTo(f.AssignedTo) {
		return false
	}
	if f.Pincode != "" && (p.Pincode == nil || *p.Pincode != f.Pincode) {
		return false
	}
	if f.ExcludeStatus != "" && p.Status == f.ExcludeStatus {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
