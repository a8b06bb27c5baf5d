package lifecycle

import (
	"context"
	"fmt"

	pickupModel "ecochain/models/pickup"
	userModel "ecochain/models/user"
	"ecochain/store"
)

func (m *Manager) Get(ctx context.Context, pickupID string) (*pickupModel.Pickup, error) {
	return m.load(ctx, pickupID)
}

// View returns the pickup when viewer may see it: its generator, its assignee,
// or a picker looking at a Pending pickup in their own pincode.
func (m *Manager) View(ctx context.Context, pickupID string, viewer *userModel.User) (*pickupModel.Pickup, error) {
	p, err := m.load(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if !CanView(p, viewer) {
		return nil, fmt.Errorf("view pickup %s: %w", pickupID, ErrAuthorization)
	}
	return p, nil
}

func CanView(p *pickupModel.Pickup, viewer *userModel.User) bool {
	switch {
	case viewer == nil:
		return false
	case p.GeneratorID == viewer.ID, p.IsAssignedTo(viewer.ID):
		return true
	case viewer.IsPicker() && p.Status == pickupModel.StatusPending:
		return p.Pincode != nil && viewer.Pincode != nil && *p.Pincode == *viewer.Pincode
	default:
		return false
	}
}

// ListForGenerator returns the generator's pickups, newest first, without withdrawn ones.
func (m *Manager) ListForGenerator(ctx context.Context, generatorID string) ([]pickupModel.Pickup, error) {
	pickups, err := m.store.ListPickups(ctx, store.PickupFilter{
		GeneratorID:   generatorID,
		ExcludeStatus: pickupModel.StatusWithdrawn,
	})
	if err != nil {
		return nil, storeError("list generator pickups", err)
	}
	return pickups, nil
}

// ListAvailable returns Pending pickups in the picker's pincode. An unavailable
// picker, or one without a pincode, sees nothing.
func (m *Manager) ListAvailable(ctx context.Context, picker *userModel.User) ([]pickupModel.Pickup, error) {
	if picker == nil || !picker.Available() || picker.Pincode == nil || *picker.Pincode == "" {
		return []pickupModel.Pickup{}, nil
	}

	pickups, err := m.store.ListPickups(ctx, store.PickupFilter{
		Pincode:  *picker.Pincode,
		Statuses: []pickupModel.Status{pickupModel.StatusPending},
	})
	if err != nil {
		return nil, storeError("list available pickups", err)
	}
	return pickups, nil
}

// ListForPicker returns pickups assigned to the picker in the given status.
func (m *Manager) ListForPicker(ctx context.Context, pickerID string, status pickupModel.Status) ([]pickupModel.Pickup, error) {
	if !status.HasPicker() {
		return nil, fmt.Errorf("%w: status must be %s or %s", ErrValidation, pickupModel.StatusAssigned, pickupModel.StatusCompleted)
	}

	pickups, err := m.store.ListPickups(ctx, store.PickupFilter{
		AssignedTo: pickerID,
		Statuses:   []pickupModel.Status{status},
	})
	if err != nil {
		return nil, storeError("list picker pickups", err)
	}
	return pickups, nil
}
