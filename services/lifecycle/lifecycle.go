// Package lifecycle owns the state transitions of a pickup request:
//
//	Pending --assign--> Assigned --complete--> Completed
//	Pending --cancel--> Withdrawn
//
// Every transition is a conditional write on the stored status, so the store
// is the only serialization point between concurrent callers.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecochain/logger"
	"ecochain/metrics"
	pickupModel "ecochain/models/pickup"
	"ecochain/services/events"
	"ecochain/services/reward"
	"ecochain/store"

	"github.com/jinzhu/now"
)

// MaxPincodeLength bounds the area code on pickups and picker profiles.
const MaxPincodeLength = 6

// Rewarder issues completion rewards.
type Rewarder interface {
	Reward(ctx context.Context, userID string, points int) error
}

type Manager struct {
	store     store.Store
	rewarder  Rewarder
	publisher events.Publisher
	now       func() time.Time
}

// New wires a manager. A nil publisher discards events and a nil clock uses time.Now.
func New(st store.Store, rewarder Rewarder, publisher events.Publisher, clock func() time.Time) *Manager {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{store: st, rewarder: rewarder, publisher: publisher, now: clock}
}

type ScheduleInput struct {
	WasteTypes  []string
	Quantity    pickupModel.Quantity
	Location    pickupModel.Location
	PickupDate  time.Time
	UserAddress string
	Pincode     string
}

// Schedule creates a Pending pickup for the generator.
func (m *Manager) Schedule(ctx context.Context, generatorID string, in ScheduleInput) (*pickupModel.Pickup, error) {
	if strings.TrimSpace(generatorID) == "" {
		return nil, validationError("generator id is required")
	}

	wasteTypes, err := normalizeWasteTypes(in.WasteTypes)
	if err != nil {
		return nil, err
	}
	if !in.Quantity.IsValid() {
		return nil, validationError("unknown quantity %q", in.Quantity)
	}

	loc := in.Location
	loc.Address = strings.TrimSpace(loc.Address)
	userAddress := strings.TrimSpace(in.UserAddress)
	if loc.Address == "" {
		loc.Address = userAddress
	}
	if loc.Address == "" {
		return nil, validationError("location address is required")
	}
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return nil, validationError("location (%f, %f) is out of range", loc.Lat, loc.Lng)
	}

	if in.PickupDate.IsZero() {
		return nil, validationError("pickup date is required")
	}
	pickupDate := startOfDay(in.PickupDate)
	if pickupDate.Before(startOfDay(m.now())) {
		return nil, validationError("pickup date %s is in the past", pickupDate.Format("2006-01-02"))
	}

	pincode := strings.TrimSpace(in.Pincode)
	if len(pincode) > MaxPincodeLength {
		return nil, validationError("pincode must be at most %d characters", MaxPincodeLength)
	}

	ts := m.now()
	p := &pickupModel.Pickup{
		GeneratorID: generatorID,
		Status:      pickupModel.StatusPending,
		WasteTypes:  wasteTypes,
		Quantity:    in.Quantity,
		Location:    loc,
		UserAddress: optional(userAddress),
		Pincode:     optional(pincode),
		PickupDate:  pickupDate,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	if err := m.store.CreatePickup(ctx, p); err != nil {
		return nil, storeError("schedule pickup", err)
	}

	m.recordTransition(ctx, p, events.TypeScheduled, generatorID)
	return p, nil
}

// Cancel withdraws a Pending pickup on behalf of its generator.
func (m *Manager) Cancel(ctx context.Context, pickupID, requesterID string) error {
	p, err := m.load(ctx, pickupID)
	if err != nil {
		return err
	}
	if p.GeneratorID != requesterID {
		return fmt.Errorf("cancel pickup %s: %w: requester is not the generator", pickupID, ErrAuthorization)
	}
	if p.Status != pickupModel.StatusPending {
		return fmt.Errorf("cancel pickup %s: %w: status is %s", pickupID, ErrInvalidState, p.Status)
	}

	err = m.store.UpdatePickup(ctx, pickupID,
		store.Precondition{Status: pickupModel.StatusPending},
		store.Fields{pickupModel.FieldStatus: pickupModel.StatusWithdrawn})
	if errors.Is(err, store.ErrPreconditionFailed) {
		metrics.ConflictsTotal.WithLabelValues("cancel").Inc()
		return fmt.Errorf("cancel pickup %s: %w: status changed concurrently", pickupID, ErrInvalidState)
	}
	if err != nil {
		return storeError("cancel pickup", err)
	}

	p.Status = pickupModel.StatusWithdrawn
	p.UpdatedAt = m.now()
	m.recordTransition(ctx, p, events.TypeWithdrawn, requesterID)
	return nil
}

// Assign hands a Pending pickup to the picker. Of two concurrent callers
// exactly one wins; the other gets ErrAlreadyAssigned.
func (m *Manager) Assign(ctx context.Context, pickupID, pickerID string) (*pickupModel.Pickup, error) {
	if strings.TrimSpace(pickerID) == "" {
		return nil, validationError("picker id is required")
	}

	p, err := m.load(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case pickupModel.StatusPending:
	case pickupModel.StatusAssigned, pickupModel.StatusCompleted:
		return nil, fmt.Errorf("assign pickup %s: %w", pickupID, ErrAlreadyAssigned)
	default:
		return nil, fmt.Errorf("assign pickup %s: %w: status is %s", pickupID, ErrInvalidState, p.Status)
	}

	err = m.store.UpdatePickup(ctx, pickupID,
		store.Precondition{Status: pickupModel.StatusPending, Unset: []string{pickupModel.FieldAssignedTo}},
		store.Fields{
			pickupModel.FieldStatus:     pickupModel.StatusAssigned,
			pickupModel.FieldAssignedTo: pickerID,
		})
	if errors.Is(err, store.ErrPreconditionFailed) {
		metrics.ConflictsTotal.WithLabelValues("assign").Inc()
		return nil, fmt.Errorf("assign pickup %s: %w", pickupID, ErrAlreadyAssigned)
	}
	if err != nil {
		return nil, storeError("assign pickup", err)
	}

	p.Status = pickupModel.StatusAssigned
	p.AssignedTo = &pickerID
	p.UpdatedAt = m.now()
	m.recordTransition(ctx, p, events.TypeAssigned, pickerID)
	return p, nil
}

// Complete closes an Assigned pickup. pickerID may be empty; when set it must
// be the assignee and that picker is rewarded. The generator is always
// rewarded. Only the caller whose write lands issues rewards.
func (m *Manager) Complete(ctx context.Context, pickupID, pickerID string) (*pickupModel.Pickup, error) {
	p, err := m.load(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if p.Status != pickupModel.StatusAssigned {
		return nil, fmt.Errorf("complete pickup %s: %w: status is %s", pickupID, ErrInvalidState, p.Status)
	}
	if pickerID != "" && !p.IsAssignedTo(pickerID) {
		return nil, fmt.Errorf("complete pickup %s: %w: picker is not the assignee", pickupID, ErrAuthorization)
	}

	completedAt := m.now()
	err = m.store.UpdatePickup(ctx, pickupID,
		store.Precondition{Status: pickupModel.StatusAssigned},
		store.Fields{
			pickupModel.FieldStatus:      pickupModel.StatusCompleted,
			pickupModel.FieldCompletedAt: completedAt,
		})
	if errors.Is(err, store.ErrPreconditionFailed) {
		metrics.ConflictsTotal.WithLabelValues("complete").Inc()
		return nil, fmt.Errorf("complete pickup %s: %w: status changed concurrently", pickupID, ErrInvalidState)
	}
	if err != nil {
		return nil, storeError("complete pickup", err)
	}

	p.Status = pickupModel.StatusCompleted
	p.CompletedAt = &completedAt
	p.UpdatedAt = completedAt

	// The status write is committed; rewards must not depend on the caller staying connected.
	rewardCtx := context.WithoutCancel(ctx)
	if pickerID != "" {
		m.issueReward(rewardCtx, pickupID, pickerID)
	}
	m.issueReward(rewardCtx, pickupID, p.GeneratorID)

	actor := pickerID
	if actor == "" && p.AssignedTo != nil {
		actor = *p.AssignedTo
	}
	m.recordTransition(ctx, p, events.TypeCompleted, actor)
	return p, nil
}

// RateGenerator lets the assigned picker rate the generator.
func (m *Manager) RateGenerator(ctx context.Context, pickupID, raterID string, rating int, comment string) (*pickupModel.Pickup, error) {
	return m.rate(ctx, pickupID, raterID, rating, comment, generatorSide)
}

// RatePicker lets the generator rate the picker.
func (m *Manager) RatePicker(ctx context.Context, pickupID, raterID string, rating int, comment string) (*pickupModel.Pickup, error) {
	return m.rate(ctx, pickupID, raterID, rating, comment, pickerSide)
}

type ratingSide struct {
	ratingField  string
	commentField string
	rated        func(p *pickupModel.Pickup) bool
	mayRate      func(p *pickupModel.Pickup, raterID string) bool
	apply        func(p *pickupModel.Pickup, rating int, comment *string)
}

var generatorSide = ratingSide{
	ratingField:  pickupModel.FieldGeneratorRating,
	commentField: pickupModel.FieldGeneratorComment,
	rated:        func(p *pickupModel.Pickup) bool { return p.GeneratorRating != nil },
	mayRate:      func(p *pickupModel.Pickup, raterID string) bool { return p.IsAssignedTo(raterID) },
	apply: func(p *pickupModel.Pickup, rating int, comment *string) {
		p.GeneratorRating = &rating
		p.GeneratorComment = comment
	},
}

var pickerSide = ratingSide{
	ratingField:  pickupModel.FieldPickerRating,
	commentField: pickupModel.FieldPickerComment,
	rated:        func(p *pickupModel.Pickup) bool { return p.PickerRating != nil },
	mayRate:      func(p *pickupModel.Pickup, raterID string) bool { return p.GeneratorID == raterID },
	apply: func(p *pickupModel.Pickup, rating int, comment *string) {
		p.PickerRating = &rating
		p.PickerComment = comment
	},
}

func (m *Manager) rate(ctx context.Context, pickupID, raterID string, rating int, comment string, side ratingSide) (*pickupModel.Pickup, error) {
	if rating < pickupModel.MinRating || rating > pickupModel.MaxRating {
		return nil, validationError("rating must be between %d and %d, got %d", pickupModel.MinRating, pickupModel.MaxRating, rating)
	}

	p, err := m.load(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if !side.mayRate(p, raterID) {
		return nil, fmt.Errorf("rate pickup %s: %w", pickupID, ErrAuthorization)
	}
	if p.Status != pickupModel.StatusCompleted {
		return nil, fmt.Errorf("rate pickup %s: %w: status is %s", pickupID, ErrInvalidState, p.Status)
	}
	if side.rated(p) {
		return nil, fmt.Errorf("rate pickup %s: %w", pickupID, ErrAlreadyRated)
	}

	note := optional(strings.TrimSpace(comment))
	err = m.store.UpdatePickup(ctx, pickupID,
		store.Precondition{Status: pickupModel.StatusCompleted, Unset: []string{side.ratingField}},
		store.Fields{
			side.ratingField:  rating,
			side.commentField: note,
		})
	if errors.Is(err, store.ErrPreconditionFailed) {
		metrics.ConflictsTotal.WithLabelValues("rate").Inc()
		return nil, fmt.Errorf("rate pickup %s: %w", pickupID, ErrAlreadyRated)
	}
	if err != nil {
		return nil, storeError("rate pickup", err)
	}

	side.apply(p, rating, note)
	p.UpdatedAt = m.now()
	m.recordTransition(ctx, p, events.TypeRated, raterID)
	return p, nil
}

func (m *Manager) load(ctx context.Context, pickupID string) (*pickupModel.Pickup, error) {
	if strings.TrimSpace(pickupID) == "" {
		return nil, validationError("pickup id is required")
	}
	p, err := m.store.GetPickup(ctx, pickupID)
	if err != nil {
		return nil, storeError("load pickup "+pickupID, err)
	}
	return p, nil
}

// issueReward never fails the caller. Failures are logged and counted only.
func (m *Manager) issueReward(ctx context.Context, pickupID, userID string) {
	if err := m.rewarder.Reward(ctx, userID, reward.Points); err != nil {
		metrics.RewardFailures.Inc()
		logger.Error(fmt.Sprintf("Failed to reward user %s for pickup %s", userID, pickupID), err)
		return
	}
	logger.Debug(fmt.Sprintf("Rewarded user %s with %d points for pickup %s", userID, reward.Points, pickupID))
}

// recordTransition appends the audit row and publishes the event. Both are best effort.
func (m *Manager) recordTransition(ctx context.Context, p *pickupModel.Pickup, eventType, actorID string) {
	metrics.Transitions.WithLabelValues(eventType).Inc()
	ctx = context.WithoutCancel(ctx)
	ts := m.now()

	ev := &pickupModel.StatusEvent{
		PickupID:  p.ID,
		Status:    p.Status,
		EventType: eventType,
		ActorID:   actorID,
		CreatedAt: ts,
	}
	if err := m.store.AppendStatusEvent(ctx, ev); err != nil {
		logger.Error(fmt.Sprintf("Failed to record %s for pickup %s", eventType, p.ID), err)
	}

	msg := events.Event{
		Type:        eventType,
		PickupID:    p.ID,
		Status:      p.Status,
		GeneratorID: p.GeneratorID,
		ActorID:     actorID,
		OccurredAt:  ts,
	}
	if p.AssignedTo != nil {
		msg.PickerID = *p.AssignedTo
	}
	if err := m.publisher.Publish(ctx, msg); err != nil {
		metrics.EventPublishFailures.Inc()
		logger.Warning(fmt.Sprintf("Failed to publish %s for pickup %s: %v", eventType, p.ID, err))
	}
}

func normalizeWasteTypes(in []string) (pickupModel.StringSlice, error) {
	if len(in) == 0 {
		return nil, validationError("at least one waste type is required")
	}
	seen := make(map[string]bool, len(in))
	out := make(pickupModel.StringSlice, 0, len(in))
	for _, w := range in {
		w = strings.TrimSpace(w)
		if !pickupModel.IsValidWasteType(w) {
			return nil, validationError("unknown waste type %q", w)
		}
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out, nil
}

// startOfDay truncates to midnight UTC of the same calendar day.
func startOfDay(t time.Time) time.Time {
	return now.With(t.UTC()).BeginningOfDay()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
