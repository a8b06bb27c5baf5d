package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pickupModel "ecochain/models/pickup"
	userModel "ecochain/models/user"
	"ecochain/services/events"
	"ecochain/services/reward"
	"ecochain/store/memory"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	recorder  *events.Recorder
	manager   *Manager
	generator *userModel.User
	picker    *userModel.User
	other     *userModel.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	s.Now = func() time.Time { return fixedNow }

	f := &fixture{ctx: ctx, store: s, recorder: &events.Recorder{}}
	f.generator = f.addUser(t, "gen@example.com", userModel.TypeGenerator)
	f.picker = f.addUser(t, "p1@example.com", userModel.TypePicker)
	f.other = f.addUser(t, "p2@example.com", userModel.TypePicker)
	f.manager = New(s, reward.NewService(s), f.recorder, func() time.Time { return fixedNow })
	return f
}

func (f *fixture) addUser(t *testing.T, email string, kind userModel.UserType) *userModel.User {
	t.Helper()
	u := &userModel.User{Name: email, Email: email, UserType: kind, Tier: userModel.DefaultTier}
	if kind == userModel.TypePicker {
		available := true
		pin := "110001"
		u.IsAvailable = &available
		u.Pincode = &pin
	}
	if err := f.store.CreateUser(f.ctx, u); err != nil {
		t.Fatal(err)
	}
	return u
}

func (f *fixture) points(t *testing.T, userID string) int {
	t.Helper()
	u, err := f.store.GetUser(f.ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	return u.Points
}

func validInput() ScheduleInput {
	return ScheduleInput{
		WasteTypes: []string{pickupModel.WastePlastic, pickupModel.WasteMetal},
		Quantity:   pickupModel.QuantityMediumBag,
		Location:   pickupModel.Location{Lat: 28.61, Lng: 77.21, Address: "12 Green Park"},
		PickupDate: fixedNow.AddDate(0, 0, 1),
		Pincode:    "110001",
	}
}

func (f *fixture) schedule(t *testing.T) *pickupModel.Pickup {
	t.Helper()
	p, err := f.manager.Schedule(f.ctx, f.generator.ID, validInput())
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	return p
}

func (f *fixture) assigned(t *testing.T) *pickupModel.Pickup {
	t.Helper()
	p := f.schedule(t)
	if _, err := f.manager.Assign(f.ctx, p.ID, f.picker.ID); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	return p
}

func (f *fixture) completed(t *testing.T) *pickupModel.Pickup {
	t.Helper()
	p := f.assigned(t)
	if _, err := f.manager.Complete(f.ctx, p.ID, f.picker.ID); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	return p
}

func TestSchedule(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.WasteTypes = append(in.WasteTypes, pickupModel.WastePlastic)
	in.PickupDate = time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)

	p, err := f.manager.Schedule(f.ctx, f.generator.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != pickupModel.StatusPending || p.AssignedTo != nil {
		t.Errorf("new pickup = status %s assigned %v", p.Status, p.AssignedTo)
	}
	if len(p.WasteTypes) != 2 {
		t.Errorf("duplicate waste types not collapsed: %v", p.WasteTypes)
	}
	if !p.PickupDate.Equal(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("pickup date = %v, want start of day", p.PickupDate)
	}

	stored, err := f.store.GetPickup(f.ctx, p.ID)
	if err != nil || stored.Status != pickupModel.StatusPending {
		t.Fatalf("stored pickup = %+v, %v", stored, err)
	}
	if got := f.recorder.Types(); len(got) != 1 || got[0] != events.TypeScheduled {
		t.Errorf("events = %v", got)
	}
	if evs := f.store.StatusEvents(p.ID); len(evs) != 1 || evs[0].ActorID != f.generator.ID {
		t.Errorf("status events = %+v", evs)
	}
}

func TestScheduleFallsBackToUserAddress(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Location.Address = "  "
	in.UserAddress = "Flat 4, Lake Road"

	p, err := f.manager.Schedule(f.ctx, f.generator.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if p.Location.Address != "Flat 4, Lake Road" || p.UserAddress == nil {
		t.Errorf("location = %+v, user address = %v", p.Location, p.UserAddress)
	}
}

func TestScheduleValidation(t *testing.T) {
	tests := []struct {
		name      string
		generator string
		mutate    func(in *ScheduleInput)
	}{
		{"missing generator", "", func(in *ScheduleInput) {}},
		{"no waste types", "g", func(in *ScheduleInput) { in.WasteTypes = nil }},
		{"unknown waste type", "g", func(in *ScheduleInput) { in.WasteTypes = []string{"Wood"} }},
		{"unknown quantity", "g", func(in *ScheduleInput) { in.Quantity = "Truck" }},
		{"no address", "g", func(in *ScheduleInput) { in.Location.Address = "" }},
		{"latitude out of range", "g", func(in *ScheduleInput) { in.Location.Lat = 91 }},
		{"longitude out of range", "g", func(in *ScheduleInput) { in.Location.Lng = -181 }},
		{"missing date", "g", func(in *ScheduleInput) { in.PickupDate = time.Time{} }},
		{"date in the past", "g", func(in *ScheduleInput) { in.PickupDate = fixedNow.AddDate(0, 0, -1) }},
		{"pincode too long", "g", func(in *ScheduleInput) { in.Pincode = "1100011" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tt.mutate(&in)
			_, err := f.manager.Schedule(f.ctx, tt.generator, in)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Schedule() error = %v, want ErrValidation", err)
			}
			if len(f.recorder.Events()) != 0 {
				t.Error("rejected schedule published an event")
			}
		})
	}
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	p := f.schedule(t)

	got, err := f.manager.Assign(f.ctx, p.ID, f.picker.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != pickupModel.StatusAssigned || !got.IsAssignedTo(f.picker.ID) {
		t.Errorf("assigned pickup = %+v", got)
	}

	if _, err := f.manager.Assign(f.ctx, p.ID, f.other.ID); !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("second Assign() error = %v, want ErrAlreadyAssigned", err)
	}
	stored, _ := f.store.GetPickup(f.ctx, p.ID)
	if !stored.IsAssignedTo(f.picker.ID) {
		t.Errorf("assignee overwritten: %v", *stored.AssignedTo)
	}

	if _, err := f.manager.Assign(f.ctx, "missing", f.picker.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Assign(missing) error = %v", err)
	}
	if _, err := f.manager.Assign(f.ctx, p.ID, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("Assign(no picker) error = %v", err)
	}
}

func TestConcurrentAssignHasExactlyOneWinner(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)
		p := f.schedule(t)

		pickers := []string{f.picker.ID, f.other.ID}
		errs := make([]error, len(pickers))
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i, id := range pickers {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				<-start
				_, errs[i] = f.manager.Assign(f.ctx, p.ID, id)
			}(i, id)
		}
		close(start)
		wg.Wait()

		wins, lost := 0, 0
		winner := ""
		for i, err := range errs {
			switch {
			case err == nil:
				wins++
				winner = pickers[i]
			case errors.Is(err, ErrAlreadyAssigned):
				lost++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 || lost != 1 {
			t.Fatalf("round %d: wins=%d lost=%d", round, wins, lost)
		}
		stored, _ := f.store.GetPickup(f.ctx, p.ID)
		if !stored.IsAssignedTo(winner) {
			t.Fatalf("round %d: stored assignee does not match the winner", round)
		}
	}
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	p := f.assigned(t)

	got, err := f.manager.Complete(f.ctx, p.ID, f.picker.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != pickupModel.StatusCompleted || got.CompletedAt == nil {
		t.Errorf("completed pickup = %+v", got)
	}
	if pts := f.points(t, f.picker.ID); pts != reward.Points {
		t.Errorf("picker points = %d", pts)
	}
	if pts := f.points(t, f.generator.ID); pts != reward.Points {
		t.Errorf("generator points = %d", pts)
	}

	if _, err := f.manager.Complete(f.ctx, p.ID, f.picker.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Complete() error = %v, want ErrInvalidState", err)
	}
	if pts := f.points(t, f.picker.ID); pts != reward.Points {
		t.Errorf("second Complete() issued more rewards: picker points = %d", pts)
	}
	if pts := f.points(t, f.generator.ID); pts != reward.Points {
		t.Errorf("second Complete() issued more rewards: generator points = %d", pts)
	}
}

func TestCompletePreconditions(t *testing.T) {
	f := newFixture(t)

	pending := f.schedule(t)
	if _, err := f.manager.Complete(f.ctx, pending.ID, f.picker.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Complete(pending) error = %v, want ErrInvalidState", err)
	}

	assigned := f.assigned(t)
	if _, err := f.manager.Complete(f.ctx, assigned.ID, f.other.ID); !errors.Is(err, ErrAuthorization) {
		t.Errorf("Complete(by other picker) error = %v, want ErrAuthorization", err)
	}
	if _, err := f.manager.Complete(f.ctx, "missing", f.picker.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Complete(missing) error = %v", err)
	}
	if pts := f.points(t, f.generator.ID); pts != 0 {
		t.Errorf("rejected completions rewarded the generator: %d", pts)
	}
}

func TestCompleteWithoutPickerRewardsGeneratorOnly(t *testing.T) {
	f := newFixture(t)
	p := f.assigned(t)

	if _, err := f.manager.Complete(f.ctx, p.ID, ""); err != nil {
		t.Fatal(err)
	}
	if pts := f.points(t, f.picker.ID); pts != 0 {
		t.Errorf("picker points = %d, want 0", pts)
	}
	if pts := f.points(t, f.generator.ID); pts != reward.Points {
		t.Errorf("generator points = %d", pts)
	}
}

type failingRewarder struct {
	calls int32
}

func (r *failingRewarder) Reward(context.Context, string, int) error {
	atomic.AddInt32(&r.calls, 1)
	return errors.New("points service down")
}

func TestCompleteSurvivesRewardFailure(t *testing.T) {
	f := newFixture(t)
	rewarder := &failingRewarder{}
	f.manager = New(f.store, rewarder, f.recorder, func() time.Time { return fixedNow })
	p := f.assigned(t)

	got, err := f.manager.Complete(f.ctx, p.ID, f.picker.ID)
	if err != nil {
		t.Fatalf("Complete() error = %v, reward failures must not surface", err)
	}
	if got.Status != pickupModel.StatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
	if calls := atomic.LoadInt32(&rewarder.calls); calls != 2 {
		t.Errorf("reward attempts = %d, want 2 with no retry", calls)
	}
	stored, _ := f.store.GetPickup(f.ctx, p.ID)
	if stored.Status != pickupModel.StatusCompleted {
		t.Errorf("completion rolled back: %s", stored.Status)
	}
}

func TestConcurrentCompleteRewardsOnce(t *testing.T) {
	f := newFixture(t)
	p := f.assigned(t)

	const callers = 8
	var wg sync.WaitGroup
	var successes int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.manager.Complete(f.ctx, p.ID, f.picker.ID); err == nil {
				atomic.AddInt32(&successes, 1)
			} else if !errors.Is(err, ErrInvalidState) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if pts := f.points(t, f.picker.ID); pts != reward.Points {
		t.Errorf("picker points = %d", pts)
	}
	if pts := f.points(t, f.generator.ID); pts != reward.Points {
		t.Errorf("generator points = %d", pts)
	}
}

func TestRateTwiceFails(t *testing.T) {
	f := newFixture(t)
	p := f.completed(t)

	got, err := f.manager.RatePicker(f.ctx, p.ID, f.generator.ID, 4, "on time")
	if err != nil {
		t.Fatal(err)
	}
	if *got.PickerRating != 4 || *got.PickerComment != "on time" {
		t.Errorf("rated pickup = %+v", got)
	}

	if _, err := f.manager.RatePicker(f.ctx, p.ID, f.generator.ID, 1, "changed my mind"); !errors.Is(err, ErrAlreadyRated) {
		t.Errorf("second RatePicker() error = %v, want ErrAlreadyRated", err)
	}
	stored, _ := f.store.GetPickup(f.ctx, p.ID)
	if *stored.PickerRating != 4 || *stored.PickerComment != "on time" {
		t.Errorf("second rating changed the stored values: %d %q", *stored.PickerRating, *stored.PickerComment)
	}

	if _, err := f.manager.RateGenerator(f.ctx, p.ID, f.picker.ID, 5, ""); err != nil {
		t.Errorf("RateGenerator() after RatePicker() error = %v", err)
	}
	if _, err := f.manager.RateGenerator(f.ctx, p.ID, f.picker.ID, 5, ""); !errors.Is(err, ErrAlreadyRated) {
		t.Errorf("second RateGenerator() error = %v, want ErrAlreadyRated", err)
	}
}

func TestConcurrentRatingHasOneWinner(t *testing.T) {
	f := newFixture(t)
	p := f.completed(t)

	var wg sync.WaitGroup
	var successes, rejected int32
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := f.manager.RateGenerator(f.ctx, p.ID, f.picker.ID, rating, "")
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, ErrAlreadyRated):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || rejected != 4 {
		t.Errorf("successes=%d rejected=%d", successes, rejected)
	}
}

func TestRateValidation(t *testing.T) {
	f := newFixture(t)
	p := f.completed(t)

	for _, rating := range []int{0, 6, -1} {
		if _, err := f.manager.RatePicker(f.ctx, p.ID, f.generator.ID, rating, ""); !errors.Is(err, ErrValidation) {
			t.Errorf("RatePicker(%d) error = %v, want ErrValidation", rating, err)
		}
	}
	if _, err := f.manager.RatePicker(f.ctx, p.ID, f.picker.ID, 5, ""); !errors.Is(err, ErrAuthorization) {
		t.Errorf("picker rating themselves: error = %v", err)
	}
	if _, err := f.manager.RateGenerator(f.ctx, p.ID, f.other.ID, 5, ""); !errors.Is(err, ErrAuthorization) {
		t.Errorf("unassigned picker rating the generator: error = %v", err)
	}

	assigned := f.assigned(t)
	if _, err := f.manager.RatePicker(f.ctx, assigned.ID, f.generator.ID, 5, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("rating before completion: error = %v, want ErrInvalidState", err)
	}
}

func TestRateBlankCommentStoredAsNull(t *testing.T) {
	f := newFixture(t)
	p := f.completed(t)

	if _, err := f.manager.RateGenerator(f.ctx, p.ID, f.picker.ID, 3, "   "); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.store.GetPickup(f.ctx, p.ID)
	if stored.GeneratorComment != nil {
		t.Errorf("comment = %q, want null", *stored.GeneratorComment)
	}
	if stored.GeneratorRating == nil || *stored.GeneratorRating != 3 {
		t.Errorf("rating = %v", stored.GeneratorRating)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	p := f.schedule(t)

	if err := f.manager.Cancel(f.ctx, p.ID, f.picker.ID); !errors.Is(err, ErrAuthorization) {
		t.Errorf("Cancel(by non-owner) error = %v, want ErrAuthorization", err)
	}
	if err := f.manager.Cancel(f.ctx, p.ID, f.generator.ID); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.store.GetPickup(f.ctx, p.ID)
	if stored.Status != pickupModel.StatusWithdrawn {
		t.Errorf("status = %s, want Withdrawn", stored.Status)
	}

	if _, err := f.manager.Assign(f.ctx, p.ID, f.picker.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Assign(withdrawn) error = %v, want ErrInvalidState", err)
	}
	if _, err := f.manager.Complete(f.ctx, p.ID, f.picker.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Complete(withdrawn) error = %v, want ErrInvalidState", err)
	}
	if _, err := f.manager.RatePicker(f.ctx, p.ID, f.generator.ID, 5, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("RatePicker(withdrawn) error = %v, want ErrInvalidState", err)
	}
	if err := f.manager.Cancel(f.ctx, p.ID, f.generator.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Cancel() error = %v, want ErrInvalidState", err)
	}
}

func TestCancelAfterAssignmentFails(t *testing.T) {
	f := newFixture(t)

	assigned := f.assigned(t)
	if err := f.manager.Cancel(f.ctx, assigned.ID, f.generator.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Cancel(assigned) error = %v, want ErrInvalidState", err)
	}

	completed := f.completed(t)
	if err := f.manager.Cancel(f.ctx, completed.ID, f.generator.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Cancel(completed) error = %v, want ErrInvalidState", err)
	}
	if err := f.manager.Cancel(f.ctx, "missing", f.generator.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)

	p, err := f.manager.Schedule(f.ctx, f.generator.ID, ScheduleInput{
		WasteTypes: []string{pickupModel.WastePlastic, pickupModel.WasteMetal},
		Quantity:   pickupModel.QuantityMediumBag,
		Location:   pickupModel.Location{Lat: 12.97, Lng: 77.59, Address: "MG Road"},
		PickupDate: fixedNow.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != pickupModel.StatusPending {
		t.Fatalf("status = %s", p.Status)
	}

	assigned, err := f.manager.Assign(f.ctx, p.ID, f.picker.ID)
	if err != nil {
		t.Fatal(err)
	}
	if assigned.Status != pickupModel.StatusAssigned || *assigned.AssignedTo != f.picker.ID {
		t.Fatalf("after assign: %+v", assigned)
	}

	if _, err := f.manager.Complete(f.ctx, p.ID, f.picker.ID); err != nil {
		t.Fatal(err)
	}
	if f.points(t, f.picker.ID) != 10 || f.points(t, f.generator.ID) != 10 {
		t.Fatalf("points picker=%d generator=%d", f.points(t, f.picker.ID), f.points(t, f.generator.ID))
	}

	rated, err := f.manager.RatePicker(f.ctx, p.ID, f.generator.ID, 5, "")
	if err != nil {
		t.Fatal(err)
	}
	if *rated.PickerRating != 5 {
		t.Fatalf("picker rating = %d", *rated.PickerRating)
	}
	if _, err := f.manager.RatePicker(f.ctx, p.ID, f.generator.ID, 5, ""); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("repeat rating error = %v", err)
	}

	want := []string{events.TypeScheduled, events.TypeAssigned, events.TypeCompleted, events.TypeRated}
	got := f.recorder.Types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if evs := f.store.StatusEvents(p.ID); len(evs) != 4 {
		t.Errorf("status events = %d, want 4", len(evs))
	}
}

func TestStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	p := f.schedule(t)
	_ = f.store.Close()

	if _, err := f.manager.Assign(f.ctx, p.ID, f.picker.ID); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Assign() error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := f.manager.Schedule(f.ctx, f.generator.ID, validInput()); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Schedule() error = %v, want ErrStoreUnavailable", err)
	}
}
