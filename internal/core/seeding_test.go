package core

import (
	"testing"

	"swimeeter/pkg/domain"
)

func TestSeedTimeChangeClearsSeeding(t *testing.T) {
	f := newFixture(t)
	entry := f.enter(f.swimmers[0], 120)
	f.enter(f.swimmers[1], 130)

	seeding := Seeding{TotalHeats: 3, Placements: map[string]Placement{}}
	f.view(func(view domain.TransactionView) {
		for i, e := range view.IndividualEntriesByEvent(f.free.ID) {
			seeding.Placements[e.ID] = Placement{HeatNumber: intPtr(3), LaneNumber: intPtr(i + 1)}
		}
	})
	seeded, _, err := f.svc.ApplySeeding(f.ctx, host, f.free.ID, seeding)
	f.must(err)
	if !seeded.Seeded() || *seeded.TotalHeats != 3 {
		t.Fatalf("expected event seeded with 3 heats, got %+v", seeded.TotalHeats)
	}

	updated, _, err := f.svc.UpdateIndividualEntry(f.ctx, host, entry.ID, func(e *IndividualEntry) error {
		e.SeedTime = 95
		return nil
	})
	f.must(err)
	if updated.SeedTime != 95 || updated.Placed() || updated.HeatNumber != nil || updated.LaneNumber != nil {
		t.Fatalf("expected placement cleared, got %+v", updated)
	}
	if f.event(f.free.ID).Seeded() {
		t.Fatalf("expected total heats cleared")
	}
	f.view(func(view domain.TransactionView) {
		for _, e := range view.IndividualEntriesByEvent(f.free.ID) {
			if e.HeatNumber != nil || e.LaneNumber != nil {
				t.Fatalf("entry %s kept placement after invalidation", e.ID)
			}
		}
	})
	f.assertInvariants()
}

func TestUnchangedEntryKeepsSeeding(t *testing.T) {
	f := newFixture(t)
	entry := f.enter(f.swimmers[0], 120)
	f.seedAll(f.free.ID)

	same, _, err := f.svc.UpdateIndividualEntry(f.ctx, host, entry.ID, func(e *IndividualEntry) error {
		e.HeatNumber = intPtr(9)
		return nil
	})
	f.must(err)
	if !same.Placed() || *same.HeatNumber != 1 {
		t.Fatalf("expected placement untouched, got %+v", same.Placement)
	}
	if !f.event(f.free.ID).Seeded() {
		t.Fatalf("expected event to stay seeded")
	}
}

func TestEntryChangesInvalidateSeeding(t *testing.T) {
	cases := []struct {
		name   string
		change func(f *meetFixture)
	}{
		{"new entry", func(f *meetFixture) { f.enter(f.swimmers[2], 150) }},
		{"deleted entry", func(f *meetFixture) {
			var id string
			f.view(func(view domain.TransactionView) { id = view.IndividualEntriesByEvent(f.free.ID)[0].ID })
			_, err := f.svc.DeleteIndividualEntry(f.ctx, host, id)
			f.must(err)
		}},
		{"deleted swimmer", func(f *meetFixture) {
			_, err := f.svc.DeleteSwimmer(f.ctx, host, f.swimmers[0].ID)
			f.must(err)
		}},
		{"eligibility change", func(f *meetFixture) {
			_, _, err := f.svc.UpdateEvent(f.ctx, host, f.free.ID, func(e *Event) error {
				e.CompetingMaxAge = intPtr(18)
				return nil
			})
			f.must(err)
		}},
		{"explicit clear", func(f *meetFixture) {
			_, _, err := f.svc.ClearSeeding(f.ctx, host, f.free.ID)
			f.must(err)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.enter(f.swimmers[0], 120)
			f.enter(f.swimmers[1], 125)
			f.seedAll(f.free.ID)

			tc.change(f)
			if f.event(f.free.ID).Seeded() {
				t.Fatalf("expected seeding cleared")
			}
			f.assertInvariants()
		})
	}
}

func TestRenamingEventKeepsSeeding(t *testing.T) {
	f := newFixture(t)
	f.enter(f.swimmers[0], 120)
	f.seedAll(f.free.ID)
	_, _, err := f.svc.UpdateEvent(f.ctx, host, f.free.ID, func(e *Event) error {
		e.Distance = 200
		return nil
	})
	f.must(err)
	if !f.event(f.free.ID).Seeded() {
		t.Fatalf("distance change should not clear seeding")
	}
	f.assertInvariants()
}

func TestInvalidateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.enter(f.swimmers[0], 120)
	f.seedAll(f.free.ID)

	var first, second bool
	_, err := f.svc.Store().RunInTransaction(f.ctx, func(tx domain.Transaction) error {
		var err error
		if first, err = (SeedingInvalidator{}).Invalidate(tx, f.free.ID); err != nil {
			return err
		}
		second, err = (SeedingInvalidator{}).Invalidate(tx, f.free.ID)
		return err
	})
	f.must(err)
	if !first || second {
		t.Fatalf("expected first call to clear and second to be a no-op, got %v %v", first, second)
	}

	_, err = f.svc.Store().RunInTransaction(f.ctx, func(tx domain.Transaction) error {
		_, err := (SeedingInvalidator{}).Invalidate(tx, "missing")
		return err
	})
	if statusOf(err) != domain.StatusNotFound {
		t.Fatalf("expected not found for missing event, got %v", err)
	}
}

func TestApplySeedingRejectsBadAssignments(t *testing.T) {
	f := newFixture(t)
	a := f.enter(f.swimmers[0], 120)
	b := f.enter(f.swimmers[1], 125)
	place := func(heat, lane int) Placement { return Placement{HeatNumber: intPtr(heat), LaneNumber: intPtr(lane)} }

	cases := []struct {
		name    string
		seeding Seeding
	}{
		{"no heats", Seeding{TotalHeats: 0, Placements: map[string]Placement{a.ID: place(1, 1), b.ID: place(1, 2)}}},
		{"missing entry", Seeding{TotalHeats: 1, Placements: map[string]Placement{a.ID: place(1, 1)}}},
		{"unknown entry", Seeding{TotalHeats: 1, Placements: map[string]Placement{a.ID: place(1, 1), "stray": place(1, 2)}}},
		{"half placement", Seeding{TotalHeats: 1, Placements: map[string]Placement{a.ID: place(1, 1), b.ID: {HeatNumber: intPtr(1)}}}},
		{"heat out of range", Seeding{TotalHeats: 1, Placements: map[string]Placement{a.ID: place(1, 1), b.ID: place(2, 2)}}},
		{"lane beyond pool", Seeding{TotalHeats: 1, Placements: map[string]Placement{a.ID: place(1, 1), b.ID: place(1, 7)}}},
		{"shared slot", Seeding{TotalHeats: 1, Placements: map[string]Placement{a.ID: place(1, 3), b.ID: place(1, 3)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.ApplySeeding(f.ctx, host, f.free.ID, tc.seeding)
			if got := reasonOf(t, err); got != domain.ReasonInvalidField {
				t.Fatalf("reason = %s, want invalid-field", got)
			}
			if f.event(f.free.ID).Seeded() {
				t.Fatalf("rejected seeding must not be recorded")
			}
		})
	}
}

func TestSeedRelayEvent(t *testing.T) {
	f := newFixture(t)
	relay := f.enterRelay(
		RelayLeg{SwimmerID: f.swimmers[0].ID, OrderInRelay: 1, Split: 3000},
		RelayLeg{SwimmerID: f.swimmers[1].ID, OrderInRelay: 2, Split: 3100},
	)
	event := f.seedAll(f.relay.ID)
	if !event.Seeded() {
		t.Fatalf("expected relay event seeded")
	}
	stored, err := f.svc.GetRelayEntry(f.ctx, host.Caller, relay.Entry.ID)
	f.must(err)
	if !stored.Entry.Placed() {
		t.Fatalf("expected relay entry placed")
	}
	f.assertInvariants()
}

func TestShrinkingPoolClearsSeedingBeyondLanes(t *testing.T) {
	f := newFixture(t)
	f.enter(f.swimmers[0], 120)
	f.enter(f.swimmers[1], 125)
	f.enter(f.swimmers[2], 130)
	f.seedAll(f.free.ID)

	_, _, err := f.svc.UpdateMeet(f.ctx, host, f.meet.ID, func(m *Meet) error {
		m.Lanes = 4
		return nil
	})
	f.must(err)
	if !f.event(f.free.ID).Seeded() {
		t.Fatalf("lanes 1..3 still fit a four lane pool")
	}

	_, _, err = f.svc.UpdateMeet(f.ctx, host, f.meet.ID, func(m *Meet) error {
		m.Lanes = 2
		return nil
	})
	f.must(err)
	if f.event(f.free.ID).Seeded() {
		t.Fatalf("expected seeding cleared once lane 3 no longer exists")
	}
	f.assertInvariants()
}
