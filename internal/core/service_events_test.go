package core

import (
	"testing"

	"swimeeter/pkg/domain"
)

func TestEligibilityChangeRevalidatesEntries(t *testing.T) {
	f := newFixture(t)
	f.enter(f.swimmers[0], 7000)
	f.enter(f.swimmers[2], 7100)
	f.seedAll(f.free.ID)

	_, _, err := f.svc.UpdateEvent(f.ctx, host, f.free.ID, func(e *Event) error {
		e.CompetingMaxAge = intPtr(13)
		return nil
	})
	if got := reasonOf(t, err); got != domain.ReasonIneligibleAge {
		t.Fatalf("reason = %s, want ineligible-age", got)
	}
	event := f.event(f.free.ID)
	if event.CompetingMaxAge != nil || !event.Seeded() {
		t.Fatalf("rejected update must leave the event untouched, got %+v", event)
	}

	_, _, err = f.svc.UpdateEvent(f.ctx, host, f.free.ID, func(e *Event) error {
		e.CompetingGender = domain.GenderMale
		return nil
	})
	if got := reasonOf(t, err); got != domain.ReasonIneligibleGender {
		t.Fatalf("reason = %s, want ineligible-gender", got)
	}

	updated, _, err := f.svc.UpdateEvent(f.ctx, host, f.free.ID, func(e *Event) error {
		e.CompetingGender = domain.GenderFemale
		e.CompetingMinAge = intPtr(10)
		return nil
	})
	f.must(err)
	if updated.Seeded() {
		t.Fatalf("eligibility change must clear seeding")
	}
	f.assertInvariants()
}

func TestRelayEligibilityRevalidatesRosters(t *testing.T) {
	f := newFixture(t)
	f.enterRelay(
		RelayLeg{SwimmerID: f.swimmers[0].ID, OrderInRelay: 1, Split: 3000},
		RelayLeg{SwimmerID: f.swimmers[2].ID, OrderInRelay: 2, Split: 3000},
	)
	_, _, err := f.svc.UpdateEvent(f.ctx, host, f.relay.ID, func(e *Event) error {
		e.CompetingMinAge = intPtr(13)
		return nil
	})
	if got := reasonOf(t, err); got != domain.ReasonIneligibleAge {
		t.Fatalf("reason = %s, want ineligible-age", got)
	}
}

func TestEventShapeIsFixedOnceEntered(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.UpdateEvent(f.ctx, host, f.relay.ID, func(e *Event) error {
		e.SwimmersPerEntry = 4
		return nil
	})
	f.must(err)

	f.enterRelay(
		RelayLeg{SwimmerID: f.swimmers[0].ID, OrderInRelay: 1, Split: 3000},
		RelayLeg{SwimmerID: f.swimmers[1].ID, OrderInRelay: 2, Split: 3000},
		RelayLeg{SwimmerID: f.swimmers[2].ID, OrderInRelay: 3, Split: 3000},
		RelayLeg{SwimmerID: mustSwimmer(f, "Di", 15).ID, OrderInRelay: 4, Split: 3000},
	)
	_, _, err = f.svc.UpdateEvent(f.ctx, host, f.relay.ID, func(e *Event) error {
		e.SwimmersPerEntry = 3
		return nil
	})
	if got := reasonOf(t, err); got != domain.ReasonEntriesExist {
		t.Fatalf("reason = %s, want entries-exist", got)
	}
	_, _, err = f.svc.UpdateEvent(f.ctx, host, f.relay.ID, func(e *Event) error {
		e.IsRelay, e.SwimmersPerEntry = false, 1
		return nil
	})
	if got := reasonOf(t, err); got != domain.ReasonEntriesExist {
		t.Fatalf("reason = %s, want entries-exist", got)
	}
	f.assertInvariants()
}

func mustSwimmer(f *meetFixture, first string, age int) Swimmer {
	f.t.Helper()
	swimmer, _, err := f.svc.CreateSwimmer(f.ctx, host, Swimmer{MeetID: f.meet.ID, TeamID: f.team.ID, FirstName: first, LastName: "Lane", Age: age, Gender: domain.GenderFemale})
	f.must(err)
	return swimmer
}

func TestUpdateEventIgnoresOrderAndHeats(t *testing.T) {
	f := newFixture(t)
	updated, _, err := f.svc.UpdateEvent(f.ctx, host, f.free.ID, func(e *Event) error {
		e.OrderInSession = 2
		e.TotalHeats = intPtr(4)
		return nil
	})
	f.must(err)
	if updated.OrderInSession != 1 || updated.Seeded() {
		t.Fatalf("order and heats belong to their own operations, got %+v", updated)
	}
	if _, _, err := f.svc.CreateEvent(f.ctx, host, Event{SessionID: f.session.ID, Stroke: domain.StrokeFreestyle, Distance: 50, SwimmersPerEntry: 1, CompetingGender: domain.GenderOpen, TotalHeats: intPtr(2)}, End()); err != nil {
		t.Fatalf("create event: %v", err)
	}
	f.assertInvariants()
}

func TestEventCannotLeaveItsMeet(t *testing.T) {
	f := newFixture(t)
	other, _, err := f.svc.CreateMeet(f.ctx, host, Meet{Name: "Autumn Cup", Lanes: 8, SideLength: 50, MeasureUnit: domain.UnitMeters})
	f.must(err)
	foreign, _, err := f.svc.CreateSession(f.ctx, host, Session{MeetID: other.ID, Name: "Finals", BeginTime: fixedNow, EndTime: fixedNow})
	f.must(err)

	_, _, err = f.svc.UpdateEvent(f.ctx, host, f.free.ID, func(e *Event) error {
		e.SessionID = foreign.ID
		return nil
	})
	if got := reasonOf(t, err); got != domain.ReasonMeetMismatch {
		t.Fatalf("reason = %s, want meet-mismatch", got)
	}
	if got := f.orders(); len(got) != 2 {
		t.Fatalf("rejected move must not change the session, got %v", got)
	}
}

func TestCreateEventValidatesFields(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CreateEvent(f.ctx, host, Event{SessionID: f.session.ID, Stroke: domain.StrokeMedley, Distance: 200, IsRelay: true, SwimmersPerEntry: 1, CompetingGender: domain.GenderOpen}, End())
	if got := reasonOf(t, err); got != domain.ReasonInvalidField {
		t.Fatalf("reason = %s, want invalid-field", got)
	}
	if _, _, err := f.svc.CreateEvent(f.ctx, host, Event{SessionID: "missing", Stroke: domain.StrokeFreestyle, Distance: 50, SwimmersPerEntry: 1, CompetingGender: domain.GenderOpen}, End()); statusOf(err) != domain.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %v", err)
	}
	if got := f.orders(); len(got) != 2 {
		t.Fatalf("rejected events must not take a slot, got %v", got)
	}
}
