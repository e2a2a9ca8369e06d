package core

import (
	"testing"
	"time"

	"swimeeter/pkg/domain"
)

func TestCreateMeetRequiresHost(t *testing.T) {
	svc := NewInMemoryService(nil)
	ctx := t.Context()
	if _, _, err := svc.CreateMeet(ctx, nobody, Meet{Name: "Open", Lanes: 6, SideLength: 25, MeasureUnit: domain.UnitMeters}); statusOf(err) != domain.StatusUnauthenticated {
		t.Fatalf("expected 401, got %v", err)
	}
	begin := fixedNow
	meet, _, err := svc.CreateMeet(ctx, host, Meet{Name: "Open", Lanes: 6, SideLength: 25, MeasureUnit: domain.UnitYards, HostID: "spoofed", BeginTime: &begin})
	if err != nil {
		t.Fatalf("create meet: %v", err)
	}
	if meet.HostID != hostID || meet.BeginTime != nil || meet.EndTime != nil {
		t.Fatalf("expected caller as host and an empty window, got %+v", meet)
	}
	if _, _, err := svc.CreateMeet(ctx, host, Meet{Name: "Bad", Lanes: 0, SideLength: 25, MeasureUnit: domain.UnitMeters}); statusOf(err) != domain.StatusBadRequest {
		t.Fatalf("expected 400 for zero lanes, got %v", err)
	}
}

func TestMeetWindowFollowsSessions(t *testing.T) {
	f := newFixture(t)
	meet, err := f.svc.GetMeet(f.ctx, host.Caller, f.meet.ID)
	f.must(err)
	if !meet.BeginTime.Equal(f.session.BeginTime) || !meet.EndTime.Equal(f.session.EndTime) {
		t.Fatalf("expected window of the only session, got %v..%v", meet.BeginTime, meet.EndTime)
	}

	evening, _, err := f.svc.CreateSession(f.ctx, host, Session{
		MeetID:    f.meet.ID,
		Name:      "Evening",
		BeginTime: f.session.EndTime.Add(4 * time.Hour),
		EndTime:   f.session.EndTime.Add(7 * time.Hour),
	})
	f.must(err)
	meet, err = f.svc.GetMeet(f.ctx, host.Caller, f.meet.ID)
	f.must(err)
	if !meet.BeginTime.Equal(f.session.BeginTime) || !meet.EndTime.Equal(evening.EndTime) {
		t.Fatalf("expected window widened to the evening session, got %v..%v", meet.BeginTime, meet.EndTime)
	}

	earlier := f.session.BeginTime.Add(-time.Hour)
	_, _, err = f.svc.UpdateSession(f.ctx, host, f.session.ID, func(s *Session) error {
		s.BeginTime = earlier
		return nil
	})
	f.must(err)
	meet, err = f.svc.GetMeet(f.ctx, host.Caller, f.meet.ID)
	f.must(err)
	if !meet.BeginTime.Equal(earlier) {
		t.Fatalf("expected window to start at %v, got %v", earlier, meet.BeginTime)
	}

	_, err = f.svc.DeleteSession(f.ctx, host, f.session.ID)
	f.must(err)
	meet, err = f.svc.GetMeet(f.ctx, host.Caller, f.meet.ID)
	f.must(err)
	if !meet.BeginTime.Equal(evening.BeginTime) {
		t.Fatalf("expected window to shrink to the evening session, got %v", meet.BeginTime)
	}
	f.view(func(view domain.TransactionView) {
		if _, ok := view.FindEvent(f.free.ID); ok {
			t.Fatalf("events of a deleted session must go with it")
		}
	})

	_, err = f.svc.DeleteSession(f.ctx, host, evening.ID)
	f.must(err)
	meet, err = f.svc.GetMeet(f.ctx, host.Caller, f.meet.ID)
	f.must(err)
	if meet.BeginTime != nil || meet.EndTime != nil {
		t.Fatalf("a meet without sessions has no window, got %v..%v", meet.BeginTime, meet.EndTime)
	}
	f.assertInvariants()
}

func TestUpdateMeetLocksHostAndWindow(t *testing.T) {
	f := newFixture(t)
	updated, _, err := f.svc.UpdateMeet(f.ctx, host, f.meet.ID, func(m *Meet) error {
		m.Name = "Summer Open II"
		m.IsPublic = true
		m.HostID = "thief"
		m.BeginTime = nil
		return nil
	})
	f.must(err)
	if updated.Name != "Summer Open II" || !updated.IsPublic || updated.HostID != hostID || updated.BeginTime == nil {
		t.Fatalf("unexpected meet after update: %+v", updated)
	}

	if _, _, err := f.svc.UpdateMeet(f.ctx, host, f.meet.ID, func(m *Meet) error {
		m.MeasureUnit = "Cubits"
		return nil
	}); statusOf(err) != domain.StatusBadRequest {
		t.Fatalf("expected 400 for a bad unit, got %v", err)
	}
}

func TestMeetMutationAccess(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		req    Request
		status int
	}{
		{"anonymous", nobody, domain.StatusUnauthenticated},
		{"other host", intruder, domain.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := f.svc.UpdateMeet(f.ctx, tc.req, f.meet.ID, func(*Meet) error { return nil }); statusOf(err) != tc.status {
				t.Fatalf("update meet: status %d, want %d", statusOf(err), tc.status)
			}
			if _, _, err := f.svc.CreateSession(f.ctx, tc.req, Session{MeetID: f.meet.ID, Name: "X", BeginTime: fixedNow, EndTime: fixedNow}); statusOf(err) != tc.status {
				t.Fatalf("create session: status %d, want %d", statusOf(err), tc.status)
			}
			if _, _, err := f.svc.MoveEvent(f.ctx, tc.req, f.free.ID, Start()); statusOf(err) != tc.status {
				t.Fatalf("move event: status %d, want %d", statusOf(err), tc.status)
			}
			if _, err := f.svc.DeleteSwimmer(f.ctx, tc.req, f.swimmers[0].ID); statusOf(err) != tc.status {
				t.Fatalf("delete swimmer: status %d, want %d", statusOf(err), tc.status)
			}
			if _, err := f.svc.DeleteMeet(f.ctx, tc.req, f.meet.ID); statusOf(err) != tc.status {
				t.Fatalf("delete meet: status %d, want %d", statusOf(err), tc.status)
			}
		})
	}
	if _, _, err := f.svc.UpdateMeet(f.ctx, nobody, "missing", func(*Meet) error { return nil }); statusOf(err) != domain.StatusUnauthenticated {
		t.Fatalf("anonymous callers are refused before lookup, got %v", err)
	}
}

func TestDeleteMeetRemovesEverything(t *testing.T) {
	f := newFixture(t)
	f.enter(f.swimmers[0], 7000)
	f.enterRelay(
		RelayLeg{SwimmerID: f.swimmers[0].ID, OrderInRelay: 1, Split: 3000},
		RelayLeg{SwimmerID: f.swimmers[1].ID, OrderInRelay: 2, Split: 3000},
	)
	_, err := f.svc.DeleteMeet(f.ctx, host, f.meet.ID)
	f.must(err)
	f.view(func(view domain.TransactionView) {
		if len(view.ListMeets()) != 0 || len(view.SessionsByMeet(f.meet.ID)) != 0 ||
			len(view.TeamsByMeet(f.meet.ID)) != 0 || len(view.SwimmersByMeet(f.meet.ID)) != 0 ||
			len(view.RelayAssignmentsBySwimmer(f.swimmers[0].ID)) != 0 {
			t.Fatalf("expected the meet's records removed")
		}
	})
}
