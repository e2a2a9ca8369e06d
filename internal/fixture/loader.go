package fixture

import (
	"context"
	"errors"
	"fmt"

	"swimeeter/internal/core"
	"swimeeter/pkg/domain"
)

// Service is the slice of core.Service the loader writes through.
type Service interface {
	CreateMeet(ctx context.Context, req core.Request, meet core.Meet) (core.Meet, core.Result, error)
	DeleteMeet(ctx context.Context, req core.Request, id string) (core.Result, error)
	CreateSession(ctx context.Context, req core.Request, session core.Session) (core.Session, core.Result, error)
	CreateEvent(ctx context.Context, req core.Request, event core.Event, pos core.Position) (core.Event, core.Result, error)
	CreateTeam(ctx context.Context, req core.Request, team core.Team) (core.Team, core.Result, error)
	CreateSwimmer(ctx context.Context, req core.Request, swimmer core.Swimmer) (core.Swimmer, core.Result, error)
	CreateIndividualEntry(ctx context.Context, req core.Request, entry core.IndividualEntry) (core.IndividualEntry, core.Result, error)
	CreateRelayEntry(ctx context.Context, req core.Request, sub core.RelaySubmission) (core.Relay, core.Result, error)
	ApplySeeding(ctx context.Context, req core.Request, eventID string, seeding core.Seeding) (core.Event, core.Result, error)
}

// Summary reports what a load created.
type Summary struct {
	MeetID   string            `json:"meet_id"`
	IDs      map[string]string `json:"ids"`
	Sessions int               `json:"sessions"`
	Events   int               `json:"events"`
	Teams    int               `json:"teams"`
	Swimmers int               `json:"swimmers"`
	Entries  int               `json:"entries"`
	Relays   int               `json:"relays"`
	Seeded   int               `json:"seeded_events"`
	// Duplicates lists records the duplicate policy resolved instead of creating.
	Duplicates []string `json:"duplicates,omitempty"`
}

// Load writes f through svc as req.Caller. Each record is its own
// transaction; when one fails the partially loaded meet is deleted and the
// error names the failing record.
func Load(ctx context.Context, svc Service, req core.Request, f Fixture) (Summary, error) {
	if err := f.Check(); err != nil {
		return Summary{}, err
	}
	meet, _, err := svc.CreateMeet(ctx, req, core.Meet{
		Name:        f.Meet.Name,
		Lanes:       f.Meet.Lanes,
		SideLength:  f.Meet.SideLength,
		MeasureUnit: f.Meet.MeasureUnit,
		IsPublic:    f.Meet.Public,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("meet %q: %w", f.Meet.Name, err)
	}
	l := &loader{svc: svc, req: req, sum: Summary{MeetID: meet.ID, IDs: map[string]string{}}}
	if err := l.load(ctx, meet, f); err != nil {
		if _, cleanupErr := svc.DeleteMeet(context.WithoutCancel(ctx), req, meet.ID); cleanupErr != nil {
			err = errors.Join(err, fmt.Errorf("remove partial meet %s: %w", meet.ID, cleanupErr))
		}
		return Summary{}, err
	}
	return l.sum, nil
}

type loader struct {
	svc Service
	req core.Request
	sum Summary
}

func (l *loader) note(label string, res core.Result) {
	if res.Duplicates != domain.DuplicatesNone {
		l.sum.Duplicates = append(l.sum.Duplicates, fmt.Sprintf("%s: %s", label, res.Duplicates))
	}
}

func (l *loader) remember(ref, id string) {
	if ref != "" {
		l.sum.IDs[ref] = id
	}
}

func (l *loader) load(ctx context.Context, meet core.Meet, f Fixture) error {
	for _, ss := range f.Sessions {
		session, _, err := l.svc.CreateSession(ctx, l.req, core.Session{MeetID: meet.ID, Name: ss.Name, BeginTime: ss.Begin, EndTime: ss.End})
		if err != nil {
			return fmt.Errorf("session %q: %w", ss.Name, err)
		}
		l.sum.Sessions++
		for _, es := range ss.Events {
			perEntry := es.SwimmersPerEntry
			if perEntry == 0 && !es.Relay {
				perEntry = 1
			}
			event, _, err := l.svc.CreateEvent(ctx, l.req, core.Event{
				SessionID:        session.ID,
				Stroke:           es.Stroke,
				Distance:         es.Distance,
				IsRelay:          es.Relay,
				SwimmersPerEntry: perEntry,
				CompetingGender:  es.Gender,
				CompetingMinAge:  es.MinAge,
				CompetingMaxAge:  es.MaxAge,
			}, core.End())
			if err != nil {
				return fmt.Errorf("event %s %d %s: %w", ss.Name, es.Distance, es.Stroke, err)
			}
			l.remember(es.Ref, event.ID)
			l.sum.Events++
		}
	}

	for _, ts := range f.Teams {
		team, res, err := l.svc.CreateTeam(ctx, l.req, core.Team{MeetID: meet.ID, Name: ts.Name, Acronym: ts.Acronym})
		if err != nil {
			return fmt.Errorf("team %q: %w", ts.Name, err)
		}
		l.note("team "+ts.Name, res)
		l.remember(ts.Ref, team.ID)
		l.sum.Teams++
		for _, sw := range ts.Swimmers {
			swimmer, res, err := l.svc.CreateSwimmer(ctx, l.req, core.Swimmer{
				MeetID:         meet.ID,
				TeamID:         team.ID,
				FirstName:      sw.FirstName,
				LastName:       sw.LastName,
				Prefix:         sw.Prefix,
				Suffix:         sw.Suffix,
				MiddleInitials: sw.MiddleInitials,
				Age:            sw.Age,
				Gender:         sw.Gender,
			})
			if err != nil {
				return fmt.Errorf("swimmer %s %s: %w", sw.FirstName, sw.LastName, err)
			}
			l.note("swimmer "+sw.FirstName+" "+sw.LastName, res)
			l.remember(sw.Ref, swimmer.ID)
			l.sum.Swimmers++
		}
	}

	placements := map[string]map[string]core.Placement{} // event ref -> entry ID -> slot
	place := func(eventRef, entryID string, heat, lane int) {
		if heat == 0 && lane == 0 {
			return
		}
		if placements[eventRef] == nil {
			placements[eventRef] = map[string]core.Placement{}
		}
		h, ln := heat, lane
		placements[eventRef][entryID] = core.Placement{HeatNumber: &h, LaneNumber: &ln}
	}
	for i, es := range f.Entries {
		entry, res, err := l.svc.CreateIndividualEntry(ctx, l.req, core.IndividualEntry{
			EventID:   l.sum.IDs[es.Event],
			SwimmerID: l.sum.IDs[es.Swimmer],
			SeedTime:  es.SeedTime,
		})
		if err != nil {
			return fmt.Errorf("entry %d (%s in %s): %w", i+1, es.Swimmer, es.Event, err)
		}
		l.note(fmt.Sprintf("entry %d", i+1), res)
		place(es.Event, entry.ID, es.Heat, es.Lane)
		l.sum.Entries++
	}
	for i, rs := range f.Relays {
		sub := core.RelaySubmission{EventID: l.sum.IDs[rs.Event]}
		for _, leg := range rs.Legs {
			leg.SwimmerID = l.sum.IDs[leg.SwimmerID]
			sub.Legs = append(sub.Legs, leg)
		}
		relay, res, err := l.svc.CreateRelayEntry(ctx, l.req, sub)
		if err != nil {
			return fmt.Errorf("relay %d (%s): %w", i+1, rs.Event, err)
		}
		l.note(fmt.Sprintf("relay %d", i+1), res)
		place(rs.Event, relay.Entry.ID, rs.Heat, rs.Lane)
		l.sum.Relays++
	}

	for _, ss := range f.Sessions {
		for _, es := range ss.Events {
			if es.TotalHeats <= 0 {
				continue
			}
			seeding := core.Seeding{TotalHeats: es.TotalHeats, Placements: placements[es.Ref]}
			if _, _, err := l.svc.ApplySeeding(ctx, l.req, l.sum.IDs[es.Ref], seeding); err != nil {
				return fmt.Errorf("seeding %s: %w", es.Ref, err)
			}
			l.sum.Seeded++
		}
	}
	return nil
}
