package core

import (
	"context"

	"swimeeter/pkg/domain"
)

// listing describes how one record type is listed: the parents a listing can
// be specific to, and the fields a prefix search may target.
type listing[T any] struct {
	entity EntityType
	// order lists the accepted specific_to values; the first is the default.
	order  []EntityType
	scopes map[EntityType]func(view domain.TransactionView, id string) []T
	fields searchFields[T]
}

var (
	sessionListing = listing[Session]{
		entity: EntitySession,
		order:  []EntityType{EntityMeet},
		scopes: map[EntityType]func(domain.TransactionView, string) []Session{
			EntityMeet: domain.TransactionView.SessionsByMeet,
		},
		fields: searchFields[Session]{
			"name": func(s Session) string { return s.Name },
		},
	}
	eventListing = listing[Event]{
		entity: EntityEvent,
		order:  []EntityType{EntitySession, EntityMeet},
		scopes: map[EntityType]func(domain.TransactionView, string) []Event{
			EntitySession: domain.TransactionView.EventsBySession,
			EntityMeet:    eventsOfMeet,
		},
		fields: searchFields[Event]{
			"stroke":           func(e Event) string { return string(e.Stroke) },
			"competing_gender": func(e Event) string { return string(e.CompetingGender) },
		},
	}
	teamListing = listing[Team]{
		entity: EntityTeam,
		order:  []EntityType{EntityMeet},
		scopes: map[EntityType]func(domain.TransactionView, string) []Team{
			EntityMeet: domain.TransactionView.TeamsByMeet,
		},
		fields: searchFields[Team]{
			"name":    func(t Team) string { return t.Name },
			"acronym": func(t Team) string { return t.Acronym },
		},
	}
	swimmerListing = listing[Swimmer]{
		entity: EntitySwimmer,
		order:  []EntityType{EntityMeet, EntityTeam},
		scopes: map[EntityType]func(domain.TransactionView, string) []Swimmer{
			EntityMeet: domain.TransactionView.SwimmersByMeet,
			EntityTeam: domain.TransactionView.SwimmersByTeam,
		},
		fields: searchFields[Swimmer]{
			"first_name":      func(s Swimmer) string { return s.FirstName },
			"last_name":       func(s Swimmer) string { return s.LastName },
			"prefix":          func(s Swimmer) string { return s.Prefix },
			"suffix":          func(s Swimmer) string { return s.Suffix },
			"middle_initials": func(s Swimmer) string { return s.MiddleInitials },
		},
	}
	individualEntryListing = listing[IndividualEntry]{
		entity: EntityIndividualEntry,
		order:  []EntityType{EntityEvent, EntitySwimmer},
		scopes: map[EntityType]func(domain.TransactionView, string) []IndividualEntry{
			EntityEvent:   domain.TransactionView.IndividualEntriesByEvent,
			EntitySwimmer: domain.TransactionView.IndividualEntriesBySwimmer,
		},
	}
	relayListing = listing[Relay]{
		entity: EntityRelayEntry,
		order:  []EntityType{EntityEvent, EntitySwimmer},
		scopes: map[EntityType]func(domain.TransactionView, string) []Relay{
			EntityEvent:   relaysOfEvent,
			EntitySwimmer: relaysOfSwimmer,
		},
	}
)

// list runs a scoped listing after checking the caller may read the meet the
// scope belongs to.
func list[T any](ctx context.Context, s *Service, op string, caller Caller, q Query, l listing[T]) ([]T, error) {
	var items []T
	err := s.read(ctx, op, q.ID, func(view domain.TransactionView) error {
		scope := q.SpecificTo
		if scope == "" {
			scope = l.order[0]
		}
		fetch, ok := l.scopes[scope]
		if !ok {
			return domain.Invalid(l.entity, domain.ReasonInvalidField, "%s cannot be listed specific to %q", l.entity, scope)
		}
		if _, err := s.readableMeet(view, caller, scope, q.ID); err != nil {
			return err
		}
		var err error
		items, err = applyQuery(l.entity, fetch(view, q.ID), q, l.fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// get loads one record after checking the caller may read its meet.
func get[T any](ctx context.Context, s *Service, op string, caller Caller, entity EntityType, id string, find func(domain.TransactionView, string) (T, bool)) (T, error) {
	var item T
	err := s.read(ctx, op, id, func(view domain.TransactionView) error {
		if _, err := s.readableMeet(view, caller, entity, id); err != nil {
			return err
		}
		found, ok := find(view, id)
		if !ok {
			return domain.ErrNotFound{Entity: entity, ID: id}
		}
		item = found
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

var meetFields = searchFields[Meet]{
	"name": func(m Meet) string { return m.Name },
}

// ListMeets lists the meets the caller may read. Meet listings are never
// specific to a parent.
func (s *Service) ListMeets(ctx context.Context, caller Caller, q Query) ([]Meet, error) {
	if q.SpecificTo != "" {
		return nil, domain.Invalid(EntityMeet, domain.ReasonInvalidField, "meets cannot be listed specific to %q", q.SpecificTo)
	}
	var meets []Meet
	err := s.read(ctx, "list_meets", "", func(view domain.TransactionView) error {
		var readable []Meet
		for _, meet := range view.ListMeets() {
			if s.guard.CanRead(meet, caller) {
				readable = append(readable, meet)
			}
		}
		var err error
		meets, err = applyQuery(EntityMeet, readable, q, meetFields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return meets, nil
}

// GetMeet returns a meet the caller may read.
func (s *Service) GetMeet(ctx context.Context, caller Caller, id string) (Meet, error) {
	return get(ctx, s, "get_meet", caller, EntityMeet, id, domain.TransactionView.FindMeet)
}

// GetSession returns a session of a meet the caller may read.
func (s *Service) GetSession(ctx context.Context, caller Caller, id string) (Session, error) {
	return get(ctx, s, "get_session", caller, EntitySession, id, domain.TransactionView.FindSession)
}

// ListSessions lists sessions of a meet.
func (s *Service) ListSessions(ctx context.Context, caller Caller, q Query) ([]Session, error) {
	return list(ctx, s, "list_sessions", caller, q, sessionListing)
}

// GetEvent returns an event.
func (s *Service) GetEvent(ctx context.Context, caller Caller, id string) (Event, error) {
	return get(ctx, s, "get_event", caller, EntityEvent, id, domain.TransactionView.FindEvent)
}

// ListEvents lists events of a session in order, or of a whole meet session
// by session.
func (s *Service) ListEvents(ctx context.Context, caller Caller, q Query) ([]Event, error) {
	return list(ctx, s, "list_events", caller, q, eventListing)
}

// GetTeam returns a team.
func (s *Service) GetTeam(ctx context.Context, caller Caller, id string) (Team, error) {
	return get(ctx, s, "get_team", caller, EntityTeam, id, domain.TransactionView.FindTeam)
}

// ListTeams lists teams of a meet.
func (s *Service) ListTeams(ctx context.Context, caller Caller, q Query) ([]Team, error) {
	return list(ctx, s, "list_teams", caller, q, teamListing)
}

// GetSwimmer returns a swimmer.
func (s *Service) GetSwimmer(ctx context.Context, caller Caller, id string) (Swimmer, error) {
	return get(ctx, s, "get_swimmer", caller, EntitySwimmer, id, domain.TransactionView.FindSwimmer)
}

// ListSwimmers lists swimmers of a meet or of a team.
func (s *Service) ListSwimmers(ctx context.Context, caller Caller, q Query) ([]Swimmer, error) {
	return list(ctx, s, "list_swimmers", caller, q, swimmerListing)
}

// GetIndividualEntry returns an individual entry.
func (s *Service) GetIndividualEntry(ctx context.Context, caller Caller, id string) (IndividualEntry, error) {
	return get(ctx, s, "get_individual_entry", caller, EntityIndividualEntry, id, domain.TransactionView.FindIndividualEntry)
}

// ListIndividualEntries lists entries of an event or of a swimmer.
func (s *Service) ListIndividualEntries(ctx context.Context, caller Caller, q Query) ([]IndividualEntry, error) {
	return list(ctx, s, "list_individual_entries", caller, q, individualEntryListing)
}

// GetRelayEntry returns a relay entry with its roster.
func (s *Service) GetRelayEntry(ctx context.Context, caller Caller, id string) (Relay, error) {
	return get(ctx, s, "get_relay_entry", caller, EntityRelayEntry, id, func(view domain.TransactionView, id string) (Relay, bool) {
		relay, err := loadRelay(view, id)
		return relay, err == nil
	})
}

// ListRelayEntries lists relay entries of an event, or those a swimmer swims in.
func (s *Service) ListRelayEntries(ctx context.Context, caller Caller, q Query) ([]Relay, error) {
	return list(ctx, s, "list_relay_entries", caller, q, relayListing)
}

// Audit evaluates every registered rule over the whole store. It reports
// invariant breaches that slipped past commit-time checks, for example in
// data imported from outside the service.
func (s *Service) Audit(ctx context.Context) (Result, error) {
	var res Result
	err := s.read(ctx, "audit", "", func(view domain.TransactionView) error {
		var err error
		res, err = s.store.RulesEngine().Evaluate(ctx, view, nil)
		return err
	})
	return res, err
}

func relaysOfEvent(view domain.TransactionView, eventID string) []Relay {
	entries := view.RelayEntriesByEvent(eventID)
	relays := make([]Relay, 0, len(entries))
	for _, entry := range entries {
		relays = append(relays, Relay{Entry: entry, Roster: view.RelayAssignmentsByEntry(entry.ID)})
	}
	return relays
}

func relaysOfSwimmer(view domain.TransactionView, swimmerID string) []Relay {
	slots := view.RelayAssignmentsBySwimmer(swimmerID)
	relays := make([]Relay, 0, len(slots))
	for _, slot := range slots {
		if relay, err := loadRelay(view, slot.RelayEntryID); err == nil {
			relays = append(relays, relay)
		}
	}
	return relays
}
