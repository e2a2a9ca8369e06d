package core

import (
	"context"

	"swimeeter/pkg/domain"
)

// CreateEvent adds an event to a session at pos, shifting later events down.
// New events are always unseeded.
func (s *Service) CreateEvent(ctx context.Context, req Request, event Event, pos Position) (Event, Result, error) {
	return runFor(ctx, s, "create_event", req, func(tx domain.Transaction, out *outcome) (Event, error) {
		if _, err := s.hostedMeet(tx, req.Caller, EntitySession, event.SessionID); err != nil {
			return Event{}, err
		}
		if err := validateEventFields(event); err != nil {
			return Event{}, err
		}
		slot, err := s.sequencer.Insert(tx, event.SessionID, pos)
		if err != nil {
			return Event{}, err
		}
		event.OrderInSession = slot
		event.TotalHeats = nil
		created, err := tx.CreateEvent(event)
		out.id = created.ID
		return created, err
	})
}

// UpdateEvent applies mutator to an event. Position and seeding have their
// own operations and are ignored here. Moving the event to another session
// of the same meet appends it there and closes the gap it leaves. Changing
// eligibility re-validates every existing entry and clears seeding; the relay
// shape can only change while the event has no entries.
func (s *Service) UpdateEvent(ctx context.Context, req Request, id string, mutator func(*Event) error) (Event, Result, error) {
	return runFor(ctx, s, "update_event", req, func(tx domain.Transaction, out *outcome) (Event, error) {
		out.id = id
		meet, err := s.hostedMeet(tx, req.Caller, EntityEvent, id)
		if err != nil {
			return Event{}, err
		}
		before, session, err := eventAndSession(tx, id)
		if err != nil {
			return Event{}, err
		}
		candidate := detachEvent(before)
		if err := mutator(&candidate); err != nil {
			return Event{}, err
		}
		candidate.OrderInSession, candidate.TotalHeats = before.OrderInSession, before.TotalHeats
		if err := validateEventFields(candidate); err != nil {
			return Event{}, err
		}

		shapeChanged := candidate.IsRelay != before.IsRelay || candidate.SwimmersPerEntry != before.SwimmersPerEntry
		if shapeChanged && hasEntries(tx, before) {
			return Event{}, domain.Invalid(EntityEvent, domain.ReasonEntriesExist, "event %s has entries; its relay shape is fixed", id)
		}
		if candidate.SessionID != before.SessionID {
			dest, ok := tx.FindSession(candidate.SessionID)
			if !ok {
				return Event{}, domain.ErrNotFound{Entity: EntitySession, ID: candidate.SessionID}
			}
			if dest.MeetID != meet.ID {
				return Event{}, domain.Invalid(EntityEvent, domain.ReasonMeetMismatch, "session %s belongs to another meet", dest.ID)
			}
			if err := s.sequencer.Remove(tx, before); err != nil {
				return Event{}, err
			}
			slot, err := s.sequencer.Insert(tx, dest.ID, End())
			if err != nil {
				return Event{}, err
			}
			candidate.OrderInSession = slot
			session = dest
		}
		eligibilityChanged := candidate.CompetingGender != before.CompetingGender ||
			!sameInt(candidate.CompetingMinAge, before.CompetingMinAge) ||
			!sameInt(candidate.CompetingMaxAge, before.CompetingMaxAge)
		if eligibilityChanged {
			if err := s.revalidateEvent(tx, candidate, session); err != nil {
				return Event{}, err
			}
		}

		if _, err := tx.UpdateEvent(id, func(e *Event) error {
			*e = candidate
			return nil
		}); err != nil {
			return Event{}, err
		}
		if eligibilityChanged || shapeChanged {
			if _, err := s.seeding.Invalidate(tx, id); err != nil {
				return Event{}, err
			}
		}
		updated, _ := tx.FindEvent(id)
		return updated, nil
	})
}

// MoveEvent repositions an event within its session.
func (s *Service) MoveEvent(ctx context.Context, req Request, id string, pos Position) (Event, Result, error) {
	return runFor(ctx, s, "move_event", req, func(tx domain.Transaction, out *outcome) (Event, error) {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityEvent, id); err != nil {
			return Event{}, err
		}
		if _, err := s.sequencer.Move(tx, id, pos); err != nil {
			return Event{}, err
		}
		moved, _ := tx.FindEvent(id)
		return moved, nil
	})
}

// DeleteEvent removes an event with its entries and closes the gap in the
// session order.
func (s *Service) DeleteEvent(ctx context.Context, req Request, id string) (Result, error) {
	return s.run(ctx, "delete_event", req, func(tx domain.Transaction, out *outcome) error {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityEvent, id); err != nil {
			return err
		}
		event, _ := tx.FindEvent(id)
		if err := tx.DeleteEvent(id); err != nil {
			return err
		}
		return s.sequencer.Remove(tx, event)
	})
}

// ApplySeeding records an externally computed heat and lane assignment for
// every entry of the event.
func (s *Service) ApplySeeding(ctx context.Context, req Request, eventID string, seeding Seeding) (Event, Result, error) {
	return runFor(ctx, s, "apply_seeding", req, func(tx domain.Transaction, out *outcome) (Event, error) {
		out.id = eventID
		meet, err := s.hostedMeet(tx, req.Caller, EntityEvent, eventID)
		if err != nil {
			return Event{}, err
		}
		if err := s.seeding.Apply(tx, eventID, seeding, meet.Lanes); err != nil {
			return Event{}, err
		}
		seeded, _ := tx.FindEvent(eventID)
		return seeded, nil
	})
}

// ClearSeeding drops the heat and lane assignments of an event.
func (s *Service) ClearSeeding(ctx context.Context, req Request, eventID string) (Event, Result, error) {
	return runFor(ctx, s, "clear_seeding", req, func(tx domain.Transaction, out *outcome) (Event, error) {
		out.id = eventID
		if _, err := s.hostedMeet(tx, req.Caller, EntityEvent, eventID); err != nil {
			return Event{}, err
		}
		if _, err := s.seeding.Invalidate(tx, eventID); err != nil {
			return Event{}, err
		}
		cleared, _ := tx.FindEvent(eventID)
		return cleared, nil
	})
}

// revalidateEvent checks every entry of the event against event as it is
// about to be written.
func (s *Service) revalidateEvent(view domain.TransactionView, event Event, session Session) error {
	if !event.IsRelay {
		for _, entry := range view.IndividualEntriesByEvent(event.ID) {
			swimmer, ok := view.FindSwimmer(entry.SwimmerID)
			if !ok {
				return domain.ErrNotFound{Entity: EntitySwimmer, ID: entry.SwimmerID}
			}
			if err := s.validator.ValidateIndividual(swimmer, event, session); err != nil {
				return err
			}
		}
		return nil
	}
	for _, entry := range view.RelayEntriesByEvent(event.ID) {
		legs, swimmers := rosterLegs(view, entry.ID)
		if _, err := s.validator.ValidateRelayRoster(legs, event, session, swimmers); err != nil {
			return err
		}
	}
	return nil
}

func hasEntries(view domain.TransactionView, event Event) bool {
	return len(view.IndividualEntriesByEvent(event.ID)) > 0 || len(view.RelayEntriesByEvent(event.ID)) > 0
}

func detachEvent(e Event) Event {
	e.CompetingMinAge = copyInt(e.CompetingMinAge)
	e.CompetingMaxAge = copyInt(e.CompetingMaxAge)
	e.TotalHeats = copyInt(e.TotalHeats)
	return e
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
