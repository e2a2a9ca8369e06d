package core

import (
	"context"
	"sort"

	"swimeeter/pkg/domain"
)

// RelaySubmission is a relay entry as a caller submits it: the event entered
// and the complete roster.
type RelaySubmission struct {
	EventID string     `json:"event_id" yaml:"event"`
	Legs    []RelayLeg `json:"legs" yaml:"legs"`
}

// Relay is a stored relay entry with its roster ordered by leg.
type Relay struct {
	Entry  RelayEntry        `json:"entry"`
	Roster []RelayAssignment `json:"roster"`
}

// CreateIndividualEntry enters a swimmer in a non-relay event. Any heat and
// lane on the submitted entry are ignored, and the event's seeding is
// cleared.
func (s *Service) CreateIndividualEntry(ctx context.Context, req Request, entry IndividualEntry) (IndividualEntry, Result, error) {
	return runFor(ctx, s, "create_individual_entry", req, func(tx domain.Transaction, out *outcome) (IndividualEntry, error) {
		if _, err := s.hostedMeet(tx, req.Caller, EntityEvent, entry.EventID); err != nil {
			return IndividualEntry{}, err
		}
		if err := s.checkIndividualEntry(tx, entry); err != nil {
			return IndividualEntry{}, err
		}
		entry.ID = ""
		entry.Clear()
		existing, proceed, err := s.resolveDuplicates(tx, req, IndividualEntryCandidate{Entry: entry}, out)
		if err != nil {
			return IndividualEntry{}, err
		}
		if !proceed {
			kept, _ := tx.FindIndividualEntry(existing)
			out.id = kept.ID
			return kept, nil
		}
		created, err := tx.CreateIndividualEntry(entry)
		if err != nil {
			return IndividualEntry{}, err
		}
		out.id = created.ID
		if _, err := s.seeding.Invalidate(tx, created.EventID); err != nil {
			return IndividualEntry{}, err
		}
		current, _ := tx.FindIndividualEntry(created.ID)
		return current, nil
	})
}

// UpdateIndividualEntry applies mutator to an entry. Heat and lane are owned
// by seeding and cannot be set here. A change of event, swimmer or seed time
// clears the seeding of every event involved.
func (s *Service) UpdateIndividualEntry(ctx context.Context, req Request, id string, mutator func(*IndividualEntry) error) (IndividualEntry, Result, error) {
	return runFor(ctx, s, "update_individual_entry", req, func(tx domain.Transaction, out *outcome) (IndividualEntry, error) {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityIndividualEntry, id); err != nil {
			return IndividualEntry{}, err
		}
		before, _ := tx.FindIndividualEntry(id)
		candidate := before
		if err := mutator(&candidate); err != nil {
			return IndividualEntry{}, err
		}
		candidate.ID, candidate.Placement = id, before.Placement
		moved := candidate.EventID != before.EventID
		if moved {
			if _, err := s.hostedMeet(tx, req.Caller, EntityEvent, candidate.EventID); err != nil {
				return IndividualEntry{}, err
			}
		}
		if err := s.checkIndividualEntry(tx, candidate); err != nil {
			return IndividualEntry{}, err
		}
		keyChanged := moved || candidate.SwimmerID != before.SwimmerID
		if keyChanged {
			existing, proceed, err := s.resolveDuplicates(tx, req, IndividualEntryCandidate{Entry: candidate}, out)
			if err != nil {
				return IndividualEntry{}, err
			}
			if !proceed {
				kept, _ := tx.FindIndividualEntry(existing)
				return kept, nil
			}
		}
		if !keyChanged && candidate.SeedTime == before.SeedTime {
			return before, nil
		}
		candidate.Clear()
		if _, err := tx.UpdateIndividualEntry(id, func(e *IndividualEntry) error {
			*e = candidate
			return nil
		}); err != nil {
			return IndividualEntry{}, err
		}
		if err := s.invalidateAll(tx, before.EventID, candidate.EventID); err != nil {
			return IndividualEntry{}, err
		}
		updated, _ := tx.FindIndividualEntry(id)
		return updated, nil
	})
}

// DeleteIndividualEntry removes an entry and clears its event's seeding.
func (s *Service) DeleteIndividualEntry(ctx context.Context, req Request, id string) (Result, error) {
	return s.run(ctx, "delete_individual_entry", req, func(tx domain.Transaction, out *outcome) error {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityIndividualEntry, id); err != nil {
			return err
		}
		return s.removeIndividualEntry(tx, id)
	})
}

// CreateRelayEntry enters a relay roster in a relay event. The entry seed
// time is the sum of the leg splits.
func (s *Service) CreateRelayEntry(ctx context.Context, req Request, sub RelaySubmission) (Relay, Result, error) {
	return runFor(ctx, s, "create_relay_entry", req, func(tx domain.Transaction, out *outcome) (Relay, error) {
		if _, err := s.hostedMeet(tx, req.Caller, EntityEvent, sub.EventID); err != nil {
			return Relay{}, err
		}
		seed, err := s.checkRelayRoster(tx, sub)
		if err != nil {
			return Relay{}, err
		}
		existing, proceed, err := s.resolveDuplicates(tx, req, RelayEntryCandidate{EventID: sub.EventID, SwimmerIDs: legSwimmers(sub.Legs)}, out)
		if err != nil {
			return Relay{}, err
		}
		if !proceed {
			out.id = existing
			return loadRelay(tx, existing)
		}
		created, err := tx.CreateRelayEntry(RelayEntry{EventID: sub.EventID, SeedTime: seed})
		if err != nil {
			return Relay{}, err
		}
		out.id = created.ID
		if err := writeRoster(tx, created.ID, sub.Legs); err != nil {
			return Relay{}, err
		}
		if _, err := s.seeding.Invalidate(tx, sub.EventID); err != nil {
			return Relay{}, err
		}
		return loadRelay(tx, created.ID)
	})
}

// UpdateRelayEntry replaces the roster of a relay entry and, when sub names
// another event, moves the entry there. An empty EventID keeps the current
// event. Any change clears the seeding of every event involved.
func (s *Service) UpdateRelayEntry(ctx context.Context, req Request, id string, sub RelaySubmission) (Relay, Result, error) {
	return runFor(ctx, s, "update_relay_entry", req, func(tx domain.Transaction, out *outcome) (Relay, error) {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityRelayEntry, id); err != nil {
			return Relay{}, err
		}
		before, _ := tx.FindRelayEntry(id)
		if sub.EventID == "" {
			sub.EventID = before.EventID
		}
		moved := sub.EventID != before.EventID
		if moved {
			if _, err := s.hostedMeet(tx, req.Caller, EntityEvent, sub.EventID); err != nil {
				return Relay{}, err
			}
		}
		seed, err := s.checkRelayRoster(tx, sub)
		if err != nil {
			return Relay{}, err
		}
		current, _ := rosterLegs(tx, id)
		if !moved && sameRoster(current, sub.Legs) {
			return loadRelay(tx, id)
		}
		existing, proceed, err := s.resolveDuplicates(tx, req, RelayEntryCandidate{ID: id, EventID: sub.EventID, SwimmerIDs: legSwimmers(sub.Legs)}, out)
		if err != nil {
			return Relay{}, err
		}
		if !proceed {
			return loadRelay(tx, existing)
		}
		for _, slot := range tx.RelayAssignmentsByEntry(id) {
			if err := tx.DeleteRelayAssignment(slot.ID); err != nil {
				return Relay{}, err
			}
		}
		if _, err := tx.UpdateRelayEntry(id, func(e *RelayEntry) error {
			e.EventID, e.SeedTime = sub.EventID, seed
			e.Clear()
			return nil
		}); err != nil {
			return Relay{}, err
		}
		if err := writeRoster(tx, id, sub.Legs); err != nil {
			return Relay{}, err
		}
		if err := s.invalidateAll(tx, before.EventID, sub.EventID); err != nil {
			return Relay{}, err
		}
		return loadRelay(tx, id)
	})
}

// DeleteRelayEntry removes a relay entry with its roster and clears its
// event's seeding.
func (s *Service) DeleteRelayEntry(ctx context.Context, req Request, id string) (Result, error) {
	return s.run(ctx, "delete_relay_entry", req, func(tx domain.Transaction, out *outcome) error {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityRelayEntry, id); err != nil {
			return err
		}
		return s.removeRelayEntry(tx, id)
	})
}

func (s *Service) checkIndividualEntry(view domain.TransactionView, entry IndividualEntry) error {
	if err := validateSeedTime(EntityIndividualEntry, entry.SeedTime); err != nil {
		return err
	}
	event, session, err := eventAndSession(view, entry.EventID)
	if err != nil {
		return err
	}
	swimmer, ok := view.FindSwimmer(entry.SwimmerID)
	if !ok {
		return domain.ErrNotFound{Entity: EntitySwimmer, ID: entry.SwimmerID}
	}
	return s.validator.ValidateIndividual(swimmer, event, session)
}

func (s *Service) checkRelayRoster(view domain.TransactionView, sub RelaySubmission) (int, error) {
	event, session, err := eventAndSession(view, sub.EventID)
	if err != nil {
		return 0, err
	}
	swimmers := make(map[string]Swimmer, len(sub.Legs))
	for _, leg := range sub.Legs {
		if swimmer, ok := view.FindSwimmer(leg.SwimmerID); ok {
			swimmers[swimmer.ID] = swimmer
		}
	}
	return s.validator.ValidateRelayRoster(sub.Legs, event, session, swimmers)
}

// invalidateAll clears seeding on each distinct event ID.
func (s *Service) invalidateAll(tx domain.Transaction, eventIDs ...string) error {
	seen := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		if _, done := seen[id]; done {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.seeding.Invalidate(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) removeIndividualEntry(tx domain.Transaction, id string) error {
	entry, ok := tx.FindIndividualEntry(id)
	if !ok {
		return domain.ErrNotFound{Entity: EntityIndividualEntry, ID: id}
	}
	if err := tx.DeleteIndividualEntry(id); err != nil {
		return err
	}
	_, err := s.seeding.Invalidate(tx, entry.EventID)
	return err
}

func (s *Service) removeRelayEntry(tx domain.Transaction, id string) error {
	entry, ok := tx.FindRelayEntry(id)
	if !ok {
		return domain.ErrNotFound{Entity: EntityRelayEntry, ID: id}
	}
	if err := tx.DeleteRelayEntry(id); err != nil {
		return err
	}
	_, err := s.seeding.Invalidate(tx, entry.EventID)
	return err
}

func writeRoster(tx domain.Transaction, relayID string, legs []RelayLeg) error {
	for _, leg := range legs {
		if _, err := tx.CreateRelayAssignment(RelayAssignment{
			RelayEntryID:   relayID,
			SwimmerID:      leg.SwimmerID,
			OrderInRelay:   leg.OrderInRelay,
			SeedRelaySplit: leg.Split,
		}); err != nil {
			return err
		}
	}
	return nil
}

func loadRelay(view domain.TransactionView, id string) (Relay, error) {
	entry, ok := view.FindRelayEntry(id)
	if !ok {
		return Relay{}, domain.ErrNotFound{Entity: EntityRelayEntry, ID: id}
	}
	return Relay{Entry: entry, Roster: view.RelayAssignmentsByEntry(id)}, nil
}

// rosterLegs reads a stored roster back as legs, together with the swimmers
// it references.
func rosterLegs(view domain.TransactionView, relayID string) ([]RelayLeg, map[string]Swimmer) {
	roster := view.RelayAssignmentsByEntry(relayID)
	legs := make([]RelayLeg, 0, len(roster))
	swimmers := make(map[string]Swimmer, len(roster))
	for _, slot := range roster {
		legs = append(legs, RelayLeg{SwimmerID: slot.SwimmerID, OrderInRelay: slot.OrderInRelay, Split: slot.SeedRelaySplit})
		if swimmer, ok := view.FindSwimmer(slot.SwimmerID); ok {
			swimmers[swimmer.ID] = swimmer
		}
	}
	return legs, swimmers
}

func legSwimmers(legs []RelayLeg) []string {
	ids := make([]string, len(legs))
	for i, leg := range legs {
		ids[i] = leg.SwimmerID
	}
	return ids
}

func sameRoster(a, b []RelayLeg) bool {
	if len(a) != len(b) {
		return false
	}
	byOrder := func(legs []RelayLeg) []RelayLeg {
		out := append([]RelayLeg(nil), legs...)
		sort.Slice(out, func(i, j int) bool { return out[i].OrderInRelay < out[j].OrderInRelay })
		return out
	}
	x, y := byOrder(a), byOrder(b)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
