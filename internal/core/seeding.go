package core

import (
	"fmt"

	"swimeeter/pkg/domain"
)

// SeedingInvalidator resets heat/lane state when anything an event's seeding
// depends on changes.
type SeedingInvalidator struct{}

// Invalidate clears TotalHeats on the event and the placement of every entry
// of the matching kind. It reports whether anything was cleared; an unseeded
// event is left alone.
func (SeedingInvalidator) Invalidate(tx domain.Transaction, eventID string) (bool, error) {
	event, ok := tx.FindEvent(eventID)
	if !ok {
		return false, domain.ErrNotFound{Entity: EntityEvent, ID: eventID}
	}
	if !event.Seeded() {
		return false, nil
	}
	if _, err := tx.UpdateEvent(eventID, func(e *Event) error {
		e.TotalHeats = nil
		return nil
	}); err != nil {
		return false, domain.IntegrityError{Op: "invalidate seeding", Err: err}
	}
	if event.IsRelay {
		for _, entry := range tx.RelayEntriesByEvent(eventID) {
			if _, err := tx.UpdateRelayEntry(entry.ID, func(e *RelayEntry) error {
				e.Clear()
				return nil
			}); err != nil {
				return false, domain.IntegrityError{Op: "invalidate seeding", Err: err}
			}
		}
		return true, nil
	}
	for _, entry := range tx.IndividualEntriesByEvent(eventID) {
		if _, err := tx.UpdateIndividualEntry(entry.ID, func(e *IndividualEntry) error {
			e.Clear()
			return nil
		}); err != nil {
			return false, domain.IntegrityError{Op: "invalidate seeding", Err: err}
		}
	}
	return true, nil
}

// Seeding is an externally computed heat/lane assignment for one event.
// Placements is keyed by entry ID and must cover every entry of the event.
type Seeding struct {
	TotalHeats int                  `json:"total_heats"`
	Placements map[string]Placement `json:"placements"`
}

// Apply records seeding for the event. Heats run 1..TotalHeats, lanes
// 1..lanes, and no two entries share a heat and lane.
func (SeedingInvalidator) Apply(tx domain.Transaction, eventID string, seeding Seeding, lanes int) error {
	event, ok := tx.FindEvent(eventID)
	if !ok {
		return domain.ErrNotFound{Entity: EntityEvent, ID: eventID}
	}
	if seeding.TotalHeats < 1 {
		return invalidField(EntityEvent, "total heats must be at least 1")
	}
	var entryIDs []string
	if event.IsRelay {
		for _, e := range tx.RelayEntriesByEvent(eventID) {
			entryIDs = append(entryIDs, e.ID)
		}
	} else {
		for _, e := range tx.IndividualEntriesByEvent(eventID) {
			entryIDs = append(entryIDs, e.ID)
		}
	}
	if len(seeding.Placements) != len(entryIDs) {
		return invalidField(EntityEvent, "seeding places %d entries, event has %d", len(seeding.Placements), len(entryIDs))
	}
	type slot struct{ heat, lane int }
	taken := make(map[slot]string, len(entryIDs))
	for _, id := range entryIDs {
		p, ok := seeding.Placements[id]
		if !ok || !p.Placed() {
			return invalidField(EntityEvent, "entry %s has no heat and lane", id)
		}
		heat, lane := *p.HeatNumber, *p.LaneNumber
		if heat < 1 || heat > seeding.TotalHeats {
			return invalidField(EntityEvent, "entry %s heat %d outside 1..%d", id, heat, seeding.TotalHeats)
		}
		if lane < 1 || lane > lanes {
			return invalidField(EntityEvent, "entry %s lane %d outside 1..%d", id, lane, lanes)
		}
		if other, dup := taken[slot{heat, lane}]; dup {
			return invalidField(EntityEvent, "entries %s and %s share heat %d lane %d", other, id, heat, lane)
		}
		taken[slot{heat, lane}] = id
	}

	total := seeding.TotalHeats
	if _, err := tx.UpdateEvent(eventID, func(e *Event) error {
		e.TotalHeats = &total
		return nil
	}); err != nil {
		return fmt.Errorf("record total heats: %w", err)
	}
	for _, id := range entryIDs {
		p := seeding.Placements[id]
		heat, lane := *p.HeatNumber, *p.LaneNumber
		place := func(dst *Placement) {
			dst.HeatNumber = &heat
			dst.LaneNumber = &lane
		}
		var err error
		if event.IsRelay {
			_, err = tx.UpdateRelayEntry(id, func(e *RelayEntry) error { place(&e.Placement); return nil })
		} else {
			_, err = tx.UpdateIndividualEntry(id, func(e *IndividualEntry) error { place(&e.Placement); return nil })
		}
		if err != nil {
			return fmt.Errorf("place entry %s: %w", id, err)
		}
	}
	return nil
}
