package core

import (
	"swimeeter/pkg/domain"
)

type positionKind int

const (
	positionEnd positionKind = iota
	positionStart
	positionAt
)

// Position is a requested slot for an event within its session.
type Position struct {
	kind positionKind
	at   int
}

// Start places the event first.
func Start() Position { return Position{kind: positionStart} }

// End places the event after every existing event. It is the zero value.
func End() Position { return Position{kind: positionEnd} }

// At places the event at p, clamped into the valid range.
func At(p int) Position { return Position{kind: positionAt, at: p} }

// resolve turns the position into a 1-based slot clamped to [1, limit].
func (p Position) resolve(limit int) int {
	switch p.kind {
	case positionStart:
		return 1
	case positionAt:
		if p.at < 1 {
			return 1
		}
		if p.at > limit {
			return limit
		}
		return p.at
	default:
		return limit
	}
}

// OrderSequencer keeps OrderInSession dense and unique within a session.
// Every shift is written through the caller's transaction.
type OrderSequencer struct{}

// Insert opens a slot in the session for a new event and returns it. Events
// at or after the slot move down by one.
func (OrderSequencer) Insert(tx domain.Transaction, sessionID string, pos Position) (int, error) {
	events := tx.EventsBySession(sessionID)
	slot := pos.resolve(len(events) + 1)
	for _, e := range events {
		if e.OrderInSession >= slot {
			if err := shift(tx, e.ID, +1); err != nil {
				return 0, err
			}
		}
	}
	return slot, nil
}

// Move relocates an existing event within its session and returns the slot
// it now occupies. A request past the end lands on the last slot.
func (OrderSequencer) Move(tx domain.Transaction, eventID string, pos Position) (int, error) {
	event, ok := tx.FindEvent(eventID)
	if !ok {
		return 0, domain.ErrNotFound{Entity: EntityEvent, ID: eventID}
	}
	events := tx.EventsBySession(event.SessionID)
	from := event.OrderInSession
	to := pos.resolve(len(events) + 1)
	if to > len(events) {
		to = len(events)
	}
	if to == from {
		return from, nil
	}
	for _, e := range events {
		if e.ID == eventID {
			continue
		}
		switch {
		case to > from && e.OrderInSession > from && e.OrderInSession <= to:
			if err := shift(tx, e.ID, -1); err != nil {
				return 0, err
			}
		case to < from && e.OrderInSession >= to && e.OrderInSession < from:
			if err := shift(tx, e.ID, +1); err != nil {
				return 0, err
			}
		}
	}
	if _, err := tx.UpdateEvent(eventID, func(e *Event) error {
		e.OrderInSession = to
		return nil
	}); err != nil {
		return 0, err
	}
	return to, nil
}

// Remove closes the gap left by event. It may run before or after the event
// row itself is deleted.
func (OrderSequencer) Remove(tx domain.Transaction, event Event) error {
	for _, e := range tx.EventsBySession(event.SessionID) {
		if e.ID == event.ID {
			continue
		}
		if e.OrderInSession > event.OrderInSession {
			if err := shift(tx, e.ID, -1); err != nil {
				return err
			}
		}
	}
	return nil
}

func shift(tx domain.Transaction, eventID string, delta int) error {
	_, err := tx.UpdateEvent(eventID, func(e *Event) error {
		e.OrderInSession += delta
		return nil
	})
	return err
}
