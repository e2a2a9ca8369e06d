package core

import (
	"slices"

	"swimeeter/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set.
// The rules re-check at commit time what the service components maintain.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewEventOrderRule())
	engine.Register(NewSeedingConsistencyRule())
	engine.Register(NewRelayRosterRule())
	engine.Register(NewMeetWindowRule())
	return engine
}

// touched collects the records a transaction's changes can affect. A nil
// change list stands for the whole store.
type touched struct {
	all      bool
	meets    map[string]struct{}
	sessions map[string]struct{}
	events   map[string]struct{}
	relays   map[string]struct{}
}

func collectTouched(changes []Change) touched {
	t := touched{
		all:      changes == nil,
		meets:    make(map[string]struct{}),
		sessions: make(map[string]struct{}),
		events:   make(map[string]struct{}),
		relays:   make(map[string]struct{}),
	}
	mark := func(set map[string]struct{}, id string) {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	for _, change := range changes {
		for _, record := range []any{change.Before, change.After} {
			switch r := record.(type) {
			case Meet:
				mark(t.meets, r.ID)
			case Session:
				mark(t.sessions, r.ID)
				mark(t.meets, r.MeetID)
			case Event:
				mark(t.events, r.ID)
				mark(t.sessions, r.SessionID)
			case IndividualEntry:
				mark(t.events, r.EventID)
			case RelayEntry:
				mark(t.events, r.EventID)
				mark(t.relays, r.ID)
			case RelayAssignment:
				mark(t.relays, r.RelayEntryID)
			}
		}
	}
	return t
}

func (t touched) meetIDs(view domain.RuleView) []string {
	if !t.all {
		return sortedKeys(t.meets)
	}
	var ids []string
	for _, meet := range view.ListMeets() {
		ids = append(ids, meet.ID)
	}
	return ids
}

func (t touched) sessionIDs(view domain.RuleView) []string {
	if !t.all {
		return sortedKeys(t.sessions)
	}
	var ids []string
	for _, meet := range view.ListMeets() {
		for _, session := range view.SessionsByMeet(meet.ID) {
			ids = append(ids, session.ID)
		}
	}
	return ids
}

func (t touched) eventIDs(view domain.RuleView) []string {
	if !t.all {
		return sortedKeys(t.events)
	}
	var ids []string
	for _, meet := range view.ListMeets() {
		for _, event := range eventsOfMeet(view, meet.ID) {
			ids = append(ids, event.ID)
		}
	}
	return ids
}

// relayIDs includes every relay entry of a touched event so that a change of
// an event's relay shape re-checks its rosters.
func (t touched) relayIDs(view domain.RuleView) []string {
	set := make(map[string]struct{}, len(t.relays))
	for id := range t.relays {
		set[id] = struct{}{}
	}
	for _, eventID := range t.eventIDs(view) {
		for _, entry := range view.RelayEntriesByEvent(eventID) {
			set[entry.ID] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
