package memory

import (
	"fmt"

	"swimeeter/pkg/domain"
)

// CreateMeet stores a new meet.
func (tx *transaction) CreateMeet(m Meet) (Meet, error) {
	if err := tx.stamp(&m.Base, domain.EntityMeet, func(id string) bool { _, ok := tx.state.meets[id]; return ok }); err != nil {
		return Meet{}, err
	}
	m = cloneMeet(m)
	tx.state.meets[m.ID] = m
	tx.recordChange(Change{Entity: domain.EntityMeet, Action: domain.ActionCreate, After: cloneMeet(m)})
	return cloneMeet(m), nil
}

// UpdateMeet mutates an existing meet.
func (tx *transaction) UpdateMeet(id string, mutator func(*Meet) error) (Meet, error) {
	current, ok := tx.state.meets[id]
	if !ok {
		return Meet{}, missing(domain.EntityMeet, id)
	}
	before := cloneMeet(current)
	if err := mutator(&current); err != nil {
		return Meet{}, err
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.meets[id] = cloneMeet(current)
	tx.recordChange(Change{Entity: domain.EntityMeet, Action: domain.ActionUpdate, Before: before, After: cloneMeet(current)})
	return cloneMeet(current), nil
}

// DeleteMeet removes a meet with its sessions, teams and swimmers.
func (tx *transaction) DeleteMeet(id string) error {
	current, ok := tx.state.meets[id]
	if !ok {
		return missing(domain.EntityMeet, id)
	}
	for _, s := range tx.SessionsByMeet(id) {
		if err := tx.DeleteSession(s.ID); err != nil {
			return err
		}
	}
	for _, t := range tx.TeamsByMeet(id) {
		if err := tx.DeleteTeam(t.ID); err != nil {
			return err
		}
	}
	for _, s := range tx.SwimmersByMeet(id) {
		if err := tx.DeleteSwimmer(s.ID); err != nil {
			return err
		}
	}
	delete(tx.state.meets, id)
	tx.recordChange(Change{Entity: domain.EntityMeet, Action: domain.ActionDelete, Before: cloneMeet(current)})
	return nil
}

// CreateSession stores a new session under an existing meet.
func (tx *transaction) CreateSession(s Session) (Session, error) {
	if _, ok := tx.state.meets[s.MeetID]; !ok {
		return Session{}, missing(domain.EntityMeet, s.MeetID)
	}
	if err := tx.stamp(&s.Base, domain.EntitySession, func(id string) bool { _, ok := tx.state.sessions[id]; return ok }); err != nil {
		return Session{}, err
	}
	tx.state.sessions[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntitySession, Action: domain.ActionCreate, After: s})
	return s, nil
}

// UpdateSession mutates an existing session.
func (tx *transaction) UpdateSession(id string, mutator func(*Session) error) (Session, error) {
	current, ok := tx.state.sessions[id]
	if !ok {
		return Session{}, missing(domain.EntitySession, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Session{}, err
	}
	if _, ok := tx.state.meets[current.MeetID]; !ok {
		return Session{}, missing(domain.EntityMeet, current.MeetID)
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.sessions[id] = current
	tx.recordChange(Change{Entity: domain.EntitySession, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteSession removes a session and its events.
func (tx *transaction) DeleteSession(id string) error {
	current, ok := tx.state.sessions[id]
	if !ok {
		return missing(domain.EntitySession, id)
	}
	for _, e := range tx.EventsBySession(id) {
		if err := tx.DeleteEvent(e.ID); err != nil {
			return err
		}
	}
	delete(tx.state.sessions, id)
	tx.recordChange(Change{Entity: domain.EntitySession, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateEvent stores a new event under an existing session.
func (tx *transaction) CreateEvent(e Event) (Event, error) {
	if _, ok := tx.state.sessions[e.SessionID]; !ok {
		return Event{}, missing(domain.EntitySession, e.SessionID)
	}
	if err := tx.stamp(&e.Base, domain.EntityEvent, func(id string) bool { _, ok := tx.state.events[id]; return ok }); err != nil {
		return Event{}, err
	}
	e = cloneEvent(e)
	tx.state.events[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityEvent, Action: domain.ActionCreate, After: cloneEvent(e)})
	return cloneEvent(e), nil
}

// UpdateEvent mutates an existing event.
func (tx *transaction) UpdateEvent(id string, mutator func(*Event) error) (Event, error) {
	current, ok := tx.state.events[id]
	if !ok {
		return Event{}, missing(domain.EntityEvent, id)
	}
	before := cloneEvent(current)
	current = cloneEvent(current)
	if err := mutator(&current); err != nil {
		return Event{}, err
	}
	if _, ok := tx.state.sessions[current.SessionID]; !ok {
		return Event{}, missing(domain.EntitySession, current.SessionID)
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.events[id] = cloneEvent(current)
	tx.recordChange(Change{Entity: domain.EntityEvent, Action: domain.ActionUpdate, Before: before, After: cloneEvent(current)})
	return cloneEvent(current), nil
}

// DeleteEvent removes an event and every entry in it.
func (tx *transaction) DeleteEvent(id string) error {
	current, ok := tx.state.events[id]
	if !ok {
		return missing(domain.EntityEvent, id)
	}
	for _, entry := range tx.IndividualEntriesByEvent(id) {
		if err := tx.DeleteIndividualEntry(entry.ID); err != nil {
			return err
		}
	}
	for _, entry := range tx.RelayEntriesByEvent(id) {
		if err := tx.DeleteRelayEntry(entry.ID); err != nil {
			return err
		}
	}
	delete(tx.state.events, id)
	tx.recordChange(Change{Entity: domain.EntityEvent, Action: domain.ActionDelete, Before: cloneEvent(current)})
	return nil
}

// CreateSwimmer stores a new swimmer under an existing meet and optional team.
func (tx *transaction) CreateSwimmer(s Swimmer) (Swimmer, error) {
	if err := tx.checkSwimmerRefs(s); err != nil {
		return Swimmer{}, err
	}
	if err := tx.stamp(&s.Base, domain.EntitySwimmer, func(id string) bool { _, ok := tx.state.swimmers[id]; return ok }); err != nil {
		return Swimmer{}, err
	}
	tx.state.swimmers[s.ID] = s
	tx.recordChange(Change{Entity: domain.EntitySwimmer, Action: domain.ActionCreate, After: s})
	return s, nil
}

func (tx *transaction) checkSwimmerRefs(s Swimmer) error {
	if _, ok := tx.state.meets[s.MeetID]; !ok {
		return missing(domain.EntityMeet, s.MeetID)
	}
	if s.TeamID == "" {
		return nil
	}
	team, ok := tx.state.teams[s.TeamID]
	if !ok {
		return missing(domain.EntityTeam, s.TeamID)
	}
	if team.MeetID != s.MeetID {
		return fmt.Errorf("team %s belongs to meet %s, not %s", team.ID, team.MeetID, s.MeetID)
	}
	return nil
}

// UpdateSwimmer mutates an existing swimmer.
func (tx *transaction) UpdateSwimmer(id string, mutator func(*Swimmer) error) (Swimmer, error) {
	current, ok := tx.state.swimmers[id]
	if !ok {
		return Swimmer{}, missing(domain.EntitySwimmer, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Swimmer{}, err
	}
	if err := tx.checkSwimmerRefs(current); err != nil {
		return Swimmer{}, err
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.swimmers[id] = current
	tx.recordChange(Change{Entity: domain.EntitySwimmer, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteSwimmer removes a swimmer with their individual entries and relay
// roster slots. Relay entries left short-handed are the caller's concern.
func (tx *transaction) DeleteSwimmer(id string) error {
	current, ok := tx.state.swimmers[id]
	if !ok {
		return missing(domain.EntitySwimmer, id)
	}
	for _, entry := range tx.IndividualEntriesBySwimmer(id) {
		if err := tx.DeleteIndividualEntry(entry.ID); err != nil {
			return err
		}
	}
	for _, a := range tx.RelayAssignmentsBySwimmer(id) {
		if err := tx.DeleteRelayAssignment(a.ID); err != nil {
			return err
		}
	}
	delete(tx.state.swimmers, id)
	tx.recordChange(Change{Entity: domain.EntitySwimmer, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateTeam stores a new team under an existing meet.
func (tx *transaction) CreateTeam(t Team) (Team, error) {
	if _, ok := tx.state.meets[t.MeetID]; !ok {
		return Team{}, missing(domain.EntityMeet, t.MeetID)
	}
	if err := tx.stamp(&t.Base, domain.EntityTeam, func(id string) bool { _, ok := tx.state.teams[id]; return ok }); err != nil {
		return Team{}, err
	}
	tx.state.teams[t.ID] = t
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTeam mutates an existing team.
func (tx *transaction) UpdateTeam(id string, mutator func(*Team) error) (Team, error) {
	current, ok := tx.state.teams[id]
	if !ok {
		return Team{}, missing(domain.EntityTeam, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Team{}, err
	}
	if current.MeetID != before.MeetID {
		return Team{}, fmt.Errorf("team %s cannot move between meets", id)
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.teams[id] = current
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTeam removes a team and its swimmers.
func (tx *transaction) DeleteTeam(id string) error {
	current, ok := tx.state.teams[id]
	if !ok {
		return missing(domain.EntityTeam, id)
	}
	for _, s := range tx.SwimmersByTeam(id) {
		if err := tx.DeleteSwimmer(s.ID); err != nil {
			return err
		}
	}
	delete(tx.state.teams, id)
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateIndividualEntry stores a new entry for an existing event and swimmer.
func (tx *transaction) CreateIndividualEntry(e IndividualEntry) (IndividualEntry, error) {
	if err := tx.checkIndividualRefs(e); err != nil {
		return IndividualEntry{}, err
	}
	if err := tx.stamp(&e.Base, domain.EntityIndividualEntry, func(id string) bool { _, ok := tx.state.individual[id]; return ok }); err != nil {
		return IndividualEntry{}, err
	}
	e = cloneIndividual(e)
	tx.state.individual[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityIndividualEntry, Action: domain.ActionCreate, After: cloneIndividual(e)})
	return cloneIndividual(e), nil
}

func (tx *transaction) checkIndividualRefs(e IndividualEntry) error {
	if _, ok := tx.state.events[e.EventID]; !ok {
		return missing(domain.EntityEvent, e.EventID)
	}
	if _, ok := tx.state.swimmers[e.SwimmerID]; !ok {
		return missing(domain.EntitySwimmer, e.SwimmerID)
	}
	return nil
}

// UpdateIndividualEntry mutates an existing individual entry.
func (tx *transaction) UpdateIndividualEntry(id string, mutator func(*IndividualEntry) error) (IndividualEntry, error) {
	current, ok := tx.state.individual[id]
	if !ok {
		return IndividualEntry{}, missing(domain.EntityIndividualEntry, id)
	}
	before := cloneIndividual(current)
	current = cloneIndividual(current)
	if err := mutator(&current); err != nil {
		return IndividualEntry{}, err
	}
	if err := tx.checkIndividualRefs(current); err != nil {
		return IndividualEntry{}, err
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.individual[id] = cloneIndividual(current)
	tx.recordChange(Change{Entity: domain.EntityIndividualEntry, Action: domain.ActionUpdate, Before: before, After: cloneIndividual(current)})
	return cloneIndividual(current), nil
}

// DeleteIndividualEntry removes an individual entry.
func (tx *transaction) DeleteIndividualEntry(id string) error {
	current, ok := tx.state.individual[id]
	if !ok {
		return missing(domain.EntityIndividualEntry, id)
	}
	delete(tx.state.individual, id)
	tx.recordChange(Change{Entity: domain.EntityIndividualEntry, Action: domain.ActionDelete, Before: cloneIndividual(current)})
	return nil
}

// CreateRelayEntry stores a new relay entry for an existing event.
func (tx *transaction) CreateRelayEntry(e RelayEntry) (RelayEntry, error) {
	if _, ok := tx.state.events[e.EventID]; !ok {
		return RelayEntry{}, missing(domain.EntityEvent, e.EventID)
	}
	if err := tx.stamp(&e.Base, domain.EntityRelayEntry, func(id string) bool { _, ok := tx.state.relays[id]; return ok }); err != nil {
		return RelayEntry{}, err
	}
	e = cloneRelay(e)
	tx.state.relays[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityRelayEntry, Action: domain.ActionCreate, After: cloneRelay(e)})
	return cloneRelay(e), nil
}

// UpdateRelayEntry mutates an existing relay entry.
func (tx *transaction) UpdateRelayEntry(id string, mutator func(*RelayEntry) error) (RelayEntry, error) {
	current, ok := tx.state.relays[id]
	if !ok {
		return RelayEntry{}, missing(domain.EntityRelayEntry, id)
	}
	before := cloneRelay(current)
	current = cloneRelay(current)
	if err := mutator(&current); err != nil {
		return RelayEntry{}, err
	}
	if _, ok := tx.state.events[current.EventID]; !ok {
		return RelayEntry{}, missing(domain.EntityEvent, current.EventID)
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.relays[id] = cloneRelay(current)
	tx.recordChange(Change{Entity: domain.EntityRelayEntry, Action: domain.ActionUpdate, Before: before, After: cloneRelay(current)})
	return cloneRelay(current), nil
}

// DeleteRelayEntry removes a relay entry and its roster.
func (tx *transaction) DeleteRelayEntry(id string) error {
	current, ok := tx.state.relays[id]
	if !ok {
		return missing(domain.EntityRelayEntry, id)
	}
	for _, a := range tx.RelayAssignmentsByEntry(id) {
		if err := tx.DeleteRelayAssignment(a.ID); err != nil {
			return err
		}
	}
	delete(tx.state.relays, id)
	tx.recordChange(Change{Entity: domain.EntityRelayEntry, Action: domain.ActionDelete, Before: cloneRelay(current)})
	return nil
}

// CreateRelayAssignment stores a roster slot for an existing relay entry and swimmer.
func (tx *transaction) CreateRelayAssignment(a RelayAssignment) (RelayAssignment, error) {
	if err := tx.checkAssignmentRefs(a); err != nil {
		return RelayAssignment{}, err
	}
	if err := tx.stamp(&a.Base, domain.EntityRelayAssignment, func(id string) bool { _, ok := tx.state.assignments[id]; return ok }); err != nil {
		return RelayAssignment{}, err
	}
	tx.state.assignments[a.ID] = a
	tx.recordChange(Change{Entity: domain.EntityRelayAssignment, Action: domain.ActionCreate, After: a})
	return a, nil
}

func (tx *transaction) checkAssignmentRefs(a RelayAssignment) error {
	if _, ok := tx.state.relays[a.RelayEntryID]; !ok {
		return missing(domain.EntityRelayEntry, a.RelayEntryID)
	}
	if _, ok := tx.state.swimmers[a.SwimmerID]; !ok {
		return missing(domain.EntitySwimmer, a.SwimmerID)
	}
	return nil
}

// UpdateRelayAssignment mutates an existing roster slot.
func (tx *transaction) UpdateRelayAssignment(id string, mutator func(*RelayAssignment) error) (RelayAssignment, error) {
	current, ok := tx.state.assignments[id]
	if !ok {
		return RelayAssignment{}, missing(domain.EntityRelayAssignment, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return RelayAssignment{}, err
	}
	if err := tx.checkAssignmentRefs(current); err != nil {
		return RelayAssignment{}, err
	}
	current.ID, current.CreatedAt, current.UpdatedAt = id, before.CreatedAt, tx.now
	tx.state.assignments[id] = current
	tx.recordChange(Change{Entity: domain.EntityRelayAssignment, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteRelayAssignment removes a roster slot.
func (tx *transaction) DeleteRelayAssignment(id string) error {
	current, ok := tx.state.assignments[id]
	if !ok {
		return missing(domain.EntityRelayAssignment, id)
	}
	delete(tx.state.assignments, id)
	tx.recordChange(Change{Entity: domain.EntityRelayAssignment, Action: domain.ActionDelete, Before: current})
	return nil
}
