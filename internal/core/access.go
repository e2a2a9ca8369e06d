package core

import (
	"fmt"

	"swimeeter/pkg/domain"
)

// AccessGuard decides whether a caller may read a meet or mutate data the
// meet's host owns.
type AccessGuard struct{}

// CanRead permits public meets to everyone and private meets to their host.
func (AccessGuard) CanRead(meet Meet, caller Caller) bool {
	if meet.IsPublic {
		return true
	}
	return caller.Authenticated() && caller.HostID == meet.HostID
}

// RequireRead returns an AuthorizationError when CanRead is false.
func (g AccessGuard) RequireRead(meet Meet, caller Caller) error {
	if g.CanRead(meet, caller) {
		return nil
	}
	return domain.AuthorizationError{Anonymous: !caller.Authenticated(), MeetID: meet.ID}
}

// RequireHost permits mutation only by the authenticated host of the meet.
func (AccessGuard) RequireHost(meet Meet, caller Caller) error {
	if !caller.Authenticated() {
		return domain.AuthorizationError{Anonymous: true, MeetID: meet.ID}
	}
	if caller.HostID != meet.HostID {
		return domain.AuthorizationError{MeetID: meet.ID}
	}
	return nil
}

// ownerResolvers maps each entity variant to the step that yields its parent
// in the ownership chain.
var ownerResolvers = map[EntityType]func(view domain.TransactionView, id string) (EntityType, string, bool){
	EntitySession: func(view domain.TransactionView, id string) (EntityType, string, bool) {
		s, ok := view.FindSession(id)
		return EntityMeet, s.MeetID, ok
	},
	EntityEvent: func(view domain.TransactionView, id string) (EntityType, string, bool) {
		e, ok := view.FindEvent(id)
		return EntitySession, e.SessionID, ok
	},
	EntitySwimmer: func(view domain.TransactionView, id string) (EntityType, string, bool) {
		s, ok := view.FindSwimmer(id)
		return EntityMeet, s.MeetID, ok
	},
	EntityTeam: func(view domain.TransactionView, id string) (EntityType, string, bool) {
		t, ok := view.FindTeam(id)
		return EntityMeet, t.MeetID, ok
	},
	EntityIndividualEntry: func(view domain.TransactionView, id string) (EntityType, string, bool) {
		e, ok := view.FindIndividualEntry(id)
		return EntityEvent, e.EventID, ok
	},
	EntityRelayEntry: func(view domain.TransactionView, id string) (EntityType, string, bool) {
		e, ok := view.FindRelayEntry(id)
		return EntityEvent, e.EventID, ok
	},
	EntityRelayAssignment: func(view domain.TransactionView, id string) (EntityType, string, bool) {
		a, ok := view.FindRelayAssignment(id)
		return EntityRelayEntry, a.RelayEntryID, ok
	},
}

// MeetOf walks the ownership chain from any record to the meet that owns it.
func (AccessGuard) MeetOf(view domain.TransactionView, entity EntityType, id string) (Meet, error) {
	current, currentID := entity, id
	for current != EntityMeet {
		resolve, ok := ownerResolvers[current]
		if !ok {
			return Meet{}, fmt.Errorf("no owner resolver for %s", current)
		}
		parent, parentID, found := resolve(view, currentID)
		if !found {
			return Meet{}, domain.ErrNotFound{Entity: current, ID: currentID}
		}
		current, currentID = parent, parentID
	}
	meet, ok := view.FindMeet(currentID)
	if !ok {
		return Meet{}, domain.ErrNotFound{Entity: EntityMeet, ID: currentID}
	}
	return meet, nil
}
