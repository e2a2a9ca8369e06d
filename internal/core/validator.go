package core

import (
	"sort"

	"swimeeter/pkg/domain"
)

// RelayLeg is one submitted roster slot of a relay entry.
type RelayLeg struct {
	SwimmerID    string `json:"swimmer_id" yaml:"swimmer"`
	OrderInRelay int    `json:"order_in_relay" yaml:"order"`
	Split        int    `json:"seed_relay_split" yaml:"split"`
}

// EntryValidator checks swimmer eligibility, meet membership and relay
// roster shape. It never mutates state.
type EntryValidator struct{}

// ValidateIndividual checks that swimmer may enter the non-relay event held
// in session.
func (v EntryValidator) ValidateIndividual(swimmer Swimmer, event Event, session Session) error {
	if event.IsRelay {
		return domain.Invalid(EntityIndividualEntry, domain.ReasonWrongEventKind, "event %s is a relay", event.ID)
	}
	return v.checkSwimmer(EntityIndividualEntry, swimmer, event, session)
}

// ValidateRelayRoster checks the roster against the relay event and returns
// the entry seed time, the sum of leg splits. swimmers must contain every
// swimmer the legs reference.
func (v EntryValidator) ValidateRelayRoster(legs []RelayLeg, event Event, session Session, swimmers map[string]Swimmer) (int, error) {
	if !event.IsRelay {
		return 0, domain.Invalid(EntityRelayEntry, domain.ReasonWrongEventKind, "event %s is not a relay", event.ID)
	}
	if len(legs) != event.SwimmersPerEntry {
		return 0, domain.Invalid(EntityRelayEntry, domain.ReasonWrongRosterSize, "got %d legs, event requires %d", len(legs), event.SwimmersPerEntry)
	}
	orders := make([]int, len(legs))
	for i, leg := range legs {
		orders[i] = leg.OrderInRelay
	}
	sort.Ints(orders)
	for i, order := range orders {
		if order != i+1 {
			return 0, domain.Invalid(EntityRelayEntry, domain.ReasonBadPlacementSequence, "leg orders %v are not 1..%d", orders, len(legs))
		}
	}
	seen := make(map[string]struct{}, len(legs))
	seed := 0
	for _, leg := range legs {
		if _, dup := seen[leg.SwimmerID]; dup {
			return 0, domain.Invalid(EntityRelayEntry, domain.ReasonDuplicateSwimmer, "swimmer %s appears on more than one leg", leg.SwimmerID)
		}
		seen[leg.SwimmerID] = struct{}{}
		if leg.Split < 0 {
			return 0, domain.Invalid(EntityRelayAssignment, domain.ReasonInvalidField, "split for leg %d is negative", leg.OrderInRelay)
		}
		swimmer, ok := swimmers[leg.SwimmerID]
		if !ok {
			return 0, domain.ErrNotFound{Entity: EntitySwimmer, ID: leg.SwimmerID}
		}
		if err := v.checkSwimmer(EntityRelayEntry, swimmer, event, session); err != nil {
			return 0, err
		}
		seed += leg.Split
	}
	return seed, nil
}

func (EntryValidator) checkSwimmer(entity EntityType, swimmer Swimmer, event Event, session Session) error {
	if swimmer.MeetID != session.MeetID {
		return domain.Invalid(entity, domain.ReasonMeetMismatch, "swimmer %s is not registered for meet %s", swimmer.ID, session.MeetID)
	}
	if event.CompetingMaxAge != nil && swimmer.Age > *event.CompetingMaxAge {
		return domain.Invalid(entity, domain.ReasonIneligibleAge, "swimmer %s is older than %d", swimmer.ID, *event.CompetingMaxAge)
	}
	if event.CompetingMinAge != nil && swimmer.Age < *event.CompetingMinAge {
		return domain.Invalid(entity, domain.ReasonIneligibleAge, "swimmer %s is younger than %d", swimmer.ID, *event.CompetingMinAge)
	}
	if event.CompetingGender != domain.GenderOpen && swimmer.Gender != event.CompetingGender {
		return domain.Invalid(entity, domain.ReasonIneligibleGender, "event %s is restricted to %s", event.ID, event.CompetingGender)
	}
	return nil
}
