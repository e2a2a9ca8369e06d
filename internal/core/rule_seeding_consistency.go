package core

import (
	"context"
	"fmt"

	"swimeeter/pkg/domain"
)

// NewSeedingConsistencyRule blocks commits where an event's heat count and
// its entries' heat/lane assignments disagree: an unseeded event has no
// placed entries, a seeded event has every entry placed within its heats, and
// no entry carries half a placement.
func NewSeedingConsistencyRule() domain.Rule {
	return seedingConsistencyRule{}
}

type seedingConsistencyRule struct{}

func (seedingConsistencyRule) Name() string { return "seeding_consistency" }

func (r seedingConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, eventID := range collectTouched(changes).eventIDs(view) {
		event, ok := view.FindEvent(eventID)
		if !ok {
			continue
		}
		entity, placements := domain.EntityIndividualEntry, map[string]Placement{}
		if event.IsRelay {
			entity = domain.EntityRelayEntry
			for _, entry := range view.RelayEntriesByEvent(eventID) {
				placements[entry.ID] = entry.Placement
			}
		} else {
			for _, entry := range view.IndividualEntriesByEvent(eventID) {
				placements[entry.ID] = entry.Placement
			}
		}
		for _, id := range sortedKeys(keySet(placements)) {
			if msg := placementProblem(event, placements[id]); msg != "" {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("entry %s of event %s %s", id, eventID, msg),
					Entity:   entity,
					EntityID: id,
				})
			}
		}
	}
	return res, nil
}

func placementProblem(event Event, p Placement) string {
	switch {
	case (p.HeatNumber == nil) != (p.LaneNumber == nil):
		return "has only one of heat and lane"
	case !event.Seeded() && p.Placed():
		return "is placed but the event is unseeded"
	case event.Seeded() && !p.Placed():
		return "is unplaced but the event is seeded"
	case event.Seeded() && (*p.HeatNumber < 1 || *p.HeatNumber > *event.TotalHeats):
		return fmt.Sprintf("is in heat %d outside 1..%d", *p.HeatNumber, *event.TotalHeats)
	}
	return ""
}

func keySet[V any](m map[string]V) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for k := range m {
		set[k] = struct{}{}
	}
	return set
}
