package core

import (
	"context"
	"fmt"
	"slices"

	"swimeeter/pkg/domain"
)

// NewRelayRosterRule blocks commits that leave a relay entry with a roster of
// the wrong size, a broken leg sequence, a repeated swimmer or a seed time
// that is not the sum of its splits.
func NewRelayRosterRule() domain.Rule {
	return relayRosterRule{}
}

type relayRosterRule struct{}

func (relayRosterRule) Name() string { return "relay_roster" }

func (r relayRosterRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, relayID := range collectTouched(changes).relayIDs(view) {
		entry, ok := view.FindRelayEntry(relayID)
		if !ok {
			continue
		}
		event, ok := view.FindEvent(entry.EventID)
		if !ok {
			continue
		}
		if msg := rosterProblem(event, entry, view.RelayAssignmentsByEntry(relayID)); msg != "" {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("relay entry %s %s", relayID, msg),
				Entity:   domain.EntityRelayEntry,
				EntityID: relayID,
			})
		}
	}
	return res, nil
}

func rosterProblem(event Event, entry RelayEntry, roster []RelayAssignment) string {
	if !event.IsRelay {
		return fmt.Sprintf("belongs to non-relay event %s", event.ID)
	}
	if len(roster) != event.SwimmersPerEntry {
		return fmt.Sprintf("has %d legs, event requires %d", len(roster), event.SwimmersPerEntry)
	}
	orders := make([]int, len(roster))
	swimmers := make(map[string]struct{}, len(roster))
	sum := 0
	for i, slot := range roster {
		orders[i] = slot.OrderInRelay
		swimmers[slot.SwimmerID] = struct{}{}
		sum += slot.SeedRelaySplit
	}
	slices.Sort(orders)
	for i, order := range orders {
		if order != i+1 {
			return fmt.Sprintf("has leg orders %v", orders)
		}
	}
	if len(swimmers) != len(roster) {
		return "lists a swimmer more than once"
	}
	if sum != entry.SeedTime {
		return fmt.Sprintf("seed time %d differs from split total %d", entry.SeedTime, sum)
	}
	return ""
}
