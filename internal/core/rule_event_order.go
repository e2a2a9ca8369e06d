package core

import (
	"context"
	"fmt"
	"slices"

	"swimeeter/pkg/domain"
)

// NewEventOrderRule blocks commits that leave a session's event order with a
// gap or a repeated position.
func NewEventOrderRule() domain.Rule {
	return eventOrderRule{}
}

type eventOrderRule struct{}

func (eventOrderRule) Name() string { return "event_order_density" }

func (r eventOrderRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, sessionID := range collectTouched(changes).sessionIDs(view) {
		if _, ok := view.FindSession(sessionID); !ok {
			continue
		}
		events := view.EventsBySession(sessionID)
		orders := make([]int, len(events))
		for i, e := range events {
			orders[i] = e.OrderInSession
		}
		slices.Sort(orders)
		for i, order := range orders {
			if order != i+1 {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("session %s event order %v is not 1..%d", sessionID, orders, len(orders)),
					Entity:   domain.EntitySession,
					EntityID: sessionID,
				})
				break
			}
		}
	}
	return res, nil
}
