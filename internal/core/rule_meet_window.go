package core

import (
	"context"
	"fmt"

	"swimeeter/pkg/domain"
)

// NewMeetWindowRule blocks commits where a meet's begin and end times do not
// span its sessions exactly.
func NewMeetWindowRule() domain.Rule {
	return meetWindowRule{}
}

type meetWindowRule struct{}

func (meetWindowRule) Name() string { return "meet_window" }

func (r meetWindowRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, meetID := range collectTouched(changes).meetIDs(view) {
		meet, ok := view.FindMeet(meetID)
		if !ok {
			continue
		}
		begin, end := meetWindow(view.SessionsByMeet(meetID))
		if sameInstant(meet.BeginTime, begin) && sameInstant(meet.EndTime, end) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("meet %s window does not match its sessions", meetID),
			Entity:   domain.EntityMeet,
			EntityID: meetID,
		})
	}
	return res, nil
}
