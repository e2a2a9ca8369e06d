package core

import (
	"context"

	"swimeeter/pkg/domain"
)

// MeetExport is a complete, self-contained copy of one meet.
type MeetExport struct {
	Meet     Meet            `json:"meet"`
	Sessions []SessionExport `json:"sessions"`
	Teams    []TeamExport    `json:"teams"`
}

// SessionExport is a session with its events in order.
type SessionExport struct {
	Session Session       `json:"session"`
	Events  []EventExport `json:"events"`
}

// EventExport is an event with its entries ordered by seed time.
type EventExport struct {
	Event             Event             `json:"event"`
	IndividualEntries []IndividualEntry `json:"individual_entries,omitempty"`
	Relays            []Relay           `json:"relays,omitempty"`
}

// TeamExport is a team with its swimmers.
type TeamExport struct {
	Team     Team      `json:"team"`
	Swimmers []Swimmer `json:"swimmers"`
}

// BuildMeetExport assembles the export tree of meet from view.
func BuildMeetExport(view domain.TransactionView, meet Meet) MeetExport {
	out := MeetExport{Meet: meet}
	for _, session := range view.SessionsByMeet(meet.ID) {
		se := SessionExport{Session: session}
		for _, event := range view.EventsBySession(session.ID) {
			ee := EventExport{Event: event}
			if event.IsRelay {
				ee.Relays = relaysOfEvent(view, event.ID)
			} else {
				ee.IndividualEntries = view.IndividualEntriesByEvent(event.ID)
			}
			se.Events = append(se.Events, ee)
		}
		out.Sessions = append(out.Sessions, se)
	}
	for _, team := range view.TeamsByMeet(meet.ID) {
		out.Teams = append(out.Teams, TeamExport{Team: team, Swimmers: view.SwimmersByTeam(team.ID)})
	}
	return out
}

// ExportMeet returns the export tree of a meet the caller may read.
func (s *Service) ExportMeet(ctx context.Context, caller Caller, id string) (MeetExport, error) {
	var export MeetExport
	err := s.read(ctx, "export_meet", id, func(view domain.TransactionView) error {
		meet, err := s.readableMeet(view, caller, EntityMeet, id)
		if err != nil {
			return err
		}
		export = BuildMeetExport(view, meet)
		return nil
	})
	if err != nil {
		return MeetExport{}, err
	}
	return export, nil
}
