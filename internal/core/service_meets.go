package core

import (
	"context"
	"time"

	"swimeeter/pkg/domain"
)

// CreateMeet registers a meet hosted by the caller. The meet window starts
// empty and follows the sessions added later.
func (s *Service) CreateMeet(ctx context.Context, req Request, meet Meet) (Meet, Result, error) {
	return runFor(ctx, s, "create_meet", req, func(tx domain.Transaction, out *outcome) (Meet, error) {
		if !req.Caller.Authenticated() {
			return Meet{}, domain.AuthorizationError{Anonymous: true}
		}
		meet.HostID = req.Caller.HostID
		meet.BeginTime, meet.EndTime = nil, nil
		if err := validateMeetFields(meet); err != nil {
			return Meet{}, err
		}
		created, err := tx.CreateMeet(meet)
		out.id = created.ID
		return created, err
	})
}

// UpdateMeet applies mutator to a meet. The host and the session-derived
// window cannot be changed this way. Shrinking the pool clears the seeding of
// every event that used a lane that no longer exists.
func (s *Service) UpdateMeet(ctx context.Context, req Request, id string, mutator func(*Meet) error) (Meet, Result, error) {
	return runFor(ctx, s, "update_meet", req, func(tx domain.Transaction, out *outcome) (Meet, error) {
		out.id = id
		before, err := s.hostedMeet(tx, req.Caller, EntityMeet, id)
		if err != nil {
			return Meet{}, err
		}
		updated, err := tx.UpdateMeet(id, func(m *Meet) error {
			if err := mutator(m); err != nil {
				return err
			}
			m.HostID, m.BeginTime, m.EndTime = before.HostID, before.BeginTime, before.EndTime
			return validateMeetFields(*m)
		})
		if err != nil {
			return Meet{}, err
		}
		if updated.Lanes < before.Lanes {
			for _, event := range eventsOfMeet(tx, id) {
				if !usesLaneBeyond(tx, event, updated.Lanes) {
					continue
				}
				if _, err := s.seeding.Invalidate(tx, event.ID); err != nil {
					return Meet{}, err
				}
			}
		}
		return updated, nil
	})
}

// DeleteMeet removes a meet and everything it owns.
func (s *Service) DeleteMeet(ctx context.Context, req Request, id string) (Result, error) {
	return s.run(ctx, "delete_meet", req, func(tx domain.Transaction, out *outcome) error {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityMeet, id); err != nil {
			return err
		}
		return tx.DeleteMeet(id)
	})
}

// CreateSession adds a session to a meet and widens the meet window to cover it.
func (s *Service) CreateSession(ctx context.Context, req Request, session Session) (Session, Result, error) {
	return runFor(ctx, s, "create_session", req, func(tx domain.Transaction, out *outcome) (Session, error) {
		if _, err := s.hostedMeet(tx, req.Caller, EntityMeet, session.MeetID); err != nil {
			return Session{}, err
		}
		if err := validateSessionFields(session); err != nil {
			return Session{}, err
		}
		created, err := tx.CreateSession(session)
		if err != nil {
			return Session{}, err
		}
		out.id = created.ID
		return created, s.refreshMeetWindow(tx, created.MeetID)
	})
}

// UpdateSession applies mutator to a session. Sessions cannot change meet.
func (s *Service) UpdateSession(ctx context.Context, req Request, id string, mutator func(*Session) error) (Session, Result, error) {
	return runFor(ctx, s, "update_session", req, func(tx domain.Transaction, out *outcome) (Session, error) {
		out.id = id
		meet, err := s.hostedMeet(tx, req.Caller, EntitySession, id)
		if err != nil {
			return Session{}, err
		}
		updated, err := tx.UpdateSession(id, func(sess *Session) error {
			if err := mutator(sess); err != nil {
				return err
			}
			sess.MeetID = meet.ID
			return validateSessionFields(*sess)
		})
		if err != nil {
			return Session{}, err
		}
		return updated, s.refreshMeetWindow(tx, meet.ID)
	})
}

// DeleteSession removes a session with its events and their entries.
func (s *Service) DeleteSession(ctx context.Context, req Request, id string) (Result, error) {
	return s.run(ctx, "delete_session", req, func(tx domain.Transaction, out *outcome) error {
		out.id = id
		meet, err := s.hostedMeet(tx, req.Caller, EntitySession, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteSession(id); err != nil {
			return err
		}
		return s.refreshMeetWindow(tx, meet.ID)
	})
}

// meetWindow spans the earliest session start to the latest session end.
// It is nil when the meet has no sessions.
func meetWindow(sessions []Session) (*time.Time, *time.Time) {
	if len(sessions) == 0 {
		return nil, nil
	}
	begin, end := sessions[0].BeginTime, sessions[0].EndTime
	for _, session := range sessions[1:] {
		if session.BeginTime.Before(begin) {
			begin = session.BeginTime
		}
		if session.EndTime.After(end) {
			end = session.EndTime
		}
	}
	return &begin, &end
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *Service) refreshMeetWindow(tx domain.Transaction, meetID string) error {
	meet, ok := tx.FindMeet(meetID)
	if !ok {
		return domain.ErrNotFound{Entity: EntityMeet, ID: meetID}
	}
	begin, end := meetWindow(tx.SessionsByMeet(meetID))
	if sameInstant(meet.BeginTime, begin) && sameInstant(meet.EndTime, end) {
		return nil
	}
	_, err := tx.UpdateMeet(meetID, func(m *Meet) error {
		m.BeginTime, m.EndTime = begin, end
		return nil
	})
	return err
}

// eventsOfMeet lists every event of the meet, session by session.
func eventsOfMeet(view domain.TransactionView, meetID string) []Event {
	var events []Event
	for _, session := range view.SessionsByMeet(meetID) {
		events = append(events, view.EventsBySession(session.ID)...)
	}
	return events
}

func usesLaneBeyond(view domain.TransactionView, event Event, lanes int) bool {
	if !event.Seeded() {
		return false
	}
	beyond := func(p Placement) bool { return p.LaneNumber != nil && *p.LaneNumber > lanes }
	if event.IsRelay {
		for _, entry := range view.RelayEntriesByEvent(event.ID) {
			if beyond(entry.Placement) {
				return true
			}
		}
		return false
	}
	for _, entry := range view.IndividualEntriesByEvent(event.ID) {
		if beyond(entry.Placement) {
			return true
		}
	}
	return false
}
