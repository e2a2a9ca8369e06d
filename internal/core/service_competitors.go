package core

import (
	"context"

	"swimeeter/pkg/domain"
)

// CreateTeam adds a team to a meet, applying the request's duplicate policy
// against teams with the same name and acronym.
func (s *Service) CreateTeam(ctx context.Context, req Request, team Team) (Team, Result, error) {
	return runFor(ctx, s, "create_team", req, func(tx domain.Transaction, out *outcome) (Team, error) {
		if _, err := s.hostedMeet(tx, req.Caller, EntityMeet, team.MeetID); err != nil {
			return Team{}, err
		}
		if err := validateTeamFields(team); err != nil {
			return Team{}, err
		}
		team.ID = ""
		existing, proceed, err := s.resolveDuplicates(tx, req, TeamCandidate{Team: team}, out)
		if err != nil {
			return Team{}, err
		}
		if !proceed {
			kept, _ := tx.FindTeam(existing)
			out.id = kept.ID
			return kept, nil
		}
		created, err := tx.CreateTeam(team)
		out.id = created.ID
		return created, err
	})
}

// UpdateTeam applies mutator to a team. Teams cannot change meet. Renaming a
// team into another team's name and acronym goes through the duplicate policy.
func (s *Service) UpdateTeam(ctx context.Context, req Request, id string, mutator func(*Team) error) (Team, Result, error) {
	return runFor(ctx, s, "update_team", req, func(tx domain.Transaction, out *outcome) (Team, error) {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityTeam, id); err != nil {
			return Team{}, err
		}
		before, _ := tx.FindTeam(id)
		candidate := before
		if err := mutator(&candidate); err != nil {
			return Team{}, err
		}
		candidate.ID, candidate.MeetID = id, before.MeetID
		if err := validateTeamFields(candidate); err != nil {
			return Team{}, err
		}
		if candidate.Name != before.Name || candidate.Acronym != before.Acronym {
			existing, proceed, err := s.resolveDuplicates(tx, req, TeamCandidate{Team: candidate}, out)
			if err != nil {
				return Team{}, err
			}
			if !proceed {
				kept, _ := tx.FindTeam(existing)
				return kept, nil
			}
		}
		return tx.UpdateTeam(id, func(t *Team) error {
			*t = candidate
			return nil
		})
	})
}

// DeleteTeam removes a team and its swimmers, together with every entry
// those swimmers were part of.
func (s *Service) DeleteTeam(ctx context.Context, req Request, id string) (Result, error) {
	return s.run(ctx, "delete_team", req, func(tx domain.Transaction, out *outcome) error {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntityTeam, id); err != nil {
			return err
		}
		return s.removeTeam(tx, id)
	})
}

// CreateSwimmer registers a swimmer for a meet on one of the meet's teams.
func (s *Service) CreateSwimmer(ctx context.Context, req Request, swimmer Swimmer) (Swimmer, Result, error) {
	return runFor(ctx, s, "create_swimmer", req, func(tx domain.Transaction, out *outcome) (Swimmer, error) {
		if _, err := s.hostedMeet(tx, req.Caller, EntityMeet, swimmer.MeetID); err != nil {
			return Swimmer{}, err
		}
		if err := checkSwimmerRecord(tx, swimmer); err != nil {
			return Swimmer{}, err
		}
		swimmer.ID = ""
		existing, proceed, err := s.resolveDuplicates(tx, req, SwimmerCandidate{Swimmer: swimmer}, out)
		if err != nil {
			return Swimmer{}, err
		}
		if !proceed {
			kept, _ := tx.FindSwimmer(existing)
			out.id = kept.ID
			return kept, nil
		}
		created, err := tx.CreateSwimmer(swimmer)
		out.id = created.ID
		return created, err
	})
}

// UpdateSwimmer applies mutator to a swimmer. Swimmers cannot change meet.
// A change of age or gender must keep the swimmer eligible for every event
// they are entered in.
func (s *Service) UpdateSwimmer(ctx context.Context, req Request, id string, mutator func(*Swimmer) error) (Swimmer, Result, error) {
	return runFor(ctx, s, "update_swimmer", req, func(tx domain.Transaction, out *outcome) (Swimmer, error) {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntitySwimmer, id); err != nil {
			return Swimmer{}, err
		}
		before, _ := tx.FindSwimmer(id)
		candidate := before
		if err := mutator(&candidate); err != nil {
			return Swimmer{}, err
		}
		candidate.ID, candidate.MeetID = id, before.MeetID
		if err := checkSwimmerRecord(tx, candidate); err != nil {
			return Swimmer{}, err
		}
		if swimmerKeyChanged(before, candidate) {
			existing, proceed, err := s.resolveDuplicates(tx, req, SwimmerCandidate{Swimmer: candidate}, out)
			if err != nil {
				return Swimmer{}, err
			}
			if !proceed {
				kept, _ := tx.FindSwimmer(existing)
				return kept, nil
			}
		}
		if candidate.Age != before.Age || candidate.Gender != before.Gender {
			if err := s.revalidateSwimmer(tx, candidate); err != nil {
				return Swimmer{}, err
			}
		}
		return tx.UpdateSwimmer(id, func(sw *Swimmer) error {
			*sw = candidate
			return nil
		})
	})
}

// DeleteSwimmer removes a swimmer, their individual entries and every relay
// entry whose roster includes them.
func (s *Service) DeleteSwimmer(ctx context.Context, req Request, id string) (Result, error) {
	return s.run(ctx, "delete_swimmer", req, func(tx domain.Transaction, out *outcome) error {
		out.id = id
		if _, err := s.hostedMeet(tx, req.Caller, EntitySwimmer, id); err != nil {
			return err
		}
		return s.removeSwimmer(tx, id)
	})
}

func checkSwimmerRecord(view domain.TransactionView, swimmer Swimmer) error {
	if err := validateSwimmerFields(swimmer); err != nil {
		return err
	}
	team, ok := view.FindTeam(swimmer.TeamID)
	if !ok {
		return domain.ErrNotFound{Entity: EntityTeam, ID: swimmer.TeamID}
	}
	if team.MeetID != swimmer.MeetID {
		return domain.Invalid(EntitySwimmer, domain.ReasonMeetMismatch, "team %s belongs to another meet", team.ID)
	}
	return nil
}

func swimmerKeyChanged(a, b Swimmer) bool {
	return a.FirstName != b.FirstName || a.LastName != b.LastName || a.Prefix != b.Prefix ||
		a.Suffix != b.Suffix || a.MiddleInitials != b.MiddleInitials || a.Age != b.Age || a.Gender != b.Gender
}

// revalidateSwimmer checks swimmer, as it is about to be written, against
// every event it is entered in.
func (s *Service) revalidateSwimmer(view domain.TransactionView, swimmer Swimmer) error {
	for _, entry := range view.IndividualEntriesBySwimmer(swimmer.ID) {
		event, session, err := eventAndSession(view, entry.EventID)
		if err != nil {
			return err
		}
		if err := s.validator.ValidateIndividual(swimmer, event, session); err != nil {
			return err
		}
	}
	for _, slot := range view.RelayAssignmentsBySwimmer(swimmer.ID) {
		relay, ok := view.FindRelayEntry(slot.RelayEntryID)
		if !ok {
			return domain.ErrNotFound{Entity: EntityRelayEntry, ID: slot.RelayEntryID}
		}
		event, session, err := eventAndSession(view, relay.EventID)
		if err != nil {
			return err
		}
		legs, swimmers := rosterLegs(view, relay.ID)
		swimmers[swimmer.ID] = swimmer
		if _, err := s.validator.ValidateRelayRoster(legs, event, session, swimmers); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) removeTeam(tx domain.Transaction, id string) error {
	if _, ok := tx.FindTeam(id); !ok {
		return domain.ErrNotFound{Entity: EntityTeam, ID: id}
	}
	for _, swimmer := range tx.SwimmersByTeam(id) {
		if err := s.removeSwimmer(tx, swimmer.ID); err != nil {
			return err
		}
	}
	return tx.DeleteTeam(id)
}

func (s *Service) removeSwimmer(tx domain.Transaction, id string) error {
	if _, ok := tx.FindSwimmer(id); !ok {
		return domain.ErrNotFound{Entity: EntitySwimmer, ID: id}
	}
	for _, entry := range tx.IndividualEntriesBySwimmer(id) {
		if err := s.removeIndividualEntry(tx, entry.ID); err != nil {
			return err
		}
	}
	for _, slot := range tx.RelayAssignmentsBySwimmer(id) {
		if _, ok := tx.FindRelayEntry(slot.RelayEntryID); !ok {
			continue
		}
		if err := s.removeRelayEntry(tx, slot.RelayEntryID); err != nil {
			return err
		}
	}
	return tx.DeleteSwimmer(id)
}
