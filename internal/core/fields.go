package core

import (
	"strings"

	"swimeeter/pkg/domain"
)

var (
	validStrokes = map[domain.Stroke]struct{}{
		domain.StrokeFreestyle:        {},
		domain.StrokeBackstroke:       {},
		domain.StrokeBreaststroke:     {},
		domain.StrokeButterfly:        {},
		domain.StrokeIndividualMedley: {},
		domain.StrokeMedley:           {},
	}
	eventGenders   = map[domain.Gender]struct{}{domain.GenderMale: {}, domain.GenderFemale: {}, domain.GenderOpen: {}}
	swimmerGenders = map[domain.Gender]struct{}{domain.GenderMale: {}, domain.GenderFemale: {}}
)

func invalidField(entity EntityType, format string, args ...any) error {
	return domain.Invalid(entity, domain.ReasonInvalidField, format, args...)
}

func validateMeetFields(m Meet) error {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return invalidField(EntityMeet, "name is required")
	case m.Lanes <= 0:
		return invalidField(EntityMeet, "lanes must be positive")
	case m.SideLength <= 0:
		return invalidField(EntityMeet, "side length must be positive")
	case m.MeasureUnit != domain.UnitMeters && m.MeasureUnit != domain.UnitYards:
		return invalidField(EntityMeet, "unknown measure unit %q", m.MeasureUnit)
	}
	return nil
}

func validateSessionFields(s Session) error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return invalidField(EntitySession, "name is required")
	case s.EndTime.Before(s.BeginTime):
		return invalidField(EntitySession, "session ends before it begins")
	}
	return nil
}

func validateEventFields(e Event) error {
	if _, ok := validStrokes[e.Stroke]; !ok {
		return invalidField(EntityEvent, "unknown stroke %q", e.Stroke)
	}
	if _, ok := eventGenders[e.CompetingGender]; !ok {
		return invalidField(EntityEvent, "unknown competing gender %q", e.CompetingGender)
	}
	switch {
	case e.Distance <= 0:
		return invalidField(EntityEvent, "distance must be positive")
	case e.IsRelay && e.SwimmersPerEntry < 2:
		return invalidField(EntityEvent, "relay events need at least two swimmers per entry")
	case !e.IsRelay && e.SwimmersPerEntry != 1:
		return invalidField(EntityEvent, "individual events take exactly one swimmer per entry")
	case e.CompetingMinAge != nil && *e.CompetingMinAge < 0:
		return invalidField(EntityEvent, "minimum age must not be negative")
	case e.CompetingMinAge != nil && e.CompetingMaxAge != nil && *e.CompetingMinAge > *e.CompetingMaxAge:
		return invalidField(EntityEvent, "minimum age exceeds maximum age")
	}
	return nil
}

func validateSwimmerFields(s Swimmer) error {
	if _, ok := swimmerGenders[s.Gender]; !ok {
		return invalidField(EntitySwimmer, "unknown gender %q", s.Gender)
	}
	switch {
	case strings.TrimSpace(s.FirstName) == "" || strings.TrimSpace(s.LastName) == "":
		return invalidField(EntitySwimmer, "first and last name are required")
	case s.Age < 0:
		return invalidField(EntitySwimmer, "age must not be negative")
	case s.TeamID == "":
		return invalidField(EntitySwimmer, "team is required")
	}
	return nil
}

func validateTeamFields(t Team) error {
	if strings.TrimSpace(t.Name) == "" {
		return invalidField(EntityTeam, "name is required")
	}
	return nil
}

func validateSeedTime(entity EntityType, seed int) error {
	if seed < 0 {
		return invalidField(entity, "seed time must not be negative")
	}
	return nil
}
