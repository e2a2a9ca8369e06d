package core

import (
	"sort"
	"strings"

	"swimeeter/pkg/domain"
)

// Resolution is the DuplicateResolver's verdict for a candidate write.
type Resolution int

const (
	// Proceed lets the write go ahead.
	Proceed Resolution = iota
	// Reject refuses the write; the accompanying error says why.
	Reject
	// SilentAccept reports success without writing; the first match stands in
	// for the candidate.
	SilentAccept
	// ReplaceOriginals deletes every match before the write goes ahead.
	ReplaceOriginals
)

func (r Resolution) String() string {
	switch r {
	case Proceed:
		return "proceed"
	case Reject:
		return "reject"
	case SilentAccept:
		return "silent_accept"
	case ReplaceOriginals:
		return "replace_originals"
	default:
		return "unknown"
	}
}

// DuplicateCandidate is a record about to be written, reduced to the key the
// duplicate check compares.
type DuplicateCandidate interface {
	Entity() EntityType
	// Matches lists existing records sharing the candidate's key, excluding
	// the candidate's own ID.
	Matches(view domain.TransactionView) []string
}

// TeamCandidate matches on (meet, name, acronym).
type TeamCandidate struct{ Team Team }

// Entity implements DuplicateCandidate.
func (TeamCandidate) Entity() EntityType { return EntityTeam }

// Matches implements DuplicateCandidate.
func (c TeamCandidate) Matches(view domain.TransactionView) []string {
	var ids []string
	for _, t := range view.TeamsByMeet(c.Team.MeetID) {
		if t.ID != c.Team.ID && t.Name == c.Team.Name && t.Acronym == c.Team.Acronym {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// SwimmerCandidate matches on meet plus every name part, age and gender.
type SwimmerCandidate struct{ Swimmer Swimmer }

// Entity implements DuplicateCandidate.
func (SwimmerCandidate) Entity() EntityType { return EntitySwimmer }

// Matches implements DuplicateCandidate.
func (c SwimmerCandidate) Matches(view domain.TransactionView) []string {
	s := c.Swimmer
	var ids []string
	for _, o := range view.SwimmersByMeet(s.MeetID) {
		if o.ID == s.ID {
			continue
		}
		if o.FirstName == s.FirstName && o.LastName == s.LastName && o.Prefix == s.Prefix &&
			o.Suffix == s.Suffix && o.MiddleInitials == s.MiddleInitials && o.Age == s.Age && o.Gender == s.Gender {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// IndividualEntryCandidate matches on (event, swimmer).
type IndividualEntryCandidate struct{ Entry IndividualEntry }

// Entity implements DuplicateCandidate.
func (IndividualEntryCandidate) Entity() EntityType { return EntityIndividualEntry }

// Matches implements DuplicateCandidate.
func (c IndividualEntryCandidate) Matches(view domain.TransactionView) []string {
	var ids []string
	for _, e := range view.IndividualEntriesByEvent(c.Entry.EventID) {
		if e.ID != c.Entry.ID && e.SwimmerID == c.Entry.SwimmerID {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// RelayEntryCandidate matches relay entries of the same event whose roster
// holds exactly the same swimmers, regardless of leg order.
type RelayEntryCandidate struct {
	ID         string
	EventID    string
	SwimmerIDs []string
}

// Entity implements DuplicateCandidate.
func (RelayEntryCandidate) Entity() EntityType { return EntityRelayEntry }

// Matches implements DuplicateCandidate.
func (c RelayEntryCandidate) Matches(view domain.TransactionView) []string {
	want := rosterKey(c.SwimmerIDs)
	var ids []string
	for _, e := range view.RelayEntriesByEvent(c.EventID) {
		if e.ID == c.ID {
			continue
		}
		roster := view.RelayAssignmentsByEntry(e.ID)
		swimmers := make([]string, len(roster))
		for i, a := range roster {
			swimmers[i] = a.SwimmerID
		}
		if rosterKey(swimmers) == want {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func rosterKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// entryTypes never tolerate duplicates, whatever the policy.
var entryTypes = map[EntityType]bool{
	EntityIndividualEntry: true,
	EntityRelayEntry:      true,
}

// DuplicateResolver applies a duplicate handling policy to the matches found
// for a candidate.
type DuplicateResolver struct{}

// Resolve decides how a write proceeds. Reject always comes with an error:
// ConflictError for unhandled duplicates, ValidationError for a policy the
// entity does not support.
func (DuplicateResolver) Resolve(policy DuplicatePolicy, entity EntityType, matches []string) (Resolution, error) {
	if policy == "" {
		policy = domain.PolicyUnhandled
	}
	if _, err := domain.ParseDuplicatePolicy(string(policy)); err != nil {
		return Reject, err
	}
	if len(matches) == 0 {
		return Proceed, nil
	}
	switch policy {
	case domain.PolicyKeepNew:
		return ReplaceOriginals, nil
	case domain.PolicyKeepOriginals:
		return SilentAccept, nil
	case domain.PolicyKeepBoth:
		if entryTypes[entity] {
			return Reject, domain.Invalid(entity, domain.ReasonInvalidPolicy, "%s does not support %s", entity, policy)
		}
		return Proceed, nil
	default:
		return Reject, domain.ConflictError{Entity: entity, IDs: append([]string(nil), matches...)}
	}
}
