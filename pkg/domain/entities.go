// Package domain defines the persistent swim-meet entities, value types, and
// rule evaluation primitives used by swimeeter.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain. The set
// is closed; every per-type table in the engine is keyed by these values.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityMeet identifies a meet record.
	EntityMeet EntityType = "meet"
	// EntitySession identifies a session record owned by a meet.
	EntitySession EntityType = "session"
	// EntityEvent identifies an event record owned by a session.
	EntityEvent EntityType = "event"
	// EntitySwimmer identifies a swimmer record owned by a meet.
	EntitySwimmer EntityType = "swimmer"
	// EntityTeam identifies a team record owned by a meet.
	EntityTeam EntityType = "team"
	// EntityIndividualEntry identifies an individual entry owned by an event and a swimmer.
	EntityIndividualEntry EntityType = "individual_entry"
	// EntityRelayEntry identifies a relay entry owned by an event.
	EntityRelayEntry EntityType = "relay_entry"
	// EntityRelayAssignment identifies a roster slot owned by a relay entry.
	EntityRelayAssignment EntityType = "relay_assignment"
)

// EntityTypes lists every entity variant in ownership order (parents first).
func EntityTypes() []EntityType {
	return []EntityType{
		EntityMeet,
		EntitySession,
		EntityEvent,
		EntityTeam,
		EntitySwimmer,
		EntityIndividualEntry,
		EntityRelayEntry,
		EntityRelayAssignment,
	}
}

// Gender is used both for swimmers and for event eligibility.
type Gender string

// Genders recognised by eligibility checks. GenderOpen is only valid on events.
const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOpen   Gender = "Open"
)

// Stroke enumerates the strokes an event can be swum in.
type Stroke string

// Canonical strokes.
const (
	StrokeFreestyle        Stroke = "Freestyle"
	StrokeBackstroke       Stroke = "Backstroke"
	StrokeBreaststroke     Stroke = "Breaststroke"
	StrokeButterfly        Stroke = "Butterfly"
	StrokeIndividualMedley Stroke = "Individual Medley"
	StrokeMedley           Stroke = "Medley"
)

// MeasureUnit is the unit the pool side length is expressed in.
type MeasureUnit string

// Supported pool units.
const (
	UnitMeters MeasureUnit = "Meters"
	UnitYards  MeasureUnit = "Yards"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meet is the root aggregate. It owns sessions, swimmers and teams.
type Meet struct {
	Base
	Name        string      `json:"name"`
	BeginTime   *time.Time  `json:"begin_time"`
	EndTime     *time.Time  `json:"end_time"`
	IsPublic    bool        `json:"is_public"`
	Lanes       int         `json:"lanes"`
	SideLength  int         `json:"side_length"`
	MeasureUnit MeasureUnit `json:"measure_unit"`
	HostID      string      `json:"host_id"`
}

// Session is a block of events within a meet.
type Session struct {
	Base
	MeetID    string    `json:"meet_id"`
	Name      string    `json:"name"`
	BeginTime time.Time `json:"begin_time"`
	EndTime   time.Time `json:"end_time"`
}

// Event is a single race within a session. OrderInSession is kept dense per
// session; a nil TotalHeats means the event is unseeded.
type Event struct {
	Base
	SessionID        string `json:"session_id"`
	Stroke           Stroke `json:"stroke"`
	Distance         int    `json:"distance"`
	IsRelay          bool   `json:"is_relay"`
	SwimmersPerEntry int    `json:"swimmers_per_entry"`
	CompetingGender  Gender `json:"competing_gender"`
	CompetingMinAge  *int   `json:"competing_min_age"`
	CompetingMaxAge  *int   `json:"competing_max_age"`
	OrderInSession   int    `json:"order_in_session"`
	TotalHeats       *int   `json:"total_heats"`
}

// Seeded reports whether heat/lane assignments currently exist for the event.
func (e Event) Seeded() bool { return e.TotalHeats != nil }

// Swimmer is a competitor registered for a meet.
type Swimmer struct {
	Base
	MeetID         string `json:"meet_id"`
	TeamID         string `json:"team_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Prefix         string `json:"prefix"`
	Suffix         string `json:"suffix"`
	MiddleInitials string `json:"middle_initials"`
	Age            int    `json:"age"`
	Gender         Gender `json:"gender"`
}

// FullName renders the swimmer name with optional prefix and suffix.
func (s Swimmer) FullName() string {
	name := s.FirstName
	if s.Prefix != "" {
		name = fmt.Sprintf("%s %s", s.Prefix, name)
	}
	if s.MiddleInitials != "" {
		name = fmt.Sprintf("%s %s", name, s.MiddleInitials)
	}
	name = fmt.Sprintf("%s %s", name, s.LastName)
	if s.Suffix != "" {
		name = fmt.Sprintf("%s %s", name, s.Suffix)
	}
	return name
}

// Team groups swimmers within a meet.
type Team struct {
	Base
	MeetID  string `json:"meet_id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
}

// Placement is a heat/lane pair. Both are set or both are nil.
type Placement struct {
	HeatNumber *int `json:"heat_number"`
	LaneNumber *int `json:"lane_number"`
}

// Placed reports whether the entry currently has a heat and lane.
func (p Placement) Placed() bool { return p.HeatNumber != nil && p.LaneNumber != nil }

// Clear resets the placement to the unseeded state.
func (p *Placement) Clear() {
	p.HeatNumber = nil
	p.LaneNumber = nil
}

// IndividualEntry registers a swimmer in a non-relay event. SeedTime is in
// hundredths of a second.
type IndividualEntry struct {
	Base
	Placement
	EventID   string `json:"event_id"`
	SwimmerID string `json:"swimmer_id"`
	SeedTime  int    `json:"seed_time"`
}

// RelayEntry registers a relay team in a relay event. SeedTime is derived
// from the roster splits.
type RelayEntry struct {
	Base
	Placement
	EventID  string `json:"event_id"`
	SeedTime int    `json:"seed_time"`
}

// RelayAssignment is one leg of a relay roster.
type RelayAssignment struct {
	Base
	RelayEntryID   string `json:"relay_entry_id"`
	SwimmerID      string `json:"swimmer_id"`
	OrderInRelay   int    `json:"order_in_relay"`
	SeedRelaySplit int    `json:"seed_relay_split"`
}

// Caller identifies who issues a request. The zero value is anonymous.
type Caller struct {
	HostID string `json:"host_id"`
}

// Anonymous returns the unauthenticated caller.
func Anonymous() Caller { return Caller{} }

// Authenticated reports whether the caller carries a host identity.
func (c Caller) Authenticated() bool { return c.HostID != "" }

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine together with the
// duplicate resolution applied by the operation, if any.
type Result struct {
	Violations []Violation
	Duplicates DuplicateOutcome
	// Matched lists the existing records the duplicate policy acted on.
	Matched []string
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rules: %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}
