package domain

import "context"

// TransactionView provides read-only access to snapshot data. Parent-scoped
// listings are returned in a stable order documented per method.
type TransactionView interface {
	ListMeets() []Meet
	FindMeet(id string) (Meet, bool)
	FindSession(id string) (Session, bool)
	FindEvent(id string) (Event, bool)
	FindSwimmer(id string) (Swimmer, bool)
	FindTeam(id string) (Team, bool)
	FindIndividualEntry(id string) (IndividualEntry, bool)
	FindRelayEntry(id string) (RelayEntry, bool)
	FindRelayAssignment(id string) (RelayAssignment, bool)

	// SessionsByMeet orders by begin time, then ID.
	SessionsByMeet(meetID string) []Session
	// EventsBySession orders by OrderInSession, then ID.
	EventsBySession(sessionID string) []Event
	// SwimmersByMeet orders by last name, first name, then ID.
	SwimmersByMeet(meetID string) []Swimmer
	SwimmersByTeam(teamID string) []Swimmer
	// TeamsByMeet orders by name, acronym, then ID.
	TeamsByMeet(meetID string) []Team
	// IndividualEntriesByEvent orders by seed time, then ID.
	IndividualEntriesByEvent(eventID string) []IndividualEntry
	IndividualEntriesBySwimmer(swimmerID string) []IndividualEntry
	// RelayEntriesByEvent orders by seed time, then ID.
	RelayEntriesByEvent(eventID string) []RelayEntry
	// RelayAssignmentsByEntry orders by OrderInRelay, then ID.
	RelayAssignmentsByEntry(relayEntryID string) []RelayAssignment
	RelayAssignmentsBySwimmer(swimmerID string) []RelayAssignment
}

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Deletes cascade along ownership.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView

	CreateMeet(Meet) (Meet, error)
	UpdateMeet(id string, mutator func(*Meet) error) (Meet, error)
	DeleteMeet(id string) error
	CreateSession(Session) (Session, error)
	UpdateSession(id string, mutator func(*Session) error) (Session, error)
	DeleteSession(id string) error
	CreateEvent(Event) (Event, error)
	UpdateEvent(id string, mutator func(*Event) error) (Event, error)
	DeleteEvent(id string) error
	CreateSwimmer(Swimmer) (Swimmer, error)
	UpdateSwimmer(id string, mutator func(*Swimmer) error) (Swimmer, error)
	DeleteSwimmer(id string) error
	CreateTeam(Team) (Team, error)
	UpdateTeam(id string, mutator func(*Team) error) (Team, error)
	DeleteTeam(id string) error
	CreateIndividualEntry(IndividualEntry) (IndividualEntry, error)
	UpdateIndividualEntry(id string, mutator func(*IndividualEntry) error) (IndividualEntry, error)
	DeleteIndividualEntry(id string) error
	CreateRelayEntry(RelayEntry) (RelayEntry, error)
	UpdateRelayEntry(id string, mutator func(*RelayEntry) error) (RelayEntry, error)
	DeleteRelayEntry(id string) error
	CreateRelayAssignment(RelayAssignment) (RelayAssignment, error)
	UpdateRelayAssignment(id string, mutator func(*RelayAssignment) error) (RelayAssignment, error)
	DeleteRelayAssignment(id string) error
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	RulesEngine() *RulesEngine
	GetMeet(id string) (Meet, bool)
	ListMeets() []Meet
}
