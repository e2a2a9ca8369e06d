// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. The durable backends embed
// it and persist snapshots from its commit hook.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"swimeeter/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Meet aliases domain.Meet for in-memory persistence operations.
	Meet = domain.Meet
	// Session aliases domain.Session.
	Session = domain.Session
	// Event aliases domain.Event.
	Event = domain.Event
	// Swimmer aliases domain.Swimmer.
	Swimmer = domain.Swimmer
	// Team aliases domain.Team.
	Team = domain.Team
	// IndividualEntry aliases domain.IndividualEntry.
	IndividualEntry = domain.IndividualEntry
	// RelayEntry aliases domain.RelayEntry.
	RelayEntry = domain.RelayEntry
	// RelayAssignment aliases domain.RelayAssignment.
	RelayAssignment = domain.RelayAssignment
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	meets       map[string]Meet
	sessions    map[string]Session
	events      map[string]Event
	swimmers    map[string]Swimmer
	teams       map[string]Team
	individual  map[string]IndividualEntry
	relays      map[string]RelayEntry
	assignments map[string]RelayAssignment
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Meets             map[string]Meet            `json:"meets"`
	Sessions          map[string]Session         `json:"sessions"`
	Events            map[string]Event           `json:"events"`
	Swimmers          map[string]Swimmer         `json:"swimmers"`
	Teams             map[string]Team            `json:"teams"`
	IndividualEntries map[string]IndividualEntry `json:"individual_entries"`
	RelayEntries      map[string]RelayEntry      `json:"relay_entries"`
	RelayAssignments  map[string]RelayAssignment `json:"relay_assignments"`
}

func newMemoryState() memoryState {
	return memoryState{
		meets:       make(map[string]Meet),
		sessions:    make(map[string]Session),
		events:      make(map[string]Event),
		swimmers:    make(map[string]Swimmer),
		teams:       make(map[string]Team),
		individual:  make(map[string]IndividualEntry),
		relays:      make(map[string]RelayEntry),
		assignments: make(map[string]RelayAssignment),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Meets:             cloned.meets,
		Sessions:          cloned.sessions,
		Events:            cloned.events,
		Swimmers:          cloned.swimmers,
		Teams:             cloned.teams,
		IndividualEntries: cloned.individual,
		RelayEntries:      cloned.relays,
		RelayAssignments:  cloned.assignments,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{
		meets:       s.Meets,
		sessions:    s.Sessions,
		events:      s.Events,
		swimmers:    s.Swimmers,
		teams:       s.Teams,
		individual:  s.IndividualEntries,
		relays:      s.RelayEntries,
		assignments: s.RelayAssignments,
	}
	return state.clone()
}

// migrateSnapshot fills missing buckets and drops records whose owner no
// longer exists, walking the ownership chain parents first.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Meets == nil {
		snapshot.Meets = map[string]Meet{}
	}
	if snapshot.Sessions == nil {
		snapshot.Sessions = map[string]Session{}
	}
	if snapshot.Events == nil {
		snapshot.Events = map[string]Event{}
	}
	if snapshot.Swimmers == nil {
		snapshot.Swimmers = map[string]Swimmer{}
	}
	if snapshot.Teams == nil {
		snapshot.Teams = map[string]Team{}
	}
	if snapshot.IndividualEntries == nil {
		snapshot.IndividualEntries = map[string]IndividualEntry{}
	}
	if snapshot.RelayEntries == nil {
		snapshot.RelayEntries = map[string]RelayEntry{}
	}
	if snapshot.RelayAssignments == nil {
		snapshot.RelayAssignments = map[string]RelayAssignment{}
	}

	for id, session := range snapshot.Sessions {
		if _, ok := snapshot.Meets[session.MeetID]; !ok {
			delete(snapshot.Sessions, id)
		}
	}
	for id, team := range snapshot.Teams {
		if _, ok := snapshot.Meets[team.MeetID]; !ok {
			delete(snapshot.Teams, id)
		}
	}
	for id, event := range snapshot.Events {
		if _, ok := snapshot.Sessions[event.SessionID]; !ok {
			delete(snapshot.Events, id)
		}
	}
	for id, swimmer := range snapshot.Swimmers {
		if _, ok := snapshot.Meets[swimmer.MeetID]; !ok {
			delete(snapshot.Swimmers, id)
			continue
		}
		if swimmer.TeamID != "" {
			if _, ok := snapshot.Teams[swimmer.TeamID]; !ok {
				delete(snapshot.Swimmers, id)
			}
		}
	}
	for id, entry := range snapshot.IndividualEntries {
		_, eventOK := snapshot.Events[entry.EventID]
		_, swimmerOK := snapshot.Swimmers[entry.SwimmerID]
		if !eventOK || !swimmerOK {
			delete(snapshot.IndividualEntries, id)
		}
	}
	for id, entry := range snapshot.RelayEntries {
		if _, ok := snapshot.Events[entry.EventID]; !ok {
			delete(snapshot.RelayEntries, id)
		}
	}
	for id, assignment := range snapshot.RelayAssignments {
		_, entryOK := snapshot.RelayEntries[assignment.RelayEntryID]
		_, swimmerOK := snapshot.Swimmers[assignment.SwimmerID]
		if !entryOK || !swimmerOK {
			delete(snapshot.RelayAssignments, id)
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.meets {
		cloned.meets[k] = cloneMeet(v)
	}
	for k, v := range s.sessions {
		cloned.sessions[k] = v
	}
	for k, v := range s.events {
		cloned.events[k] = cloneEvent(v)
	}
	for k, v := range s.swimmers {
		cloned.swimmers[k] = v
	}
	for k, v := range s.teams {
		cloned.teams[k] = v
	}
	for k, v := range s.individual {
		cloned.individual[k] = cloneIndividual(v)
	}
	for k, v := range s.relays {
		cloned.relays[k] = cloneRelay(v)
	}
	for k, v := range s.assignments {
		cloned.assignments[k] = v
	}
	return cloned
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMeet(m Meet) Meet {
	cp := m
	cp.BeginTime = cloneTime(m.BeginTime)
	cp.EndTime = cloneTime(m.EndTime)
	return cp
}

func cloneEvent(e Event) Event {
	cp := e
	cp.CompetingMinAge = cloneInt(e.CompetingMinAge)
	cp.CompetingMaxAge = cloneInt(e.CompetingMaxAge)
	cp.TotalHeats = cloneInt(e.TotalHeats)
	return cp
}

func clonePlacement(p domain.Placement) domain.Placement {
	return domain.Placement{HeatNumber: cloneInt(p.HeatNumber), LaneNumber: cloneInt(p.LaneNumber)}
}

func cloneIndividual(e IndividualEntry) IndividualEntry {
	cp := e
	cp.Placement = clonePlacement(e.Placement)
	return cp
}

func cloneRelay(e RelayEntry) RelayEntry {
	cp := e
	cp.Placement = clonePlacement(e.Placement)
	return cp
}

// CommitHook runs with the would-be committed snapshot while the store lock
// is held. A non-nil error aborts the commit.
type CommitHook func(ctx context.Context, snapshot Snapshot) error

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithCommitHook installs a hook that must succeed before state is swapped in.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) { s.commitHook = hook }
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu         sync.RWMutex
	state      memoryState
	engine     *RulesEngine
	nowFn      func() time.Time
	commitHook CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn within a transactional copy of the store
// state. Nothing is visible to other callers until fn, the rules engine and
// the commit hook have all succeeded.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	tx.transactionView = transactionView{state: &tx.state}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.commitHook != nil {
		if err := s.commitHook(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			var integrity domain.IntegrityError
			if errors.As(err, &integrity) {
				return result, integrity
			}
			return result, domain.IntegrityError{Op: "commit", Err: err}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

// GetMeet returns a meet by ID outside of a transaction.
func (s *Store) GetMeet(id string) (Meet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindMeet(id)
}

// ListMeets returns all meets ordered by name.
func (s *Store) ListMeets() []Meet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListMeets()
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListMeets() []Meet {
	out := make([]Meet, 0, len(v.state.meets))
	for _, m := range v.state.meets {
		out = append(out, cloneMeet(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) FindMeet(id string) (Meet, bool) {
	m, ok := v.state.meets[id]
	if !ok {
		return Meet{}, false
	}
	return cloneMeet(m), true
}

func (v transactionView) FindSession(id string) (Session, bool) {
	s, ok := v.state.sessions[id]
	return s, ok
}

func (v transactionView) FindEvent(id string) (Event, bool) {
	e, ok := v.state.events[id]
	if !ok {
		return Event{}, false
	}
	return cloneEvent(e), true
}

func (v transactionView) FindSwimmer(id string) (Swimmer, bool) {
	s, ok := v.state.swimmers[id]
	return s, ok
}

func (v transactionView) FindTeam(id string) (Team, bool) {
	t, ok := v.state.teams[id]
	return t, ok
}

func (v transactionView) FindIndividualEntry(id string) (IndividualEntry, bool) {
	e, ok := v.state.individual[id]
	if !ok {
		return IndividualEntry{}, false
	}
	return cloneIndividual(e), true
}

func (v transactionView) FindRelayEntry(id string) (RelayEntry, bool) {
	e, ok := v.state.relays[id]
	if !ok {
		return RelayEntry{}, false
	}
	return cloneRelay(e), true
}

func (v transactionView) FindRelayAssignment(id string) (RelayAssignment, bool) {
	a, ok := v.state.assignments[id]
	return a, ok
}

func (v transactionView) SessionsByMeet(meetID string) []Session {
	var out []Session
	for _, s := range v.state.sessions {
		if s.MeetID == meetID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BeginTime.Equal(out[j].BeginTime) {
			return out[i].BeginTime.Before(out[j].BeginTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) EventsBySession(sessionID string) []Event {
	var out []Event
	for _, e := range v.state.events {
		if e.SessionID == sessionID {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderInSession != out[j].OrderInSession {
			return out[i].OrderInSession < out[j].OrderInSession
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) SwimmersByMeet(meetID string) []Swimmer {
	return v.swimmersWhere(func(s Swimmer) bool { return s.MeetID == meetID })
}

func (v transactionView) SwimmersByTeam(teamID string) []Swimmer {
	return v.swimmersWhere(func(s Swimmer) bool { return s.TeamID == teamID })
}

func (v transactionView) swimmersWhere(keep func(Swimmer) bool) []Swimmer {
	var out []Swimmer
	for _, s := range v.state.swimmers {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) TeamsByMeet(meetID string) []Team {
	var out []Team
	for _, t := range v.state.teams {
		if t.MeetID == meetID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Acronym != out[j].Acronym {
			return out[i].Acronym < out[j].Acronym
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) IndividualEntriesByEvent(eventID string) []IndividualEntry {
	return v.individualWhere(func(e IndividualEntry) bool { return e.EventID == eventID })
}

func (v transactionView) IndividualEntriesBySwimmer(swimmerID string) []IndividualEntry {
	return v.individualWhere(func(e IndividualEntry) bool { return e.SwimmerID == swimmerID })
}

func (v transactionView) individualWhere(keep func(IndividualEntry) bool) []IndividualEntry {
	var out []IndividualEntry
	for _, e := range v.state.individual {
		if keep(e) {
			out = append(out, cloneIndividual(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeedTime != out[j].SeedTime {
			return out[i].SeedTime < out[j].SeedTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) RelayEntriesByEvent(eventID string) []RelayEntry {
	var out []RelayEntry
	for _, e := range v.state.relays {
		if e.EventID == eventID {
			out = append(out, cloneRelay(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeedTime != out[j].SeedTime {
			return out[i].SeedTime < out[j].SeedTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v transactionView) RelayAssignmentsByEntry(relayEntryID string) []RelayAssignment {
	return v.assignmentsWhere(func(a RelayAssignment) bool { return a.RelayEntryID == relayEntryID })
}

func (v transactionView) RelayAssignmentsBySwimmer(swimmerID string) []RelayAssignment {
	return v.assignmentsWhere(func(a RelayAssignment) bool { return a.SwimmerID == swimmerID })
}

func (v transactionView) assignmentsWhere(keep func(RelayAssignment) bool) []RelayAssignment {
	var out []RelayAssignment
	for _, a := range v.state.assignments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RelayEntryID != out[j].RelayEntryID {
			return out[i].RelayEntryID < out[j].RelayEntryID
		}
		if out[i].OrderInRelay != out[j].OrderInRelay {
			return out[i].OrderInRelay < out[j].OrderInRelay
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	transactionView
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) stamp(b *domain.Base, entity domain.EntityType, exists func(string) bool) error {
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	if exists(b.ID) {
		return fmt.Errorf("%s %q already exists", entity, b.ID)
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	return nil
}

func missing(entity domain.EntityType, id string) error {
	return domain.ErrNotFound{Entity: entity, ID: id}
}
