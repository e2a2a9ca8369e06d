package core

import (
	"context"
	"errors"
	"time"

	"swimeeter/internal/infra/persistence/memory"
	"swimeeter/pkg/domain"
)

// Service runs every swim-meet mutation as a single store transaction. The
// primary write and the work that restores event ordering, seeding and relay
// roster invariants commit together or not at all.
type Service struct {
	store   domain.PersistentStore
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	retries int

	guard     AccessGuard
	sequencer OrderSequencer
	validator EntryValidator
	resolver  DuplicateResolver
	seeding   SeedingInvalidator
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithClock overrides the clock used for audit timestamps and durations.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger installs a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder installs the recorder that receives one entry per
// mutating operation.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder installs an operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer that opens one span per operation.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithTxRetries sets how many extra attempts a transaction gets after a
// retryable IntegrityError. Negative values are treated as zero.
func WithTxRetries(n int) Option {
	return func(s *Service) {
		if n < 0 {
			n = 0
		}
		s.retries = n
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		clock:   systemClock{},
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine installs the default invariant rules. Records are stamped with the
// service clock.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	svc := NewService(nil, opts...)
	svc.store = memory.NewStore(engine, memory.WithClock(svc.clock.Now))
	return svc
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// Request carries the identity and duplicate handling preferences of one
// service call. Policy is the explicit duplicate_handling parameter; when it
// is empty the Preferences default applies.
type Request struct {
	Caller      Caller
	Policy      DuplicatePolicy
	Preferences Preferences
}

// RequestFor returns a request issued by caller with no duplicate policy.
func RequestFor(caller Caller) Request {
	return Request{Caller: caller}
}

func (r Request) policy() DuplicatePolicy {
	return r.Preferences.Policy(r.Policy)
}

// outcome collects what a transaction body reports back to run. It is reset
// on every attempt.
type outcome struct {
	id         string
	duplicates domain.DuplicateOutcome
	matched    []string
}

func (s *Service) run(ctx context.Context, op string, req Request, fn func(domain.Transaction, *outcome) error) (Result, error) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	var (
		res Result
		out outcome
		err error
	)
	for attempt := 0; ; attempt++ {
		if err = ctx.Err(); err != nil {
			break
		}
		out = outcome{}
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return fn(tx, &out)
		})
		if err == nil || attempt >= s.retries || !retryable(err) {
			break
		}
		s.logger.Warn("retrying transaction", "operation", op, "attempt", attempt+1, "error", err)
	}
	res.Duplicates, res.Matched = out.duplicates, out.matched
	duration := s.finish(ctx, op, span, start, out.id, err)
	s.recordAudit(ctx, op, out.id, req.Caller.HostID, err, duration)
	return res, err
}

// runFor adapts run to operations that hand back the record they wrote. The
// zero value is returned with any error.
func runFor[T any](ctx context.Context, s *Service, op string, req Request, fn func(domain.Transaction, *outcome) (T, error)) (T, Result, error) {
	var value T
	res, err := s.run(ctx, op, req, func(tx domain.Transaction, out *outcome) error {
		var err error
		value, err = fn(tx, out)
		return err
	})
	if err != nil {
		var zero T
		return zero, res, err
	}
	return value, res, nil
}

func (s *Service) read(ctx context.Context, op, id string, fn func(domain.TransactionView) error) error {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := s.store.View(ctx, fn)
	s.finish(ctx, op, span, start, id, err)
	return err
}

func (s *Service) finish(ctx context.Context, op string, span TraceSpan, start time.Time, id string, err error) time.Duration {
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	switch status := domain.StatusCode(err); {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "entity_id", id, "duration", duration)
	case status < domain.StatusInternal:
		s.logger.Warn("operation rejected", "operation", op, "entity_id", id, "status", status, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "entity_id", id, "status", status, "error", err, "duration", duration)
	}
	return duration
}

func retryable(err error) bool {
	var integrity domain.IntegrityError
	return errors.As(err, &integrity) && integrity.Retryable
}

// hostedMeet resolves the meet that owns the record and requires the caller
// to host it. Anonymous callers are refused before any lookup.
func (s *Service) hostedMeet(view domain.TransactionView, caller Caller, entity EntityType, id string) (Meet, error) {
	if !caller.Authenticated() {
		return Meet{}, domain.AuthorizationError{Anonymous: true}
	}
	meet, err := s.guard.MeetOf(view, entity, id)
	if err != nil {
		return Meet{}, err
	}
	if err := s.guard.RequireHost(meet, caller); err != nil {
		return Meet{}, err
	}
	return meet, nil
}

// readableMeet resolves the meet that owns the record and requires the caller
// to be allowed to read it.
func (s *Service) readableMeet(view domain.TransactionView, caller Caller, entity EntityType, id string) (Meet, error) {
	meet, err := s.guard.MeetOf(view, entity, id)
	if err != nil {
		return Meet{}, err
	}
	if err := s.guard.RequireRead(meet, caller); err != nil {
		return Meet{}, err
	}
	return meet, nil
}

// eventAndSession loads an event together with the session it belongs to.
func eventAndSession(view domain.TransactionView, eventID string) (Event, Session, error) {
	event, ok := view.FindEvent(eventID)
	if !ok {
		return Event{}, Session{}, domain.ErrNotFound{Entity: EntityEvent, ID: eventID}
	}
	session, ok := view.FindSession(event.SessionID)
	if !ok {
		return Event{}, Session{}, domain.ErrNotFound{Entity: EntitySession, ID: event.SessionID}
	}
	return event, session, nil
}

// resolveDuplicates runs the duplicate policy for candidate. It returns false
// when the write must be skipped, together with the record standing in for
// the candidate.
func (s *Service) resolveDuplicates(tx domain.Transaction, req Request, candidate DuplicateCandidate, out *outcome) (string, bool, error) {
	matches := candidate.Matches(tx)
	resolution, err := s.resolver.Resolve(req.policy(), candidate.Entity(), matches)
	if err != nil {
		return "", false, err
	}
	switch resolution {
	case SilentAccept:
		out.duplicates, out.matched = domain.DuplicatesKeptOriginals, matches
		return matches[0], false, nil
	case ReplaceOriginals:
		for _, id := range matches {
			if err := s.remove(tx, candidate.Entity(), id); err != nil {
				return "", false, err
			}
		}
		out.duplicates, out.matched = domain.DuplicatesReplaced, matches
	case Proceed:
		if len(matches) > 0 {
			out.duplicates, out.matched = domain.DuplicatesKeptBoth, matches
		}
	}
	return "", true, nil
}

// removers deletes a record of each duplicate-checked entity while keeping
// seeding and rosters consistent.
var removers = map[EntityType]func(*Service, domain.Transaction, string) error{
	EntityTeam:            (*Service).removeTeam,
	EntitySwimmer:         (*Service).removeSwimmer,
	EntityIndividualEntry: (*Service).removeIndividualEntry,
	EntityRelayEntry:      (*Service).removeRelayEntry,
}

func (s *Service) remove(tx domain.Transaction, entity EntityType, id string) error {
	fn, ok := removers[entity]
	if !ok {
		return domain.IntegrityError{Op: "remove duplicate", Err: errors.New("no remover for " + string(entity))}
	}
	return fn(s, tx, id)
}
