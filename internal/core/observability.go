package core

import (
	"context"
	"log/slog"
	"time"
)

// Clock supplies timestamps for audit entries and operation timing.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Logger is the structured logging surface the service writes to. Arguments
// are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewSlogLogger adapts a slog.Logger to Logger. A nil logger uses slog.Default.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return l
}

// AuditStatus classifies the outcome recorded in an AuditEntry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one completed mutating service operation.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Actor     string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MetricsRecorder observes operation latency and outcome.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type auditTarget struct {
	entity EntityType
	action Action
}

// auditOperations lists the operations that produce audit entries. Reads are
// traced and measured but not audited.
var auditOperations = map[string]auditTarget{
	"create_meet":             {EntityMeet, ActionCreate},
	"update_meet":             {EntityMeet, ActionUpdate},
	"delete_meet":             {EntityMeet, ActionDelete},
	"create_session":          {EntitySession, ActionCreate},
	"update_session":          {EntitySession, ActionUpdate},
	"delete_session":          {EntitySession, ActionDelete},
	"create_event":            {EntityEvent, ActionCreate},
	"update_event":            {EntityEvent, ActionUpdate},
	"move_event":              {EntityEvent, ActionUpdate},
	"delete_event":            {EntityEvent, ActionDelete},
	"apply_seeding":           {EntityEvent, ActionUpdate},
	"clear_seeding":           {EntityEvent, ActionUpdate},
	"create_team":             {EntityTeam, ActionCreate},
	"update_team":             {EntityTeam, ActionUpdate},
	"delete_team":             {EntityTeam, ActionDelete},
	"create_swimmer":          {EntitySwimmer, ActionCreate},
	"update_swimmer":          {EntitySwimmer, ActionUpdate},
	"delete_swimmer":          {EntitySwimmer, ActionDelete},
	"create_individual_entry": {EntityIndividualEntry, ActionCreate},
	"update_individual_entry": {EntityIndividualEntry, ActionUpdate},
	"delete_individual_entry": {EntityIndividualEntry, ActionDelete},
	"create_relay_entry":      {EntityRelayEntry, ActionCreate},
	"update_relay_entry":      {EntityRelayEntry, ActionUpdate},
	"delete_relay_entry":      {EntityRelayEntry, ActionDelete},
}

func (s *Service) recordAudit(ctx context.Context, op, entityID, actor string, err error, duration time.Duration) {
	target, ok := auditOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    target.entity,
		Action:    target.action,
		EntityID:  entityID,
		Actor:     actor,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
