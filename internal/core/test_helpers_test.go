package core

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"swimeeter/pkg/domain"
)

const hostID = "host-1"

var (
	host     = RequestFor(domain.Caller{HostID: hostID})
	intruder = RequestFor(domain.Caller{HostID: "someone-else"})
	nobody   = RequestFor(domain.Anonymous())
	fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
)

func intPtr(v int) *int { return &v }

// meetFixture is a private meet with one session holding an open 100 free
// and a two-leg medley relay, plus one team of three swimmers.
type meetFixture struct {
	t        *testing.T
	ctx      context.Context
	svc      *Service
	meet     Meet
	session  Session
	free     Event
	relay    Event
	team     Team
	swimmers []Swimmer
}

func newFixture(t *testing.T, opts ...Option) *meetFixture {
	t.Helper()
	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return fixedNow }))}, opts...)
	f := &meetFixture{t: t, ctx: context.Background(), svc: NewInMemoryService(nil, opts...)}
	var err error
	f.meet, _, err = f.svc.CreateMeet(f.ctx, host, Meet{Name: "Summer Open", Lanes: 6, SideLength: 25, MeasureUnit: domain.UnitMeters})
	f.must(err)
	f.session, _, err = f.svc.CreateSession(f.ctx, host, Session{
		MeetID:    f.meet.ID,
		Name:      "Morning",
		BeginTime: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	f.must(err)
	f.free = f.addEvent(Event{Stroke: domain.StrokeFreestyle, Distance: 100, SwimmersPerEntry: 1, CompetingGender: domain.GenderOpen}, End())
	f.relay = f.addEvent(Event{Stroke: domain.StrokeMedley, Distance: 200, IsRelay: true, SwimmersPerEntry: 2, CompetingGender: domain.GenderFemale}, End())
	f.team, _, err = f.svc.CreateTeam(f.ctx, host, Team{MeetID: f.meet.ID, Name: "Sharks", Acronym: "SHK"})
	f.must(err)
	for i, name := range []string{"Ada", "Bea", "Cy"} {
		swimmer, _, err := f.svc.CreateSwimmer(f.ctx, host, Swimmer{
			MeetID:    f.meet.ID,
			TeamID:    f.team.ID,
			FirstName: name,
			LastName:  "Lane",
			Age:       12 + i,
			Gender:    domain.GenderFemale,
		})
		f.must(err)
		f.swimmers = append(f.swimmers, swimmer)
	}
	return f
}

func (f *meetFixture) must(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("fixture: %v", err)
	}
}

func (f *meetFixture) addEvent(e Event, pos Position) Event {
	f.t.Helper()
	e.SessionID = f.session.ID
	created, _, err := f.svc.CreateEvent(f.ctx, host, e, pos)
	f.must(err)
	return created
}

func (f *meetFixture) enter(swimmer Swimmer, seed int) IndividualEntry {
	f.t.Helper()
	entry, _, err := f.svc.CreateIndividualEntry(f.ctx, host, IndividualEntry{EventID: f.free.ID, SwimmerID: swimmer.ID, SeedTime: seed})
	f.must(err)
	return entry
}

func (f *meetFixture) enterRelay(legs ...RelayLeg) Relay {
	f.t.Helper()
	relay, _, err := f.svc.CreateRelayEntry(f.ctx, host, RelaySubmission{EventID: f.relay.ID, Legs: legs})
	f.must(err)
	return relay
}

// seedAll places every entry of the event in heat 1, one lane each.
func (f *meetFixture) seedAll(eventID string) Event {
	f.t.Helper()
	seeding := Seeding{TotalHeats: 1, Placements: map[string]Placement{}}
	lane := 0
	f.view(func(view domain.TransactionView) {
		for _, e := range view.IndividualEntriesByEvent(eventID) {
			lane++
			seeding.Placements[e.ID] = Placement{HeatNumber: intPtr(1), LaneNumber: intPtr(lane)}
		}
		for _, e := range view.RelayEntriesByEvent(eventID) {
			lane++
			seeding.Placements[e.ID] = Placement{HeatNumber: intPtr(1), LaneNumber: intPtr(lane)}
		}
	})
	event, _, err := f.svc.ApplySeeding(f.ctx, host, eventID, seeding)
	f.must(err)
	return event
}

func (f *meetFixture) view(fn func(domain.TransactionView)) {
	f.t.Helper()
	f.must(f.svc.Store().View(f.ctx, func(view domain.TransactionView) error {
		fn(view)
		return nil
	}))
}

func (f *meetFixture) event(id string) Event {
	f.t.Helper()
	var event Event
	f.view(func(view domain.TransactionView) {
		var ok bool
		if event, ok = view.FindEvent(id); !ok {
			f.t.Fatalf("event %s missing", id)
		}
	})
	return event
}

func (f *meetFixture) orders() []int {
	f.t.Helper()
	var orders []int
	f.view(func(view domain.TransactionView) {
		for _, e := range view.EventsBySession(f.session.ID) {
			orders = append(orders, e.OrderInSession)
		}
	})
	sort.Ints(orders)
	return orders
}

// assertInvariants checks density, seeding consistency, relay sums and
// roster shape over the whole store.
func (f *meetFixture) assertInvariants() {
	f.t.Helper()
	res, err := f.svc.Audit(f.ctx)
	if err != nil {
		f.t.Fatalf("audit: %v", err)
	}
	if len(res.Violations) != 0 {
		f.t.Fatalf("invariants broken: %+v", res.Violations)
	}
}

func statusOf(err error) int { return domain.StatusCode(err) }

func reasonOf(t *testing.T, err error) domain.Reason {
	t.Helper()
	var validation domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	return validation.Reason
}

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct {
	calls []string
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) has(call string) bool {
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}
