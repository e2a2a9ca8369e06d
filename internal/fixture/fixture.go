// Package fixture describes a whole meet as a YAML document and loads it
// through the core service, so every record passes the same validation,
// duplicate handling and invariant rules as interactive writes.
//
// Records refer to each other by fixture-local refs; the loader maps refs to
// the IDs the store assigns.
package fixture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"swimeeter/internal/core"
	"swimeeter/pkg/domain"
)

// Fixture is one meet with its sessions, events, teams, swimmers and entries.
type Fixture struct {
	Meet     MeetSpec      `yaml:"meet"`
	Sessions []SessionSpec `yaml:"sessions"`
	Teams    []TeamSpec    `yaml:"teams"`
	Entries  []EntrySpec   `yaml:"entries,omitempty"`
	Relays   []RelaySpec   `yaml:"relays,omitempty"`
}

type MeetSpec struct {
	Name        string             `yaml:"name"`
	Lanes       int                `yaml:"lanes"`
	SideLength  int                `yaml:"side_length"`
	MeasureUnit domain.MeasureUnit `yaml:"measure_unit"`
	Public      bool               `yaml:"public,omitempty"`
}

type SessionSpec struct {
	Name   string      `yaml:"name"`
	Begin  time.Time   `yaml:"begin"`
	End    time.Time   `yaml:"end"`
	Events []EventSpec `yaml:"events"`
}

// EventSpec is an event in session order. A positive TotalHeats seeds the
// event from the heat and lane of its entries once they are all loaded.
type EventSpec struct {
	Ref              string        `yaml:"ref,omitempty"`
	Stroke           domain.Stroke `yaml:"stroke"`
	Distance         int           `yaml:"distance"`
	Relay            bool          `yaml:"relay,omitempty"`
	SwimmersPerEntry int           `yaml:"swimmers_per_entry,omitempty"`
	Gender           domain.Gender `yaml:"gender"`
	MinAge           *int          `yaml:"min_age,omitempty"`
	MaxAge           *int          `yaml:"max_age,omitempty"`
	TotalHeats       int           `yaml:"total_heats,omitempty"`
}

type TeamSpec struct {
	Ref      string        `yaml:"ref,omitempty"`
	Name     string        `yaml:"name"`
	Acronym  string        `yaml:"acronym,omitempty"`
	Swimmers []SwimmerSpec `yaml:"swimmers,omitempty"`
}

type SwimmerSpec struct {
	Ref            string        `yaml:"ref,omitempty"`
	FirstName      string        `yaml:"first_name"`
	LastName       string        `yaml:"last_name"`
	Prefix         string        `yaml:"prefix,omitempty"`
	Suffix         string        `yaml:"suffix,omitempty"`
	MiddleInitials string        `yaml:"middle_initials,omitempty"`
	Age            int           `yaml:"age"`
	Gender         domain.Gender `yaml:"gender"`
}

// EntrySpec enters a swimmer in an individual event. SeedTime is in
// hundredths of a second.
type EntrySpec struct {
	Event    string `yaml:"event"`
	Swimmer  string `yaml:"swimmer"`
	SeedTime int    `yaml:"seed_time"`
	Heat     int    `yaml:"heat,omitempty"`
	Lane     int    `yaml:"lane,omitempty"`
}

// RelaySpec enters a relay; leg swimmers are refs.
type RelaySpec struct {
	Event string          `yaml:"event"`
	Legs  []core.RelayLeg `yaml:"legs"`
	Heat  int             `yaml:"heat,omitempty"`
	Lane  int             `yaml:"lane,omitempty"`
}

// Parse decodes a fixture and checks that its refs resolve. Unknown keys are
// rejected.
func Parse(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Check(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// ParseFile reads and parses the fixture at path.
func ParseFile(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Marshal renders f as YAML.
func Marshal(f Fixture) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Check verifies refs are unique and that entries and relays point at known
// events and swimmers of the right kind. Field values and duplicate records are
// left to the service.
func (f Fixture) Check() error {
	events := map[string]bool{} // ref -> relay
	swimmers := map[string]struct{}{}
	seen := map[string]struct{}{}
	claim := func(kind, ref string) error {
		if ref == "" {
			return nil
		}
		if _, dup := seen[ref]; dup {
			return fmt.Errorf("%s ref %q is used twice", kind, ref)
		}
		seen[ref] = struct{}{}
		return nil
	}
	for _, session := range f.Sessions {
		for _, event := range session.Events {
			if err := claim("event", event.Ref); err != nil {
				return err
			}
			if event.Ref != "" {
				events[event.Ref] = event.Relay
			} else if event.TotalHeats > 0 {
				return fmt.Errorf("seeded event %s %d %s needs a ref", session.Name, event.Distance, event.Stroke)
			}
		}
	}
	for _, team := range f.Teams {
		if err := claim("team", team.Ref); err != nil {
			return err
		}
		for _, swimmer := range team.Swimmers {
			if err := claim("swimmer", swimmer.Ref); err != nil {
				return err
			}
			if swimmer.Ref != "" {
				swimmers[swimmer.Ref] = struct{}{}
			}
		}
	}
	for i, entry := range f.Entries {
		relay, ok := events[entry.Event]
		if !ok {
			return fmt.Errorf("entry %d: unknown event %q", i+1, entry.Event)
		}
		if relay {
			return fmt.Errorf("entry %d: event %q is a relay", i+1, entry.Event)
		}
		if _, ok := swimmers[entry.Swimmer]; !ok {
			return fmt.Errorf("entry %d: unknown swimmer %q", i+1, entry.Swimmer)
		}
	}
	for i, relay := range f.Relays {
		isRelay, ok := events[relay.Event]
		if !ok {
			return fmt.Errorf("relay %d: unknown event %q", i+1, relay.Event)
		}
		if !isRelay {
			return fmt.Errorf("relay %d: event %q is not a relay", i+1, relay.Event)
		}
		for _, leg := range relay.Legs {
			if _, ok := swimmers[leg.SwimmerID]; !ok {
				return fmt.Errorf("relay %d: unknown swimmer %q", i+1, leg.SwimmerID)
			}
		}
	}
	return nil
}

// FromExport converts an exported meet into a fixture. Record IDs become refs,
// and seeded events keep their heats and lanes.
func FromExport(export core.MeetExport) Fixture {
	f := Fixture{Meet: MeetSpec{
		Name:        export.Meet.Name,
		Lanes:       export.Meet.Lanes,
		SideLength:  export.Meet.SideLength,
		MeasureUnit: export.Meet.MeasureUnit,
		Public:      export.Meet.IsPublic,
	}}
	for _, se := range export.Sessions {
		spec := SessionSpec{Name: se.Session.Name, Begin: se.Session.BeginTime, End: se.Session.EndTime}
		for _, ee := range se.Events {
			ev := ee.Event
			es := EventSpec{
				Ref:              ev.ID,
				Stroke:           ev.Stroke,
				Distance:         ev.Distance,
				Relay:            ev.IsRelay,
				SwimmersPerEntry: ev.SwimmersPerEntry,
				Gender:           ev.CompetingGender,
				MinAge:           ev.CompetingMinAge,
				MaxAge:           ev.CompetingMaxAge,
			}
			if ev.TotalHeats != nil {
				es.TotalHeats = *ev.TotalHeats
			}
			spec.Events = append(spec.Events, es)
			for _, entry := range ee.IndividualEntries {
				heat, lane := placement(entry.Placement)
				f.Entries = append(f.Entries, EntrySpec{Event: ev.ID, Swimmer: entry.SwimmerID, SeedTime: entry.SeedTime, Heat: heat, Lane: lane})
			}
			for _, relay := range ee.Relays {
				heat, lane := placement(relay.Entry.Placement)
				rs := RelaySpec{Event: ev.ID, Heat: heat, Lane: lane}
				for _, leg := range relay.Roster {
					rs.Legs = append(rs.Legs, core.RelayLeg{SwimmerID: leg.SwimmerID, OrderInRelay: leg.OrderInRelay, Split: leg.SeedRelaySplit})
				}
				f.Relays = append(f.Relays, rs)
			}
		}
		f.Sessions = append(f.Sessions, spec)
	}
	for _, te := range export.Teams {
		ts := TeamSpec{Ref: te.Team.ID, Name: te.Team.Name, Acronym: te.Team.Acronym}
		for _, s := range te.Swimmers {
			ts.Swimmers = append(ts.Swimmers, SwimmerSpec{
				Ref:            s.ID,
				FirstName:      s.FirstName,
				LastName:       s.LastName,
				Prefix:         s.Prefix,
				Suffix:         s.Suffix,
				MiddleInitials: s.MiddleInitials,
				Age:            s.Age,
				Gender:         s.Gender,
			})
		}
		f.Teams = append(f.Teams, ts)
	}
	return f
}

func placement(p domain.Placement) (heat, lane int) {
	if !p.Placed() {
		return 0, 0
	}
	return *p.HeatNumber, *p.LaneNumber
}
