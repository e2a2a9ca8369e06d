package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"swimeeter/pkg/domain"
)

func TestDuplicateResolverPolicies(t *testing.T) {
	matches := []string{"existing"}
	cases := []struct {
		name    string
		policy  DuplicatePolicy
		entity  EntityType
		matches []string
		want    Resolution
		status  int
	}{
		{"no match proceeds", domain.PolicyUnhandled, EntityTeam, nil, Proceed, domain.StatusOK},
		{"empty policy is unhandled", "", EntityTeam, matches, Reject, domain.StatusConflict},
		{"unhandled conflicts", domain.PolicyUnhandled, EntitySwimmer, matches, Reject, domain.StatusConflict},
		{"keep new replaces", domain.PolicyKeepNew, EntityTeam, matches, ReplaceOriginals, domain.StatusOK},
		{"keep originals accepts", domain.PolicyKeepOriginals, EntityIndividualEntry, matches, SilentAccept, domain.StatusOK},
		{"keep both on team", domain.PolicyKeepBoth, EntityTeam, matches, Proceed, domain.StatusOK},
		{"keep both on individual entry", domain.PolicyKeepBoth, EntityIndividualEntry, matches, Reject, domain.StatusBadRequest},
		{"keep both on relay entry", domain.PolicyKeepBoth, EntityRelayEntry, matches, Reject, domain.StatusBadRequest},
		{"unknown policy", "keep_some", EntityTeam, nil, Reject, domain.StatusBadRequest},
	}
	var r DuplicateResolver
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Resolve(tc.policy, tc.entity, tc.matches)
			if got != tc.want {
				t.Fatalf("resolution = %s, want %s", got, tc.want)
			}
			if status := statusOf(err); status != tc.status {
				t.Fatalf("status = %d, want %d (err %v)", status, tc.status, err)
			}
		})
	}
}

func TestDuplicateConflictCarriesMatches(t *testing.T) {
	_, err := DuplicateResolver{}.Resolve(domain.PolicyUnhandled, EntityTeam, []string{"a", "b"})
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, conflict.IDs); diff != "" {
		t.Fatalf("conflict ids (-want +got):\n%s", diff)
	}
}

func TestCandidatesMatchOnKeys(t *testing.T) {
	f := newFixture(t)
	entry := f.enter(f.swimmers[0], 7000)
	relay := f.enterRelay(RelayLeg{SwimmerID: f.swimmers[0].ID, OrderInRelay: 1, Split: 3000}, RelayLeg{SwimmerID: f.swimmers[1].ID, OrderInRelay: 2, Split: 3100})

	f.view(func(view domain.TransactionView) {
		cases := []struct {
			name      string
			candidate DuplicateCandidate
			want      []string
		}{
			{"same team", TeamCandidate{Team: Team{MeetID: f.meet.ID, Name: "Sharks", Acronym: "SHK"}}, []string{f.team.ID}},
			{"other acronym", TeamCandidate{Team: Team{MeetID: f.meet.ID, Name: "Sharks", Acronym: "SH"}}, nil},
			{"team excludes itself", TeamCandidate{Team: f.team}, nil},
			{"same swimmer", SwimmerCandidate{Swimmer: Swimmer{MeetID: f.meet.ID, FirstName: "Ada", LastName: "Lane", Age: 12, Gender: domain.GenderFemale}}, []string{f.swimmers[0].ID}},
			{"swimmer differing in age", SwimmerCandidate{Swimmer: Swimmer{MeetID: f.meet.ID, FirstName: "Ada", LastName: "Lane", Age: 13, Gender: domain.GenderFemale}}, nil},
			{"same individual entry", IndividualEntryCandidate{Entry: IndividualEntry{EventID: f.free.ID, SwimmerID: f.swimmers[0].ID, SeedTime: 1}}, []string{entry.ID}},
			{"roster in other order", RelayEntryCandidate{EventID: f.relay.ID, SwimmerIDs: []string{f.swimmers[1].ID, f.swimmers[0].ID}}, []string{relay.Entry.ID}},
			{"roster sharing one swimmer", RelayEntryCandidate{EventID: f.relay.ID, SwimmerIDs: []string{f.swimmers[0].ID, f.swimmers[2].ID}}, nil},
			{"relay excludes itself", RelayEntryCandidate{ID: relay.Entry.ID, EventID: f.relay.ID, SwimmerIDs: []string{f.swimmers[0].ID, f.swimmers[1].ID}}, nil},
		}
		for _, tc := range cases {
			if diff := cmp.Diff(tc.want, tc.candidate.Matches(view)); diff != "" {
				t.Errorf("%s: matches (-want +got):\n%s", tc.name, diff)
			}
		}
	})
}
