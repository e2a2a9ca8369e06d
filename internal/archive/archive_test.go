package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"swimeeter/internal/blob"
	"swimeeter/internal/core"
	"swimeeter/pkg/domain"
)

var host = core.RequestFor(domain.Caller{HostID: "host-1"})

func exportedMeet(t *testing.T, name string) core.MeetExport {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(nil)
	meet, _, err := svc.CreateMeet(ctx, host, core.Meet{Name: name, Lanes: 8, SideLength: 50, MeasureUnit: domain.UnitMeters})
	if err != nil {
		t.Fatalf("create meet: %v", err)
	}
	team, _, err := svc.CreateTeam(ctx, host, core.Team{MeetID: meet.ID, Name: "Sharks", Acronym: "SHK"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, _, err := svc.CreateSwimmer(ctx, host, core.Swimmer{MeetID: meet.ID, TeamID: team.ID, FirstName: "Ada", LastName: "Lane", Age: 12, Gender: domain.GenderFemale}); err != nil {
		t.Fatalf("create swimmer: %v", err)
	}
	export, err := svc.ExportMeet(ctx, host.Caller, meet.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	return export
}

func tickingClock() func() time.Time {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestSaveListLoad(t *testing.T) {
	stores := map[string]blob.Store{"memory": blob.NewMemory(nil), "s3": blob.NewMockS3ForTests()}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := New(store, WithClock(tickingClock()))
			summer := exportedMeet(t, "Summer Open")
			autumn := exportedMeet(t, "Autumn Cup")

			first, err := a.Save(ctx, summer)
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if first.MeetID != summer.Meet.ID || first.Key != "meets/"+summer.Meet.ID+"/20240601T080100.000000000Z.json" || first.Size == 0 {
				t.Fatalf("unexpected entry %+v", first)
			}
			second, err := a.Save(ctx, summer)
			if err != nil {
				t.Fatalf("save again: %v", err)
			}
			if _, err := a.Save(ctx, autumn); err != nil {
				t.Fatalf("save autumn: %v", err)
			}

			entries, err := a.List(ctx, summer.Meet.ID)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(entries) != 2 || entries[0].Key != first.Key || entries[1].Key != second.Key {
				t.Fatalf("expected two summer snapshots oldest first, got %+v", entries)
			}
			all, err := a.List(ctx, "")
			if err != nil || len(all) != 3 {
				t.Fatalf("expected three snapshots, got %+v %v", all, err)
			}
			latest, err := a.Latest(ctx, summer.Meet.ID)
			if err != nil || latest.Key != second.Key {
				t.Fatalf("latest = %+v %v", latest, err)
			}

			loaded, err := a.Load(ctx, latest.Key)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(summer, loaded); diff != "" {
				t.Fatalf("snapshot (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissingSnapshots(t *testing.T) {
	ctx := context.Background()
	a := New(blob.NewMemory(nil))
	if _, err := a.Latest(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := a.Load(ctx, "meets/ghost/20240601T080000.000000000Z.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := a.Load(ctx, "other/key.json"); err == nil || !strings.Contains(err.Error(), "not a snapshot key") {
		t.Fatalf("expected key error, got %v", err)
	}
	if _, err := a.Link(ctx, "meets/ghost/x.json", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from link, got %v", err)
	}
	if _, err := a.Save(ctx, core.MeetExport{}); err == nil {
		t.Fatalf("expected error for export without meet id")
	}
	if _, err := a.Latest(ctx, ""); err == nil {
		t.Fatalf("expected meet id requirement")
	}
}

func TestListIgnoresForeignKeys(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory(nil)
	for _, key := range []string{"meets/m1/notes.txt", "meets/m1/nested/20240601T080000.000000000Z.json", "readme.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("{}"), blob.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	entries, err := New(store).List(ctx, "")
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no snapshots, got %+v %v", entries, err)
	}
}

func TestLink(t *testing.T) {
	ctx := context.Background()
	export := exportedMeet(t, "Summer Open")

	mem := New(blob.NewMemory(nil))
	entry, err := mem.Save(ctx, export)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := mem.Link(ctx, entry.Key, time.Minute); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("memory links are unsupported, got %v", err)
	}

	s3 := New(blob.NewMockS3ForTests())
	entry, err = s3.Save(ctx, export)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	url, err := s3.Link(ctx, entry.Key, 10*time.Minute)
	if err != nil || !strings.Contains(url, export.Meet.ID) || !strings.Contains(url, "X-Amz-Expires=600") {
		t.Fatalf("unexpected link %q %v", url, err)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	a := New(blob.NewMemory(nil), WithClock(tickingClock()))
	export := exportedMeet(t, "Summer Open")
	var keys []string
	for i := 0; i < 4; i++ {
		e, err := a.Save(ctx, export)
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		keys = append(keys, e.Key)
	}
	removed, err := a.Prune(ctx, export.Meet.ID, 1)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if diff := cmp.Diff(keys[:3], removed); diff != "" {
		t.Fatalf("removed (-want +got):\n%s", diff)
	}
	left, _ := a.List(ctx, export.Meet.ID)
	if len(left) != 1 || left[0].Key != keys[3] {
		t.Fatalf("expected newest snapshot kept, got %+v", left)
	}
	if _, err := a.Prune(ctx, "", 1); err == nil {
		t.Fatalf("expected meet id requirement")
	}
}
