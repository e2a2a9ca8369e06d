package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"swimeeter/pkg/domain"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	var meetID string
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		meet, err := tx.CreateMeet(domain.Meet{Name: "Persist", Lanes: 8})
		if err != nil {
			return err
		}
		meetID = meet.ID
		session, err := tx.CreateSession(domain.Session{MeetID: meet.ID, Name: "Finals"})
		if err != nil {
			return err
		}
		_, err = tx.CreateEvent(domain.Event{SessionID: session.ID, Stroke: domain.StrokeButterfly, Distance: 50, OrderInSession: 1})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	if _, ok := reloaded.GetMeet(meetID); !ok {
		t.Fatalf("expected meet to survive reload")
	}
	_ = reloaded.View(context.Background(), func(view domain.TransactionView) error {
		sessions := view.SessionsByMeet(meetID)
		if len(sessions) != 1 || len(view.EventsBySession(sessions[0].ID)) != 1 {
			t.Fatalf("expected session and event to survive reload")
		}
		return nil
	})
}

func TestSQLiteStoreWritesEveryBucket(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateMeet(domain.Meet{Name: "Buckets"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count buckets: %v", err)
	}
	if count != 8 {
		t.Fatalf("expected 8 buckets, got %d", count)
	}
}

func TestSQLiteStoreFailedPersistRollsBack(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), domain.NewRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if err := store.DB().Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateMeet(domain.Meet{Name: "Lost"})
		return err
	})
	var integrity domain.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if len(store.ListMeets()) != 0 {
		t.Fatalf("expected in-memory state to stay unchanged when persistence fails")
	}
}

func TestClassifyMarksPlainErrorsPermanent(t *testing.T) {
	err := classify("upsert", errors.New("boom"))
	var integrity domain.IntegrityError
	if !errors.As(err, &integrity) || integrity.Retryable {
		t.Fatalf("expected non-retryable integrity error, got %#v", err)
	}
}
