package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBUpsertsAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	upsert := "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, payload := range []string{"{}", `{"a":1}`} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "meets"}, {Value: []byte(payload)}}); err != nil {
			t.Fatalf("ExecContext upsert: %v", err)
		}
	}
	if len(conn.Tables["state"]) != 1 {
		t.Fatalf("expected upsert to replace the bucket row, got %v", conn.Tables["state"])
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "meets" || string(dest[1].([]byte)) != `{"a":1}` {
		t.Fatalf("unexpected row values: %v", dest)
	}
}

func TestStubDBFailureSwitches(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.FailPing = true
	if err := conn.Ping(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn.FailBegin = true
	if _, err := conn.BeginTx(ctx, driver.TxOptions{}); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailTables = map[string]bool{"state": true}
	if _, err := conn.QueryContext(ctx, "SELECT bucket FROM state", nil); err == nil {
		t.Fatalf("expected query failure")
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO state(bucket) VALUES($1)", []driver.NamedValue{{Value: "x"}}); err == nil {
		t.Fatalf("expected insert failure")
	}
	if _, err := conn.ExecContext(ctx, "CREATE TABLE other (id TEXT)", nil); err != nil {
		t.Fatalf("expected non-insert statements to succeed: %v", err)
	}
}
