package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLiteTwice(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "q.db")
	for i := 0; i < 2; i++ {
		h, err := Open(ctx, DriverSQLite, dsn)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if h.Stats().MaxOpenConnections != 1 {
			t.Fatalf("max open conns = %d", h.Stats().MaxOpenConnections)
		}
		var n int
		if err := h.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&n); err != nil {
			t.Fatal(err)
		}
		h.Close()
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("oracle"), ""); err == nil {
		t.Fatal("expected error")
	}
}
