package dedup

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestDedup(t *testing.T) (*Deduplicator, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	d, err := New("redis://"+mr.Addr(), "")
	if err != nil {
		mr.Close()
		t.Fatalf("New: %v", err)
	}
	return d, mr
}

func TestAlreadySentNewKey(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	if d.AlreadySent(ctx, "drift:5115:earnings") {
		t.Error("AlreadySent should return false for new key")
	}
}

func TestRecordAndAlreadySent(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	d.Record(ctx, "drift:5115:earnings", 0)

	if !d.AlreadySent(ctx, "drift:5115:earnings") {
		t.Error("AlreadySent should return true after Record")
	}
}

func TestClear(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	d.Record(ctx, "drift:1:earnings", 0)

	if !d.AlreadySent(ctx, "drift:1:earnings") {
		t.Fatal("should be sent after Record")
	}

	d.Clear(ctx, "drift:1:earnings")
	if d.AlreadySent(ctx, "drift:1:earnings") {
		t.Error("AlreadySent should return false after Clear")
	}
}

func TestClearByPattern(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer mr.Close()
	defer d.Close()

	ctx := context.Background()
	d.Record(ctx, "drift:1:earnings", 0)
	d.Record(ctx, "drift:1:equity", 0)
	d.Record(ctx, "drift:5115:earnings", 0)

	d.ClearByPattern(ctx, "drift:1:*")

	if d.AlreadySent(ctx, "drift:1:earnings") {
		t.Error("key drift:1:earnings should be cleared")
	}
	if d.AlreadySent(ctx, "drift:1:equity") {
		t.Error("key drift:1:equity should be cleared")
	}
	if !d.AlreadySent(ctx, "drift:5115:earnings") {
		t.Error("key drift:5115:earnings should NOT be cleared")
	}
}

func TestAlreadySentFailClosed(t *testing.T) {
	d, mr := setupTestDedup(t)
	defer d.Close()

	// Stop Redis to simulate failure
	mr.Close()

	ctx := context.Background()
	if !d.AlreadySent(ctx, "any:key") {
		t.Error("AlreadySent should return true (fail-closed) when Redis is down")
	}
}
