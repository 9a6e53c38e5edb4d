package indexfile

import (
	"DaemonDB/storage_engine/bufferpool"
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/types"
	"errors"
	"testing"
)

func newTestManager(t *testing.T) *IndexFileManager {
	t.Helper()
	disk := diskmanager.NewDiskManager()
	pool := bufferpool.NewBufferPool(32, disk)
	ifm, err := NewIndexFileManager(t.TempDir(), disk, pool)
	if err != nil {
		t.Fatalf("NewIndexFileManager: %v", err)
	}
	if _, err := ifm.GetOrCreateIndex("orders", "id_idx", 1); err != nil {
		t.Fatalf("GetOrCreateIndex: %v", err)
	}
	return ifm
}

func key(n int32) []byte {
	b := make([]byte, 4)
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
	return b
}

func TestInsertEntryThenLookupRoundTrips(t *testing.T) {
	ifm := newTestManager(t)
	rid := types.Rid{PageNo: 3, SlotNo: 7}

	dup, err := ifm.InsertEntry("orders", "id_idx", key(42), rid)
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}
	if dup {
		t.Fatalf("want dup=false on first insert")
	}

	got, err := ifm.LookupEntry("orders", "id_idx", key(42))
	if err != nil {
		t.Fatalf("LookupEntry: %v", err)
	}
	if got != rid {
		t.Fatalf("want %v, got %v", rid, got)
	}
}

func TestInsertEntryReportsDuplicateWithoutOverwriting(t *testing.T) {
	ifm := newTestManager(t)
	first := types.Rid{PageNo: 1, SlotNo: 0}
	second := types.Rid{PageNo: 9, SlotNo: 9}

	if _, err := ifm.InsertEntry("orders", "id_idx", key(1), first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup, err := ifm.InsertEntry("orders", "id_idx", key(1), second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if !dup {
		t.Fatalf("want dup=true on repeated key")
	}

	got, err := ifm.LookupEntry("orders", "id_idx", key(1))
	if err != nil {
		t.Fatalf("LookupEntry: %v", err)
	}
	if got != first {
		t.Fatalf("want duplicate insert to leave the original rid %v in place, got %v", first, got)
	}
}

func TestDeleteEntryOnMissingKeyIsNoOp(t *testing.T) {
	ifm := newTestManager(t)
	if err := ifm.DeleteEntry("orders", "id_idx", key(99)); err != nil {
		t.Fatalf("want DeleteEntry on an absent key to succeed as a no-op, got %v", err)
	}
}

func TestDeleteEntryThenLookupReturnsNotFound(t *testing.T) {
	ifm := newTestManager(t)
	rid := types.Rid{PageNo: 2, SlotNo: 1}
	if _, err := ifm.InsertEntry("orders", "id_idx", key(5), rid); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := ifm.DeleteEntry("orders", "id_idx", key(5)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ifm.LookupEntry("orders", "id_idx", key(5)); !errors.Is(err, types.ErrIndexEntryNotFound) {
		t.Fatalf("want ErrIndexEntryNotFound, got %v", err)
	}
}

func TestLookupOnUnopenedIndexReturnsErrIndexNotFound(t *testing.T) {
	ifm := newTestManager(t)
	if _, err := ifm.LookupEntry("orders", "never_opened", key(1)); !errors.Is(err, types.ErrIndexNotFound) {
		t.Fatalf("want ErrIndexNotFound, got %v", err)
	}
}
