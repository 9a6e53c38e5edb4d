package txn

import (
	"DaemonDB/storage_engine/lockmgr"
	"DaemonDB/types"
	"testing"
)

// fakeHeap and fakeIndex record every undo callback they receive, in call
// order, so a test can assert abort replayed the right reversal for the
// right row without needing a real heap or B+tree underneath.
type fakeHeap struct {
	deletes  []types.Rid
	inserts  map[types.Rid][]byte
	restores map[types.Rid][]byte
}

func newFakeHeap() *fakeHeap {
	return &fakeHeap{inserts: make(map[types.Rid][]byte), restores: make(map[types.Rid][]byte)}
}

func (f *fakeHeap) DeleteRowAt(fileID uint32, rid types.Rid) error {
	f.deletes = append(f.deletes, rid)
	return nil
}
func (f *fakeHeap) InsertRowAt(fileID uint32, rid types.Rid, rowData []byte) error {
	f.inserts[rid] = rowData
	return nil
}
func (f *fakeHeap) RestoreRow(fileID uint32, rid types.Rid, rowData []byte) error {
	f.restores[rid] = rowData
	return nil
}

type fakeIndex struct {
	deleted  []string
	inserted []string
}

func (f *fakeIndex) DeleteEntry(table, indexName string, key []byte) error {
	f.deleted = append(f.deleted, string(key))
	return nil
}
func (f *fakeIndex) InsertEntryUndo(table, indexName string, key []byte, rid types.Rid) error {
	f.inserted = append(f.inserted, string(key))
	return nil
}

func newTestManager() (*TxnManager, *fakeHeap, *fakeIndex) {
	heap := newFakeHeap()
	index := &fakeIndex{}
	return NewTxnManager(lockmgr.NewLockManager(), heap, index), heap, index
}

func TestBeginStartsInGrowingState(t *testing.T) {
	tm, _, _ := newTestManager()
	tx := tm.Begin()
	if tx.State != Growing {
		t.Fatalf("want Growing, got %s", tx.State)
	}
	if !tm.IsActive(tx.ID) {
		t.Fatalf("want newly begun transaction to be active")
	}
}

func TestCommitReleasesLocksAndDropsUndoList(t *testing.T) {
	tm, _, _ := newTestManager()
	tx := tm.Begin()

	if err := tm.LockIntentionExclusive(tx, 1); err != nil {
		t.Fatalf("LockIntentionExclusive: %v", err)
	}
	tx.RecordInsert("t", 1, types.Rid{PageNo: 0, SlotNo: 0}, nil)

	if err := tm.Commit(tx.ID); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tx.State != Committed {
		t.Fatalf("want Committed, got %s", tx.State)
	}
	if len(tx.UndoList) != 0 {
		t.Fatalf("want undo list dropped on commit, got %d entries", len(tx.UndoList))
	}
	if tm.IsActive(tx.ID) {
		t.Fatalf("want committed transaction no longer active")
	}
	if tm.lockMgr.GroupModeOf(lockmgr.NewTableLock(1)) != lockmgr.NonLock {
		t.Fatalf("want table lock released after commit")
	}
}

func TestAbortReplaysUndoListInLIFOOrder(t *testing.T) {
	tm, heap, index := newTestManager()
	tx := tm.Begin()

	ridA := types.Rid{PageNo: 1, SlotNo: 0}
	ridB := types.Rid{PageNo: 1, SlotNo: 1}

	if err := tm.LockIntentionExclusive(tx, 1); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := tm.LockExclusiveRecord(tx, 1, 1, 0); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := tm.LockExclusiveRecord(tx, 1, 1, 1); err != nil {
		t.Fatalf("lock: %v", err)
	}

	tx.RecordInsert("t", 1, ridA, []IndexTouch{{IndexName: "idx", NewKey: []byte("a"), Rid: ridA}})
	tx.RecordDelete("t", 1, ridB, []byte("before-b"), []IndexTouch{{IndexName: "idx", OldKey: []byte("b"), Rid: ridB}})

	if err := tm.Abort(tx.ID); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	if tx.State != Aborted {
		t.Fatalf("want Aborted, got %s", tx.State)
	}
	if len(heap.deletes) != 1 || heap.deletes[0] != ridA {
		t.Fatalf("want insert at %v undone by a heap delete, got %v", ridA, heap.deletes)
	}
	if got := heap.inserts[ridB]; string(got) != "before-b" {
		t.Fatalf("want delete at %v undone by reinserting the before image, got %q", ridB, got)
	}
	if len(index.deleted) != 1 || index.deleted[0] != "a" {
		t.Fatalf("want the insert's new index key removed on undo, got %v", index.deleted)
	}
	if len(index.inserted) != 1 || index.inserted[0] != "b" {
		t.Fatalf("want the delete's old index key restored on undo, got %v", index.inserted)
	}
	if tm.lockMgr.GroupModeOf(lockmgr.NewTableLock(1)) != lockmgr.NonLock {
		t.Fatalf("want locks released after abort")
	}
}

func TestCommitTwiceFails(t *testing.T) {
	tm, _, _ := newTestManager()
	tx := tm.Begin()
	if err := tm.Commit(tx.ID); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := tm.Commit(tx.ID); err == nil {
		t.Fatalf("want second commit on the same id to fail")
	}
}
