package txn

import (
	"fmt"
	"sync/atomic"

	"DaemonDB/storage_engine/lockmgr"
)

/*
Package txn is the transaction context of the spec's concurrency model:
begin/commit/abort coordinated with a multi-granularity lock manager and a
LIFO in-memory undo list. There is no durable write-ahead log here — commit
just drops the undo list and releases locks; abort replays the undo list
against the heap/index layers, then releases locks.
*/

func NewTxnManager(lockMgr *lockmgr.LockManager, heap HeapUndoer, index IndexUndoer) *TxnManager {
	return &TxnManager{
		nextID:     1,
		activeTxns: make(map[uint64]*Transaction),
		lockMgr:    lockMgr,
		heap:       heap,
		index:      index,
	}
}

// Begin allocates a new transaction in state GROWING and registers it in
// the active set.
func (tm *TxnManager) Begin() *Transaction {
	txnID := atomic.AddUint64(&tm.nextID, 1) - 1
	ts := atomic.AddUint64(&tm.nextTS, 1) - 1

	t := &Transaction{
		ID:      txnID,
		State:   Growing,
		StartTS: ts,
	}

	tm.mu.Lock()
	tm.activeTxns[txnID] = t
	tm.mu.Unlock()

	return t
}

// Commit drops the undo list (no replay needed), releases every held lock,
// and moves the transaction to COMMITTED. Strict 2PL: locks are held all the
// way to this point, never released mid-transaction.
func (tm *TxnManager) Commit(txnID uint64) error {
	tm.mu.Lock()
	t, ok := tm.activeTxns[txnID]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("commit: unknown transaction %d", txnID)
	}
	delete(tm.activeTxns, txnID)
	tm.mu.Unlock()

	if t.State == Committed || t.State == Aborted {
		return fmt.Errorf("commit: transaction %d already %s", txnID, t.State)
	}

	t.State = Shrinking
	tm.lockMgr.ReleaseAll(t.ID, t.LockSet)
	t.LockSet = nil
	t.UndoList = nil
	t.State = Committed
	return nil
}

// Abort replays UndoList in LIFO order against the heap/index undo
// callbacks, then releases every held lock and moves the transaction to
// ABORTED. Each WriteRec reverses its index touches before its heap
// mutation, mirroring the forward order (heap write, then index write) in
// reverse.
func (tm *TxnManager) Abort(txnID uint64) error {
	tm.mu.Lock()
	t, ok := tm.activeTxns[txnID]
	if !ok {
		tm.mu.Unlock()
		return fmt.Errorf("abort: unknown transaction %d", txnID)
	}
	delete(tm.activeTxns, txnID)
	tm.mu.Unlock()

	if t.State == Committed || t.State == Aborted {
		return fmt.Errorf("abort: transaction %d already %s", txnID, t.State)
	}

	t.State = Shrinking
	for i := len(t.UndoList) - 1; i >= 0; i-- {
		tm.undo(t.UndoList[i])
	}
	t.UndoList = nil

	tm.lockMgr.ReleaseAll(t.ID, t.LockSet)
	t.LockSet = nil
	t.State = Aborted
	return nil
}

func (tm *TxnManager) undo(rec WriteRec) {
	for _, touch := range rec.IndexTouches {
		if touch.NewKey != nil {
			tm.index.DeleteEntry(rec.Table, touch.IndexName, touch.NewKey)
		}
		if touch.OldKey != nil {
			tm.index.InsertEntryUndo(rec.Table, touch.IndexName, touch.OldKey, touch.Rid)
		}
	}

	switch rec.Kind {
	case WriteInsert:
		tm.heap.DeleteRowAt(rec.FileID, rec.Rid)
	case WriteDelete:
		tm.heap.InsertRowAt(rec.FileID, rec.Rid, rec.BeforeImage)
	case WriteUpdate:
		tm.heap.RestoreRow(rec.FileID, rec.Rid, rec.BeforeImage)
	}
}

// GetTransaction returns the transaction with the given ID, or nil if it is
// not active.
func (tm *TxnManager) GetTransaction(txnID uint64) *Transaction {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.activeTxns[txnID]
}

// IsActive reports whether txnID is currently in the active set.
func (tm *TxnManager) IsActive(txnID uint64) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	_, ok := tm.activeTxns[txnID]
	return ok
}

// ActiveTransactions returns a snapshot of every currently active
// transaction, used by callers that need to enumerate in-flight work.
func (tm *TxnManager) ActiveTransactions() []*Transaction {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	out := make([]*Transaction, 0, len(tm.activeTxns))
	for _, t := range tm.activeTxns {
		out = append(out, t)
	}
	return out
}

// shrinking reports whether t is past its growing phase — passed to every
// LockManager acquisition so a transaction that somehow tries to lock after
// starting to release is refused LOCK_ON_SHRINKING rather than silently
// granted.
func shrinking(t *Transaction) bool {
	return t.State != Growing
}

// track appends id to t's lock set the first time it is granted; acquire
// helpers below call this right after a successful LockManager call.
func track(t *Transaction, id lockmgr.LockDataId) {
	for _, held := range t.LockSet {
		if held == id {
			return
		}
	}
	t.LockSet = append(t.LockSet, id)
}

// LockIntentionShared acquires a table IS lock on behalf of t.
func (tm *TxnManager) LockIntentionShared(t *Transaction, fileID uint32) error {
	if err := tm.lockMgr.LockIntentionShared(t.ID, shrinking(t), fileID); err != nil {
		return err
	}
	track(t, lockmgr.NewTableLock(fileID))
	return nil
}

// LockIntentionExclusive acquires a table IX lock on behalf of t.
func (tm *TxnManager) LockIntentionExclusive(t *Transaction, fileID uint32) error {
	if err := tm.lockMgr.LockIntentionExclusive(t.ID, shrinking(t), fileID); err != nil {
		return err
	}
	track(t, lockmgr.NewTableLock(fileID))
	return nil
}

// LockSharedTable acquires a whole-table S lock on behalf of t.
func (tm *TxnManager) LockSharedTable(t *Transaction, fileID uint32) error {
	if err := tm.lockMgr.LockSharedTable(t.ID, shrinking(t), fileID); err != nil {
		return err
	}
	track(t, lockmgr.NewTableLock(fileID))
	return nil
}

// LockExclusiveTable acquires a whole-table X lock on behalf of t.
func (tm *TxnManager) LockExclusiveTable(t *Transaction, fileID uint32) error {
	if err := tm.lockMgr.LockExclusiveTable(t.ID, shrinking(t), fileID); err != nil {
		return err
	}
	track(t, lockmgr.NewTableLock(fileID))
	return nil
}

// LockSharedRecord acquires a row S lock on behalf of t.
func (tm *TxnManager) LockSharedRecord(t *Transaction, fileID uint32, pageNo uint32, slotNo uint16) error {
	if err := tm.lockMgr.LockSharedRecord(t.ID, shrinking(t), fileID, pageNo, slotNo); err != nil {
		return err
	}
	track(t, lockmgr.NewRecordLock(fileID, pageNo, slotNo))
	return nil
}

// LockExclusiveRecord acquires a row X lock on behalf of t, upgrading from S
// if t already holds it.
func (tm *TxnManager) LockExclusiveRecord(t *Transaction, fileID uint32, pageNo uint32, slotNo uint16) error {
	if err := tm.lockMgr.LockExclusiveRecord(t.ID, shrinking(t), fileID, pageNo, slotNo); err != nil {
		return err
	}
	track(t, lockmgr.NewRecordLock(fileID, pageNo, slotNo))
	return nil
}
