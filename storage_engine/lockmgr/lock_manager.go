package lockmgr

import (
	"DaemonDB/types"
	"fmt"
)

/*
Acquisition follows the procedure in the spec almost verbatim:

 1. A transaction past its growing phase (shrinking == true) is refused
    outright — LOCK_ON_SHRINKING.
 2. If the transaction already holds a request on this id that is at
    least as strong as the one asked for, the call is a no-op success.
 3. Otherwise, if it holds a weaker request, this is an upgrade: it
    succeeds only if every OTHER granted request on the queue is
    compatible with the stronger mode (no-wait — no partial upgrades,
    no waiting for the other holders to release).
 4. Otherwise, a brand new request is admitted only if the queue's
    current group mode is compatible with the requested mode.
 5. On success the queue's group mode is updated to the lattice join of
    itself and the newly granted mode.

Every failure path returns DEADLOCK_PREVENTION — there is no waiting, so a
conflict is always resolved by aborting the requester rather than by
blocking it.
*/
func (lm *LockManager) acquire(txnID uint64, shrinking bool, id LockDataId, mode LockMode) error {
	if shrinking {
		return fmt.Errorf("acquire %s %s for txn %d: %w", mode, id, txnID, types.ErrLockOnShrinking)
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	q := lm.table[id]
	if q == nil {
		q = &LockQueue{GroupMode: NonLock}
		lm.table[id] = q
	}

	for i := range q.Requests {
		r := &q.Requests[i]
		if r.TxnID != txnID {
			continue
		}
		if ge(r.Mode, mode) {
			return nil
		}
		for j := range q.Requests {
			if j == i || !q.Requests[j].Granted {
				continue
			}
			if !compatible(modeToGroup(q.Requests[j].Mode), mode) {
				return fmt.Errorf("upgrade %s->%s %s for txn %d: %w", r.Mode, mode, id, txnID, types.ErrDeadlockPrevention)
			}
		}
		r.Mode = mode
		recomputeGroup(q)
		return nil
	}

	if !compatible(q.GroupMode, mode) {
		return fmt.Errorf("acquire %s %s for txn %d: %w", mode, id, txnID, types.ErrDeadlockPrevention)
	}

	q.Requests = append(q.Requests, LockRequest{TxnID: txnID, Mode: mode, Granted: true})
	q.GroupMode = join(q.GroupMode, mode)
	return nil
}

// LockIntentionShared takes a table-level IS lock, declaring intent to take
// S locks on some of the table's rows.
func (lm *LockManager) LockIntentionShared(txnID uint64, shrinking bool, fileID uint32) error {
	return lm.acquire(txnID, shrinking, NewTableLock(fileID), IS)
}

// LockIntentionExclusive takes a table-level IX lock, declaring intent to
// take X locks on some of the table's rows.
func (lm *LockManager) LockIntentionExclusive(txnID uint64, shrinking bool, fileID uint32) error {
	return lm.acquire(txnID, shrinking, NewTableLock(fileID), IX)
}

// LockSharedTable takes a whole-table S lock.
func (lm *LockManager) LockSharedTable(txnID uint64, shrinking bool, fileID uint32) error {
	return lm.acquire(txnID, shrinking, NewTableLock(fileID), S)
}

// LockExclusiveTable takes a whole-table X lock.
func (lm *LockManager) LockExclusiveTable(txnID uint64, shrinking bool, fileID uint32) error {
	return lm.acquire(txnID, shrinking, NewTableLock(fileID), X)
}

// LockSharedRecord takes a row-level S lock.
func (lm *LockManager) LockSharedRecord(txnID uint64, shrinking bool, fileID uint32, pageNo uint32, slotNo uint16) error {
	return lm.acquire(txnID, shrinking, NewRecordLock(fileID, pageNo, slotNo), S)
}

// LockExclusiveRecord takes a row-level X lock, upgrading from S if the
// transaction already holds one.
func (lm *LockManager) LockExclusiveRecord(txnID uint64, shrinking bool, fileID uint32, pageNo uint32, slotNo uint16) error {
	return lm.acquire(txnID, shrinking, NewRecordLock(fileID, pageNo, slotNo), X)
}

// Unlock removes txnID's request from id's queue and recomputes the
// queue's group mode. A transaction that never held the lock is a no-op —
// Txn.abort/commit release every id in lock_set unconditionally.
func (lm *LockManager) Unlock(txnID uint64, id LockDataId) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	q, ok := lm.table[id]
	if !ok {
		return
	}
	idx := -1
	for i, r := range q.Requests {
		if r.TxnID == txnID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	q.Requests = append(q.Requests[:idx], q.Requests[idx+1:]...)
	recomputeGroup(q)
}

// ReleaseAll unlocks every id in lockSet for txnID — called once, by
// Txn.commit or Txn.abort, never mid-transaction (strict 2PL).
func (lm *LockManager) ReleaseAll(txnID uint64, lockSet []LockDataId) {
	for _, id := range lockSet {
		lm.Unlock(txnID, id)
	}
}

// GroupModeOf returns the current group mode of a LockDataId, mostly for
// tests and invariant checks (§8: "group_mode equals the lattice-join of
// all granted modes").
func (lm *LockManager) GroupModeOf(id LockDataId) GroupMode {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	q, ok := lm.table[id]
	if !ok {
		return NonLock
	}
	return q.GroupMode
}
