package lockmgr

import (
	"errors"
	"testing"

	"DaemonDB/types"
)

func TestTableIntentionLocksCompatible(t *testing.T) {
	lm := NewLockManager()

	if err := lm.LockIntentionShared(1, false, 10); err != nil {
		t.Fatalf("txn1 IS: %v", err)
	}
	if err := lm.LockIntentionExclusive(2, false, 10); err != nil {
		t.Fatalf("txn2 IX: %v", err)
	}

	if got := lm.GroupModeOf(NewTableLock(10)); got != GroupSIX {
		t.Fatalf("group mode = %v, want SIX", got)
	}
}

func TestExclusiveRecordLockConflicts(t *testing.T) {
	lm := NewLockManager()

	if err := lm.LockSharedRecord(1, false, 10, 0, 0); err != nil {
		t.Fatalf("txn1 S: %v", err)
	}

	err := lm.LockExclusiveRecord(2, false, 10, 0, 0)
	if !errors.Is(err, types.ErrDeadlockPrevention) {
		t.Fatalf("expected DEADLOCK_PREVENTION, got %v", err)
	}
}

func TestSingleHolderUpgradeSucceeds(t *testing.T) {
	lm := NewLockManager()

	if err := lm.LockSharedRecord(1, false, 10, 0, 0); err != nil {
		t.Fatalf("txn1 S: %v", err)
	}
	if err := lm.LockExclusiveRecord(1, false, 10, 0, 0); err != nil {
		t.Fatalf("txn1 upgrade to X: %v", err)
	}

	id := NewRecordLock(10, 0, 0)
	if got := lm.GroupModeOf(id); got != GroupX {
		t.Fatalf("group mode = %v, want X", got)
	}
}

func TestUpgradeFailsWithOtherHolder(t *testing.T) {
	lm := NewLockManager()

	if err := lm.LockSharedRecord(1, false, 10, 0, 0); err != nil {
		t.Fatalf("txn1 S: %v", err)
	}
	if err := lm.LockSharedRecord(2, false, 10, 0, 0); err != nil {
		t.Fatalf("txn2 S: %v", err)
	}

	err := lm.LockExclusiveRecord(1, false, 10, 0, 0)
	if !errors.Is(err, types.ErrDeadlockPrevention) {
		t.Fatalf("expected DEADLOCK_PREVENTION, got %v", err)
	}
}

func TestShrinkingRefusesNewLocks(t *testing.T) {
	lm := NewLockManager()

	err := lm.LockSharedTable(1, true /* shrinking */, 10)
	if !errors.Is(err, types.ErrLockOnShrinking) {
		t.Fatalf("expected LOCK_ON_SHRINKING, got %v", err)
	}
}

func TestUnlockRecomputesGroupMode(t *testing.T) {
	lm := NewLockManager()
	id := NewTableLock(10)

	if err := lm.LockSharedTable(1, false, 10); err != nil {
		t.Fatalf("txn1 S: %v", err)
	}
	if err := lm.LockSharedTable(2, false, 10); err != nil {
		t.Fatalf("txn2 S: %v", err)
	}

	lm.Unlock(1, id)
	if got := lm.GroupModeOf(id); got != GroupS {
		t.Fatalf("group mode after one release = %v, want S", got)
	}

	lm.Unlock(2, id)
	if got := lm.GroupModeOf(id); got != NonLock {
		t.Fatalf("group mode after all released = %v, want NON_LOCK", got)
	}
}

func TestAlreadyHeldStrongerModeIsNoop(t *testing.T) {
	lm := NewLockManager()

	if err := lm.LockExclusiveRecord(1, false, 10, 0, 0); err != nil {
		t.Fatalf("txn1 X: %v", err)
	}
	if err := lm.LockSharedRecord(1, false, 10, 0, 0); err != nil {
		t.Fatalf("txn1 re-request S while holding X: %v", err)
	}

	id := NewRecordLock(10, 0, 0)
	if got := lm.GroupModeOf(id); got != GroupX {
		t.Fatalf("group mode = %v, want X", got)
	}
}
