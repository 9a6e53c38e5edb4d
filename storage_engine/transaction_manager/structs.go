package txn

import (
	"sync"

	"DaemonDB/storage_engine/lockmgr"
	"DaemonDB/types"
)

// TxnState is the two-phase-locking state of a transaction. A transaction
// only ever moves forward through these four states, never backward.
type TxnState uint8

const (
	Growing TxnState = iota
	Shrinking
	Committed
	Aborted
)

func (s TxnState) String() string {
	switch s {
	case Growing:
		return "GROWING"
	case Shrinking:
		return "SHRINKING"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "?"
	}
}

// WriteKind distinguishes the three kinds of undo entry a mutating executor
// can append.
type WriteKind uint8

const (
	WriteInsert WriteKind = iota
	WriteDelete
	WriteUpdate
)

func (k WriteKind) String() string {
	switch k {
	case WriteInsert:
		return "INS"
	case WriteDelete:
		return "DEL"
	case WriteUpdate:
		return "UPD"
	default:
		return "?"
	}
}

// IndexTouch records one index entry that a heap mutation also touched, so
// abort's undo pass can reverse the index change symmetrically with the
// heap change instead of leaving the index holding a dangling entry.
type IndexTouch struct {
	IndexName string
	OldKey    []byte // nil if this touch did not remove/replace a prior key
	NewKey    []byte // nil if this touch did not add a key
	Rid       types.Rid
}

// WriteRec is one entry in a transaction's undo list: enough information to
// reverse a single heap mutation and every index entry it produced, in
// isolation from whatever else has happened to the row since.
//
// INS records only the row's Rid — undoing an insert is a delete.
// DEL and UPD record the row's image before the operation — undoing either
// restores that image at the same Rid.
type WriteRec struct {
	Kind        WriteKind
	Table       string
	FileID      uint32
	Rid         types.Rid
	BeforeImage []byte
	IndexTouches []IndexTouch
}

// Transaction is the in-memory record of one transaction: its 2PL state,
// the locks it currently holds, and the undo list needed to reverse its
// writes if it aborts.
type Transaction struct {
	ID       uint64
	State    TxnState
	StartTS  uint64
	LockSet  []lockmgr.LockDataId
	UndoList []WriteRec
}

// HeapUndoer and IndexUndoer are the callback surfaces Abort uses to replay
// a transaction's undo list. Txn depends on these interfaces rather than on
// the heap/index packages directly, so the access layer never needs to
// import txn.
type HeapUndoer interface {
	DeleteRowAt(fileID uint32, rid types.Rid) error
	InsertRowAt(fileID uint32, rid types.Rid, rowData []byte) error
	RestoreRow(fileID uint32, rid types.Rid, rowData []byte) error
}

type IndexUndoer interface {
	DeleteEntry(table, indexName string, key []byte) error
	InsertEntryUndo(table, indexName string, key []byte, rid types.Rid) error
}

// TxnManager owns the global transaction table and coordinates every
// begin/commit/abort with the lock manager and the undo replay callbacks.
type TxnManager struct {
	nextID     uint64
	activeTxns map[uint64]*Transaction
	nextTS     uint64
	lockMgr    *lockmgr.LockManager
	heap       HeapUndoer
	index      IndexUndoer
	mu         sync.RWMutex
}
