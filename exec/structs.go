package exec

import (
	"DaemonDB/storage_engine/access/heapfile_manager"
	"DaemonDB/storage_engine/access/indexfile_manager"
	"DaemonDB/storage_engine/catalog"
	txn "DaemonDB/storage_engine/transaction_manager"
	"DaemonDB/types"
)

/*
Package exec is the volcano-style operator layer: every Operator exposes
BeginTuple/NextTuple/IsEnd/Next/TupleLen/Cols/Rid, mirroring the classic
iterator protocol of a pull-based query engine. Each operator takes its own
locks, appends its own undo entries and maintains its own index entries,
through the collaborators in the shared Context; every one follows the same
order (table-intention lock before row lock, undo entry before index write).
*/

// Operator is the interface every executor implements.
type Operator interface {
	BeginTuple() error
	NextTuple() error
	IsEnd() bool
	Next() ([]byte, error)
	TupleLen() int
	Cols() []types.ColumnDef
	Rid() types.Rid
}

// Context bundles every collaborator an operator needs to read or mutate
// storage on behalf of one transaction.
type Context struct {
	Heap    *heapfile.HeapFileManager
	Index   *indexfile.IndexFileManager
	Catalog *catalog.CatalogManager
	TxnMgr  *txn.TxnManager
	Txn     *txn.Transaction
}

// CompOp is a scalar comparison operator.
type CompOp int

const (
	OpEq CompOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// Condition is `lhs_col OP rhs`, where rhs is either a literal Value or
// another column of the same (or, in a join, the other) relation.
type Condition struct {
	LhsCol   string
	Op       CompOp
	IsRhsVal bool
	RhsVal   types.Value
	RhsCol   string
}

func evalOp(op CompOp, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}

// baseExecutor carries the fields nearly every operator needs, following
// the embed-a-shared-struct convention the access layer itself uses for its
// row-ops files.
type baseExecutor struct {
	ctx *Context
}
