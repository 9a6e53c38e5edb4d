package exec

import (
	txn "DaemonDB/storage_engine/transaction_manager"
	"DaemonDB/types"
	"fmt"
)

// Delete removes every row named by rids from table, maintaining every
// index on the table as it goes. It yields no tuples; BeginTuple does all
// the work and the operator is immediately at end.
type Delete struct {
	baseExecutor
	table  string
	fileID uint32
	schema types.TableSchema
	rids   []types.Rid
}

func NewDelete(ctx *Context, table string, rids []types.Rid) (*Delete, error) {
	schema, err := ctx.Catalog.GetTableSchema(table)
	if err != nil {
		return nil, err
	}
	fileID, err := ctx.Catalog.GetTableFileID(table)
	if err != nil {
		return nil, err
	}
	return &Delete{
		baseExecutor: baseExecutor{ctx: ctx},
		table:        table,
		fileID:       fileID,
		schema:       schema,
		rids:         rids,
	}, nil
}

func (e *Delete) TupleLen() int           { return e.schema.RecordSize() }
func (e *Delete) Cols() []types.ColumnDef { return e.schema.Columns }
func (e *Delete) IsEnd() bool             { return true }
func (e *Delete) Rid() types.Rid          { return types.Rid{} }
func (e *Delete) NextTuple() error        { return nil }
func (e *Delete) Next() ([]byte, error)   { return nil, nil }

// BeginTuple takes the table IX lock, then for each rid: takes the row X
// lock, reads the current record, records the DEL undo entry with the
// before-image, removes every index entry built from that record, and
// finally tombstones the heap slot. Reading must precede deletion — the key
// material for index removal does not survive the heap delete.
func (e *Delete) BeginTuple() error {
	if err := e.ctx.TxnMgr.LockIntentionExclusive(e.ctx.Txn, e.fileID); err != nil {
		return err
	}

	cols := e.schema.Columns
	for _, rid := range e.rids {
		rp := rid.WithFile(e.fileID)
		if err := e.ctx.TxnMgr.LockExclusiveRecord(e.ctx.Txn, e.fileID, rid.PageNo, rid.SlotNo); err != nil {
			return err
		}

		rec, err := e.ctx.Heap.GetRow(&rp)
		if err != nil {
			return fmt.Errorf("delete from %q: %w", e.table, err)
		}

		touches := make([]txn.IndexTouch, 0, len(e.schema.Indexes))
		keys := make([][]byte, len(e.schema.Indexes))
		for i, idx := range e.schema.Indexes {
			key, err := buildIndexKey(rec, cols, idx)
			if err != nil {
				return err
			}
			keys[i] = key
			touches = append(touches, txn.IndexTouch{IndexName: idx.Name, OldKey: key, Rid: rid})
		}

		e.ctx.Txn.RecordDelete(e.table, e.fileID, rid, rec, touches)

		for i, idx := range e.schema.Indexes {
			if err := e.ctx.Index.DeleteEntry(e.table, idx.Name, keys[i]); err != nil {
				return err
			}
		}

		if err := e.ctx.Heap.DeleteRow(&rp, 0); err != nil {
			return fmt.Errorf("delete from %q: %w", e.table, err)
		}
	}
	return nil
}
