package exec

import (
	txn "DaemonDB/storage_engine/transaction_manager"
	"DaemonDB/types"
	"fmt"
)

// SetClause is one `col = val` assignment of an UPDATE statement.
type SetClause struct {
	Col string
	Val types.Value
}

// Update rewrites every row named by rids according to setClauses,
// re-keying any index whose columns intersect the SET list. Like Delete, it
// yields no tuples.
type Update struct {
	baseExecutor
	table   string
	fileID  uint32
	schema  types.TableSchema
	rids    []types.Rid
	clauses []SetClause
}

func NewUpdate(ctx *Context, table string, clauses []SetClause, rids []types.Rid) (*Update, error) {
	schema, err := ctx.Catalog.GetTableSchema(table)
	if err != nil {
		return nil, err
	}
	fileID, err := ctx.Catalog.GetTableFileID(table)
	if err != nil {
		return nil, err
	}
	return &Update{
		baseExecutor: baseExecutor{ctx: ctx},
		table:        table,
		fileID:       fileID,
		schema:       schema,
		rids:         rids,
		clauses:      clauses,
	}, nil
}

func (e *Update) TupleLen() int           { return e.schema.RecordSize() }
func (e *Update) Cols() []types.ColumnDef { return e.schema.Columns }
func (e *Update) IsEnd() bool             { return true }
func (e *Update) Rid() types.Rid          { return types.Rid{} }
func (e *Update) NextTuple() error        { return nil }
func (e *Update) Next() ([]byte, error)   { return nil, nil }

// BeginTuple takes the table IX lock; for each rid it reads the old record,
// builds the new record by copying the old bytes and overwriting the SET
// columns, computes the old and new keys of every affected index, records
// the UPD undo entry with the before-image, re-keys every affected index
// (delete old key, insert new key), and finally writes the new record to the
// heap.
func (e *Update) BeginTuple() error {
	if err := e.ctx.TxnMgr.LockIntentionExclusive(e.ctx.Txn, e.fileID); err != nil {
		return err
	}

	cols := e.schema.Columns
	setCols := make(map[string]bool, len(e.clauses))
	for _, c := range e.clauses {
		setCols[c.Col] = true
	}
	affected := e.schema.IndexesOn(setCols)

	for _, rid := range e.rids {
		rp := rid.WithFile(e.fileID)
		if err := e.ctx.TxnMgr.LockExclusiveRecord(e.ctx.Txn, e.fileID, rid.PageNo, rid.SlotNo); err != nil {
			return err
		}

		oldRec, err := e.ctx.Heap.GetRow(&rp)
		if err != nil {
			return fmt.Errorf("update %q: %w", e.table, err)
		}

		newRec := make([]byte, len(oldRec))
		copy(newRec, oldRec)
		for _, set := range e.clauses {
			col, ok := findCol(cols, set.Col)
			if !ok {
				return fmt.Errorf("update %q: %w: %q", e.table, types.ErrColumnNotFound, set.Col)
			}
			if err := set.Val.EncodeInto(newRec[col.Offset:col.Offset+col.Len], col); err != nil {
				return fmt.Errorf("update %q: %w", e.table, err)
			}
		}

		touches := make([]txn.IndexTouch, 0, len(affected))
		oldKeys := make([][]byte, len(affected))
		newKeys := make([][]byte, len(affected))
		for i, idx := range affected {
			oldKey, err := buildIndexKey(oldRec, cols, idx)
			if err != nil {
				return err
			}
			newKey, err := buildIndexKey(newRec, cols, idx)
			if err != nil {
				return err
			}
			oldKeys[i] = oldKey
			newKeys[i] = newKey
			touches = append(touches, txn.IndexTouch{IndexName: idx.Name, OldKey: oldKey, NewKey: newKey, Rid: rid})
		}

		e.ctx.Txn.RecordUpdate(e.table, e.fileID, rid, oldRec, touches)

		for i, idx := range affected {
			if err := e.ctx.Index.DeleteEntry(e.table, idx.Name, oldKeys[i]); err != nil {
				return err
			}
			if _, err := e.ctx.Index.InsertEntry(e.table, idx.Name, newKeys[i], rid); err != nil {
				return err
			}
		}

		if err := e.ctx.Heap.UpdateRow(&rp, newRec, 0); err != nil {
			return fmt.Errorf("update %q: %w", e.table, err)
		}
	}
	return nil
}
