package exec

import (
	txn "DaemonDB/storage_engine/transaction_manager"
	"DaemonDB/types"
	"fmt"
)

// Insert writes one new row into table. It is single-shot: BeginTuple
// performs the write, and there is exactly one tuple (the inserted row) to
// yield afterwards.
type Insert struct {
	baseExecutor
	table  string
	fileID uint32
	schema types.TableSchema
	values []types.Value
	rec    []byte
	rid    types.Rid
	done   bool
}

func NewInsert(ctx *Context, table string, values []types.Value) (*Insert, error) {
	schema, err := ctx.Catalog.GetTableSchema(table)
	if err != nil {
		return nil, err
	}
	fileID, err := ctx.Catalog.GetTableFileID(table)
	if err != nil {
		return nil, err
	}
	return &Insert{
		baseExecutor: baseExecutor{ctx: ctx},
		table:        table,
		fileID:       fileID,
		schema:       schema,
		values:       values,
	}, nil
}

func (e *Insert) TupleLen() int           { return e.schema.RecordSize() }
func (e *Insert) Cols() []types.ColumnDef { return e.schema.Columns }
func (e *Insert) IsEnd() bool             { return e.done }
func (e *Insert) Rid() types.Rid          { return e.rid }

func (e *Insert) Next() ([]byte, error) {
	if e.done {
		return nil, fmt.Errorf("Insert.Next: called past end")
	}
	return e.rec, nil
}

func (e *Insert) NextTuple() error {
	e.done = true
	return nil
}

// BeginTuple validates values against the schema, serializes them into a
// fixed-width buffer, writes the row, appends the undo entry, then inserts
// the corresponding key into every index on the table.
func (e *Insert) BeginTuple() error {
	cols := e.schema.Columns
	if len(e.values) != len(cols) {
		return fmt.Errorf("insert into %q: %w", e.table, types.ErrInvalidValueCount)
	}

	if err := e.ctx.TxnMgr.LockIntentionExclusive(e.ctx.Txn, e.fileID); err != nil {
		return err
	}

	rec := make([]byte, e.schema.RecordSize())
	for i, col := range cols {
		if err := e.values[i].EncodeInto(rec[col.Offset:col.Offset+col.Len], col); err != nil {
			return fmt.Errorf("insert into %q: %w", e.table, err)
		}
	}

	rp, err := e.ctx.Heap.InsertRow(e.fileID, rec, 0)
	if err != nil {
		return fmt.Errorf("insert into %q: %w", e.table, err)
	}
	rid := types.RidFromPointer(*rp)

	touches := make([]txn.IndexTouch, 0, len(e.schema.Indexes))
	keys := make([][]byte, len(e.schema.Indexes))
	for i, idx := range e.schema.Indexes {
		key, err := buildIndexKey(rec, cols, idx)
		if err != nil {
			return err
		}
		keys[i] = key
		touches = append(touches, txn.IndexTouch{IndexName: idx.Name, NewKey: key, Rid: rid})
	}

	e.ctx.Txn.RecordInsert(e.table, e.fileID, rid, touches)

	for i, idx := range e.schema.Indexes {
		if _, err := e.ctx.Index.InsertEntry(e.table, idx.Name, keys[i], rid); err != nil {
			return err
		}
	}

	e.rec = rec
	e.rid = rid
	e.done = false
	return nil
}
