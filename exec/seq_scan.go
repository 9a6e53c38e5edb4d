package exec

import (
	"DaemonDB/types"
	"fmt"
)

// SeqScan walks every row of a table, in physical rid order, yielding only
// those that satisfy the AND of conds. It takes the table's IS lock once
// in BeginTuple and a per-row S lock on every row it visits.
type SeqScan struct {
	baseExecutor
	table   string
	fileID  uint32
	schema  []types.ColumnDef
	conds   []Condition
	tupLen  int
	rids    []types.RowPointer
	pos     int
	cur     []byte
	isEnd   bool
}

func NewSeqScan(ctx *Context, table string, conds []Condition) (*SeqScan, error) {
	schema, err := ctx.Catalog.GetTableSchema(table)
	if err != nil {
		return nil, err
	}
	fileID, err := ctx.Catalog.GetTableFileID(table)
	if err != nil {
		return nil, err
	}
	return &SeqScan{
		baseExecutor: baseExecutor{ctx: ctx},
		table:        table,
		fileID:       fileID,
		schema:       schema.Columns,
		conds:        conds,
		tupLen:       schema.RecordSize(),
	}, nil
}

func (s *SeqScan) TupleLen() int              { return s.tupLen }
func (s *SeqScan) Cols() []types.ColumnDef    { return s.schema }
func (s *SeqScan) IsEnd() bool                { return s.isEnd }
func (s *SeqScan) Rid() types.Rid {
	if s.isEnd || s.pos >= len(s.rids) {
		return types.Rid{}
	}
	return types.RidFromPointer(s.rids[s.pos])
}

func (s *SeqScan) Next() ([]byte, error) {
	if s.isEnd {
		return nil, fmt.Errorf("SeqScan.Next: past end")
	}
	return s.cur, nil
}

// BeginTuple acquires the table IS lock, loads the rid list, then advances
// to the first row satisfying conds.
func (s *SeqScan) BeginTuple() error {
	if err := s.ctx.TxnMgr.LockIntentionShared(s.ctx.Txn, s.fileID); err != nil {
		return err
	}
	rids, err := s.ctx.Heap.ScanRowPointers(s.fileID)
	if err != nil {
		return err
	}
	s.rids = rids
	s.pos = 0
	return s.advance()
}

// NextTuple advances one row past the current position, then skips forward
// to the next row satisfying conds.
func (s *SeqScan) NextTuple() error {
	s.pos++
	return s.advance()
}

// advance scans forward from s.pos until it finds a qualifying row or runs
// off the end of the rid list.
func (s *SeqScan) advance() error {
	for s.pos < len(s.rids) {
		rp := s.rids[s.pos]
		if err := s.ctx.TxnMgr.LockSharedRecord(s.ctx.Txn, s.fileID, rp.PageNumber, rp.SlotIndex); err != nil {
			return err
		}
		rec, err := s.ctx.Heap.GetRow(&rp)
		if err != nil {
			return err
		}
		ok, err := evalConditions(rec, s.schema, s.conds)
		if err != nil {
			return err
		}
		if ok {
			s.cur = rec
			s.isEnd = false
			return nil
		}
		s.pos++
	}
	s.isEnd = true
	s.cur = nil
	return nil
}

// evalConditions reports whether record satisfies the AND of every cond,
// each resolved against schema.
func evalConditions(record []byte, schema []types.ColumnDef, conds []Condition) (bool, error) {
	for _, c := range conds {
		ok, err := evalCondition(record, schema, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalCondition(record []byte, schema []types.ColumnDef, c Condition) (bool, error) {
	lhsCol, ok := findCol(schema, c.LhsCol)
	if !ok {
		return false, fmt.Errorf("eval condition: %w: %q", types.ErrColumnNotFound, c.LhsCol)
	}
	lhs, err := types.DecodeValue(record, lhsCol)
	if err != nil {
		return false, err
	}

	var rhs types.Value
	if c.IsRhsVal {
		rhs = c.RhsVal
	} else {
		rhsCol, ok := findCol(schema, c.RhsCol)
		if !ok {
			return false, fmt.Errorf("eval condition: %w: %q", types.ErrColumnNotFound, c.RhsCol)
		}
		rhs, err = types.DecodeValue(record, rhsCol)
		if err != nil {
			return false, err
		}
	}

	cmp, err := lhs.Compare(rhs)
	if err != nil {
		return false, err
	}
	return evalOp(c.Op, cmp), nil
}

func findCol(schema []types.ColumnDef, name string) (types.ColumnDef, bool) {
	for _, c := range schema {
		if c.Name == name {
			return c, true
		}
	}
	return types.ColumnDef{}, false
}
