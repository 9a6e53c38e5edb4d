package exec

import (
	"DaemonDB/types"
	"fmt"
)

// NestedLoopJoin pairs every row of left with every row of right, in the
// classic outer/inner nested loop, yielding only pairs that satisfy conds.
// Output columns are left's columns followed by right's, with right's
// offsets biased by left's tuple length.
type NestedLoopJoin struct {
	baseExecutor
	left   Operator
	right  Operator
	conds  []Condition
	cols   []types.ColumnDef
	tupLen int
	isEnd  bool
}

func NewNestedLoopJoin(ctx *Context, left, right Operator, conds []Condition) *NestedLoopJoin {
	leftLen := left.TupleLen()
	cols := append([]types.ColumnDef{}, left.Cols()...)
	for _, c := range right.Cols() {
		c.Offset += leftLen
		cols = append(cols, c)
	}
	return &NestedLoopJoin{
		baseExecutor: baseExecutor{ctx: ctx},
		left:         left,
		right:        right,
		conds:        conds,
		cols:         cols,
		tupLen:       leftLen + right.TupleLen(),
	}
}

func (j *NestedLoopJoin) TupleLen() int           { return j.tupLen }
func (j *NestedLoopJoin) Cols() []types.ColumnDef { return j.cols }
func (j *NestedLoopJoin) IsEnd() bool             { return j.isEnd }
func (j *NestedLoopJoin) Rid() types.Rid          { return types.Rid{} }

// BeginTuple positions both children and advances to the first pair
// satisfying conds. An empty side ends the join immediately.
func (j *NestedLoopJoin) BeginTuple() error {
	if err := j.left.BeginTuple(); err != nil {
		return err
	}
	if j.left.IsEnd() {
		j.isEnd = true
		return nil
	}
	if err := j.right.BeginTuple(); err != nil {
		return err
	}
	if j.right.IsEnd() {
		j.isEnd = true
		return nil
	}
	ok, err := j.matches()
	if err != nil {
		return err
	}
	if !ok {
		return j.NextTuple()
	}
	return nil
}

// NextTuple advances the right side; when the right side runs out it
// advances the left side and rewinds the right side, stopping when the left
// side is also exhausted. It then skips forward to the next qualifying pair.
func (j *NestedLoopJoin) NextTuple() error {
	for {
		if err := j.right.NextTuple(); err != nil {
			return err
		}
		for j.right.IsEnd() {
			if err := j.left.NextTuple(); err != nil {
				return err
			}
			if j.left.IsEnd() {
				j.isEnd = true
				return nil
			}
			if err := j.right.BeginTuple(); err != nil {
				return err
			}
			if j.right.IsEnd() {
				j.isEnd = true
				return nil
			}
		}
		ok, err := j.matches()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}

func (j *NestedLoopJoin) matches() (bool, error) {
	lrec, err := j.left.Next()
	if err != nil {
		return false, err
	}
	rrec, err := j.right.Next()
	if err != nil {
		return false, err
	}
	return evalJoinConditions(lrec, j.left.Cols(), rrec, j.right.Cols(), j.conds)
}

// Next concatenates the left and right children's current records.
func (j *NestedLoopJoin) Next() ([]byte, error) {
	lrec, err := j.left.Next()
	if err != nil {
		return nil, err
	}
	rrec, err := j.right.Next()
	if err != nil {
		return nil, err
	}
	out := make([]byte, j.tupLen)
	copy(out, lrec)
	copy(out[len(lrec):], rrec)
	return out, nil
}

// evalJoinConditions reports whether every condition holds for this
// candidate pair. LhsCol is resolved against the left row first (falling
// back to the right), RhsCol against the right row first (falling back to
// the left) — the usual "left.col op right.col" shape of a join predicate.
// Resolving both sides left-then-right would make an equi-join on a column
// name shared by both tables (e.g. `id = id`) compare the left value
// against itself, turning the join into a cross product.
func evalJoinConditions(lrec []byte, lcols []types.ColumnDef, rrec []byte, rcols []types.ColumnDef, conds []Condition) (bool, error) {
	for _, c := range conds {
		lhs, err := resolveJoinValue(c.LhsCol, lrec, lcols, rrec, rcols)
		if err != nil {
			return false, err
		}
		var rhs types.Value
		if c.IsRhsVal {
			rhs = c.RhsVal
		} else {
			rhs, err = resolveJoinValue(c.RhsCol, rrec, rcols, lrec, lcols)
			if err != nil {
				return false, err
			}
		}
		cmp, err := lhs.Compare(rhs)
		if err != nil {
			return false, err
		}
		if !evalOp(c.Op, cmp) {
			return false, nil
		}
	}
	return true, nil
}

// resolveJoinValue decodes name out of the primary side (primRec/primCols)
// if it has that column, otherwise falls back to the secondary side.
func resolveJoinValue(name string, primRec []byte, primCols []types.ColumnDef, secRec []byte, secCols []types.ColumnDef) (types.Value, error) {
	if col, ok := findCol(primCols, name); ok {
		return types.DecodeValue(primRec, col)
	}
	if col, ok := findCol(secCols, name); ok {
		return types.DecodeValue(secRec, col)
	}
	return types.Value{}, fmt.Errorf("join condition: %w: %q", types.ErrColumnNotFound, name)
}
