package exec

import "DaemonDB/types"

// Projection selects a subset of its child's columns, repacking them into a
// new contiguous record. The permutation from child column to output offset
// is computed once at construction time.
type Projection struct {
	baseExecutor
	child   Operator
	cols    []types.ColumnDef
	srcCols []types.ColumnDef // child's column metadata for each selected column, same order as cols
	tupLen  int
}

// NewProjection builds a Projection over child selecting selCols, in order.
func NewProjection(ctx *Context, child Operator, selCols []string) (*Projection, error) {
	childCols := child.Cols()
	cols := make([]types.ColumnDef, 0, len(selCols))
	srcCols := make([]types.ColumnDef, 0, len(selCols))
	offset := 0
	for _, name := range selCols {
		src, ok := findCol(childCols, name)
		if !ok {
			return nil, types.ErrColumnNotFound
		}
		out := src
		out.Offset = offset
		offset += src.Len
		cols = append(cols, out)
		srcCols = append(srcCols, src)
	}
	return &Projection{
		baseExecutor: baseExecutor{ctx: ctx},
		child:        child,
		cols:         cols,
		srcCols:      srcCols,
		tupLen:       offset,
	}, nil
}

func (p *Projection) TupleLen() int           { return p.tupLen }
func (p *Projection) Cols() []types.ColumnDef { return p.cols }
func (p *Projection) IsEnd() bool             { return p.child.IsEnd() }
func (p *Projection) Rid() types.Rid          { return p.child.Rid() }
func (p *Projection) BeginTuple() error       { return p.child.BeginTuple() }
func (p *Projection) NextTuple() error        { return p.child.NextTuple() }

// Next fetches the child's current record and repacks the selected columns
// into a new buffer at their projected offsets.
func (p *Projection) Next() ([]byte, error) {
	rec, err := p.child.Next()
	if err != nil {
		return nil, err
	}
	out := make([]byte, p.tupLen)
	for i, src := range p.srcCols {
		dst := p.cols[i]
		copy(out[dst.Offset:dst.Offset+dst.Len], rec[src.Offset:src.Offset+src.Len])
	}
	return out, nil
}
